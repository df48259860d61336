package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishRecordsMessages(t *testing.T) {
	pub := New()
	ctx := context.Background()

	id, err := pub.Publish(ctx, "run-completions", map[string]any{"run_id": "run-1", "status": "completed"})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)

	id, err = pub.Publish(ctx, "run-completions", map[string]any{"run_id": "run-2", "status": "failed"})
	require.NoError(t, err)
	assert.Equal(t, "msg-2", id)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "run-completions", msgs[0].Topic)
	assert.JSONEq(t, `{"run_id":"run-1","status":"completed"}`, string(msgs[0].Data))
}

func TestPublishRequiresTopic(t *testing.T) {
	pub := New()

	_, err := pub.Publish(context.Background(), "", "payload")
	require.Error(t, err)
}

func TestPublishRejectsUnmarshalablePayload(t *testing.T) {
	pub := New()

	_, err := pub.Publish(context.Background(), "run-completions", make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "marshal payload")
}
