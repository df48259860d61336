package sinks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jobradar/jobradar/internal/job"
	"github.com/jobradar/jobradar/internal/progress"
)

type fakeRunRepo struct {
	starts    []string
	completes []struct {
		runID  string
		status job.RunStatus
		note   *string
	}
	err error
}

func (f *fakeRunRepo) UpsertRunStart(_ context.Context, runID string, _ time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.starts = append(f.starts, runID)
	return nil
}

func (f *fakeRunRepo) CompleteRun(_ context.Context, runID string, _ time.Time, status job.RunStatus, note *string) error {
	if f.err != nil {
		return f.err
	}
	f.completes = append(f.completes, struct {
		runID  string
		status job.RunStatus
		note   *string
	}{runID, status, note})
	return nil
}

func TestStoreSinkPersistsLifecycleTransitions(t *testing.T) {
	repo := &fakeRunRepo{}
	sink := NewStoreSink(repo, zap.NewNop())

	batch := []progress.Event{
		{RunID: "run-1", TS: time.Now(), Stage: progress.StageRunStart},
		{RunID: "run-1", TS: time.Now(), Stage: progress.StageSourceDone, Source: "Adzuna API"},
		{RunID: "run-1", TS: time.Now(), Stage: progress.StageRunError, Note: "interrupted"},
	}

	require.NoError(t, sink.Consume(context.Background(), batch))

	assert.Equal(t, []string{"run-1"}, repo.starts)
	require.Len(t, repo.completes, 1)
	assert.Equal(t, job.RunStatusFailed, repo.completes[0].status)
	require.NotNil(t, repo.completes[0].note)
	assert.Equal(t, "interrupted", *repo.completes[0].note)
}

func TestStoreSinkPropagatesRepositoryErrors(t *testing.T) {
	repo := &fakeRunRepo{err: errors.New("db down")}
	sink := NewStoreSink(repo, zap.NewNop())

	err := sink.Consume(context.Background(), []progress.Event{
		{RunID: "run-1", TS: time.Now(), Stage: progress.StageRunStart},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestStoreSinkNilRepositoryIsNoop(t *testing.T) {
	sink := NewStoreSink(nil, nil)

	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{RunID: "run-1", TS: time.Now(), Stage: progress.StageRunDone},
	}))
	require.NoError(t, sink.Close(context.Background()))
}
