package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (s *captureSink) Consume(_ context.Context, batch []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, batch...)
	return nil
}

func (s *captureSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *captureSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func validEvent(stage Stage) Event {
	e := Event{RunID: "run-1", TS: time.Now().UTC(), Stage: stage, Percent: 50}
	switch stage {
	case StageSourceDone:
		e.Source = "Adzuna API"
	case StagePhaseDone:
		e.Phase = "dedupe"
	case StageRunError:
		e.Note = "no results from any source"
	}
	return e
}

func TestHubDeliversEventsToSinks(t *testing.T) {
	sink := &captureSink{}
	hub := NewHub(Config{MaxBatchWait: 10 * time.Millisecond}, sink)

	hub.Emit(validEvent(StageRunStart))
	hub.Emit(validEvent(StageSourceDone))
	hub.Emit(validEvent(StageRunDone))

	require.NoError(t, hub.Close(context.Background()))

	events := sink.snapshot()
	require.Len(t, events, 3)
	assert.Equal(t, StageRunStart, events[0].Stage)
	assert.Equal(t, StageRunDone, events[2].Stage)
	assert.True(t, sink.closed)
}

func TestHubDropsInvalidEvents(t *testing.T) {
	sink := &captureSink{}
	hub := NewHub(Config{}, sink)

	hub.Emit(Event{Stage: StageRunStart})
	hub.Emit(Event{RunID: "run-1", TS: time.Now(), Stage: "BOGUS"})
	hub.Emit(Event{RunID: "run-1", TS: time.Now(), Stage: StageRunStart, Percent: 180})

	require.NoError(t, hub.Close(context.Background()))
	assert.Empty(t, sink.snapshot())
}

func TestHubEmitNeverBlocksWhenFull(t *testing.T) {
	sink := &captureSink{}
	hub := NewHub(Config{BufferSize: 1, MaxBatchWait: time.Hour}, sink)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			hub.Emit(validEvent(StageSourceDone))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked on a full buffer")
	}
	require.NoError(t, hub.Close(context.Background()))
}

func TestHubEmitAfterCloseIsIgnored(t *testing.T) {
	sink := &captureSink{}
	hub := NewHub(Config{}, sink)
	require.NoError(t, hub.Close(context.Background()))

	hub.Emit(validEvent(StageRunStart))
	assert.Empty(t, sink.snapshot())
}

func TestNilHubIsSafe(t *testing.T) {
	var hub *Hub
	hub.Emit(validEvent(StageRunStart))
	assert.NoError(t, hub.Close(context.Background()))
}

func TestEventValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Event)
		wantErr string
	}{
		{name: "valid run start", mutate: func(e *Event) {}},
		{name: "missing run id", mutate: func(e *Event) { e.RunID = "" }, wantErr: "run id"},
		{name: "missing timestamp", mutate: func(e *Event) { e.TS = time.Time{} }, wantErr: "timestamp"},
		{name: "percent out of range", mutate: func(e *Event) { e.Percent = -1 }, wantErr: "percent"},
		{name: "source done without source", mutate: func(e *Event) { e.Stage = StageSourceDone }, wantErr: "source"},
		{name: "phase done without phase", mutate: func(e *Event) { e.Stage = StagePhaseDone }, wantErr: "phase"},
		{name: "run error without reason", mutate: func(e *Event) { e.Stage = StageRunError }, wantErr: "reason"},
		{name: "negative duration", mutate: func(e *Event) { e.Dur = -time.Second }, wantErr: "duration"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := Event{RunID: "run-1", TS: time.Now(), Stage: StageRunStart, Percent: 10}
			tc.mutate(&e)
			err := e.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}
