// Package memory provides in-process implementations of the persistence
// boundary for development runs and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jobradar/jobradar/internal/job"
)

// Store keeps postings and run summaries in memory, guarded by a mutex.
type Store struct {
	mu       sync.Mutex
	postings map[string]job.Posting
	runs     map[string]job.Run
	runOrder []string
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		postings: make(map[string]job.Posting),
		runs:     make(map[string]job.Run),
	}
}

// SavePostings inserts postings keyed by URL. Postings whose URL is already
// stored are skipped; the returned count is the number actually inserted.
func (s *Store) SavePostings(ctx context.Context, postings []job.Posting) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, p := range postings {
		if _, ok := s.postings[p.URL]; ok {
			continue
		}
		s.postings[p.URL] = p
		inserted++
	}
	return inserted, nil
}

// SaveRun upserts a run summary.
func (s *Store) SaveRun(ctx context.Context, run job.Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.ID]; !ok {
		s.runOrder = append(s.runOrder, run.ID)
	}
	s.runs[run.ID] = run
	return nil
}

// ListPostings returns stored postings with score >= minScore, ordered by
// score descending then collection time descending.
func (s *Store) ListPostings(ctx context.Context, minScore float64, limit, offset int) ([]job.Posting, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]job.Posting, 0, len(s.postings))
	for _, p := range s.postings {
		if p.Score >= minScore {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].CollectedAt > out[j].CollectedAt
	})

	if offset >= len(out) {
		return []job.Posting{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// ListRuns returns run summaries, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]job.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]job.Run, 0, len(s.runOrder))
	for i := len(s.runOrder) - 1; i >= 0; i-- {
		out = append(out, s.runs[s.runOrder[i]])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// GetRun loads one run summary by ID.
func (s *Store) GetRun(ctx context.Context, runID string) (job.Run, error) {
	if err := ctx.Err(); err != nil {
		return job.Run{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		return job.Run{}, fmt.Errorf("run %s: %w", runID, job.ErrRunNotFound)
	}
	return run, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

// UpsertRunStart records a run as running when its first progress event
// arrives, preserving any summary already stored.
func (s *Store) UpsertRunStart(ctx context.Context, runID string, startedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[runID]; ok {
		return nil
	}
	s.runs[runID] = job.Run{ID: runID, StartedAt: startedAt, Status: job.RunStatusRunning}
	s.runOrder = append(s.runOrder, runID)
	return nil
}

// CompleteRun marks a run finished with the given status.
func (s *Store) CompleteRun(ctx context.Context, runID string, finishedAt time.Time, status job.RunStatus, note *string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		run = job.Run{ID: runID}
		s.runOrder = append(s.runOrder, runID)
	}
	run.FinishedAt = &finishedAt
	run.Status = status
	if note != nil {
		run.Error = *note
	}
	s.runs[runID] = run
	return nil
}
