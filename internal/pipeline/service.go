package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jobradar/jobradar/internal/job"
)

// completionEvent is the payload published after every finished run.
type completionEvent struct {
	RunID         string  `json:"run_id"`
	Status        string  `json:"status"`
	TotalRecords  int     `json:"total_records"`
	UniqueRecords int     `json:"unique_records"`
	Inserted      int     `json:"inserted"`
	Error         string  `json:"error,omitempty"`
	DurationSecs  float64 `json:"duration_seconds"`
}

// Service executes pipeline runs and owns what the driver does not:
// persisting the ranked postings and run summary, and publishing the
// completion event. The publisher and topic are optional.
type Service struct {
	driver    *Driver
	store     job.Store
	publisher job.Publisher
	topic     string
	profile   job.Profile
	logger    *zap.Logger

	wg sync.WaitGroup
}

// NewService wires a Service around the driver and the persistence boundary.
func NewService(driver *Driver, store job.Store, publisher job.Publisher, topic string, profile job.Profile, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		driver:    driver,
		store:     store,
		publisher: publisher,
		topic:     topic,
		profile:   profile,
		logger:    logger.Named("service"),
	}
}

// Running reports whether a run is currently in flight.
func (s *Service) Running() bool {
	return s.driver.Running()
}

// Status reports the driver's current state.
func (s *Service) Status() job.RunStatus {
	return s.driver.Status()
}

// Start launches a run in the background. It returns ErrRunInProgress when
// one is already in flight. The run detaches from the caller's context.
func (s *Service) Start(ctx context.Context) error {
	if s.driver.Running() {
		return ErrRunInProgress
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.Execute(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("background run finished with error", zap.Error(err))
		}
	}()
	return nil
}

// Wait blocks until all background runs have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Execute runs the pipeline once and persists the outcome. The run summary
// is saved for failed runs too; postings only exist for completed ones.
func (s *Service) Execute(ctx context.Context) (job.Run, error) {
	run, postings, runErr := s.driver.Run(ctx, s.profile)
	if run.ID == "" {
		return run, runErr
	}

	inserted := 0
	if len(postings) > 0 {
		n, err := s.store.SavePostings(ctx, postings)
		if err != nil {
			s.logger.Error("save postings failed", zap.String("run_id", run.ID), zap.Error(err))
		} else {
			inserted = n
			if inserted < len(postings) {
				s.logger.Info("postings already stored were skipped",
					zap.String("run_id", run.ID),
					zap.Int("skipped", len(postings)-inserted),
				)
			}
		}
	}

	if err := s.store.SaveRun(ctx, run); err != nil {
		s.logger.Error("save run failed", zap.String("run_id", run.ID), zap.Error(err))
	}

	s.publishCompletion(ctx, run, inserted)
	return run, runErr
}

func (s *Service) publishCompletion(ctx context.Context, run job.Run, inserted int) {
	if s.publisher == nil || s.topic == "" {
		return
	}
	evt := completionEvent{
		RunID:         run.ID,
		Status:        string(run.Status),
		TotalRecords:  run.TotalRecords,
		UniqueRecords: run.UniqueRecords,
		Inserted:      inserted,
		Error:         run.Error,
		DurationSecs:  run.Duration().Seconds(),
	}
	pubCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := s.publisher.Publish(pubCtx, s.topic, evt); err != nil {
		s.logger.Warn("publish completion failed",
			zap.String("run_id", run.ID),
			zap.Error(fmt.Errorf("topic %s: %w", s.topic, err)),
		)
	}
}
