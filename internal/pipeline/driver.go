// Package pipeline orchestrates the collection run: fan out to the source
// adapters, merge, normalize, dedupe, score, and rank.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/jobradar/jobradar/internal/adapter"
	"github.com/jobradar/jobradar/internal/dedupe"
	"github.com/jobradar/jobradar/internal/job"
	"github.com/jobradar/jobradar/internal/metrics"
	"github.com/jobradar/jobradar/internal/normalize"
	"github.com/jobradar/jobradar/internal/progress"
	"github.com/jobradar/jobradar/internal/score"
)

// ErrRunInProgress is returned by Run when another run holds the driver.
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

// Terminal reasons surfaced in the run summary.
const (
	reasonNoResults   = "no results from any source"
	reasonInterrupted = "interrupted"
)

// Progress percentages at phase boundaries. Adapter completions fill the
// range up to collectDonePct proportionally.
const (
	collectDonePct = 70.0
	dedupeDonePct  = 80.0
	scoreDonePct   = 90.0
)

// Config tunes the driver.
type Config struct {
	// Workers bounds concurrent adapter fetches. 1 runs them sequentially.
	Workers int
}

// Driver runs the pipeline. One run at a time; a second caller gets
// ErrRunInProgress while the first is still collecting.
type Driver struct {
	adapters []adapter.Adapter
	deduper  *dedupe.Deduplicator
	clock    job.Clock
	ids      job.IDGenerator
	emitter  progress.Emitter
	logger   *zap.Logger
	workers  int

	busy   atomic.Bool
	status atomic.Value
}

func NewDriver(cfg Config, adapters []adapter.Adapter, deduper *dedupe.Deduplicator, clock job.Clock, ids job.IDGenerator, emitter progress.Emitter, logger *zap.Logger) *Driver {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(adapters) && len(adapters) > 0 {
		workers = len(adapters)
	}
	d := &Driver{
		adapters: adapters,
		deduper:  deduper,
		clock:    clock,
		ids:      ids,
		emitter:  emitter,
		logger:   logger.Named("pipeline"),
		workers:  workers,
	}
	d.status.Store(job.RunStatusIdle)
	return d
}

// Status reports the driver's current state: idle before any run, running
// while one is in flight, then the terminal status of the latest run.
func (d *Driver) Status() job.RunStatus {
	return d.status.Load().(job.RunStatus)
}

// Running reports whether a run is currently in flight.
func (d *Driver) Running() bool {
	return d.busy.Load()
}

// Run executes one full pipeline pass and returns the run summary plus the
// ranked postings. The returned error is non-nil exactly when the run
// finished in the failed state; the summary carries the reason either way.
// Persistence is the caller's concern.
func (d *Driver) Run(ctx context.Context, profile job.Profile) (job.Run, []job.Posting, error) {
	if !d.busy.CompareAndSwap(false, true) {
		return job.Run{}, nil, ErrRunInProgress
	}
	defer d.busy.Store(false)

	runID, err := d.ids.NewID()
	if err != nil {
		return job.Run{}, nil, fmt.Errorf("allocate run id: %w", err)
	}
	run := job.Run{
		ID:        runID,
		StartedAt: d.clock.Now(),
		Status:    job.RunStatusRunning,
		Profile:   profile,
	}
	d.status.Store(job.RunStatusRunning)
	d.emit(progress.Event{
		RunID:   run.ID,
		Stage:   progress.StageRunStart,
		Percent: 0,
		Task:    "collecting from sources",
	})
	d.logger.Info("run started",
		zap.String("run_id", run.ID),
		zap.Int("sources", len(d.adapters)),
		zap.Int("workers", d.workers),
	)

	results := d.collect(ctx, run, profile)

	if ctx.Err() != nil {
		return d.fail(run, reasonInterrupted)
	}

	var postings []job.Posting
	for _, res := range results {
		now := d.clock.Now()
		for _, c := range res.Candidates {
			postings = append(postings, normalize.Normalize(c, res.Source, now))
		}
	}
	run.TotalRecords = len(postings)

	if run.TotalRecords == 0 {
		return d.fail(run, reasonNoResults)
	}

	unique := d.deduper.Dedupe(postings)
	d.emit(progress.Event{
		RunID:   run.ID,
		Stage:   progress.StagePhaseDone,
		Percent: dedupeDonePct,
		Task:    "duplicates removed",
		Phase:   "dedupe",
		Count:   len(unique),
	})

	if ctx.Err() != nil {
		return d.fail(run, reasonInterrupted)
	}

	scorer := score.New(profile)
	unique = scorer.ScoreAll(unique)
	d.emit(progress.Event{
		RunID:   run.ID,
		Stage:   progress.StagePhaseDone,
		Percent: scoreDonePct,
		Task:    "records scored",
		Phase:   "score",
		Count:   len(unique),
	})

	// Stable sort keeps the pre-sort relative order for equal scores, so
	// source trust ordering from collection survives ranking ties.
	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Score > unique[j].Score
	})

	run.UniqueRecords = len(unique)
	run.Status = job.RunStatusCompleted
	finished := d.clock.Now()
	run.FinishedAt = &finished
	d.status.Store(job.RunStatusCompleted)

	d.emit(progress.Event{
		RunID:   run.ID,
		Stage:   progress.StageRunDone,
		Percent: 100,
		Task:    "run completed",
		Count:   run.UniqueRecords,
		Dur:     run.Duration(),
	})
	d.logger.Info("run completed",
		zap.String("run_id", run.ID),
		zap.Int("total_records", run.TotalRecords),
		zap.Int("unique_records", run.UniqueRecords),
		zap.Duration("dur", run.Duration()),
	)
	return run, unique, nil
}

// collect fans the adapters out over the worker pool and gathers their
// results through a mutex-guarded collector. Results never carry a fatal
// error; a failing source simply contributes nothing.
func (d *Driver) collect(ctx context.Context, run job.Run, profile job.Profile) []adapter.Result {
	var (
		mu      sync.Mutex
		results []adapter.Result
		done    atomic.Int64
	)

	tasks := make(chan adapter.Adapter)
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for a := range tasks {
				start := time.Now()
				res := a.Fetch(ctx, profile)
				d.reportSource(run, res, int(done.Add(1)), time.Since(start))
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
			}
		}()
	}
	for _, a := range d.adapters {
		tasks <- a
	}
	close(tasks)
	wg.Wait()

	return results
}

func (d *Driver) reportSource(run job.Run, res adapter.Result, doneCount int, dur time.Duration) {
	percent := collectDonePct
	if len(d.adapters) > 0 {
		percent = collectDonePct * float64(doneCount) / float64(len(d.adapters))
	}
	task := "source collected"
	outcome := metrics.OutcomeOK
	switch {
	case res.Skipped:
		task = "source skipped"
		outcome = metrics.OutcomeSkipped
	case res.Err != nil:
		task = "source failed"
		outcome = metrics.OutcomeFailed
		d.logger.Warn("source contributed nothing",
			zap.String("run_id", run.ID),
			zap.String("source", res.Source),
			zap.Error(res.Err),
		)
	}
	metrics.ObserveFetch(res.Source, outcome, len(res.Candidates), dur)
	evt := progress.Event{
		RunID:   run.ID,
		Stage:   progress.StageSourceDone,
		Percent: percent,
		Task:    task,
		Source:  res.Source,
		Count:   len(res.Candidates),
	}
	if res.Err != nil {
		evt.Note = res.Err.Error()
	}
	d.emit(evt)
}

// fail finalizes the run in the failed state. Partial results are discarded;
// nothing is handed to persistence from a failed run.
func (d *Driver) fail(run job.Run, reason string) (job.Run, []job.Posting, error) {
	run.Status = job.RunStatusFailed
	run.Error = reason
	finished := d.clock.Now()
	run.FinishedAt = &finished
	d.status.Store(job.RunStatusFailed)

	d.emit(progress.Event{
		RunID:   run.ID,
		Stage:   progress.StageRunError,
		Percent: 100,
		Task:    "run failed",
		Note:    reason,
		Dur:     run.Duration(),
	})
	d.logger.Warn("run failed",
		zap.String("run_id", run.ID),
		zap.String("reason", reason),
	)
	return run, nil, errors.New(reason)
}

func (d *Driver) emit(evt progress.Event) {
	if d.emitter == nil {
		return
	}
	evt.TS = d.clock.Now()
	if evt.TS.IsZero() {
		evt.TS = time.Now().UTC()
	}
	d.emitter.Emit(evt)
}
