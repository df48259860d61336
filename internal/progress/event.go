// Package progress provides the event primitives, non-blocking hub, and
// emitter interfaces the pipeline uses to report run progress. Events are
// batched on a background goroutine and fanned out to pluggable sinks such
// as the zap log, Prometheus metrics, or persistent run history.
package progress

import (
	"errors"
	"fmt"
	"time"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart   Stage = "RUN_START"
	StageSourceDone Stage = "SOURCE_DONE"
	StagePhaseDone  Stage = "PHASE_DONE"
	StageRunDone    Stage = "RUN_DONE"
	StageRunError   Stage = "RUN_ERROR"
)

// Event captures one milestone of a pipeline run.
type Event struct {
	// RunID identifies the pipeline run the event belongs to.
	RunID string
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which lifecycle milestone occurred.
	Stage Stage
	// Percent is overall run completion, 0 to 100.
	Percent float64
	// Task is a short human-readable description of what just happened.
	Task string
	// Source scopes SOURCE_DONE events to one adapter label.
	Source string
	// Phase scopes PHASE_DONE events (dedupe, score).
	Phase string
	// Count carries the record count relevant to the stage: per-source
	// candidates for SOURCE_DONE, surviving records for PHASE_DONE, unique
	// records for RUN_DONE.
	Count int
	// Dur captures elapsed time for terminal events.
	Dur time.Duration
	// Note lets emitters attach low-volume context such as error text.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == "" {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	if e.Percent < 0 || e.Percent > 100 {
		return fmt.Errorf("percent %v out of range", e.Percent)
	}
	switch e.Stage {
	case StageRunStart, StageRunDone:
	case StageRunError:
		if e.Note == "" {
			return errors.New("run error requires a reason")
		}
	case StageSourceDone:
		if e.Source == "" {
			return errors.New("source done requires a source label")
		}
	case StagePhaseDone:
		if e.Phase == "" {
			return errors.New("phase done requires a phase label")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}
