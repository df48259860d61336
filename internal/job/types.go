// Package job defines core types shared across the ingestion pipeline.
package job

import (
	"time"
)

// RunStatus represents the lifecycle state of a pipeline run.
type RunStatus string

// Run status values persisted in the run store.
const (
	RunStatusIdle      RunStatus = "idle"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Candidate is the raw, adapter-specific representation of one discovered
// posting before normalization. It is created and owned by the adapter that
// produced it and is immutable once emitted.
type Candidate struct {
	Title       string
	Company     string
	Location    string
	Salary      string
	SalaryMin   *float64
	SalaryMax   *float64
	Description string
	URL         string
}

// Posting is the canonical record flowing through dedup, scoring, and storage.
// All fields are plain strings; missing source data becomes "".
type Posting struct {
	Title       string  `json:"title"`
	Company     string  `json:"company"`
	Location    string  `json:"location"`
	Salary      string  `json:"salary"`
	Description string  `json:"description"`
	URL         string  `json:"url"`
	Source      string  `json:"source"`
	CollectedAt string  `json:"collected_at"`
	Score       float64 `json:"score"`
}

// CountryPlaces groups the profile's location preferences for one country.
// Order matters: earlier countries and earlier places rank higher.
type CountryPlaces struct {
	Country string   `mapstructure:"country" json:"country"`
	Places  []string `mapstructure:"places" json:"places"`
}

// Profile captures the user's search and ranking preferences. It is loaded
// once per run from configuration and never mutated by the pipeline.
type Profile struct {
	Keywords  []string        `mapstructure:"keywords" json:"keywords"`
	Locations []CountryPlaces `mapstructure:"locations" json:"locations"`
	Skills    string          `mapstructure:"skills" json:"skills"`
	SalaryMin int             `mapstructure:"salary_min" json:"salary_min"`
	SalaryMax int             `mapstructure:"salary_max" json:"salary_max"`
	RemoteOK  bool            `mapstructure:"remote_ok" json:"remote_ok"`
}

// FlattenLocations returns all configured places in priority order: the first
// country's places first, in listed order, then the next country's, and so on.
func (p Profile) FlattenLocations() []string {
	var out []string
	for _, cp := range p.Locations {
		out = append(out, cp.Places...)
	}
	return out
}

// Run is the aggregate result and metadata for one pipeline execution. The
// driver builds it; the persistence boundary stores it as one unit.
type Run struct {
	ID            string     `json:"id"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	TotalRecords  int        `json:"total_records"`
	UniqueRecords int        `json:"unique_records"`
	Status        RunStatus  `json:"status"`
	Error         string     `json:"error,omitempty"`
	Profile       Profile    `json:"profile"`
}

// Duration returns the wall time of a finished run, or zero while running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
