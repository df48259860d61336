package job

import (
	"context"
	"errors"
	"time"
)

// ErrRunNotFound is returned by Store.GetRun for unknown run IDs.
var ErrRunNotFound = errors.New("run not found")

// Store persists ranked postings and run history.
type Store interface {
	// SavePostings upserts a batch of scored postings. Rows whose URL already
	// exists are silently skipped; the returned count is the number of rows
	// actually written.
	SavePostings(ctx context.Context, postings []Posting) (int, error)
	// SaveRun records one run summary.
	SaveRun(ctx context.Context, run Run) error
	// ListPostings returns stored postings ordered by score descending.
	ListPostings(ctx context.Context, minScore float64, limit, offset int) ([]Posting, error)
	// ListRuns returns recent run summaries, newest first.
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	// GetRun loads a single run or returns an error when absent.
	GetRun(ctx context.Context, runID string) (Run, error)
	// Close releases underlying resources.
	Close() error
}

// BlobStore archives raw source payloads and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes run-completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes digests for dedup fingerprints.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}

// Credentials exposes the secrets boundary to keyed-API adapters.
type Credentials interface {
	Has(service string) bool
	Get(service string) (string, bool)
}
