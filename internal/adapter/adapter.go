// Package adapter contains the per-source collectors that turn external
// job boards into candidate records.
package adapter

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jobradar/jobradar/internal/job"
)

// Result is the outcome of one adapter invocation. Adapters never return a
// Go error to the driver; failures are folded in here so one broken source
// cannot abort a run. Skipped marks a source that never attempted a network
// call, typically because its credentials are absent.
type Result struct {
	Source     string
	Candidates []job.Candidate
	Err        error
	Skipped    bool
}

// Adapter collects candidate postings from one external source.
type Adapter interface {
	Source() string
	Fetch(ctx context.Context, profile job.Profile) Result
}

// requestTimeout bounds every outbound call an adapter makes.
const requestTimeout = 12 * time.Second

// archiver writes raw response payloads to a blob store, best-effort. A nil
// archiver or a failed write never affects the fetch result.
type archiver struct {
	blobs  job.BlobStore
	clock  job.Clock
	logger *zap.Logger
}

func newArchiver(blobs job.BlobStore, clock job.Clock, logger *zap.Logger) *archiver {
	if blobs == nil {
		return nil
	}
	return &archiver{blobs: blobs, clock: clock, logger: logger}
}

func (a *archiver) put(ctx context.Context, source, contentType string, body []byte) {
	if a == nil || len(body) == 0 {
		return
	}
	key := fmt.Sprintf("%s/%s/%x",
		slug(source),
		a.clock.Now().Format("2006-01-02"),
		sha256.Sum256(body),
	)
	if _, err := a.blobs.PutObject(ctx, key, contentType, body); err != nil {
		a.logger.Warn("raw payload archive failed",
			zap.String("source", source),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

func slug(source string) string {
	return strings.ReplaceAll(strings.ToLower(source), " ", "-")
}
