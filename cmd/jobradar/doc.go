// Package main hosts the jobradar service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, run management, and posting query endpoints.
//     POST /v1/runs triggers a pipeline run asynchronously and answers 202 immediately; a second trigger
//     while a run is active answers 409.
//   - Pipeline: internal/pipeline.Driver fans the configured source adapters out to a fixed worker pool,
//     merges their candidates, normalizes, dedupes on a content hash of title/company/location, scores
//     against the configured search profile, and ranks the survivors. A compare-and-swap busy flag keeps
//     runs single-flight. Context cancellation stops a run cleanly with an "interrupted" summary.
//   - Sources: the Adzuna adapter queries the JSON search API per keyword, the feed adapter decodes RSS
//     job feeds, and the page adapter scrapes individual posting pages via Colly, optionally discovering
//     page URLs through the Chromedp-backed searcher before falling back to configured seeds.
//   - Persistence & fanout: raw source payloads are archived to the configured BlobStore (memory/local/GCS),
//     ranked postings and run summaries go to the configured Store (memory/Postgres), and a compact
//     completion event is published to Pub/Sub when a topic is configured. Progress events are buffered
//     and sent to configured sinks for monitoring.
//   - Configuration & plumbing: Viper populates config from env/files; zap provides structured logging;
//     Prometheus counters/histograms track fetch activity and rate-limit delays, exported via /metrics.
//     Source credentials load from the environment with an optional .env file.
//
// Operational notes:
//   - Concurrency model: fixed adapter worker pool sized by config.Pipeline.Workers; per-source token
//     buckets pace outbound requests. Shutdown is coordinated via context cancellation propagated from
//     main through the driver to the adapters. A run started over HTTP is detached from the request
//     context and drains before process exit.
//   - Observability: zap logs carry run IDs and source names at phase transitions; the progress Hub
//     batches run lifecycle events for downstream sinks including the run-summary table.
//   - The process reacts to SIGINT/SIGTERM with a graceful HTTP drain followed by ordered dependency
//     shutdown.
//
// Quick checklist:
//   - Configure env vars with the JOBRADAR_ prefix: JOBRADAR_SERVER_PORT, JOBRADAR_PIPELINE_WORKERS,
//     profile keywords/locations, source toggles (JOBRADAR_SOURCES_*), storage (JOBRADAR_DATABASE_*,
//     JOBRADAR_ARCHIVE_*), and pubsub when fanout is required. ADZUNA_APP_ID/ADZUNA_APP_KEY supply the
//     Adzuna credentials.
//   - Run once: go run ./cmd/jobradar run -config jobradar.yaml.
//   - Serve: go run ./cmd/jobradar serve -config jobradar.yaml; the server listens on the configured
//     port and shuts down cleanly on SIGTERM with the active run allowed to finish persisting.
package main
