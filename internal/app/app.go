// Package app builds and holds the long-lived application services.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/jobradar/jobradar/internal/adapter"
	"github.com/jobradar/jobradar/internal/api"
	systemclock "github.com/jobradar/jobradar/internal/clock/system"
	"github.com/jobradar/jobradar/internal/config"
	"github.com/jobradar/jobradar/internal/dedupe"
	"github.com/jobradar/jobradar/internal/discovery"
	sha256hash "github.com/jobradar/jobradar/internal/hash/sha256"
	uuidgen "github.com/jobradar/jobradar/internal/id/uuid"
	"github.com/jobradar/jobradar/internal/job"
	"github.com/jobradar/jobradar/internal/logging"
	"github.com/jobradar/jobradar/internal/metrics"
	"github.com/jobradar/jobradar/internal/pipeline"
	"github.com/jobradar/jobradar/internal/progress"
	progresssinks "github.com/jobradar/jobradar/internal/progress/sinks"
	memorypublisher "github.com/jobradar/jobradar/internal/publisher/memory"
	gcppublisher "github.com/jobradar/jobradar/internal/publisher/pubsub"
	"github.com/jobradar/jobradar/internal/ratelimit"
	"github.com/jobradar/jobradar/internal/secrets"
	gcsstorage "github.com/jobradar/jobradar/internal/storage/gcs"
	localstorage "github.com/jobradar/jobradar/internal/storage/local"
	memorystorage "github.com/jobradar/jobradar/internal/storage/memory"
	pgstore "github.com/jobradar/jobradar/internal/storage/postgres"
)

// App contains the application's dependencies.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	apiServer *api.Server
	service   *pipeline.Service
	hub       *progress.Hub
	searcher  *discovery.Searcher

	store        job.Store
	pubsubClient *pubsub.Client
	gcsClient    *storage.Client
	publisher    *gcppublisher.Publisher
}

// Service exposes the run service for CLI use.
func (a *App) Service() *pipeline.Service {
	return a.service
}

// Logger exposes the root logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Build creates the application's dependencies from configuration.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	metrics.Init()

	a := &App{cfg: cfg, logger: logger}
	logger.Info("building application dependencies",
		zap.Int("port", cfg.Server.Port),
		zap.Strings("keywords", cfg.Profile.Keywords),
	)

	creds := secrets.NewLookup(cfg.Secrets.EnvFile, logger)
	limiter := buildLimiter(cfg.RateLimit)

	blobs, err := a.setupArchive(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.setupDatabase(ctx); err != nil {
		return nil, err
	}
	publisher, err := a.setupPublisher(ctx)
	if err != nil {
		return nil, err
	}
	emitter, err := a.setupProgress()
	if err != nil {
		return nil, err
	}

	adapters, err := a.setupAdapters(creds, limiter, blobs)
	if err != nil {
		return nil, err
	}

	driver := pipeline.NewDriver(
		pipeline.Config{Workers: cfg.Pipeline.Workers},
		adapters,
		dedupe.New(sha256hash.New()),
		systemclock.New(),
		uuidgen.NewGenerator(),
		emitter,
		logger,
	)
	a.service = pipeline.NewService(driver, a.store, publisher, cfg.PubSub.Topic, cfg.Profile.Build(), logger)
	a.apiServer = api.NewServer(a.service, a.store, logger)

	return a, nil
}

// Run starts the HTTP server and blocks until the context is canceled or a
// termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	a.service.Wait()

	return a.Close(shutdownCtx)
}

// Close gracefully shuts down all services.
func (a *App) Close(ctx context.Context) error {
	if a.hub != nil {
		if err := a.hub.Close(ctx); err != nil {
			a.logger.Warn("progress hub close failed", zap.Error(err))
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("pubsub publisher close failed", zap.Error(err))
		}
	} else if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.searcher != nil {
		if err := a.searcher.Close(); err != nil {
			a.logger.Warn("discovery close failed", zap.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("store close failed", zap.Error(err))
		}
	}
	if err := a.logger.Sync(); err != nil {
		a.logger.Warn("logger sync failed", zap.Error(err))
	}
	a.logger.Info("shutdown complete")
	return nil
}

func buildLimiter(cfg config.RateLimitConfig) *ratelimit.Limiter {
	overrides := make(map[string]ratelimit.Config, len(cfg.Overrides))
	for source, rate := range cfg.Overrides {
		overrides[source] = ratelimit.Config{RPS: rate.RPS, Burst: rate.Burst}
	}
	return ratelimit.New(ratelimit.Config{RPS: cfg.DefaultRPS, Burst: cfg.DefaultBurst}, overrides)
}

func (a *App) setupArchive(ctx context.Context) (job.BlobStore, error) {
	switch a.cfg.Archive.Backend {
	case "gcs":
		a.logger.Info("using GCS archive backend", zap.String("bucket", a.cfg.Archive.GCSBucket))
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		a.gcsClient = client
		blobs, err := gcsstorage.New(client, gcsstorage.Config{Bucket: a.cfg.Archive.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		return blobs, nil
	case "local":
		a.logger.Info("using local archive backend", zap.String("base_dir", a.cfg.Archive.BaseDir))
		blobs, err := localstorage.New(localstorage.Config{BaseDir: a.cfg.Archive.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		return blobs, nil
	default:
		a.logger.Info("using in-memory archive backend")
		return memorystorage.NewBlobStore(), nil
	}
}

func (a *App) setupDatabase(ctx context.Context) error {
	if a.cfg.Database.Backend != "postgres" {
		a.logger.Info("using in-memory posting store")
		a.store = memorystorage.NewStore()
		return nil
	}
	store, err := pgstore.New(ctx, pgstore.Config{
		DSN:           a.cfg.Database.DSN,
		PostingsTable: a.cfg.Database.PostingsTable,
		RunsTable:     a.cfg.Database.RunsTable,
		MaxConns:      a.cfg.Database.MaxConns,
		MinConns:      a.cfg.Database.MinConns,
	})
	if err != nil {
		return fmt.Errorf("postgres store init failed: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("postgres migrate failed: %w", err)
	}
	a.logger.Info("postgres store initialized",
		zap.String("postings_table", a.cfg.Database.PostingsTable),
		zap.String("runs_table", a.cfg.Database.RunsTable),
	)
	a.store = store
	return nil
}

func (a *App) setupPublisher(ctx context.Context) (job.Publisher, error) {
	if !a.cfg.PubSub.Enabled {
		a.logger.Info("pubsub disabled, using in-memory publisher")
		return memorypublisher.New(), nil
	}
	client, err := pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	a.pubsubClient = client
	publisher, err := gcppublisher.New(client)
	if err != nil {
		return nil, fmt.Errorf("pubsub publisher init failed: %w", err)
	}
	a.publisher = publisher
	a.logger.Info("pubsub publisher initialized",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.Topic),
	)
	return publisher, nil
}

func (a *App) setupProgress() (progress.Emitter, error) {
	sinkList := []progress.Sink{
		progresssinks.NewLogSink(a.logger.Named("progress_log")),
	}
	promSink, err := progresssinks.NewPrometheusSink(nil)
	if err != nil {
		return nil, fmt.Errorf("prometheus sink init failed: %w", err)
	}
	sinkList = append(sinkList, promSink)
	if repo, ok := a.store.(progresssinks.RunRepository); ok {
		sinkList = append(sinkList, progresssinks.NewStoreSink(repo, a.logger.Named("progress_store")))
	}

	a.hub = progress.NewHub(progress.Config{Logger: a.logger.Named("progress_hub")}, sinkList...)
	a.logger.Info("progress hub initialized", zap.Int("sinks", len(sinkList)))
	return a.hub, nil
}

func (a *App) setupAdapters(creds job.Credentials, limiter *ratelimit.Limiter, blobs job.BlobStore) ([]adapter.Adapter, error) {
	var adapters []adapter.Adapter

	if a.cfg.Sources.Adzuna.Enabled {
		adapters = append(adapters, adapter.NewAdzuna(adapter.AdzunaConfig{
			BaseURL:        a.cfg.Sources.Adzuna.BaseURL,
			MaxKeywords:    a.cfg.Sources.Adzuna.MaxKeywords,
			ResultsPerPage: a.cfg.Sources.Adzuna.ResultsPerPage,
		}, creds, limiter, blobs, systemclock.New(), a.logger))
	}
	if a.cfg.Sources.Feed.Enabled {
		adapters = append(adapters, adapter.NewFeed(adapter.FeedConfig{
			Scheme: a.cfg.Sources.Feed.Scheme,
			Limit:  a.cfg.Sources.Feed.Limit,
		}, limiter, blobs, systemclock.New(), a.logger))
	}
	if a.cfg.Sources.Page.Enabled {
		searcher, err := discovery.New(discovery.Config{
			Enabled:      a.cfg.Sources.Discovery.Enabled,
			SearchURL:    a.cfg.Sources.Discovery.SearchURL,
			MaxQueries:   a.cfg.Sources.Discovery.MaxQueries,
			MaxPerQuery:  a.cfg.Sources.Discovery.MaxPerQuery,
			QueryTimeout: a.cfg.Sources.Discovery.QueryTimeout(),
			UserAgent:    a.cfg.Sources.Discovery.UserAgent,
		}, a.logger)
		if err != nil {
			a.logger.Warn("discovery init failed, page adapter runs from seeds", zap.Error(err))
		}
		a.searcher = searcher
		var discoverer adapter.Discoverer
		if searcher != nil {
			discoverer = searcher
		}
		adapters = append(adapters, adapter.NewPage(a.cfg.Sources.Page.Seeds, discoverer, limiter, blobs, systemclock.New(), a.logger))
	}

	if len(adapters) == 0 {
		return nil, errors.New("no sources enabled")
	}
	a.logger.Info("adapters configured", zap.Int("count", len(adapters)))
	return adapters, nil
}
