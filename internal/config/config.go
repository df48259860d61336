// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jobradar/jobradar/internal/job"
	"github.com/jobradar/jobradar/internal/score"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Profile   ProfileConfig   `mapstructure:"profile"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Database  DBConfig        `mapstructure:"database"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Secrets   SecretsConfig   `mapstructure:"secrets"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ProfileConfig captures the user's search preferences as written in
// configuration. Locations are free-text strings ("Genève, Suisse",
// "Télétravail") and are bucketed by country when the runtime profile is
// built.
type ProfileConfig struct {
	Keywords  []string `mapstructure:"keywords"`
	Locations []string `mapstructure:"locations"`
	Skills    string   `mapstructure:"skills"`
	SalaryMin int      `mapstructure:"salary_min"`
	SalaryMax int      `mapstructure:"salary_max"`
	RemoteOK  bool     `mapstructure:"remote_ok"`
}

// Build resolves the configured profile into its runtime form, classifying
// the free-text locations into prioritized per-country place lists.
func (p ProfileConfig) Build() job.Profile {
	return job.Profile{
		Keywords:  p.Keywords,
		Locations: score.ClassifyLocations(p.Locations),
		Skills:    p.Skills,
		SalaryMin: p.SalaryMin,
		SalaryMax: p.SalaryMax,
		RemoteOK:  p.RemoteOK,
	}
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// PipelineConfig governs driver behavior.
type PipelineConfig struct {
	Workers int `mapstructure:"workers"`
}

// SourcesConfig holds per-adapter settings.
type SourcesConfig struct {
	Adzuna    AdzunaConfig    `mapstructure:"adzuna"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Page      PageConfig      `mapstructure:"page"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
}

// AdzunaConfig configures the keyed Adzuna API adapter.
type AdzunaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BaseURL        string `mapstructure:"base_url"`
	MaxKeywords    int    `mapstructure:"max_keywords"`
	ResultsPerPage int    `mapstructure:"results_per_page"`
}

// FeedConfig configures the RSS feed adapter.
type FeedConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Scheme  string `mapstructure:"scheme"`
	Limit   int    `mapstructure:"limit"`
}

// PageConfig configures the HTML page adapter.
type PageConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Seeds   []string `mapstructure:"seeds"`
}

// DiscoveryConfig configures the headless search-discovery subsystem.
type DiscoveryConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	SearchURL        string `mapstructure:"search_url"`
	MaxQueries       int    `mapstructure:"max_queries"`
	MaxPerQuery      int    `mapstructure:"max_per_query"`
	QueryTimeoutSecs int    `mapstructure:"query_timeout_seconds"`
	UserAgent        string `mapstructure:"user_agent"`
}

// QueryTimeout returns the per-query budget as a duration.
func (c DiscoveryConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSecs) * time.Second
}

// SourceRate is a per-source pacing override.
type SourceRate struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// RateLimitConfig controls outbound request pacing per source.
type RateLimitConfig struct {
	DefaultRPS   float64               `mapstructure:"default_rps"`
	DefaultBurst int                   `mapstructure:"default_burst"`
	Overrides    map[string]SourceRate `mapstructure:"overrides"`
}

// DBConfig controls the posting and run store.
type DBConfig struct {
	Backend       string `mapstructure:"backend"`
	DSN           string `mapstructure:"dsn"`
	PostingsTable string `mapstructure:"postings_table"`
	RunsTable     string `mapstructure:"runs_table"`
	MaxConns      int32  `mapstructure:"max_conns"`
	MinConns      int32  `mapstructure:"min_conns"`
}

// ArchiveConfig controls where raw source payloads are archived.
type ArchiveConfig struct {
	Backend   string `mapstructure:"backend"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// PubSubConfig holds metadata for run-completion notifications.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// SecretsConfig points at the optional .env file holding API credentials.
type SecretsConfig struct {
	EnvFile string `mapstructure:"env_file"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("JOBRADAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("pipeline.workers", 3)
	v.SetDefault("sources.adzuna.enabled", true)
	v.SetDefault("sources.adzuna.max_keywords", 3)
	v.SetDefault("sources.adzuna.results_per_page", 20)
	v.SetDefault("sources.feed.enabled", true)
	v.SetDefault("sources.feed.scheme", "https")
	v.SetDefault("sources.feed.limit", 20)
	v.SetDefault("sources.page.enabled", true)
	v.SetDefault("sources.discovery.enabled", false)
	v.SetDefault("sources.discovery.max_queries", 10)
	v.SetDefault("sources.discovery.max_per_query", 25)
	v.SetDefault("sources.discovery.query_timeout_seconds", 30)
	v.SetDefault("ratelimit.default_rps", 1.0)
	v.SetDefault("ratelimit.default_burst", 1)
	v.SetDefault("database.backend", "memory")
	v.SetDefault("database.postings_table", "jobs")
	v.SetDefault("database.runs_table", "pipeline_runs")
	v.SetDefault("archive.backend", "memory")
	v.SetDefault("secrets.env_file", ".env")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("pipeline.workers must be > 0")
	}
	if len(c.Profile.Keywords) == 0 {
		return fmt.Errorf("profile.keywords must not be empty")
	}
	switch c.Database.Backend {
	case "memory":
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn must be set for the postgres backend")
		}
	default:
		return fmt.Errorf("database.backend must be %q or %q", "memory", "postgres")
	}
	switch c.Archive.Backend {
	case "memory":
	case "local":
		if c.Archive.BaseDir == "" {
			return fmt.Errorf("archive.base_dir must be set for the local backend")
		}
	case "gcs":
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket must be set for the gcs backend")
		}
	default:
		return fmt.Errorf("archive.backend must be %q, %q, or %q", "memory", "local", "gcs")
	}
	if c.PubSub.Enabled {
		if c.PubSub.ProjectID == "" || c.PubSub.Topic == "" {
			return fmt.Errorf("pubsub.project_id and pubsub.topic must be set when pubsub is enabled")
		}
	}
	return nil
}
