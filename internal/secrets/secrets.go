// Package secrets resolves per-service API credentials from the environment.
package secrets

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// envKeys maps logical service names to environment variables. Adapters ask
// for services by the lowercase name, never by raw env var.
var envKeys = map[string]string{
	"adzuna_app_id":  "ADZUNA_APP_ID",
	"adzuna_app_key": "ADZUNA_APP_KEY",
	"rapidapi_key":   "RAPIDAPI_KEY",
	"github":         "GITHUB_TOKEN",
	"linkedin":       "LINKEDIN_API_KEY",
}

// Lookup implements job.Credentials over process environment variables,
// optionally seeded from a .env file.
type Lookup struct {
	getenv func(string) string
}

// NewLookup loads the optional .env file and returns a Lookup backed by the
// process environment. A missing .env file is not an error.
func NewLookup(envPath string, logger *zap.Logger) *Lookup {
	if logger == nil {
		logger = zap.NewNop()
	}
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			if os.IsNotExist(err) {
				logger.Info("no .env file found; using process environment", zap.String("path", envPath))
			} else {
				logger.Warn("failed to load .env file", zap.String("path", envPath), zap.Error(err))
			}
		} else {
			logger.Info("environment variables loaded", zap.String("path", envPath))
		}
	}
	return &Lookup{getenv: os.Getenv}
}

// NewLookupFromFunc builds a Lookup over an arbitrary resolver (for tests).
func NewLookupFromFunc(getenv func(string) string) *Lookup {
	return &Lookup{getenv: getenv}
}

// Get returns the credential for a service and whether it is configured.
func (l *Lookup) Get(service string) (string, bool) {
	envVar, ok := envKeys[strings.ToLower(service)]
	if !ok {
		return "", false
	}
	val := strings.TrimSpace(l.getenv(envVar))
	if val == "" {
		return "", false
	}
	return val, true
}

// Has reports whether a non-empty credential exists for the service.
func (l *Lookup) Has(service string) bool {
	_, ok := l.Get(service)
	return ok
}
