package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/jobradar/jobradar/internal/job"
	"github.com/jobradar/jobradar/internal/ratelimit"
)

// AdzunaSource is the display label for postings collected from Adzuna.
const AdzunaSource = "Adzuna API"

const adzunaBaseURL = "https://api.adzuna.com/v1/api/jobs"

// adzunaCountryCodes maps profile country buckets to Adzuna API country
// segments. Buckets without a code (remote) are not queryable.
var adzunaCountryCodes = map[string]string{
	"switzerland": "ch",
	"france":      "fr",
}

// AdzunaAdapter queries the Adzuna search API, one request per
// (keyword, country) pair using each country's first configured place.
type AdzunaAdapter struct {
	client         *http.Client
	baseURL        string
	creds          job.Credentials
	limiter        *ratelimit.Limiter
	logger         *zap.Logger
	archive        *archiver
	maxKeywords    int
	resultsPerPage int
}

// AdzunaConfig carries the operational settings for the adapter.
type AdzunaConfig struct {
	BaseURL        string
	MaxKeywords    int
	ResultsPerPage int
}

func NewAdzuna(cfg AdzunaConfig, creds job.Credentials, limiter *ratelimit.Limiter, blobs job.BlobStore, clock job.Clock, logger *zap.Logger) *AdzunaAdapter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = adzunaBaseURL
	}
	maxKeywords := cfg.MaxKeywords
	if maxKeywords <= 0 {
		maxKeywords = 3
	}
	perPage := cfg.ResultsPerPage
	if perPage <= 0 {
		perPage = 20
	}
	return &AdzunaAdapter{
		client:         &http.Client{Timeout: requestTimeout},
		baseURL:        baseURL,
		creds:          creds,
		limiter:        limiter,
		logger:         logger.Named("adzuna"),
		archive:        newArchiver(blobs, clock, logger),
		maxKeywords:    maxKeywords,
		resultsPerPage: perPage,
	}
}

func (a *AdzunaAdapter) Source() string { return AdzunaSource }

// Fetch issues one search per (keyword, country). When the API credentials
// are not configured the source is skipped outright, before any network
// call. Individual request failures are logged and contribute nothing.
func (a *AdzunaAdapter) Fetch(ctx context.Context, profile job.Profile) Result {
	appID, okID := a.creds.Get("adzuna_app_id")
	appKey, okKey := a.creds.Get("adzuna_app_key")
	if !okID || !okKey {
		a.logger.Warn("credentials not configured, skipping source")
		return Result{Source: AdzunaSource, Skipped: true}
	}

	keywords := profile.Keywords
	if len(keywords) > a.maxKeywords {
		keywords = keywords[:a.maxKeywords]
	}

	var (
		candidates []job.Candidate
		lastErr    error
	)
	for _, keyword := range keywords {
		for _, country := range profile.Locations {
			code, ok := adzunaCountryCodes[country.Country]
			if !ok || len(country.Places) == 0 {
				continue
			}
			found, err := a.search(ctx, appID, appKey, code, keyword, country.Places[0])
			if err != nil {
				if ctx.Err() != nil {
					return Result{Source: AdzunaSource, Candidates: candidates, Err: ctx.Err()}
				}
				a.logger.Warn("search failed",
					zap.String("keyword", keyword),
					zap.String("country", code),
					zap.Error(err),
				)
				lastErr = err
				continue
			}
			candidates = append(candidates, found...)
		}
	}

	res := Result{Source: AdzunaSource, Candidates: candidates}
	if len(candidates) == 0 && lastErr != nil {
		res.Err = lastErr
	}
	return res
}

func (a *AdzunaAdapter) search(ctx context.Context, appID, appKey, countryCode, keyword, place string) ([]job.Candidate, error) {
	if err := a.limiter.Wait(ctx, AdzunaSource); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/%s/search/1", a.baseURL, countryCode)
	params := url.Values{
		"app_id":           {appID},
		"app_key":          {appKey},
		"what":             {keyword},
		"where":            {place},
		"results_per_page": {strconv.Itoa(a.resultsPerPage)},
		"sort_by":          {"date"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build adzuna request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("adzuna request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("adzuna status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read adzuna response: %w", err)
	}
	a.archive.put(ctx, AdzunaSource, "application/json", body)

	var payload struct {
		Results []struct {
			Title   string `json:"title"`
			Company struct {
				DisplayName string `json:"display_name"`
			} `json:"company"`
			Location struct {
				DisplayName string `json:"display_name"`
			} `json:"location"`
			Description string   `json:"description"`
			RedirectURL string   `json:"redirect_url"`
			SalaryMin   *float64 `json:"salary_min"`
			SalaryMax   *float64 `json:"salary_max"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode adzuna response: %w", err)
	}

	candidates := make([]job.Candidate, 0, len(payload.Results))
	for _, r := range payload.Results {
		candidates = append(candidates, job.Candidate{
			Title:       r.Title,
			Company:     r.Company.DisplayName,
			Location:    r.Location.DisplayName,
			SalaryMin:   r.SalaryMin,
			SalaryMax:   r.SalaryMax,
			Description: r.Description,
			URL:         r.RedirectURL,
		})
	}
	return candidates, nil
}
