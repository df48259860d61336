// Package discovery harvests job page URLs from search-engine result pages
// with a headless browser.
package discovery

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/jobradar/jobradar/internal/job"
)

// Config tunes the searcher. MaxQueries bounds how many result pages one
// run visits; QueryTimeout bounds one navigation.
type Config struct {
	Enabled      bool
	SearchURL    string
	MaxQueries   int
	MaxPerQuery  int
	QueryTimeout time.Duration
	UserAgent    string
}

// Searcher drives a headless browser over search result pages and collects
// anchors that look like job postings.
type Searcher struct {
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	cfg             Config
	logger          *zap.Logger
}

// New starts the browser. Callers must Close when done. A disabled config
// returns (nil, nil) and the page adapter runs from seeds alone.
func New(cfg Config, logger *zap.Logger) (*Searcher, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.SearchURL == "" {
		cfg.SearchURL = "https://duckduckgo.com/html/?q="
	}
	if cfg.MaxQueries <= 0 {
		cfg.MaxQueries = 10
	}
	if cfg.MaxPerQuery <= 0 {
		cfg.MaxPerQuery = 25
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 30 * time.Second
	}

	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocatorCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	return &Searcher{
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		cfg:             cfg,
		logger:          logger.Named("discovery"),
	}, nil
}

// Close tears down the browser and allocator contexts.
func (s *Searcher) Close() error {
	if s == nil {
		return nil
	}
	s.browserCancel()
	s.allocatorCancel()
	return nil
}

// Discover runs the built queries and returns deduplicated job page URLs.
// One failed query is logged and skipped; the rest continue.
func (s *Searcher) Discover(ctx context.Context, profile job.Profile) ([]string, error) {
	queries := BuildQueries(profile)
	if len(queries) > s.cfg.MaxQueries {
		queries = queries[:s.cfg.MaxQueries]
	}

	seen := make(map[string]struct{})
	var urls []string
	for _, query := range queries {
		if ctx.Err() != nil {
			return urls, ctx.Err()
		}
		found, err := s.searchOnce(ctx, query)
		if err != nil {
			s.logger.Warn("search query failed", zap.String("query", query), zap.Error(err))
			continue
		}
		for _, u := range found {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			urls = append(urls, u)
		}
	}

	s.logger.Info("discovery finished",
		zap.Int("queries", len(queries)),
		zap.Int("urls", len(urls)),
	)
	return urls, nil
}

func (s *Searcher) searchOnce(ctx context.Context, query string) ([]string, error) {
	runCtx, cancel := chromedp.NewContext(s.browserCtx)
	defer cancel()
	runCtx, cancelTimeout := context.WithTimeout(runCtx, s.cfg.QueryTimeout)
	defer cancelTimeout()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var nodes []*cdp.Node
	err := chromedp.Run(runCtx,
		chromedp.Navigate(s.cfg.SearchURL+url.QueryEscape(query)),
		chromedp.WaitReady("body"),
		chromedp.Nodes("a[href]", &nodes, chromedp.ByQueryAll),
	)
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}

	var urls []string
	for _, node := range nodes {
		href := node.AttributeValue("href")
		if IsJobURL(href) {
			urls = append(urls, href)
			if len(urls) >= s.cfg.MaxPerQuery {
				break
			}
		}
	}
	return urls, nil
}

// BuildQueries derives quoted search queries from the profile: one per
// (keyword, primary place), plus remote variants when the profile allows
// remote work. Student and apprenticeship listings are excluded up front.
func BuildQueries(profile job.Profile) []string {
	const exclusions = "-stage -alternance -apprentissage"

	places := profile.FlattenLocations()
	if len(places) > 4 {
		places = places[:4]
	}

	var queries []string
	for _, keyword := range profile.Keywords {
		for _, place := range places {
			queries = append(queries, fmt.Sprintf(`"%s" "emploi" "%s" %s`, keyword, place, exclusions))
		}
	}
	if profile.RemoteOK {
		keywords := profile.Keywords
		if len(keywords) > 3 {
			keywords = keywords[:3]
		}
		for _, keyword := range keywords {
			queries = append(queries, fmt.Sprintf(`"%s" "télétravail" "remote" %s`, keyword, exclusions))
		}
	}
	return queries
}

// jobDomains are hosts whose pages are job postings regardless of path.
var jobDomains = []string{
	"indeed.fr", "indeed.ch", "indeed.com",
	"linkedin.com",
	"welcometothejungle.com",
	"glassdoor.fr", "glassdoor.ch", "glassdoor.com",
	"jobs.ch",
	"jobup.ch",
	"monster.fr", "monster.ch",
	"apec.fr",
	"cadremploi.fr",
}

// jobPathKeywords mark a posting URL on an unknown host.
var jobPathKeywords = []string{
	"/job", "/jobs", "/emploi", "/offre", "/career", "/careers",
	"/recrutement", "/postes", "/opportunites",
}

// IsJobURL reports whether a discovered URL plausibly points at a job
// posting, by known host or by path keyword.
func IsJobURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return false
	}

	host := strings.ToLower(u.Hostname())
	for _, domain := range jobDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}

	path := strings.ToLower(u.Path)
	for _, kw := range jobPathKeywords {
		if strings.Contains(path, kw) {
			return true
		}
	}
	return false
}
