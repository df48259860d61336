package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/jobradar/jobradar/internal/job"
	"github.com/jobradar/jobradar/internal/ratelimit"
)

// PageSource is the display label for postings scraped from individual
// job pages.
const PageSource = "Site Web"

const pageUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0 Safari/537.36"

// Discoverer yields additional page URLs for a profile, typically from
// search-engine harvesting.
type Discoverer interface {
	Discover(ctx context.Context, profile job.Profile) ([]string, error)
}

// PageAdapter scrapes individual job pages, routing each URL through a
// domain-specific extraction strategy. URLs come from configured seeds plus
// an optional Discoverer.
type PageAdapter struct {
	base     *colly.Collector
	seeds    []string
	discover Discoverer
	limiter  *ratelimit.Limiter
	logger   *zap.Logger
	archive  *archiver
}

func NewPage(seeds []string, discover Discoverer, limiter *ratelimit.Limiter, blobs job.BlobStore, clock job.Clock, logger *zap.Logger) *PageAdapter {
	base := colly.NewCollector(colly.UserAgent(pageUserAgent))
	base.AllowURLRevisit = false
	base.SetRequestTimeout(requestTimeout)

	return &PageAdapter{
		base:     base,
		seeds:    seeds,
		discover: discover,
		limiter:  limiter,
		logger:   logger.Named("page"),
		archive:  newArchiver(blobs, clock, logger),
	}
}

func (p *PageAdapter) Source() string { return PageSource }

// Fetch scrapes every known page URL. A page that fails to load or yields
// no title is logged and skipped; the rest of the batch continues.
func (p *PageAdapter) Fetch(ctx context.Context, profile job.Profile) Result {
	urls := p.collectURLs(ctx, profile)
	if len(urls) == 0 {
		return Result{Source: PageSource}
	}

	var (
		candidates []job.Candidate
		lastErr    error
	)
	for _, pageURL := range urls {
		if ctx.Err() != nil {
			return Result{Source: PageSource, Candidates: candidates, Err: ctx.Err()}
		}
		c, err := p.scrape(ctx, pageURL)
		if err != nil {
			p.logger.Warn("page scrape failed", zap.String("url", pageURL), zap.Error(err))
			lastErr = err
			continue
		}
		candidates = append(candidates, c)
	}

	res := Result{Source: PageSource, Candidates: candidates}
	if len(candidates) == 0 && lastErr != nil {
		res.Err = lastErr
	}
	return res
}

// collectURLs merges configured seeds with discovered URLs, dropping
// repeats while preserving order. Discovery failures degrade to seeds only.
func (p *PageAdapter) collectURLs(ctx context.Context, profile job.Profile) []string {
	urls := append([]string(nil), p.seeds...)
	if p.discover != nil {
		found, err := p.discover.Discover(ctx, profile)
		if err != nil {
			p.logger.Warn("discovery failed, using seeds only", zap.Error(err))
		} else {
			urls = append(urls, found...)
		}
	}

	seen := make(map[string]struct{}, len(urls))
	unique := urls[:0]
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		unique = append(unique, u)
	}
	return unique
}

func (p *PageAdapter) scrape(ctx context.Context, pageURL string) (job.Candidate, error) {
	if err := p.limiter.Wait(ctx, PageSource); err != nil {
		return job.Candidate{}, err
	}

	body, err := p.fetchPage(pageURL)
	if err != nil {
		return job.Candidate{}, err
	}
	p.archive.put(ctx, PageSource, "text/html", body)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return job.Candidate{}, fmt.Errorf("parse page: %w", err)
	}

	host := ""
	if u, err := url.Parse(pageURL); err == nil {
		host = u.Hostname()
	}
	candidate, ok := strategyFor(host).extract(doc, pageURL)
	if !ok {
		return job.Candidate{}, fmt.Errorf("no title found on %s", pageURL)
	}
	return candidate, nil
}

// fetchPage loads one URL through a fresh collector clone so per-request
// handlers never leak across calls.
func (p *PageAdapter) fetchPage(pageURL string) ([]byte, error) {
	collector := p.base.Clone()

	var (
		once     sync.Once
		body     []byte
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		once.Do(func() {
			if r.StatusCode != 200 || len(r.Body) == 0 {
				fetchErr = fmt.Errorf("page status %d", r.StatusCode)
				return
			}
			body = append([]byte{}, r.Body...)
		})
	})
	collector.OnError(func(_ *colly.Response, err error) {
		once.Do(func() {
			if err == nil {
				err = errors.New("unknown collector error")
			}
			fetchErr = err
		})
	})

	if err := collector.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("visit %s: %w", pageURL, err)
	}
	collector.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}
	if body == nil {
		return nil, errors.New("collector produced no response")
	}
	return body, nil
}
