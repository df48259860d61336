package adapter

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/jobradar/jobradar/internal/job"
	"github.com/jobradar/jobradar/internal/normalize"
	"github.com/jobradar/jobradar/internal/ratelimit"
)

// FeedSource is the display label for postings collected from Indeed RSS.
const FeedSource = "Indeed RSS"

// feedHosts maps profile country buckets to the Indeed feed host serving
// that country.
var feedHosts = map[string]string{
	"switzerland": "ch.indeed.com",
	"france":      "fr.indeed.com",
}

// The upstream feed emits literal ampersands inside titles and descriptions
// without escaping them, which breaks strict XML parsing. numericEntity
// repairs the over-escaping of numeric character references.
var numericEntity = regexp.MustCompile(`&amp;(#[0-9]+;)`)

var markupTag = regexp.MustCompile(`<[^>]+>`)

// FeedAdapter pulls the Indeed RSS feed, one request per (keyword, place)
// over every configured country host.
type FeedAdapter struct {
	client  *http.Client
	scheme  string
	hosts   map[string]string
	limiter *ratelimit.Limiter
	logger  *zap.Logger
	archive *archiver
	limit   int
}

// FeedConfig carries the operational settings for the adapter. Hosts
// overrides the country host table, used by tests to point at a local
// server.
type FeedConfig struct {
	Scheme string
	Hosts  map[string]string
	Limit  int
}

func NewFeed(cfg FeedConfig, limiter *ratelimit.Limiter, blobs job.BlobStore, clock job.Clock, logger *zap.Logger) *FeedAdapter {
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "https"
	}
	hosts := cfg.Hosts
	if hosts == nil {
		hosts = feedHosts
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = 20
	}
	return &FeedAdapter{
		client:  &http.Client{Timeout: requestTimeout},
		scheme:  scheme,
		hosts:   hosts,
		limiter: limiter,
		logger:  logger.Named("feed"),
		archive: newArchiver(blobs, clock, logger),
		limit:   limit,
	}
}

func (f *FeedAdapter) Source() string { return FeedSource }

// Fetch walks (keyword, place) pairs per country feed host. A failed or
// malformed feed contributes nothing; remaining pairs continue.
func (f *FeedAdapter) Fetch(ctx context.Context, profile job.Profile) Result {
	var (
		candidates []job.Candidate
		lastErr    error
	)
	for _, country := range profile.Locations {
		host, ok := f.hosts[country.Country]
		if !ok {
			continue
		}
		for _, keyword := range profile.Keywords {
			for _, place := range country.Places {
				found, err := f.fetchFeed(ctx, host, keyword, place)
				if err != nil {
					if ctx.Err() != nil {
						return Result{Source: FeedSource, Candidates: candidates, Err: ctx.Err()}
					}
					f.logger.Warn("feed fetch failed",
						zap.String("host", host),
						zap.String("keyword", keyword),
						zap.String("place", place),
						zap.Error(err),
					)
					lastErr = err
					continue
				}
				candidates = append(candidates, found...)
			}
		}
	}

	res := Result{Source: FeedSource, Candidates: candidates}
	if len(candidates) == 0 && lastErr != nil {
		res.Err = lastErr
	}
	return res
}

func (f *FeedAdapter) fetchFeed(ctx context.Context, host, keyword, place string) ([]job.Candidate, error) {
	if err := f.limiter.Wait(ctx, FeedSource); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	params := url.Values{
		"q":     {keyword},
		"l":     {place},
		"sort":  {"date"},
		"limit": {fmt.Sprintf("%d", f.limit)},
	}
	feedURL := fmt.Sprintf("%s://%s/rss?%s", f.scheme, host, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed status %d", resp.StatusCode)
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "xml") {
		return nil, fmt.Errorf("feed content type %q is not xml", contentType)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read feed response: %w", err)
	}
	f.archive.put(ctx, FeedSource, "application/xml", body)

	return parseFeed(body)
}

type feedItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Location    string `xml:"location"`
}

type feedDocument struct {
	Channel struct {
		Items []feedItem `xml:"item"`
	} `xml:"channel"`
}

func parseFeed(body []byte) ([]job.Candidate, error) {
	var doc feedDocument
	if err := xml.Unmarshal([]byte(escapeBareAmpersands(string(body))), &doc); err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	var candidates []job.Candidate
	for _, item := range doc.Channel.Items {
		c, ok := parseFeedItem(item)
		if !ok {
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// parseFeedItem converts one feed entry. The feed embeds the company in the
// title as "<posting title> - <company>"; the split is on the last
// occurrence so hyphenated titles survive.
func parseFeedItem(item feedItem) (job.Candidate, bool) {
	title := strings.TrimSpace(item.Title)
	link := strings.TrimSpace(item.Link)
	if title == "" || link == "" {
		return job.Candidate{}, false
	}

	company := ""
	if idx := strings.LastIndex(title, " - "); idx > 0 {
		company = strings.TrimSpace(title[idx+3:])
		title = strings.TrimSpace(title[:idx])
	}

	return job.Candidate{
		Title:       title,
		Company:     company,
		Location:    strings.TrimSpace(item.Location),
		Description: normalize.Truncate(cleanFeedText(item.Description), normalize.MaxDescriptionRunes),
		URL:         link,
	}, true
}

// escapeBareAmpersands rewrites every "&" that does not start a known
// entity to "&amp;" so the strict XML decoder accepts the document.
func escapeBareAmpersands(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	for _, entity := range []string{"amp", "lt", "gt", "quot", "apos"} {
		s = strings.ReplaceAll(s, "&amp;"+entity+";", "&"+entity+";")
	}
	return numericEntity.ReplaceAllString(s, "&$1")
}

// cleanFeedText strips markup tags and the handful of HTML entities the
// feed leaves in description bodies.
func cleanFeedText(s string) string {
	s = markupTag.ReplaceAllString(s, "")
	replacer := strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&amp;", "&",
		"&quot;", `"`,
		"&#39;", "'",
	)
	return strings.TrimSpace(replacer.Replace(s))
}
