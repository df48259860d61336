package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	systemclock "github.com/jobradar/jobradar/internal/clock/system"
	"github.com/jobradar/jobradar/internal/job"
	"github.com/jobradar/jobradar/internal/ratelimit"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Emplois</title>
<item>
<title>Développeur Go - Acme Conseil &amp; Associés</title>
<link>https://ch.indeed.example/viewjob?jk=1</link>
<description>&lt;b&gt;Go &amp; Kubernetes&lt;/b&gt; pour une équipe R&D à Genève</description>
<location>Genève, GE</location>
</item>
<item>
<title></title>
<link>https://ch.indeed.example/viewjob?jk=broken</link>
</item>
<item>
<title>Site Reliability Engineer</title>
<link>https://ch.indeed.example/viewjob?jk=2</link>
<description>On-call &amp; automation</description>
</item>
</channel>
</rss>`

func newTestFeed(t *testing.T, srvURL string) *FeedAdapter {
	t.Helper()
	return NewFeed(
		FeedConfig{
			Scheme: "http",
			Hosts:  map[string]string{"switzerland": strings.TrimPrefix(srvURL, "http://")},
		},
		ratelimit.New(ratelimit.Config{}, nil),
		nil,
		systemclock.New(),
		zap.NewNop(),
	)
}

func TestFeedFetchParsesItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rss", r.URL.Path)
		assert.Equal(t, "développeur", r.URL.Query().Get("q"))
		assert.Equal(t, "geneva", r.URL.Query().Get("l"))

		w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	f := newTestFeed(t, srv.URL)

	res := f.Fetch(context.Background(), testFeedProfile())

	require.NoError(t, res.Err)
	// The empty-title item is dropped, the rest of the feed survives.
	require.Len(t, res.Candidates, 2)

	first := res.Candidates[0]
	assert.Equal(t, "Développeur Go", first.Title)
	assert.Equal(t, "Acme Conseil & Associés", first.Company)
	assert.Equal(t, "Genève, GE", first.Location)
	assert.Equal(t, "https://ch.indeed.example/viewjob?jk=1", first.URL)
	// Markup is stripped and the bare "R&D" ampersand survived parsing.
	assert.Equal(t, "Go & Kubernetes pour une équipe R&D à Genève", first.Description)

	second := res.Candidates[1]
	assert.Equal(t, "Site Reliability Engineer", second.Title)
	assert.Empty(t, second.Company)
}

func TestFeedFetchRejectsNonXMLContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>blocked</html>"))
	}))
	defer srv.Close()

	f := newTestFeed(t, srv.URL)

	res := f.Fetch(context.Background(), testFeedProfile())

	assert.Empty(t, res.Candidates)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "not xml")
}

func TestFeedFetchSkipsUnknownCountries(t *testing.T) {
	f := newTestFeed(t, "http://unused.invalid")

	profile := testFeedProfile()
	profile.Locations[0].Country = "remote"

	res := f.Fetch(context.Background(), profile)

	assert.Empty(t, res.Candidates)
	assert.NoError(t, res.Err)
}

func TestEscapeBareAmpersands(t *testing.T) {
	in := `R&D &amp; fun &lt;tag&gt; &#233;t&#233; & more`
	want := `R&amp;D &amp; fun &lt;tag&gt; &#233;t&#233; &amp; more`

	assert.Equal(t, want, escapeBareAmpersands(in))
}

func TestParseFeedItemSplitsOnLastDelimiter(t *testing.T) {
	c, ok := parseFeedItem(feedItem{
		Title: "Ingénieur DevOps - CI/CD - Globex Industries",
		Link:  "https://fr.indeed.example/viewjob?jk=3",
	})

	require.True(t, ok)
	assert.Equal(t, "Ingénieur DevOps - CI/CD", c.Title)
	assert.Equal(t, "Globex Industries", c.Company)
}

func testFeedProfile() job.Profile {
	return job.Profile{
		Keywords: []string{"développeur"},
		Locations: []job.CountryPlaces{
			{Country: "switzerland", Places: []string{"geneva"}},
		},
	}
}
