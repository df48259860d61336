package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sha256hash "github.com/jobradar/jobradar/internal/hash/sha256"
	"github.com/jobradar/jobradar/internal/job"
)

func TestDedupeKeepsFirstOccurrence(t *testing.T) {
	d := New(sha256hash.New())

	postings := []job.Posting{
		{Title: "Backend Engineer", Company: "Acme", Location: "Genève", Source: "Indeed RSS", URL: "https://a.example/1"},
		{Title: "backend  engineer", Company: "ACME", Location: "genève", Source: "Adzuna API", URL: "https://b.example/9"},
		{Title: "Backend Engineer", Company: "Globex", Location: "Genève", Source: "Adzuna API", URL: "https://b.example/10"},
	}

	unique := d.Dedupe(postings)

	require.Len(t, unique, 2)
	assert.Equal(t, "Indeed RSS", unique[0].Source)
	assert.Equal(t, "Globex", unique[1].Company)
}

func TestDedupeIsIdempotent(t *testing.T) {
	d := New(sha256hash.New())

	postings := []job.Posting{
		{Title: "Dev", Company: "Acme", Location: "Lyon"},
		{Title: "Dev", Company: "Acme", Location: "Lyon"},
		{Title: "Dev", Company: "Acme", Location: "Paris"},
	}

	once := d.Dedupe(postings)
	twice := d.Dedupe(once)

	assert.Equal(t, once, twice)
}

func TestDedupeEmptyInput(t *testing.T) {
	d := New(sha256hash.New())

	assert.Empty(t, d.Dedupe(nil))
	assert.Empty(t, d.Dedupe([]job.Posting{}))
}

func TestFingerprintIgnoresNonIdentityFields(t *testing.T) {
	d := New(sha256hash.New())

	a := d.Fingerprint(job.Posting{Title: "Dev", Company: "Acme", Location: "Lyon", URL: "https://a.example/1", Source: "Indeed RSS"})
	b := d.Fingerprint(job.Posting{Title: "Dev", Company: "Acme", Location: "Lyon", URL: "https://b.example/2", Source: "Adzuna API", Score: 72})

	assert.Equal(t, a, b)
}
