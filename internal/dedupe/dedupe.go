// Package dedupe removes postings that describe the same role under
// different URLs or sources.
package dedupe

import (
	"strings"

	"github.com/jobradar/jobradar/internal/job"
)

// Deduplicator drops postings whose identity fingerprint was already seen.
// Identity is the lowercased, whitespace-collapsed title, company and
// location, so the same role syndicated to several boards collapses to one
// row while genuinely distinct roles at the same company survive.
type Deduplicator struct {
	hasher job.Hasher
}

func New(hasher job.Hasher) *Deduplicator {
	return &Deduplicator{hasher: hasher}
}

// Dedupe returns the postings whose fingerprint appears for the first time,
// in input order. The first occurrence wins; later duplicates are dropped.
func (d *Deduplicator) Dedupe(postings []job.Posting) []job.Posting {
	seen := make(map[string]struct{}, len(postings))
	unique := make([]job.Posting, 0, len(postings))
	for _, p := range postings {
		fp := d.Fingerprint(p)
		if _, ok := seen[fp]; ok {
			continue
		}
		seen[fp] = struct{}{}
		unique = append(unique, p)
	}
	return unique
}

// Fingerprint computes the identity hash for one posting. A hasher failure
// falls back to the raw canonical key, which is just as unique.
func (d *Deduplicator) Fingerprint(p job.Posting) string {
	key := canonical(p.Title) + "|" + canonical(p.Company) + "|" + canonical(p.Location)
	digest, err := d.hasher.Hash([]byte(key))
	if err != nil {
		return key
	}
	return digest
}

// canonical lowercases s and collapses runs of whitespace to single spaces,
// so "Backend  Engineer" and "backend engineer" fingerprint identically.
func canonical(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
