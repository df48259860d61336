// Package score ranks postings against a search profile with a fixed
// weighted rubric.
package score

import (
	"strings"

	"github.com/jobradar/jobradar/internal/job"
)

// Rubric weights. They sum to 100, but a criterion whose inputs are absent
// (a profile without skills) drops out of the denominator entirely rather
// than scoring zero against it.
const (
	skillsWeight   = 40
	locationWeight = 30
	remoteWeight   = 15
	sourceWeight   = 15
)

// remoteKeywords award the remote bonus when any one of them appears in the
// posting text. Matching one or all of them pays the same 15 points.
var remoteKeywords = []string{"télétravail", "remote", "distance", "hybride"}

// sourceTrust maps known source labels to their trust points. Unknown
// sources fall back to defaultTrust.
var sourceTrust = map[string]float64{
	"Indeed RSS":  15,
	"Adzuna API":  12,
	"Jobs.ch API": 10,
	"LinkedIn":    8,
}

const defaultTrust = 5

// Scorer computes a deterministic 0 to 100 compatibility score per posting.
// The profile is read once at construction; a Scorer is safe for concurrent
// use because it holds no mutable state.
type Scorer struct {
	skills    []string
	locations []string
}

func New(profile job.Profile) *Scorer {
	var skills []string
	for _, s := range strings.Split(profile.Skills, ",") {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			skills = append(skills, s)
		}
	}
	locations := profile.FlattenLocations()
	for i, l := range locations {
		locations[i] = strings.ToLower(l)
	}
	return &Scorer{skills: skills, locations: locations}
}

// Score evaluates the rubric for one posting. The result is always in
// [0, 100] and depends only on the posting and the profile.
func (s *Scorer) Score(p job.Posting) float64 {
	text := strings.ToLower(p.Title + " " + p.Description)

	var points, applicable float64

	if len(s.skills) > 0 {
		matched := 0
		for _, skill := range s.skills {
			if strings.Contains(text, skill) {
				matched++
			}
		}
		points += float64(matched) / float64(len(s.skills)) * skillsWeight
		applicable += skillsWeight
	}

	points += s.locationPoints(strings.ToLower(p.Location))
	applicable += locationWeight

	for _, kw := range remoteKeywords {
		if strings.Contains(text, kw) {
			points += remoteWeight
			break
		}
	}
	applicable += remoteWeight

	if trust, ok := sourceTrust[p.Source]; ok {
		points += trust
	} else {
		points += defaultTrust
	}
	applicable += sourceWeight

	if applicable == 0 {
		return 0
	}
	return points / applicable * 100
}

// locationPoints scans the profile's flattened priority list in order and
// pays max(0, 30 - 3*index) for the first location contained in the
// posting's location string. Later matches never add to an earlier one.
func (s *Scorer) locationPoints(location string) float64 {
	for i, loc := range s.locations {
		if strings.Contains(location, loc) {
			bonus := locationWeight - 3*float64(i)
			if bonus < 0 {
				return 0
			}
			return bonus
		}
	}
	return 0
}

// ScoreAll writes a score into every posting in place and returns the slice.
func (s *Scorer) ScoreAll(postings []job.Posting) []job.Posting {
	for i := range postings {
		postings[i].Score = s.Score(postings[i])
	}
	return postings
}
