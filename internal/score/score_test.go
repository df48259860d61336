package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobradar/jobradar/internal/job"
)

func testProfile() job.Profile {
	return job.Profile{
		Skills: "python, go, postgresql",
		Locations: []job.CountryPlaces{
			{Country: "switzerland", Places: []string{"geneva", "lausanne"}},
			{Country: "france", Places: []string{"paris"}},
		},
	}
}

func TestScoreIsBoundedAndDeterministic(t *testing.T) {
	s := New(testProfile())

	postings := []job.Posting{
		{},
		{Title: "Go developer", Location: "Geneva", Source: "Indeed RSS", Description: "python go postgresql remote"},
		{Title: "Chef", Location: "Tokyo", Source: "nobody", Description: "cuisine"},
	}

	for _, p := range postings {
		first := s.Score(p)
		assert.GreaterOrEqual(t, first, 0.0)
		assert.LessOrEqual(t, first, 100.0)
		assert.Equal(t, first, s.Score(p))
	}
}

func TestScoreSkillsCriterion(t *testing.T) {
	s := New(testProfile())

	all := s.Score(job.Posting{Title: "Go engineer", Description: "python and postgresql"})
	none := s.Score(job.Posting{Title: "Barista", Description: "coffee"})

	// Full skills match contributes 40 of 100 applicable weight points,
	// no match contributes 0. Both postings share the unknown-source 5.
	assert.InDelta(t, 40.0, all-none, 0.0001)
}

func TestScoreSkillsWeightExcludedWhenProfileHasNone(t *testing.T) {
	profile := testProfile()
	profile.Skills = ""
	s := New(profile)

	// Unknown source only: 5 trust points over 60 applicable weight.
	got := s.Score(job.Posting{Title: "Anything", Location: "Tokyo"})
	assert.InDelta(t, 5.0/60.0*100, got, 0.0001)
}

func TestScoreLocationPriority(t *testing.T) {
	s := New(job.Profile{
		Locations: []job.CountryPlaces{
			{Country: "switzerland", Places: []string{"geneva", "lausanne"}},
			{Country: "france", Places: []string{"paris"}},
		},
	})

	// Second-priority location pays 30 - 3*1 = 27 points.
	assert.InDelta(t, 27.0, s.locationPoints("lausanne, suisse"), 0.0001)
	assert.InDelta(t, 30.0, s.locationPoints("geneva"), 0.0001)
	assert.InDelta(t, 24.0, s.locationPoints("paris, france"), 0.0001)
	assert.Zero(t, s.locationPoints("berlin"))
}

func TestScoreRemoteBonusPaysOnce(t *testing.T) {
	s := New(job.Profile{Skills: ""})

	one := s.Score(job.Posting{Description: "travail hybride"})
	many := s.Score(job.Posting{Description: "remote télétravail hybride à distance"})

	assert.Equal(t, one, many)

	without := s.Score(job.Posting{Description: "sur site uniquement"})
	assert.InDelta(t, 15.0/60.0*100, one-without, 0.0001)
}

func TestScoreSourceTrust(t *testing.T) {
	s := New(job.Profile{Skills: ""})

	indeed := s.Score(job.Posting{Source: "Indeed RSS"})
	unknown := s.Score(job.Posting{Source: "Some Board"})

	// 15 vs the default 5 trust points over 60 applicable weight.
	assert.InDelta(t, 10.0/60.0*100, indeed-unknown, 0.0001)
}

func TestScoreAllWritesInPlace(t *testing.T) {
	s := New(testProfile())

	postings := []job.Posting{
		{Title: "Go developer python postgresql", Location: "Geneva", Source: "Indeed RSS"},
		{Title: "Chef", Location: "Tokyo"},
	}
	scored := s.ScoreAll(postings)

	require.Len(t, scored, 2)
	assert.Greater(t, scored[0].Score, scored[1].Score)
	assert.Equal(t, scored[0].Score, postings[0].Score)
}
