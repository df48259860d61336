package score

import (
	"strings"

	"github.com/jobradar/jobradar/internal/job"
)

// countryRule buckets a free-text location into a country with a canonical
// place name for query building. Rules are evaluated in order and the first
// matching rule wins, so a name existing in two configured countries lands
// in whichever country is listed first.
type countryRule struct {
	country string
	markers []string
	places  []placeRule
}

type placeRule struct {
	marker string
	place  string
}

var countryRules = []countryRule{
	{
		country: "switzerland",
		markers: []string{"suisse", "switzerland", "genève", "geneva", "lausanne", "zurich", "berne", "vaud", "fribourg", "neuchâtel", "jura", "valais"},
		places: []placeRule{
			{marker: "genève", place: "geneva"},
			{marker: "geneva", place: "geneva"},
			{marker: "lausanne", place: "lausanne"},
			{marker: "zurich", place: "zurich"},
		},
	},
	{
		country: "france",
		markers: []string{"france", "lille", "paris", "lyon", "marseille", "toulouse", "nord"},
		places: []placeRule{
			{marker: "lille", place: "lille"},
			{marker: "paris", place: "paris"},
			{marker: "lyon", place: "lyon"},
		},
	},
	{
		country: "remote",
		markers: []string{"télétravail", "remote", "distance", "full remote"},
		places:  []placeRule{{marker: "", place: "remote"}},
	},
}

// defaultLocations is used when no configured location matches any rule.
var defaultLocations = []job.CountryPlaces{
	{Country: "switzerland", Places: []string{"geneva", "lausanne"}},
	{Country: "france", Places: []string{"lille", "paris"}},
	{Country: "remote", Places: []string{"remote"}},
}

// ClassifyLocations buckets configured free-text locations into per-country
// place lists, preserving input order within each country and dropping
// repeated places. Unrecognized entries are ignored; an input that matches
// nothing at all yields the default mapping.
func ClassifyLocations(raw []string) []job.CountryPlaces {
	byCountry := make(map[string][]string, len(countryRules))
	for _, loc := range raw {
		lower := strings.ToLower(loc)
		rule, ok := matchCountry(lower)
		if !ok {
			continue
		}
		place := rule.country
		for _, pr := range rule.places {
			if pr.marker == "" || strings.Contains(lower, pr.marker) {
				place = pr.place
				break
			}
		}
		if !contains(byCountry[rule.country], place) {
			byCountry[rule.country] = append(byCountry[rule.country], place)
		}
	}

	var out []job.CountryPlaces
	for _, rule := range countryRules {
		if places := byCountry[rule.country]; len(places) > 0 {
			out = append(out, job.CountryPlaces{Country: rule.country, Places: places})
		}
	}
	if len(out) == 0 {
		return defaultLocations
	}
	return out
}

func matchCountry(lower string) (countryRule, bool) {
	for _, rule := range countryRules {
		for _, marker := range rule.markers {
			if strings.Contains(lower, marker) {
				return rule, true
			}
		}
	}
	return countryRule{}, false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
