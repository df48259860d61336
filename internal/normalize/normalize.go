// Package normalize maps raw adapter candidates into canonical postings.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/jobradar/jobradar/internal/job"
)

// MaxDescriptionRunes bounds stored description length. Raw feed and API
// descriptions routinely run to several kilobytes; everything past this cap
// adds storage without adding ranking signal.
const MaxDescriptionRunes = 300

// salaryUnit is the display suffix for formatted salary ranges. Sources in
// scope quote annual figures in euros or leave salary unset.
const salaryUnit = "€/an"

// Normalize converts one Candidate into a Posting labeled with its source.
// It is a pure function: every field is coerced to a string, optional salary
// bounds are formatted once, and the collection timestamp is stamped from now.
func Normalize(c job.Candidate, source string, now time.Time) job.Posting {
	salary := c.Salary
	if salary == "" {
		salary = FormatSalary(c.SalaryMin, c.SalaryMax)
	}
	return job.Posting{
		Title:       strings.TrimSpace(c.Title),
		Company:     strings.TrimSpace(c.Company),
		Location:    strings.TrimSpace(c.Location),
		Salary:      salary,
		Description: Truncate(strings.TrimSpace(c.Description), MaxDescriptionRunes),
		URL:         strings.TrimSpace(c.URL),
		Source:      source,
		CollectedAt: now.UTC().Format(time.RFC3339),
	}
}

// FormatSalary renders optional numeric bounds as display text. Both bounds
// present yields a range, a single bound yields an open-ended phrase, and no
// bounds yields the empty string.
func FormatSalary(minSalary, maxSalary *float64) string {
	switch {
	case minSalary != nil && maxSalary != nil:
		return fmt.Sprintf("%d - %d %s", int(*minSalary), int(*maxSalary), salaryUnit)
	case minSalary != nil:
		return fmt.Sprintf("À partir de %d %s", int(*minSalary), salaryUnit)
	case maxSalary != nil:
		return fmt.Sprintf("Jusqu'à %d %s", int(*maxSalary), salaryUnit)
	default:
		return ""
	}
}

// Truncate caps s at limit runes, appending an ellipsis when cut.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}
