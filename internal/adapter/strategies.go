package adapter

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jobradar/jobradar/internal/job"
)

// extractionStrategy holds the ordered selector candidates for each field on
// one family of job sites. For every field the first selector yielding
// non-empty text wins; later selectors are fallbacks for page variants.
type extractionStrategy struct {
	name        string
	title       []string
	company     []string
	location    []string
	salary      []string
	description []string
}

// domainStrategies routes a page to its extraction strategy by domain
// substring. Unknown domains use genericStrategy.
var domainStrategies = []struct {
	domain   string
	strategy extractionStrategy
}{
	{
		domain: "indeed.",
		strategy: extractionStrategy{
			name:        "indeed",
			title:       []string{"h1.jobsearch-JobInfoHeader-title", `h1[data-testid="jobsearch-JobInfoHeader-title"]`, "h1"},
			company:     []string{`div[data-testid="inlineHeader-companyName"]`, "div.jobsearch-CompanyInfoContainer a", `meta[property="og:site_name"]`},
			location:    []string{`div[data-testid="inlineHeader-companyLocation"]`, "div.jobsearch-JobInfoHeader-subtitle div"},
			salary:      []string{"span.attribute_snippet", `div[id="salaryInfoAndJobType"] span`},
			description: []string{"div#jobDescriptionText", "div.jobsearch-jobDescriptionText"},
		},
	},
	{
		domain: "welcometothejungle.",
		strategy: extractionStrategy{
			name:        "welcometothejungle",
			title:       []string{`h1[data-testid="job-title"]`, "h1"},
			company:     []string{`a[data-testid="job-company-link"]`, `meta[property="og:site_name"]`},
			location:    []string{`span[data-testid="job-location"]`, "div.sc-location"},
			salary:      []string{`span[data-testid="job-salary"]`},
			description: []string{`div[data-testid="job-description"]`, "section#description"},
		},
	},
	{
		domain: "glassdoor.",
		strategy: extractionStrategy{
			name:        "glassdoor",
			title:       []string{`div[data-test="job-title"]`, "h1"},
			company:     []string{`div[data-test="employer-name"]`, "span.EmployerProfile"},
			location:    []string{`div[data-test="location"]`},
			salary:      []string{`span[data-test="detailSalary"]`},
			description: []string{`div[data-test="jobDescriptionContent"]`, "div.jobDescriptionContent"},
		},
	},
	{
		domain: "linkedin.",
		strategy: extractionStrategy{
			name:        "linkedin",
			title:       []string{"h1.top-card-layout__title", "h1"},
			company:     []string{"a.topcard__org-name-link", "span.topcard__flavor"},
			location:    []string{"span.topcard__flavor--bullet"},
			salary:      []string{"div.salary"},
			description: []string{"div.show-more-less-html__markup", "section.description"},
		},
	},
}

// genericStrategy only extracts a title reliably; company is guessed from
// text patterns afterwards.
var genericStrategy = extractionStrategy{
	name:        "generic",
	title:       []string{"h1", "title"},
	company:     []string{`meta[property="og:site_name"]`},
	location:    []string{`span[class*="location"]`, `div[class*="location"]`},
	description: []string{`div[class*="description"]`, `section[class*="description"]`, "main p"},
}

// companyPatterns guess an organization name from page text when no
// selector produced one. French patterns first, matching the sources in
// scope.
var companyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i:chez)\s+([A-ZÀ-Ü][\w&.'À-ü-]*(?:\s+[A-ZÀ-Ü][\w&.'À-ü-]*)*)`),
	regexp.MustCompile(`([A-ZÀ-Ü][\w&.'À-ü-]*(?:\s+[A-ZÀ-Ü][\w&.'À-ü-]*)*)\s+recrute\b`),
	regexp.MustCompile(`\bat\s+([A-Z][\w&.'-]*(?:\s+[A-Z][\w&.'-]*)*)`),
	regexp.MustCompile(`([A-Z][\w&.'-]*(?:\s+[A-Z][\w&.'-]*)*)\s+is\s+hiring\b`),
}

// strategyFor picks the extraction strategy for a page URL host.
func strategyFor(host string) extractionStrategy {
	lower := strings.ToLower(host)
	for _, entry := range domainStrategies {
		if strings.Contains(lower, entry.domain) {
			return entry.strategy
		}
	}
	return genericStrategy
}

// extract applies the strategy to a parsed document. A page that yields no
// title is unusable and reported as not ok.
func (s extractionStrategy) extract(doc *goquery.Document, pageURL string) (job.Candidate, bool) {
	title := firstText(doc, s.title)
	if title == "" {
		return job.Candidate{}, false
	}

	company := firstText(doc, s.company)
	if company == "" {
		company = guessCompany(doc, title)
	}

	return job.Candidate{
		Title:       title,
		Company:     company,
		Location:    firstText(doc, s.location),
		Salary:      firstText(doc, s.salary),
		Description: firstText(doc, s.description),
		URL:         pageURL,
	}, true
}

// firstText walks the selector candidates in order and returns the first
// non-empty trimmed text. Meta selectors read the content attribute.
func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		text := strings.TrimSpace(node.Text())
		if text == "" && strings.HasPrefix(sel, "meta") {
			text = strings.TrimSpace(node.AttrOr("content", ""))
		}
		if text != "" {
			return strings.Join(strings.Fields(text), " ")
		}
	}
	return ""
}

// guessCompany scans the title and lead page text for hiring phrases like
// "chez Acme" or "Acme is hiring".
func guessCompany(doc *goquery.Document, title string) string {
	samples := []string{title}
	doc.Find("h1, h2, p").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		samples = append(samples, strings.TrimSpace(sel.Text()))
		return i < 20
	})

	for _, sample := range samples {
		for _, pattern := range companyPatterns {
			if m := pattern.FindStringSubmatch(sample); len(m) > 1 {
				return strings.TrimSpace(m[1])
			}
		}
	}
	return ""
}
