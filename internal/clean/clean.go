package clean

import (
	"regexp"
	"strings"

	"github.com/peterhagen/jobpulse/internal/database"
)

// NormalizedPosting is a posting after title, company, location and salary
// canonicalization. Downstream stages only ever see this form.
type NormalizedPosting struct {
	ID          string
	Title       string
	Company     string
	Location    string
	URL         string
	Description string
	SalaryMin   *float64
	SalaryMax   *float64
	Currency    string
	PostedDate  string
	Source      string
	FetchDay    string
	Lat         *float64
	Lon         *float64
}

// allowedCurrencies are the currencies salaries are kept for. Anything else
// is dropped rather than guessed at.
var allowedCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "CAD": true, "AUD": true,
}

var titleReplacements = []struct {
	pattern *regexp.Regexp
	repl    string
}{
	{regexp.MustCompile(`(?i)\bsr\.?\s`), "Senior "},
	{regexp.MustCompile(`(?i)\bjr\.?\s`), "Junior "},
	{regexp.MustCompile(`\bSWE\b`), "Software Engineer"},
	{regexp.MustCompile(`\bSDE\b`), "Software Development Engineer"},
	{regexp.MustCompile(`\bSRE\b`), "Site Reliability Engineer"},
	{regexp.MustCompile(`\bML\b`), "Machine Learning"},
	{regexp.MustCompile(`\bAI\b`), "Artificial Intelligence"},
}

var companySuffix = regexp.MustCompile(`(?i)[,\s]+(inc|llc|corp|ltd)\.?$`)

var whitespace = regexp.MustCompile(`\s+`)

// Normalizer canonicalizes stored postings and removes cross-source
// duplicates.
type Normalizer struct {
	geocoder Geocoder
}

// NewNormalizer creates a Normalizer. The geocoder may be nil, in which
// case postings carry no coordinates.
func NewNormalizer(geocoder Geocoder) *Normalizer {
	return &Normalizer{geocoder: geocoder}
}

// Normalize canonicalizes a single stored posting.
func (n *Normalizer) Normalize(p database.Posting) NormalizedPosting {
	np := NormalizedPosting{
		ID:         p.ID,
		Title:      NormalizeTitle(p.Title),
		Company:    NormalizeCompany(deref(p.Company)),
		Location:   NormalizeLocation(deref(p.City), deref(p.State), deref(p.Country)),
		URL:        deref(p.URL),
		PostedDate: deref(p.PostedDate),
		Source:     p.Source,
		FetchDay:   p.FetchDay,
	}
	if p.Description != nil {
		np.Description = strings.TrimSpace(*p.Description)
	}

	currency := strings.ToUpper(strings.TrimSpace(deref(p.Currency)))
	hasSalary := p.SalaryMin != nil || p.SalaryMax != nil
	if hasSalary && currency == "" {
		currency = "USD"
	}
	if allowedCurrencies[currency] {
		np.SalaryMin = p.SalaryMin
		np.SalaryMax = p.SalaryMax
		np.Currency = currency
	}

	return np
}

// NormalizeAll canonicalizes a corpus and deduplicates postings that appear
// on multiple sources. Duplicates share title, company and location after
// normalization; the first occurrence in input order wins, so callers pass
// postings sorted oldest first.
func (n *Normalizer) NormalizeAll(postings []database.Posting) []NormalizedPosting {
	seen := make(map[string]bool, len(postings))
	result := make([]NormalizedPosting, 0, len(postings))
	for _, p := range postings {
		np := n.Normalize(p)
		key := strings.ToLower(np.Title) + "|" + strings.ToLower(np.Company) + "|" + strings.ToLower(np.Location)
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, np)
	}
	return result
}

// NormalizeTitle expands common title abbreviations and collapses whitespace.
func NormalizeTitle(title string) string {
	title = strings.TrimSpace(title)
	for _, r := range titleReplacements {
		title = r.pattern.ReplaceAllString(title, r.repl)
	}
	return whitespace.ReplaceAllString(title, " ")
}

// NormalizeCompany strips legal suffixes like "Inc" or "LLC".
func NormalizeCompany(company string) string {
	company = strings.TrimSpace(company)
	return strings.TrimSpace(companySuffix.ReplaceAllString(company, ""))
}

// NormalizeLocation joins location parts and expands country shorthand.
func NormalizeLocation(city, state, country string) string {
	switch strings.ToUpper(strings.TrimSpace(country)) {
	case "US", "USA":
		country = "United States"
	case "UK", "GB":
		country = "United Kingdom"
	}

	var parts []string
	for _, part := range []string{city, state, country} {
		part = strings.TrimSpace(part)
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
