package enrich

import (
	"context"
	"strings"

	"github.com/peterhagen/jobpulse/internal/clean"
)

// OtherCategory is the label for postings no rule or cluster claims.
const OtherCategory = "Other"

type categoryRule struct {
	label    string
	keywords []string
}

// categoryRules are checked in order; the first matching rule wins, so the
// more specific roles come first.
var categoryRules = []categoryRule{
	{"Machine Learning", []string{"machine learning", "ml engineer", "deep learning", "ai engineer", "data scientist", "nlp"}},
	{"Data Engineering", []string{"data engineer", "data platform", "etl", "analytics engineer"}},
	{"DevOps & SRE", []string{"devops", "site reliability", "sre", "platform engineer", "infrastructure engineer", "cloud engineer"}},
	{"Security", []string{"security", "appsec", "infosec"}},
	{"Mobile", []string{"ios", "android", "mobile"}},
	{"Frontend", []string{"frontend", "front-end", "front end", "ui engineer", "web developer"}},
	{"Backend", []string{"backend", "back-end", "back end", "api engineer", "server engineer"}},
	{"QA & Testing", []string{"qa ", "quality assurance", "test engineer", "sdet"}},
	{"Engineering Management", []string{"engineering manager", "director of engineering", "vp of engineering", "tech lead"}},
	{"Software Engineering", []string{"software engineer", "software developer", "programmer", "full stack", "fullstack"}},
}

// KeywordAssigner labels postings by matching title keywords against a fixed
// rule list. It is the deterministic fallback when embedding-based
// clustering is disabled or unavailable.
type KeywordAssigner struct{}

// NewKeywordAssigner creates a keyword-based category assigner.
func NewKeywordAssigner() *KeywordAssigner {
	return &KeywordAssigner{}
}

// Assign returns one category per posting.
func (a *KeywordAssigner) Assign(ctx context.Context, postings []clean.NormalizedPosting) ([]string, error) {
	labels := make([]string, len(postings))
	for i, p := range postings {
		labels[i] = categorize(p.Title)
	}
	return labels, nil
}

func categorize(title string) string {
	lower := strings.ToLower(title)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.label
			}
		}
	}
	return OtherCategory
}
