package enrich

import (
	"context"
	"log"
	"sort"
	"strings"

	"github.com/peterhagen/jobpulse/internal/clean"
)

// EnrichedPosting is a normalized posting with derived skills and a category
// label. Enrichment is recomputed from the stored corpus each run, so labels
// are never persisted.
type EnrichedPosting struct {
	clean.NormalizedPosting
	Skills   []string
	Category string
}

// Tagger extracts skill names from a posting's title and description.
type Tagger interface {
	Tag(ctx context.Context, title, description string) ([]string, error)
}

// Assigner labels each posting with a category. Implementations must return
// one label per input posting, in order.
type Assigner interface {
	Assign(ctx context.Context, postings []clean.NormalizedPosting) ([]string, error)
}

// Enricher runs taggers and a category assigner over normalized postings.
type Enricher struct {
	taggers  []Tagger
	assigner Assigner
}

// NewEnricher creates an Enricher. Skill sets from all taggers are merged;
// a failing tagger contributes nothing for that posting.
func NewEnricher(assigner Assigner, taggers ...Tagger) *Enricher {
	return &Enricher{taggers: taggers, assigner: assigner}
}

// Enrich derives skills and categories for every posting.
func (e *Enricher) Enrich(ctx context.Context, postings []clean.NormalizedPosting) ([]EnrichedPosting, error) {
	categories, err := e.assigner.Assign(ctx, postings)
	if err != nil {
		return nil, err
	}

	enriched := make([]EnrichedPosting, len(postings))
	for i, p := range postings {
		skills := make(map[string]bool)
		for _, tagger := range e.taggers {
			tagged, err := tagger.Tag(ctx, p.Title, p.Description)
			if err != nil {
				log.Printf("tagging %s: %v", p.ID, err)
				continue
			}
			for _, s := range tagged {
				skills[strings.ToLower(s)] = true
			}
		}

		enriched[i] = EnrichedPosting{
			NormalizedPosting: p,
			Skills:            sortedKeys(skills),
			Category:          categories[i],
		}
	}
	return enriched, nil
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
