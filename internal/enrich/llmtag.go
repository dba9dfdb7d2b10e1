package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/peterhagen/jobpulse/internal/llm"
)

const tagPrompt = `Extract the technical skills mentioned in this job posting.
Answer with a comma-separated list of skill names only, nothing else.
Answer "none" if no technical skills are mentioned.

Title: %s

Description: %s`

const maxDescriptionChars = 2000

// LLMTagger extracts skills with an LLM. Returned skills are kept only when
// they literally occur in the posting text, which filters hallucinated
// answers without a second model call.
type LLMTagger struct {
	provider llm.Provider
}

// NewLLMTagger creates an LLM-backed skill tagger.
func NewLLMTagger(provider llm.Provider) *LLMTagger {
	return &LLMTagger{provider: provider}
}

// Tag asks the model for skills and filters them by containment.
func (t *LLMTagger) Tag(ctx context.Context, title, description string) ([]string, error) {
	if t.provider == nil {
		return nil, nil
	}

	desc := description
	if len(desc) > maxDescriptionChars {
		desc = desc[:maxDescriptionChars]
	}

	response, err := t.provider.Generate(ctx, fmt.Sprintf(tagPrompt, title, desc), 256)
	if err != nil {
		return nil, fmt.Errorf("LLM tagging: %w", err)
	}

	haystack := strings.ToLower(title + " " + description)
	var skills []string
	for _, skill := range llm.ParseList(response) {
		if strings.Contains(haystack, strings.ToLower(skill)) {
			skills = append(skills, strings.ToLower(skill))
		}
	}
	return skills, nil
}
