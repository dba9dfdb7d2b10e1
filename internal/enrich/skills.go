package enrich

import (
	"context"
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed skills.yaml
var defaultTaxonomyYAML []byte

type taxonomyFile struct {
	Skills map[string][]string `yaml:"skills"`
}

// PatternTagger matches skills against a fixed phrase taxonomy.
type PatternTagger struct {
	patterns map[string]*regexp.Regexp // skill -> compiled alternation
	skills   []string                  // stable iteration order
}

// NewPatternTagger builds a tagger from the embedded default taxonomy.
func NewPatternTagger() (*PatternTagger, error) {
	return NewPatternTaggerFromYAML(defaultTaxonomyYAML)
}

// NewPatternTaggerFromYAML builds a tagger from taxonomy YAML bytes.
func NewPatternTaggerFromYAML(data []byte) (*PatternTagger, error) {
	var file taxonomyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing skill taxonomy: %w", err)
	}
	if len(file.Skills) == 0 {
		return nil, fmt.Errorf("skill taxonomy is empty")
	}

	t := &PatternTagger{patterns: make(map[string]*regexp.Regexp, len(file.Skills))}
	for skill, phrases := range file.Skills {
		re, err := compilePhrases(phrases)
		if err != nil {
			return nil, fmt.Errorf("skill %q: %w", skill, err)
		}
		t.patterns[skill] = re
		t.skills = append(t.skills, skill)
	}
	sort.Strings(t.skills)
	return t, nil
}

// Tag returns the taxonomy skills found in the title or description.
func (t *PatternTagger) Tag(ctx context.Context, title, description string) ([]string, error) {
	text := title + " " + description
	var found []string
	for _, skill := range t.skills {
		if t.patterns[skill].MatchString(text) {
			found = append(found, skill)
		}
	}
	return found, nil
}

// compilePhrases builds one case-insensitive alternation for a skill. Word
// boundaries are only applied where the phrase starts or ends with a word
// character, so phrases like "c++" and "c#" still match.
func compilePhrases(phrases []string) (*regexp.Regexp, error) {
	if len(phrases) == 0 {
		return nil, fmt.Errorf("no phrases")
	}
	parts := make([]string, len(phrases))
	for i, phrase := range phrases {
		quoted := regexp.QuoteMeta(strings.ToLower(phrase))
		prefix, suffix := "", ""
		if startsWithWordChar(phrase) {
			prefix = `\b`
		}
		if endsWithWordChar(phrase) {
			suffix = `\b`
		}
		parts[i] = prefix + quoted + suffix
	}
	return regexp.Compile(`(?i)(?:` + strings.Join(parts, "|") + `)`)
}

func startsWithWordChar(s string) bool {
	if s == "" {
		return false
	}
	return isWordChar(rune(s[0]))
}

func endsWithWordChar(s string) bool {
	if s == "" {
		return false
	}
	return isWordChar(rune(s[len(s)-1]))
}

func isWordChar(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
