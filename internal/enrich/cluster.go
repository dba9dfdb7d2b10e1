package enrich

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/peterhagen/jobpulse/internal/clean"
	"github.com/peterhagen/jobpulse/internal/llm"
)

const DefaultClusterCount = 8

// ClusterAssigner groups postings into categories by embedding their titles
// and cutting a Ward-linkage dendrogram at a fixed cluster count. Labels are
// built from the most frequent title words per cluster.
type ClusterAssigner struct {
	embedder llm.Embedder
	clusters int
}

// NewClusterAssigner creates an embedding-based category assigner.
func NewClusterAssigner(embedder llm.Embedder, clusters int) *ClusterAssigner {
	if clusters <= 0 {
		clusters = DefaultClusterCount
	}
	return &ClusterAssigner{embedder: embedder, clusters: clusters}
}

// Assign clusters postings and returns one category label per posting.
func (a *ClusterAssigner) Assign(ctx context.Context, postings []clean.NormalizedPosting) ([]string, error) {
	if len(postings) == 0 {
		return nil, nil
	}
	if len(postings) < 2 || len(postings) <= a.clusters {
		// Too few postings to cluster meaningfully.
		labels := make([]string, len(postings))
		for i, p := range postings {
			labels[i] = categorize(p.Title)
		}
		return labels, nil
	}

	texts := make([]string, len(postings))
	for i, p := range postings {
		texts[i] = p.Title
	}

	log.Printf("Generating embeddings for %d postings...", len(postings))
	embeddings, err := a.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding titles: %w", err)
	}
	if len(embeddings) != len(postings) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d titles", len(embeddings), len(postings))
	}

	dist := pairwiseDistances(embeddings)
	merges := wardLinkage(dist, len(embeddings))
	assignments := cutDendrogramK(merges, len(embeddings), a.clusters)

	// Label each cluster from its member titles.
	groups := make(map[int][]string)
	for i, cluster := range assignments {
		groups[cluster] = append(groups[cluster], postings[i].Title)
	}
	clusterLabels := make(map[int]string, len(groups))
	for cluster, titles := range groups {
		clusterLabels[cluster] = clusterLabel(titles)
	}

	labels := make([]string, len(postings))
	for i, cluster := range assignments {
		labels[i] = clusterLabels[cluster]
	}
	log.Printf("Clustered %d postings into %d categories", len(postings), len(groups))
	return labels, nil
}

var labelStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "of": true,
	"in": true, "for": true, "to": true, "with": true, "at": true, "on": true,
	"senior": true, "junior": true, "staff": true, "principal": true,
	"lead": true, "remote": true, "hybrid": true, "ii": true, "iii": true,
	"new": true, "all": true, "levels": true,
}

// clusterLabel builds a category name from the two most frequent
// non-stopword title words.
func clusterLabel(titles []string) string {
	wordCounts := make(map[string]int)
	for _, title := range titles {
		for _, word := range strings.Fields(strings.ToLower(title)) {
			word = strings.Trim(word, ".,!?:;\"'()-[]/")
			if len(word) > 2 && !labelStopWords[word] {
				wordCounts[word]++
			}
		}
	}

	type wordCount struct {
		word  string
		count int
	}
	counts := make([]wordCount, 0, len(wordCounts))
	for w, c := range wordCounts {
		counts = append(counts, wordCount{w, c})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].word < counts[j].word
	})

	var topWords []string
	for i := 0; i < len(counts) && i < 2; i++ {
		topWords = append(topWords, titleCase(counts[i].word))
	}
	if len(topWords) > 0 {
		return strings.Join(topWords, " ")
	}

	// Fallback: first title truncated.
	title := titles[0]
	if len(title) > 50 {
		title = title[:50]
	}
	return title
}

func titleCase(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + word[1:]
}
