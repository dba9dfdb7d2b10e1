package ingest

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/peterhagen/jobpulse/internal/database"
	"github.com/peterhagen/jobpulse/internal/source"
)

// DefaultAdapterTimeout bounds a single adapter's fetch.
const DefaultAdapterTimeout = 2 * time.Minute

// SourceResult is one adapter's outcome for a run.
type SourceResult struct {
	Name  string
	Count int
	Err   error
}

// Reason returns the failure classification, or "" on success.
func (r SourceResult) Reason() string {
	if r.Err == nil {
		return ""
	}
	return string(source.Reason(r.Err))
}

// Result is the outcome of collecting one day's batch.
type Result struct {
	Day      string
	Postings []database.Posting
	Inserted int
	Degraded bool
	Sources  []SourceResult
}

// Orchestrator fetches from every adapter, merges the results into one
// deduplicated batch and persists it.
type Orchestrator struct {
	adapters []source.Adapter
	db       *database.DB
	timeout  time.Duration
}

// NewOrchestrator creates an orchestrator over the given adapters. Adapter
// order is significant: it decides which copy of a duplicate posting wins.
func NewOrchestrator(db *database.DB, adapters []source.Adapter, timeout time.Duration) *Orchestrator {
	if timeout <= 0 {
		timeout = DefaultAdapterTimeout
	}
	return &Orchestrator{adapters: adapters, db: db, timeout: timeout}
}

// Run collects the batch for one fetch day. Adapters are fetched
// concurrently but merged in configuration order, so the same responses
// always produce the same batch. When every adapter fails, the most recent
// stored batch is reused and the result is marked degraded.
func (o *Orchestrator) Run(ctx context.Context, day string) (*Result, error) {
	if len(o.adapters) == 0 {
		return nil, fmt.Errorf("no sources configured")
	}

	type fetchOutcome struct {
		postings []source.Posting
		err      error
	}
	outcomes := make([]fetchOutcome, len(o.adapters))

	var wg sync.WaitGroup
	for i, adapter := range o.adapters {
		wg.Add(1)
		go func(i int, adapter source.Adapter) {
			defer wg.Done()
			fetchCtx, cancel := context.WithTimeout(ctx, o.timeout)
			defer cancel()
			postings, err := adapter.Fetch(fetchCtx, day)
			outcomes[i] = fetchOutcome{postings: postings, err: err}
		}(i, adapter)
	}
	wg.Wait()

	result := &Result{Day: day}
	seen := make(map[string]bool)
	var batch []database.Posting
	allFailed := true

	for i, adapter := range o.adapters {
		outcome := outcomes[i]
		sr := SourceResult{Name: adapter.Name(), Err: outcome.err}
		if outcome.err != nil {
			log.Printf("source %s failed: %v", adapter.Name(), outcome.err)
			result.Sources = append(result.Sources, sr)
			continue
		}
		allFailed = false

		for _, p := range outcome.postings {
			if p.ID == "" || seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			batch = append(batch, toStored(p, day))
			sr.Count++
		}
		result.Sources = append(result.Sources, sr)
	}

	if allFailed {
		return o.fallback(result)
	}

	inserted, err := o.db.InsertPostings(batch)
	if err != nil {
		return nil, fmt.Errorf("storing batch for %s: %w", day, err)
	}
	result.Postings = batch
	result.Inserted = inserted
	log.Printf("collected %d postings for %s (%d new)", len(batch), day, inserted)
	return result, nil
}

// fallback reuses the most recent stored batch when no source delivered.
func (o *Orchestrator) fallback(result *Result) (*Result, error) {
	previous, err := o.db.LatestFetchDay(result.Day)
	if err != nil {
		return nil, fmt.Errorf("looking up previous batch: %w", err)
	}
	if previous == "" {
		return nil, fmt.Errorf("all sources failed and no previous batch exists")
	}

	postings, err := o.db.GetPostingsForDay(previous)
	if err != nil {
		return nil, fmt.Errorf("loading batch %s: %w", previous, err)
	}

	log.Printf("all sources failed for %s, reusing batch from %s (%d postings)",
		result.Day, previous, len(postings))
	result.Postings = postings
	result.Degraded = true
	return result, nil
}

func toStored(p source.Posting, day string) database.Posting {
	return database.Posting{
		ID:          p.ID,
		Title:       p.Title,
		Company:     optional(p.Company),
		City:        optional(p.City),
		State:       optional(p.State),
		Country:     optional(p.Country),
		URL:         optional(p.URL),
		Description: optional(p.Description),
		SalaryMin:   p.SalaryMin,
		SalaryMax:   p.SalaryMax,
		Currency:    optional(p.Currency),
		PostedDate:  optional(p.PostedDate),
		Source:      p.Source,
		FetchDay:    day,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
