package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/peterhagen/jobpulse/internal/database"
	"github.com/peterhagen/jobpulse/internal/source"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type mockAdapter struct {
	name     string
	postings []source.Posting
	err      error
	delay    time.Duration
}

func (m *mockAdapter) Name() string { return m.name }

func (m *mockAdapter) Fetch(ctx context.Context, day string) ([]source.Posting, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, &source.Error{Source: m.name, Reason: source.ReasonTransportError, Err: ctx.Err()}
		}
	}
	return m.postings, m.err
}

func makePostings(prefix string, start, n int) []source.Posting {
	var postings []source.Posting
	for i := 0; i < n; i++ {
		postings = append(postings, source.Posting{
			ID:     fmt.Sprintf("%s:%d", prefix, start+i),
			Title:  "Engineer",
			Source: prefix,
		})
	}
	return postings
}

func TestRunMergesAndDeduplicates(t *testing.T) {
	db := openTestDB(t)

	// First adapter delivers 30 postings, second delivers 21 of which 5
	// share IDs with the first: 30 + 21 - 5 = 46 unique.
	a := &mockAdapter{name: "a", postings: makePostings("job", 0, 30)}
	b := &mockAdapter{name: "b", postings: append(makePostings("job", 25, 5), makePostings("other", 0, 16)...)}

	result, err := NewOrchestrator(db, []source.Adapter{a, b}, 0).Run(context.Background(), "2026-02-06")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Postings) != 46 {
		t.Errorf("expected 46 unique postings, got %d", len(result.Postings))
	}
	if result.Inserted != 46 {
		t.Errorf("expected 46 inserted, got %d", result.Inserted)
	}
	if result.Degraded {
		t.Error("expected non-degraded run")
	}

	// First-seen wins: the duplicate count lands on the first adapter.
	if result.Sources[0].Count != 30 || result.Sources[1].Count != 16 {
		t.Errorf("unexpected per-source counts: %+v", result.Sources)
	}
}

func TestRunIsIdempotentPerDay(t *testing.T) {
	db := openTestDB(t)
	a := &mockAdapter{name: "a", postings: makePostings("job", 0, 10)}
	orch := NewOrchestrator(db, []source.Adapter{a}, 0)

	first, err := orch.Run(context.Background(), "2026-02-06")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := orch.Run(context.Background(), "2026-02-06")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.Inserted != 10 || second.Inserted != 0 {
		t.Errorf("expected 10 then 0 inserted, got %d then %d", first.Inserted, second.Inserted)
	}

	stored, _ := db.GetAllPostings()
	if len(stored) != 10 {
		t.Errorf("expected 10 stored postings, got %d", len(stored))
	}
}

func TestPartialFailureKeepsGoodSources(t *testing.T) {
	db := openTestDB(t)
	good := &mockAdapter{name: "good", postings: makePostings("job", 0, 5)}
	bad := &mockAdapter{name: "bad", err: &source.Error{Source: "bad", Reason: source.ReasonRateLimited}}

	result, err := NewOrchestrator(db, []source.Adapter{good, bad}, 0).Run(context.Background(), "2026-02-06")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Postings) != 5 || result.Degraded {
		t.Errorf("expected 5 postings non-degraded, got %d degraded=%v", len(result.Postings), result.Degraded)
	}
	if result.Sources[1].Err == nil || result.Sources[1].Reason() != "rate_limited" {
		t.Errorf("expected rate_limited failure recorded, got %+v", result.Sources[1])
	}
}

func TestAllFailedFallsBackToPreviousBatch(t *testing.T) {
	db := openTestDB(t)

	// Seed an earlier batch.
	seed := &mockAdapter{name: "a", postings: makePostings("job", 0, 7)}
	if _, err := NewOrchestrator(db, []source.Adapter{seed}, 0).Run(context.Background(), "2026-02-05"); err != nil {
		t.Fatalf("seeding batch: %v", err)
	}

	failing := &mockAdapter{name: "a", err: &source.Error{Source: "a", Reason: source.ReasonEmptyResult}}
	result, err := NewOrchestrator(db, []source.Adapter{failing}, 0).Run(context.Background(), "2026-02-06")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Degraded {
		t.Error("expected degraded result")
	}
	if len(result.Postings) != 7 {
		t.Errorf("expected previous batch of 7, got %d", len(result.Postings))
	}
}

func TestAllFailedWithoutPreviousBatchErrors(t *testing.T) {
	db := openTestDB(t)
	failing := &mockAdapter{name: "a", err: &source.Error{Source: "a", Reason: source.ReasonAuthError}}

	_, err := NewOrchestrator(db, []source.Adapter{failing}, 0).Run(context.Background(), "2026-02-06")
	if err == nil {
		t.Error("expected error when nothing can be ingested")
	}
}

func TestAdapterTimeoutBecomesFailure(t *testing.T) {
	db := openTestDB(t)
	good := &mockAdapter{name: "good", postings: makePostings("job", 0, 3)}
	slow := &mockAdapter{name: "slow", postings: makePostings("late", 0, 3), delay: time.Second}

	result, err := NewOrchestrator(db, []source.Adapter{good, slow}, 10*time.Millisecond).Run(context.Background(), "2026-02-06")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Postings) != 3 {
		t.Errorf("expected only fast source postings, got %d", len(result.Postings))
	}
	if result.Sources[1].Err == nil {
		t.Error("expected timeout recorded for slow source")
	}
}

func TestNoAdaptersConfigured(t *testing.T) {
	db := openTestDB(t)
	_, err := NewOrchestrator(db, nil, 0).Run(context.Background(), "2026-02-06")
	if err == nil {
		t.Error("expected error with no sources configured")
	}
}
