package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/peterhagen/jobpulse/internal/config"
	"github.com/peterhagen/jobpulse/internal/database"
	"github.com/peterhagen/jobpulse/internal/source"
)

type mockAdapter struct {
	name     string
	postings []source.Posting
	err      error
}

func (m *mockAdapter) Name() string { return m.name }

func (m *mockAdapter) Fetch(ctx context.Context, day string) ([]source.Posting, error) {
	return m.postings, m.err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Output.DataDir = dir
	cfg.Output.ExportDir = filepath.Join(dir, "export")
	cfg.Signals.BaselineDays = 14
	cfg.Signals.SpikeZScore = 2.0
	cfg.Signals.HighZScore = 3.0
	cfg.Signals.SkillGrowthPct = 50
	return cfg
}

func testPipeline(t *testing.T, cfg *config.Config, adapters ...source.Adapter) (*Pipeline, *database.DB) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	p := New(cfg, db)
	p.adapters = adapters
	return p, db
}

func somePostings(day string, n int) []source.Posting {
	var postings []source.Posting
	for i := 0; i < n; i++ {
		postings = append(postings, source.Posting{
			ID:         fmt.Sprintf("mock:%d", i),
			Title:      "Software Engineer",
			Company:    "Acme",
			PostedDate: day,
			Source:     "mock",
		})
	}
	return postings
}

func TestRunCompletesAllSteps(t *testing.T) {
	cfg := testConfig(t)
	p, db := testPipeline(t, cfg, &mockAdapter{name: "mock", postings: somePostings("2026-02-06", 5)})

	result := p.Run(context.Background(), "2026-02-06")

	want := []string{"Collect", "Fetch", "Normalize", "Enrich", "Aggregate", "Forecast", "Detect", "Score", "Export"}
	if len(result.Steps) != len(want) {
		t.Fatalf("expected %d steps, got %d: %+v", len(want), len(result.Steps), result.Steps)
	}
	for i, name := range want {
		if result.Steps[i].Name != name {
			t.Errorf("step %d: expected %s, got %s", i, name, result.Steps[i].Name)
		}
		if result.Steps[i].Err != nil {
			t.Errorf("step %s failed: %v", name, result.Steps[i].Err)
		}
	}

	// Signals were published.
	for _, f := range []string{"run.json", "momentum.json", "trends.json", "report.md"} {
		if _, err := os.Stat(filepath.Join(cfg.GetExportDir(), f)); err != nil {
			t.Errorf("missing export %s: %v", f, err)
		}
	}

	// And the run was recorded.
	report, err := db.GetLatestRunReport()
	if err != nil || report == nil {
		t.Fatalf("expected a run report, got %v (%v)", report, err)
	}
	if report.ID != result.RunID || report.PostingCount != 5 {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestRunStopsWhenNothingCollectable(t *testing.T) {
	cfg := testConfig(t)
	p, _ := testPipeline(t, cfg, &mockAdapter{
		name: "mock",
		err:  &source.Error{Source: "mock", Reason: source.ReasonAuthError},
	})

	result := p.Run(context.Background(), "2026-02-06")
	if len(result.Steps) != 1 || result.Steps[0].Err == nil {
		t.Errorf("expected run to stop at Collect, got %+v", result.Steps)
	}
}

func TestRunDegradedUsesPreviousBatch(t *testing.T) {
	cfg := testConfig(t)
	good := &mockAdapter{name: "mock", postings: somePostings("2026-02-05", 4)}
	p, db := testPipeline(t, cfg, good)

	if result := p.Run(context.Background(), "2026-02-05"); result.Degraded {
		t.Fatal("expected healthy first run")
	}

	p2 := New(cfg, db)
	p2.adapters = []source.Adapter{&mockAdapter{
		name: "mock",
		err:  &source.Error{Source: "mock", Reason: source.ReasonEmptyResult},
	}}

	result := p2.Run(context.Background(), "2026-02-06")
	if !result.Degraded {
		t.Error("expected degraded run")
	}
	for _, step := range result.Steps {
		if step.Err != nil {
			t.Errorf("step %s failed: %v", step.Name, step.Err)
		}
	}

	report, _ := db.GetLatestRunReport()
	if report == nil || !report.Degraded {
		t.Errorf("expected degraded run report, got %+v", report)
	}
}
