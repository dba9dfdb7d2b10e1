package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/peterhagen/jobpulse/internal/aggregate"
	"github.com/peterhagen/jobpulse/internal/anomaly"
	"github.com/peterhagen/jobpulse/internal/forecast"
	"github.com/peterhagen/jobpulse/internal/momentum"
)

// SourceStatus is one adapter's outcome in a run summary.
type SourceStatus struct {
	Name     string `json:"name"`
	OK       bool   `json:"ok"`
	Reason   string `json:"reason,omitempty"`
	Postings int    `json:"postings"`
}

// RunSummary is the run.json payload consumers check before trusting the
// other files.
type RunSummary struct {
	RunID        string         `json:"run_id"`
	FetchDay     string         `json:"fetch_day"`
	GeneratedAt  string         `json:"generated_at"`
	Degraded     bool           `json:"degraded"`
	PostingCount int            `json:"posting_count"`
	AlertCount   int            `json:"alert_count"`
	Sources      []SourceStatus `json:"sources"`
}

// Bundle is everything one run exports.
type Bundle struct {
	Summary   RunSummary
	Aggregate *aggregate.Aggregate
	Forecasts map[string][]forecast.Point
	Alerts    []anomaly.Alert
	Index     *momentum.Index
}

type trendRow struct {
	Category  string  `json:"category"`
	Date      string  `json:"date"`
	Count     int     `json:"count"`
	Rolling7  float64 `json:"rolling_7"`
	Rolling30 float64 `json:"rolling_30"`
}

type forecastRow struct {
	Category string  `json:"category"`
	Date     string  `json:"date"`
	Forecast float64 `json:"forecast"`
	Lower    float64 `json:"lower"`
	Upper    float64 `json:"upper"`
}

type skillsPayload struct {
	Overall    []aggregate.SkillCount            `json:"overall"`
	ByCategory map[string][]aggregate.SkillCount `json:"by_category"`
	ByDate     map[string][]aggregate.SkillCount `json:"by_date"`
}

// Exporter writes signal JSON files and the run report. Every file is
// written to a temp file first and renamed into place, so consumers never
// observe a half-written signal.
type Exporter struct {
	dir string
}

// NewExporter creates an exporter targeting dir.
func NewExporter(dir string) *Exporter {
	return &Exporter{dir: dir}
}

// Export writes the full signal set. Any failure is returned to the caller;
// a run whose output cannot be published has not succeeded.
func (e *Exporter) Export(bundle *Bundle) error {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}

	files := []struct {
		name    string
		payload any
	}{
		{"trends.json", trendRows(bundle.Aggregate)},
		{"forecasts.json", forecastRows(bundle.Forecasts)},
		{"skills.json", skillsFrom(bundle.Aggregate)},
		{"companies.json", notNil(bundle.Aggregate.Companies)},
		{"alerts.json", notNil(bundle.Alerts)},
		{"momentum.json", bundle.Index},
		{"run.json", runSummary(bundle)},
	}

	for _, f := range files {
		if err := e.writeJSON(f.name, f.payload); err != nil {
			return err
		}
	}

	return e.writeReport(bundle)
}

func (e *Exporter) writeJSON(name string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", name, err)
	}
	return e.writeFile(name, append(data, '\n'))
}

func (e *Exporter) writeFile(name string, data []byte) error {
	final := filepath.Join(e.dir, name)
	tmp, err := os.CreateTemp(e.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", name, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("publishing %s: %w", name, err)
	}
	return nil
}

func trendRows(agg *aggregate.Aggregate) []trendRow {
	rows := []trendRow{}
	for _, category := range agg.Categories() {
		for _, point := range agg.Series[category] {
			rows = append(rows, trendRow{
				Category:  category,
				Date:      point.Date,
				Count:     point.Count,
				Rolling7:  point.Rolling7,
				Rolling30: point.Rolling30,
			})
		}
	}
	return rows
}

func forecastRows(forecasts map[string][]forecast.Point) []forecastRow {
	rows := []forecastRow{}
	categories := make([]string, 0, len(forecasts))
	for c := range forecasts {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	for _, category := range categories {
		for _, point := range forecasts[category] {
			rows = append(rows, forecastRow{
				Category: category,
				Date:     point.Date,
				Forecast: point.Forecast,
				Lower:    point.Lower,
				Upper:    point.Upper,
			})
		}
	}
	return rows
}

func skillsFrom(agg *aggregate.Aggregate) skillsPayload {
	payload := skillsPayload{
		Overall:    notNil(agg.Skills.Overall),
		ByCategory: map[string][]aggregate.SkillCount{},
		ByDate:     map[string][]aggregate.SkillCount{},
	}
	for category, skills := range agg.Skills.ByCategory {
		payload.ByCategory[category] = notNil(skills)
	}
	for date, skills := range agg.Skills.ByDate {
		payload.ByDate[date] = notNil(skills)
	}
	return payload
}

func runSummary(bundle *Bundle) RunSummary {
	summary := bundle.Summary
	if summary.Sources == nil {
		summary.Sources = []SourceStatus{}
	}
	summary.AlertCount = len(bundle.Alerts)
	return summary
}

// notNil keeps empty arrays encoding as [] instead of null.
func notNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
