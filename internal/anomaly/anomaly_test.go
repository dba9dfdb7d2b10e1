package anomaly

import (
	"fmt"
	"testing"

	"github.com/peterhagen/jobpulse/internal/aggregate"
)

// seriesAgg builds an aggregate whose overall series has the given counts on
// consecutive January dates.
func seriesAgg(counts ...int) *aggregate.Aggregate {
	series := make([]aggregate.DailyCount, len(counts))
	for i, c := range counts {
		series[i] = aggregate.DailyCount{
			Date:  fmt.Sprintf("2026-01-%02d", i+1),
			Count: c,
		}
	}
	return &aggregate.Aggregate{
		Series: map[string][]aggregate.DailyCount{aggregate.OverallCategory: series},
		Skills: aggregate.SkillSummary{Daily: map[string]map[string]int{}},
	}
}

func baseline(a, b int) []int {
	var counts []int
	for i := 0; i < 7; i++ {
		counts = append(counts, a, b)
	}
	return counts
}

func TestDetectSpike(t *testing.T) {
	// Baseline alternates 10/14: mean 12, sample stddev ~2.08. A final day
	// far above that must be flagged as a high-severity spike.
	counts := append(baseline(10, 14), 30)
	alerts := NewDetector(DefaultThresholds()).Detect(seriesAgg(counts...))

	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	if alerts[0].Type != TypeSpike {
		t.Errorf("expected spike, got %s", alerts[0].Type)
	}
	if alerts[0].Severity != SeverityHigh {
		t.Errorf("expected high severity, got %s", alerts[0].Severity)
	}
	if alerts[0].Date != "2026-01-15" {
		t.Errorf("expected latest date flagged, got %s", alerts[0].Date)
	}
}

func TestDetectDrop(t *testing.T) {
	counts := append(baseline(10, 14), 1)
	alerts := NewDetector(DefaultThresholds()).Detect(seriesAgg(counts...))

	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	if alerts[0].Type != TypeDrop {
		t.Errorf("expected drop, got %s", alerts[0].Type)
	}
	if alerts[0].ZScore >= 0 {
		t.Errorf("expected negative z-score, got %v", alerts[0].ZScore)
	}
}

func TestDetectSpikeMidSeries(t *testing.T) {
	// A spike buried in history must be flagged even when the newest day is
	// ordinary. Once past, the spike widens later baselines instead of
	// triggering again.
	counts := make([]int, 20)
	for i := range counts {
		counts[i] = 10
	}
	counts[16] = 100

	alerts := NewDetector(DefaultThresholds()).Detect(seriesAgg(counts...))
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %v", alerts)
	}
	if alerts[0].Type != TypeSpike || alerts[0].Date != "2026-01-17" {
		t.Errorf("expected spike on 2026-01-17, got %+v", alerts[0])
	}
	if alerts[0].Severity != SeverityHigh {
		t.Errorf("expected high severity, got %s", alerts[0].Severity)
	}
}

func TestDetectMultipleAnomalousDays(t *testing.T) {
	// Independent anomalies in the same series each get their own alert.
	counts := append(baseline(10, 14), 30, 10, 12, 14, 10, 14, 10, 1)
	alerts := NewDetector(DefaultThresholds()).Detect(seriesAgg(counts...))

	var spikes, drops int
	for _, alert := range alerts {
		switch alert.Type {
		case TypeSpike:
			spikes++
		case TypeDrop:
			drops++
		}
	}
	if spikes == 0 || drops == 0 {
		t.Errorf("expected both a spike and a drop, got %v", alerts)
	}
}

func TestFlatSeriesNeverFlagged(t *testing.T) {
	// Constant series has zero deviation; no day can be anomalous.
	counts := make([]int, 20)
	for i := range counts {
		counts[i] = 10
	}
	alerts := NewDetector(DefaultThresholds()).Detect(seriesAgg(counts...))
	if len(alerts) != 0 {
		t.Errorf("expected no alerts for flat series, got %v", alerts)
	}
}

func TestBaselineValueNotFlagged(t *testing.T) {
	// A final day equal to the baseline mean is ordinary.
	counts := append(baseline(10, 14), 12)
	alerts := NewDetector(DefaultThresholds()).Detect(seriesAgg(counts...))
	if len(alerts) != 0 {
		t.Errorf("expected no alerts, got %v", alerts)
	}
}

func TestTooShortSeriesSkipped(t *testing.T) {
	alerts := NewDetector(DefaultThresholds()).Detect(seriesAgg(10, 12, 50))
	if len(alerts) != 0 {
		t.Errorf("expected no alerts with a short baseline, got %v", alerts)
	}
}

func TestSeveritySteps(t *testing.T) {
	tests := []struct {
		value    int
		severity string
	}{
		{17, SeverityLow},    // z ~2.4
		{18, SeverityMedium}, // z ~2.9
		{19, SeverityHigh},   // z ~3.4
	}
	for _, tt := range tests {
		counts := append(baseline(10, 14), tt.value)
		alerts := NewDetector(DefaultThresholds()).Detect(seriesAgg(counts...))
		if len(alerts) != 1 {
			t.Fatalf("value %d: expected 1 alert, got %d", tt.value, len(alerts))
		}
		if alerts[0].Severity != tt.severity {
			t.Errorf("value %d: expected %s, got %s (z=%.2f)",
				tt.value, tt.severity, alerts[0].Severity, alerts[0].ZScore)
		}
	}
}

func TestSkillTrendDetection(t *testing.T) {
	agg := seriesAgg(baseline(10, 10)...)

	// "go" grows 60% week over week, "java" is flat.
	agg.Skills.Daily["go"] = map[string]int{}
	agg.Skills.Daily["java"] = map[string]int{}
	for i := 1; i <= 7; i++ {
		agg.Skills.Daily["go"][fmt.Sprintf("2026-01-%02d", i)] = 5
		agg.Skills.Daily["java"][fmt.Sprintf("2026-01-%02d", i)] = 5
	}
	for i := 8; i <= 14; i++ {
		agg.Skills.Daily["go"][fmt.Sprintf("2026-01-%02d", i)] = 8
		agg.Skills.Daily["java"][fmt.Sprintf("2026-01-%02d", i)] = 5
	}

	alerts := NewDetector(DefaultThresholds()).Detect(agg)
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %v", alerts)
	}
	if alerts[0].Type != TypeSkillTrend || alerts[0].Skill != "go" {
		t.Errorf("unexpected alert: %+v", alerts[0])
	}
	if alerts[0].Severity != SeverityLow {
		t.Errorf("expected low severity for 60%% growth, got %s", alerts[0].Severity)
	}
}

func TestSkillTrendNeedsTwoWeeks(t *testing.T) {
	agg := seriesAgg(10, 10, 10, 10, 10, 10, 10) // only 7 observed days
	agg.Skills.Daily["go"] = map[string]int{"2026-01-07": 100}

	alerts := NewDetector(DefaultThresholds()).Detect(agg)
	if len(alerts) != 0 {
		t.Errorf("expected no skill alerts with one week of data, got %v", alerts)
	}
}

func TestSkillTrendSeverity(t *testing.T) {
	if growthSeverity(250) != SeverityHigh {
		t.Error("expected high for 250% growth")
	}
	if growthSeverity(150) != SeverityMedium {
		t.Error("expected medium for 150% growth")
	}
	if growthSeverity(60) != SeverityLow {
		t.Error("expected low for 60% growth")
	}
}
