package anomaly

import (
	"fmt"
	"math"
	"sort"

	"github.com/peterhagen/jobpulse/internal/aggregate"
)

// Alert types.
const (
	TypeSpike      = "spike"
	TypeDrop       = "drop"
	TypeSkillTrend = "skill_trend"
)

// Severity levels.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Thresholds collects every tunable used by detection. Keeping them in one
// place makes runs reproducible from config alone.
type Thresholds struct {
	SpikeZ         float64 // |z| at which a day is anomalous
	MediumZ        float64 // |z| for medium severity
	HighZ          float64 // |z| for high severity
	BaselineDays   int     // observations needed before a day can be judged
	SkillGrowthPct float64 // week-over-week growth that makes a skill trending
}

// DefaultThresholds returns the standard detection thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SpikeZ:         2.0,
		MediumZ:        2.5,
		HighZ:          3.0,
		BaselineDays:   14,
		SkillGrowthPct: 50,
	}
}

// Alert is one detected anomaly.
type Alert struct {
	Type     string  `json:"type"`
	Category string  `json:"category,omitempty"`
	Skill    string  `json:"skill,omitempty"`
	Date     string  `json:"date"`
	Severity string  `json:"severity"`
	Value    float64 `json:"value"`
	Baseline float64 `json:"baseline"`
	ZScore   float64 `json:"z_score,omitempty"`
	Growth   float64 `json:"growth_pct,omitempty"`
	Message  string  `json:"message"`
}

// Detector finds volume anomalies and trending skills in an aggregate.
type Detector struct {
	thresholds Thresholds
}

// NewDetector creates a detector with the given thresholds.
func NewDetector(thresholds Thresholds) *Detector {
	if thresholds.BaselineDays <= 0 {
		thresholds = DefaultThresholds()
	}
	return &Detector{thresholds: thresholds}
}

// Detect runs volume and skill detection over an aggregate. Alerts are
// regenerated wholesale on each run and ordered by category then date,
// with skill trends last, so output is deterministic.
func (d *Detector) Detect(agg *aggregate.Aggregate) []Alert {
	var alerts []Alert
	for _, category := range agg.Categories() {
		alerts = append(alerts, d.checkSeries(category, agg.Series[category])...)
	}
	alerts = append(alerts, d.detectSkillTrends(agg)...)
	return alerts
}

// checkSeries judges every day with a full trailing baseline against the
// mean and sample standard deviation of the observations before it. The day
// under test never contributes to its own baseline.
func (d *Detector) checkSeries(category string, series []aggregate.DailyCount) []Alert {
	var alerts []Alert
	for i := d.thresholds.BaselineDays; i < len(series); i++ {
		day := series[i]
		mean, stddev := meanStddev(series[i-d.thresholds.BaselineDays : i])

		// The epsilon avoids dividing by zero on a flat baseline: a day
		// equal to that baseline scores z = 0, a day off it scores huge.
		z := (float64(day.Count) - mean) / (stddev + 1e-6)
		if math.Abs(z) < d.thresholds.SpikeZ {
			continue
		}

		alert := Alert{
			Category: category,
			Date:     day.Date,
			Severity: d.zSeverity(math.Abs(z)),
			Value:    float64(day.Count),
			Baseline: mean,
			ZScore:   z,
		}
		if z > 0 {
			alert.Type = TypeSpike
			alert.Message = fmt.Sprintf("%s postings spiked to %d on %s (baseline %.1f)",
				category, day.Count, day.Date, mean)
		} else {
			alert.Type = TypeDrop
			alert.Message = fmt.Sprintf("%s postings dropped to %d on %s (baseline %.1f)",
				category, day.Count, day.Date, mean)
		}
		alerts = append(alerts, alert)
	}
	return alerts
}

// detectSkillTrends compares each skill's mention volume over the most
// recent seven observed days against the seven before that.
func (d *Detector) detectSkillTrends(agg *aggregate.Aggregate) []Alert {
	dates := observedDates(agg)
	if len(dates) < 14 {
		return nil
	}
	recent := dates[len(dates)-7:]
	prior := dates[len(dates)-14 : len(dates)-7]

	skills := make([]string, 0, len(agg.Skills.Daily))
	for skill := range agg.Skills.Daily {
		skills = append(skills, skill)
	}
	sort.Strings(skills)

	var alerts []Alert
	for _, skill := range skills {
		daily := agg.Skills.Daily[skill]
		recentSum := sumOver(daily, recent)
		priorSum := sumOver(daily, prior)
		if priorSum == 0 {
			continue
		}

		growth := 100 * float64(recentSum-priorSum) / float64(priorSum)
		if growth <= d.thresholds.SkillGrowthPct {
			continue
		}

		alerts = append(alerts, Alert{
			Type:     TypeSkillTrend,
			Skill:    skill,
			Date:     recent[len(recent)-1],
			Severity: growthSeverity(growth),
			Value:    float64(recentSum),
			Baseline: float64(priorSum),
			Growth:   growth,
			Message: fmt.Sprintf("%s mentions grew %.0f%% week over week (%d vs %d)",
				skill, growth, recentSum, priorSum),
		})
	}
	return alerts
}

func (d *Detector) zSeverity(absZ float64) string {
	switch {
	case absZ >= d.thresholds.HighZ:
		return SeverityHigh
	case absZ >= d.thresholds.MediumZ:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func growthSeverity(growth float64) string {
	switch {
	case growth >= 200:
		return SeverityHigh
	case growth >= 100:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func meanStddev(series []aggregate.DailyCount) (float64, float64) {
	n := float64(len(series))
	var sum float64
	for _, point := range series {
		sum += float64(point.Count)
	}
	mean := sum / n

	if len(series) < 2 {
		return mean, 0
	}
	var ss float64
	for _, point := range series {
		diff := float64(point.Count) - mean
		ss += diff * diff
	}
	return mean, math.Sqrt(ss / (n - 1))
}

// observedDates returns every date with data in the overall series, sorted.
func observedDates(agg *aggregate.Aggregate) []string {
	overall := agg.Overall()
	dates := make([]string, len(overall))
	for i, point := range overall {
		dates[i] = point.Date
	}
	return dates
}

func sumOver(daily map[string]int, dates []string) int {
	sum := 0
	for _, date := range dates {
		sum += daily[date]
	}
	return sum
}
