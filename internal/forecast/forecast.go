package forecast

import (
	"context"
	"log"

	"github.com/peterhagen/jobpulse/internal/aggregate"
)

// DefaultMinHistory is the minimum number of observed days a category needs
// before it is worth forecasting.
const DefaultMinHistory = 10

// DefaultHorizon is the number of days forecast ahead.
const DefaultHorizon = 7

// Point is one forecast day with its uncertainty interval.
type Point struct {
	Date     string  `json:"date"`
	Forecast float64 `json:"forecast"`
	Lower    float64 `json:"lower"`
	Upper    float64 `json:"upper"`
}

// Forecaster produces future points from an observed daily series.
type Forecaster interface {
	Forecast(ctx context.Context, history []aggregate.DailyCount, horizon int) ([]Point, error)
}

// Runner forecasts every category series that clears the history gate.
type Runner struct {
	forecaster Forecaster
	horizon    int
	minHistory int
}

// NewRunner creates a forecast runner. Zero horizon or minHistory fall back
// to the defaults.
func NewRunner(forecaster Forecaster, horizon, minHistory int) *Runner {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	if minHistory <= 0 {
		minHistory = DefaultMinHistory
	}
	return &Runner{forecaster: forecaster, horizon: horizon, minHistory: minHistory}
}

// Run forecasts each category with enough history. Categories below the gate
// are silently skipped; a failing service call skips that category and the
// run carries on, since forecasts are an optional signal.
func (r *Runner) Run(ctx context.Context, agg *aggregate.Aggregate) map[string][]Point {
	results := make(map[string][]Point)
	if r.forecaster == nil {
		return results
	}

	for _, category := range agg.Categories() {
		series := agg.Series[category]
		if len(series) < r.minHistory {
			continue
		}

		points, err := r.forecaster.Forecast(ctx, series, r.horizon)
		if err != nil {
			log.Printf("forecasting %s: %v", category, err)
			continue
		}
		if len(points) == 0 {
			continue
		}

		// Posting counts cannot go negative.
		for i := range points {
			if points[i].Forecast < 0 {
				points[i].Forecast = 0
			}
			if points[i].Lower < 0 {
				points[i].Lower = 0
			}
			if points[i].Upper < 0 {
				points[i].Upper = 0
			}
		}
		results[category] = points
	}
	return results
}
