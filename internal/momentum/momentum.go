package momentum

import (
	"fmt"
	"math"

	"github.com/peterhagen/jobpulse/internal/aggregate"
	"github.com/peterhagen/jobpulse/internal/anomaly"
	"github.com/peterhagen/jobpulse/internal/database"
)

// Component names, in scoring order. Ties between equally weak components
// resolve to the earlier name.
const (
	ComponentPostingVelocity  = "posting_velocity"
	ComponentSkillVelocity    = "skill_velocity"
	ComponentForecastAccuracy = "forecast_accuracy"
	ComponentMarketActivity   = "market_activity"
	ComponentCompanyDiversity = "company_diversity"
)

var componentOrder = []string{
	ComponentPostingVelocity,
	ComponentSkillVelocity,
	ComponentForecastAccuracy,
	ComponentMarketActivity,
	ComponentCompanyDiversity,
}

// Weights maps components to their share of the overall score.
type Weights map[string]float64

// DefaultWeights returns the standard component weighting.
func DefaultWeights() Weights {
	return Weights{
		ComponentPostingVelocity:  0.30,
		ComponentSkillVelocity:    0.25,
		ComponentForecastAccuracy: 0.20,
		ComponentMarketActivity:   0.15,
		ComponentCompanyDiversity: 0.10,
	}
}

// Component is one scored dimension of the index.
type Component struct {
	Name         string  `json:"name"`
	Score        float64 `json:"score"`
	Weight       float64 `json:"weight"`
	Insufficient bool    `json:"insufficient_data"`
	Detail       string  `json:"detail"`
}

// Index is the composite market momentum result.
type Index struct {
	Score          float64     `json:"score"`
	Label          string      `json:"label"`
	Emoji          string      `json:"emoji"`
	Description    string      `json:"description"`
	ForJobSeekers  string      `json:"for_job_seekers"`
	ForRecruiters  string      `json:"for_recruiters"`
	Components     []Component `json:"components"`
	Recommendation string      `json:"recommendation"`
}

// Inputs carries everything scoring needs. StoredForecasts are the
// predictions persisted by an earlier run, scored against what actually
// happened since.
type Inputs struct {
	Aggregate       *aggregate.Aggregate
	Alerts          []anomaly.Alert
	StoredForecasts []database.Forecast
}

// Scorer computes the momentum index.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer. Nil weights use the defaults.
func NewScorer(weights Weights) *Scorer {
	if weights == nil {
		weights = DefaultWeights()
	}
	return &Scorer{weights: weights}
}

// Score computes the index as the weighted sum of all five components.
// Components without enough data score a neutral 50 and stay in the sum,
// so an all-insufficient corpus lands exactly at 50.
func (s *Scorer) Score(in Inputs) *Index {
	components := []Component{
		s.postingVelocity(in),
		s.skillVelocity(in),
		s.forecastAccuracy(in),
		s.marketActivity(in),
		s.companyDiversity(in),
	}
	for i := range components {
		components[i].Weight = s.weights[components[i].Name]
	}

	var score float64
	for _, c := range components {
		score += c.Score * c.Weight
	}

	interp := bucket(score)
	return &Index{
		Score:          round1(score),
		Label:          interp.Label,
		Emoji:          interp.Emoji,
		Description:    interp.Description,
		ForJobSeekers:  interp.ForJobSeekers,
		ForRecruiters:  interp.ForRecruiters,
		Components:     components,
		Recommendation: recommend(components, in.Alerts),
	}
}

// postingVelocity compares overall posting volume of the last seven observed
// days against the seven before.
func (s *Scorer) postingVelocity(in Inputs) Component {
	c := Component{Name: ComponentPostingVelocity}
	overall := in.Aggregate.Overall()
	if len(overall) < 14 {
		return insufficient(c, "needs at least 14 days of history")
	}

	recent := sumCounts(overall[len(overall)-7:])
	prior := sumCounts(overall[len(overall)-14 : len(overall)-7])
	if prior == 0 {
		return insufficient(c, "no postings in the prior week")
	}

	change := 100 * float64(recent-prior) / float64(prior)
	c.Score = clamp(50 + change)
	c.Detail = fmt.Sprintf("%+.1f%% week over week (%d vs %d postings)", change, recent, prior)
	return c
}

// skillVelocity rewards the number of skills trending week over week.
func (s *Scorer) skillVelocity(in Inputs) Component {
	c := Component{Name: ComponentSkillVelocity}
	if len(in.Aggregate.Overall()) < 14 {
		return insufficient(c, "needs at least 14 days of history")
	}

	trending := 0
	for _, alert := range in.Alerts {
		if alert.Type == anomaly.TypeSkillTrend {
			trending++
		}
	}
	if trending > 10 {
		trending = 10
	}

	c.Score = math.Min(100, 30+7*float64(trending))
	c.Detail = fmt.Sprintf("%d skills trending", trending)
	return c
}

// forecastAccuracy scores stored overall forecasts against realized counts.
func (s *Scorer) forecastAccuracy(in Inputs) Component {
	c := Component{Name: ComponentForecastAccuracy}

	realized := make(map[string]int)
	for _, point := range in.Aggregate.Overall() {
		realized[point.Date] = point.Count
	}

	var absPctSum float64
	pairs := 0
	for _, f := range in.StoredForecasts {
		if f.Category != aggregate.OverallCategory {
			continue
		}
		actual, ok := realized[f.Date]
		if !ok || actual == 0 {
			continue
		}
		absPctSum += math.Abs(f.Forecast-float64(actual)) / float64(actual)
		pairs++
	}

	if pairs == 0 {
		return insufficient(c, "no forecasts have come due")
	}

	mape := 100 * absPctSum / float64(pairs)
	c.Score = clamp(100 - 2.5*mape)
	c.Detail = fmt.Sprintf("MAPE %.1f%% over %d matched days", mape, pairs)
	return c
}

// marketActivity rewards spikes and penalizes drops.
func (s *Scorer) marketActivity(in Inputs) Component {
	c := Component{Name: ComponentMarketActivity}
	if len(in.Aggregate.Overall()) < 14 {
		return insufficient(c, "needs at least 14 days of history")
	}

	spikes, drops := 0, 0
	for _, alert := range in.Alerts {
		switch alert.Type {
		case anomaly.TypeSpike:
			spikes++
		case anomaly.TypeDrop:
			drops++
		}
	}

	c.Score = clamp(30 + 14*float64(spikes) - 10*float64(drops))
	c.Detail = fmt.Sprintf("%d spikes, %d drops", spikes, drops)
	return c
}

// companyDiversity scores how many distinct companies are hiring; 50 or
// more scores full marks.
func (s *Scorer) companyDiversity(in Inputs) Component {
	c := Component{Name: ComponentCompanyDiversity}
	unique := len(in.Aggregate.Companies)
	if unique == 0 {
		return insufficient(c, "no company data")
	}

	c.Score = math.Min(100, 100*float64(unique)/50)
	c.Detail = fmt.Sprintf("%d unique companies", unique)
	return c
}

// interpretation is the human framing of a score bucket, including the
// audience-specific readings exported alongside the number.
type interpretation struct {
	Label         string
	Emoji         string
	Description   string
	ForJobSeekers string
	ForRecruiters string
}

func bucket(score float64) interpretation {
	switch {
	case score >= 80:
		return interpretation{
			Label:         "Hot",
			Emoji:         "🔥",
			Description:   "Strong momentum with high growth, emerging skills, and active hiring",
			ForJobSeekers: "Excellent time to negotiate salary and benefits. Leverage demand.",
			ForRecruiters: "Expect competitive hiring. Move fast on top candidates.",
		}
	case score >= 60:
		return interpretation{
			Label:         "Growing",
			Emoji:         "📈",
			Description:   "Positive trends with steady expansion and new opportunities",
			ForJobSeekers: "Good time to explore opportunities. Market favors candidates.",
			ForRecruiters: "Normal hiring cycles. Focus on employer brand.",
		}
	case score >= 40:
		return interpretation{
			Label:         "Stable",
			Emoji:         "➡️",
			Description:   "Moderate activity with predictable patterns",
			ForJobSeekers: "Standard job search timeline. Focus on fit over timing.",
			ForRecruiters: "Balanced market. Emphasize culture and growth opportunities.",
		}
	case score >= 20:
		return interpretation{
			Label:         "Cooling",
			Emoji:         "📉",
			Description:   "Slowing growth with fewer new opportunities",
			ForJobSeekers: "Longer search timelines expected. Network actively.",
			ForRecruiters: "Candidate pool expanding. Take time with decisions.",
		}
	default:
		return interpretation{
			Label:         "Cold",
			Emoji:         "❄️",
			Description:   "Low momentum with declining opportunities",
			ForJobSeekers: "Focus on upskilling and wait for market rebound.",
			ForRecruiters: "Hiring freeze or highly selective. Focus on retention.",
		}
	}
}

// insufficient marks a component unscoreable; it still enters the overall
// sum at the neutral 50.
func insufficient(c Component, detail string) Component {
	c.Score = 50
	c.Insufficient = true
	c.Detail = detail
	return c
}

// recommend names the weakest scored component and what to watch because of
// it. With nothing scoreable there is nothing to recommend against.
func recommend(components []Component, alerts []anomaly.Alert) string {
	byName := make(map[string]Component, len(components))
	for _, c := range components {
		byName[c.Name] = c
	}

	weakest := ""
	for _, name := range componentOrder {
		c := byName[name]
		if c.Insufficient {
			continue
		}
		if weakest == "" || c.Score < byName[weakest].Score {
			weakest = name
		}
	}
	if weakest == "" {
		return "Not enough data yet; keep collecting daily batches."
	}

	switch weakest {
	case ComponentPostingVelocity:
		return "Posting volume is the weakest signal; watch whether this week's slowdown continues."
	case ComponentSkillVelocity:
		if skill := fastestGrowingSkill(alerts); skill != "" {
			return fmt.Sprintf("Skill demand is shifting slowly; %s is the fastest mover worth tracking.", skill)
		}
		return "Few skills are trending; demand is settled for now."
	case ComponentForecastAccuracy:
		return "Forecasts have been missing; treat projected counts with caution."
	case ComponentMarketActivity:
		return "Recent drops outweigh spikes; expect a quieter market short term."
	default:
		return "Hiring is concentrated in few companies; a single employer pausing would move the numbers."
	}
}

func fastestGrowingSkill(alerts []anomaly.Alert) string {
	best := ""
	bestGrowth := 0.0
	for _, alert := range alerts {
		if alert.Type == anomaly.TypeSkillTrend && alert.Growth > bestGrowth {
			best = alert.Skill
			bestGrowth = alert.Growth
		}
	}
	return best
}

func sumCounts(series []aggregate.DailyCount) int {
	sum := 0
	for _, point := range series {
		sum += point.Count
	}
	return sum
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
