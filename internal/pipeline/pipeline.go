package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/peterhagen/jobpulse/internal/aggregate"
	"github.com/peterhagen/jobpulse/internal/anomaly"
	"github.com/peterhagen/jobpulse/internal/clean"
	"github.com/peterhagen/jobpulse/internal/config"
	"github.com/peterhagen/jobpulse/internal/database"
	"github.com/peterhagen/jobpulse/internal/enrich"
	"github.com/peterhagen/jobpulse/internal/export"
	"github.com/peterhagen/jobpulse/internal/fetch"
	"github.com/peterhagen/jobpulse/internal/forecast"
	"github.com/peterhagen/jobpulse/internal/ingest"
	"github.com/peterhagen/jobpulse/internal/llm"
	"github.com/peterhagen/jobpulse/internal/momentum"
	"github.com/peterhagen/jobpulse/internal/source"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	Day      string
	RunID    string
	Degraded bool
	Steps    []StepResult
}

// Pipeline orchestrates the daily signal run: collect, normalize, enrich,
// aggregate, forecast, detect, score, export.
type Pipeline struct {
	cfg        *config.Config
	db         *database.DB
	adapters   []source.Adapter
	provider   llm.Provider
	embedder   llm.Embedder
	forecaster forecast.Forecaster
}

// New creates a pipeline from configuration.
func New(cfg *config.Config, db *database.DB) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		db:       db,
		adapters: Adapters(cfg),
	}

	enr := cfg.Enrichment
	if enr.LLMTagging {
		p.provider = llm.CreateProvider(enr.Provider, enr.Model, enr.OllamaURL,
			enr.OpenAIModel, enr.APIKeyEnv)
	}
	if enr.Clustering {
		ollamaURL := enr.OllamaURL
		if ollamaURL == "" {
			ollamaURL = "http://localhost:11434"
		}
		embModel := enr.EmbeddingModel
		if embModel == "" {
			embModel = "nomic-embed-text"
		}
		p.embedder = llm.NewOllamaEmbedder(embModel, ollamaURL)
	}
	if cfg.Forecast.ServiceURL != "" {
		p.forecaster = forecast.NewServiceClient(cfg.Forecast.ServiceURL)
	}

	return p
}

// Adapters builds the source adapters enabled in the configuration, in
// configuration order.
func Adapters(cfg *config.Config) []source.Adapter {
	var adapters []source.Adapter
	apis := cfg.Sources.APIs
	if apis.JSearch.Enabled {
		adapters = append(adapters, source.NewJSearchClient(
			apis.JSearch.APIKeyEnv, apis.JSearch.Host, apis.JSearch.Query, apis.JSearch.Pages))
	}
	if apis.USAJobs.Enabled {
		adapters = append(adapters, source.NewUSAJobsClient(
			apis.USAJobs.APIKeyEnv, apis.USAJobs.UserAgent, apis.USAJobs.Query, apis.USAJobs.Pages))
	}
	if len(cfg.Sources.Feeds) > 0 {
		feeds := make([]source.FeedConfig, len(cfg.Sources.Feeds))
		for i, f := range cfg.Sources.Feeds {
			feeds[i] = source.FeedConfig{URL: f.URL, Name: f.Name}
		}
		adapters = append(adapters, source.NewFeedAdapter(feeds, cfg.Signals.FeedWindowDays))
	}
	return adapters
}

// Run executes the full pipeline for one fetch day.
func (p *Pipeline) Run(ctx context.Context, day string) *Result {
	r := &Result{Day: day, RunID: uuid.NewString()}

	// Step 1: Collect
	collected, step := p.runCollect(ctx, day)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}
	r.Degraded = collected.Degraded

	// Step 2: Fetch descriptions
	r.Steps = append(r.Steps, p.runFetch())

	// Step 3: Normalize
	normalized, step := p.runNormalize(ctx)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	// Step 4: Enrich
	enriched, step := p.runEnrich(ctx, normalized)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	// Step 5: Aggregate
	agg := aggregate.Build(enriched)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Aggregate",
		Summary: fmt.Sprintf("Built %d category series from %d postings", len(agg.Series), len(enriched)),
	})

	// Stored forecasts are scored against realized counts before new ones
	// replace them.
	storedForecasts, err := p.db.GetAllForecasts()
	if err != nil {
		log.Printf("loading stored forecasts: %v", err)
	}

	// Step 6: Forecast
	forecasts, step := p.runForecast(ctx, agg)
	r.Steps = append(r.Steps, step)

	// Step 7: Detect anomalies
	alerts := p.detector().Detect(agg)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Detect",
		Summary: fmt.Sprintf("Raised %d alerts", len(alerts)),
	})

	// Step 8: Score momentum
	index := momentum.NewScorer(nil).Score(momentum.Inputs{
		Aggregate:       agg,
		Alerts:          alerts,
		StoredForecasts: storedForecasts,
	})
	r.Steps = append(r.Steps, StepResult{
		Name:    "Score",
		Summary: fmt.Sprintf("Momentum %.1f (%s %s)", index.Score, index.Label, index.Emoji),
	})

	// Step 9: Export
	step = p.runExport(collected, agg, forecasts, alerts, index, r)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	if err := p.db.InsertRunReport(database.RunReport{
		ID:            r.RunID,
		FetchDay:      day,
		Degraded:      r.Degraded,
		PostingCount:  len(collected.Postings),
		AlertCount:    len(alerts),
		MomentumScore: index.Score,
	}); err != nil {
		log.Printf("recording run report: %v", err)
	}

	return r
}

func (p *Pipeline) runCollect(ctx context.Context, day string) (*ingest.Result, StepResult) {
	log.Println("Step 1/9: Collecting postings...")
	orch := ingest.NewOrchestrator(p.db, p.adapters, 0)
	result, err := orch.Run(ctx, day)
	if err != nil {
		return nil, StepResult{Name: "Collect", Err: err}
	}

	summary := fmt.Sprintf("Collected %d postings (%d new) from %d sources",
		len(result.Postings), result.Inserted, len(result.Sources))
	if result.Degraded {
		summary = fmt.Sprintf("All sources failed; reusing %d postings from previous batch", len(result.Postings))
	}
	return result, StepResult{Name: "Collect", Summary: summary}
}

func (p *Pipeline) runFetch() StepResult {
	log.Println("Step 2/9: Fetching descriptions...")
	if !p.cfg.Enrichment.FetchDescriptions {
		return StepResult{Name: "Fetch", Summary: "Description fetching disabled"}
	}
	fetcher := fetch.NewDescriptionFetcher(p.db, 15*time.Second)
	result := fetcher.FetchMissingDescriptions()
	return StepResult{
		Name:    "Fetch",
		Summary: fmt.Sprintf("Fetched %d descriptions, %d failed", result.Fetched, result.Failed),
	}
}

func (p *Pipeline) runNormalize(ctx context.Context) ([]clean.NormalizedPosting, StepResult) {
	log.Println("Step 3/9: Normalizing corpus...")
	postings, err := p.db.GetAllPostings()
	if err != nil {
		return nil, StepResult{Name: "Normalize", Err: err}
	}

	var geocoder clean.Geocoder
	if p.cfg.Enrichment.Geocoding {
		geocoder = clean.NewNominatimClient(p.cfg.Enrichment.GeocoderURL)
	}
	normalizer := clean.NewNormalizer(geocoder)
	normalized := normalizer.NormalizeAll(postings)
	if geocoder != nil {
		normalizer.Geocode(ctx, normalized)
	}

	return normalized, StepResult{
		Name:    "Normalize",
		Summary: fmt.Sprintf("%d postings after dedupe (%d raw)", len(normalized), len(postings)),
	}
}

func (p *Pipeline) runEnrich(ctx context.Context, postings []clean.NormalizedPosting) ([]enrich.EnrichedPosting, StepResult) {
	log.Println("Step 4/9: Enriching postings...")
	pattern, err := enrich.NewPatternTagger()
	if err != nil {
		return nil, StepResult{Name: "Enrich", Err: err}
	}

	taggers := []enrich.Tagger{pattern}
	if p.provider != nil {
		taggers = append(taggers, enrich.NewLLMTagger(p.provider))
	}

	var assigner enrich.Assigner = enrich.NewKeywordAssigner()
	if p.embedder != nil {
		assigner = &fallbackAssigner{
			primary:  enrich.NewClusterAssigner(p.embedder, p.cfg.Enrichment.Clusters),
			fallback: enrich.NewKeywordAssigner(),
		}
	}

	enriched, err := enrich.NewEnricher(assigner, taggers...).Enrich(ctx, postings)
	if err != nil {
		return nil, StepResult{Name: "Enrich", Err: err}
	}
	return enriched, StepResult{
		Name:    "Enrich",
		Summary: fmt.Sprintf("Tagged and categorized %d postings", len(enriched)),
	}
}

func (p *Pipeline) runForecast(ctx context.Context, agg *aggregate.Aggregate) (map[string][]forecast.Point, StepResult) {
	log.Println("Step 6/9: Forecasting categories...")
	if p.forecaster == nil {
		return nil, StepResult{Name: "Forecast", Summary: "No forecast service configured"}
	}

	runner := forecast.NewRunner(p.forecaster, p.cfg.Forecast.Horizon, p.cfg.Forecast.MinHistory)
	forecasts := runner.Run(ctx, agg)

	for category, points := range forecasts {
		stored := make([]database.Forecast, len(points))
		for i, point := range points {
			stored[i] = database.Forecast{
				Date:     point.Date,
				Category: category,
				Forecast: point.Forecast,
				Lower:    point.Lower,
				Upper:    point.Upper,
			}
		}
		if err := p.db.ReplaceCategoryForecasts(category, stored); err != nil {
			log.Printf("storing forecasts for %s: %v", category, err)
		}
	}

	return forecasts, StepResult{
		Name:    "Forecast",
		Summary: fmt.Sprintf("Forecast %d categories", len(forecasts)),
	}
}

func (p *Pipeline) runExport(collected *ingest.Result, agg *aggregate.Aggregate,
	forecasts map[string][]forecast.Point, alerts []anomaly.Alert,
	index *momentum.Index, r *Result) StepResult {

	log.Println("Step 9/9: Exporting signals...")
	sources := make([]export.SourceStatus, len(collected.Sources))
	for i, sr := range collected.Sources {
		sources[i] = export.SourceStatus{
			Name:     sr.Name,
			OK:       sr.Err == nil,
			Reason:   sr.Reason(),
			Postings: sr.Count,
		}
	}

	bundle := &export.Bundle{
		Summary: export.RunSummary{
			RunID:        r.RunID,
			FetchDay:     r.Day,
			GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
			Degraded:     r.Degraded,
			PostingCount: len(collected.Postings),
			Sources:      sources,
		},
		Aggregate: agg,
		Forecasts: forecasts,
		Alerts:    alerts,
		Index:     index,
	}

	exporter := export.NewExporter(p.cfg.GetExportDir())
	if err := exporter.Export(bundle); err != nil {
		return StepResult{Name: "Export", Err: err}
	}
	return StepResult{
		Name:    "Export",
		Summary: fmt.Sprintf("Wrote signals to %s", p.cfg.GetExportDir()),
	}
}

func (p *Pipeline) detector() *anomaly.Detector {
	thresholds := anomaly.DefaultThresholds()
	sig := p.cfg.Signals
	if sig.SpikeZScore > 0 {
		thresholds.SpikeZ = sig.SpikeZScore
	}
	if sig.HighZScore > 0 {
		thresholds.HighZ = sig.HighZScore
	}
	if sig.BaselineDays > 0 {
		thresholds.BaselineDays = sig.BaselineDays
	}
	if sig.SkillGrowthPct > 0 {
		thresholds.SkillGrowthPct = sig.SkillGrowthPct
	}
	return anomaly.NewDetector(thresholds)
}

// fallbackAssigner tries embedding-based clustering and falls back to
// keyword rules when the embedder is unreachable.
type fallbackAssigner struct {
	primary  enrich.Assigner
	fallback enrich.Assigner
}

func (a *fallbackAssigner) Assign(ctx context.Context, postings []clean.NormalizedPosting) ([]string, error) {
	labels, err := a.primary.Assign(ctx, postings)
	if err == nil {
		return labels, nil
	}
	log.Printf("clustering unavailable, using keyword categories: %v", err)
	return a.fallback.Assign(ctx, postings)
}
