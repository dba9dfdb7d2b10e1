package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Sources    Sources    `yaml:"sources"`
	Enrichment Enrichment `yaml:"enrichment"`
	Forecast   Forecast   `yaml:"forecast"`
	Signals    Signals    `yaml:"signals"`
	Output     Output     `yaml:"output"`
	Logging    Logging    `yaml:"logging"`
}

type Sources struct {
	Feeds []Feed     `yaml:"feeds"`
	APIs  APIsConfig `yaml:"apis"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type APIsConfig struct {
	JSearch JSearchConfig `yaml:"jsearch"`
	USAJobs USAJobsConfig `yaml:"usajobs"`
}

type JSearchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	APIKeyEnv string `yaml:"api_key_env"`
	Host      string `yaml:"host"`
	Query     string `yaml:"query"`
	Pages     int    `yaml:"pages"`
}

type USAJobsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	APIKeyEnv string `yaml:"api_key_env"`
	UserAgent string `yaml:"user_agent"`
	Query     string `yaml:"query"`
	Pages     int    `yaml:"pages"`
}

type Enrichment struct {
	Provider          string `yaml:"provider"`
	Model             string `yaml:"model"`
	OllamaURL         string `yaml:"ollama_url"`
	EmbeddingModel    string `yaml:"embedding_model"`
	OpenAIModel       string `yaml:"openai_model"`
	APIKeyEnv         string `yaml:"api_key_env"`
	LLMTagging        bool   `yaml:"llm_tagging"`
	Clustering        bool   `yaml:"clustering"`
	Clusters          int    `yaml:"clusters"`
	FetchDescriptions bool   `yaml:"fetch_descriptions"`
	Geocoding         bool   `yaml:"geocoding"`
	GeocoderURL       string `yaml:"geocoder_url"`
}

type Forecast struct {
	ServiceURL string `yaml:"service_url"`
	Horizon    int    `yaml:"horizon"`
	MinHistory int    `yaml:"min_history"`
}

type Signals struct {
	SpikeZScore     float64 `yaml:"spike_z_score"`
	HighZScore      float64 `yaml:"high_z_score"`
	SkillGrowthPct  float64 `yaml:"skill_growth_pct"`
	BaselineDays    int     `yaml:"baseline_days"`
	FeedWindowDays  int     `yaml:"feed_window_days"`
}

type Output struct {
	DataDir   string `yaml:"data_dir"`
	ExportDir string `yaml:"export_dir"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for jobpulse.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "jobpulse")
}

// DataDir returns the XDG data directory for jobpulse.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "jobpulse")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/jobpulse/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'jobpulse init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file. API keys come from the
// environment, so a .env file next to the working directory is loaded
// first if present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Sources: Sources{
			APIs: APIsConfig{
				JSearch: JSearchConfig{
					Enabled:   true,
					APIKeyEnv: "RAPIDAPI_KEY",
					Host:      "jsearch.p.rapidapi.com",
					Query:     "software engineer",
					Pages:     5,
				},
				USAJobs: USAJobsConfig{
					Enabled:   true,
					APIKeyEnv: "USAJOBS_API_KEY",
					UserAgent: "jobpulse/1.0",
					Query:     "software",
					Pages:     5,
				},
			},
		},
		Enrichment: Enrichment{
			Provider:       "ollama",
			Model:          "qwen2.5:7b",
			OllamaURL:      "http://localhost:11434",
			EmbeddingModel: "nomic-embed-text",
			OpenAIModel:    "gpt-4o-mini",
			APIKeyEnv:      "OPENAI_API_KEY",
			Clusters:       8,
			GeocoderURL:    "https://nominatim.openstreetmap.org",
		},
		Forecast: Forecast{
			Horizon:    7,
			MinHistory: 10,
		},
		Signals: Signals{
			SpikeZScore:    2.0,
			HighZScore:     3.0,
			SkillGrowthPct: 50,
			BaselineDays:   14,
			FeedWindowDays: 7,
		},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// GetExportDir returns the directory exported signal files are written to.
func (c *Config) GetExportDir() string {
	if c.Output.ExportDir != "" {
		return c.Output.ExportDir
	}
	return filepath.Join(c.GetDataDir(), "export")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
