package models

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration for a verification run. It is loaded
// once at startup and treated as immutable afterwards.
type Config struct {
	Workers int `yaml:"workers"`

	Fetch struct {
		TimeoutSeconds int     `yaml:"timeout_seconds"`
		MaxRedirects   int     `yaml:"max_redirects"`
		UserAgent      string  `yaml:"user_agent"`
		HostRPS        float64 `yaml:"host_rps"`
		CacheDir       string  `yaml:"cache_dir"`
		CacheMaxAge    string  `yaml:"cache_max_age"`
	} `yaml:"fetch"`

	Resolver struct {
		MaxDepth     int `yaml:"max_depth"`
		MinLinkScore int `yaml:"min_link_score"`
		TopK         int `yaml:"top_k"`
	} `yaml:"resolver"`

	Dates struct {
		MinConfidence float64 `yaml:"min_confidence"`
		MultiDayDays  int     `yaml:"multi_day_days"`
		YearsBack     int     `yaml:"years_back"`
		YearsForward  int     `yaml:"years_forward"`
	} `yaml:"dates"`

	Dupes struct {
		IngestSimilarity  float64 `yaml:"ingest_similarity"`
		CleanupSimilarity float64 `yaml:"cleanup_similarity"`
		DateToleranceDays int     `yaml:"date_tolerance_days"`
	} `yaml:"dupes"`

	Search struct {
		Endpoint   string `yaml:"endpoint"`
		APIKeyEnv  string `yaml:"api_key_env"`
		MaxResults int    `yaml:"max_results"`
		MaxQueries int    `yaml:"max_queries"`
	} `yaml:"search"`

	Translate struct {
		Endpoint  string `yaml:"endpoint"`
		APIKeyEnv string `yaml:"api_key_env"`
		Model     string `yaml:"model"`
	} `yaml:"translate"`

	PolicyFile string `yaml:"policy_file"`
}

// DefaultConfig returns the tuning the pipeline ships with.
func DefaultConfig() *Config {
	c := &Config{Workers: 4}
	c.Fetch.TimeoutSeconds = 10
	c.Fetch.MaxRedirects = 5
	c.Fetch.UserAgent = "Mozilla/5.0 (compatible; EventIntelligenceBot/1.0)"
	c.Fetch.HostRPS = 2
	c.Resolver.MaxDepth = 3
	c.Resolver.MinLinkScore = 10
	c.Resolver.TopK = 5
	c.Dates.MinConfidence = 0.7
	c.Dates.MultiDayDays = 7
	c.Dates.YearsBack = 1
	c.Dates.YearsForward = 2
	c.Dupes.IngestSimilarity = 0.85
	c.Dupes.CleanupSimilarity = 0.60
	c.Dupes.DateToleranceDays = 0
	c.Search.Endpoint = "https://api.tavily.com/search"
	c.Search.APIKeyEnv = "TAVILY_API_KEY"
	c.Search.MaxResults = 5
	c.Search.MaxQueries = 3
	c.Translate.Endpoint = "https://api.openai.com/v1/chat/completions"
	c.Translate.APIKeyEnv = "OPENAI_API_KEY"
	c.Translate.Model = "gpt-4o-mini"
	return c
}

// LoadConfig reads a YAML config file over the defaults. A missing file
// returns the defaults unchanged.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// FetchTimeout returns the fetch timeout as a duration.
func (c *Config) FetchTimeout() time.Duration {
	if c.Fetch.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}
