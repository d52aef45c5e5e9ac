package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
		// Fallback owner for requests that carry no X-User-ID header.
		DefaultUserID string `yaml:"default_user_id"`
	} `yaml:"app"`

	Scraper struct {
		ProxyBaseURL   string  `yaml:"proxy_base_url"`
		Country        string  `yaml:"country"` // origin-country hint, e.g. "us"
		Premium        bool    `yaml:"premium"`
		Render         bool    `yaml:"render"`
		TimeoutSeconds int     `yaml:"timeout_seconds"`
		RatePerSec     float64 `yaml:"rate_per_sec"`
		RateBurst      int     `yaml:"rate_burst"`
	} `yaml:"scraper"`

	Orchestrator struct {
		Workers      int `yaml:"workers"`
		QueueSize    int `yaml:"queue_size"`
		BatchPauseMS int `yaml:"batch_pause_ms"`
		MaxQuantity  int `yaml:"max_quantity"`
		// Active jobs untouched for longer than this are failed by the
		// janitor (crash recovery).
		StaleAfterMinutes int `yaml:"stale_after_minutes"`
	} `yaml:"orchestrator"`

	Cache struct {
		Enabled    bool   `yaml:"enabled"`
		RedisURL   string `yaml:"redis_url"`
		TTLMinutes int    `yaml:"ttl_minutes"`
	} `yaml:"cache"`
}

func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

// Default returns the built-in configuration used when no config file
// has been written yet.
func Default() Config {
	var cfg Config
	cfg.App.Port = 38472
	cfg.App.DataDir = "."
	cfg.App.DefaultUserID = "local"

	cfg.Scraper.ProxyBaseURL = "https://api.scraperapi.com"
	cfg.Scraper.Country = "us"
	cfg.Scraper.Premium = true
	cfg.Scraper.Render = true
	cfg.Scraper.TimeoutSeconds = 30
	cfg.Scraper.RatePerSec = 1
	cfg.Scraper.RateBurst = 2

	cfg.Orchestrator.Workers = 3
	cfg.Orchestrator.QueueSize = 64
	cfg.Orchestrator.BatchPauseMS = 2000
	cfg.Orchestrator.MaxQuantity = 200
	cfg.Orchestrator.StaleAfterMinutes = 30

	cfg.Cache.Enabled = false
	cfg.Cache.RedisURL = "redis://localhost:6379"
	cfg.Cache.TTLMinutes = 60
	return cfg
}

// ScrapeTimeout resolves the configured proxy timeout with a sane floor.
func (c Config) ScrapeTimeout() time.Duration {
	if c.Scraper.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Scraper.TimeoutSeconds) * time.Second
}

// BatchPause is the pacing delay between persisted batches.
func (c Config) BatchPause() time.Duration {
	if c.Orchestrator.BatchPauseMS < 0 {
		return 0
	}
	return time.Duration(c.Orchestrator.BatchPauseMS) * time.Millisecond
}
