package config

import (
	"fmt"
	"net/url"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate trims/normalizes a config copy and collects
// structured errors and warnings the UI can render.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation

	out.Scraper.ProxyBaseURL = strings.TrimRight(strings.TrimSpace(out.Scraper.ProxyBaseURL), "/")
	out.Scraper.Country = strings.ToLower(strings.TrimSpace(out.Scraper.Country))
	out.App.DefaultUserID = strings.TrimSpace(out.App.DefaultUserID)

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}

	if out.Scraper.ProxyBaseURL == "" {
		res.addErr("scraper.proxy_base_url is required")
	} else if u, err := url.Parse(out.Scraper.ProxyBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		res.addErr("scraper.proxy_base_url must be an absolute URL")
	}
	if out.Scraper.TimeoutSeconds <= 0 {
		res.addErr("scraper.timeout_seconds must be > 0")
	}
	if out.Scraper.RatePerSec <= 0 {
		res.addErr("scraper.rate_per_sec must be > 0")
	} else if out.Scraper.RatePerSec > 5 {
		res.addWarn("scraper.rate_per_sec is high (%.1f) and may burn proxy credits quickly.", out.Scraper.RatePerSec)
	}

	if out.Orchestrator.Workers <= 0 {
		res.addErr("orchestrator.workers must be > 0")
	}
	if out.Orchestrator.QueueSize <= 0 {
		res.addErr("orchestrator.queue_size must be > 0")
	}
	if out.Orchestrator.MaxQuantity <= 0 {
		res.addErr("orchestrator.max_quantity must be > 0")
	} else if out.Orchestrator.MaxQuantity > 1000 {
		res.addWarn("orchestrator.max_quantity above 1000 makes single scrape documents very large.")
	}
	if out.Orchestrator.BatchPauseMS < 0 {
		res.addErr("orchestrator.batch_pause_ms must be >= 0")
	}
	if out.Orchestrator.StaleAfterMinutes <= 0 {
		res.addErr("orchestrator.stale_after_minutes must be > 0")
	}

	if out.Cache.Enabled {
		if strings.TrimSpace(out.Cache.RedisURL) == "" {
			res.addErr("cache.redis_url is required when cache.enabled=true")
		}
		if out.Cache.TTLMinutes <= 0 {
			res.addErr("cache.ttl_minutes must be > 0 when cache.enabled=true")
		}
	}

	return out, res
}
