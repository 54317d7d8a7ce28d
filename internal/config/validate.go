// internal/config/validate.go
package config

import (
	"fmt"
	"net/url"

	"github.com/rs/zerolog"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
// Zero values are allowed where Normalize supplies a default.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	c := cfg.StoreReady

	// ------------------------------------------------------------
	// POLL
	// ------------------------------------------------------------

	if c.Poll.IntervalMs < 0 {
		return fmt.Errorf("poll.interval_ms must be > 0, got %d", c.Poll.IntervalMs)
	}
	if c.Poll.MaxAttempts < 0 {
		return fmt.Errorf("poll.max_attempts must be > 0, got %d", c.Poll.MaxAttempts)
	}

	// ------------------------------------------------------------
	// SITE API
	// ------------------------------------------------------------

	if c.SiteAPI.BaseURL != "" {
		u, err := url.Parse(c.SiteAPI.BaseURL)
		if err != nil {
			return fmt.Errorf("site_api.base_url %q: %v", c.SiteAPI.BaseURL, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("site_api.base_url %q: scheme must be http or https", c.SiteAPI.BaseURL)
		}
		if u.Host == "" {
			return fmt.Errorf("site_api.base_url %q: host required", c.SiteAPI.BaseURL)
		}
	}
	if c.SiteAPI.TimeoutMs < 0 {
		return fmt.Errorf("site_api.timeout_ms must be >= 0, got %d", c.SiteAPI.TimeoutMs)
	}
	if c.SiteAPI.TimeoutMs > 0 && c.Poll.IntervalMs > 0 && c.SiteAPI.TimeoutMs > 10*c.Poll.IntervalMs {
		return fmt.Errorf(
			"site_api.timeout_ms=%d is more than 10x poll.interval_ms=%d",
			c.SiteAPI.TimeoutMs,
			c.Poll.IntervalMs,
		)
	}

	// ------------------------------------------------------------
	// LOG
	// ------------------------------------------------------------

	if c.Log.Level != "" {
		if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("log.level %q: %v", c.Log.Level, err)
		}
	}

	return nil
}
