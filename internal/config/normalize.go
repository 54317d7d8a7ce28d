// internal/config/normalize.go
package config

import "strings"

// Defaults. Interval and attempts follow the native store creation flow:
// 15 attempts, 5 seconds apart.
const (
	DefaultIntervalMs     = 5000
	DefaultMaxAttempts    = 15
	DefaultBaseURL        = "https://public-api.wordpress.com"
	DefaultTokenEnv       = "STOREREADY_API_TOKEN"
	DefaultTimeoutMs      = 10000
	DefaultRequiredPlugin = "jetpack"
	DefaultDBPath         = ".storeready/state.sqlite"
	DefaultLogLevel       = "info"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	c := &cfg.StoreReady

	if c.Poll.IntervalMs == 0 {
		c.Poll.IntervalMs = DefaultIntervalMs
	}
	if c.Poll.MaxAttempts == 0 {
		c.Poll.MaxAttempts = DefaultMaxAttempts
	}

	c.SiteAPI.BaseURL = strings.TrimRight(c.SiteAPI.BaseURL, "/")
	if c.SiteAPI.BaseURL == "" {
		c.SiteAPI.BaseURL = DefaultBaseURL
	}
	if c.SiteAPI.TokenEnv == "" {
		c.SiteAPI.TokenEnv = DefaultTokenEnv
	}
	if c.SiteAPI.TimeoutMs == 0 {
		c.SiteAPI.TimeoutMs = DefaultTimeoutMs
	}
	// nil means unset; an explicit "" is kept.
	if c.SiteAPI.RequiredPlugin == nil {
		p := DefaultRequiredPlugin
		c.SiteAPI.RequiredPlugin = &p
	}

	if c.State.DBPath == "" {
		c.State.DBPath = DefaultDBPath
	}

	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}
