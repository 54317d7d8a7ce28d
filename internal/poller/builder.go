// internal/poller/builder.go
package poller

import (
	"time"

	cfg "github.com/tamzrod/storeready/internal/config"
	"github.com/tamzrod/storeready/internal/site"
)

// Settings is the per-session shape derived from config.
// The site id is supplied per session by the caller.
type Settings struct {
	Interval    time.Duration
	MaxAttempts int
}

// SettingsFrom converts normalized poll config into Settings.
func SettingsFrom(c cfg.PollConfig) Settings {
	return Settings{
		Interval:    time.Duration(c.IntervalMs) * time.Millisecond,
		MaxAttempts: c.MaxAttempts,
	}
}

// Build constructs a Poller for one site from Settings.
func Build(s Settings, siteID int64, q site.Querier, opts ...Option) (*Poller, error) {
	return New(
		Config{
			SiteID:      siteID,
			Interval:    s.Interval,
			MaxAttempts: s.MaxAttempts,
		},
		q,
		opts...,
	)
}
