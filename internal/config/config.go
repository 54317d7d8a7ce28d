// internal/config/config.go
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	StoreReady StoreReadyConfig `yaml:"storeready"`
}

type StoreReadyConfig struct {
	Poll    PollConfig    `yaml:"poll"`
	SiteAPI SiteAPIConfig `yaml:"site_api"`
	State   StateConfig   `yaml:"state"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs  int `yaml:"interval_ms"`
	MaxAttempts int `yaml:"max_attempts"`
}

// ---- SITE API ----

type SiteAPIConfig struct {
	BaseURL   string `yaml:"base_url"`
	TokenEnv  string `yaml:"token_env"`
	TimeoutMs int    `yaml:"timeout_ms"`

	// RequiredPlugin must appear in the site's active connection plugins.
	// Empty means the Jetpack plugin flag alone decides.
	RequiredPlugin *string `yaml:"required_plugin"`
}

// ---- STATE ----

type StateConfig struct {
	DBPath string `yaml:"db_path"`
}

// ---- METRICS ----

type MetricsConfig struct {
	Listen string `yaml:"listen"` // empty => disabled
}

// ---- LOG ----

type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads a YAML config file. An empty path yields a zero config,
// which Normalize turns into defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path == "" {
		return &cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	return &cfg, nil
}
