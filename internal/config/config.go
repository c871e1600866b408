// Package config reads the dashboard's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/labstack/gommon/log"
	"gopkg.in/yaml.v3"
)

// Config holds server and dashboard settings.
// Keys absent from a file keep their Default() value.
type Config struct {
	// Addr is the HTTP listen address (e.g. ":8080").
	Addr string `yaml:"addr"`

	// DataPath points at the cleaned CSV, or a SQLite file with an "emissions" table.
	DataPath string `yaml:"data_path"`

	// TopN is the default length of the ranked bar charts.
	TopN int `yaml:"top_n"`

	// ComparePreset is the default multi-country selection.
	ComparePreset []string `yaml:"compare_preset"`

	// LogLevel is one of debug, info, warn, error, off.
	LogLevel string `yaml:"log_level"`

	// RateLimit caps requests per second per client IP. 0 disables it.
	RateLimit float64 `yaml:"rate_limit"`
}

func Default() Config {
	return Config{
		Addr:          ":8080",
		DataPath:      "data/cleaned_co2.csv",
		TopN:          10,
		ComparePreset: []string{"United States", "China", "India"},
		LogLevel:      "info",
		RateLimit:     20,
	}
}

// Load reads path over the defaults. An empty path returns Default().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.DataPath == "" {
		errs = append(errs, errors.New("data_path is required"))
	}
	if c.TopN < 1 {
		errs = append(errs, fmt.Errorf("top_n must be positive, got %d", c.TopN))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate_limit must not be negative, got %g", c.RateLimit))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseLevel maps a level name to a gommon log level.
func ParseLevel(s string) (log.Lvl, error) {
	switch strings.ToLower(s) {
	case "debug":
		return log.DEBUG, nil
	case "info", "":
		return log.INFO, nil
	case "warn", "warning":
		return log.WARN, nil
	case "error":
		return log.ERROR, nil
	case "off":
		return log.OFF, nil
	}
	return 0, fmt.Errorf("unknown log_level %q", s)
}
