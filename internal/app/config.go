package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vk/assetgraph/internal/rules"
)

// ErrInvalidSettings is wrapped by every error NewConfig returns.
var ErrInvalidSettings = errors.New("invalid settings")

// Config holds the process-level settings of a run. Values set here override
// the pipeline config file.
type Config struct {
	ConfigPath string
	Entries    []string
	OutDir     string
	SourceRoot string
	Mode       string
	Workers    int
	Timeout    time.Duration
	// CachePath enables the incremental rebuild cache when non-empty.
	CachePath string
	CacheSize int

	LogFormat string
	LogLevel  string

	// Watch mode only.
	Debounce        time.Duration
	NotifyURL       string
	HealthcheckPort int
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	var problems []string
	if cfg.ConfigPath == "" {
		problems = append(problems, "a pipeline config file is required (--config)")
	}
	if cfg.Workers < 0 {
		problems = append(problems, fmt.Sprintf("workers must not be negative, got %d", cfg.Workers))
	}
	if cfg.Timeout < 0 {
		problems = append(problems, fmt.Sprintf("timeout must not be negative, got %s", cfg.Timeout))
	}
	if cfg.Debounce < 0 {
		problems = append(problems, fmt.Sprintf("debounce must not be negative, got %s", cfg.Debounce))
	}
	if cfg.CacheSize < 0 {
		problems = append(problems, fmt.Sprintf("cache size must not be negative, got %d", cfg.CacheSize))
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		problems = append(problems, fmt.Sprintf("healthcheck port must be between 0 and 65535, got %d", cfg.HealthcheckPort))
	}
	if cfg.Mode == "" {
		cfg.Mode = string(rules.Production)
	}
	if _, err := rules.ParseMode(cfg.Mode); err != nil {
		problems = append(problems, err.Error())
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	switch cfg.LogLevel {
	case "":
		cfg.LogLevel = "info"
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("unknown log level %q (want debug, info, warn or error)", cfg.LogLevel))
	}
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = "text"
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("unknown log format %q (want text or json)", cfg.LogFormat))
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSettings, strings.Join(problems, "; "))
	}
	return &cfg, nil
}
