// Package config loads voicedash settings from defaults, an optional YAML
// file and VOICEDASH_ environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/pharmai/voicedash/components/dashboard"
)

// EnvPrefix marks environment overrides. Nested keys use a double
// underscore: VOICEDASH_STORAGE__KIND sets storage.kind.
const EnvPrefix = "VOICEDASH_"

// DefaultFile is read when no explicit file is given and it exists.
const DefaultFile = "voicedash.yaml"

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig                `koanf:"server" yaml:"server"`
	Storage   StorageConfig               `koanf:"storage" yaml:"storage"`
	Log       LogConfig                   `koanf:"log" yaml:"log"`
	Dashboard DashboardConfig             `koanf:"dashboard" yaml:"dashboard"`
	Demo      dashboard.GeneratorSettings `koanf:"demo" yaml:"demo"`
	Analytics AnalyticsConfig             `koanf:"analytics" yaml:"analytics"`
}

// ServerConfig configures the HTTP listener. AllowedOrigins lists the
// cross-origin pages that may open the live update WebSocket.
type ServerConfig struct {
	Addr           string   `koanf:"addr" yaml:"addr"`
	BasePath       string   `koanf:"base_path" yaml:"base_path"`
	AllowedOrigins []string `koanf:"allowed_origins" yaml:"allowed_origins"`
}

// StorageConfig selects the blob store for layouts and preferences.
type StorageConfig struct {
	Kind string `koanf:"kind" yaml:"kind"`
	Path string `koanf:"path" yaml:"path"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level       string `koanf:"level" yaml:"level"`
	Development bool   `koanf:"development" yaml:"development"`
}

// DashboardConfig tunes the dashboard service.
type DashboardConfig struct {
	Seed             uint64        `koanf:"seed" yaml:"seed"`
	FetchConcurrency int           `koanf:"fetch_concurrency" yaml:"fetch_concurrency"`
	DatasetTTL       time.Duration `koanf:"dataset_ttl" yaml:"dataset_ttl"`
	SeedLayout       bool          `koanf:"seed_layout" yaml:"seed_layout"`
	Manifest         string        `koanf:"manifest" yaml:"manifest"`
}

// AnalyticsConfig points at an optional remote call analytics API. An empty
// BaseURL serves demo data only.
type AnalyticsConfig struct {
	BaseURL string        `koanf:"base_url" yaml:"base_url"`
	APIKey  string        `koanf:"api_key" yaml:"api_key"`
	Timeout time.Duration `koanf:"timeout" yaml:"timeout"`
}

func defaults() map[string]any {
	demo := dashboard.DefaultGeneratorSettings()
	return map[string]any{
		"server.addr":                 ":9876",
		"server.base_path":            "/voice",
		"storage.kind":                "file",
		"storage.path":                ".voicedash",
		"log.level":                   "info",
		"log.development":             false,
		"dashboard.seed":              0,
		"dashboard.fetch_concurrency": 4,
		"dashboard.dataset_ttl":       "10m",
		"dashboard.seed_layout":       true,
		"dashboard.manifest":          "",
		"demo.call_volume":            demo.CallVolume,
		"demo.positive":               demo.Positive,
		"demo.neutral":                demo.Neutral,
		"demo.negative":               demo.Negative,
		"demo.conversion_rate":        demo.ConversionRate,
		"demo.average_duration":       demo.AverageDuration,
		"demo.time_acceleration":      demo.TimeAcceleration,
		"analytics.base_url":          "",
		"analytics.api_key":           "",
		"analytics.timeout":           "10s",
	}
}

// Load reads configuration. path may be empty, in which case DefaultFile is
// used when present.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("config: load defaults: %w", err)
	}

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("config: load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ToLower(strings.ReplaceAll(s, "__", "."))
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Storage.Kind {
	case "memory", "file", "sqlite":
	default:
		return fmt.Errorf("config: unknown storage kind %q", c.Storage.Kind)
	}
	if c.Storage.Kind != "memory" && c.Storage.Path == "" {
		return fmt.Errorf("config: storage.path is required for %s storage", c.Storage.Kind)
	}
	if total := c.Demo.SentimentTotal(); total <= 0 {
		return fmt.Errorf("config: demo sentiment shares must be positive, got %.1f", total)
	}
	if c.Dashboard.FetchConcurrency < 0 {
		return fmt.Errorf("config: dashboard.fetch_concurrency must not be negative")
	}
	return nil
}
