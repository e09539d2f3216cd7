// Package config loads and validates archiver configuration via Viper.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures every knob the archiver consumes. The core treats it as
// given: flag parsing and proxy-string validation happen before it is built.
type Config struct {
	Sites     []string      `mapstructure:"sites"`
	OutputDir string        `mapstructure:"output_dir"`
	Proxy     string        `mapstructure:"proxy"`
	Crawler   CrawlerConfig `mapstructure:"crawler"`
	HTTP      HTTPConfig    `mapstructure:"http"`
	Metrics   MetricsConfig `mapstructure:"metrics"`
	Logging   LoggingConfig `mapstructure:"logging"`
}

// CrawlerConfig governs scheduler behavior.
type CrawlerConfig struct {
	WorkersPerSite  int `mapstructure:"workers_per_site"`
	CheckpointEvery int `mapstructure:"checkpoint_every"`
	// DelayMs is the default minimum inter-request delay per site.
	DelayMs int `mapstructure:"delay_ms"`
	// SiteDelaysMs overrides the politeness delay for individual sites.
	SiteDelaysMs map[string]int `mapstructure:"site_delays_ms"`
	// WindowDoneLagMonths keeps recent feed windows re-crawlable.
	WindowDoneLagMonths int `mapstructure:"window_done_lag_months"`
}

// HTTPConfig configures the fetcher.
type HTTPConfig struct {
	UserAgent        string `mapstructure:"user_agent"`
	TimeoutSeconds   int    `mapstructure:"timeout_seconds"`
	MaxAttempts      int    `mapstructure:"max_attempts"`
	BackoffInitialMs int    `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int    `mapstructure:"backoff_max_ms"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk and environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RFARCHIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("output_dir", "rfa_data")
	v.SetDefault("crawler.workers_per_site", 4)
	v.SetDefault("crawler.checkpoint_every", 50)
	v.SetDefault("crawler.delay_ms", 500)
	v.SetDefault("crawler.window_done_lag_months", 12)
	v.SetDefault("http.user_agent", "rfarchive/0.1")
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.max_attempts", 10)
	v.SetDefault("http.backoff_initial_ms", 250)
	v.SetDefault("http.backoff_max_ms", 5000)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9191")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("output_dir must be set")
	}
	if c.Crawler.WorkersPerSite <= 0 {
		return fmt.Errorf("crawler.workers_per_site must be > 0")
	}
	if c.Crawler.CheckpointEvery <= 0 {
		return fmt.Errorf("crawler.checkpoint_every must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxAttempts <= 0 {
		return fmt.Errorf("http.max_attempts must be > 0")
	}
	if c.Metrics.Enabled && strings.TrimSpace(c.Metrics.Addr) == "" {
		return fmt.Errorf("metrics.addr must be set when metrics are enabled")
	}
	return nil
}

// Timeout returns the fetch timeout as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// BackoffInitial returns the first retry delay.
func (c Config) BackoffInitial() time.Duration {
	return time.Duration(c.HTTP.BackoffInitialMs) * time.Millisecond
}

// BackoffMax returns the retry delay ceiling.
func (c Config) BackoffMax() time.Duration {
	return time.Duration(c.HTTP.BackoffMaxMs) * time.Millisecond
}

// DefaultDelay returns the default per-site politeness delay.
func (c Config) DefaultDelay() time.Duration {
	return time.Duration(c.Crawler.DelayMs) * time.Millisecond
}

// ContentDir is where the content store lives under the output root.
func (c Config) ContentDir() string {
	return filepath.Join(c.OutputDir, "content")
}

// IndexPath is the archive index database file.
func (c Config) IndexPath() string {
	return filepath.Join(c.OutputDir, "index.db")
}

// CheckpointDir holds the per-site resume files.
func (c Config) CheckpointDir() string {
	return filepath.Join(c.OutputDir, "checkpoints")
}
