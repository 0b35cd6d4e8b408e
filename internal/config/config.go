package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"budgetinsights/internal/services/analyzer"
)

// Config holds application configuration
type Config struct {
	// Server settings
	ListenAddr string `mapstructure:"listen_addr"`
	Debug      bool   `mapstructure:"debug"`

	// Directories
	DataDirectory string `mapstructure:"data_directory"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"` // "json" or "text"

	// DigestSchedule is a cron spec for the alert digest; empty disables it
	DigestSchedule string `mapstructure:"digest_schedule"`

	Analysis AnalysisConfig `mapstructure:"analysis"`
}

// AnalysisConfig tunes the insight pipeline output
type AnalysisConfig struct {
	UpcomingDays  int `mapstructure:"upcoming_days"`
	TopCategories int `mapstructure:"top_categories"`
	WeeklyBuckets int `mapstructure:"weekly_buckets"`
}

// Settings converts the analysis section for the analyzer
func (a AnalysisConfig) Settings() analyzer.Settings {
	return analyzer.Settings{
		UpcomingDays:  a.UpcomingDays,
		TopCategories: a.TopCategories,
		WeeklyBuckets: a.WeeklyBuckets,
	}
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	// Get working directory
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}

	defaults := analyzer.DefaultSettings()
	return &Config{
		ListenAddr:     ":8080",
		Debug:          false,
		DataDirectory:  filepath.Join(wd, "data"),
		LogLevel:       "info",
		LogFormat:      "text",
		DigestSchedule: "0 7 * * *",
		Analysis: AnalysisConfig{
			UpcomingDays:  defaults.UpcomingDays,
			TopCategories: defaults.TopCategories,
			WeeklyBuckets: defaults.WeeklyBuckets,
		},
	}
}

// Load layers defaults, an optional config file and BUDGET_* environment
// variables. The file is BUDGET_CONFIG when set, otherwise budget.{toml,yaml,json}
// in the data directory or the working directory.
func Load() (*Config, error) {
	def := DefaultConfig()
	v := viper.New()

	v.SetDefault("listen_addr", def.ListenAddr)
	v.SetDefault("debug", def.Debug)
	v.SetDefault("data_directory", def.DataDirectory)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_format", def.LogFormat)
	v.SetDefault("digest_schedule", def.DigestSchedule)
	v.SetDefault("analysis.upcoming_days", def.Analysis.UpcomingDays)
	v.SetDefault("analysis.top_categories", def.Analysis.TopCategories)
	v.SetDefault("analysis.weekly_buckets", def.Analysis.WeeklyBuckets)

	v.SetEnvPrefix("BUDGET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// BUDGET_DATA_DIR predates data_directory
	_ = v.BindEnv("data_directory", "BUDGET_DATA_DIRECTORY", "BUDGET_DATA_DIR")

	if path := os.Getenv("BUDGET_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("budget")
		v.AddConfigPath(v.GetString("data_directory"))
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("log_level: %w", err)
	}
	if cfg.Debug {
		cfg.LogLevel = logrus.DebugLevel.String()
	}

	return cfg, nil
}

// EnsureDirectories creates required directories if they don't exist
func (c *Config) EnsureDirectories(log logrus.FieldLogger) {
	for _, dir := range []string{c.DataDirectory} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.WithField("dir", dir).WithError(err).Warn("Could not create directory")
		}
	}
}
