// Package config provides configuration management for the trading journal.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	errs "tradefolio/internal/errors"
	"tradefolio/internal/models"
)

// Config holds all application configuration.
type Config struct {
	Journal JournalConfig `mapstructure:"journal"`
	UI      UIConfig      `mapstructure:"ui"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// JournalConfig holds journal and valuation configuration.
type JournalConfig struct {
	DBPath           string  `mapstructure:"db_path"`
	AccountingMethod string  `mapstructure:"accounting_method"`  // "cash" or "accrual"
	DefaultCapital   float64 `mapstructure:"default_capital"`    // fallback portfolio size
	DebounceMillis   int     `mapstructure:"debounce_millis"`    // recalc trigger batching window
	RenumberOnRecalc bool    `mapstructure:"renumber_on_recalc"` // persist chronological trade numbers
}

// DebounceWindow returns the recalculation batching window as a
// duration. Zero falls through to the scheduler's default.
func (c JournalConfig) DebounceWindow() time.Duration {
	return time.Duration(c.DebounceMillis) * time.Millisecond
}

// UIConfig holds CLI output configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
	Currency     string `mapstructure:"currency"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/tradefolio"
	}
	return filepath.Join(home, ".config", "tradefolio")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
// A missing config file is not an error: defaults apply.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetDefault("journal.db_path", filepath.Join(configDir, "journal.db"))
	v.SetDefault("journal.accounting_method", string(models.Accrual))
	v.SetDefault("journal.default_capital", models.DefaultPortfolioSize)
	v.SetDefault("journal.debounce_millis", 250)
	v.SetDefault("journal.renumber_on_recalc", true)
	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.date_format", "2006-01-02")
	v.SetDefault("ui.currency", "$")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRADEFOLIO_DB"); v != "" {
		cfg.Journal.DBPath = v
	}
	if v := os.Getenv("TRADEFOLIO_METHOD"); v != "" {
		cfg.Journal.AccountingMethod = v
	}
	if v := os.Getenv("TRADEFOLIO_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !models.AccountingMethod(c.Journal.AccountingMethod).Valid() {
		return errs.Wrapf(errs.ErrConfigInvalid, "accounting method %q (must be 'cash' or 'accrual')", c.Journal.AccountingMethod)
	}
	if c.Journal.DefaultCapital <= 0 {
		return errs.Wrap(errs.ErrConfigInvalid, "default_capital must be positive")
	}
	if c.Journal.DebounceMillis < 0 {
		return errs.Wrap(errs.ErrConfigInvalid, "debounce_millis must be non-negative")
	}
	return nil
}

// Method returns the configured accounting method.
func (c *Config) Method() models.AccountingMethod {
	return models.AccountingMethod(c.Journal.AccountingMethod)
}
