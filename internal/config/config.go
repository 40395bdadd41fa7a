package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rewired-gh/pricewise/internal/calendar"
	"github.com/rewired-gh/pricewise/internal/models"
)

// Config represents the complete application configuration
type Config struct {
	Catalog  CatalogConfig      `mapstructure:"catalog"`
	Analysis AnalysisConfig     `mapstructure:"analysis"`
	Sales    []models.SaleEvent `mapstructure:"sales"`
	Watch    WatchConfig        `mapstructure:"watch"`
	Telegram TelegramConfig     `mapstructure:"telegram"`
	Storage  StorageConfig      `mapstructure:"storage"`
	Logging  LoggingConfig      `mapstructure:"logging"`
}

// CatalogConfig holds the offer feed client configuration
type CatalogConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Platforms      []string      `mapstructure:"platforms"`
	MaxResults     int           `mapstructure:"max_results"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// AnalysisConfig holds history and forecasting parameters
type AnalysisConfig struct {
	HistoryDays         int     `mapstructure:"history_days"`
	ForecastDays        int     `mapstructure:"forecast_days"`
	MinPriceDropPercent float64 `mapstructure:"min_price_drop_percent"`
}

// HistoryWindow is the look-back window for price history.
func (a AnalysisConfig) HistoryWindow() time.Duration {
	return time.Duration(a.HistoryDays) * 24 * time.Hour
}

// WatchConfig holds the periodic watch loop configuration
type WatchConfig struct {
	Queries  []string      `mapstructure:"queries"`
	Interval time.Duration `mapstructure:"interval"`
	Cooldown time.Duration `mapstructure:"cooldown"`
	Enabled  bool          `mapstructure:"enabled"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// StorageConfig holds price history persistence configuration
type StorageConfig struct {
	DBPath              string `mapstructure:"db_path"`
	MaxProducts         int    `mapstructure:"max_products"`
	MaxPricesPerProduct int    `mapstructure:"max_prices_per_product"`
	RetentionDays       int    `mapstructure:"retention_days"`
}

// Retention is the age after which price points are deleted.
func (s StorageConfig) Retention() time.Duration {
	return time.Duration(s.RetentionDays) * 24 * time.Hour
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	setDefaults(v)

	// PRICEWISE_TELEGRAM_BOT_TOKEN overrides telegram.bot_token, etc.
	v.SetEnvPrefix("PRICEWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Catalog defaults
	v.SetDefault("catalog.base_url", "http://localhost:8080")
	v.SetDefault("catalog.platforms", []string{"amazon", "flipkart"})
	v.SetDefault("catalog.max_results", 10)
	v.SetDefault("catalog.timeout", "30s")
	v.SetDefault("catalog.max_retries", 3)
	v.SetDefault("catalog.retry_delay_base", "1s")

	// Analysis defaults
	v.SetDefault("analysis.history_days", 30)
	v.SetDefault("analysis.forecast_days", 7)
	v.SetDefault("analysis.min_price_drop_percent", 5.0)

	// Watch defaults
	v.SetDefault("watch.interval", "1h")
	v.SetDefault("watch.cooldown", "24h")
	v.SetDefault("watch.enabled", false)

	// Telegram defaults
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Storage defaults
	v.SetDefault("storage.db_path", "./data/pricewise.db")
	v.SetDefault("storage.max_products", 5000)
	v.SetDefault("storage.max_prices_per_product", 365)
	v.SetDefault("storage.retention_days", 180)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Catalog config
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog.base_url is required")
	}
	if len(c.Catalog.Platforms) == 0 {
		return fmt.Errorf("catalog.platforms must contain at least one platform")
	}
	if c.Catalog.MaxResults < 1 {
		return fmt.Errorf("catalog.max_results must be at least 1")
	}
	if c.Catalog.Timeout < time.Second {
		return fmt.Errorf("catalog.timeout must be at least 1 second")
	}
	if c.Catalog.MaxRetries < 0 {
		return fmt.Errorf("catalog.max_retries must not be negative")
	}

	// Validate Analysis config
	if c.Analysis.HistoryDays < 1 {
		return fmt.Errorf("analysis.history_days must be at least 1")
	}
	if c.Analysis.ForecastDays < 1 {
		return fmt.Errorf("analysis.forecast_days must be at least 1")
	}
	if c.Analysis.MinPriceDropPercent < 0 || c.Analysis.MinPriceDropPercent > 100 {
		return fmt.Errorf("analysis.min_price_drop_percent must be between 0 and 100")
	}

	// Validate sale calendar overrides
	for i, event := range c.Sales {
		if err := event.Validate(); err != nil {
			return fmt.Errorf("sales[%d]: %w", i, err)
		}
	}

	// Validate Watch config
	if c.Watch.Enabled {
		if len(c.Watch.Queries) == 0 {
			return fmt.Errorf("watch.queries must contain at least one query when watch is enabled")
		}
	}
	if c.Watch.Interval < time.Minute {
		return fmt.Errorf("watch.interval must be at least 1 minute")
	}
	if c.Watch.Cooldown < 0 {
		return fmt.Errorf("watch.cooldown must not be negative")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Storage config
	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}
	if c.Storage.MaxProducts < 1 {
		return fmt.Errorf("storage.max_products must be at least 1")
	}
	if c.Storage.MaxPricesPerProduct < 10 {
		return fmt.Errorf("storage.max_prices_per_product must be at least 10")
	}
	if c.Storage.RetentionDays < c.Analysis.HistoryDays {
		return fmt.Errorf("storage.retention_days must cover analysis.history_days")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// Calendar builds the sale calendar: the configured sales when present,
// otherwise the built-in table.
func (c *Config) Calendar() (*calendar.Calendar, error) {
	if len(c.Sales) == 0 {
		return calendar.Default(), nil
	}
	return calendar.New(c.Sales)
}
