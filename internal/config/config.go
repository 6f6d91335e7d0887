package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/quantpilot/quantpilot/internal/core"
	"github.com/spf13/viper"
)

// Config is the root configuration for the QuantPilot service.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Broker   BrokerConfig   `mapstructure:"broker"`
	Momentum MomentumConfig `mapstructure:"momentum"`
	Trading  TradingConfig  `mapstructure:"trading"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// LogConfig controls zap output and lumberjack rotation.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Output     string `mapstructure:"output"` // "console", "file", "both"
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// BrokerConfig holds paper-trading brokerage settings.
type BrokerConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	APISecret string        `mapstructure:"api_secret"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// Configured reports whether broker credentials are present. An
// unconfigured broker makes auto-start skip cleanly instead of failing.
func (b BrokerConfig) Configured() bool {
	return b.BaseURL != "" && b.APIKey != ""
}

// MomentumConfig holds price/momentum feed settings.
type MomentumConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// TradingConfig holds the orchestration knobs of the auto-trading engine.
type TradingConfig struct {
	CycleInterval     time.Duration `mapstructure:"cycle_interval"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	NarrativeInterval time.Duration `mapstructure:"narrative_interval"`
	MinBalance        float64       `mapstructure:"min_balance"`
	MinNotional       float64       `mapstructure:"min_notional"`
	MaxNotional       float64       `mapstructure:"max_notional"`
	InterTradeDelay   time.Duration `mapstructure:"inter_trade_delay"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	HistoryTTL        time.Duration `mapstructure:"history_ttl"`
	HistoryWindowDays int           `mapstructure:"history_window_days"`
	AutoStart         bool          `mapstructure:"auto_start"`
	AutoStartRetries  int           `mapstructure:"auto_start_retries"`
	AutoStartDelay    time.Duration `mapstructure:"auto_start_delay"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Type string `mapstructure:"type"` // "memory" or "badger"
	Path string `mapstructure:"path"` // For badger
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Log: LogConfig{
			Level:      "info",
			Output:     "console",
			File:       "logs/quantpilot.log",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 14,
			Compress:   true,
		},
		Broker: BrokerConfig{
			Timeout: 15 * time.Second,
		},
		Momentum: MomentumConfig{
			Timeout: 10 * time.Second,
		},
		Trading: TradingConfig{
			CycleInterval:     6 * time.Hour,
			HeartbeatInterval: 30 * time.Minute,
			NarrativeInterval: time.Hour,
			MinBalance:        100,
			MinNotional:       100,
			MaxNotional:       500,
			InterTradeDelay:   time.Second,
			CacheTTL:          5 * time.Minute,
			HistoryTTL:        30 * time.Second,
			HistoryWindowDays: 30,
			AutoStart:         true,
			AutoStartRetries:  3,
			AutoStartDelay:    5 * time.Second,
		},
		Storage: StorageConfig{
			Type: "memory",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Trading.CycleInterval <= 0 {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("trading.cycle_interval must be positive"))
	}
	if c.Trading.MinNotional <= 0 || c.Trading.MaxNotional < c.Trading.MinNotional {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("trading notional band invalid: min=%.2f max=%.2f", c.Trading.MinNotional, c.Trading.MaxNotional))
	}
	if c.Trading.MinBalance < 0 {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("trading.min_balance must not be negative"))
	}
	if c.Trading.HistoryWindowDays <= 0 {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("trading.history_window_days must be positive"))
	}
	switch c.Storage.Type {
	case "memory":
	case "badger":
		if c.Storage.Path == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("storage.path required for badger backend"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown storage.type: %s", c.Storage.Type))
	}
	return nil
}
