package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Bot        BotConfig        `mapstructure:"bot"`
	Model      ModelConfig      `mapstructure:"model"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	I18n       I18nConfig       `mapstructure:"i18n"`
}

type BotConfig struct {
	Token            string  `mapstructure:"token"`
	UpdateTimeout    int     `mapstructure:"update_timeout"`
	MaxMessageLength int     `mapstructure:"max_message_length"`
	SendRatePerSec   float64 `mapstructure:"send_rate_per_second"`
	SendBurst        int     `mapstructure:"send_burst"`
}

type ModelConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	ID           string        `mapstructure:"id"`
	DisplayName  string        `mapstructure:"display_name"`
	Temperature  float64       `mapstructure:"temperature"`
	SystemPrompt string        `mapstructure:"system_prompt"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// Name returns the label shown to users for the configured model.
func (m ModelConfig) Name() string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.ID
}

type RateLimitConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	MaxPerMinute        int           `mapstructure:"max_per_minute"`
	MinuteWindowSeconds int           `mapstructure:"minute_window_seconds"`
	MaxPerDay           int           `mapstructure:"max_per_day"`
	CleanupInterval     time.Duration `mapstructure:"cleanup_interval"`
}

// MinuteWindow returns the short window as a duration.
func (r RateLimitConfig) MinuteWindow() time.Duration {
	return time.Duration(r.MinuteWindowSeconds) * time.Second
}

type StorageConfig struct {
	Type   string       `mapstructure:"type"`
	Redis  RedisConfig  `mapstructure:"redis"`
	SQLite SQLiteConfig `mapstructure:"sqlite"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"`
	Output string     `mapstructure:"output"`
	File   FileConfig `mapstructure:"file"`
}

type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type MonitoringConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

type I18nConfig struct {
	DefaultLanguage string   `mapstructure:"default_language"`
	Languages       []string `mapstructure:"languages"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.update_timeout", 60)
	v.SetDefault("bot.max_message_length", 4096)
	v.SetDefault("bot.send_rate_per_second", 25.0)
	v.SetDefault("bot.send_burst", 5)

	v.SetDefault("model.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("model.id", "deepseek/deepseek-r1:free")
	v.SetDefault("model.display_name", "DeepSeek R1")
	v.SetDefault("model.temperature", 0.7)
	v.SetDefault("model.timeout", 45*time.Second)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.max_per_minute", 60)
	v.SetDefault("rate_limit.minute_window_seconds", 60)
	v.SetDefault("rate_limit.max_per_day", 1000)
	v.SetDefault("rate_limit.cleanup_interval", time.Hour)

	v.SetDefault("storage.type", "memory")
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.sqlite.path", "data/stats.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.file.path", "logs/bot.log")
	v.SetDefault("logging.file.max_size", 1)
	v.SetDefault("logging.file.max_backups", 5)
	v.SetDefault("logging.file.max_age", 30)

	v.SetDefault("monitoring.metrics.enabled", false)
	v.SetDefault("monitoring.metrics.port", 9090)
	v.SetDefault("monitoring.metrics.path", "/metrics")

	v.SetDefault("i18n.default_language", "ru")
	v.SetDefault("i18n.languages", []string{"ru", "en"})
}

// LoadConfig loads configuration from an optional YAML file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("bot.token", "BOT_TOKEN")
	v.BindEnv("model.base_url", "AI_BASE_URL")
	v.BindEnv("model.api_key", "AI_API_KEY")
	v.BindEnv("model.id", "AI_MODEL")
	v.BindEnv("storage.redis.addr", "REDIS_ADDR")
	v.BindEnv("storage.redis.password", "REDIS_PASSWORD")
	v.BindEnv("logging.level", "LOG_LEVEL")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Bot.Token == "" {
		return fmt.Errorf("bot token is required")
	}
	if cfg.Model.BaseURL == "" {
		return fmt.Errorf("model base url is required")
	}
	if cfg.Model.ID == "" {
		return fmt.Errorf("model id is required")
	}
	if cfg.Model.APIKey == "" {
		return fmt.Errorf("model api key is required")
	}
	if cfg.Bot.MaxMessageLength < 1 {
		return fmt.Errorf("max message length must be positive, got %d", cfg.Bot.MaxMessageLength)
	}
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.MaxPerMinute <= 0 || cfg.RateLimit.MaxPerDay <= 0 {
			return fmt.Errorf("rate limits must be positive")
		}
		if cfg.RateLimit.MinuteWindowSeconds <= 0 {
			return fmt.Errorf("minute window must be positive")
		}
	}
	return nil
}
