// ABOUTME: Configuration loading and parsing for the sticker tagger bot
// ABOUTME: Supports YAML or TOML files with env var expansion, STICKERTAGGER_* overrides and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "STICKERTAGGER_"

// MaxInlineResults is Telegram's limit on results per inline query answer.
const MaxInlineResults = 50

// Config represents the complete bot configuration
type Config struct {
	Telegram     TelegramConfig     `yaml:"telegram" toml:"telegram" envPrefix:"TELEGRAM_"`
	Database     DatabaseConfig     `yaml:"database" toml:"database" envPrefix:"DATABASE_"`
	Workers      WorkersConfig      `yaml:"workers" toml:"workers" envPrefix:"WORKERS_"`
	Conversation ConversationConfig `yaml:"conversation" toml:"conversation" envPrefix:"CONVERSATION_"`
	Dedupe       DedupeConfig       `yaml:"dedupe" toml:"dedupe" envPrefix:"DEDUPE_"`
	Server       ServerConfig       `yaml:"server" toml:"server" envPrefix:"SERVER_"`
	Logging      LoggingConfig      `yaml:"logging" toml:"logging" envPrefix:"LOGGING_"`
	Metrics      MetricsConfig      `yaml:"metrics" toml:"metrics" envPrefix:"METRICS_"`
}

// TelegramConfig holds Bot API configuration
type TelegramConfig struct {
	Token string `yaml:"token" toml:"token" env:"TOKEN"`

	// InlineResultLimit caps stickers returned per inline query
	InlineResultLimit int `yaml:"inline_result_limit" toml:"inline_result_limit" env:"INLINE_RESULT_LIMIT"`

	PollTimeout    time.Duration `yaml:"-" toml:"-"`
	PollTimeoutRaw string        `yaml:"poll_timeout" toml:"poll_timeout" env:"POLL_TIMEOUT"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path" env:"PATH"`
}

// WorkersConfig sizes the pool that runs blocking store checks
type WorkersConfig struct {
	MaxWorkers int `yaml:"max_workers" toml:"max_workers" env:"MAX_WORKERS"`
}

// ConversationConfig holds conversation timing configuration
type ConversationConfig struct {
	TaskTimeout       time.Duration `yaml:"-" toml:"-"`
	TransitionTimeout time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	TaskTimeoutRaw       string `yaml:"task_timeout" toml:"task_timeout" env:"TASK_TIMEOUT"`
	TransitionTimeoutRaw string `yaml:"transition_timeout" toml:"transition_timeout" env:"TRANSITION_TIMEOUT"`
}

// DedupeConfig sizes the cache of handled update IDs
type DedupeConfig struct {
	TTL     time.Duration `yaml:"-" toml:"-"`
	TTLRaw  string        `yaml:"ttl" toml:"ttl" env:"TTL"`
	MaxSize int           `yaml:"max_size" toml:"max_size" env:"MAX_SIZE"`
}

// ServerConfig holds the health and metrics HTTP listener
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr" env:"HTTP_ADDR"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level" env:"LEVEL"`
	Format string `yaml:"format" toml:"format" env:"FORMAT"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled" env:"ENABLED"`
	Path    string `yaml:"path" toml:"path" env:"PATH"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	_ = parseDurations(cfg)
	return cfg
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, anything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded, then
// STICKERTAGGER_* variables override individual fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	return finish(&cfg)
}

// FromEnv builds a Config from defaults and STICKERTAGGER_* variables only.
func FromEnv() (*Config, error) {
	return finish(&Config{})
}

func finish(cfg *Config) (*Config, error) {
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	applyDefaults(cfg)

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides sets fields from STICKERTAGGER_* variables that are present.
func applyEnvOverrides(cfg *Config) error {
	return env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix})
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func applyDefaults(cfg *Config) {
	if cfg.Telegram.PollTimeoutRaw == "" {
		cfg.Telegram.PollTimeoutRaw = "30s"
	}
	if cfg.Telegram.InlineResultLimit == 0 {
		cfg.Telegram.InlineResultLimit = MaxInlineResults
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "stickertagger.db"
	}
	if cfg.Workers.MaxWorkers == 0 {
		cfg.Workers.MaxWorkers = 8
	}
	if cfg.Conversation.TaskTimeoutRaw == "" {
		cfg.Conversation.TaskTimeoutRaw = "10s"
	}
	if cfg.Conversation.TransitionTimeoutRaw == "" {
		cfg.Conversation.TransitionTimeoutRaw = "15s"
	}
	if cfg.Dedupe.TTLRaw == "" {
		cfg.Dedupe.TTLRaw = "10m"
	}
	if cfg.Dedupe.MaxSize == 0 {
		cfg.Dedupe.MaxSize = 10_000
	}
	if cfg.Server.HTTPAddr == "" {
		cfg.Server.HTTPAddr = "127.0.0.1:8080"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required")
	}
	if c.Telegram.InlineResultLimit < 1 || c.Telegram.InlineResultLimit > MaxInlineResults {
		return fmt.Errorf("telegram.inline_result_limit must be between 1 and %d", MaxInlineResults)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Workers.MaxWorkers < 1 {
		return fmt.Errorf("workers.max_workers must be at least 1")
	}
	if c.Conversation.TaskTimeout <= 0 {
		return fmt.Errorf("conversation.task_timeout must be positive")
	}
	if c.Conversation.TransitionTimeout <= 0 {
		return fmt.Errorf("conversation.transition_timeout must be positive")
	}
	if c.Dedupe.MaxSize < 1 {
		return fmt.Errorf("dedupe.max_size must be at least 1")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"telegram.poll_timeout", cfg.Telegram.PollTimeoutRaw, &cfg.Telegram.PollTimeout},
		{"conversation.task_timeout", cfg.Conversation.TaskTimeoutRaw, &cfg.Conversation.TaskTimeout},
		{"conversation.transition_timeout", cfg.Conversation.TransitionTimeoutRaw, &cfg.Conversation.TransitionTimeout},
		{"dedupe.ttl", cfg.Dedupe.TTLRaw, &cfg.Dedupe.TTL},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}

	return nil
}

// DefaultPath returns the config file path, in priority order:
// $STICKERTAGGER_CONFIG, $XDG_CONFIG_HOME/stickertagger/config.yaml,
// ~/.config/stickertagger/config.yaml.
func DefaultPath() string {
	if p := os.Getenv(EnvPrefix + "CONFIG"); p != "" {
		return p
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "stickertagger", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "stickertagger", "config.yaml")
}
