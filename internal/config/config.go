// ABOUTME: Configuration loading and parsing for groq-relay
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable that overrides the config
// file location.
const EnvConfigPath = "GROQ_RELAY_CONFIG"

// Config represents the complete groq-relay configuration
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Groq     GroqConfig     `yaml:"groq"`
	Stream   StreamConfig   `yaml:"stream"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// TelegramConfig holds Bot API credentials and polling behavior
type TelegramConfig struct {
	Token        string  `yaml:"token"`
	AllowedUsers []int64 `yaml:"allowed_users"`

	PollTimeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	PollTimeoutRaw string `yaml:"poll_timeout"`
}

// GroqConfig holds the LLM provider configuration
type GroqConfig struct {
	APIKey       string   `yaml:"api_key"`
	BaseURL      string   `yaml:"base_url"`
	DefaultModel string   `yaml:"default_model"`
	Models       []string `yaml:"models"`
}

// StreamConfig tunes how partial completions reach the chat
type StreamConfig struct {
	// FlushThreshold is the pending character count above which a partial
	// snapshot is emitted. Zero means the built-in default.
	FlushThreshold int `yaml:"flush_threshold"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultPath resolves the config file location: $GROQ_RELAY_CONFIG if set,
// otherwise config.yaml under the user's config dir (XDG aware).
func DefaultPath() string {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(base, "groq-relay", "config.yaml")
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required")
	}

	if c.Groq.APIKey == "" {
		return fmt.Errorf("groq.api_key is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Stream.FlushThreshold < 0 {
		return fmt.Errorf("stream.flush_threshold must not be negative")
	}

	// When both an allow-list and a default model are given, the default
	// must be on the list.
	if c.Groq.DefaultModel != "" && len(c.Groq.Models) > 0 {
		found := false
		for _, id := range c.Groq.Models {
			if id == c.Groq.DefaultModel {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("groq.default_model %q is not in groq.models", c.Groq.DefaultModel)
		}
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Telegram.PollTimeoutRaw != "" {
		cfg.Telegram.PollTimeout, err = time.ParseDuration(cfg.Telegram.PollTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing poll_timeout %q: %w", cfg.Telegram.PollTimeoutRaw, err)
		}
	}

	return nil
}
