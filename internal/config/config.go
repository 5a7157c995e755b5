// ABOUTME: Configuration loading and parsing for the hearth chat server
// ABOUTME: Supports YAML files with environment variable expansion and env overrides

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when no config file or section is present.
const (
	DefaultPort           = "3000"
	DefaultStorageDir     = "chat_storage"
	DefaultModel          = "gpt-3.5-turbo"
	DefaultTemperature    = 0.7
	DefaultMaxTokens      = 1000
	DefaultSystemPrompt   = "You are a helpful AI assistant. Provide clear, concise, and accurate responses."
	defaultRequestTimeout = 30 * time.Second
)

// Config represents the complete hearth configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	LLM       LLMConfig       `yaml:"llm"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// StorageConfig holds the conversation storage directory
type StorageConfig struct {
	Dir string `yaml:"dir"`
}

// LLMConfig holds the completion API configuration
type LLMConfig struct {
	Model        string  `yaml:"model"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	MaxHistory   int     `yaml:"max_history"`
	SystemPrompt string  `yaml:"system_prompt"`
	APIKey       string  `yaml:"api_key"`
	BaseURL      string  `yaml:"base_url"`

	RequestTimeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	RequestTimeoutRaw string `yaml:"request_timeout"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Hostname  string `yaml:"hostname"`
	AuthKey   string `yaml:"auth_key"`
	StateDir  string `yaml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral"`
	HTTPS     bool   `yaml:"https"`  // Serve TLS with Tailscale certs
	Funnel    bool   `yaml:"funnel"` // Enable public Funnel (implies HTTPS)
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// A missing file is not an error: the server runs fine from defaults
// plus environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := defaults()
			applyEnvOverrides(cfg)
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	cfg := defaults()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	applyEnvOverrides(cfg)

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config populated with the built-in defaults.
func defaults() *Config {
	return &Config{
		Server:  ServerConfig{HTTPAddr: ":" + DefaultPort},
		Storage: StorageConfig{Dir: DefaultStorageDir},
		LLM: LLMConfig{
			Model:          DefaultModel,
			Temperature:    DefaultTemperature,
			MaxTokens:      DefaultMaxTokens,
			SystemPrompt:   DefaultSystemPrompt,
			RequestTimeout: defaultRequestTimeout,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// applyEnvOverrides applies the twelve-factor style environment contract:
// PORT selects the listen port, OPENAI_API_KEY the credential. The storage
// directory can also be moved without editing the file.
func applyEnvOverrides(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.HTTPAddr = ":" + port
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.LLM.APIKey = key
	}
	if dir := os.Getenv("HEARTH_STORAGE_DIR"); dir != "" {
		cfg.Storage.Dir = dir
	}
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
	// The listen address is required unless Tailscale is enabled
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	// Tailscale requires a hostname
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if c.Storage.Dir == "" {
		return fmt.Errorf("storage.dir is required")
	}

	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.LLM.RequestTimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.LLM.RequestTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing request_timeout %q: %w", cfg.LLM.RequestTimeoutRaw, err)
		}
		cfg.LLM.RequestTimeout = d
	}

	return nil
}
