package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all service configuration. Values are resolved in order:
// defaults, then config file (if any), then environment variables, then
// explicit options. Later sources win.
type Config struct {
	Name string `yaml:"name" json:"name"`
	Port int    `yaml:"port" json:"port"`

	HTTP      HTTPConfig      `yaml:"http" json:"http"`
	AI        AIConfig        `yaml:"ai" json:"ai"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Redis     RedisConfig     `yaml:"redis" json:"redis"`
	Session   SessionConfig   `yaml:"session" json:"session"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	// IdleWindow closes an event stream with no delivered events.
	IdleWindow time.Duration `yaml:"idle_window" json:"idle_window"`
}

// AIConfig configures the structured completion backend.
// Supports OpenAI and OpenAI-compatible APIs via BaseURL.
type AIConfig struct {
	APIKey      string        `yaml:"api_key" json:"api_key"`
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	Model       string        `yaml:"model" json:"model"`
	Temperature float32       `yaml:"temperature" json:"temperature"`
	MaxTokens   int           `yaml:"max_tokens" json:"max_tokens"`
	MaxRetries  int           `yaml:"max_retries" json:"max_retries"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
}

// SearchConfig configures the information source backend.
type SearchConfig struct {
	BaseURL      string        `yaml:"base_url" json:"base_url"`
	ClientID     string        `yaml:"client_id" json:"client_id"`
	ClientSecret string        `yaml:"client_secret" json:"client_secret"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
}

// RedisConfig configures Redis-backed stores.
type RedisConfig struct {
	URL string `yaml:"url" json:"url"`
}

// SessionConfig configures conversation history retention.
type SessionConfig struct {
	TTL         time.Duration `yaml:"ttl" json:"ttl"`
	MaxMessages int           `yaml:"max_messages" json:"max_messages"`
}

// TelemetryConfig configures the OpenTelemetry provider.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Endpoint string `yaml:"endpoint" json:"endpoint"`
}

// LoggingConfig configures the production logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Option mutates a Config during construction.
type Option func(*Config) error

// NewConfig builds a validated Config.
func NewConfig(opts ...Option) (*Config, error) {
	c := defaultConfig()

	if path := os.Getenv("TRIPWEAVER_CONFIG_FILE"); path != "" {
		if err := c.LoadFromFile(path); err != nil {
			return nil, err
		}
	}

	c.applyEnvironment()

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func defaultConfig() *Config {
	return &Config{
		Name: "tripweaver",
		Port: 8080,
		HTTP: HTTPConfig{
			ReadTimeout:     30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			IdleWindow:      5 * time.Minute,
		},
		AI: AIConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			MaxTokens:   4000,
			MaxRetries:  3,
			Timeout:     120 * time.Second,
		},
		Search: SearchConfig{
			BaseURL: "https://openapi.naver.com",
			Timeout: 15 * time.Second,
		},
		Session: SessionConfig{
			TTL:         30 * time.Minute,
			MaxMessages: 50,
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "",
		},
	}
}

// LoadFromFile merges settings from a YAML or JSON file.
func (c *Config) LoadFromFile(path string) error {
	cleanPath := filepath.Clean(path)

	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config file extension %s: %w", ext, ErrInvalidConfiguration)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", cleanPath, err)
	}

	switch ext {
	case ".json":
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse JSON config file: %w", ErrInvalidConfiguration)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse YAML config file: %w", ErrInvalidConfiguration)
		}
	}
	return nil
}

func (c *Config) applyEnvironment() {
	setString(&c.Name, "TRIPWEAVER_NAME")
	setInt(&c.Port, "TRIPWEAVER_PORT")
	setDuration(&c.HTTP.IdleWindow, "TRIPWEAVER_SSE_IDLE_WINDOW")

	setString(&c.AI.APIKey, "TRIPWEAVER_AI_API_KEY", "OPENAI_API_KEY")
	setString(&c.AI.BaseURL, "TRIPWEAVER_AI_BASE_URL")
	setString(&c.AI.Model, "TRIPWEAVER_AI_MODEL")
	setDuration(&c.AI.Timeout, "TRIPWEAVER_AI_TIMEOUT")

	setString(&c.Search.BaseURL, "TRIPWEAVER_SEARCH_BASE_URL")
	setString(&c.Search.ClientID, "TRIPWEAVER_SEARCH_CLIENT_ID", "NAVER_CLIENT_ID")
	setString(&c.Search.ClientSecret, "TRIPWEAVER_SEARCH_CLIENT_SECRET", "NAVER_CLIENT_SECRET")

	setString(&c.Redis.URL, "TRIPWEAVER_REDIS_URL", "REDIS_URL")
	setDuration(&c.Session.TTL, "TRIPWEAVER_SESSION_TTL")
	setInt(&c.Session.MaxMessages, "TRIPWEAVER_SESSION_MAX_MESSAGES")

	if v := os.Getenv("TRIPWEAVER_TELEMETRY_ENDPOINT"); v != "" {
		c.Telemetry.Enabled = true
		c.Telemetry.Endpoint = v
	} else if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.Enabled = true
		c.Telemetry.Endpoint = v
	}

	setString(&c.Logging.Level, "TRIPWEAVER_LOG_LEVEL")
	setString(&c.Logging.Format, "TRIPWEAVER_LOG_FORMAT")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return &PipelineError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: fmt.Sprintf("invalid port: %d", c.Port),
			Err:     ErrInvalidConfiguration,
		}
	}
	if c.Name == "" {
		return &PipelineError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: "service name is required",
			Err:     ErrMissingConfiguration,
		}
	}
	if c.Session.MaxMessages < 1 {
		return &PipelineError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: fmt.Sprintf("invalid session message window: %d", c.Session.MaxMessages),
			Err:     ErrInvalidConfiguration,
		}
	}
	return nil
}

// WithName sets the service name.
func WithName(name string) Option {
	return func(c *Config) error {
		c.Name = name
		return nil
	}
}

// WithPort sets the HTTP port.
func WithPort(port int) Option {
	return func(c *Config) error {
		c.Port = port
		return nil
	}
}

// WithConfigFile loads an explicit config file.
func WithConfigFile(path string) Option {
	return func(c *Config) error {
		return c.LoadFromFile(path)
	}
}

// WithRedisURL sets the Redis connection URL.
func WithRedisURL(url string) Option {
	return func(c *Config) error {
		c.Redis.URL = url
		return nil
	}
}

// WithAIAPIKey sets the completion backend API key.
func WithAIAPIKey(key string) Option {
	return func(c *Config) error {
		c.AI.APIKey = key
		return nil
	}
}

func setString(dst *string, keys ...string) {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			*dst = v
			return
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
