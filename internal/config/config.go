package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
// It is read-only after Load() returns and safe for concurrent reads.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Auth      AuthConfig      `yaml:"auth"`
	Worker    WorkerConfig    `yaml:"worker"`
	Log       LogConfig       `yaml:"log"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// StoreConfig selects the preference storage backend.
type StoreConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisPrefix string `yaml:"redis_prefix"`
}

// GatewayConfig contains AI service settings.
type GatewayConfig struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"-"` // env-only, never in YAML
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
}

// AuthConfig contains authentication settings. An empty key disables auth.
type AuthConfig struct {
	APIKey string `yaml:"-"` // env-only, never in YAML
}

// WorkerConfig contains background worker settings.
type WorkerConfig struct {
	DailyInterval        Duration `yaml:"daily_interval"`
	SessionSweepInterval Duration `yaml:"session_sweep_interval"`
	SessionIdleTimeout   Duration `yaml:"session_idle_timeout"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RateLimitConfig bounds AI-backed requests. RPS 0 disables the limiter.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Duration is a wrapper around time.Duration that supports YAML string parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Load loads configuration with precedence: defaults → YAML file → env vars.
func Load() (*Config, error) {
	cfg := newDefaults()

	configPath := getEnv("PAVILION_CONFIG_PATH", "config/pavilion.yaml")

	// Missing file is not an error
	if err := loadYAMLFile(cfg, configPath); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a specific path, which must exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := newDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(90 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Store: StoreConfig{
			Backend:     "sqlite",
			Path:        "data/pavilion.db",
			RedisPrefix: "pavilion:",
		},
		Gateway: GatewayConfig{
			Provider: "gemini",
			Model:    "gemini-3-flash-preview",
		},
		Worker: WorkerConfig{
			DailyInterval:        Duration(1 * time.Hour),
			SessionSweepInterval: Duration(10 * time.Minute),
			SessionIdleTimeout:   Duration(2 * time.Hour),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		RateLimit: RateLimitConfig{
			RPS:   2,
			Burst: 5,
		},
	}
}

func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Only non-empty env vars override config values.
func applyEnvOverrides(cfg *Config) {
	// Server
	if v := os.Getenv("PAVILION_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	overrideDuration("PAVILION_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	overrideDuration("PAVILION_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	overrideDuration("PAVILION_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// Store
	if v := os.Getenv("PAVILION_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("PAVILION_DB_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("PAVILION_REDIS_ADDR"); v != "" {
		cfg.Store.RedisAddr = v
	}
	if v := os.Getenv("PAVILION_REDIS_PREFIX"); v != "" {
		cfg.Store.RedisPrefix = v
	}

	// Gateway
	if v := os.Getenv("PAVILION_AI_PROVIDER"); v != "" {
		cfg.Gateway.Provider = v
	}
	if v := os.Getenv("PAVILION_AI_MODEL"); v != "" {
		cfg.Gateway.Model = v
	}
	if v := os.Getenv("PAVILION_AI_BASE_URL"); v != "" {
		cfg.Gateway.BaseURL = v
	}
	cfg.Gateway.APIKey = gatewayKey(cfg.Gateway.Provider)

	// Auth
	if v := os.Getenv("PAVILION_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}

	// Worker
	overrideDuration("PAVILION_DAILY_INTERVAL", &cfg.Worker.DailyInterval)
	overrideDuration("PAVILION_SESSION_SWEEP_INTERVAL", &cfg.Worker.SessionSweepInterval)
	overrideDuration("PAVILION_SESSION_IDLE_TIMEOUT", &cfg.Worker.SessionIdleTimeout)

	// Log
	if v := os.Getenv("PAVILION_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("PAVILION_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}

	// Rate limit
	if v := os.Getenv("PAVILION_RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimit.RPS = f
		}
	}
	if v := os.Getenv("PAVILION_RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit.Burst = n
		}
	}
}

// gatewayKey picks the credential for provider. GEMINI_API_KEY wins over
// the generic API_KEY; OPENAI_API_KEY is industry convention for openai.
func gatewayKey(provider string) string {
	if provider == "openai" {
		return os.Getenv("OPENAI_API_KEY")
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		return v
	}
	return os.Getenv("API_KEY")
}

func overrideDuration(key string, dst *Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = Duration(d)
		}
	}
}

// validate checks that configuration values are usable. A missing AI key
// is not an error: the server starts with the gateway disabled.
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	switch c.Store.Backend {
	case "sqlite":
		if c.Store.Path == "" {
			return errors.New("store path is required for the sqlite backend")
		}
	case "redis":
		if c.Store.RedisAddr == "" {
			return errors.New("PAVILION_REDIS_ADDR is required for the redis backend")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.Gateway.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("unknown AI provider %q", c.Gateway.Provider)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if c.RateLimit.RPS < 0 {
		return errors.New("rate limit rps must not be negative")
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1 {
		return errors.New("rate limit burst must be at least 1")
	}
	if c.Worker.DailyInterval <= 0 || c.Worker.SessionSweepInterval <= 0 {
		return errors.New("worker intervals must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
