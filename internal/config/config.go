package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the ragstore API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Cache      CacheConfig      `yaml:"cache"`
	Search     SearchConfig     `yaml:"search"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Auth       AuthConfig       `yaml:"auth"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// EmbeddingConfig holds the model catalog and the default model.
type EmbeddingConfig struct {
	DefaultModel string                 `yaml:"default_model"`
	Models       map[string]ModelConfig `yaml:"models"`
}

// ModelConfig describes one embedding model and how to reach its provider.
type ModelConfig struct {
	Kind       string   `yaml:"kind"` // remote, local
	APIKey     string   `yaml:"api_key"`
	BaseURL    string   `yaml:"base_url"`
	Dimensions int      `yaml:"dimensions"`
	Aliases    []string `yaml:"aliases"`
	TimeoutSec int      `yaml:"timeout_sec"`
}

// CacheConfig holds TTLs for the embedding and response caches.
type CacheConfig struct {
	EmbeddingTTLSec int `yaml:"embedding_ttl_sec"`
	ResponseTTLSec  int `yaml:"response_ttl_sec"`
}

// SearchConfig holds search limits.
type SearchConfig struct {
	DefaultTopK int `yaml:"default_top_k"`
	MaxTopK     int `yaml:"max_top_k"`
}

// ResilienceConfig holds retry and circuit breaker settings for provider calls.
type ResilienceConfig struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialIntervalMs int     `yaml:"initial_interval_ms"`
	MaxIntervalMs     int     `yaml:"max_interval_ms"`
	FailureRatio      float64 `yaml:"failure_ratio"`
	MinRequests       int     `yaml:"min_requests"`
	WindowSec         int     `yaml:"window_sec"`
	CooldownSec       int     `yaml:"cooldown_sec"`
	HalfOpenMaxCalls  int     `yaml:"half_open_max_calls"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "ragstore:"
	}
	if c.Cache.EmbeddingTTLSec <= 0 {
		c.Cache.EmbeddingTTLSec = 6 * 3600
	}
	if c.Cache.ResponseTTLSec <= 0 {
		c.Cache.ResponseTTLSec = 300
	}
	if c.Search.DefaultTopK <= 0 {
		c.Search.DefaultTopK = 10
	}
	if c.Search.MaxTopK <= 0 {
		c.Search.MaxTopK = 100
	}
	if c.Resilience.MaxAttempts <= 0 {
		c.Resilience.MaxAttempts = 3
	}
	if c.Resilience.InitialIntervalMs <= 0 {
		c.Resilience.InitialIntervalMs = 200
	}
	if c.Resilience.MaxIntervalMs <= 0 {
		c.Resilience.MaxIntervalMs = 5000
	}
	if c.Resilience.FailureRatio <= 0 {
		c.Resilience.FailureRatio = 0.6
	}
	if c.Resilience.MinRequests <= 0 {
		c.Resilience.MinRequests = 5
	}
	if c.Resilience.WindowSec <= 0 {
		c.Resilience.WindowSec = 60
	}
	if c.Resilience.CooldownSec <= 0 {
		c.Resilience.CooldownSec = 30
	}
	if c.Resilience.HalfOpenMaxCalls <= 0 {
		c.Resilience.HalfOpenMaxCalls = 1
	}
	for name, m := range c.Embedding.Models {
		if m.Kind == "" {
			m.Kind = "remote"
		}
		if m.TimeoutSec <= 0 {
			m.TimeoutSec = 30
		}
		c.Embedding.Models[name] = m
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if len(c.Embedding.Models) == 0 {
		return fmt.Errorf("embedding.models is required")
	}
	if c.Embedding.DefaultModel == "" {
		return fmt.Errorf("embedding.default_model is required")
	}
	for name, m := range c.Embedding.Models {
		switch m.Kind {
		case "remote", "local":
			// ok
		default:
			return fmt.Errorf("embedding.models.%s.kind must be \"remote\" or \"local\", got %q", name, m.Kind)
		}
		if m.Dimensions <= 0 {
			return fmt.Errorf("embedding.models.%s.dimensions must be positive", name)
		}
	}
	if c.Search.DefaultTopK > c.Search.MaxTopK {
		return fmt.Errorf("search.default_top_k must not exceed search.max_top_k")
	}
	if c.Resilience.FailureRatio > 1 {
		return fmt.Errorf("resilience.failure_ratio must be in (0, 1], got %g", c.Resilience.FailureRatio)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
