package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	domaincfg "phrasely-backend/domain/config"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address"`
	Environment   string `yaml:"environment"`

	// Upstream NLP service
	UpstreamBaseURL   string        `yaml:"upstream_base_url"`
	UpstreamSocketURL string        `yaml:"upstream_socket_url"`
	UpstreamTimeout   time.Duration `yaml:"upstream_timeout"`
	UpstreamModel     string        `yaml:"upstream_model"`

	// Circuit breaker
	BreakerMaxRequests uint32        `yaml:"breaker_max_requests"`
	BreakerInterval    time.Duration `yaml:"breaker_interval"`
	BreakerTimeout     time.Duration `yaml:"breaker_timeout"`

	// Rate limiting
	SubmitsPerMinute int `yaml:"submits_per_minute"`

	// Session housekeeping
	SessionMaxAge   time.Duration `yaml:"session_max_age"`
	SweepInterval   time.Duration `yaml:"sweep_interval"`
	MaxSessionsUser int           `yaml:"max_sessions_per_user"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// Observability
	EnableMetrics bool   `yaml:"enable_metrics"`
	EnableTracing bool   `yaml:"enable_tracing"`
	OTLPEndpoint  string `yaml:"otlp_endpoint"`
	EnableCORS    bool   `yaml:"enable_cors"`

	// Domain tunables, overlaid onto the domain defaults
	Domain *domaincfg.DomainConfig `yaml:"domain"`
}

// LoadConfig loads configuration from environment variables, then
// overlays the optional YAML file named by CONFIG_FILE.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),

		UpstreamBaseURL:   getEnv("UPSTREAM_BASE_URL", "http://localhost:9000"),
		UpstreamSocketURL: getEnv("UPSTREAM_SOCKET_URL", "ws://localhost:9000/stream"),
		UpstreamTimeout:   getEnvDuration("UPSTREAM_TIMEOUT", 30*time.Second),
		UpstreamModel:     getEnv("UPSTREAM_MODEL", "standard"),

		BreakerMaxRequests: uint32(getEnvInt("BREAKER_MAX_REQUESTS", 3)),
		BreakerInterval:    getEnvDuration("BREAKER_INTERVAL", time.Minute),
		BreakerTimeout:     getEnvDuration("BREAKER_TIMEOUT", 30*time.Second),

		SubmitsPerMinute: getEnvInt("SUBMITS_PER_MINUTE", 20),

		SessionMaxAge:   getEnvDuration("SESSION_MAX_AGE", 24*time.Hour),
		SweepInterval:   getEnvDuration("SWEEP_INTERVAL", 5*time.Second),
		MaxSessionsUser: getEnvInt("MAX_SESSIONS_PER_USER", 50),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		EnableMetrics: getEnvBool("ENABLE_METRICS", true),
		EnableTracing: getEnvBool("ENABLE_TRACING", false),
		OTLPEndpoint:  getEnv("OTLP_ENDPOINT", "localhost:4317"),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}

	if cfg.Domain == nil {
		cfg.Domain = domaincfg.LoadDomainConfig(cfg.Environment)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is an alias for LoadConfig for backwards compatibility
func Load() (*Config, error) {
	return LoadConfig()
}

// overlayFile applies YAML settings on top of the env-derived config.
func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.UpstreamBaseURL == "" {
		return fmt.Errorf("UPSTREAM_BASE_URL is required")
	}
	if c.UpstreamSocketURL == "" {
		return fmt.Errorf("UPSTREAM_SOCKET_URL is required")
	}
	if c.SubmitsPerMinute <= 0 {
		return fmt.Errorf("SUBMITS_PER_MINUTE must be positive")
	}
	if c.Domain != nil {
		if err := c.Domain.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
