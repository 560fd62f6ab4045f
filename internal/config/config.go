package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// BackendConfig holds the hosted backend-as-a-service connection settings.
// JWTSecret enables HS256 verification of access tokens; IssuerURL switches
// verification to OIDC discovery instead.
type BackendConfig struct {
	DatabaseURL    string `yaml:"database_url"`
	MaxConnections int    `yaml:"max_connections"`
	JWTSecret      string `yaml:"jwt_secret"`
	IssuerURL      string `yaml:"issuer_url"`
	ClientID       string `yaml:"client_id"`
}

// CloudConfig holds the managed model provider settings. Static credentials
// are optional; with them absent the SDK's default chain is used.
type CloudConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	BaseEndpoint    string `yaml:"base_endpoint"`
}

// SessionConfig holds session store settings
type SessionConfig struct {
	Store            string `yaml:"store"` // "sqlite" or "redis"
	SQLitePath       string `yaml:"sqlite_path"`
	RedisURL         string `yaml:"redis_url"`
	DurationHours    int    `yaml:"duration_hours"`
	OverrideSecret   string `yaml:"override_secret"`
	EmergencyKeyHash string `yaml:"emergency_key_hash"` // bcrypt hash, empty disables the endpoint
}

// Config contains the full application configuration.
// Precedence: environment variables > YAML file > defaults.
type Config struct {
	ServerAddr         string        `yaml:"server_addr"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`
	ReadTimeout        time.Duration `yaml:"-"`
	WriteTimeout       time.Duration `yaml:"-"`

	Session SessionConfig `yaml:"session"`
	Backend BackendConfig `yaml:"backend"`
	Cloud   CloudConfig   `yaml:"cloud"`
}

// SessionDuration returns the configured rolling session window (default 8h)
func (c *Config) SessionDuration() time.Duration {
	if c.Session.DurationHours <= 0 {
		return 8 * time.Hour
	}
	return time.Duration(c.Session.DurationHours) * time.Hour
}

// DBMaxConnections returns the backend pool size with a sane floor
func (c *Config) DBMaxConnections() int {
	if c.Backend.MaxConnections <= 0 {
		return 10
	}
	return c.Backend.MaxConnections
}

type yamlConfig struct {
	ServerAddr         string        `yaml:"server_addr"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`
	ReadTimeout        int           `yaml:"read_timeout"`
	WriteTimeout       int           `yaml:"write_timeout"`
	Session            SessionConfig `yaml:"session"`
	Backend            BackendConfig `yaml:"backend"`
	Cloud              CloudConfig   `yaml:"cloud"`
}

// Load builds the configuration from an optional YAML file (CONFIG_PATH,
// falling back to config/backend.yaml) overlaid with environment variables.
func Load() (*Config, error) {
	yc := yamlConfig{
		ServerAddr:   ":8080",
		ReadTimeout:  15,
		WriteTimeout: 15,
		Session: SessionConfig{
			Store:         "sqlite",
			SQLitePath:    "./enclave.db",
			DurationHours: 8,
		},
	}

	paths := []string{os.Getenv("CONFIG_PATH"), "config/backend.yaml"}
	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, &yc); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
		break
	}

	cfg := &Config{
		ServerAddr:         envStr("SERVER_ADDR", yc.ServerAddr),
		CORSAllowedOrigins: yc.CORSAllowedOrigins,
		ReadTimeout:        time.Duration(envInt("READ_TIMEOUT", yc.ReadTimeout)) * time.Second,
		WriteTimeout:       time.Duration(envInt("WRITE_TIMEOUT", yc.WriteTimeout)) * time.Second,
		Session: SessionConfig{
			Store:            envStr("SESSION_STORE", yc.Session.Store),
			SQLitePath:       envStr("SESSION_SQLITE_PATH", yc.Session.SQLitePath),
			RedisURL:         envStr("SESSION_REDIS_URL", yc.Session.RedisURL),
			DurationHours:    envInt("SESSION_DURATION_HOURS", yc.Session.DurationHours),
			OverrideSecret:   envStr("OVERRIDE_SECRET", yc.Session.OverrideSecret),
			EmergencyKeyHash: envStr("EMERGENCY_KEY_HASH", yc.Session.EmergencyKeyHash),
		},
		Backend: BackendConfig{
			DatabaseURL:    envStr("BACKEND_DATABASE_URL", yc.Backend.DatabaseURL),
			MaxConnections: envInt("BACKEND_MAX_CONNECTIONS", yc.Backend.MaxConnections),
			JWTSecret:      envStr("BACKEND_JWT_SECRET", yc.Backend.JWTSecret),
			IssuerURL:      envStr("BACKEND_ISSUER_URL", yc.Backend.IssuerURL),
			ClientID:       envStr("BACKEND_CLIENT_ID", yc.Backend.ClientID),
		},
		Cloud: CloudConfig{
			Region:          envStr("CLOUD_REGION", yc.Cloud.Region),
			AccessKeyID:     envStr("CLOUD_ACCESS_KEY_ID", yc.Cloud.AccessKeyID),
			SecretAccessKey: envStr("CLOUD_SECRET_ACCESS_KEY", yc.Cloud.SecretAccessKey),
			BaseEndpoint:    envStr("CLOUD_BASE_ENDPOINT", yc.Cloud.BaseEndpoint),
		},
	}

	if cfg.Backend.DatabaseURL == "" {
		return nil, fmt.Errorf("config: backend database_url is required")
	}
	if cfg.Session.Store != "sqlite" && cfg.Session.Store != "redis" {
		return nil, fmt.Errorf("config: unknown session store %q", cfg.Session.Store)
	}
	if cfg.Session.OverrideSecret == "" {
		return nil, fmt.Errorf("config: session override_secret is required")
	}

	return cfg, nil
}

// envStr returns the environment value or fallback
func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt returns the numeric environment value or fallback
func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
