// Package config loads the coordinator configuration from YAML with
// environment-variable overrides for deploy-time settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/srdtrk/nft-ica/internal/icatypes"
)

// Config is the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	ICA      ICAConfig      `yaml:"ica"`
	Auth     AuthConfig     `yaml:"auth"`
	CORS     CORSConfig     `yaml:"cors"`
}

// ServerConfig is the HTTP listener configuration.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the listen address in host:port form.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig is the postgres connection configuration.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig is the messaging-channel configuration.
type NATSConfig struct {
	URL           string `yaml:"url"`
	Timeout       int    `yaml:"timeout"`        // seconds
	ReconnectWait int    `yaml:"reconnect_wait"` // seconds
	MaxReconnects int    `yaml:"max_reconnects"`
	StreamName    string `yaml:"stream_name"`
	ConsumerName  string `yaml:"consumer_name"`
}

// ConnectTimeout returns the configured connect timeout with a default.
func (c NATSConfig) ConnectTimeout() time.Duration {
	if c.Timeout > 0 {
		return time.Duration(c.Timeout) * time.Second
	}
	return 10 * time.Second
}

// LedgerConfig points at the token-ownership ledger service.
type LedgerConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout int    `yaml:"timeout"` // seconds
}

// RequestTimeout returns the configured ledger request timeout with a default.
func (c LedgerConfig) RequestTimeout() time.Duration {
	if c.Timeout > 0 {
		return time.Duration(c.Timeout) * time.Second
	}
	return 15 * time.Second
}

// ICAConfig carries the static ICA defaults used at instantiation.
type ICAConfig struct {
	ControllerCodeRef  string                          `yaml:"controller_code_ref"`
	LedgerCodeRef      string                          `yaml:"ledger_code_ref"`
	DefaultChanOptions icatypes.ChannelOpenInitOptions `yaml:"default_chan_options"`
}

// AuthConfig configures JWT verification for the execute surface.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

// CORSConfig configures cross-origin access for the query surface.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxAge         int      `yaml:"max_age"`
}

// Load reads the configuration file at path and applies environment
// overrides. Env vars win over YAML values.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret is required")
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.NATS.StreamName == "" {
		cfg.NATS.StreamName = "ICA_EVENTS"
	}
	if cfg.NATS.ConsumerName == "" {
		cfg.NATS.ConsumerName = "nft-ica-coordinator"
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("LEDGER_BASE_URL"); v != "" {
		cfg.Ledger.BaseURL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}
