package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	KV          KVConfig          `mapstructure:"kv"`
	Session     SessionConfig     `mapstructure:"session"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
	Signature   SignatureConfig   `mapstructure:"signature"`
	Webhook     WebhookConfig     `mapstructure:"webhook"`
	Merchant    MerchantConfig    `mapstructure:"merchant"`
	Auth        AuthConfig        `mapstructure:"auth"`
	API         APIConfig         `mapstructure:"api"`
	Stripe      StripeConfig      `mapstructure:"stripe"`
	RateLimit   RateLimitConfig   `mapstructure:"ratelimit"`
	Log         LogConfig         `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// KVConfig selects and configures the key-value backend that holds sessions
// and idempotency records. Backend is one of "redis", "postgres", "memory".
type KVConfig struct {
	Backend  string         `mapstructure:"backend"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode,
	)
}

type SessionConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type IdempotencyConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// SignatureConfig governs inbound request signature verification. An empty
// secret disables the check.
type SignatureConfig struct {
	Secret    string        `mapstructure:"secret"`
	Tolerance time.Duration `mapstructure:"tolerance"`
}

// WebhookConfig governs outbound order event delivery. An empty URL disables
// delivery.
type WebhookConfig struct {
	URL     string        `mapstructure:"url"`
	Secret  string        `mapstructure:"secret"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type MerchantConfig struct {
	Name string `mapstructure:"name"`
}

// AuthConfig selects the inbound bearer scheme. Mode is one of "bearer"
// (static token), "jwt" (HS256 shared secret), "none" (local development).
type AuthConfig struct {
	Mode        string `mapstructure:"mode"`
	BearerToken string `mapstructure:"bearer_token"`
	JWTSecret   string `mapstructure:"jwt_secret"`
}

type APIConfig struct {
	Version string `mapstructure:"version"`
}

type StripeConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: ACP_.
// Nested keys use underscore: ACP_KV_BACKEND, ACP_WEBHOOK_URL, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("kv.backend", "memory")
	v.SetDefault("kv.redis.host", "localhost")
	v.SetDefault("kv.redis.port", 6379)
	v.SetDefault("kv.redis.password", "")
	v.SetDefault("kv.redis.db", 0)
	v.SetDefault("kv.postgres.host", "localhost")
	v.SetDefault("kv.postgres.port", 5432)
	v.SetDefault("kv.postgres.user", "postgres")
	v.SetDefault("kv.postgres.password", "postgres")
	v.SetDefault("kv.postgres.dbname", "agentic_checkout")
	v.SetDefault("kv.postgres.sslmode", "disable")
	v.SetDefault("kv.postgres.max_conns", 20)
	v.SetDefault("kv.postgres.min_conns", 5)
	v.SetDefault("kv.postgres.conn_max_lifetime", "30m")
	v.SetDefault("session.ttl", "24h")
	v.SetDefault("idempotency.ttl", "24h")
	v.SetDefault("signature.secret", "")
	v.SetDefault("signature.tolerance", "300s")
	v.SetDefault("webhook.url", "")
	v.SetDefault("webhook.secret", "")
	v.SetDefault("webhook.timeout", "30s")
	v.SetDefault("merchant.name", "Merchant")
	v.SetDefault("auth.mode", "bearer")
	v.SetDefault("auth.bearer_token", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("api.version", "2026-08-25")
	v.SetDefault("stripe.api_key", "")
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: ACP_KV_BACKEND -> kv.backend
	v.SetEnvPrefix("ACP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required — env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate rejects configurations that would silently break protocol
// guarantees.
func (c *Config) validate() error {
	switch c.KV.Backend {
	case "redis", "postgres", "memory":
	default:
		return fmt.Errorf("kv.backend must be one of redis, postgres, memory (got %q)", c.KV.Backend)
	}

	switch c.Auth.Mode {
	case "bearer", "jwt", "none":
	default:
		return fmt.Errorf("auth.mode must be one of bearer, jwt, none (got %q)", c.Auth.Mode)
	}

	// An idempotency record must outlive the session it committed; expiring
	// it first would let a retried client re-execute payment.
	if c.Idempotency.TTL < c.Session.TTL {
		return fmt.Errorf("idempotency.ttl (%s) must be at least session.ttl (%s)", c.Idempotency.TTL, c.Session.TTL)
	}

	return nil
}
