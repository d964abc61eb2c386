// Package config provides unified configuration for the attaché service.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (ATTACHE_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the attaché service.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Blob          BlobConfig          `yaml:"blob"`
	Auth          AuthConfig          `yaml:"auth"`
	Links         LinksConfig         `yaml:"links"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int           `yaml:"port"`             // default: 8080
	ReadTimeout    time.Duration `yaml:"read_timeout"`     // default: 30s
	WriteTimeout   time.Duration `yaml:"write_timeout"`    // default: 120s
	MaxUploadBytes int64         `yaml:"max_upload_bytes"` // hard request cap, default: 512 MiB
}

// StorageConfig holds metadata store settings.
type StorageConfig struct {
	Type     string         `yaml:"type"` // "memory" or "postgres", default: "memory"
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 25
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// BlobConfig holds file content storage settings.
type BlobConfig struct {
	Type  string      `yaml:"type"` // "local" or "s3", default: "local"
	Local LocalConfig `yaml:"local"`
	S3    S3Config    `yaml:"s3"`
}

// LocalConfig holds filesystem blob storage settings.
type LocalConfig struct {
	Directory string `yaml:"directory"` // default: "./data/files"
}

// S3Config holds S3-compatible blob storage settings.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"` // optional, for MinIO and friends
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SecretKeyFile   string `yaml:"secret_access_key_file"` // _file variant
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Type string    `yaml:"type"` // "none" or "apikey", default: "apikey"
	JWT  JWTConfig `yaml:"jwt"`  // optional additional authenticator
}

// JWTConfig holds settings for the optional JWT authenticator.
// When enabled it is consulted before the API key scan.
type JWTConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Issuer           string        `yaml:"issuer"`
	Audience         string        `yaml:"audience"`
	JWKSURL          string        `yaml:"jwks_url"`
	ApplicationClaim string        `yaml:"application_claim"` // default: "app_id"
	CacheTTL         time.Duration `yaml:"cache_ttl"`         // default: 5m
}

// LinksConfig holds signed download link settings.
type LinksConfig struct {
	SigningKey     string `yaml:"signing_key"`
	SigningKeyFile string `yaml:"signing_key_file"` // _file variant
	MaxMinutes     int    `yaml:"max_minutes"`      // ceiling for requested expiries, default: 525949 (~1 year)
	BaseURL        string `yaml:"base_url"`         // public URL prefix, default: derived from server port
}

// RateLimitConfig holds per-application request rate settings.
// Zero disables the corresponding limit.
type RateLimitConfig struct {
	RequestsPerMinute      int `yaml:"requests_per_minute"`       // default: 0 (unlimited)
	AdminRequestsPerMinute int `yaml:"admin_requests_per_minute"` // default: 0 (unlimited)
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:           8080,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   120 * time.Second,
			MaxUploadBytes: 512 << 20,
		},
		Storage: StorageConfig{
			Type: "memory",
			Postgres: PostgresConfig{
				MaxConns: 25,
			},
		},
		Blob: BlobConfig{
			Type: "local",
			Local: LocalConfig{
				Directory: "./data/files",
			},
		},
		Auth: AuthConfig{
			Type: "apikey",
			JWT: JWTConfig{
				ApplicationClaim: "app_id",
				CacheTTL:         5 * time.Minute,
			},
		},
		Links: LinksConfig{
			MaxMinutes: 525949,
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
