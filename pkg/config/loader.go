package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, ATTACHE_CONFIG env, ./config.yaml, /etc/attache/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	// Start with defaults.
	cfg := Defaults()

	// Discover and load YAML config file.
	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	// Apply environment variable overrides.
	applyEnvOverrides(&cfg)

	// Resolve _file references.
	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	// Validate.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. ATTACHE_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/attache/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	// Explicit path takes priority.
	if configPath != "" {
		return configPath
	}

	// Check ATTACHE_CONFIG env var.
	if envPath := os.Getenv("ATTACHE_CONFIG"); envPath != "" {
		return envPath
	}

	// Check common locations.
	candidates := []string{
		"config.yaml",
		"/etc/attache/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps environment variables to config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ATTACHE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ATTACHE_STORAGE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("ATTACHE_POSTGRES_DSN"); v != "" {
		cfg.Storage.Postgres.DSN = v
	}
	if v := os.Getenv("ATTACHE_BLOB"); v != "" {
		cfg.Blob.Type = v
	}
	if v := os.Getenv("ATTACHE_BLOB_DIR"); v != "" {
		cfg.Blob.Local.Directory = v
	}
	if v := os.Getenv("ATTACHE_S3_BUCKET"); v != "" {
		cfg.Blob.S3.Bucket = v
	}
	if v := os.Getenv("ATTACHE_S3_REGION"); v != "" {
		cfg.Blob.S3.Region = v
	}
	if v := os.Getenv("ATTACHE_S3_ENDPOINT"); v != "" {
		cfg.Blob.S3.Endpoint = v
	}
	if v := os.Getenv("ATTACHE_AUTH_TYPE"); v != "" {
		cfg.Auth.Type = v
	}
	if v := os.Getenv("ATTACHE_SIGNING_KEY"); v != "" {
		cfg.Links.SigningKey = v
	}
	if v := os.Getenv("ATTACHE_LINK_MAX_MINUTES"); v != "" {
		if minutes, err := strconv.Atoi(v); err == nil {
			cfg.Links.MaxMinutes = minutes
		}
	}
	if v := os.Getenv("ATTACHE_BASE_URL"); v != "" {
		cfg.Links.BaseURL = v
	}
	if v := os.Getenv("ATTACHE_RATE_LIMIT_RPM"); v != "" {
		if rpm, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit.RequestsPerMinute = rpm
		}
	}
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// storage.postgres.dsn_file -> storage.postgres.dsn
	if cfg.Storage.Postgres.DSNFile != "" && cfg.Storage.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Storage.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("storage.postgres.dsn_file: %w", err)
		}
		cfg.Storage.Postgres.DSN = val
	}

	// blob.s3.secret_access_key_file -> blob.s3.secret_access_key
	if cfg.Blob.S3.SecretKeyFile != "" && cfg.Blob.S3.SecretAccessKey == "" {
		val, err := readSecretFile(cfg.Blob.S3.SecretKeyFile)
		if err != nil {
			return fmt.Errorf("blob.s3.secret_access_key_file: %w", err)
		}
		cfg.Blob.S3.SecretAccessKey = val
	}

	// links.signing_key_file -> links.signing_key
	if cfg.Links.SigningKeyFile != "" && cfg.Links.SigningKey == "" {
		val, err := readSecretFile(cfg.Links.SigningKeyFile)
		if err != nil {
			return fmt.Errorf("links.signing_key_file: %w", err)
		}
		cfg.Links.SigningKey = val
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
