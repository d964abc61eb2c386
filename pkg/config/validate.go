package config

import (
	"errors"
	"fmt"

	"github.com/attache-dev/attache/pkg/capability"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// server.port must be positive.
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	// storage.type must be a known value.
	switch c.Storage.Type {
	case "memory", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"memory\" or \"postgres\", got %q", c.Storage.Type))
	}

	// If storage.type is "postgres", DSN or DSNFile must be set.
	if c.Storage.Type == "postgres" {
		if c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
		}
	}

	// blob.type must be a known value.
	switch c.Blob.Type {
	case "local", "s3":
		// valid
	default:
		errs = append(errs, fmt.Errorf("blob.type must be \"local\" or \"s3\", got %q", c.Blob.Type))
	}

	if c.Blob.Type == "local" && c.Blob.Local.Directory == "" {
		errs = append(errs, fmt.Errorf("blob.local.directory is required when blob.type is \"local\""))
	}
	if c.Blob.Type == "s3" && c.Blob.S3.Bucket == "" {
		errs = append(errs, fmt.Errorf("blob.s3.bucket is required when blob.type is \"s3\""))
	}

	// auth.type must be a known value.
	switch c.Auth.Type {
	case "none", "apikey":
		// valid
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"none\" or \"apikey\", got %q", c.Auth.Type))
	}

	if c.Auth.JWT.Enabled && c.Auth.JWT.JWKSURL == "" {
		errs = append(errs, fmt.Errorf("auth.jwt.jwks_url is required when auth.jwt.enabled is true"))
	}

	// The signing key gates every public download link. A short key is a
	// deployment mistake, not a degraded mode, so it fails validation.
	if c.Links.SigningKey == "" && c.Links.SigningKeyFile == "" {
		errs = append(errs, fmt.Errorf("links.signing_key or links.signing_key_file is required"))
	} else if c.Links.SigningKey != "" && len(c.Links.SigningKey) < capability.MinKeyBytes {
		errs = append(errs, fmt.Errorf("links.signing_key must be at least %d bytes, got %d", capability.MinKeyBytes, len(c.Links.SigningKey)))
	}

	if c.Links.MaxMinutes <= 0 {
		errs = append(errs, fmt.Errorf("links.max_minutes must be > 0, got %d", c.Links.MaxMinutes))
	}

	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("rate_limit.requests_per_minute must be >= 0, got %d", c.RateLimit.RequestsPerMinute))
	}
	if c.RateLimit.AdminRequestsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("rate_limit.admin_requests_per_minute must be >= 0, got %d", c.RateLimit.AdminRequestsPerMinute))
	}

	return errors.Join(errs...)
}
