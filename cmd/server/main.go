// Command server runs the attaché file attachment service.
//
// Configuration is layered: built-in defaults, then an optional YAML
// file (-config flag, ATTACHE_CONFIG, ./config.yaml, or
// /etc/attache/config.yaml), then ATTACHE_* environment overrides.
// See pkg/config for the full set of options.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/attache-dev/attache/pkg/auth"
	"github.com/attache-dev/attache/pkg/auth/apikey"
	"github.com/attache-dev/attache/pkg/auth/jwt"
	"github.com/attache-dev/attache/pkg/auth/noop"
	"github.com/attache-dev/attache/pkg/blob"
	"github.com/attache-dev/attache/pkg/capability"
	"github.com/attache-dev/attache/pkg/config"
	"github.com/attache-dev/attache/pkg/debug"
	"github.com/attache-dev/attache/pkg/storage"
	"github.com/attache-dev/attache/pkg/storage/memory"
	"github.com/attache-dev/attache/pkg/storage/postgres"
	transporthttp "github.com/attache-dev/attache/pkg/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	debug.Init("", "")
	logger := slog.Default()

	// Shutdown signal handling lives in the server; this context only
	// scopes startup work like pool creation.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := buildStore(ctx, *cfg)
	if err != nil {
		return fmt.Errorf("creating metadata store: %w", err)
	}
	defer store.Close()

	blobs, err := buildBlobStore(ctx, *cfg)
	if err != nil {
		return fmt.Errorf("creating blob store: %w", err)
	}

	codec, err := capability.New(
		[]byte(cfg.Links.SigningKey),
		time.Duration(cfg.Links.MaxMinutes)*time.Minute,
		nil,
	)
	if err != nil {
		// A weak signing key must stop the service, never degrade it.
		return fmt.Errorf("creating link codec: %w", err)
	}

	chain := buildAuthChain(*cfg, store)

	var limiter auth.RateLimiter
	if cfg.RateLimit.RequestsPerMinute > 0 || cfg.RateLimit.AdminRequestsPerMinute > 0 {
		limiter = auth.NewInProcessLimiter(
			cfg.RateLimit.RequestsPerMinute,
			cfg.RateLimit.AdminRequestsPerMinute,
		)
	}

	baseURL := cfg.Links.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}

	handlers := transporthttp.NewHandlers(
		store, blobs, codec, baseURL, cfg.Server.MaxUploadBytes, logger,
	)

	srv := transporthttp.NewServer(handlers, chain, limiter,
		transporthttp.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transporthttp.WithMetrics(cfg.Observability.Metrics.Enabled, cfg.Observability.Metrics.Path),
		transporthttp.WithLogger(logger),
	)

	logger.Info("configuration loaded",
		"storage", cfg.Storage.Type,
		"blob", cfg.Blob.Type,
		"auth", cfg.Auth.Type,
		"port", cfg.Server.Port,
	)

	return srv.ListenAndServe()
}

func buildStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	switch cfg.Storage.Type {
	case "postgres":
		return postgres.New(ctx, postgres.Config{
			DSN:            cfg.Storage.Postgres.DSN,
			MaxConns:       cfg.Storage.Postgres.MaxConns,
			MigrateOnStart: cfg.Storage.Postgres.MigrateOnStart,
		})
	default:
		return memory.New(), nil
	}
}

func buildBlobStore(ctx context.Context, cfg config.Config) (blob.Store, error) {
	switch cfg.Blob.Type {
	case "s3":
		return blob.NewS3Store(ctx, blob.S3Config{
			Bucket:          cfg.Blob.S3.Bucket,
			Region:          cfg.Blob.S3.Region,
			Endpoint:        cfg.Blob.S3.Endpoint,
			AccessKeyID:     cfg.Blob.S3.AccessKeyID,
			SecretAccessKey: cfg.Blob.S3.SecretAccessKey,
			UsePathStyle:    cfg.Blob.S3.UsePathStyle,
		})
	default:
		return blob.NewLocalStore(cfg.Blob.Local.Directory)
	}
}

// buildAuthChain assembles authenticators in precedence order: JWT
// (narrowed lookup) before the API key scan. With auth disabled the
// chain defaults to Yes and every request runs as an anonymous
// principal.
func buildAuthChain(cfg config.Config, store storage.Store) *auth.Chain {
	if cfg.Auth.Type == "none" {
		return &auth.Chain{
			Authenticators:  []auth.Authenticator{&noop.Authenticator{}},
			DefaultDecision: auth.Yes,
		}
	}

	var authenticators []auth.Authenticator
	if cfg.Auth.JWT.Enabled {
		authenticators = append(authenticators, jwt.New(jwt.Config{
			Issuer:           cfg.Auth.JWT.Issuer,
			Audience:         cfg.Auth.JWT.Audience,
			JWKSURL:          cfg.Auth.JWT.JWKSURL,
			ApplicationClaim: cfg.Auth.JWT.ApplicationClaim,
			CacheTTL:         cfg.Auth.JWT.CacheTTL,
		}, store))
	}
	authenticators = append(authenticators, apikey.New(store))

	return &auth.Chain{
		Authenticators:  authenticators,
		DefaultDecision: auth.No,
	}
}
