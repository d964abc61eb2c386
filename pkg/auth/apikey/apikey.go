// Package apikey provides the API key authenticator: it verifies the
// X-Api-Key header against the bcrypt hashes of all registered
// applications.
//
// The hashes are salted and one-way, so there is no way to index from a
// presented key to a single application record; the authenticator
// trials the key against every stored hash and stops at the first
// match. bcrypt's verification is constant-time per comparison.
package apikey

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/attache-dev/attache/pkg/auth"
	"github.com/attache-dev/attache/pkg/debug"
	"github.com/attache-dev/attache/pkg/storage"
)

// HeaderName is the request header carrying the application API key.
const HeaderName = "X-Api-Key"

// Authenticator validates API keys against application records.
type Authenticator struct {
	apps storage.ApplicationStore
}

// New creates an API key authenticator backed by the given store.
func New(apps storage.ApplicationStore) *Authenticator {
	return &Authenticator{apps: apps}
}

// Authenticate extracts the API key and trials it against all stored
// hashes.
//
// Decision outcomes:
//   - Abstain: no X-Api-Key header present
//   - No: header present but blank, or key matched no application
//   - Yes: key verified; principal carries the application's quotas
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request) auth.Result {
	key, present := headerValue(r)
	if !present {
		return auth.Result{Decision: auth.Abstain}
	}

	if strings.TrimSpace(key) == "" {
		return auth.Result{Decision: auth.No, Err: auth.ErrMissingCredential}
	}

	apps, err := a.apps.ListApplications(ctx)
	if err != nil {
		slog.Error("listing applications for key verification", "error", err)
		return auth.Result{Decision: auth.No, Err: auth.ErrInvalidCredential}
	}

	for i := range apps {
		app := &apps[i]
		if app.APIKeyHash == "" {
			slog.Warn("application has no API key hash configured",
				"application", app.Name, "application_id", app.ID)
			continue
		}

		err := bcrypt.CompareHashAndPassword([]byte(app.APIKeyHash), []byte(key))
		if err == nil {
			debug.Log("auth", "api key verified", "application", app.Name, "application_id", app.ID)
			return auth.Result{Decision: auth.Yes, Principal: auth.NewPrincipal(app)}
		}
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			// Corrupt stored hash. Skip this record rather than failing
			// the whole verification.
			slog.Error("stored API key hash is malformed",
				"application", app.Name, "application_id", app.ID, "error", err)
			continue
		}
	}

	return auth.Result{Decision: auth.No, Err: auth.ErrInvalidCredential}
}

// headerValue returns the API key header and whether it was present at
// all. A present-but-empty header is distinct from an absent one: the
// former is a failed authentication attempt, the latter lets the chain
// continue.
func headerValue(r *http.Request) (string, bool) {
	vals, ok := r.Header[http.CanonicalHeaderKey(HeaderName)]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

// HashKey produces the bcrypt hash stored for a new application's API
// key. The plaintext is never persisted.
func HashKey(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
