package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/attache-dev/attache/pkg/api"
	"github.com/attache-dev/attache/pkg/observability"
)

// Middleware creates HTTP middleware from a Chain and optional
// RateLimiter. It checks the bypass list, runs authentication, injects
// the principal into the request context, and optionally enforces rate
// limits.
//
// Every authentication failure (header absent, key blank, key unknown)
// produces the same 401 body, so the response shape reveals nothing
// about which case occurred.
func Middleware(chain *Chain, limiter RateLimiter, bypassPaths []string) func(http.Handler) http.Handler {
	bypass := make(map[string]bool, len(bypassPaths))
	for _, p := range bypassPaths {
		bypass[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Anonymous endpoints skip credential checks entirely.
			if bypass[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			result := chain.Authenticate(r.Context(), r)

			if result.Decision == No {
				slog.Warn("authentication failed",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"error", result.Err,
				)
				observability.AuthFailuresTotal.Inc()
				writeUnauthorized(w)
				return
			}

			if result.Decision != Yes || result.Principal == nil {
				writeUnauthorized(w)
				return
			}

			slog.Debug("authentication succeeded",
				"application", result.Principal.Name,
				"application_id", result.Principal.ApplicationID,
				"path", r.URL.Path,
			)

			if limiter != nil {
				if err := limiter.Allow(r.Context(), result.Principal); err != nil {
					slog.Warn("rate limit exceeded",
						"application", result.Principal.Name,
						"application_id", result.Principal.ApplicationID,
					)
					observability.RateLimitRejectedTotal.Inc()
					writeJSONError(w, http.StatusTooManyRequests,
						api.NewTooManyRequestsError("rate limit exceeded"))
					return
				}
			}

			// Establish the principal once for the request's lifetime.
			ctx := SetPrincipal(r.Context(), result.Principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeUnauthorized emits the single generic 401 used for all
// authentication failures.
func writeUnauthorized(w http.ResponseWriter) {
	writeJSONError(w, http.StatusUnauthorized, api.NewUnauthorizedError())
}

func writeJSONError(w http.ResponseWriter, status int, apiErr *api.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: apiErr})
}

// DefaultBypassPaths lists endpoints that skip authentication: the
// signed-link redemption endpoint (the capability IS the credential)
// and the operational endpoints.
var DefaultBypassPaths = []string{"/public/download", "/healthz", "/readyz", "/metrics"}
