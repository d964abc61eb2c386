// Package transport provides the HTTP middleware chain and error
// mapping shared by all attaché endpoints.
//
// Handlers live in the http subpackage; this package holds the
// cross-cutting pieces: panic recovery, request ID assignment
// (X-Request-ID), structured request logging via log/slog, and the
// mapping from api.APIError values to HTTP status codes and JSON
// error bodies.
package transport
