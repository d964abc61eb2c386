package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/attache-dev/attache/pkg/api"
)

// Decision represents the three possible outcomes of authentication.
type Decision int

const (
	// Yes means credentials are valid. The chain stops and the principal
	// is attached to the request.
	Yes Decision = iota

	// No means credentials are present but invalid. The chain stops and
	// the request is rejected.
	No

	// Abstain means this authenticator cannot handle the credential
	// type. The chain continues to the next authenticator.
	Abstain
)

// Result carries the outcome of an authentication attempt.
type Result struct {
	Decision  Decision
	Principal *Principal // populated only when Decision == Yes
	Err       error      // populated only when Decision == No
}

// Principal is the verified identity and authorization attributes of
// one request. It is constructed once by the middleware, is immutable,
// and is discarded when the request ends.
type Principal struct {
	// ApplicationID identifies the authenticated tenant.
	ApplicationID uuid.UUID

	// Name is the application's display name.
	Name string

	// IsAdmin grants access to management endpoints only; it never
	// bypasses per-resource ownership checks.
	IsAdmin bool

	// MaxFileSizeBytes is the per-upload size limit; nil means none.
	MaxFileSizeBytes *int64

	// MaxStorageBytes is the aggregate storage limit; nil means none.
	MaxStorageBytes *int64
}

// NewPrincipal derives a Principal from a verified application record.
// The record's API key hash does not travel with the principal.
func NewPrincipal(app *api.Application) *Principal {
	return &Principal{
		ApplicationID:    app.ID,
		Name:             app.Name,
		IsAdmin:          app.IsAdmin,
		MaxFileSizeBytes: app.MaxFileSizeBytes,
		MaxStorageBytes:  app.MaxStorageBytes,
	}
}

// Authenticator examines request credentials and returns a
// three-outcome vote.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) Result
}

// Sentinel errors.
var (
	// ErrMissingCredential is returned when no credential was presented.
	ErrMissingCredential = errors.New("credential missing")

	// ErrInvalidCredential is returned when a presented credential
	// matched no application. Externally both errors map to the same
	// generic rejection.
	ErrInvalidCredential = errors.New("credential invalid")

	// ErrTooManyRequests is returned by the rate limiter.
	ErrTooManyRequests = errors.New("rate limit exceeded")
)

// Chain evaluates authenticators in order using three-outcome voting.
type Chain struct {
	// Authenticators are evaluated left to right.
	Authenticators []Authenticator

	// DefaultDecision is used when all authenticators abstain. Use Yes
	// for development (no auth configured) or No for production.
	DefaultDecision Decision
}

// Authenticate runs the chain. Stops on the first Yes or No. If all
// abstain, the default decision applies; a default Yes yields an
// anonymous development principal with no limits and no admin rights.
func (c *Chain) Authenticate(ctx context.Context, r *http.Request) Result {
	for _, authn := range c.Authenticators {
		result := authn.Authenticate(ctx, r)
		if result.Decision != Abstain {
			return result
		}
	}

	if c.DefaultDecision == Yes {
		return Result{
			Decision:  Yes,
			Principal: &Principal{Name: "anonymous"},
		}
	}

	return Result{
		Decision: No,
		Err:      ErrMissingCredential,
	}
}
