// Package noop provides a no-op authenticator that accepts all
// requests. Used for development deployments without registered
// applications.
package noop

import (
	"context"
	"net/http"

	"github.com/attache-dev/attache/pkg/auth"
)

// Authenticator always returns Yes with an anonymous principal that
// has no quotas and no admin rights.
type Authenticator struct{}

func (a *Authenticator) Authenticate(_ context.Context, _ *http.Request) auth.Result {
	return auth.Result{
		Decision:  auth.Yes,
		Principal: &auth.Principal{Name: "anonymous"},
	}
}
