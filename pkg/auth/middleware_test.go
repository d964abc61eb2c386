package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func okHandler(captured **Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			*captured = PrincipalFromContext(r.Context())
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddlewareBypassPath(t *testing.T) {
	chain := &Chain{DefaultDecision: No}
	var seen *Principal
	h := Middleware(chain, nil, []string{"/healthz"})(okHandler(&seen))

	r := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if seen != nil {
		t.Error("bypassed request should carry no principal")
	}
}

func TestMiddlewareRejectsWithoutCredential(t *testing.T) {
	chain := &Chain{DefaultDecision: No}
	h := Middleware(chain, nil, nil)(okHandler(nil))

	r := httptest.NewRequest("GET", "/api/attachments", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

// The 401 body must be byte-identical for a missing credential and an
// invalid one, so the response shape cannot be used to probe which
// applications exist.
func TestMiddlewareRejectionsIndistinguishable(t *testing.T) {
	missing := &Chain{
		Authenticators:  []Authenticator{staticAuthenticator{Result{Decision: No, Err: ErrMissingCredential}}},
		DefaultDecision: No,
	}
	invalid := &Chain{
		Authenticators:  []Authenticator{staticAuthenticator{Result{Decision: No, Err: ErrInvalidCredential}}},
		DefaultDecision: No,
	}

	bodies := make([]string, 0, 2)
	for _, chain := range []*Chain{missing, invalid} {
		h := Middleware(chain, nil, nil)(okHandler(nil))
		r := httptest.NewRequest("GET", "/api/attachments", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
		body, _ := io.ReadAll(w.Result().Body)
		bodies = append(bodies, string(body))
	}

	if bodies[0] != bodies[1] {
		t.Fatalf("rejection bodies differ:\n%s\n%s", bodies[0], bodies[1])
	}
}

func TestMiddlewareInjectsPrincipal(t *testing.T) {
	p := &Principal{ApplicationID: uuid.New(), Name: "docs"}
	chain := &Chain{
		Authenticators:  []Authenticator{staticAuthenticator{Result{Decision: Yes, Principal: p}}},
		DefaultDecision: No,
	}

	var seen *Principal
	h := Middleware(chain, nil, nil)(okHandler(&seen))

	r := httptest.NewRequest("POST", "/api/attachments", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if seen != p {
		t.Fatalf("handler saw principal %v, want %v", seen, p)
	}
}

type denyLimiter struct{}

func (denyLimiter) Allow(_ context.Context, _ *Principal) error { return ErrTooManyRequests }

func TestMiddlewareRateLimit(t *testing.T) {
	p := &Principal{ApplicationID: uuid.New(), Name: "docs"}
	chain := &Chain{
		Authenticators:  []Authenticator{staticAuthenticator{Result{Decision: Yes, Principal: p}}},
		DefaultDecision: No,
	}

	h := Middleware(chain, denyLimiter{}, nil)(okHandler(nil))

	r := httptest.NewRequest("GET", "/api/attachments", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
}
