package auth

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
)

// staticAuthenticator returns a fixed result.
type staticAuthenticator struct {
	result Result
}

func (s staticAuthenticator) Authenticate(_ context.Context, _ *http.Request) Result {
	return s.result
}

func testRequest() *http.Request {
	r, _ := http.NewRequest("GET", "/api/attachments", nil)
	return r
}

func TestChainStopsOnFirstYes(t *testing.T) {
	p := &Principal{ApplicationID: uuid.New(), Name: "first"}
	chain := &Chain{
		Authenticators: []Authenticator{
			staticAuthenticator{Result{Decision: Abstain}},
			staticAuthenticator{Result{Decision: Yes, Principal: p}},
			staticAuthenticator{Result{Decision: No, Err: ErrInvalidCredential}},
		},
		DefaultDecision: No,
	}

	result := chain.Authenticate(context.Background(), testRequest())
	if result.Decision != Yes {
		t.Fatalf("Decision = %d, want Yes", result.Decision)
	}
	if result.Principal != p {
		t.Error("principal from the Yes vote was not returned")
	}
}

func TestChainStopsOnFirstNo(t *testing.T) {
	chain := &Chain{
		Authenticators: []Authenticator{
			staticAuthenticator{Result{Decision: No, Err: ErrInvalidCredential}},
			staticAuthenticator{Result{Decision: Yes, Principal: &Principal{}}},
		},
		DefaultDecision: Yes,
	}

	result := chain.Authenticate(context.Background(), testRequest())
	if result.Decision != No {
		t.Fatalf("Decision = %d, want No", result.Decision)
	}
}

func TestChainDefaultNo(t *testing.T) {
	chain := &Chain{
		Authenticators:  []Authenticator{staticAuthenticator{Result{Decision: Abstain}}},
		DefaultDecision: No,
	}

	result := chain.Authenticate(context.Background(), testRequest())
	if result.Decision != No {
		t.Fatalf("Decision = %d, want No", result.Decision)
	}
	if result.Err != ErrMissingCredential {
		t.Errorf("Err = %v, want ErrMissingCredential", result.Err)
	}
}

func TestChainDefaultYes(t *testing.T) {
	chain := &Chain{DefaultDecision: Yes}

	result := chain.Authenticate(context.Background(), testRequest())
	if result.Decision != Yes {
		t.Fatalf("Decision = %d, want Yes", result.Decision)
	}
	if result.Principal == nil || result.Principal.IsAdmin {
		t.Error("default principal should be a non-admin anonymous principal")
	}
	if result.Principal.MaxFileSizeBytes != nil || result.Principal.MaxStorageBytes != nil {
		t.Error("default principal should carry no limits")
	}
}

func TestPrincipalContextRoundTrip(t *testing.T) {
	p := &Principal{ApplicationID: uuid.New(), Name: "docs"}
	ctx := SetPrincipal(context.Background(), p)

	if got := PrincipalFromContext(ctx); got != p {
		t.Fatalf("PrincipalFromContext = %v, want %v", got, p)
	}
	if got := PrincipalFromContext(context.Background()); got != nil {
		t.Fatalf("empty context returned principal %v", got)
	}
}
