package jwt

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/attache-dev/attache/pkg/api"
	"github.com/attache-dev/attache/pkg/auth"
	"github.com/attache-dev/attache/pkg/storage"
)

// testKeyPair holds the RSA key pair used throughout the tests.
var testKeyPair *rsa.PrivateKey

func init() {
	var err error
	testKeyPair, err = rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(fmt.Sprintf("generating test RSA key: %v", err))
	}
}

// testKID is the key ID used for the test key pair.
const testKID = "test-key-1"

// stubApps resolves a fixed set of applications by ID.
type stubApps struct {
	apps map[uuid.UUID]*api.Application
}

func (s *stubApps) ListApplications(context.Context) ([]api.Application, error) {
	var out []api.Application
	for _, app := range s.apps {
		out = append(out, *app)
	}
	return out, nil
}

func (s *stubApps) GetApplication(_ context.Context, id uuid.UUID) (*api.Application, error) {
	app, ok := s.apps[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return app, nil
}

func (s *stubApps) CreateApplication(context.Context, *api.Application) error { return nil }
func (s *stubApps) DeleteApplication(context.Context, uuid.UUID) error        { return nil }
func (s *stubApps) UpdateApplicationLimits(context.Context, uuid.UUID, *int64, *int64) error {
	return nil
}

// jwksHandler serves the test public key as a JWKS, counting fetches.
func jwksHandler(fetchCount *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if fetchCount != nil {
			fetchCount.Add(1)
		}

		pubKey := testKeyPair.PublicKey
		nBase64 := base64.RawURLEncoding.EncodeToString(pubKey.N.Bytes())
		eBase64 := base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pubKey.E)).Bytes())

		jwks := map[string]interface{}{
			"keys": []map[string]string{
				{
					"kty": "RSA",
					"kid": testKID,
					"use": "sig",
					"n":   nBase64,
					"e":   eBase64,
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(jwks)
	}
}

// createSignedToken creates a JWT signed with the test private key.
func createSignedToken(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, claims)
	token.Header["kid"] = testKID

	tokenStr, err := token.SignedString(testKeyPair)
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return tokenStr
}

// newTestAuthenticator creates a JWKS server, a registered application,
// and an authenticator wired to both.
func newTestAuthenticator(t *testing.T, cfgOverride func(*Config), fetchCount *atomic.Int32) (*Authenticator, *api.Application) {
	t.Helper()

	server := httptest.NewServer(jwksHandler(fetchCount))
	t.Cleanup(server.Close)

	app := &api.Application{
		ID:        uuid.New(),
		Name:      "jwt-client",
		IsAdmin:   true,
		CreatedAt: time.Now().UTC(),
	}
	apps := &stubApps{apps: map[uuid.UUID]*api.Application{app.ID: app}}

	cfg := Config{
		Issuer:   "https://auth.example.com",
		Audience: "attache",
		JWKSURL:  server.URL + "/.well-known/jwks.json",
		CacheTTL: 1 * time.Hour,
	}
	if cfgOverride != nil {
		cfgOverride(&cfg)
	}

	return New(cfg, apps), app
}

func baseClaims(appID uuid.UUID) jwtlib.MapClaims {
	return jwtlib.MapClaims{
		"iss":    "https://auth.example.com",
		"aud":    "attache",
		"exp":    time.Now().Add(1 * time.Hour).Unix(),
		"iat":    time.Now().Unix(),
		"app_id": appID.String(),
	}
}

func bearerRequest(token string) *http.Request {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

func TestValidToken(t *testing.T) {
	authn, app := newTestAuthenticator(t, nil, nil)
	token := createSignedToken(t, baseClaims(app.ID))

	result := authn.Authenticate(context.Background(), bearerRequest(token))

	if result.Decision != auth.Yes {
		t.Fatalf("Decision = %d, want Yes; err=%v", result.Decision, result.Err)
	}
	if result.Principal == nil {
		t.Fatal("Principal is nil")
	}
	if result.Principal.ApplicationID != app.ID {
		t.Errorf("ApplicationID = %s, want %s", result.Principal.ApplicationID, app.ID)
	}
	if !result.Principal.IsAdmin {
		t.Error("principal should carry the application's admin flag")
	}
}

func TestExpiredToken(t *testing.T) {
	authn, app := newTestAuthenticator(t, nil, nil)
	claims := baseClaims(app.ID)
	claims["exp"] = time.Now().Add(-1 * time.Hour).Unix()
	claims["iat"] = time.Now().Add(-2 * time.Hour).Unix()
	token := createSignedToken(t, claims)

	result := authn.Authenticate(context.Background(), bearerRequest(token))

	if result.Decision != auth.No {
		t.Fatalf("Decision = %d, want No (expired)", result.Decision)
	}
}

func TestWrongAudience(t *testing.T) {
	authn, app := newTestAuthenticator(t, nil, nil)
	claims := baseClaims(app.ID)
	claims["aud"] = "someone-else"
	token := createSignedToken(t, claims)

	result := authn.Authenticate(context.Background(), bearerRequest(token))

	if result.Decision != auth.No {
		t.Fatalf("Decision = %d, want No (wrong audience)", result.Decision)
	}
}

func TestWrongIssuer(t *testing.T) {
	authn, app := newTestAuthenticator(t, nil, nil)
	claims := baseClaims(app.ID)
	claims["iss"] = "https://evil.example.com"
	token := createSignedToken(t, claims)

	result := authn.Authenticate(context.Background(), bearerRequest(token))

	if result.Decision != auth.No {
		t.Fatalf("Decision = %d, want No (wrong issuer)", result.Decision)
	}
}

func TestNoBearerTokenAbstains(t *testing.T) {
	authn, _ := newTestAuthenticator(t, nil, nil)

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"basic auth", "Basic dXNlcjpwYXNz"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}

			result := authn.Authenticate(context.Background(), r)

			if result.Decision != auth.Abstain {
				t.Fatalf("Decision = %d, want Abstain", result.Decision)
			}
		})
	}
}

func TestInvalidToken(t *testing.T) {
	authn, _ := newTestAuthenticator(t, nil, nil)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"partial jwt", "eyJhbGciOiJSUzI1NiJ9.invalidpayload"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := authn.Authenticate(context.Background(), bearerRequest(tc.token))

			if result.Decision != auth.No {
				t.Fatalf("Decision = %d, want No (invalid token)", result.Decision)
			}
		})
	}
}

func TestMissingApplicationClaim(t *testing.T) {
	authn, app := newTestAuthenticator(t, nil, nil)
	claims := baseClaims(app.ID)
	delete(claims, "app_id")
	token := createSignedToken(t, claims)

	result := authn.Authenticate(context.Background(), bearerRequest(token))

	if result.Decision != auth.No {
		t.Fatalf("Decision = %d, want No (missing application claim)", result.Decision)
	}
}

func TestUnknownApplication(t *testing.T) {
	authn, app := newTestAuthenticator(t, nil, nil)
	claims := baseClaims(app.ID)
	claims["app_id"] = uuid.NewString()
	token := createSignedToken(t, claims)

	result := authn.Authenticate(context.Background(), bearerRequest(token))

	if result.Decision != auth.No {
		t.Fatalf("Decision = %d, want No (unregistered application)", result.Decision)
	}
}

func TestCustomApplicationClaim(t *testing.T) {
	authn, app := newTestAuthenticator(t, func(cfg *Config) {
		cfg.ApplicationClaim = "tenant"
	}, nil)

	claims := baseClaims(app.ID)
	delete(claims, "app_id")
	claims["tenant"] = app.ID.String()
	token := createSignedToken(t, claims)

	result := authn.Authenticate(context.Background(), bearerRequest(token))

	if result.Decision != auth.Yes {
		t.Fatalf("Decision = %d, want Yes; err=%v", result.Decision, result.Err)
	}
}

func TestJWKSCaching(t *testing.T) {
	var fetchCount atomic.Int32
	authn, app := newTestAuthenticator(t, nil, &fetchCount)
	token := createSignedToken(t, baseClaims(app.ID))

	for i := 0; i < 5; i++ {
		result := authn.Authenticate(context.Background(), bearerRequest(token))
		if result.Decision != auth.Yes {
			t.Fatalf("request %d: Decision = %d, want Yes; err=%v", i, result.Decision, result.Err)
		}
	}

	if count := fetchCount.Load(); count != 1 {
		t.Errorf("JWKS fetch count = %d, want 1 (caching broken)", count)
	}
}

func TestNoIssuerValidation(t *testing.T) {
	authn, app := newTestAuthenticator(t, func(cfg *Config) {
		cfg.Issuer = ""
	}, nil)

	claims := baseClaims(app.ID)
	claims["iss"] = "https://any-issuer.example.com"
	token := createSignedToken(t, claims)

	result := authn.Authenticate(context.Background(), bearerRequest(token))

	if result.Decision != auth.Yes {
		t.Fatalf("Decision = %d, want Yes (no issuer validation); err=%v", result.Decision, result.Err)
	}
}
