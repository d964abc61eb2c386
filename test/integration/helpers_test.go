// Package integration provides integration tests for the attaché API.
//
// Tests run against a real attaché HTTP server started in-process with
// net/http/httptest: API key authentication, in-memory metadata store,
// and filesystem blob storage under a temporary directory.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/attache-dev/attache/pkg/api"
	"github.com/attache-dev/attache/pkg/auth"
	"github.com/attache-dev/attache/pkg/auth/apikey"
	"github.com/attache-dev/attache/pkg/blob"
	"github.com/attache-dev/attache/pkg/capability"
	"github.com/attache-dev/attache/pkg/storage/memory"
	transporthttp "github.com/attache-dev/attache/pkg/transport/http"
)

const (
	signingKey = "integration-test-signing-key-0123456789"
	tenantKey  = "tenant-integration-key-1"
	otherKey   = "other-integration-key-22"
	adminKey   = "admin-integration-key-33"
)

var (
	maxFileMB  = int64(1)
	maxTotalMB = int64(2)
)

// env holds the shared server for all integration tests.
var env *Environment

// Environment is the in-process attaché server plus the identities
// registered in it.
type Environment struct {
	Server   *httptest.Server
	TenantID uuid.UUID
	OtherID  uuid.UUID
	AdminID  uuid.UUID
}

func TestMain(m *testing.M) {
	var cleanup func()
	env, cleanup = setup()
	code := m.Run()
	cleanup()
	os.Exit(code)
}

func setup() (*Environment, func()) {
	dir, err := os.MkdirTemp("", "attache-integration-*")
	if err != nil {
		panic(fmt.Sprintf("creating blob directory: %v", err))
	}

	store := memory.New()
	blobs, err := blob.NewLocalStore(dir)
	if err != nil {
		panic(fmt.Sprintf("creating blob store: %v", err))
	}
	codec, err := capability.New([]byte(signingKey), time.Hour, nil)
	if err != nil {
		panic(fmt.Sprintf("creating codec: %v", err))
	}

	e := &Environment{}
	e.TenantID = register(store, "tenant", tenantKey, false, &maxFileMB, &maxTotalMB)
	e.OtherID = register(store, "other", otherKey, false, nil, nil)
	e.AdminID = register(store, "admin", adminKey, true, nil, nil)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	chain := &auth.Chain{
		Authenticators:  []auth.Authenticator{apikey.New(store)},
		DefaultDecision: auth.No,
	}

	handlers := transporthttp.NewHandlers(store, blobs, codec, "", 4<<20, logger)
	srv := transporthttp.NewServer(handlers, chain, nil, transporthttp.WithLogger(logger))

	ts := httptest.NewServer(srv.Handler())
	e.Server = ts

	return e, func() {
		ts.Close()
		os.RemoveAll(dir)
	}
}

func register(store *memory.Store, name, key string, admin bool, maxFileMB, maxStorageMB *int64) uuid.UUID {
	hash, err := apikey.HashKey(key)
	if err != nil {
		panic(fmt.Sprintf("hashing key: %v", err))
	}
	app := &api.Application{
		ID:               uuid.New(),
		Name:             name,
		APIKeyHash:       hash,
		IsAdmin:          admin,
		MaxFileSizeBytes: api.LimitFromMegabytes(maxFileMB),
		MaxStorageBytes:  api.LimitFromMegabytes(maxStorageMB),
		CreatedAt:        time.Now().UTC(),
	}
	if err := store.CreateApplication(context.Background(), app); err != nil {
		panic(fmt.Sprintf("registering %s: %v", name, err))
	}
	return app.ID
}

// request performs an HTTP request against the test server with the
// given API key, returning the response.
func request(t *testing.T, method, path, key string, contentType string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, env.Server.URL+path, body)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if key != "" {
		req.Header.Set(apikey.HeaderName, key)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

// requestJSON marshals the payload and performs a JSON request.
func requestJSON(t *testing.T, method, path, key string, payload any) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshaling payload: %v", err)
		}
		body = bytes.NewReader(data)
	}
	return request(t, method, path, key, "application/json", body)
}

// upload posts a file and returns the created attachment ID.
func upload(t *testing.T, key, filename, content string) uuid.UUID {
	t.Helper()
	resp := uploadRaw(t, key, filename, content)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		data, _ := io.ReadAll(resp.Body)
		t.Fatalf("upload status = %d: %s", resp.StatusCode, data)
	}
	var up api.UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&up); err != nil {
		t.Fatalf("decoding upload response: %v", err)
	}
	return up.ID
}

// uploadRaw posts a file without asserting on the outcome.
func uploadRaw(t *testing.T, key, filename, content string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	if _, err := io.WriteString(fw, content); err != nil {
		t.Fatalf("writing form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}
	return request(t, "POST", "/api/attachments", key, mw.FormDataContentType(), &buf)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return string(data)
}
