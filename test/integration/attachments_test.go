package integration

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/attache-dev/attache/pkg/api"
)

func TestAttachmentLifecycle(t *testing.T) {
	id := upload(t, tenantKey, "report.txt", "quarterly numbers")

	// Metadata reflects the upload.
	resp := request(t, "GET", "/api/attachments/"+id.String()+"/metadata", tenantKey, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metadata status = %d, want 200", resp.StatusCode)
	}
	var meta api.AttachmentMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		t.Fatalf("decoding metadata: %v", err)
	}
	resp.Body.Close()
	if meta.OriginalFileName != "report.txt" || meta.SizeBytes != int64(len("quarterly numbers")) {
		t.Errorf("metadata = %+v", meta)
	}

	// Download returns the original bytes.
	resp = request(t, "GET", "/api/attachments/"+id.String(), tenantKey, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download status = %d, want 200", resp.StatusCode)
	}
	if body := readBody(t, resp); body != "quarterly numbers" {
		t.Errorf("download body = %q", body)
	}

	// Delete, then the attachment is gone.
	resp = request(t, "DELETE", "/api/attachments/"+id.String(), tenantKey, "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", resp.StatusCode)
	}

	resp = request(t, "GET", "/api/attachments/"+id.String(), tenantKey, "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("download after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestCrossTenantIsolation(t *testing.T) {
	id := upload(t, tenantKey, "private.txt", "not for others")
	defer cleanupAttachment(t, tenantKey, id)

	// Another application sees a 404, not a 403.
	resp := request(t, "GET", "/api/attachments/"+id.String(), otherKey, "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("foreign download status = %d, want 404", resp.StatusCode)
	}

	// Admin credentials do not bypass ownership either.
	resp = request(t, "GET", "/api/attachments/"+id.String(), adminKey, "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("admin download status = %d, want 404", resp.StatusCode)
	}
}

func TestQuotaEnforcement(t *testing.T) {
	// The tenant's per-file limit is 1 MiB.
	resp := uploadRaw(t, tenantKey, "big.bin", strings.Repeat("x", (1<<20)+1))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized upload status = %d, want 413", resp.StatusCode)
	}

	var errResp api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("decoding error: %v", err)
	}
	if errResp.Error == nil || errResp.Error.Code != api.CodeFileTooLarge {
		t.Errorf("error = %+v, want code %q", errResp.Error, api.CodeFileTooLarge)
	}
}

func TestStorageQuotaAcrossUploads(t *testing.T) {
	// Aggregate limit is 2 MiB; three uploads just under the per-file
	// limit must hit it.
	chunk := strings.Repeat("y", 1<<20)
	first := upload(t, tenantKey, "one.bin", chunk)
	defer cleanupAttachment(t, tenantKey, first)
	second := upload(t, tenantKey, "two.bin", chunk)
	defer cleanupAttachment(t, tenantKey, second)

	resp := uploadRaw(t, tenantKey, "three.bin", "overflow")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("third upload status = %d, want 413", resp.StatusCode)
	}
	var errResp api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("decoding error: %v", err)
	}
	if errResp.Error == nil || errResp.Error.Code != api.CodeStorageLimitExceeded {
		t.Errorf("error = %+v, want code %q", errResp.Error, api.CodeStorageLimitExceeded)
	}
}

func TestUsageReport(t *testing.T) {
	id := upload(t, otherKey, "usage.txt", "abcde")
	defer cleanupAttachment(t, otherKey, id)

	resp := request(t, "GET", "/api/usage", otherKey, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("usage status = %d, want 200", resp.StatusCode)
	}
	var report api.UsageReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	resp.Body.Close()
	if report.ApplicationID != env.OtherID {
		t.Errorf("application id = %s, want %s", report.ApplicationID, env.OtherID)
	}
	if report.StorageUsedBytes < 5 {
		t.Errorf("used = %d, want at least 5", report.StorageUsedBytes)
	}
}

func TestAuthenticationRequired(t *testing.T) {
	cases := []struct {
		name string
		key  string
	}{
		{"no key", ""},
		{"wrong key", "completely-wrong-key"},
	}
	var bodies []string
	for _, tc := range cases {
		resp := request(t, "GET", "/api/usage", tc.key, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", tc.name, resp.StatusCode)
		}
		bodies = append(bodies, readBody(t, resp))
	}
	// Absent and invalid credentials are indistinguishable.
	if len(bodies) == 2 && bodies[0] != bodies[1] {
		t.Errorf("401 bodies differ between missing and wrong key")
	}
}

func cleanupAttachment(t *testing.T, key string, id uuid.UUID) {
	t.Helper()
	resp := request(t, "DELETE", "/api/attachments/"+id.String(), key, "", nil)
	resp.Body.Close()
}
