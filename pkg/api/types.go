package api

import (
	"time"

	"github.com/google/uuid"
)

// Application is a registered tenant of the service. Each application
// authenticates with its own API key and owns the attachments it uploads.
type Application struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`

	// APIKeyHash is the bcrypt hash of the application's API key.
	// It is never serialized and never logged.
	APIKeyHash string `json:"-"`

	// IsAdmin grants access to the management endpoints. It does NOT
	// grant access to other applications' attachments.
	IsAdmin bool `json:"is_admin"`

	// MaxFileSizeBytes limits the size of a single upload.
	// nil means no per-file limit.
	MaxFileSizeBytes *int64 `json:"max_file_size_bytes,omitempty"`

	// MaxStorageBytes limits the application's aggregate stored bytes.
	// nil means no aggregate limit.
	MaxStorageBytes *int64 `json:"max_storage_bytes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Attachment is the metadata record for one stored binary object.
type Attachment struct {
	ID uuid.UUID `json:"id"`

	// FileName is the unique, sanitized name used in blob storage.
	FileName string `json:"file_name"`

	// OriginalFileName is the client-supplied name, returned on download.
	OriginalFileName string `json:"original_file_name"`

	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`

	// StoredPath is the opaque blob-storage locator.
	StoredPath string `json:"-"`

	// ApplicationID is the owning tenant.
	ApplicationID uuid.UUID `json:"application_id"`

	// UserID is an optional end-user identifier supplied by the
	// uploading application. Opaque to this service.
	UserID string `json:"user_id,omitempty"`

	UploadedAt time.Time `json:"uploaded_at"`
}

// AttachmentMetadata is the client-facing view of an attachment.
type AttachmentMetadata struct {
	ID               uuid.UUID `json:"id"`
	OriginalFileName string    `json:"original_file_name"`
	ContentType      string    `json:"content_type"`
	SizeBytes        int64     `json:"size_bytes"`
	UserID           string    `json:"user_id,omitempty"`
	UploadedAt       time.Time `json:"uploaded_at"`
}

// Metadata converts an Attachment to its client-facing view.
func (a *Attachment) Metadata() AttachmentMetadata {
	return AttachmentMetadata{
		ID:               a.ID,
		OriginalFileName: a.OriginalFileName,
		ContentType:      a.ContentType,
		SizeBytes:        a.SizeBytes,
		UserID:           a.UserID,
		UploadedAt:       a.UploadedAt,
	}
}

// UploadResponse is returned from a successful upload.
type UploadResponse struct {
	ID uuid.UUID `json:"id"`
}

// SignedLinkRequest asks for a time-bounded anonymous download link.
type SignedLinkRequest struct {
	// ExpiresInMinutes is the requested validity. nil means "use the
	// configured default"; zero or negative is a validation error.
	ExpiresInMinutes *int `json:"expires_in_minutes"`
}

// SignedLinkResponse carries the issued link and its actual expiry,
// which may be earlier than requested due to the configured maximum.
type SignedLinkResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateApplicationRequest registers a new application. Limits are
// expressed in whole binary megabytes and converted to bytes once.
type CreateApplicationRequest struct {
	Name          string `json:"name"`
	APIKey        string `json:"api_key"`
	MaxFileSizeMB *int64 `json:"max_file_size_mb,omitempty"`
	MaxStorageMB  *int64 `json:"max_storage_mb,omitempty"`
	IsAdmin       bool   `json:"is_admin"`
}

// CreateApplicationResponse is the only place the plaintext API key is
// ever returned. It cannot be recovered afterwards.
type CreateApplicationResponse struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	APIKey string    `json:"api_key"`
}

// UpdateLimitsRequest changes an application's quotas. A nil field
// leaves the corresponding limit unchanged; an explicit 0 removes it.
type UpdateLimitsRequest struct {
	MaxFileSizeMB *int64 `json:"max_file_size_mb"`
	MaxStorageMB  *int64 `json:"max_storage_mb"`
}

// ApplicationSummary is the admin-facing listing view of an application.
type ApplicationSummary struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	IsAdmin          bool      `json:"is_admin"`
	MaxFileSizeBytes *int64    `json:"max_file_size_bytes,omitempty"`
	MaxStorageBytes  *int64    `json:"max_storage_bytes,omitempty"`
	StorageUsedBytes int64     `json:"storage_used_bytes"`
}

// UsageReport describes one application's consumption against its limits.
type UsageReport struct {
	ApplicationID    uuid.UUID `json:"application_id"`
	StorageUsedBytes int64     `json:"storage_used_bytes"`
	MaxFileSizeBytes *int64    `json:"max_file_size_bytes,omitempty"`
	MaxStorageBytes  *int64    `json:"max_storage_bytes,omitempty"`
	AttachmentCount  int64     `json:"attachment_count"`
}

// DashboardStats aggregates service-wide figures for the admin dashboard.
type DashboardStats struct {
	TotalAttachments  int64                `json:"total_attachments"`
	TotalStorageBytes int64                `json:"total_storage_bytes"`
	TotalApplications int                  `json:"total_applications"`
	Applications      []ApplicationSummary `json:"applications"`
}

// AttachmentListItem is the admin listing view, including the owner.
type AttachmentListItem struct {
	AttachmentMetadata
	ApplicationID   uuid.UUID `json:"application_id"`
	ApplicationName string    `json:"application_name"`
}

// Page is a paginated result set.
type Page[T any] struct {
	Items      []T   `json:"items"`
	PageNumber int   `json:"page_number"`
	PageSize   int   `json:"page_size"`
	TotalCount int64 `json:"total_count"`
	TotalPages int   `json:"total_pages"`
}

// ArchiveRequest bundles several owned attachments into one zip download.
type ArchiveRequest struct {
	AttachmentIDs []uuid.UUID `json:"attachment_ids"`

	// Name is the suggested download filename, without extension.
	Name string `json:"name,omitempty"`
}

// SystemStatus reports component health for operational checks.
type SystemStatus struct {
	Storage string    `json:"storage"`
	Blob    string    `json:"blob"`
	Time    time.Time `json:"time"`
}
