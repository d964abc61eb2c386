package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/attache-dev/attache/pkg/api"
)

// ApplicationStore persists tenant records.
//
// ListApplications doubles as the credential-scan source: API key
// hashes are salted and one-way, so there is no index from a presented
// key to a single record. The verifier loads all records and trials the
// key against each hash.
type ApplicationStore interface {
	// ListApplications returns all registered applications.
	ListApplications(ctx context.Context) ([]api.Application, error)

	// GetApplication returns one application by ID, or ErrNotFound.
	GetApplication(ctx context.Context, id uuid.UUID) (*api.Application, error)

	// CreateApplication inserts a new application. Returns ErrConflict
	// if the ID already exists.
	CreateApplication(ctx context.Context, app *api.Application) error

	// DeleteApplication removes an application. Returns ErrNotFound if
	// absent.
	DeleteApplication(ctx context.Context, id uuid.UUID) error

	// UpdateApplicationLimits replaces the application's quota limits,
	// in bytes. A nil limit means "no limit".
	UpdateApplicationLimits(ctx context.Context, id uuid.UUID, maxFileSizeBytes, maxStorageBytes *int64) error
}

// AttachmentStore persists attachment metadata and answers the usage
// queries that feed upload admission and admin reporting.
type AttachmentStore interface {
	// CreateAttachment inserts attachment metadata. Returns ErrConflict
	// on duplicate ID.
	CreateAttachment(ctx context.Context, att *api.Attachment) error

	// GetAttachment returns one attachment by ID, or ErrNotFound.
	// Ownership is NOT enforced here; the caller gates access on the
	// owning application ID.
	GetAttachment(ctx context.Context, id uuid.UUID) (*api.Attachment, error)

	// DeleteAttachment removes attachment metadata. Returns ErrNotFound
	// if absent.
	DeleteAttachment(ctx context.Context, id uuid.UUID) error

	// ListApplicationAttachments returns one application's attachments,
	// newest first, for the given 1-based page.
	ListApplicationAttachments(ctx context.Context, appID uuid.UUID, page, pageSize int) ([]api.Attachment, error)

	// ListAttachments returns all attachments, newest first, for the
	// given 1-based page. Admin reporting only.
	ListAttachments(ctx context.Context, page, pageSize int) ([]api.Attachment, error)

	// UsageBytes returns the application's current aggregate stored
	// bytes. Callers must fetch this fresh for every admission decision;
	// it is never cached.
	UsageBytes(ctx context.Context, appID uuid.UUID) (int64, error)

	// CountAttachments returns the application's attachment count.
	CountAttachments(ctx context.Context, appID uuid.UUID) (int64, error)

	// TotalCount returns the service-wide attachment count.
	TotalCount(ctx context.Context) (int64, error)

	// TotalBytes returns the service-wide stored byte total.
	TotalBytes(ctx context.Context) (int64, error)

	// UsageByApplication returns aggregate stored bytes per application.
	UsageByApplication(ctx context.Context) (map[uuid.UUID]int64, error)
}

// Store combines both stores with lifecycle hooks; the memory and
// postgres adapters implement it.
type Store interface {
	ApplicationStore
	AttachmentStore

	// HealthCheck verifies the backend is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases held resources.
	Close() error
}
