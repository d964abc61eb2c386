// Package memory provides an in-memory implementation of storage.Store
// for testing and lightweight deployments. Records are lost when the
// process restarts.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/attache-dev/attache/pkg/api"
	"github.com/attache-dev/attache/pkg/storage"
)

// Store is an in-memory storage.Store guarded by a single RWMutex.
type Store struct {
	mu          sync.RWMutex
	apps        map[uuid.UUID]*api.Application
	attachments map[uuid.UUID]*api.Attachment
}

// Ensure Store implements storage.Store at compile time.
var _ storage.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		apps:        make(map[uuid.UUID]*api.Application),
		attachments: make(map[uuid.UUID]*api.Attachment),
	}
}

// ListApplications returns all applications sorted by creation time,
// oldest first.
func (s *Store) ListApplications(_ context.Context) ([]api.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]api.Application, 0, len(s.apps))
	for _, app := range s.apps {
		out = append(out, *app)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *Store) GetApplication(_ context.Context, id uuid.UUID) (*api.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	app, ok := s.apps[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *app
	return &cp, nil
}

// CreateApplication inserts a new application. The name must be unique
// across all applications.
func (s *Store) CreateApplication(_ context.Context, app *api.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.apps[app.ID]; exists {
		return storage.ErrConflict
	}
	for _, existing := range s.apps {
		if existing.Name == app.Name {
			return storage.ErrConflict
		}
	}

	cp := *app
	s.apps[app.ID] = &cp
	return nil
}

// DeleteApplication removes an application and all of its attachment
// metadata.
func (s *Store) DeleteApplication(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.apps[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.apps, id)
	for attID, att := range s.attachments {
		if att.ApplicationID == id {
			delete(s.attachments, attID)
		}
	}
	return nil
}

func (s *Store) UpdateApplicationLimits(_ context.Context, id uuid.UUID, maxFileSizeBytes, maxStorageBytes *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.apps[id]
	if !ok {
		return storage.ErrNotFound
	}
	app.MaxFileSizeBytes = copyLimit(maxFileSizeBytes)
	app.MaxStorageBytes = copyLimit(maxStorageBytes)
	return nil
}

func (s *Store) CreateAttachment(_ context.Context, att *api.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.attachments[att.ID]; exists {
		return storage.ErrConflict
	}
	cp := *att
	s.attachments[att.ID] = &cp
	return nil
}

func (s *Store) GetAttachment(_ context.Context, id uuid.UUID) (*api.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	att, ok := s.attachments[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *att
	return &cp, nil
}

func (s *Store) DeleteAttachment(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.attachments[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.attachments, id)
	return nil
}

func (s *Store) ListApplicationAttachments(_ context.Context, appID uuid.UUID, page, pageSize int) ([]api.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []api.Attachment
	for _, att := range s.attachments {
		if att.ApplicationID == appID {
			matches = append(matches, *att)
		}
	}
	return paginate(matches, page, pageSize), nil
}

func (s *Store) ListAttachments(_ context.Context, page, pageSize int) ([]api.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]api.Attachment, 0, len(s.attachments))
	for _, att := range s.attachments {
		matches = append(matches, *att)
	}
	return paginate(matches, page, pageSize), nil
}

func (s *Store) UsageBytes(_ context.Context, appID uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, att := range s.attachments {
		if att.ApplicationID == appID {
			total += att.SizeBytes
		}
	}
	return total, nil
}

func (s *Store) CountAttachments(_ context.Context, appID uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, att := range s.attachments {
		if att.ApplicationID == appID {
			count++
		}
	}
	return count, nil
}

func (s *Store) TotalCount(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.attachments)), nil
}

func (s *Store) TotalBytes(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, att := range s.attachments {
		total += att.SizeBytes
	}
	return total, nil
}

func (s *Store) UsageByApplication(_ context.Context) (map[uuid.UUID]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	usage := make(map[uuid.UUID]int64, len(s.apps))
	for id := range s.apps {
		usage[id] = 0
	}
	for _, att := range s.attachments {
		usage[att.ApplicationID] += att.SizeBytes
	}
	return usage, nil
}

// HealthCheck always returns nil for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// paginate sorts newest first and slices out the requested 1-based page.
func paginate(matches []api.Attachment, page, pageSize int) []api.Attachment {
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].UploadedAt.Equal(matches[j].UploadedAt) {
			return matches[i].UploadedAt.After(matches[j].UploadedAt)
		}
		return matches[i].ID.String() > matches[j].ID.String()
	})

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	start := (page - 1) * pageSize
	if start >= len(matches) {
		return []api.Attachment{}
	}
	end := start + pageSize
	if end > len(matches) {
		end = len(matches)
	}
	return matches[start:end]
}

func copyLimit(v *int64) *int64 {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}
