// Package postgres provides a PostgreSQL implementation of storage.Store.
// It uses pgx/v5 for connection pooling and embedded SQL migrations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/attache-dev/attache/pkg/api"
	"github.com/attache-dev/attache/pkg/storage"
)

// Store is a PostgreSQL-backed storage.Store.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements storage.Store at compile time.
var _ storage.Store = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// ListApplications returns all applications, oldest first.
func (s *Store) ListApplications(ctx context.Context) ([]api.Application, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, api_key_hash, is_admin, max_file_size_bytes, max_storage_bytes, created_at
		FROM applications
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying applications: %w", err)
	}
	defer rows.Close()

	var apps []api.Application
	for rows.Next() {
		var app api.Application
		if err := rows.Scan(
			&app.ID, &app.Name, &app.APIKeyHash, &app.IsAdmin,
			&app.MaxFileSizeBytes, &app.MaxStorageBytes, &app.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning application: %w", err)
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

func (s *Store) GetApplication(ctx context.Context, id uuid.UUID) (*api.Application, error) {
	var app api.Application
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, api_key_hash, is_admin, max_file_size_bytes, max_storage_bytes, created_at
		FROM applications
		WHERE id = $1
	`, id).Scan(
		&app.ID, &app.Name, &app.APIKeyHash, &app.IsAdmin,
		&app.MaxFileSizeBytes, &app.MaxStorageBytes, &app.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying application: %w", err)
	}
	return &app, nil
}

func (s *Store) CreateApplication(ctx context.Context, app *api.Application) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO applications (id, name, api_key_hash, is_admin, max_file_size_bytes, max_storage_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		app.ID, app.Name, app.APIKeyHash, app.IsAdmin,
		app.MaxFileSizeBytes, app.MaxStorageBytes, app.CreatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting application: %w", err)
	}
	return nil
}

// DeleteApplication removes an application. Attachment rows cascade via
// the foreign key.
func (s *Store) DeleteApplication(ctx context.Context, id uuid.UUID) error {
	result, err := s.pool.Exec(ctx, "DELETE FROM applications WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting application: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateApplicationLimits(ctx context.Context, id uuid.UUID, maxFileSizeBytes, maxStorageBytes *int64) error {
	result, err := s.pool.Exec(ctx, `
		UPDATE applications
		SET max_file_size_bytes = $2, max_storage_bytes = $3
		WHERE id = $1
	`, id, maxFileSizeBytes, maxStorageBytes)
	if err != nil {
		return fmt.Errorf("updating application limits: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) CreateAttachment(ctx context.Context, att *api.Attachment) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO attachments (
			id, file_name, original_file_name, content_type, size_bytes,
			stored_path, application_id, user_id, uploaded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		att.ID, att.FileName, att.OriginalFileName, att.ContentType, att.SizeBytes,
		att.StoredPath, att.ApplicationID, nullString(att.UserID), att.UploadedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting attachment: %w", err)
	}
	return nil
}

func (s *Store) GetAttachment(ctx context.Context, id uuid.UUID) (*api.Attachment, error) {
	var att api.Attachment
	var userID *string
	err := s.pool.QueryRow(ctx, `
		SELECT id, file_name, original_file_name, content_type, size_bytes,
		       stored_path, application_id, user_id, uploaded_at
		FROM attachments
		WHERE id = $1
	`, id).Scan(
		&att.ID, &att.FileName, &att.OriginalFileName, &att.ContentType, &att.SizeBytes,
		&att.StoredPath, &att.ApplicationID, &userID, &att.UploadedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying attachment: %w", err)
	}
	if userID != nil {
		att.UserID = *userID
	}
	return &att, nil
}

func (s *Store) DeleteAttachment(ctx context.Context, id uuid.UUID) error {
	result, err := s.pool.Exec(ctx, "DELETE FROM attachments WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting attachment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) ListApplicationAttachments(ctx context.Context, appID uuid.UUID, page, pageSize int) ([]api.Attachment, error) {
	offset, limit := pageWindow(page, pageSize)
	rows, err := s.pool.Query(ctx, `
		SELECT id, file_name, original_file_name, content_type, size_bytes,
		       stored_path, application_id, user_id, uploaded_at
		FROM attachments
		WHERE application_id = $1
		ORDER BY uploaded_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, appID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying attachments: %w", err)
	}
	defer rows.Close()
	return scanAttachments(rows)
}

func (s *Store) ListAttachments(ctx context.Context, page, pageSize int) ([]api.Attachment, error) {
	offset, limit := pageWindow(page, pageSize)
	rows, err := s.pool.Query(ctx, `
		SELECT id, file_name, original_file_name, content_type, size_bytes,
		       stored_path, application_id, user_id, uploaded_at
		FROM attachments
		ORDER BY uploaded_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying attachments: %w", err)
	}
	defer rows.Close()
	return scanAttachments(rows)
}

func (s *Store) UsageBytes(ctx context.Context, appID uuid.UUID) (int64, error) {
	var total int64
	err := s.pool.QueryRow(ctx,
		"SELECT COALESCE(SUM(size_bytes), 0) FROM attachments WHERE application_id = $1",
		appID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("querying usage: %w", err)
	}
	return total, nil
}

func (s *Store) CountAttachments(ctx context.Context, appID uuid.UUID) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM attachments WHERE application_id = $1",
		appID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting attachments: %w", err)
	}
	return count, nil
}

func (s *Store) TotalCount(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM attachments").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting attachments: %w", err)
	}
	return count, nil
}

func (s *Store) TotalBytes(ctx context.Context) (int64, error) {
	var total int64
	if err := s.pool.QueryRow(ctx, "SELECT COALESCE(SUM(size_bytes), 0) FROM attachments").Scan(&total); err != nil {
		return 0, fmt.Errorf("summing attachments: %w", err)
	}
	return total, nil
}

// UsageByApplication returns per-application stored bytes. Applications
// with no attachments appear with zero usage.
func (s *Store) UsageByApplication(ctx context.Context) (map[uuid.UUID]int64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT a.id, COALESCE(SUM(att.size_bytes), 0)
		FROM applications a
		LEFT JOIN attachments att ON att.application_id = a.id
		GROUP BY a.id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying usage: %w", err)
	}
	defer rows.Close()

	usage := make(map[uuid.UUID]int64)
	for rows.Next() {
		var id uuid.UUID
		var total int64
		if err := rows.Scan(&id, &total); err != nil {
			return nil, fmt.Errorf("scanning usage: %w", err)
		}
		usage[id] = total
	}
	return usage, rows.Err()
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanAttachments(rows pgx.Rows) ([]api.Attachment, error) {
	atts := []api.Attachment{}
	for rows.Next() {
		var att api.Attachment
		var userID *string
		if err := rows.Scan(
			&att.ID, &att.FileName, &att.OriginalFileName, &att.ContentType, &att.SizeBytes,
			&att.StoredPath, &att.ApplicationID, &userID, &att.UploadedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning attachment: %w", err)
		}
		if userID != nil {
			att.UserID = *userID
		}
		atts = append(atts, att)
	}
	return atts, rows.Err()
}

// pageWindow converts a 1-based page to LIMIT/OFFSET values.
func pageWindow(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return (page - 1) * pageSize, pageSize
}

// nullString converts an empty string to nil for nullable TEXT columns.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// isDuplicateKey checks if the error is a PostgreSQL unique violation (23505).
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
