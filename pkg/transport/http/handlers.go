// Package http serves the attaché REST API: attachment upload and
// retrieval, signed public download links, archives, usage reporting,
// and the admin surface.
package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/attache-dev/attache/pkg/api"
	"github.com/attache-dev/attache/pkg/auth"
	"github.com/attache-dev/attache/pkg/blob"
	"github.com/attache-dev/attache/pkg/capability"
	"github.com/attache-dev/attache/pkg/storage"
	"github.com/attache-dev/attache/pkg/transport"
)

// DefaultPageSize bounds list endpoints when the client does not pick
// a page size.
const DefaultPageSize = 20

// MaxPageSize caps client-requested page sizes.
const MaxPageSize = 100

// MaxArchiveEntries caps how many attachments one archive request may
// bundle.
const MaxArchiveEntries = 100

// Handlers holds the dependencies shared by all endpoint handlers.
type Handlers struct {
	store  storage.Store
	blobs  blob.Store
	codec  *capability.Codec
	logger *slog.Logger

	// baseURL prefixes issued public download links,
	// e.g. "https://files.example.com".
	baseURL string

	// maxUploadBytes is the hard request-size cap, independent of any
	// per-application quota.
	maxUploadBytes int64
}

// NewHandlers wires the endpoint handlers to their dependencies.
func NewHandlers(store storage.Store, blobs blob.Store, codec *capability.Codec, baseURL string, maxUploadBytes int64, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		store:          store,
		blobs:          blobs,
		codec:          codec,
		logger:         logger,
		baseURL:        baseURL,
		maxUploadBytes: maxUploadBytes,
	}
}

// Routes registers every endpoint on the mux. Authentication and the
// bypass list are applied by the caller around the whole mux.
func (h *Handlers) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/attachments", h.Upload)
	mux.HandleFunc("GET /api/attachments/{id}", h.Download)
	mux.HandleFunc("GET /api/attachments/{id}/metadata", h.Metadata)
	mux.HandleFunc("DELETE /api/attachments/{id}", h.Delete)
	mux.HandleFunc("POST /api/attachments/{id}/links", h.CreateLink)
	mux.HandleFunc("GET /public/download", h.PublicDownload)
	mux.HandleFunc("POST /api/archives", h.Archive)
	mux.HandleFunc("GET /api/usage", h.Usage)

	mux.HandleFunc("GET /api/admin/dashboard", h.AdminDashboard)
	mux.HandleFunc("GET /api/admin/applications", h.AdminListApplications)
	mux.HandleFunc("POST /api/admin/applications", h.AdminCreateApplication)
	mux.HandleFunc("GET /api/admin/applications/{id}", h.AdminGetApplication)
	mux.HandleFunc("DELETE /api/admin/applications/{id}", h.AdminDeleteApplication)
	mux.HandleFunc("PUT /api/admin/applications/{id}/limits", h.AdminUpdateLimits)
	mux.HandleFunc("GET /api/admin/attachments", h.AdminListAttachments)

	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// principal returns the authenticated principal, or nil.
func principal(r *http.Request) *auth.Principal {
	return auth.PrincipalFromContext(r.Context())
}

// pathID parses the {id} path segment as a UUID.
func pathID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	return id, err == nil
}

// fetchOwned loads an attachment and enforces ownership. A missing
// attachment and a foreign one are indistinguishable to the caller.
func (h *Handlers) fetchOwned(r *http.Request) (*api.Attachment, *api.APIError) {
	p := principal(r)
	if p == nil {
		return nil, api.NewUnauthorizedError()
	}

	id, ok := pathID(r)
	if !ok {
		return nil, api.NewNotFoundError("attachment not found")
	}

	att, err := h.store.GetAttachment(r.Context(), id)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, api.NewNotFoundError("attachment not found")
		}
		h.logger.Error("loading attachment", slog.String("error", err.Error()))
		return nil, api.NewServerError("loading attachment failed")
	}

	if !auth.CheckOwnership(p, att.ApplicationID) {
		return nil, api.NewNotFoundError("attachment not found")
	}
	return att, nil
}

// requireAdmin returns the principal when it carries the admin flag.
func requireAdmin(w http.ResponseWriter, r *http.Request) *auth.Principal {
	p := principal(r)
	if p == nil {
		transport.WriteAPIError(w, api.NewUnauthorizedError())
		return nil
	}
	if !p.IsAdmin {
		transport.WriteAPIError(w, api.NewForbiddenError("admin access required"))
		return nil
	}
	return p
}

// pageParams reads page and page_size query parameters with defaults
// and caps applied.
func pageParams(r *http.Request) (page, pageSize int) {
	page, pageSize = 1, DefaultPageSize
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := r.URL.Query().Get("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			pageSize = n
		}
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}
