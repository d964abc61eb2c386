package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/attache-dev/attache/pkg/api"
	"github.com/attache-dev/attache/pkg/auth/apikey"
	"github.com/attache-dev/attache/pkg/storage"
	"github.com/attache-dev/attache/pkg/transport"
)

// MinAPIKeyLength is the shortest accepted plaintext API key for a new
// application.
const MinAPIKeyLength = 16

// AdminDashboard aggregates service-wide figures and per-application
// summaries.
func (h *Handlers) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	if requireAdmin(w, r) == nil {
		return
	}

	summaries, apiErr := h.applicationSummaries(r)
	if apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	totalCount, err := h.store.TotalCount(r.Context())
	if err != nil {
		h.adminError(w, "counting attachments", err)
		return
	}
	totalBytes, err := h.store.TotalBytes(r.Context())
	if err != nil {
		h.adminError(w, "summing attachments", err)
		return
	}

	transport.WriteJSON(w, http.StatusOK, api.DashboardStats{
		TotalAttachments:  totalCount,
		TotalStorageBytes: totalBytes,
		TotalApplications: len(summaries),
		Applications:      summaries,
	})
}

// AdminListApplications lists all registered applications with usage.
func (h *Handlers) AdminListApplications(w http.ResponseWriter, r *http.Request) {
	if requireAdmin(w, r) == nil {
		return
	}

	summaries, apiErr := h.applicationSummaries(r)
	if apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}
	transport.WriteJSON(w, http.StatusOK, summaries)
}

// AdminCreateApplication registers a new application. The response is
// the only place the plaintext API key ever appears; only its bcrypt
// hash is stored.
func (h *Handlers) AdminCreateApplication(w http.ResponseWriter, r *http.Request) {
	if requireAdmin(w, r) == nil {
		return
	}

	var req api.CreateApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		transport.WriteAPIError(w, api.NewInvalidRequestError("malformed JSON body"))
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		transport.WriteAPIError(w, api.NewInvalidRequestError("name is required"))
		return
	}
	if len(req.APIKey) < MinAPIKeyLength {
		transport.WriteAPIError(w, api.NewInvalidRequestError("api_key must be at least 16 characters"))
		return
	}
	if (req.MaxFileSizeMB != nil && *req.MaxFileSizeMB < 0) || (req.MaxStorageMB != nil && *req.MaxStorageMB < 0) {
		transport.WriteAPIError(w, api.NewInvalidRequestError("limits must not be negative"))
		return
	}

	hash, err := apikey.HashKey(req.APIKey)
	if err != nil {
		h.adminError(w, "hashing api key", err)
		return
	}

	app := &api.Application{
		ID:               uuid.New(),
		Name:             req.Name,
		APIKeyHash:       hash,
		IsAdmin:          req.IsAdmin,
		MaxFileSizeBytes: api.LimitFromMegabytes(req.MaxFileSizeMB),
		MaxStorageBytes:  api.LimitFromMegabytes(req.MaxStorageMB),
		CreatedAt:        time.Now().UTC(),
	}

	if err := h.store.CreateApplication(r.Context(), app); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("an application with this name already exists"),
				http.StatusConflict)
			return
		}
		h.adminError(w, "creating application", err)
		return
	}

	h.logger.Info("application created",
		slog.String("application_id", app.ID.String()),
		slog.String("name", app.Name),
		slog.Bool("is_admin", app.IsAdmin),
	)

	transport.WriteJSON(w, http.StatusCreated, api.CreateApplicationResponse{
		ID:     app.ID,
		Name:   app.Name,
		APIKey: req.APIKey,
	})
}

// AdminGetApplication returns one application's summary with usage.
func (h *Handlers) AdminGetApplication(w http.ResponseWriter, r *http.Request) {
	if requireAdmin(w, r) == nil {
		return
	}

	id, ok := pathID(r)
	if !ok {
		transport.WriteAPIError(w, api.NewNotFoundError("application not found"))
		return
	}

	app, err := h.store.GetApplication(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			transport.WriteAPIError(w, api.NewNotFoundError("application not found"))
			return
		}
		h.adminError(w, "loading application", err)
		return
	}

	used, err := h.store.UsageBytes(r.Context(), app.ID)
	if err != nil {
		h.adminError(w, "reading usage", err)
		return
	}

	transport.WriteJSON(w, http.StatusOK, api.ApplicationSummary{
		ID:               app.ID,
		Name:             app.Name,
		IsAdmin:          app.IsAdmin,
		MaxFileSizeBytes: app.MaxFileSizeBytes,
		MaxStorageBytes:  app.MaxStorageBytes,
		StorageUsedBytes: used,
	})
}

// AdminDeleteApplication removes an application and its attachments'
// metadata. Blobs are removed best-effort.
func (h *Handlers) AdminDeleteApplication(w http.ResponseWriter, r *http.Request) {
	if requireAdmin(w, r) == nil {
		return
	}

	id, ok := pathID(r)
	if !ok {
		transport.WriteAPIError(w, api.NewNotFoundError("application not found"))
		return
	}

	// Collect blob paths before the metadata rows cascade away.
	page := 1
	var paths []string
	for {
		atts, err := h.store.ListApplicationAttachments(r.Context(), id, page, MaxPageSize)
		if err != nil {
			h.adminError(w, "listing attachments", err)
			return
		}
		for _, att := range atts {
			paths = append(paths, att.StoredPath)
		}
		if len(atts) < MaxPageSize {
			break
		}
		page++
	}

	if err := h.store.DeleteApplication(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			transport.WriteAPIError(w, api.NewNotFoundError("application not found"))
			return
		}
		h.adminError(w, "deleting application", err)
		return
	}

	for _, path := range paths {
		if err := h.blobs.Delete(r.Context(), path); err != nil {
			h.logger.Error("deleting blob for removed application",
				slog.String("path", path), slog.String("error", err.Error()))
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// AdminUpdateLimits changes an application's quotas. A nil field keeps
// the current limit; an explicit 0 removes it.
func (h *Handlers) AdminUpdateLimits(w http.ResponseWriter, r *http.Request) {
	if requireAdmin(w, r) == nil {
		return
	}

	id, ok := pathID(r)
	if !ok {
		transport.WriteAPIError(w, api.NewNotFoundError("application not found"))
		return
	}

	var req api.UpdateLimitsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		transport.WriteAPIError(w, api.NewInvalidRequestError("malformed JSON body"))
		return
	}
	if (req.MaxFileSizeMB != nil && *req.MaxFileSizeMB < 0) || (req.MaxStorageMB != nil && *req.MaxStorageMB < 0) {
		transport.WriteAPIError(w, api.NewInvalidRequestError("limits must not be negative"))
		return
	}

	app, err := h.store.GetApplication(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			transport.WriteAPIError(w, api.NewNotFoundError("application not found"))
			return
		}
		h.adminError(w, "loading application", err)
		return
	}

	maxFile := app.MaxFileSizeBytes
	if req.MaxFileSizeMB != nil {
		maxFile = api.LimitFromMegabytes(req.MaxFileSizeMB)
	}
	maxStorage := app.MaxStorageBytes
	if req.MaxStorageMB != nil {
		maxStorage = api.LimitFromMegabytes(req.MaxStorageMB)
	}

	if err := h.store.UpdateApplicationLimits(r.Context(), id, maxFile, maxStorage); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			transport.WriteAPIError(w, api.NewNotFoundError("application not found"))
			return
		}
		h.adminError(w, "updating limits", err)
		return
	}

	transport.WriteJSON(w, http.StatusOK, api.ApplicationSummary{
		ID:               app.ID,
		Name:             app.Name,
		IsAdmin:          app.IsAdmin,
		MaxFileSizeBytes: maxFile,
		MaxStorageBytes:  maxStorage,
	})
}

// AdminListAttachments returns a page of all attachments with owner
// names attached.
func (h *Handlers) AdminListAttachments(w http.ResponseWriter, r *http.Request) {
	if requireAdmin(w, r) == nil {
		return
	}

	page, pageSize := pageParams(r)

	atts, err := h.store.ListAttachments(r.Context(), page, pageSize)
	if err != nil {
		h.adminError(w, "listing attachments", err)
		return
	}
	total, err := h.store.TotalCount(r.Context())
	if err != nil {
		h.adminError(w, "counting attachments", err)
		return
	}
	apps, err := h.store.ListApplications(r.Context())
	if err != nil {
		h.adminError(w, "listing applications", err)
		return
	}

	names := make(map[uuid.UUID]string, len(apps))
	for _, app := range apps {
		names[app.ID] = app.Name
	}

	items := make([]api.AttachmentListItem, 0, len(atts))
	for i := range atts {
		items = append(items, api.AttachmentListItem{
			AttachmentMetadata: atts[i].Metadata(),
			ApplicationID:      atts[i].ApplicationID,
			ApplicationName:    names[atts[i].ApplicationID],
		})
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	transport.WriteJSON(w, http.StatusOK, api.Page[api.AttachmentListItem]{
		Items:      items,
		PageNumber: page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: totalPages,
	})
}

// applicationSummaries joins the application list with per-application
// usage.
func (h *Handlers) applicationSummaries(r *http.Request) ([]api.ApplicationSummary, *api.APIError) {
	apps, err := h.store.ListApplications(r.Context())
	if err != nil {
		h.logger.Error("listing applications", slog.String("error", err.Error()))
		return nil, api.NewServerError("listing applications failed")
	}
	usage, err := h.store.UsageByApplication(r.Context())
	if err != nil {
		h.logger.Error("reading usage", slog.String("error", err.Error()))
		return nil, api.NewServerError("reading usage failed")
	}

	summaries := make([]api.ApplicationSummary, 0, len(apps))
	for _, app := range apps {
		summaries = append(summaries, api.ApplicationSummary{
			ID:               app.ID,
			Name:             app.Name,
			IsAdmin:          app.IsAdmin,
			MaxFileSizeBytes: app.MaxFileSizeBytes,
			MaxStorageBytes:  app.MaxStorageBytes,
			StorageUsedBytes: usage[app.ID],
		})
	}
	return summaries, nil
}

func (h *Handlers) adminError(w http.ResponseWriter, action string, err error) {
	h.logger.Error(action, slog.String("error", err.Error()))
	transport.WriteAPIError(w, api.NewServerError(action+" failed"))
}
