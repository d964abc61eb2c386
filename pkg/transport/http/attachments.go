package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/attache-dev/attache/pkg/api"
	"github.com/attache-dev/attache/pkg/archive"
	"github.com/attache-dev/attache/pkg/auth"
	"github.com/attache-dev/attache/pkg/blob"
	"github.com/attache-dev/attache/pkg/capability"
	"github.com/attache-dev/attache/pkg/observability"
	"github.com/attache-dev/attache/pkg/quota"
	"github.com/attache-dev/attache/pkg/storage"
	"github.com/attache-dev/attache/pkg/transport"
)

// Upload accepts a multipart upload under the "file" field, runs quota
// admission against fresh usage, stores the blob, and records metadata.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	if p == nil {
		transport.WriteAPIError(w, api.NewUnauthorizedError())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			transport.WriteAPIError(w, api.NewQuotaError(api.CodeFileTooLarge,
				fmt.Sprintf("request exceeds the %d byte upload cap", h.maxUploadBytes)))
			return
		}
		transport.WriteAPIError(w, api.NewInvalidRequestError("multipart field \"file\" is required"))
		return
	}
	defer file.Close()

	if header.Size <= 0 {
		transport.WriteAPIError(w, api.NewInvalidRequestError("uploaded file is empty"))
		return
	}

	// Usage is read fresh for every admission; a stale figure could let
	// an application overshoot its storage limit.
	usage, err := h.store.UsageBytes(r.Context(), p.ApplicationID)
	if err != nil {
		h.logger.Error("reading usage", slog.String("error", err.Error()))
		transport.WriteAPIError(w, api.NewServerError("usage lookup failed"))
		return
	}

	if d := quota.Admit(p, header.Size, usage); !d.Admitted {
		observability.QuotaRejectionsTotal.WithLabelValues(string(d.Reason)).Inc()
		switch d.Reason {
		case quota.FileTooLarge:
			transport.WriteAPIError(w, api.NewQuotaError(api.CodeFileTooLarge,
				"file exceeds the application's per-file size limit"))
		default:
			transport.WriteAPIError(w, api.NewQuotaError(api.CodeStorageLimitExceeded,
				"upload would exceed the application's storage limit"))
		}
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	att := &api.Attachment{
		ID:               uuid.New(),
		FileName:         blob.StorageName(header.Filename),
		OriginalFileName: header.Filename,
		ContentType:      contentType,
		SizeBytes:        header.Size,
		ApplicationID:    p.ApplicationID,
		UserID:           r.FormValue("user_id"),
		UploadedAt:       time.Now().UTC(),
	}
	att.StoredPath = att.FileName

	if err := h.blobs.Save(r.Context(), att.StoredPath, file, header.Size, contentType); err != nil {
		h.logger.Error("saving blob", slog.String("error", err.Error()))
		transport.WriteAPIError(w, api.NewServerError("storing file failed"))
		return
	}

	if err := h.store.CreateAttachment(r.Context(), att); err != nil {
		// The blob is orphaned if this cleanup also fails; the metadata
		// row is the source of truth, so an orphan is waste, not
		// corruption.
		if delErr := h.blobs.Delete(r.Context(), att.StoredPath); delErr != nil {
			h.logger.Error("cleaning up blob after metadata failure", slog.String("error", delErr.Error()))
		}
		h.logger.Error("recording attachment", slog.String("error", err.Error()))
		transport.WriteAPIError(w, api.NewServerError("recording attachment failed"))
		return
	}

	observability.UploadsTotal.Inc()
	observability.UploadBytesTotal.Add(float64(header.Size))
	h.logger.Info("attachment uploaded",
		slog.String("attachment_id", att.ID.String()),
		slog.String("application_id", p.ApplicationID.String()),
		slog.Int64("size_bytes", att.SizeBytes),
	)

	transport.WriteJSON(w, http.StatusCreated, api.UploadResponse{ID: att.ID})
}

// Download streams an owned attachment back to its application.
func (h *Handlers) Download(w http.ResponseWriter, r *http.Request) {
	att, apiErr := h.fetchOwned(r)
	if apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	h.serveAttachment(w, r, att, "authenticated")
}

// Metadata returns the client-facing view of an owned attachment.
func (h *Handlers) Metadata(w http.ResponseWriter, r *http.Request) {
	att, apiErr := h.fetchOwned(r)
	if apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}
	transport.WriteJSON(w, http.StatusOK, att.Metadata())
}

// Delete removes an owned attachment's blob and metadata.
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	att, apiErr := h.fetchOwned(r)
	if apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	if err := h.blobs.Delete(r.Context(), att.StoredPath); err != nil {
		h.logger.Error("deleting blob", slog.String("error", err.Error()))
		transport.WriteAPIError(w, api.NewServerError("deleting file failed"))
		return
	}
	if err := h.store.DeleteAttachment(r.Context(), att.ID); err != nil && err != storage.ErrNotFound {
		h.logger.Error("deleting attachment", slog.String("error", err.Error()))
		transport.WriteAPIError(w, api.NewServerError("deleting attachment failed"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreateLink issues a signed public download link for an owned
// attachment. Ownership is checked at issue time; redemption is
// anonymous.
func (h *Handlers) CreateLink(w http.ResponseWriter, r *http.Request) {
	att, apiErr := h.fetchOwned(r)
	if apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	var req api.SignedLinkRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			transport.WriteAPIError(w, api.NewInvalidRequestError("malformed JSON body"))
			return
		}
	}

	ttl := h.codec.DefaultTTL()
	if req.ExpiresInMinutes != nil {
		ttl = time.Duration(*req.ExpiresInMinutes) * time.Minute
	}

	link, err := h.codec.Generate(att.ID, ttl)
	if err != nil {
		if errors.Is(err, capability.ErrInvalidTTL) {
			transport.WriteAPIError(w, api.NewInvalidRequestError("expires_in_minutes must be positive"))
			return
		}
		h.logger.Error("generating link", slog.String("error", err.Error()))
		transport.WriteAPIError(w, api.NewServerError("generating link failed"))
		return
	}

	observability.SignedLinksIssuedTotal.Inc()
	transport.WriteJSON(w, http.StatusCreated, api.SignedLinkResponse{
		URL:       h.baseURL + "/public/download?" + link.Query().Encode(),
		ExpiresAt: link.ExpiresAt,
	})
}

// Archive bundles several owned attachments into one zip download.
// Any missing or foreign ID fails the whole request with a 404.
func (h *Handlers) Archive(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	if p == nil {
		transport.WriteAPIError(w, api.NewUnauthorizedError())
		return
	}

	var req api.ArchiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		transport.WriteAPIError(w, api.NewInvalidRequestError("malformed JSON body"))
		return
	}
	if len(req.AttachmentIDs) == 0 {
		transport.WriteAPIError(w, api.NewInvalidRequestError("attachment_ids must not be empty"))
		return
	}
	if len(req.AttachmentIDs) > MaxArchiveEntries {
		transport.WriteAPIError(w, api.NewInvalidRequestError(
			fmt.Sprintf("at most %d attachments per archive", MaxArchiveEntries)))
		return
	}

	attachments := make([]api.Attachment, 0, len(req.AttachmentIDs))
	for _, id := range req.AttachmentIDs {
		att, err := h.store.GetAttachment(r.Context(), id)
		if err != nil || !auth.CheckOwnership(p, att.ApplicationID) {
			transport.WriteAPIError(w, api.NewNotFoundError("attachment not found"))
			return
		}
		attachments = append(attachments, *att)
	}

	name := req.Name
	if name == "" {
		name = "attachments"
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name + ".zip"}))
	if err := archive.Write(r.Context(), w, h.blobs, attachments); err != nil {
		// Headers are already sent; all we can do is log and drop the
		// connection mid-stream.
		h.logger.Error("writing archive", slog.String("error", err.Error()))
	}
}

// Usage reports the calling application's consumption and limits.
func (h *Handlers) Usage(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	if p == nil {
		transport.WriteAPIError(w, api.NewUnauthorizedError())
		return
	}

	used, err := h.store.UsageBytes(r.Context(), p.ApplicationID)
	if err != nil {
		h.logger.Error("reading usage", slog.String("error", err.Error()))
		transport.WriteAPIError(w, api.NewServerError("usage lookup failed"))
		return
	}
	count, err := h.store.CountAttachments(r.Context(), p.ApplicationID)
	if err != nil {
		h.logger.Error("counting attachments", slog.String("error", err.Error()))
		transport.WriteAPIError(w, api.NewServerError("usage lookup failed"))
		return
	}

	transport.WriteJSON(w, http.StatusOK, api.UsageReport{
		ApplicationID:    p.ApplicationID,
		StorageUsedBytes: used,
		MaxFileSizeBytes: p.MaxFileSizeBytes,
		MaxStorageBytes:  p.MaxStorageBytes,
		AttachmentCount:  count,
	})
}

// serveAttachment streams blob content with download headers.
func (h *Handlers) serveAttachment(w http.ResponseWriter, r *http.Request, att *api.Attachment, access string) {
	rc, err := h.blobs.Open(r.Context(), att.StoredPath)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			h.logger.Error("blob missing for attachment", slog.String("attachment_id", att.ID.String()))
			transport.WriteAPIError(w, api.NewNotFoundError("attachment not found"))
			return
		}
		h.logger.Error("opening blob", slog.String("error", err.Error()))
		transport.WriteAPIError(w, api.NewServerError("reading file failed"))
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", att.ContentType)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", att.SizeBytes))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": att.OriginalFileName}))

	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Error("streaming attachment", slog.String("error", err.Error()))
		return
	}
	observability.DownloadsTotal.WithLabelValues(access).Inc()
}
