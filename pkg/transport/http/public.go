package http

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/attache-dev/attache/pkg/api"
	"github.com/attache-dev/attache/pkg/observability"
	"github.com/attache-dev/attache/pkg/storage"
	"github.com/attache-dev/attache/pkg/transport"
)

// PublicDownload redeems a signed link: id, expires, and sig query
// parameters replace authentication. Malformed, expired, and forged
// links all produce the same 401 so nothing about the failure mode
// leaks.
func (h *Handlers) PublicDownload(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	id, err := uuid.Parse(q.Get("id"))
	if err != nil {
		h.rejectLink(w)
		return
	}
	expires, err := strconv.ParseInt(q.Get("expires"), 10, 64)
	if err != nil {
		h.rejectLink(w)
		return
	}
	sig := q.Get("sig")
	if sig == "" {
		h.rejectLink(w)
		return
	}

	if !h.codec.Verify(id, expires, sig) {
		h.rejectLink(w)
		return
	}

	// The capability is genuine; a missing attachment is now an honest
	// 404 (it may have been deleted after the link was issued).
	att, err := h.store.GetAttachment(r.Context(), id)
	if err != nil {
		if err == storage.ErrNotFound {
			transport.WriteAPIError(w, api.NewNotFoundError("attachment not found"))
			return
		}
		transport.WriteAPIError(w, api.NewServerError("loading attachment failed"))
		return
	}

	h.serveAttachment(w, r, att, "signed")
}

func (h *Handlers) rejectLink(w http.ResponseWriter) {
	observability.SignedLinkRejectionsTotal.Inc()
	transport.WriteAPIError(w, api.NewUnauthorizedError())
}
