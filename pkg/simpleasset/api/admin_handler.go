package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-asset/pkg/simpleasset"
)

// AdminHandler exposes maintenance operations. It must be mounted behind
// operator authentication since it acts across tenants.
type AdminHandler struct {
	service          simpleasset.Service
	defaultRetention time.Duration
	defaultBatch     int
	now              func() time.Time
}

func NewAdminHandler(service simpleasset.Service, retention time.Duration, batch int) *AdminHandler {
	return &AdminHandler{service: service, defaultRetention: retention, defaultBatch: batch, now: time.Now}
}

func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/purge", h.Purge)
	return r
}

// Purge hard-deletes trashed assets older than ?older_than (a Go duration,
// default the configured retention), at most ?limit of them.
func (h *AdminHandler) Purge(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	retention := h.defaultRetention
	if s := strings.TrimSpace(q.Get("older_than")); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d < 0 {
			badRequest(w, r, "older_than", "must be a non-negative duration")
			return
		}
		retention = d
	}

	limit := h.defaultBatch
	n, perr := optInt(q, "limit")
	if perr != nil {
		badRequest(w, r, perr.field, perr.reason)
		return
	}
	if n != nil {
		limit = *n
	}

	result, err := h.service.PurgeDeleted(r.Context(), h.now().Add(-retention), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}
