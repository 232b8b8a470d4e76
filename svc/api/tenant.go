package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// VisitsKey is the scoped cache counter bumped by POST /api/visits.
const VisitsKey = "visits"

func (h *handlers) whoami(w http.ResponseWriter, r *http.Request) {
	id, err := tenant.Current(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, id)
}

func (h *handlers) listSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.deps.Settings.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, settings)
}

func (h *handlers) getSetting(w http.ResponseWriter, r *http.Request) {
	value, err := h.deps.Settings.Get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, value)
}

func (h *handlers) putSetting(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<16))
	if err != nil {
		h.fail(w, r, errBadRequest)
		return
	}
	if err := h.deps.Settings.Put(r.Context(), chi.URLParam(r, "key"), json.RawMessage(body)); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) countVisit(w http.ResponseWriter, r *http.Request) {
	if h.deps.Counter == nil {
		h.fail(w, r, errNoCache)
		return
	}
	n, err := h.deps.Counter.Incr(r.Context(), VisitsKey)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]int64{"visits": n})
}
