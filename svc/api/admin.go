package api

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
)

// AdminTokenHeader carries the operator token.
const AdminTokenHeader = "X-Admin-Token"

// adminOnly rejects requests without the configured token. An empty token
// disables the admin routes entirely.
func adminOnly(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				writeError(w, http.StatusNotFound, "not_found", "not found")
				return
			}
			got := r.Header.Get(AdminTokenHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type handlers struct {
	deps   Deps
	logger *slog.Logger
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			logger.Error(err),
		)
	}
	writeError(w, status, code, msg)
}

type provisionRequest struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

type apiKeyRequest struct {
	Name string `json:"name"`
}

type apiKeyResponse struct {
	TenantID uuid.UUID `json:"tenant_id"`
	Key      string    `json:"key"`
}

func (h *handlers) listTenants(w http.ResponseWriter, r *http.Request) {
	entries, err := h.deps.Admin.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, entries)
}

func (h *handlers) provisionTenant(w http.ResponseWriter, r *http.Request) {
	var req provisionRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	t, err := h.deps.Admin.Provision(r.Context(), req.Slug, req.Name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, t)
}

func (h *handlers) setActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := tenantIDParam(r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if active {
			err = h.deps.Admin.Activate(r.Context(), id)
		} else {
			err = h.deps.Admin.Deactivate(r.Context(), id)
		}
		if err != nil {
			h.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *handlers) issueAPIKey(w http.ResponseWriter, r *http.Request) {
	id, err := tenantIDParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req apiKeyRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Name == "" {
		h.fail(w, r, fmt.Errorf("%w: name is required", errBadRequest))
		return
	}
	key, err := h.deps.Admin.IssueAPIKey(r.Context(), id, req.Name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, apiKeyResponse{TenantID: id, Key: key})
}

func tenantIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed tenant id", errBadRequest)
	}
	return id, nil
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body", errBadRequest)
	}
	return nil
}
