package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/pkg/tenantdb"
	"github.com/dmitrymomot/tenantkit/svc/provisioning"
)

var (
	errBadRequest = errors.New("api: bad request")
	errNoCache    = errors.New("api: scoped cache disabled")
)

// statusFor maps domain errors to a status, a code and a client-safe message.
func statusFor(err error) (int, string, string) {
	switch {
	case tenant.IsResolutionError(err):
		return http.StatusUnauthorized, "unauthorized", "unauthorized"
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request", err.Error()
	case errors.Is(err, provisioning.ErrInvalidSlug):
		return http.StatusUnprocessableEntity, "invalid_slug", "slug must be 3-50 lowercase letters, digits or hyphens"
	case errors.Is(err, tenantdb.ErrInvalidSettingValue):
		return http.StatusUnprocessableEntity, "invalid_value", "value must be valid JSON"
	case errors.Is(err, provisioning.ErrSlugTaken):
		return http.StatusConflict, "slug_taken", "slug already taken"
	case errors.Is(err, provisioning.ErrTenantNotFound), errors.Is(err, tenantdb.ErrSettingNotFound):
		return http.StatusNotFound, "not_found", "not found"
	case errors.Is(err, errNoCache):
		return http.StatusServiceUnavailable, "unavailable", "cache disabled"
	default:
		return http.StatusInternalServerError, "internal", "internal server error"
	}
}

// TenantErrorHandler renders tenant scope failures in the JSON envelope.
// Missing, unknown and inactive tenants share one 401 body; anything else is
// logged and answered with 500.
func TenantErrorHandler(log *slog.Logger) tenant.ErrorHandler {
	if log == nil {
		log = logger.Discard()
	}
	h := &handlers{logger: log}
	return h.fail
}
