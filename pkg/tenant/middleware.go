package tenant

import (
	"net/http"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
)

// Middleware resolves the tenant for every request outside the skip list, binds it
// to the request context for the duration of the handler and releases it afterwards.
// Requests whose tenant cannot be established never reach the handler.
func Middleware(resolver IdentityResolver, opts ...Option) func(http.Handler) http.Handler {
	cfg := newMiddlewareConfig(opts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.skipped(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := resolver.Resolve(r)
			if err != nil {
				cfg.errorHandler(w, r, err)
				return
			}

			ctx, binding, err := Bind(r.Context(), identity)
			if err != nil {
				cfg.logger.ErrorContext(r.Context(), "failed to bind tenant", logger.Error(err))
				cfg.errorHandler(w, r, err)
				return
			}
			defer binding.Release()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireTenant rejects requests that reach it without a bound tenant.
// It guards routes mounted below a skip-listed prefix by mistake.
func RequireTenant(errorHandler ErrorHandler) func(http.Handler) http.Handler {
	if errorHandler == nil {
		errorHandler = defaultErrorHandler
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := Current(r.Context()); err != nil {
				errorHandler(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
