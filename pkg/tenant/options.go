package tenant

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
)

// ErrorHandler writes the response for a request whose tenant scope could not be established.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// middlewareConfig holds middleware configuration.
type middlewareConfig struct {
	errorHandler ErrorHandler
	skipPaths    []string
	logger       *slog.Logger
}

// Option configures the middleware.
type Option func(*middlewareConfig)

// WithErrorHandler sets a custom error handler.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(c *middlewareConfig) {
		if handler != nil {
			c.errorHandler = handler
		}
	}
}

// WithSkipPaths sets paths that bypass tenant resolution entirely, together
// with everything below them: "/docs" skips "/docs" and "/docs/x" but not "/docsecret".
func WithSkipPaths(paths ...string) Option {
	return func(c *middlewareConfig) {
		for _, p := range paths {
			if p != "" {
				c.skipPaths = append(c.skipPaths, p)
			}
		}
	}
}

// WithLogger sets a custom logger for the middleware.
func WithLogger(l *slog.Logger) Option {
	return func(c *middlewareConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// defaultErrorHandler reports every resolution failure the same way so a caller
// cannot tell a missing tenant from an unknown or inactive one.
func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	if IsResolutionError(err) {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// skipped matches skip paths on path segment boundaries.
func (c *middlewareConfig) skipped(path string) bool {
	for _, skip := range c.skipPaths {
		base := strings.TrimSuffix(skip, "/")
		if path == base || strings.HasPrefix(path, base+"/") {
			return true
		}
	}
	return false
}

func newMiddlewareConfig(opts []Option) *middlewareConfig {
	cfg := &middlewareConfig{
		errorHandler: defaultErrorHandler,
		logger:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
