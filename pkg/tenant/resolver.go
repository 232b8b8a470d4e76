package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/metrics"
)

// Default request headers consulted by the resolver.
const (
	DefaultTenantHeader = "X-Tenant-Id"
	DefaultAPIKeyHeader = "X-API-Key"
)

// DefaultCacheTTL bounds how long a deactivated tenant may stay resolvable from cache.
const DefaultCacheTTL = 5 * time.Minute

// Resolution methods, used as metric labels.
const (
	MethodToken  = "token"
	MethodAPIKey = "api_key"
	MethodHeader = "header"
)

// Claims is the tenant portion of a verified bearer token.
type Claims struct {
	TenantID   uuid.UUID
	TenantSlug string
}

// TokenVerifier verifies a bearer token signature and returns its tenant claims.
type TokenVerifier interface {
	VerifyTenant(token string) (Claims, error)
}

// TokenVerifierFunc adapts an ordinary function to TokenVerifier.
type TokenVerifierFunc func(token string) (Claims, error)

// VerifyTenant calls the function.
func (f TokenVerifierFunc) VerifyTenant(token string) (Claims, error) { return f(token) }

// APIKeyFinder locates the tenant owning an API key.
// It returns found=false for unknown keys and an error only on backend failure.
type APIKeyFinder interface {
	FindTenant(ctx context.Context, key string) (id uuid.UUID, found bool, err error)
}

// IdentityResolver turns a request into a tenant identity.
type IdentityResolver interface {
	Resolve(r *http.Request) (Identity, error)
}

// Resolver tries bearer token, then API key, then the explicit tenant header,
// stopping at the first method that yields a credential.
type Resolver struct {
	directory    Directory
	cache        DirectoryCache
	cacheTTL     time.Duration
	tokens       TokenVerifier
	apiKeys      APIKeyFinder
	tenantHeader string
	apiKeyHeader string
	logger       *slog.Logger
	metrics      *metrics.Tenancy
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithTokenVerifier enables bearer-token resolution.
func WithTokenVerifier(v TokenVerifier) ResolverOption {
	return func(r *Resolver) { r.tokens = v }
}

// WithAPIKeyFinder enables API-key resolution.
func WithAPIKeyFinder(f APIKeyFinder) ResolverOption {
	return func(r *Resolver) { r.apiKeys = f }
}

// WithDirectoryCache sets the read-through cache and the TTL used when populating it.
func WithDirectoryCache(c DirectoryCache, ttl time.Duration) ResolverOption {
	return func(r *Resolver) {
		if c != nil {
			r.cache = c
		}
		if ttl > 0 {
			r.cacheTTL = ttl
		}
	}
}

// WithTenantHeader overrides the explicit tenant header name.
func WithTenantHeader(name string) ResolverOption {
	return func(r *Resolver) {
		if name != "" {
			r.tenantHeader = name
		}
	}
}

// WithAPIKeyHeader overrides the API key header name.
func WithAPIKeyHeader(name string) ResolverOption {
	return func(r *Resolver) {
		if name != "" {
			r.apiKeyHeader = name
		}
	}
}

// WithResolverLogger sets the resolver logger.
func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithResolverMetrics records resolution outcomes.
func WithResolverMetrics(m *metrics.Tenancy) ResolverOption {
	return func(r *Resolver) { r.metrics = m }
}

// NewResolver creates a resolver validating every candidate against the directory.
func NewResolver(directory Directory, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		directory:    directory,
		cache:        NoOpCache{},
		cacheTTL:     DefaultCacheTTL,
		tenantHeader: DefaultTenantHeader,
		apiKeyHeader: DefaultAPIKeyHeader,
		logger:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve determines the tenant for the request.
func (r *Resolver) Resolve(req *http.Request) (Identity, error) {
	ctx := req.Context()

	// A token that fails verification counts as absent; none of its claims are used.
	if token, ok := bearerToken(req); ok && r.tokens != nil {
		claims, err := r.tokens.VerifyTenant(token)
		if err == nil {
			id, err := r.lookupActive(ctx, claims.TenantID)
			if err == nil && claims.TenantSlug != "" && claims.TenantSlug != id.Slug {
				err = ErrUnknownTenant
			}
			return r.finish(ctx, MethodToken, id, err)
		}
		r.metrics.Resolution(MethodToken, "invalid")
		r.logger.DebugContext(ctx, "bearer token rejected", logger.Error(err))
	}

	if key := strings.TrimSpace(req.Header.Get(r.apiKeyHeader)); key != "" && r.apiKeys != nil {
		tenantID, found, err := r.apiKeys.FindTenant(ctx, key)
		if err != nil {
			return r.finish(ctx, MethodAPIKey, Identity{}, fmt.Errorf("tenant: api key lookup: %w", err))
		}
		if found {
			id, err := r.lookupActive(ctx, tenantID)
			return r.finish(ctx, MethodAPIKey, id, err)
		}
		r.metrics.Resolution(MethodAPIKey, "not_found")
	}

	if raw := strings.TrimSpace(req.Header.Get(r.tenantHeader)); raw != "" {
		tenantID, err := uuid.Parse(raw)
		if err == nil {
			id, err := r.lookupActive(ctx, tenantID)
			return r.finish(ctx, MethodHeader, id, err)
		}
		r.metrics.Resolution(MethodHeader, "malformed")
	}

	r.metrics.Resolution("none", "missing")
	return Identity{}, ErrMissingTenant
}

// lookupActive resolves an id through the cache, then the directory.
// Only active tenants are ever written to the cache.
func (r *Resolver) lookupActive(ctx context.Context, id uuid.UUID) (Identity, error) {
	if id == uuid.Nil {
		return Identity{}, ErrUnknownTenant
	}

	if cached, ok := r.cache.Lookup(ctx, id); ok {
		r.metrics.DirectoryLookup("cache")
		return cached, nil
	}

	r.metrics.DirectoryLookup("directory")
	entry, err := r.directory.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUnknownTenant) {
			return Identity{}, ErrUnknownTenant
		}
		return Identity{}, fmt.Errorf("tenant: directory lookup: %w", err)
	}
	if !entry.Active {
		return Identity{}, ErrInactiveTenant
	}

	r.cache.Put(ctx, entry.Identity, r.cacheTTL)
	return entry.Identity, nil
}

func (r *Resolver) finish(ctx context.Context, method string, id Identity, err error) (Identity, error) {
	switch {
	case err == nil:
		r.metrics.Resolution(method, "ok")
		return id, nil
	case errors.Is(err, ErrUnknownTenant):
		r.metrics.Resolution(method, "unknown")
	case errors.Is(err, ErrInactiveTenant):
		r.metrics.Resolution(method, "inactive")
	default:
		r.metrics.Resolution(method, "error")
	}
	r.logger.InfoContext(ctx, "tenant resolution failed",
		slog.String("method", method),
		logger.Error(err),
	)
	return Identity{}, err
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
