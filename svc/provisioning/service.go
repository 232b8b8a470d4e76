package provisioning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/metrics"
	"github.com/dmitrymomot/tenantkit/pkg/pg"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/pkg/tenantcache"
	"github.com/dmitrymomot/tenantkit/pkg/tenantdb"
)

// lockSQL serializes concurrent provisioning of the same slug until the transaction ends.
const lockSQL = `SELECT pg_advisory_xact_lock(hashtext($1))`

// Tenant is the result of a successful provisioning.
type Tenant struct {
	TenantID   uuid.UUID `json:"tenant_id"`
	Slug       string    `json:"slug"`
	Name       string    `json:"name"`
	SchemaName string    `json:"schema_name"`
}

// Service creates tenants and manages their directory entries.
type Service struct {
	factory   *tenantdb.Factory
	directory *tenantdb.Directory
	apiKeys   *tenantdb.APIKeyStore
	schema    tenantdb.Schema
	cache     tenant.DirectoryCache
	cacheTTL  time.Duration
	scoped    *tenantcache.Cache
	logger    *slog.Logger
	metrics   *metrics.Tenancy
}

// Option configures a Service.
type Option func(*Service)

// WithSchema replaces the tables created in every new tenant schema.
func WithSchema(s tenantdb.Schema) Option {
	return func(svc *Service) { svc.schema = s }
}

// WithDirectoryCache primes c with each new tenant.
func WithDirectoryCache(c tenant.DirectoryCache, ttl time.Duration) Option {
	return func(svc *Service) {
		if c != nil {
			svc.cache = c
		}
		if ttl > 0 {
			svc.cacheTTL = ttl
		}
	}
}

// WithScopedCache primes the new tenant's cache namespace.
func WithScopedCache(c *tenantcache.Cache) Option {
	return func(svc *Service) { svc.scoped = c }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(svc *Service) {
		if l != nil {
			svc.logger = l
		}
	}
}

// WithMetrics records provisioning outcomes.
func WithMetrics(m *metrics.Tenancy) Option {
	return func(svc *Service) { svc.metrics = m }
}

// NewService creates a provisioning service.
func NewService(factory *tenantdb.Factory, directory *tenantdb.Directory, apiKeys *tenantdb.APIKeyStore, opts ...Option) *Service {
	s := &Service{
		factory:   factory,
		directory: directory,
		apiKeys:   apiKeys,
		schema:    tenantdb.BaseSchema,
		cache:     tenant.NoOpCache{},
		cacheTTL:  tenant.DefaultCacheTTL,
		logger:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Provision creates the tenant schema, its tables and row security policies,
// and registers it in the directory, all in one transaction. The directory row
// is written last, so a tenant is never visible before its schema is complete.
func (s *Service) Provision(ctx context.Context, slug, name string) (Tenant, error) {
	if err := tenant.ValidateSlug(slug); err != nil {
		s.metrics.Provision("invalid_slug")
		return Tenant{}, err
	}

	id, err := tenant.NewIdentity(uuid.New(), slug)
	if err != nil {
		s.metrics.Provision("invalid_slug")
		return Tenant{}, err
	}
	if name == "" {
		name = slug
	}

	entry := tenant.DirectoryEntry{Identity: id, Name: name, Active: true}

	err = s.factory.DoUnscoped(ctx, func(sess *tenantdb.Session) error {
		return sess.InTx(ctx, func(tx *tenantdb.Tx) error {
			if _, err := tx.Exec(ctx, lockSQL, slug); err != nil {
				return fmt.Errorf("lock slug: %w", err)
			}

			taken, err := s.directory.SlugExists(ctx, tx, slug)
			if err != nil {
				return err
			}
			if taken {
				return ErrSlugTaken
			}

			for _, stmt := range s.schema.ProvisionStatements(id.SchemaName) {
				if _, err := tx.Exec(ctx, stmt); err != nil {
					return fmt.Errorf("create tenant schema: %w", err)
				}
			}

			return s.directory.Insert(ctx, tx, entry)
		})
	})
	if err != nil {
		return Tenant{}, s.provisionFailed(ctx, id, err)
	}

	s.metrics.Provision("ok")
	s.logger.InfoContext(ctx, "tenant provisioned",
		logger.TenantID(id.ID),
		logger.TenantSlug(id.Slug),
		logger.Schema(id.SchemaName),
	)

	s.prime(ctx, id)

	return Tenant{
		TenantID:   id.ID,
		Slug:       id.Slug,
		Name:       name,
		SchemaName: id.SchemaName,
	}, nil
}

func (s *Service) provisionFailed(ctx context.Context, id tenant.Identity, err error) error {
	if errors.Is(err, ErrSlugTaken) || pg.IsDuplicateKeyError(err) || pg.IsDuplicateSchemaError(err) {
		s.metrics.Provision("slug_taken")
		return fmt.Errorf("%w: %q", ErrSlugTaken, id.Slug)
	}

	s.metrics.Provision("error")
	s.logger.ErrorContext(ctx, "tenant provisioning failed",
		logger.TenantSlug(id.Slug),
		logger.Error(err),
	)
	return errors.Join(ErrProvisionFailed, err)
}

// prime warms the directory cache and the scoped cache namespace. Failures are
// logged by the caches themselves.
func (s *Service) prime(ctx context.Context, id tenant.Identity) {
	s.cache.Put(ctx, id, s.cacheTTL)

	if s.scoped == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := tenant.Scope(ctx, id, s.scoped.Prime); err != nil {
		s.logger.WarnContext(ctx, "scoped cache priming skipped",
			logger.TenantSlug(id.Slug),
			logger.Error(err),
		)
	}
}

// List returns every directory entry.
func (s *Service) List(ctx context.Context) ([]tenant.DirectoryEntry, error) {
	entries, err := s.directory.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("provisioning: list tenants: %w", err)
	}
	return entries, nil
}

// Get returns the directory entry for id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (tenant.DirectoryEntry, error) {
	entry, err := s.directory.Get(ctx, id)
	if err != nil {
		if errors.Is(err, tenant.ErrUnknownTenant) {
			return tenant.DirectoryEntry{}, ErrTenantNotFound
		}
		return tenant.DirectoryEntry{}, fmt.Errorf("provisioning: get tenant: %w", err)
	}
	return entry, nil
}

// Deactivate stops the tenant from resolving once cached identities expire.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.setActive(ctx, id, false)
}

// Activate re-enables a deactivated tenant.
func (s *Service) Activate(ctx context.Context, id uuid.UUID) error {
	return s.setActive(ctx, id, true)
}

func (s *Service) setActive(ctx context.Context, id uuid.UUID, active bool) error {
	if err := s.directory.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, tenant.ErrUnknownTenant) {
			return ErrTenantNotFound
		}
		return fmt.Errorf("provisioning: update tenant: %w", err)
	}
	s.logger.InfoContext(ctx, "tenant active flag changed",
		logger.TenantID(id),
		slog.Bool("active", active),
	)
	return nil
}

// IssueAPIKey creates an API key in the tenant's own schema and returns the
// plain key. It is shown once and cannot be recovered. ctx must not carry a
// tenant binding.
func (s *Service) IssueAPIKey(ctx context.Context, id uuid.UUID, name string) (string, error) {
	entry, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}

	var plain string
	err = tenant.Scope(ctx, entry.Identity, func(ctx context.Context) error {
		key, err := s.apiKeys.Issue(ctx, name)
		if err != nil {
			return err
		}
		plain = key.Plain
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("provisioning: issue api key: %w", err)
	}
	return plain, nil
}
