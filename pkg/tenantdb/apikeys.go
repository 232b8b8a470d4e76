package tenantdb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/apikey"
	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// APIKey is the stored, non-secret part of a key.
type APIKey struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Prefix    string     `json:"key_prefix"`
	CreatedAt time.Time  `json:"created_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// APIKeyStore keeps API keys in each tenant's own api_keys table.
type APIKeyStore struct {
	factory   *Factory
	directory *Directory
	logger    *slog.Logger
}

// NewAPIKeyStore creates a store. A nil logger discards output.
func NewAPIKeyStore(factory *Factory, directory *Directory, log *slog.Logger) *APIKeyStore {
	if log == nil {
		log = logger.Discard()
	}
	return &APIKeyStore{factory: factory, directory: directory, logger: log}
}

// Issue creates a key for the ambient tenant. The plain key is returned once.
func (s *APIKeyStore) Issue(ctx context.Context, name string) (apikey.Key, error) {
	key, err := apikey.Generate()
	if err != nil {
		return apikey.Key{}, err
	}

	err = s.factory.Do(ctx, func(sess *Session) error {
		_, err := sess.ExecBuilder(ctx, sess.Builder().
			Insert("tenant.api_keys").
			Columns("tenant_id", "name", "key_prefix", "key_hash").
			Values(sess.Identity().ID, name, key.Prefix, key.Hash))
		return err
	})
	if err != nil {
		return apikey.Key{}, fmt.Errorf("tenantdb: issue api key: %w", err)
	}
	return key, nil
}

// List returns the ambient tenant's keys, newest first.
func (s *APIKeyStore) List(ctx context.Context) ([]APIKey, error) {
	var keys []APIKey
	err := s.factory.Do(ctx, func(sess *Session) error {
		rows, err := sess.QueryBuilder(ctx, sess.Builder().
			Select("id", "name", "key_prefix", "created_at", "revoked_at").
			From("tenant.api_keys").
			OrderBy("created_at DESC"))
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var k APIKey
			if err := rows.Scan(&k.ID, &k.Name, &k.Prefix, &k.CreatedAt, &k.RevokedAt); err != nil {
				return err
			}
			keys = append(keys, k)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("tenantdb: list api keys: %w", err)
	}
	return keys, nil
}

// Revoke marks a key of the ambient tenant as revoked.
func (s *APIKeyStore) Revoke(ctx context.Context, id uuid.UUID) error {
	return s.factory.Do(ctx, func(sess *Session) error {
		tag, err := sess.ExecBuilder(ctx, sess.Builder().
			Update("tenant.api_keys").
			Set("revoked_at", sq.Expr("now()")).
			Where(sq.Eq{"id": id, "revoked_at": nil}))
		if err != nil {
			return fmt.Errorf("tenantdb: revoke api key: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrAPIKeyNotFound
		}
		return nil
	})
}

// FindTenant implements tenant.APIKeyFinder.
//
// Keys live in per-tenant schemas, so this scans every active tenant with a
// session scoped to it, looking candidates up by display prefix and verifying
// the hash. Cost grows linearly with the tenant count; a shared prefix index
// is the follow-up once that matters.
func (s *APIKeyStore) FindTenant(ctx context.Context, key string) (uuid.UUID, bool, error) {
	prefix, err := apikey.Prefix(key)
	if err != nil {
		return uuid.Nil, false, nil
	}

	entries, err := s.directory.ListActive(ctx)
	if err != nil {
		return uuid.Nil, false, err
	}

	for _, e := range entries {
		var found bool
		err := tenant.Scope(ctx, e.Identity, func(ctx context.Context) error {
			return s.factory.Do(ctx, func(sess *Session) error {
				rows, err := sess.Query(ctx,
					`SELECT tenant_id, key_hash FROM tenant.api_keys WHERE key_prefix = $1 AND revoked_at IS NULL`,
					prefix,
				)
				if err != nil {
					return err
				}
				defer rows.Close()

				for rows.Next() {
					var (
						id   uuid.UUID
						hash []byte
					)
					if err := rows.Scan(&id, &hash); err != nil {
						return err
					}
					if id == e.ID && apikey.Verify(key, hash) {
						found = true
					}
				}
				return rows.Err()
			})
		})
		if err != nil {
			return uuid.Nil, false, fmt.Errorf("tenantdb: find api key in %s: %w", e.Slug, err)
		}
		if found {
			return e.ID, true, nil
		}
	}

	s.logger.DebugContext(ctx, "api key matched no tenant",
		logger.Component("api_keys"),
		slog.Int("tenants_scanned", len(entries)),
	)
	return uuid.Nil, false, nil
}
