package tenantdb

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/tenantkit/pkg/pg"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// DirectoryTable is the shared table holding one row per tenant.
const DirectoryTable = "public.tenants"

var directoryColumns = []string{
	"tenant_id", "slug", "schema_name", "name", "is_active", "config", "created_at", "updated_at",
}

// Directory is the durable tenant directory. It is the single source of truth;
// caches only shadow it. All reads run on unscoped sessions.
type Directory struct {
	factory *Factory
}

// NewDirectory creates a directory reading through the factory.
func NewDirectory(factory *Factory) *Directory {
	return &Directory{factory: factory}
}

// Get implements tenant.Directory.
func (d *Directory) Get(ctx context.Context, id uuid.UUID) (tenant.DirectoryEntry, error) {
	return d.getOne(ctx, sq.Eq{"tenant_id": id})
}

// GetBySlug looks an entry up by slug.
func (d *Directory) GetBySlug(ctx context.Context, slug string) (tenant.DirectoryEntry, error) {
	return d.getOne(ctx, sq.Eq{"slug": slug})
}

// List returns every entry ordered by creation time.
func (d *Directory) List(ctx context.Context) ([]tenant.DirectoryEntry, error) {
	return d.list(ctx, nil)
}

// ListActive returns active entries ordered by creation time.
func (d *Directory) ListActive(ctx context.Context) ([]tenant.DirectoryEntry, error) {
	return d.list(ctx, sq.Eq{"is_active": true})
}

// SetActive flips the active flag. Cached identities expire on their own TTL.
func (d *Directory) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return d.factory.DoUnscoped(ctx, func(s *Session) error {
		tag, err := s.ExecBuilder(ctx, s.Builder().
			Update(DirectoryTable).
			Set("is_active", active).
			Set("updated_at", sq.Expr("now()")).
			Where(sq.Eq{"tenant_id": id}))
		if err != nil {
			return fmt.Errorf("tenantdb: update directory entry: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return errors.Join(tenant.ErrUnknownTenant, ErrDirectoryEntryNotFound)
		}
		return nil
	})
}

// Insert writes a new entry through q, typically the provisioning transaction.
func (d *Directory) Insert(ctx context.Context, q Querier, e tenant.DirectoryEntry) error {
	cfg := e.Config
	if cfg == nil {
		cfg = map[string]any{}
	}
	sql, args, err := statementBuilder.
		Insert(DirectoryTable).
		Columns("tenant_id", "slug", "schema_name", "name", "is_active", "config").
		Values(e.ID, e.Slug, e.SchemaName, e.Name, e.Active, cfg).
		ToSql()
	if err != nil {
		return fmt.Errorf("tenantdb: build directory insert: %w", err)
	}
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("tenantdb: insert directory entry: %w", err)
	}
	return nil
}

// SlugExists reports whether a slug or its schema is already registered.
func (d *Directory) SlugExists(ctx context.Context, q Querier, slug string) (bool, error) {
	sql, args, err := statementBuilder.
		Select("1").
		From(DirectoryTable).
		Where(sq.Or{sq.Eq{"slug": slug}, sq.Eq{"schema_name": tenant.SchemaName(slug)}}).
		Prefix("SELECT EXISTS (").
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("tenantdb: build slug check: %w", err)
	}
	var exists bool
	if err := q.QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("tenantdb: check slug: %w", err)
	}
	return exists, nil
}

func (d *Directory) getOne(ctx context.Context, where sq.Sqlizer) (tenant.DirectoryEntry, error) {
	var entry tenant.DirectoryEntry
	err := d.factory.DoUnscoped(ctx, func(s *Session) error {
		row := s.QueryRowBuilder(ctx, s.Builder().
			Select(directoryColumns...).
			From(DirectoryTable).
			Where(where).
			Limit(1))
		e, err := scanEntry(row)
		if err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		if pg.IsNotFoundError(err) {
			return tenant.DirectoryEntry{}, errors.Join(tenant.ErrUnknownTenant, ErrDirectoryEntryNotFound)
		}
		return tenant.DirectoryEntry{}, fmt.Errorf("tenantdb: get directory entry: %w", err)
	}
	return entry, nil
}

func (d *Directory) list(ctx context.Context, where sq.Sqlizer) ([]tenant.DirectoryEntry, error) {
	var entries []tenant.DirectoryEntry
	err := d.factory.DoUnscoped(ctx, func(s *Session) error {
		q := s.Builder().
			Select(directoryColumns...).
			From(DirectoryTable).
			OrderBy("created_at", "slug")
		if where != nil {
			q = q.Where(where)
		}

		rows, err := s.QueryBuilder(ctx, q)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			e, err := scanEntry(rows)
			if err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("tenantdb: list directory: %w", err)
	}
	return entries, nil
}

func scanEntry(row pgx.Row) (tenant.DirectoryEntry, error) {
	var e tenant.DirectoryEntry
	err := row.Scan(
		&e.ID,
		&e.Slug,
		&e.SchemaName,
		&e.Name,
		&e.Active,
		&e.Config,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	return e, err
}
