package tenantdb

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/dmitrymomot/tenantkit/pkg/pg"
)

// Setting is one key of a tenant's settings table.
type Setting struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// SettingsStore reads and writes the ambient tenant's settings.
type SettingsStore struct {
	factory *Factory
}

func NewSettingsStore(factory *Factory) *SettingsStore {
	return &SettingsStore{factory: factory}
}

// Get returns the value for key, or ErrSettingNotFound.
func (s *SettingsStore) Get(ctx context.Context, key string) (json.RawMessage, error) {
	var value json.RawMessage
	err := s.factory.Do(ctx, func(sess *Session) error {
		return sess.QueryRowBuilder(ctx, sess.Builder().
			Select("value").
			From("tenant.settings").
			Where(sq.Eq{"key": key})).
			Scan(&value)
	})
	if pg.IsNotFoundError(err) {
		return nil, ErrSettingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tenantdb: get setting: %w", err)
	}
	return value, nil
}

// Put upserts the value for key.
func (s *SettingsStore) Put(ctx context.Context, key string, value json.RawMessage) error {
	if !json.Valid(value) {
		return ErrInvalidSettingValue
	}
	err := s.factory.Do(ctx, func(sess *Session) error {
		_, err := sess.ExecBuilder(ctx, sess.Builder().
			Insert("tenant.settings").
			Columns("tenant_id", "key", "value").
			Values(sess.Identity().ID, key, string(value)).
			Suffix("ON CONFLICT (tenant_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()"))
		return err
	})
	if err != nil {
		return fmt.Errorf("tenantdb: put setting: %w", err)
	}
	return nil
}

// List returns every setting of the ambient tenant ordered by key.
func (s *SettingsStore) List(ctx context.Context) ([]Setting, error) {
	var out []Setting
	err := s.factory.Do(ctx, func(sess *Session) error {
		rows, err := sess.QueryBuilder(ctx, sess.Builder().
			Select("key", "value").
			From("tenant.settings").
			OrderBy("key"))
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var st Setting
			if err := rows.Scan(&st.Key, &st.Value); err != nil {
				return err
			}
			out = append(out, st)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("tenantdb: list settings: %w", err)
	}
	return out, nil
}
