package tenant_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/metrics"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

var errBadToken = errors.New("bad token")

// tokenTable verifies tokens by exact match against a fixed table.
func tokenTable(tokens map[string]tenant.Claims) tenant.TokenVerifier {
	return tenant.TokenVerifierFunc(func(token string) (tenant.Claims, error) {
		c, ok := tokens[token]
		if !ok {
			return tenant.Claims{}, errBadToken
		}
		return c, nil
	})
}

type apiKeyTable struct {
	keys map[string]uuid.UUID
	err  error
}

func (a apiKeyTable) FindTenant(_ context.Context, key string) (uuid.UUID, bool, error) {
	if a.err != nil {
		return uuid.Nil, false, a.err
	}
	id, ok := a.keys[key]
	return id, ok, nil
}

func newRequest(headers map[string]string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func TestResolver_Resolve(t *testing.T) {
	t.Parallel()

	dir := newMockDirectory()
	acme := dir.add(t, "acme", true)
	globex := dir.add(t, "globex", true)
	initech := dir.add(t, "initech", false)

	resolver := tenant.NewResolver(dir,
		tenant.WithTokenVerifier(tokenTable(map[string]tenant.Claims{
			"acme-token":     {TenantID: acme.ID, TenantSlug: "acme"},
			"initech-token":  {TenantID: initech.ID},
			"ghost-token":    {TenantID: uuid.New()},
			"mismatch-token": {TenantID: acme.ID, TenantSlug: "globex"},
		})),
		tenant.WithAPIKeyFinder(apiKeyTable{keys: map[string]uuid.UUID{"sk_globex": globex.ID}}),
	)

	tests := []struct {
		name    string
		headers map[string]string
		want    tenant.Identity
		wantErr error
	}{
		{
			name:    "valid token resolves",
			headers: map[string]string{"Authorization": "Bearer acme-token"},
			want:    acme,
		},
		{
			name: "token wins over conflicting header",
			headers: map[string]string{
				"Authorization": "Bearer acme-token",
				"X-Tenant-Id":   globex.ID.String(),
			},
			want: acme,
		},
		{
			name: "invalid token falls through to header",
			headers: map[string]string{
				"Authorization": "Bearer forged",
				"X-Tenant-Id":   globex.ID.String(),
			},
			want: globex,
		},
		{
			name:    "api key resolves",
			headers: map[string]string{"X-API-Key": "sk_globex"},
			want:    globex,
		},
		{
			name: "api key wins over header",
			headers: map[string]string{
				"X-API-Key":   "sk_globex",
				"X-Tenant-Id": acme.ID.String(),
			},
			want: globex,
		},
		{
			name:    "unknown api key without header is missing",
			headers: map[string]string{"X-API-Key": "sk_nobody"},
			wantErr: tenant.ErrMissingTenant,
		},
		{
			name:    "header resolves",
			headers: map[string]string{"X-Tenant-Id": acme.ID.String()},
			want:    acme,
		},
		{
			name:    "malformed header is missing",
			headers: map[string]string{"X-Tenant-Id": "acme"},
			wantErr: tenant.ErrMissingTenant,
		},
		{
			name:    "no credentials is missing",
			wantErr: tenant.ErrMissingTenant,
		},
		{
			name:    "non bearer authorization is ignored",
			headers: map[string]string{"Authorization": "Basic Zm9vOmJhcg=="},
			wantErr: tenant.ErrMissingTenant,
		},
		{
			name:    "unknown tenant from header",
			headers: map[string]string{"X-Tenant-Id": uuid.NewString()},
			wantErr: tenant.ErrUnknownTenant,
		},
		{
			name:    "unknown tenant from token",
			headers: map[string]string{"Authorization": "Bearer ghost-token"},
			wantErr: tenant.ErrUnknownTenant,
		},
		{
			name:    "slug claim must match directory",
			headers: map[string]string{"Authorization": "Bearer mismatch-token"},
			wantErr: tenant.ErrUnknownTenant,
		},
		{
			name:    "inactive tenant from token",
			headers: map[string]string{"Authorization": "Bearer initech-token"},
			wantErr: tenant.ErrInactiveTenant,
		},
		{
			name:    "inactive tenant from header",
			headers: map[string]string{"X-Tenant-Id": initech.ID.String()},
			wantErr: tenant.ErrInactiveTenant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := resolver.Resolve(newRequest(tt.headers))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, got.IsZero())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_Options(t *testing.T) {
	t.Parallel()

	t.Run("custom headers", func(t *testing.T) {
		t.Parallel()

		dir := newMockDirectory()
		acme := dir.add(t, "acme", true)
		resolver := tenant.NewResolver(dir,
			tenant.WithTenantHeader("X-Org"),
			tenant.WithAPIKeyHeader("X-Key"),
			tenant.WithAPIKeyFinder(apiKeyTable{keys: map[string]uuid.UUID{"k": acme.ID}}),
		)

		got, err := resolver.Resolve(newRequest(map[string]string{"X-Org": acme.ID.String()}))
		require.NoError(t, err)
		assert.Equal(t, acme, got)

		got, err = resolver.Resolve(newRequest(map[string]string{"X-Key": "k"}))
		require.NoError(t, err)
		assert.Equal(t, acme, got)

		_, err = resolver.Resolve(newRequest(map[string]string{"X-Tenant-Id": acme.ID.String()}))
		assert.ErrorIs(t, err, tenant.ErrMissingTenant)
	})

	t.Run("bearer token ignored without verifier", func(t *testing.T) {
		t.Parallel()

		dir := newMockDirectory()
		resolver := tenant.NewResolver(dir)

		_, err := resolver.Resolve(newRequest(map[string]string{"Authorization": "Bearer anything"}))
		assert.ErrorIs(t, err, tenant.ErrMissingTenant)
	})
}

func TestResolver_BackendErrors(t *testing.T) {
	t.Parallel()

	t.Run("api key backend failure is not a resolution error", func(t *testing.T) {
		t.Parallel()

		resolver := tenant.NewResolver(newMockDirectory(),
			tenant.WithAPIKeyFinder(apiKeyTable{err: assert.AnError}),
		)
		_, err := resolver.Resolve(newRequest(map[string]string{"X-API-Key": "sk"}))
		require.Error(t, err)
		assert.ErrorIs(t, err, assert.AnError)
		assert.False(t, tenant.IsResolutionError(err))
	})

	t.Run("directory failure is not a resolution error", func(t *testing.T) {
		t.Parallel()

		dir := newMockDirectory()
		dir.err = assert.AnError
		resolver := tenant.NewResolver(dir)

		_, err := resolver.Resolve(newRequest(map[string]string{"X-Tenant-Id": uuid.NewString()}))
		require.Error(t, err)
		assert.ErrorIs(t, err, assert.AnError)
		assert.False(t, tenant.IsResolutionError(err))
	})
}

func TestResolver_Caching(t *testing.T) {
	t.Parallel()

	t.Run("second lookup is served from cache", func(t *testing.T) {
		t.Parallel()

		dir := newMockDirectory()
		acme := dir.add(t, "acme", true)
		cache := tenant.NewMemoryCache()
		t.Cleanup(func() { _ = cache.Close() })

		resolver := tenant.NewResolver(dir, tenant.WithDirectoryCache(cache, time.Minute))
		req := map[string]string{"X-Tenant-Id": acme.ID.String()}

		for range 3 {
			got, err := resolver.Resolve(newRequest(req))
			require.NoError(t, err)
			assert.Equal(t, acme, got)
		}
		assert.Equal(t, 1, dir.callCount())
	})

	t.Run("deactivation is visible once the entry expires", func(t *testing.T) {
		t.Parallel()

		dir := newMockDirectory()
		acme := dir.add(t, "acme", true)
		cache := tenant.NewMemoryCache()
		t.Cleanup(func() { _ = cache.Close() })

		resolver := tenant.NewResolver(dir, tenant.WithDirectoryCache(cache, time.Minute))
		req := map[string]string{"X-Tenant-Id": acme.ID.String()}

		_, err := resolver.Resolve(newRequest(req))
		require.NoError(t, err)

		dir.setActive(acme.ID, false)
		_, err = resolver.Resolve(newRequest(req))
		require.NoError(t, err, "cached entry stays valid until its TTL")

		cache.Delete(context.Background(), acme.ID)
		_, err = resolver.Resolve(newRequest(req))
		assert.ErrorIs(t, err, tenant.ErrInactiveTenant)
	})

	t.Run("inactive tenants are never cached", func(t *testing.T) {
		t.Parallel()

		dir := newMockDirectory()
		initech := dir.add(t, "initech", false)
		cache := tenant.NewMemoryCache()
		t.Cleanup(func() { _ = cache.Close() })

		resolver := tenant.NewResolver(dir, tenant.WithDirectoryCache(cache, time.Minute))
		_, err := resolver.Resolve(newRequest(map[string]string{"X-Tenant-Id": initech.ID.String()}))
		assert.ErrorIs(t, err, tenant.ErrInactiveTenant)
		assert.Equal(t, 0, cache.Len())
	})
}

func TestResolver_Metrics(t *testing.T) {
	t.Parallel()

	dir := newMockDirectory()
	acme := dir.add(t, "acme", true)
	m := metrics.NewTenancy(prometheus.NewRegistry())
	resolver := tenant.NewResolver(dir, tenant.WithResolverMetrics(m))

	_, err := resolver.Resolve(newRequest(map[string]string{"X-Tenant-Id": acme.ID.String()}))
	require.NoError(t, err)
	_, err = resolver.Resolve(newRequest(nil))
	require.Error(t, err)

	assert.InDelta(t, 1, testutil.ToFloat64(m.Resolutions.WithLabelValues(tenant.MethodHeader, "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Resolutions.WithLabelValues("none", "missing")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.DirectoryLookups.WithLabelValues("directory")), 0)
}
