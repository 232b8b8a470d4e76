package tenantcache

import "github.com/dmitrymomot/tenantkit/pkg/tenant"

// ErrNoTenantBound is returned by every operation invoked without an ambient tenant.
// It is the only error the cache surfaces; backend failures are downgraded.
var ErrNoTenantBound = tenant.ErrNoTenantBound
