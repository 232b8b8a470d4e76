package provisioning

import (
	"github.com/dmitrymomot/tenantkit/pkg/slug"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

const maxSlugLen = 50

// SuggestSlug derives a provisioning slug from a display name. It returns ""
// when the result would not be a valid tenant slug. Options are passed to
// slug.Make after the length cap, so slug.WithSuffix can be used to dodge
// collisions.
func SuggestSlug(name string, opts ...slug.Option) string {
	s := slug.Make(name, append([]slug.Option{slug.MaxLength(maxSlugLen)}, opts...)...)
	if tenant.ValidateSlug(s) != nil {
		return ""
	}
	return s
}
