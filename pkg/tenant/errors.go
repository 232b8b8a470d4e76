package tenant

import "errors"

var (
	// ErrNoTenantBound is returned when a tenant-scoped operation runs without an ambient identity.
	// It signals a programming defect, not a client error.
	ErrNoTenantBound = errors.New("tenant: no tenant bound to context")

	// ErrTenantAlreadyBound is returned when binding twice on the same request context.
	ErrTenantAlreadyBound = errors.New("tenant: tenant already bound to context")

	// ErrMissingTenant is returned when no resolution method produced a tenant.
	ErrMissingTenant = errors.New("tenant: missing tenant")

	// ErrUnknownTenant is returned when a valid credential names a tenant the directory does not know.
	ErrUnknownTenant = errors.New("tenant: unknown tenant")

	// ErrInactiveTenant is returned when the resolved tenant is deactivated.
	ErrInactiveTenant = errors.New("tenant: tenant is inactive")

	// ErrInvalidSlug is returned when a slug does not match the provisioning format.
	ErrInvalidSlug = errors.New("tenant: invalid slug")

	// ErrInvalidIdentity is returned when an identity cannot be constructed.
	ErrInvalidIdentity = errors.New("tenant: invalid identity")
)

// IsResolutionError reports whether err is one of the client-facing resolution failures.
// Callers must report all of them identically so tenants cannot be enumerated.
func IsResolutionError(err error) bool {
	return errors.Is(err, ErrMissingTenant) ||
		errors.Is(err, ErrUnknownTenant) ||
		errors.Is(err, ErrInactiveTenant)
}
