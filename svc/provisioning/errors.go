package provisioning

import (
	"errors"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

var (
	// ErrInvalidSlug is returned when the slug does not match the provisioning format.
	ErrInvalidSlug = tenant.ErrInvalidSlug

	// ErrSlugTaken is returned when the slug or its schema already exists.
	ErrSlugTaken = errors.New("provisioning: slug already taken")

	// ErrTenantNotFound is returned for operations on an unknown tenant id.
	ErrTenantNotFound = errors.New("provisioning: tenant not found")

	// ErrProvisionFailed wraps unexpected failures while creating a tenant.
	ErrProvisionFailed = errors.New("provisioning: failed to provision tenant")
)
