package tenant

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SchemaPrefix is prepended to the slug to build the physical schema name.
const SchemaPrefix = "tenant_"

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,48}[a-z0-9]$`)

// Identity is the immutable triple every tenant-scoped operation runs under.
// It is passed by value; two identities are the same tenant when their IDs match.
type Identity struct {
	ID         uuid.UUID `json:"tenant_id"`
	Slug       string    `json:"tenant_slug"`
	SchemaName string    `json:"schema_name"`
}

// NewIdentity validates the slug and derives the schema name from it.
func NewIdentity(id uuid.UUID, slug string) (Identity, error) {
	if id == uuid.Nil {
		return Identity{}, fmt.Errorf("%w: empty tenant id", ErrInvalidIdentity)
	}
	if err := ValidateSlug(slug); err != nil {
		return Identity{}, err
	}
	return Identity{ID: id, Slug: slug, SchemaName: SchemaName(slug)}, nil
}

// Equal reports whether both identities refer to the same tenant.
func (i Identity) Equal(other Identity) bool {
	return i.ID == other.ID
}

// IsZero reports whether the identity is unset.
func (i Identity) IsZero() bool {
	return i.ID == uuid.Nil
}

// String implements fmt.Stringer for log output.
func (i Identity) String() string {
	return i.Slug + "(" + i.ID.String() + ")"
}

// ValidateSlug checks the slug against the provisioning format:
// 3-50 characters, lowercase alphanumerics and hyphens, no leading or trailing hyphen.
func ValidateSlug(slug string) error {
	if !slugPattern.MatchString(slug) {
		return fmt.Errorf("%w: %q", ErrInvalidSlug, slug)
	}
	return nil
}

// SchemaName returns the deterministic physical schema for a slug.
// The slug is expected to be valid; hyphens become underscores.
func SchemaName(slug string) string {
	return SchemaPrefix + strings.ReplaceAll(slug, "-", "_")
}

// DirectoryEntry is the durable record of a tenant in the shared directory.
type DirectoryEntry struct {
	Identity
	Name      string         `json:"name"`
	Active    bool           `json:"is_active"`
	Config    map[string]any `json:"config,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Directory is the read side of the durable tenant directory used by the resolver.
type Directory interface {
	// Get returns the entry for the id, or ErrUnknownTenant when there is none.
	Get(ctx context.Context, id uuid.UUID) (DirectoryEntry, error)
}
