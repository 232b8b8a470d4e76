package tenant

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// contextKey is a private type to prevent collisions with other context keys.
type contextKey struct{}

// Binding is the single per-request slot holding the ambient identity.
// It is created by Bind and must be released exactly once; Release is idempotent.
type Binding struct {
	mu       sync.RWMutex
	identity Identity
	released bool
}

// Release clears the slot. Any later Current call on a context carrying
// this binding fails with ErrNoTenantBound.
func (b *Binding) Release() {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.released = true
	b.identity = Identity{}
	b.mu.Unlock()
}

func (b *Binding) load() (Identity, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.released {
		return Identity{}, false
	}
	return b.identity, true
}

// Bind attaches the identity to the returned context. Nesting is not allowed:
// binding on a context that already carries a live binding fails.
func Bind(ctx context.Context, id Identity) (context.Context, *Binding, error) {
	if id.IsZero() {
		return ctx, nil, ErrInvalidIdentity
	}
	if b, ok := ctx.Value(contextKey{}).(*Binding); ok {
		if _, live := b.load(); live {
			return ctx, nil, ErrTenantAlreadyBound
		}
	}
	b := &Binding{identity: id}
	return context.WithValue(ctx, contextKey{}, b), b, nil
}

// Current returns the ambient identity. It never falls back to a default.
func Current(ctx context.Context) (Identity, error) {
	if ctx == nil {
		return Identity{}, ErrNoTenantBound
	}
	b, ok := ctx.Value(contextKey{}).(*Binding)
	if !ok || b == nil {
		return Identity{}, ErrNoTenantBound
	}
	id, live := b.load()
	if !live {
		return Identity{}, ErrNoTenantBound
	}
	return id, nil
}

// Scope binds the identity for the duration of fn and releases it on every exit path.
func Scope(ctx context.Context, id Identity, fn func(ctx context.Context) error) error {
	ctx, b, err := Bind(ctx, id)
	if err != nil {
		return err
	}
	defer b.Release()
	return fn(ctx)
}

// FromContext retrieves the ambient identity.
// Returns false if no tenant is bound.
func FromContext(ctx context.Context) (Identity, bool) {
	id, err := Current(ctx)
	return id, err == nil
}

// IDFromContext retrieves just the tenant ID from the context.
func IDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := FromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return id.ID, true
}

// MustCurrent retrieves the ambient identity and panics if none is bound.
// Use this only where a missing tenant is a programming error.
func MustCurrent(ctx context.Context) Identity {
	id, err := Current(ctx)
	if err != nil {
		panic(err)
	}
	return id
}

// LoggerExtractor returns a logger ContextExtractor that adds the tenant ID to log records.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id, ok := IDFromContext(ctx); ok {
			return slog.String("tenant_id", id.String()), true
		}
		return slog.Attr{}, false
	}
}
