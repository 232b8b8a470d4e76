package tenantdb

import "errors"

var (
	// ErrPoolExhausted is returned when no connection could be checked out of the pool.
	ErrPoolExhausted = errors.New("tenantdb: connection pool exhausted")

	// ErrConnectionSetupFailed is returned when the guard or the scope setup failed.
	// The physical connection has been destroyed.
	ErrConnectionSetupFailed = errors.New("tenantdb: connection setup failed")

	// ErrSessionClosed is returned when a closed session is used.
	ErrSessionClosed = errors.New("tenantdb: session closed")

	// ErrDirectoryEntryNotFound is returned by directory lookups that match no row.
	ErrDirectoryEntryNotFound = errors.New("tenantdb: directory entry not found")

	// ErrAPIKeyNotFound is returned when revoking a key that does not exist or is already revoked.
	ErrAPIKeyNotFound = errors.New("tenantdb: api key not found")

	// ErrSettingNotFound is returned when a tenant has no value for a setting key.
	ErrSettingNotFound = errors.New("tenantdb: setting not found")

	// ErrInvalidSettingValue is returned when a setting value is not valid JSON.
	ErrInvalidSettingValue = errors.New("tenantdb: setting value is not valid json")
)
