// Package platform wires tenantkit together for the tenantd and tenantctl
// binaries: configuration, the shared PostgreSQL pool and Redis client, and
// every component built on them.
package platform
