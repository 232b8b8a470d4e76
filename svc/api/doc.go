// Package api is the HTTP surface of tenantd: health and metrics endpoints,
// token-guarded tenant administration under /admin and tenant-scoped
// endpoints under /api. Responses use a {"data": ..., "error": ...} envelope.
package api
