// Package apikey generates tenant API keys and derives the digests stored in
// each tenant's api_keys table. Keys are never persisted in plain text.
package apikey
