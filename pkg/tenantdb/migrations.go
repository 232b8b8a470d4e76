package tenantdb

import "embed"

// Migrations holds the goose migrations of the shared directory schema.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations to pass to goose.
const MigrationsDir = "migrations"
