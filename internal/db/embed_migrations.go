package db

import "embed"

// MigrationFS embeds the client_storage schema migrations from internal/db/migrations.
// Applied by cmd/migrate before the postgres storage driver is used.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
