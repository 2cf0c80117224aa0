package db

import "embed"

// MigrationFS embeds the schema for sessions, events, bookmarks and audit logs.
// Applied by the migrate runner (cmd/migrate).
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
