// Package migrations embeds the goose SQL migrations applied to the SQLite key-value store.
package migrations

import "embed"

// FS holds every *.sql migration in this directory.
//
//go:embed *.sql
var FS embed.FS
