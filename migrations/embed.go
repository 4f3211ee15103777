// Package migrations embeds the SQL schema of the exchange journal.
package migrations

import "embed"

// FS holds the *.sql migrations at its root, ready for database.Migrate.
//
//go:embed *.sql
var FS embed.FS
