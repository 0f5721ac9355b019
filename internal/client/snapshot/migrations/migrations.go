// Package migrations embeds the client snapshot schema.
package migrations

import "embed"

// FS holds the goose SQL migrations for the local snapshot database.
//
//go:embed *.sql
var FS embed.FS
