// Package migrations embeds the document store schema.
package migrations

import "embed"

// FS holds the numbered up/down SQL files consumed by golang-migrate.
//
//go:embed *.sql
var FS embed.FS
