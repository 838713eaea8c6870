// Package migrations embeds the schema migrations consumed by
// pkg/database's goose-based Migrator.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
