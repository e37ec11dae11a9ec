// Package migrations embeds the goose SQL migrations for the portmail schema.
package migrations

import "embed"

// FS holds every *.sql migration, applied in filename order by db.Migrate.
//
//go:embed *.sql
var FS embed.FS
