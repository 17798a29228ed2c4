// Package migrations embeds the LightLink history schema.
//
// The files are compiled into every binary that records history, so the
// schema can be applied without the SQL files on disk:
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
package migrations

import "embed"

// FS holds the migration files at its root.
//
//go:embed *.sql
var FS embed.FS
