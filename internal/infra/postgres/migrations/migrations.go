// Package migrations registers the Postgres schema with bun's migrator.
// Each migration lives in its own <version>_<comment>.go file.
package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()
