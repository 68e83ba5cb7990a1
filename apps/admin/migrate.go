package main

import (
	"context"

	"github.com/dkamau/elimu/storage/database"
)

var ensureSchemaFunc = database.EnsureSchema // mockable

// migrate applies the schema; the statements are idempotent so running
// it against an up-to-date database is a no-op.
func (cli *commandLine) migrate() error {
	return ensureSchemaFunc(context.Background(), cli.db)
}
