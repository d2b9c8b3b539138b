// Package migrations embeds the goose SQL migrations for the users and
// messages tables.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
