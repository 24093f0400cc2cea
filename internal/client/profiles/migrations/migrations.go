// Package migrations embeds the profiles table schema. The same DDL runs on
// Postgres and SQLite.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
