// Package migrations carries the SQL schema, embedded so the binary needs
// no migration files on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
