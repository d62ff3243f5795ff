// Package migrations embeds the SQL migrations of the wallet schema.
package migrations

import "embed"

// FS holds the NNNNNN_name.up.sql and NNNNNN_name.down.sql files.
//
//go:embed *.sql
var FS embed.FS
