// Package migrations embeds the SQL schema files so the migrate command and
// integration tests apply exactly what ships with the binary.
package migrations

import "embed"

// FS holds every *.sql migration, applied in lexical order.
//
//go:embed *.sql
var FS embed.FS
