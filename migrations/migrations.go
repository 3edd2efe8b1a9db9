// Package migrations embeds the schema so the migrate command ships it in the
// binary.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
