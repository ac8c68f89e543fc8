// AngelaMos | 2026
// embed.go

package migrations

import "embed"

// Files holds the schema, applied in lexical order.
//
//go:embed *.sql
var Files embed.FS
