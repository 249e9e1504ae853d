package migrations

import "embed"

// FS holds the SQL migrations applied by `nurse-booking migrate`.
//
//go:embed *.sql
var FS embed.FS
