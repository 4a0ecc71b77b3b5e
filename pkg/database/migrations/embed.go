package migrations

import "embed"

// FS embeds every goose migration shipped with this binary.
//
//go:embed *.sql
var FS embed.FS

// Dir is the goose migration directory name within FS.
const Dir = "."
