package migrations

import "embed"

// FS contains the embedded SQLite schema of the proxy storage.
//
//go:embed *.sql
var FS embed.FS
