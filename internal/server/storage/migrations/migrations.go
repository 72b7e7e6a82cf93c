// Package migrations embeds the schema migrations for every storage driver.
package migrations

import "embed"

// FS holds one directory of migrations per driver
//
//go:embed sqlite/*.sql mysql/*.sql postgres/*.sql
var FS embed.FS
