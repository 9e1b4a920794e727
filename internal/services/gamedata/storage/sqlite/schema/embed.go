// Package schema embeds the SQLite lifecycle scripts for gamedata storage.
package schema

import _ "embed"

// Install creates the full current schema.
//
//go:embed schema.sql
var Install string

// Migrate copies identity and preference data forward from the legacy
// schema. Legacy game statistics are intentionally left behind: the old
// tables remain queryable, but their aggregates were computed inaccurately
// and must not seed the new statistics tables.
//
//go:embed migrate.sql
var Migrate string
