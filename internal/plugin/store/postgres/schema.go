package postgres

import _ "embed"

// schemaSQL holds the full idempotent DDL of the social schema.
//
//go:embed db/schema.sql
var schemaSQL string

// ForceImport can be referenced to ensure this package's init() runs.
var ForceImport = 0
