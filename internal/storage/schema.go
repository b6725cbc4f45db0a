// TableSpec types live here so that backend packages and the pipeline can
// share them without circular imports.
package storage

import (
	"fmt"
	"strings"
)

// Logical column types. Backends map them to vendor types so one schema
// definition drives DDL for every backend.
const (
	TypeID      = "id" // auto-incrementing integer surrogate key
	TypeInt     = "int"
	TypeDecimal = "decimal(10,2)"
	TypeDate    = "date"
	// varchar(n) is expressed literally, e.g. "varchar(100)".
)

type TableSpec struct {
	Name       string
	PrimaryKey string // surrogate key column, always TypeID
	Columns    []ColumnSpec
	// Unique lists single-column unique constraints. Constraint names are
	// rendered as uq_<table>_<column> on every backend.
	Unique []string
}

type ColumnSpec struct {
	Name     string
	Type     string
	Nullable bool
	// References is "table(column)" for an inline foreign key.
	References string
	// Default is a literal DDL default expression, e.g. "0" or "'Pending'".
	Default string
}

// UniqueConstraintName renders the deterministic constraint name shared by
// all backends. Duplicate-key errors are mapped back to a column by parsing
// this name, so the format is part of the storage contract.
func UniqueConstraintName(table, column string) string {
	return fmt.Sprintf("uq_%s_%s", table, column)
}

// ColumnFromConstraintName recovers the column from a constraint name
// produced by UniqueConstraintName for the given table. ok is false for
// foreign constraint names.
func ColumnFromConstraintName(name, table string) (column string, ok bool) {
	prefix := "uq_" + table + "_"
	if !strings.HasPrefix(name, prefix) || len(name) == len(prefix) {
		return "", false
	}
	return name[len(prefix):], true
}
