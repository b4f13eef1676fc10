// Package remote mirrors haven's collections into an optional remote SQL
// database (Turso/libSQL, or a plain SQLite file for self-hosting).
//
// The adapter is deliberately thin: read a whole table, upsert one row by its
// natural conflict key, delete one row by id. Translating rows to and from
// haven's local types is the reconcile package's job.
package remote

import (
	"context"
	"errors"
)

var (
	// ErrConnectivity means the remote could not be reached or a request failed.
	ErrConnectivity = errors.New("remote unreachable")

	// ErrConstraint means the remote rejected a write.
	ErrConstraint = errors.New("remote rejected write")

	// ErrNotConfigured is returned when a remote operation is requested but
	// no endpoint has been configured.
	ErrNotConfigured = errors.New("remote not configured")

	// ErrInvalidConfig is returned for malformed endpoint/credential pairs.
	ErrInvalidConfig = errors.New("invalid remote configuration")
)

// Table names a remote collection.
type Table string

const (
	TableRecipes     Table = "recipes"
	TableMealPlans   Table = "meal_plans"
	TableWaterIntake Table = "water_intake"
)

// Tables lists every mirrored table.
var Tables = []Table{TableRecipes, TableMealPlans, TableWaterIntake}

// ColumnKind is the SQL storage class of a column.
type ColumnKind int

const (
	Text ColumnKind = iota
	Integer
)

// Column describes one column of a remote table.
type Column struct {
	Name string
	Kind ColumnKind
}

var tableColumns = map[Table][]Column{
	TableRecipes: {
		{"id", Text}, {"owner", Text}, {"name", Text}, {"type", Text},
		{"difficulty", Text}, {"ingredients", Text}, {"prep_tasks", Text}, {"macros", Text},
	},
	TableMealPlans: {
		{"owner", Text}, {"planned_date", Text}, {"slot", Text}, {"meals", Text},
	},
	TableWaterIntake: {
		{"owner", Text}, {"planned_date", Text}, {"profile", Text}, {"amount", Integer},
	},
}

var conflictKeys = map[Table][]string{
	TableRecipes:     {"id"},
	TableMealPlans:   {"owner", "planned_date", "slot"},
	TableWaterIntake: {"owner", "planned_date", "profile"},
}

// Columns returns the column layout of t, or nil for an unknown table.
func Columns(t Table) []Column {
	return tableColumns[t]
}

// ConflictKeys returns the natural uniqueness key of t.
func ConflictKeys(t Table) []string {
	return append([]string(nil), conflictKeys[t]...)
}

// Row is one remote record keyed by column name. Text columns hold string
// values and Integer columns hold int64.
type Row map[string]any

// String returns the text value of col, or "" when absent.
func (r Row) String(col string) string {
	s, _ := r[col].(string)
	return s
}

// Int returns the integer value of col, or 0 when absent.
func (r Row) Int(col string) int64 {
	switch v := r[col].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

// Adapter is the remote store contract.
type Adapter interface {
	// FetchAll returns every row of t owned by the configured owner.
	FetchAll(ctx context.Context, t Table) ([]Row, error)

	// Upsert inserts row or, when a row with the same conflictKeys values
	// exists, replaces its other columns.
	Upsert(ctx context.Context, t Table, row Row, conflictKeys []string) error

	// Delete removes the row with the given id. Only tables with an id
	// column support it.
	Delete(ctx context.Context, t Table, id string) error

	Close() error
}
