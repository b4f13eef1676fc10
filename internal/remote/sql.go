package remote

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	_ "github.com/tursodatabase/go-libsql"
)

// DefaultTimeout bounds every remote call.
const DefaultTimeout = 30 * time.Second

// SQLAdapter implements Adapter over database/sql. The connection is opened
// lazily on first use, so constructing one never touches the network.
type SQLAdapter struct {
	cfg     Config
	owner   string
	timeout time.Duration
	logger  *log.Logger

	mu   sync.Mutex
	conn *sql.DB
}

var _ Adapter = (*SQLAdapter)(nil)

// New validates cfg and returns an adapter for it. A nil logger logs to stderr.
func New(cfg Config, logger *log.Logger) (*SQLAdapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[remote] ", log.LstdFlags)
	}
	return &SQLAdapter{
		cfg:     cfg,
		owner:   cfg.OwnerOrPublic(),
		timeout: DefaultTimeout,
		logger:  logger,
	}, nil
}

// Owner returns the identity rows are scoped to.
func (a *SQLAdapter) Owner() string { return a.owner }

// connect opens the database and ensures the tables exist.
func (a *SQLAdapter) connect(ctx context.Context) (*sql.DB, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn != nil {
		return a.conn, nil
	}

	driver, dsn, err := a.cfg.DSN()
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrConnectivity, a.cfg.Redacted(), err)
	}
	if driver == "sqlite3" {
		// A single writer avoids SQLITE_BUSY between mirrors and fetches.
		conn.SetMaxOpenConns(1)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", ErrConnectivity, a.cfg.Redacted(), err)
	}
	if err := EnsureSchema(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnectivity, err)
	}

	a.logger.Printf("Connected to %s (owner %s)", a.cfg.Redacted(), a.owner)
	a.conn = conn
	return conn, nil
}

// EnsureSchema creates the mirrored tables if they don't exist. Idempotent.
func EnsureSchema(ctx context.Context, conn *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS recipes (
			id TEXT PRIMARY KEY,
			owner TEXT NOT NULL,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			ingredients TEXT NOT NULL DEFAULT '[]',
			prep_tasks TEXT NOT NULL DEFAULT '[]',
			macros TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE TABLE IF NOT EXISTS meal_plans (
			owner TEXT NOT NULL,
			planned_date TEXT NOT NULL,
			slot TEXT NOT NULL,
			meals TEXT NOT NULL DEFAULT '[]',
			UNIQUE (owner, planned_date, slot)
		)`,
		`CREATE TABLE IF NOT EXISTS water_intake (
			owner TEXT NOT NULL,
			planned_date TEXT NOT NULL,
			profile TEXT NOT NULL,
			amount INTEGER NOT NULL DEFAULT 0 CHECK (amount >= 0),
			UNIQUE (owner, planned_date, profile)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_recipes_owner ON recipes(owner)`,
	}
	for _, stmt := range stmts {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize remote schema: %w", err)
		}
	}
	return nil
}

// FetchAll returns every row of t belonging to the adapter's owner.
func (a *SQLAdapter) FetchAll(ctx context.Context, t Table) ([]Row, error) {
	cols := Columns(t)
	if cols == nil {
		return nil, fmt.Errorf("unknown table %q", t)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	conn, err := a.connect(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE owner = ?`, strings.Join(names, ", "), t)

	rows, err := conn.QueryContext(ctx, query, a.owner)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", ErrConnectivity, t, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		row, err := scanRow(rows, cols)
		if err != nil {
			return nil, fmt.Errorf("%w: fetch %s: %v", ErrConnectivity, t, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", ErrConnectivity, t, err)
	}
	return out, nil
}

func scanRow(rows *sql.Rows, cols []Column) (Row, error) {
	dest := make([]any, len(cols))
	for i, c := range cols {
		if c.Kind == Integer {
			dest[i] = new(sql.NullInt64)
		} else {
			dest[i] = new(sql.NullString)
		}
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}

	row := make(Row, len(cols))
	for i, c := range cols {
		switch v := dest[i].(type) {
		case *sql.NullInt64:
			if v.Valid {
				row[c.Name] = v.Int64
			}
		case *sql.NullString:
			if v.Valid {
				row[c.Name] = v.String
			}
		}
	}
	return row, nil
}

// Upsert writes row, replacing the non-key columns of any existing row with
// the same conflictKeys values. The owner column is filled in when missing.
func (a *SQLAdapter) Upsert(ctx context.Context, t Table, row Row, keys []string) error {
	cols := Columns(t)
	if cols == nil {
		return fmt.Errorf("unknown table %q", t)
	}
	if len(keys) == 0 {
		keys = ConflictKeys(t)
	}

	known := make(map[string]bool, len(cols))
	for _, c := range cols {
		known[c.Name] = true
	}
	for _, k := range keys {
		if !known[k] {
			return fmt.Errorf("%w: %s has no column %q", ErrConstraint, t, k)
		}
	}

	values := make(Row, len(row)+1)
	for k, v := range row {
		if !known[k] {
			return fmt.Errorf("%w: %s has no column %q", ErrConstraint, t, k)
		}
		values[k] = v
	}
	if _, ok := values["owner"]; !ok {
		values["owner"] = a.owner
	}

	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}

	var names, placeholders, updates []string
	var args []any
	for _, c := range cols {
		v, ok := values[c.Name]
		if !ok {
			continue
		}
		names = append(names, c.Name)
		placeholders = append(placeholders, "?")
		args = append(args, v)
		if !isKey[c.Name] {
			updates = append(updates, fmt.Sprintf("%s = excluded.%s", c.Name, c.Name))
		}
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(%s) DO `,
		t, strings.Join(names, ", "), strings.Join(placeholders, ", "), strings.Join(keys, ", "))
	if len(updates) == 0 {
		query += "NOTHING"
	} else {
		query += "UPDATE SET " + strings.Join(updates, ", ")
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	conn, err := a.connect(ctx)
	if err != nil {
		return err
	}
	if _, err := conn.ExecContext(ctx, query, args...); err != nil {
		return classify("upsert", t, err)
	}
	return nil
}

// Delete removes the owner's row with the given id.
func (a *SQLAdapter) Delete(ctx context.Context, t Table, id string) error {
	if t != TableRecipes {
		return fmt.Errorf("delete by id is not supported for %s", t)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	conn, err := a.connect(ctx)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ? AND owner = ?`, t)
	if _, err := conn.ExecContext(ctx, query, id, a.owner); err != nil {
		return classify("delete", t, err)
	}
	return nil
}

// Close releases the connection, if one was opened.
func (a *SQLAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn == nil {
		return nil
	}
	err := a.conn.Close()
	a.conn = nil
	return err
}

// isConstraintErr reports whether err is a unique/check constraint violation
// rather than a transport failure.
func isConstraintErr(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unique") || strings.Contains(s, "constraint failed")
}

func classify(op string, t Table, err error) error {
	if isConstraintErr(err) {
		return fmt.Errorf("%w: %s %s: %v", ErrConstraint, op, t, err)
	}
	return fmt.Errorf("%w: %s %s: %v", ErrConnectivity, op, t, err)
}
