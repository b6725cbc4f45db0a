// Package sqlite implements storage.Repository on the modernc.org pure-Go
// SQLite driver. Useful for local runs and tests that need a real SQL engine
// without a server.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"fleximart/internal/storage"
)

type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	// SQLite serializes writers; more than one connection just causes
	// SQLITE_BUSY under concurrent transactions.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { r.db.Close() }

func (r *Repo) EnsureTables(ctx context.Context, tables []storage.TableSpec) error {
	for _, t := range tables {
		ddl, err := buildCreateSQL(t)
		if err != nil {
			return err
		}
		if _, err := r.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table %s: %w", t.Name, err)
		}
	}
	return nil
}

func (r *Repo) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &liteTx{tx: tx}, nil
}

func (r *Repo) Query(ctx context.Context, q string, args ...any) ([]string, [][]any, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	return scanAll(rows)
}

type liteTx struct {
	tx *sql.Tx
}

func (t *liteTx) InsertReturningID(ctx context.Context, table, idColumn string, columns []string, values []any) (int64, error) {
	res, err := t.tx.ExecContext(ctx, buildInsertSQL(table, columns), values...)
	if err != nil {
		if dup := asDuplicate(err, table); dup != nil {
			return 0, dup
		}
		return 0, err
	}
	return res.LastInsertId()
}

func (t *liteTx) LookupID(ctx context.Context, table, idColumn, matchColumn string, value any) (int64, bool, error) {
	q := fmt.Sprintf(
		`SELECT %s FROM %s WHERE %s = ?`,
		sqlIdent(idColumn), table, sqlIdent(matchColumn),
	)

	var id int64
	err := t.tx.QueryRowContext(ctx, q, value).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (t *liteTx) Commit(context.Context) error   { return t.tx.Commit() }
func (t *liteTx) Rollback(context.Context) error { return t.tx.Rollback() }

func scanAll(rows *sql.Rows) ([]string, [][]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var out [][]any
	for rows.Next() {
		vals := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return columns, out, nil
}

// asDuplicate recognizes SQLite's unique-violation message, which carries the
// table and column as "UNIQUE constraint failed: table.column".
func asDuplicate(err error, table string) *storage.DuplicateKeyError {
	msg := err.Error()
	const marker = "UNIQUE constraint failed: "
	i := strings.Index(msg, marker)
	if i < 0 {
		return nil
	}
	rest := msg[i+len(marker):]
	if j := strings.IndexAny(rest, " ("); j >= 0 {
		rest = rest[:j]
	}
	col := ""
	if t, c, ok := strings.Cut(rest, "."); ok && t == table {
		col = strings.TrimSpace(c)
	}
	return &storage.DuplicateKeyError{Table: table, Column: col}
}

func buildInsertSQL(table string, columns []string) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(sqlIdent(c))
	}
	b.WriteString(") VALUES (")
	for i := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("?")
	}
	b.WriteString(")")
	return b.String()
}

func sqlType(logical string) string {
	switch {
	case logical == storage.TypeID:
		return "INTEGER"
	case logical == storage.TypeInt:
		return "INTEGER"
	case logical == storage.TypeDecimal:
		// SQLite has no fixed-point type; NUMERIC keeps affinity sane.
		return "NUMERIC"
	case logical == storage.TypeDate:
		return "TEXT"
	case strings.HasPrefix(logical, "varchar("):
		return "TEXT"
	default:
		return logical
	}
}

func buildCreateSQL(t storage.TableSpec) (string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", fmt.Errorf("buildCreateSQL: table name is empty")
	}
	if strings.TrimSpace(t.PrimaryKey) == "" {
		return "", fmt.Errorf("buildCreateSQL: table %s: primary key is required", t.Name)
	}

	cols := make([]string, 0, len(t.Columns)+1+len(t.Unique))
	cols = append(cols, fmt.Sprintf("%s INTEGER PRIMARY KEY AUTOINCREMENT", sqlIdent(t.PrimaryKey)))

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		typ := strings.TrimSpace(c.Type)
		if name == "" || typ == "" {
			return "", fmt.Errorf("buildCreateSQL: table %s: column name/type must be set", t.Name)
		}
		var b strings.Builder
		b.WriteString(sqlIdent(name))
		b.WriteString(" ")
		b.WriteString(sqlType(typ))
		if !c.Nullable {
			b.WriteString(" NOT NULL")
		}
		if c.Default != "" {
			b.WriteString(" DEFAULT ")
			b.WriteString(c.Default)
		}
		if ref := strings.TrimSpace(c.References); ref != "" {
			b.WriteString(" REFERENCES ")
			b.WriteString(ref)
		}
		cols = append(cols, b.String())
	}

	for _, u := range t.Unique {
		cols = append(cols, fmt.Sprintf(
			"CONSTRAINT %s UNIQUE (%s)",
			storage.UniqueConstraintName(t.Name, u), sqlIdent(u),
		))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s);", t.Name, strings.Join(cols, ", ")), nil
}

func sqlIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
