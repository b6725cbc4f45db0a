// Package postgres implements storage.Repository on top of pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"fleximart/internal/storage"
)

// Repo implements storage.Repository for Postgres.
//
// Key design points:
//   - Surrogate keys come back via INSERT ... RETURNING, the canonical pgx way.
//   - Uniqueness violations surface as SQLSTATE 23505; the violated column is
//     recovered from the constraint name (uq_<table>_<column>).
type Repo struct {
	pool *pgxpool.Pool
}

func init() {
	storage.Register("postgres", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Repo{pool: pool}, nil
}

func (r *Repo) Close() { r.pool.Close() }

// EnsureTables creates the schema with CREATE TABLE IF NOT EXISTS, keeping
// startup idempotent across reruns.
func (r *Repo) EnsureTables(ctx context.Context, tables []storage.TableSpec) error {
	for _, t := range tables {
		ddl, err := buildCreateSQL(t)
		if err != nil {
			return err
		}
		if _, err := r.pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("create table %s: %w", t.Name, err)
		}
	}
	return nil
}

func (r *Repo) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgTx{tx: tx}, nil
}

func (r *Repo) Query(ctx context.Context, sql string, args ...any) ([]string, [][]any, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	var out [][]any
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, nil, err
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return columns, out, nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) InsertReturningID(ctx context.Context, table, idColumn string, columns []string, values []any) (int64, error) {
	sql := buildInsertSQL(table, idColumn, columns)

	var id int64
	if err := t.tx.QueryRow(ctx, sql, values...).Scan(&id); err != nil {
		if dup := asDuplicate(err, table); dup != nil {
			return 0, dup
		}
		return 0, err
	}
	return id, nil
}

func (t *pgTx) LookupID(ctx context.Context, table, idColumn, matchColumn string, value any) (int64, bool, error) {
	sql := fmt.Sprintf(
		`SELECT %s FROM %s WHERE %s = $1`,
		pgIdent(idColumn), table, pgIdent(matchColumn),
	)

	var id int64
	err := t.tx.QueryRow(ctx, sql, value).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (t *pgTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *pgTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

// asDuplicate maps a SQLSTATE 23505 error to the typed duplicate signal, or
// nil when err is any other failure.
func asDuplicate(err error, table string) *storage.DuplicateKeyError {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return nil
	}
	col, ok := storage.ColumnFromConstraintName(pgErr.ConstraintName, table)
	if !ok {
		col = ""
	}
	return &storage.DuplicateKeyError{Table: table, Column: col}
}

// buildInsertSQL constructs a single-row INSERT ... RETURNING statement.
//
// It is pure and deterministic so placeholder numbering and quoting can be
// unit tested without a database.
func buildInsertSQL(table, idColumn string, columns []string) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgIdent(c))
	}
	b.WriteString(") VALUES (")
	for i := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "$%d", i+1)
	}
	b.WriteString(") RETURNING ")
	b.WriteString(pgIdent(idColumn))
	return b.String()
}

// sqlType maps a logical column type to its Postgres form.
func sqlType(logical string) string {
	switch {
	case logical == storage.TypeID:
		return "SERIAL"
	case logical == storage.TypeInt:
		return "INT"
	case logical == storage.TypeDecimal:
		return "DECIMAL(10,2)"
	case logical == storage.TypeDate:
		return "DATE"
	case strings.HasPrefix(logical, "varchar("):
		return strings.ToUpper(logical[:7]) + logical[7:]
	default:
		return logical
	}
}

// buildCreateSQL renders CREATE TABLE IF NOT EXISTS DDL for one table.
//
// Foreign key references are expressed inline in the column definition, and
// unique constraints are named via storage.UniqueConstraintName so duplicate
// errors can be mapped back to a column.
func buildCreateSQL(t storage.TableSpec) (string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", fmt.Errorf("buildCreateSQL: table name is empty")
	}
	if strings.TrimSpace(t.PrimaryKey) == "" {
		return "", fmt.Errorf("buildCreateSQL: table %s: primary key is required", t.Name)
	}

	cols := make([]string, 0, len(t.Columns)+1+len(t.Unique))
	cols = append(cols, fmt.Sprintf("%s %s PRIMARY KEY", pgIdent(t.PrimaryKey), sqlType(storage.TypeID)))

	for _, c := range t.Columns {
		def, err := buildColumnDef(c)
		if err != nil {
			return "", fmt.Errorf("buildCreateSQL: table %s: %w", t.Name, err)
		}
		cols = append(cols, def)
	}

	for _, u := range t.Unique {
		cols = append(cols, fmt.Sprintf(
			"CONSTRAINT %s UNIQUE (%s)",
			storage.UniqueConstraintName(t.Name, u), pgIdent(u),
		))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s);", t.Name, strings.Join(cols, ", ")), nil
}

func buildColumnDef(c storage.ColumnSpec) (string, error) {
	name := strings.TrimSpace(c.Name)
	typ := strings.TrimSpace(c.Type)
	if name == "" || typ == "" {
		return "", fmt.Errorf("column name/type must be set")
	}

	var b strings.Builder
	b.WriteString(pgIdent(name))
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

	return b.String(), nil
}

// pgIdent quotes an identifier for Postgres.
func pgIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
