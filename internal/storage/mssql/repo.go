// Package mssql implements storage.Repository for SQL Server.
package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	mssqldb "github.com/microsoft/go-mssqldb"

	"fleximart/internal/storage"
)

type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("mssql", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { r.db.Close() }

// EnsureTables creates missing tables. SQL Server has no CREATE TABLE IF NOT
// EXISTS, so existence is guarded with an OBJECT_ID check.
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
	return &msTx{tx: tx}, nil
}

func (r *Repo) Query(ctx context.Context, q string, args ...any) ([]string, [][]any, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

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

type msTx struct {
	tx *sql.Tx
}

func (t *msTx) InsertReturningID(ctx context.Context, table, idColumn string, columns []string, values []any) (int64, error) {
	q := buildInsertSQL(table, idColumn, columns)

	var id int64
	if err := t.tx.QueryRowContext(ctx, q, values...).Scan(&id); err != nil {
		if dup := asDuplicate(err, table); dup != nil {
			return 0, dup
		}
		return 0, err
	}
	return id, nil
}

func (t *msTx) LookupID(ctx context.Context, table, idColumn, matchColumn string, value any) (int64, bool, error) {
	q := fmt.Sprintf(
		`SELECT %s FROM %s WHERE %s = @p1`,
		msIdent(idColumn), table, msIdent(matchColumn),
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

func (t *msTx) Commit(context.Context) error   { return t.tx.Commit() }
func (t *msTx) Rollback(context.Context) error { return t.tx.Rollback() }

// asDuplicate maps SQL Server unique violations (error 2627 for constraints,
// 2601 for unique indexes) to the typed duplicate signal. The violated column
// is parsed out of the constraint name embedded in the message.
func asDuplicate(err error, table string) *storage.DuplicateKeyError {
	var msErr mssqldb.Error
	if !errors.As(err, &msErr) {
		return nil
	}
	if msErr.Number != 2627 && msErr.Number != 2601 {
		return nil
	}
	return &storage.DuplicateKeyError{
		Table:  table,
		Column: columnFromMessage(msErr.Message, table),
	}
}

func columnFromMessage(msg, table string) string {
	for _, tok := range strings.FieldsFunc(msg, func(r rune) bool {
		return r == ' ' || r == '\'' || r == '"' || r == '.' || r == ','
	}) {
		if col, ok := storage.ColumnFromConstraintName(tok, table); ok {
			return col
		}
	}
	return ""
}

func buildInsertSQL(table, idColumn string, columns []string) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(msIdent(c))
	}
	b.WriteString(") OUTPUT INSERTED.")
	b.WriteString(msIdent(idColumn))
	b.WriteString(" VALUES (")
	for i := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "@p%d", i+1)
	}
	b.WriteString(")")
	return b.String()
}

func sqlType(logical string) string {
	switch {
	case logical == storage.TypeID:
		return "INT IDENTITY(1,1)"
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

func buildCreateSQL(t storage.TableSpec) (string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", fmt.Errorf("buildCreateSQL: table name is empty")
	}
	if strings.TrimSpace(t.PrimaryKey) == "" {
		return "", fmt.Errorf("buildCreateSQL: table %s: primary key is required", t.Name)
	}

	cols := make([]string, 0, len(t.Columns)+1+len(t.Unique))
	cols = append(cols, fmt.Sprintf("%s %s PRIMARY KEY", msIdent(t.PrimaryKey), sqlType(storage.TypeID)))

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		typ := strings.TrimSpace(c.Type)
		if name == "" || typ == "" {
			return "", fmt.Errorf("buildCreateSQL: table %s: column name/type must be set", t.Name)
		}
		var b strings.Builder
		b.WriteString(msIdent(name))
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
			storage.UniqueConstraintName(t.Name, u), msIdent(u),
		))
	}

	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (%s);",
		t.Name, t.Name, strings.Join(cols, ", "),
	), nil
}

func msIdent(s string) string {
	return "[" + strings.ReplaceAll(s, "]", "]]") + "]"
}
