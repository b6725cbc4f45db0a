package postgres

import (
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"fleximart/internal/storage"
)

func TestBuildInsertSQL(t *testing.T) {
	got := buildInsertSQL("customers", "customer_id", []string{"first_name", "email"})
	want := `INSERT INTO customers ("first_name", "email") VALUES ($1, $2) RETURNING "customer_id"`
	if got != want {
		t.Fatalf("buildInsertSQL:\n got %q\nwant %q", got, want)
	}
}

func TestBuildCreateSQL(t *testing.T) {
	spec := storage.TableSpec{
		Name:       "orders",
		PrimaryKey: "order_id",
		Columns: []storage.ColumnSpec{
			{Name: "customer_id", Type: storage.TypeInt, References: "customers(customer_id)"},
			{Name: "order_date", Type: storage.TypeDate},
			{Name: "total_amount", Type: storage.TypeDecimal},
			{Name: "status", Type: "varchar(20)", Default: "'Completed'"},
			{Name: "note", Type: "varchar(100)", Nullable: true},
		},
	}
	ddl, err := buildCreateSQL(spec)
	if err != nil {
		t.Fatalf("buildCreateSQL: %v", err)
	}

	for _, frag := range []string{
		"CREATE TABLE IF NOT EXISTS orders (",
		`"order_id" SERIAL PRIMARY KEY`,
		`"customer_id" INT NOT NULL REFERENCES customers(customer_id)`,
		`"order_date" DATE NOT NULL`,
		`"total_amount" DECIMAL(10,2) NOT NULL`,
		`"status" VARCHAR(20) NOT NULL DEFAULT 'Completed'`,
		`"note" VARCHAR(100)`,
	} {
		if !strings.Contains(ddl, frag) {
			t.Errorf("DDL missing %q:\n%s", frag, ddl)
		}
	}
	if strings.Contains(ddl, `"note" VARCHAR(100) NOT NULL`) {
		t.Errorf("nullable column must not be NOT NULL:\n%s", ddl)
	}
}

func TestBuildCreateSQLUniqueConstraint(t *testing.T) {
	spec := storage.TableSpec{
		Name:       "customers",
		PrimaryKey: "customer_id",
		Columns:    []storage.ColumnSpec{{Name: "email", Type: "varchar(100)"}},
		Unique:     []string{"email"},
	}
	ddl, err := buildCreateSQL(spec)
	if err != nil {
		t.Fatalf("buildCreateSQL: %v", err)
	}
	if !strings.Contains(ddl, `CONSTRAINT uq_customers_email UNIQUE ("email")`) {
		t.Fatalf("DDL missing named unique constraint:\n%s", ddl)
	}
}

func TestBuildCreateSQLRejectsBadSpecs(t *testing.T) {
	if _, err := buildCreateSQL(storage.TableSpec{PrimaryKey: "id"}); err == nil {
		t.Fatal("expected error for missing table name")
	}
	if _, err := buildCreateSQL(storage.TableSpec{Name: "x"}); err == nil {
		t.Fatal("expected error for missing primary key")
	}
	bad := storage.TableSpec{
		Name:       "x",
		PrimaryKey: "id",
		Columns:    []storage.ColumnSpec{{Name: "", Type: storage.TypeInt}},
	}
	if _, err := buildCreateSQL(bad); err == nil {
		t.Fatal("expected error for unnamed column")
	}
}

func TestAsDuplicate(t *testing.T) {
	dup := asDuplicate(&pgconn.PgError{Code: "23505", ConstraintName: "uq_customers_email"}, "customers")
	if dup == nil {
		t.Fatal("expected duplicate error")
	}
	if dup.Table != "customers" || dup.Column != "email" {
		t.Fatalf("got table=%q column=%q", dup.Table, dup.Column)
	}

	if asDuplicate(&pgconn.PgError{Code: "23503"}, "customers") != nil {
		t.Fatal("foreign key violation must not map to duplicate")
	}
	if asDuplicate(errors.New("boom"), "customers") != nil {
		t.Fatal("plain error must not map to duplicate")
	}

	dup = asDuplicate(&pgconn.PgError{Code: "23505", ConstraintName: "weird_name"}, "customers")
	if dup == nil || dup.Column != "" {
		t.Fatalf("unparseable constraint should yield empty column, got %+v", dup)
	}
}
