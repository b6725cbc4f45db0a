package pipeline

import (
	"context"
	"io"
	"strings"
	"testing"

	"fleximart/internal/quality"
)

func reader(s string) io.ReadCloser { return io.NopCloser(strings.NewReader(s)) }

func TestLoadCustomers(t *testing.T) {
	csvData := `customer_id,first_name,last_name,email,phone,city,registration_date
C001,Asha,Rao,asha@example.com,9876543210,Mumbai,2024-01-15
C002,Ben,Iyer,ben@example.com,9.876543211e9,Delhi,15/01/2024
C003,Cara,Nair,asha@example.com,,Pune,2024-02-01
C004,Dev,Shah,,1234567890,Chennai,2024-03-01
C005,Esha,Menon,esha@example.com,12345,Kochi,not-a-date
`
	store := newFakeStore()
	q := quality.NewMetrics()
	const file = "customers_raw.csv"

	ids, err := LoadCustomers(context.Background(), &fakeRepo{store: store}, reader(csvData), file, q)
	if err != nil {
		t.Fatalf("LoadCustomers: %v", err)
	}

	stats := q.Stats(file)
	if stats.RecordsRead != 5 {
		t.Errorf("records read = %d, want 5", stats.RecordsRead)
	}
	if stats.DuplicatesRemoved != 1 {
		t.Errorf("duplicates removed = %d, want 1 (C003 repeats C001's email)", stats.DuplicatesRemoved)
	}
	if stats.DropReasons["missing_email"] != 1 {
		t.Errorf("missing_email drops = %d, want 1 (C004)", stats.DropReasons["missing_email"])
	}
	if stats.MissingValuesFilled != 1 {
		t.Errorf("filled = %d, want 1 (C005's unparseable date stored as NULL)", stats.MissingValuesFilled)
	}
	if stats.RecordsLoaded != 3 {
		t.Errorf("records loaded = %d, want 3", stats.RecordsLoaded)
	}

	rows := store.tables[TableCustomers]
	if len(rows) != 3 {
		t.Fatalf("stored %d customers, want 3", len(rows))
	}

	if got := rows[0]["phone"]; got != "+91-9876543210" {
		t.Errorf("C001 phone = %v, want +91-9876543210", got)
	}
	if got := rows[1]["phone"]; got != "+91-9876543211" {
		t.Errorf("C002 phone = %v, want scientific notation collapsed", got)
	}
	if got := rows[1]["registration_date"]; got != "2024-01-15" {
		t.Errorf("C002 registration_date = %v, want 2024-01-15 (day-first source)", got)
	}
	if got := rows[2]["phone"]; got != nil {
		t.Errorf("C005 phone = %v, want nil for a too-short number", got)
	}
	if got := rows[2]["registration_date"]; got != nil {
		t.Errorf("C005 registration_date = %v, want nil", got)
	}

	for src, want := range map[string]int64{"C001": 1, "C002": 2, "C005": 3} {
		if got, ok := ids.Get(src); !ok || got != want {
			t.Errorf("identity map %s = %d (ok=%v), want %d", src, got, ok, want)
		}
	}
	if got, ok := ids.Get("C003"); !ok || got != 1 {
		t.Errorf("deduped row C003 = %d (ok=%v), want the surviving row's key 1", got, ok)
	}
	if _, ok := ids.Get("C004"); ok {
		t.Error("dropped row C004 must not get an identity mapping")
	}
}

func TestLoadCustomersDuplicateEmailFallback(t *testing.T) {
	store := newFakeStore()
	q := quality.NewMetrics()

	first := `customer_id,first_name,last_name,email,phone,city,registration_date
C001,Asha,Rao,asha@example.com,9876543210,Mumbai,2024-01-15
`
	ids1, err := LoadCustomers(context.Background(), &fakeRepo{store: store}, reader(first), "run1.csv", q)
	if err != nil {
		t.Fatalf("first load: %v", err)
	}

	// Second run hits the unique constraint; the source id must still
	// resolve to the existing surrogate key.
	second := `customer_id,first_name,last_name,email,phone,city,registration_date
C900,Asha,Rao,asha@example.com,9876543210,Mumbai,2024-01-15
`
	ids2, err := LoadCustomers(context.Background(), &fakeRepo{store: store}, reader(second), "run2.csv", q)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}

	id1, _ := ids1.Get("C001")
	id2, ok := ids2.Get("C900")
	if !ok {
		t.Fatal("C900 missing from identity map after duplicate fallback")
	}
	if id1 != id2 {
		t.Fatalf("duplicate email mapped to key %d, want existing key %d", id2, id1)
	}

	if len(store.tables[TableCustomers]) != 1 {
		t.Fatalf("stored %d customers, want 1", len(store.tables[TableCustomers]))
	}
	if q.Stats("run2.csv").RecordsLoaded != 0 {
		t.Errorf("fallback row must not count as loaded, got %d", q.Stats("run2.csv").RecordsLoaded)
	}
}
