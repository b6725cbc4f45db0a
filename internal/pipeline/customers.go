package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"fleximart/internal/metrics"
	"fleximart/internal/normalize"
	csvparser "fleximart/internal/parser/csv"
	"fleximart/internal/quality"
	"fleximart/internal/storage"
	"fleximart/internal/transform"
)

// Column order the customer extract is aligned to. Index 0 is the source id,
// the rest line up with customerInsertColumns.
var customerColumns = []string{
	"customer_id", "first_name", "last_name", "email", "phone", "city", "registration_date",
}

var customerInsertColumns = []string{
	"first_name", "last_name", "email", "phone", "city", "registration_date",
}

const (
	colCustSourceID = iota
	colCustFirstName
	colCustLastName
	colCustEmail
	colCustPhone
	colCustCity
	colCustRegDate
)

// LoadCustomers extracts, cleans and persists the customer file.
//
// Cleaning order matters and is observable in the quality counters:
// dedupe by email first, then drop rows with no email, then normalize phone
// and registration_date. A null registration_date is stored (the column is
// nullable) and counted as a filled value rather than a drop.
//
// A database-level duplicate email does not fail the row: the existing
// surrogate key is looked up and recorded in the IdentityMap, which is what
// makes re-running the customer load idempotent.
func LoadCustomers(ctx context.Context, repo storage.Repository, src io.ReadCloser, file string, q *quality.Metrics) (*IdentityMap, error) {
	rows, err := csvparser.Collect(ctx, src, customerColumns, csvparser.Options{}, logSkippedLine(file))
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", file, err)
	}
	defer freeRows(rows)

	q.Read(file, len(rows))
	metrics.IncCounter("etl_records_total", float64(len(rows)), metrics.Labels{"file": file, "kind": "read"})

	// Dedupe by email, keep first. Rows without an email are left alone
	// here; they are dropped as missing_email below. The removed rows'
	// source ids are remembered so they can be mapped to the surviving
	// row's surrogate key after the insert.
	seen := make(map[string]bool, len(rows))
	dupSources := make(map[string][]string)
	kept := rows[:0:0]
	dups := 0
	for _, r := range rows {
		email, ok := r.String(colCustEmail)
		if ok && seen[email] {
			dups++
			if src, ok := r.String(colCustSourceID); ok {
				dupSources[email] = append(dupSources[email], src)
			}
			continue
		}
		if ok {
			seen[email] = true
		}
		kept = append(kept, r)
	}
	q.Duplicates(file, dups)

	valid := kept[:0:0]
	for _, r := range kept {
		if _, ok := r.String(colCustEmail); !ok {
			countDrop(q, file, "missing_email", 1)
			continue
		}
		valid = append(valid, r)
	}

	filled := 0
	for _, r := range valid {
		r.V[colCustPhone] = normalize.PhoneValue(r.V[colCustPhone])
		r.V[colCustRegDate] = normalize.DateValue(r.V[colCustRegDate])
		if r.V[colCustRegDate] == nil {
			filled++
		}
	}
	q.Filled(file, filled)

	ids := NewIdentityMap()
	tx, err := repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin %s: %w", file, err)
	}
	defer tx.Rollback(ctx)

	for _, r := range valid {
		vals := []any{
			r.V[colCustFirstName], r.V[colCustLastName], r.V[colCustEmail],
			r.V[colCustPhone], r.V[colCustCity], r.V[colCustRegDate],
		}
		id, err := tx.InsertReturningID(ctx, TableCustomers, "customer_id", customerInsertColumns, vals)
		if err != nil {
			var dup *storage.DuplicateKeyError
			if errors.As(err, &dup) && dup.Column == "email" {
				// Row already present from a prior run. Resolve the source
				// id to the existing surrogate key and move on.
				existing, found, lerr := tx.LookupID(ctx, TableCustomers, "customer_id", "email", r.V[colCustEmail])
				if lerr != nil {
					return nil, fmt.Errorf("lookup existing customer: %w", lerr)
				}
				if found {
					putSourceID(ids, r, colCustSourceID, existing)
					mapDupSources(ids, dupSources, r, existing)
				}
				continue
			}
			log.Printf("customers: line=%d insert failed: %v", r.Line, err)
			continue
		}
		q.Loaded(file, 1)
		metrics.IncCounter("etl_records_total", 1, metrics.Labels{"file": file, "kind": "loaded"})
		putSourceID(ids, r, colCustSourceID, id)
		mapDupSources(ids, dupSources, r, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit %s: %w", file, err)
	}
	return ids, nil
}

// mapDupSources resolves the source ids of rows removed as duplicates of r
// to the same surrogate key r got, so sales rows referencing either source
// id find the one stored customer.
func mapDupSources(ids *IdentityMap, dupSources map[string][]string, r *transform.Row, key int64) {
	email, ok := r.String(colCustEmail)
	if !ok {
		return
	}
	for _, src := range dupSources[email] {
		ids.Put(src, key)
	}
}

func putSourceID(ids *IdentityMap, r *transform.Row, col int, key int64) {
	if src, ok := r.String(col); ok {
		ids.Put(src, key)
	}
}

func countDrop(q *quality.Metrics, file, reason string, n int) {
	if n == 0 {
		return
	}
	q.Dropped(file, reason, n)
	metrics.IncCounter("etl_rows_dropped_total", float64(n), metrics.Labels{"file": file, "reason": reason})
}

func logSkippedLine(file string) func(line int, err error) {
	return func(line int, err error) {
		log.Printf("%s: line=%d skipped: %v", file, line, err)
	}
}

func freeRows(rows []*transform.Row) {
	for _, r := range rows {
		r.Free()
	}
}
