package pipeline

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"

	"fleximart/internal/metrics"
	"fleximart/internal/normalize"
	csvparser "fleximart/internal/parser/csv"
	"fleximart/internal/quality"
	"fleximart/internal/storage"
)

var productColumns = []string{
	"product_id", "product_name", "category", "price", "stock_quantity",
}

var productInsertColumns = []string{
	"product_name", "category", "price", "stock_quantity",
}

const (
	colProdSourceID = iota
	colProdName
	colProdCategory
	colProdPrice
	colProdStock
)

// LoadProducts extracts, cleans and persists the product file.
//
// Price is required: rows without a usable price are dropped, never guessed.
// Missing stock_quantity is defaulted to 0 and counted as a filled value.
// There is no duplicate-recovery fallback here; products carry no unique
// business key at the storage level.
func LoadProducts(ctx context.Context, repo storage.Repository, src io.ReadCloser, file string, q *quality.Metrics) (*IdentityMap, error) {
	rows, err := csvparser.Collect(ctx, src, productColumns, csvparser.Options{}, logSkippedLine(file))
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", file, err)
	}
	defer freeRows(rows)

	q.Read(file, len(rows))
	metrics.IncCounter("etl_records_total", float64(len(rows)), metrics.Labels{"file": file, "kind": "read"})

	// Dedupe by source product id, keep first.
	seen := make(map[string]bool, len(rows))
	kept := rows[:0:0]
	dups := 0
	for _, r := range rows {
		id, ok := r.String(colProdSourceID)
		if ok && seen[id] {
			dups++
			continue
		}
		if ok {
			seen[id] = true
		}
		kept = append(kept, r)
	}
	q.Duplicates(file, dups)

	filled := 0
	valid := kept[:0:0]
	for _, r := range kept {
		if s, ok := r.String(colProdCategory); ok {
			r.V[colProdCategory] = normalize.Category(s)
		}

		stock, ok := parseInt(r.V[colProdStock])
		if !ok {
			stock = 0
			filled++
		}
		r.V[colProdStock] = stock

		price, ok := parseDecimal(r.V[colProdPrice])
		if !ok {
			countDrop(q, file, "missing_price", 1)
			continue
		}
		r.V[colProdPrice] = price
		valid = append(valid, r)
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
			r.V[colProdName], r.V[colProdCategory], r.V[colProdPrice], r.V[colProdStock],
		}
		id, err := tx.InsertReturningID(ctx, TableProducts, "product_id", productInsertColumns, vals)
		if err != nil {
			return nil, fmt.Errorf("insert product line=%d: %w", r.Line, err)
		}
		q.Loaded(file, 1)
		metrics.IncCounter("etl_records_total", 1, metrics.Labels{"file": file, "kind": "loaded"})
		putSourceID(ids, r, colProdSourceID, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit %s: %w", file, err)
	}
	return ids, nil
}

// parseInt coerces a raw field to an integer, accepting float-formatted
// values like "5.0" the way spreadsheet exports produce them.
func parseInt(v any) (int64, bool) {
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(f), true
}

// parseDecimal coerces a raw field to a float, rejecting NaN/Inf.
func parseDecimal(v any) (float64, bool) {
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
