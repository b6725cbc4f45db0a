package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"sort"
	"strconv"
	"strings"

	"fleximart/internal/metrics"
	"fleximart/internal/normalize"
	csvparser "fleximart/internal/parser/csv"
	"fleximart/internal/quality"
	"fleximart/internal/storage"
)

var salesColumns = []string{
	"transaction_id", "customer_id", "product_id", "quantity", "unit_price", "transaction_date",
}

const (
	colSaleTxnID = iota
	colSaleCustomerID
	colSaleProductID
	colSaleQuantity
	colSaleUnitPrice
	colSaleTxnDate
)

// salesLine is one cleaned transaction row, foreign keys already resolved.
type salesLine struct {
	txnID      string
	customerID int64
	productID  int64
	quantity   int64
	unitPrice  float64
	orderDate  string
	line       int
}

func (l salesLine) subtotal() float64 { return round2(float64(l.quantity) * l.unitPrice) }

// LoadSales extracts the flat transaction file, resolves foreign keys
// through the customer and product identity maps, and groups the surviving
// rows into orders with nested order items.
//
// order_date is a required column, so rows whose transaction_date fails
// every parse format are dropped — the opposite of the nullable
// registration_date policy on the customer side.
//
// The loaded counter for this file counts order items, not orders.
func LoadSales(ctx context.Context, repo storage.Repository, src io.ReadCloser, file string, q *quality.Metrics, customers, products *IdentityMap) error {
	rows, err := csvparser.Collect(ctx, src, salesColumns, csvparser.Options{}, logSkippedLine(file))
	if err != nil {
		return fmt.Errorf("extract %s: %w", file, err)
	}
	defer freeRows(rows)

	q.Read(file, len(rows))
	metrics.IncCounter("etl_records_total", float64(len(rows)), metrics.Labels{"file": file, "kind": "read"})

	// Dedupe fully-identical rows, keep first. The key distinguishes an
	// empty field from a missing one.
	seen := make(map[string]bool, len(rows))
	kept := rows[:0:0]
	dups := 0
	for _, r := range rows {
		parts := make([]string, len(r.V))
		for i, v := range r.V {
			if v == nil {
				parts[i] = "\x00nil"
			} else {
				parts[i] = v.(string)
			}
		}
		key := strings.Join(parts, "\x00")
		if seen[key] {
			dups++
			continue
		}
		seen[key] = true
		kept = append(kept, r)
	}
	q.Duplicates(file, dups)

	var lines []salesLine
	invalidDates := 0
	for _, r := range kept {
		custSrc, _ := r.String(colSaleCustomerID)
		prodSrc, _ := r.String(colSaleProductID)
		custKey, custOK := customers.Get(custSrc)
		prodKey, prodOK := products.Get(prodSrc)
		if !custOK || !prodOK {
			countDrop(q, file, "orphan_record_missing_parent", 1)
			continue
		}

		rawDate, _ := r.String(colSaleTxnDate)
		date, ok := normalize.Date(rawDate)
		if !ok {
			invalidDates++
			continue
		}

		txnID, _ := r.String(colSaleTxnID)
		qty, _ := parseInt(r.V[colSaleQuantity])
		price, _ := parseDecimal(r.V[colSaleUnitPrice])

		lines = append(lines, salesLine{
			txnID:      txnID,
			customerID: custKey,
			productID:  prodKey,
			quantity:   qty,
			unitPrice:  price,
			orderDate:  date,
			line:       r.Line,
		})
	}
	if invalidDates > 0 {
		log.Printf("%s: %d transaction dates could not be parsed; rows dropped", file, invalidDates)
		countDrop(q, file, "invalid_transaction_date", invalidDates)
	}

	groups, order := groupByTransaction(lines)

	tx, err := repo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin %s: %w", file, err)
	}
	defer tx.Rollback(ctx)

	itemsLoaded := 0
	for _, txnID := range order {
		group := groups[txnID]
		head := group[0]

		for _, l := range group[1:] {
			if l.customerID != head.customerID {
				log.Printf("%s: transaction=%s line=%d references customer key %d, keeping first row's %d",
					file, txnID, l.line, l.customerID, head.customerID)
			}
		}

		total := 0.0
		for _, l := range group {
			total += float64(l.quantity) * l.unitPrice
		}

		orderID, err := tx.InsertReturningID(ctx, TableOrders, "order_id",
			[]string{"customer_id", "order_date", "total_amount", "status"},
			[]any{head.customerID, head.orderDate, round2(total), "Completed"})
		if err != nil {
			return fmt.Errorf("insert order transaction=%s: %w", txnID, err)
		}

		for _, l := range group {
			_, err := tx.InsertReturningID(ctx, TableOrderItems, "order_item_id",
				[]string{"order_id", "product_id", "quantity", "unit_price", "subtotal"},
				[]any{orderID, l.productID, l.quantity, l.unitPrice, l.subtotal()})
			if err != nil {
				return fmt.Errorf("insert order item transaction=%s line=%d: %w", txnID, l.line, err)
			}
		}
		itemsLoaded += len(group)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s: %w", file, err)
	}

	q.Loaded(file, itemsLoaded)
	metrics.IncCounter("etl_records_total", float64(itemsLoaded), metrics.Labels{"file": file, "kind": "loaded"})
	return nil
}

// groupByTransaction buckets lines by transaction id, preserving source
// order within each bucket, and returns the ids in ascending order. Ids that
// parse as numbers sort numerically so "10" comes after "9".
func groupByTransaction(lines []salesLine) (map[string][]salesLine, []string) {
	groups := make(map[string][]salesLine)
	var order []string
	for _, l := range lines {
		if _, ok := groups[l.txnID]; !ok {
			order = append(order, l.txnID)
		}
		groups[l.txnID] = append(groups[l.txnID], l)
	}

	sort.Slice(order, func(i, j int) bool {
		a, aerr := strconv.ParseFloat(order[i], 64)
		b, berr := strconv.ParseFloat(order[j], 64)
		if aerr == nil && berr == nil {
			return a < b
		}
		if aerr == nil != (berr == nil) {
			// numbers before non-numbers
			return aerr == nil
		}
		return order[i] < order[j]
	})
	return groups, order
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
