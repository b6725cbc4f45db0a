package pipeline

import (
	"context"
	"testing"

	"fleximart/internal/quality"
)

func salesMaps() (*IdentityMap, *IdentityMap) {
	customers := NewIdentityMap()
	customers.Put("C001", 1)
	customers.Put("C002", 2)
	products := NewIdentityMap()
	products.Put("P001", 1)
	products.Put("P002", 2)
	return customers, products
}

func TestLoadSales(t *testing.T) {
	csvData := `transaction_id,customer_id,product_id,quantity,unit_price,transaction_date
T1,C001,P001,2,10.00,2024-01-15
T1,C001,P002,1,5.00,2024-01-15
T2,C002,P001,3,9.99,16/01/2024
T2,C002,P001,3,9.99,16/01/2024
T3,C999,P001,1,100.00,2024-01-17
T4,C001,P001,1,50.00,garbage
`
	store := newFakeStore()
	q := quality.NewMetrics()
	customers, products := salesMaps()
	const file = "sales_raw.csv"

	err := LoadSales(context.Background(), &fakeRepo{store: store}, reader(csvData), file, q, customers, products)
	if err != nil {
		t.Fatalf("LoadSales: %v", err)
	}

	stats := q.Stats(file)
	if stats.RecordsRead != 6 {
		t.Errorf("records read = %d, want 6", stats.RecordsRead)
	}
	if stats.DuplicatesRemoved != 1 {
		t.Errorf("duplicates removed = %d, want 1 (repeated T2 row)", stats.DuplicatesRemoved)
	}
	if stats.DropReasons["orphan_record_missing_parent"] != 1 {
		t.Errorf("orphan drops = %d, want 1 (unknown customer C999)", stats.DropReasons["orphan_record_missing_parent"])
	}
	if stats.DropReasons["invalid_transaction_date"] != 1 {
		t.Errorf("invalid date drops = %d, want 1 (T4)", stats.DropReasons["invalid_transaction_date"])
	}
	if stats.RecordsLoaded != 3 {
		t.Errorf("records loaded = %d, want 3 order items", stats.RecordsLoaded)
	}

	orders := store.tables[TableOrders]
	if len(orders) != 2 {
		t.Fatalf("stored %d orders, want 2", len(orders))
	}

	// T1: 2*10.00 + 1*5.00
	if got := orders[0]["total_amount"]; got != 25.00 {
		t.Errorf("T1 total = %v, want 25.00", got)
	}
	if got := orders[0]["customer_id"]; got != int64(1) {
		t.Errorf("T1 customer = %v, want 1", got)
	}
	if got := orders[0]["order_date"]; got != "2024-01-15" {
		t.Errorf("T1 order_date = %v", got)
	}
	if got := orders[0]["status"]; got != "Completed" {
		t.Errorf("T1 status = %v, want Completed", got)
	}

	// T2 deduped to one row: 3*9.99, day-first date
	if got := orders[1]["total_amount"]; got != 29.97 {
		t.Errorf("T2 total = %v, want 29.97", got)
	}
	if got := orders[1]["order_date"]; got != "2024-01-16" {
		t.Errorf("T2 order_date = %v, want 2024-01-16", got)
	}

	items := store.tables[TableOrderItems]
	if len(items) != 3 {
		t.Fatalf("stored %d order items, want 3", len(items))
	}
	if got := items[0]["subtotal"]; got != 20.00 {
		t.Errorf("item 1 subtotal = %v, want 20.00", got)
	}
	if got := items[1]["subtotal"]; got != 5.00 {
		t.Errorf("item 2 subtotal = %v, want 5.00", got)
	}
	if got := items[0]["order_id"]; got != orders[0]["order_id"] {
		t.Errorf("item 1 order_id = %v, want %v", got, orders[0]["order_id"])
	}
	if got := items[2]["order_id"]; got != orders[1]["order_id"] {
		t.Errorf("item 3 order_id = %v, want %v", got, orders[1]["order_id"])
	}
}

func TestLoadSalesTransactionOrdering(t *testing.T) {
	// Numeric transaction ids must sort numerically: 9 before 10.
	csvData := `transaction_id,customer_id,product_id,quantity,unit_price,transaction_date
10,C001,P001,1,1.00,2024-01-02
9,C001,P001,1,2.00,2024-01-01
`
	store := newFakeStore()
	q := quality.NewMetrics()
	customers, products := salesMaps()

	if err := LoadSales(context.Background(), &fakeRepo{store: store}, reader(csvData), "s.csv", q, customers, products); err != nil {
		t.Fatalf("LoadSales: %v", err)
	}

	orders := store.tables[TableOrders]
	if len(orders) != 2 {
		t.Fatalf("stored %d orders, want 2", len(orders))
	}
	if orders[0]["total_amount"] != 2.00 || orders[1]["total_amount"] != 1.00 {
		t.Fatalf("orders inserted out of transaction order: %v then %v",
			orders[0]["total_amount"], orders[1]["total_amount"])
	}
}

func TestLoadSalesMixedCustomerGroupKeepsFirst(t *testing.T) {
	csvData := `transaction_id,customer_id,product_id,quantity,unit_price,transaction_date
T1,C001,P001,1,10.00,2024-01-15
T1,C002,P002,1,20.00,2024-01-15
`
	store := newFakeStore()
	q := quality.NewMetrics()
	customers, products := salesMaps()

	if err := LoadSales(context.Background(), &fakeRepo{store: store}, reader(csvData), "s.csv", q, customers, products); err != nil {
		t.Fatalf("LoadSales: %v", err)
	}

	orders := store.tables[TableOrders]
	if len(orders) != 1 {
		t.Fatalf("stored %d orders, want 1", len(orders))
	}
	if got := orders[0]["customer_id"]; got != int64(1) {
		t.Fatalf("order customer = %v, want first row's key 1", got)
	}
	if got := orders[0]["total_amount"]; got != 30.00 {
		t.Fatalf("order total = %v, want 30.00", got)
	}
	if len(store.tables[TableOrderItems]) != 2 {
		t.Fatalf("stored %d items, want 2", len(store.tables[TableOrderItems]))
	}
}
