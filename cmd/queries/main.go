package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"fleximart/internal/config"
	"fleximart/internal/storage"

	_ "fleximart/internal/storage/all"
)

// The queries binary runs the fixed analytical queries against a loaded
// FlexiMart schema and prints tabular results. It shares the storage
// selection mechanics with the ETL binary but touches no pipeline state.
func main() {
	var (
		storageKind string
		dsnFlg      string
	)
	flag.StringVar(&storageKind, "storage", "postgres", "storage backend (postgres, sqlite, mssql)")
	flag.StringVar(&dsnFlg, "dsn", "", "storage DSN (overrides DB_* environment config)")
	flag.Parse()

	dsn := dsnFlg
	if dsn == "" {
		db, err := config.FromEnv()
		if err != nil {
			fatalf("storage config: %v", err)
		}
		if err := db.PromptPasswordIfEmpty(); err != nil {
			fatalf("storage config: %v", err)
		}
		if dsn, err = db.DSN(storageKind); err != nil {
			fatalf("storage config: %v", err)
		}
	}

	ctx := context.Background()
	repo, err := storage.New(ctx, storage.Config{Kind: storageKind, DSN: dsn})
	if err != nil {
		fatalf("open storage kind=%s: %v", storageKind, err)
	}
	defer repo.Close()

	fmt.Println("Running Business Queries for FlexiMart Database")
	fmt.Println(strings.Repeat("=", 80))

	for _, q := range businessQueries(storageKind) {
		runQuery(ctx, repo, q)
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("All queries completed!")
}

type namedQuery struct {
	name string
	sql  string
}

func runQuery(ctx context.Context, repo storage.Repository, q namedQuery) {
	fmt.Printf("\n%s\n", strings.Repeat("=", 80))
	fmt.Println(q.name)
	fmt.Println(strings.Repeat("=", 80))

	columns, rows, err := repo.Query(ctx, q.sql)
	if err != nil {
		log.Printf("query %q failed: %v", q.name, err)
		return
	}

	if len(rows) == 0 {
		fmt.Println("No results found.")
		return
	}

	cells := make([]string, len(columns))
	for i, c := range columns {
		cells[i] = fmt.Sprintf("%-20s", c)
	}
	fmt.Println("\n" + strings.Join(cells, " | "))
	fmt.Println(strings.Repeat("-", 80))

	for _, row := range rows {
		for i, v := range row {
			cells[i] = fmt.Sprintf("%-20v", v)
		}
		fmt.Println(strings.Join(cells, " | "))
	}
	fmt.Printf("\nTotal rows: %d\n", len(rows))
}

// businessQueries returns the three analytical queries in the target
// backend's dialect. The joins and aggregations are identical everywhere;
// only string concatenation and calendar functions differ.
func businessQueries(kind string) []namedQuery {
	return []namedQuery{
		{"Query 1: Customer Purchase History", customerHistorySQL(kind)},
		{"Query 2: Product Sales Analysis", productAnalysisSQL},
		{"Query 3: Monthly Sales Trend", monthlyTrendSQL(kind)},
	}
}

func customerHistorySQL(kind string) string {
	name := "CONCAT(c.first_name, ' ', c.last_name)"
	if kind == "sqlite" {
		name = "c.first_name || ' ' || c.last_name"
	}
	return fmt.Sprintf(`
SELECT
    %s AS customer_name,
    c.email,
    COUNT(DISTINCT o.order_id) AS total_orders,
    SUM(oi.subtotal) AS total_spent
FROM
    customers c
    INNER JOIN orders o ON c.customer_id = o.customer_id
    INNER JOIN order_items oi ON o.order_id = oi.order_id
GROUP BY
    c.customer_id, c.first_name, c.last_name, c.email
HAVING
    COUNT(DISTINCT o.order_id) >= 2
    AND SUM(oi.subtotal) > 5000
ORDER BY
    total_spent DESC;`, name)
}

const productAnalysisSQL = `
SELECT
    p.category,
    COUNT(DISTINCT p.product_id) AS num_products,
    SUM(oi.quantity) AS total_quantity_sold,
    SUM(oi.subtotal) AS total_revenue
FROM
    products p
    INNER JOIN order_items oi ON p.product_id = oi.product_id
GROUP BY
    p.category
HAVING
    SUM(oi.subtotal) > 10000
ORDER BY
    total_revenue DESC;`

func monthlyTrendSQL(kind string) string {
	var monthName, monthNum, yearFilter string
	switch kind {
	case "sqlite":
		monthName = `CASE strftime('%m', o.order_date)
            WHEN '01' THEN 'January' WHEN '02' THEN 'February' WHEN '03' THEN 'March'
            WHEN '04' THEN 'April' WHEN '05' THEN 'May' WHEN '06' THEN 'June'
            WHEN '07' THEN 'July' WHEN '08' THEN 'August' WHEN '09' THEN 'September'
            WHEN '10' THEN 'October' WHEN '11' THEN 'November' ELSE 'December' END`
		monthNum = `CAST(strftime('%m', o.order_date) AS INTEGER)`
		yearFilter = `strftime('%Y', o.order_date) = '2024'`
	case "mssql":
		monthName = `DATENAME(month, o.order_date)`
		monthNum = `MONTH(o.order_date)`
		yearFilter = `YEAR(o.order_date) = 2024`
	default: // postgres
		monthName = `TRIM(TO_CHAR(o.order_date, 'Month'))`
		monthNum = `EXTRACT(MONTH FROM o.order_date)`
		yearFilter = `EXTRACT(YEAR FROM o.order_date) = 2024`
	}

	return fmt.Sprintf(`
SELECT
    month_name,
    total_orders,
    monthly_revenue,
    SUM(monthly_revenue) OVER (
        ORDER BY month_num
        ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW
    ) AS cumulative_revenue
FROM (
    SELECT
        %s AS month_name,
        %s AS month_num,
        COUNT(DISTINCT o.order_id) AS total_orders,
        SUM(o.total_amount) AS monthly_revenue
    FROM
        orders o
    WHERE
        %s
    GROUP BY
        %s, %s
) AS monthly_data
ORDER BY
    month_num;`, monthName, monthNum, yearFilter, monthNum, monthName)
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
