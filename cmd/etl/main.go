package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"fleximart/internal/config"
	"fleximart/internal/metrics"
	"fleximart/internal/metrics/datadog"
	"fleximart/internal/pipeline"
	"fleximart/internal/storage"

	// register all storage backends with the factory.
	// the -storage flag selects which one a run actually uses.
	_ "fleximart/internal/storage/all"
)

// main is the entry point for the batch ETL binary. It resolves storage
// configuration, optionally initializes a metrics backend, and executes the
// customers -> products -> sales run.
func main() {
	var (
		customersPath     string
		productsPath      string
		salesPath         string
		storageKind       string
		dsnFlg            string
		reportPath        string
		schemaOutPath     string
		metricsBackendFlg string
	)

	flag.StringVar(&customersPath, "customers", "data/customers_raw.csv", "customers source CSV path")
	flag.StringVar(&productsPath, "products", "data/products_raw.csv", "products source CSV path")
	flag.StringVar(&salesPath, "sales", "data/sales_raw.csv", "sales source CSV path")
	flag.StringVar(&storageKind, "storage", "postgres", "storage backend (postgres, sqlite, mssql)")
	flag.StringVar(&dsnFlg, "dsn", "", "storage DSN (overrides DB_* environment config)")
	flag.StringVar(&reportPath, "report", "data_quality_report.txt", "data quality report output path")
	flag.StringVar(&schemaOutPath, "schema-out", "fleximart_schema.sql", "schema DDL export path (empty disables)")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "none", "metrics backend to use (datadog, none)")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	dsn, err := resolveDSN(storageKind, dsnFlg)
	if err != nil {
		fatalf("storage config: %v", err)
	}

	// Decide metrics backend: flag → env → default.
	backendName := metricsBackendFlg
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "datadog":
		// The Datadog backend buffers counters and stage timings and
		// submits periodically, plus one final time at Close().
		extraTags := datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS"))

		b, err := datadog.NewBackend(context.Background(), datadog.Options{
			JobName:    "fleximart_etl",
			Tags:       extraTags,
			FlushEvery: 60 * time.Second,
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
		} else {
			log.Printf("metrics: backend=%v tags=%v", backendName, extraTags)
			metrics.SetBackend(b)

			// Close() stops the periodic flush loop and then performs a
			// final Flush(). This is the clean shutdown path.
			defer func() {
				if err := b.Close(); err != nil {
					log.Printf("metrics: datadog close/flush error: %v", err)
				}
			}()
		}

	case "", "none":
		// metrics disabled; nop backend remains
		if *verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}

	cfg := pipeline.Config{
		Storage:       storage.Config{Kind: storageKind, DSN: dsn},
		CustomersPath: customersPath,
		ProductsPath:  productsPath,
		SalesPath:     salesPath,
		ReportPath:    reportPath,
		SchemaOutPath: schemaOutPath,
	}

	ctx := context.Background()
	start := time.Now()

	if *verbose {
		log.Printf("pipeline: storage=%s customers=%s products=%s sales=%s",
			storageKind, customersPath, productsPath, salesPath)
	}

	if _, err := pipeline.Run(ctx, cfg); err != nil {
		log.Fatalf("%v", err)
	}

	log.Printf("completed in %s, report at %s", time.Since(start).Truncate(time.Millisecond), reportPath)
}

// resolveDSN prefers an explicit -dsn flag; otherwise it builds one from the
// DB_* environment, prompting for the password when absent and a terminal is
// attached.
func resolveDSN(kind, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	db, err := config.FromEnv()
	if err != nil {
		return "", err
	}
	if err := db.PromptPasswordIfEmpty(); err != nil {
		return "", err
	}
	return db.DSN(kind)
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
