// Package pipeline wires extraction, cleaning and loading into one batch
// run: customers first, then products, then sales, because the sales
// aggregator needs both identity maps.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"fleximart/internal/metrics"
	"fleximart/internal/quality"
	"fleximart/internal/storage"
)

// Config describes one batch run.
type Config struct {
	Storage storage.Config

	CustomersPath string
	ProductsPath  string
	SalesPath     string

	// ReportPath receives the data quality report. Empty disables it.
	ReportPath string
	// SchemaOutPath receives the rendered DDL document. Empty disables it.
	SchemaOutPath string
}

// Run executes the full batch: schema creation, the three loads in
// dependency order, then the quality report. Each phase opens its own
// repository and closes it before the next phase starts, so a run holds at
// most one connection at a time.
//
// The returned metrics are valid even on error, reflecting everything
// processed up to the failure.
func Run(ctx context.Context, cfg Config) (*quality.Metrics, error) {
	q := quality.NewMetrics()

	if err := timed("schema", func() error { return createSchema(ctx, cfg) }); err != nil {
		return q, err
	}

	var customerIDs, productIDs *IdentityMap

	err := timed("customers", func() error {
		return withPhase(ctx, cfg.Storage, func(repo storage.Repository) error {
			src, err := os.Open(cfg.CustomersPath)
			if err != nil {
				return err
			}
			customerIDs, err = LoadCustomers(ctx, repo, src, cfg.CustomersPath, q)
			return err
		})
	})
	if err != nil {
		return q, err
	}
	log.Printf("stage=customers loaded=%d mapped=%d", q.Stats(cfg.CustomersPath).RecordsLoaded, customerIDs.Len())

	err = timed("products", func() error {
		return withPhase(ctx, cfg.Storage, func(repo storage.Repository) error {
			src, err := os.Open(cfg.ProductsPath)
			if err != nil {
				return err
			}
			productIDs, err = LoadProducts(ctx, repo, src, cfg.ProductsPath, q)
			return err
		})
	})
	if err != nil {
		return q, err
	}
	log.Printf("stage=products loaded=%d mapped=%d", q.Stats(cfg.ProductsPath).RecordsLoaded, productIDs.Len())

	err = timed("sales", func() error {
		return withPhase(ctx, cfg.Storage, func(repo storage.Repository) error {
			src, err := os.Open(cfg.SalesPath)
			if err != nil {
				return err
			}
			return LoadSales(ctx, repo, src, cfg.SalesPath, q, customerIDs, productIDs)
		})
	})
	if err != nil {
		return q, err
	}
	log.Printf("stage=sales items_loaded=%d", q.Stats(cfg.SalesPath).RecordsLoaded)

	if cfg.ReportPath != "" {
		f, err := os.Create(cfg.ReportPath)
		if err != nil {
			return q, fmt.Errorf("write report: %w", err)
		}
		if err := quality.WriteReport(f, q); err != nil {
			f.Close()
			return q, fmt.Errorf("write report: %w", err)
		}
		if err := f.Close(); err != nil {
			return q, fmt.Errorf("write report: %w", err)
		}
		log.Printf("stage=report path=%s", cfg.ReportPath)
	}

	return q, nil
}

// createSchema ensures the target tables exist and optionally exports the
// DDL document for review.
func createSchema(ctx context.Context, cfg Config) error {
	err := withPhase(ctx, cfg.Storage, func(repo storage.Repository) error {
		return repo.EnsureTables(ctx, Tables())
	})
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	if cfg.SchemaOutPath != "" {
		if err := os.WriteFile(cfg.SchemaOutPath, []byte(RenderDDL()), 0o644); err != nil {
			return fmt.Errorf("export schema: %w", err)
		}
		log.Printf("stage=schema exported=%s", cfg.SchemaOutPath)
	}
	return nil
}

// withPhase opens a repository for one phase and guarantees it is closed
// when the phase ends, on both success and failure paths.
func withPhase(ctx context.Context, cfg storage.Config, fn func(storage.Repository) error) error {
	repo, err := storage.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open storage kind=%s: %w", cfg.Kind, err)
	}
	defer repo.Close()
	return fn(repo)
}

func timed(stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.ObserveHistogram("etl_stage_duration_seconds", time.Since(start).Seconds(), metrics.Labels{"stage": stage})
	return err
}
