// Command export streams one owner's transactions into the BigQuery
// reporting table for dashboards and ad-hoc SQL.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/dkovalev/ledgerkeep/internal/analytics"
	"github.com/dkovalev/ledgerkeep/internal/config"
	"github.com/dkovalev/ledgerkeep/internal/docstore/firestorex"
	"github.com/dkovalev/ledgerkeep/internal/ledger"
	"github.com/dkovalev/ledgerkeep/internal/logger"
)

var (
	owner   = flag.String("owner", "", "Owner ID whose transactions to export (required)")
	dataset = flag.String("dataset", "", "BigQuery dataset (defaults to LEDGER_BQ_DATASET)")
	timeout = flag.Duration("timeout", 2*time.Minute, "Overall timeout for the export")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		l := logger.New()
		l.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.NewWithLevel(cfg.LogLevel)

	if *owner == "" {
		log.Fatal().Msg("-owner flag is required")
	}
	datasetID := cfg.AnalyticsDataset
	if *dataset != "" {
		datasetID = *dataset
	}
	if datasetID == "" {
		log.Fatal().Msg("-dataset flag or LEDGER_BQ_DATASET is required")
	}
	if cfg.ProjectID == "" {
		log.Fatal().Msg("GCP_PROJECT is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store, err := firestorex.New(ctx, cfg.ProjectID,
		firestorex.WithCollections(cfg.TransactionsCollection, cfg.SubscriptionsCollection, cfg.PurchasesCollection))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create firestore store")
	}
	defer store.Close()

	txSvc := ledger.NewTransactionService(store, logger.WithComponent(log, "transactions"))
	txs, err := txSvc.ListByOwner(ctx, *owner, nil, nil)
	if err != nil {
		log.Fatal().Err(err).Str("owner_id", *owner).Msg("Failed to list transactions")
	}

	exporter, err := analytics.NewExporter(ctx, cfg.ProjectID, datasetID, cfg.AnalyticsTable)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create exporter")
	}
	defer exporter.Close()

	if err := exporter.ExportTransactions(ctx, txs); err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}

	log.Info().
		Str("owner_id", *owner).
		Int("count", len(txs)).
		Str("dataset", datasetID).
		Str("table", cfg.AnalyticsTable).
		Msg("Transactions exported")
}
