// Command bootstrap ensures the ledger's backing collections exist and are
// reachable. Run it once before the first deployment of the API server.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/dkovalev/ledgerkeep/internal/config"
	"github.com/dkovalev/ledgerkeep/internal/docstore/firestorex"
	"github.com/dkovalev/ledgerkeep/internal/logger"
)

var (
	project = flag.String("project", "", "GCP project ID (defaults to GCP_PROJECT)")
	timeout = flag.Duration("timeout", 30*time.Second, "Overall timeout for the bootstrap")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		l := logger.New()
		l.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.NewWithLevel(cfg.LogLevel)

	projectID := cfg.ProjectID
	if *project != "" {
		projectID = *project
	}
	if projectID == "" {
		log.Fatal().Msg("-project flag or GCP_PROJECT is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store, err := firestorex.New(ctx, projectID,
		firestorex.WithCollections(cfg.TransactionsCollection, cfg.SubscriptionsCollection, cfg.PurchasesCollection))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create firestore store")
	}
	defer store.Close()

	collections := []string{cfg.TransactionsCollection, cfg.SubscriptionsCollection, cfg.PurchasesCollection}
	if err := store.EnsureCollections(ctx, collections...); err != nil {
		log.Fatal().Err(err).Strs("collections", collections).Msg("Bootstrap failed")
	}

	log.Info().Str("project", projectID).Strs("collections", collections).Msg("Ledger collections ready")
}
