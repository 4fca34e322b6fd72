// Command backup writes a JSON snapshot of one owner's ledger to GCS.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/dkovalev/ledgerkeep/internal/backup"
	"github.com/dkovalev/ledgerkeep/internal/config"
	"github.com/dkovalev/ledgerkeep/internal/docstore/firestorex"
	"github.com/dkovalev/ledgerkeep/internal/logger"
)

var (
	owner   = flag.String("owner", "", "Owner ID whose ledger to snapshot (required)")
	bucket  = flag.String("bucket", "", "GCS bucket (defaults to LEDGER_BACKUP_BUCKET)")
	timeout = flag.Duration("timeout", 2*time.Minute, "Overall timeout for the snapshot")
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
	bucketName := cfg.BackupBucket
	if *bucket != "" {
		bucketName = *bucket
	}
	if bucketName == "" {
		log.Fatal().Msg("-bucket flag or LEDGER_BACKUP_BUCKET is required")
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

	dst, err := backup.NewGCSBucket(ctx, bucketName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create GCS bucket writer")
	}
	defer dst.Close()

	objectName, err := backup.Take(ctx, store, dst, *owner)
	if err != nil {
		log.Fatal().Err(err).Str("owner_id", *owner).Msg("Snapshot failed")
	}

	log.Info().Str("owner_id", *owner).Str("object", objectName).Str("bucket", bucketName).Msg("Ledger snapshot written")
}
