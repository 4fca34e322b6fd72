// Package config loads service configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the binaries need to wire the ledger.
type Config struct {
	// Port is the HTTP listen port of the API facade.
	Port string `env:"PORT" envDefault:"8080"`

	// LogLevel is the zerolog level name (trace, debug, info, warn, error).
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Backend selects the document store: "firestore" or "memory".
	Backend string `env:"LEDGER_BACKEND" envDefault:"firestore"`

	// ProjectID is the GCP project hosting Firestore, BigQuery and GCS.
	// Required for the firestore backend and the export/backup features.
	ProjectID string `env:"GCP_PROJECT"`

	// Collection names in the document store.
	TransactionsCollection  string `env:"LEDGER_TRANSACTIONS_COLLECTION" envDefault:"transactions"`
	SubscriptionsCollection string `env:"LEDGER_SUBSCRIPTIONS_COLLECTION" envDefault:"subscriptions"`
	PurchasesCollection     string `env:"LEDGER_PURCHASES_COLLECTION" envDefault:"installment_purchases"`

	// BackupBucket is the GCS bucket receiving ledger snapshots. Empty
	// disables the backup endpoint.
	BackupBucket string `env:"LEDGER_BACKUP_BUCKET"`

	// AnalyticsDataset and AnalyticsTable locate the BigQuery reporting
	// table. Empty dataset disables the export endpoint.
	AnalyticsDataset string `env:"LEDGER_BQ_DATASET"`
	AnalyticsTable   string `env:"LEDGER_BQ_TABLE" envDefault:"ledger_transactions"`
}

// Load parses the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("Load: parsing environment: %w", err)
	}
	return cfg, nil
}
