// Package analytics exports ledger transactions to a BigQuery reporting
// table. The ledger itself never reads this data back; it exists for
// external dashboards and ad-hoc SQL.
package analytics

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/dkovalev/ledgerkeep/internal/ledger"
)

// Row is the BigQuery representation of a ledger transaction.
type Row struct {
	TransactionID      string    `bigquery:"transaction_id"`
	OwnerID            string    `bigquery:"owner_id"`
	Amount             float64   `bigquery:"amount"`
	Type               string    `bigquery:"type"`
	Category           string    `bigquery:"category"`
	Description        string    `bigquery:"description"`
	Date               time.Time `bigquery:"transaction_date"`
	IsRecurring        bool      `bigquery:"is_recurring"`
	SubscriptionID     string    `bigquery:"subscription_id"`
	InstallmentGroupID string    `bigquery:"installment_group_id"`
	InstallmentNumber  int       `bigquery:"installment_number"`
	TotalInstallments  int       `bigquery:"total_installments"`
	IsInstallment      bool      `bigquery:"is_installment"`
	CreatedTS          time.Time `bigquery:"created_ts"`
	UpdatedTS          time.Time `bigquery:"updated_ts"`
}

// RowFromTransaction maps a ledger transaction into its reporting row.
func RowFromTransaction(tx *ledger.Transaction) *Row {
	return &Row{
		TransactionID:      tx.ID,
		OwnerID:            tx.OwnerID,
		Amount:             tx.Amount,
		Type:               string(tx.Type),
		Category:           tx.Category,
		Description:        tx.Description,
		Date:               tx.Date,
		IsRecurring:        tx.IsRecurring,
		SubscriptionID:     tx.SubscriptionID,
		InstallmentGroupID: tx.InstallmentGroupID,
		InstallmentNumber:  tx.InstallmentNumber,
		TotalInstallments:  tx.TotalInstallments,
		IsInstallment:      tx.IsInstallment,
		CreatedTS:          tx.CreatedAt,
		UpdatedTS:          tx.UpdatedAt,
	}
}

// Exporter streams transaction rows into BigQuery with a shared client.
type Exporter struct {
	client  *bigquery.Client
	dataset string
	table   string
}

// NewExporter creates an exporter for the given project, dataset and table.
func NewExporter(ctx context.Context, projectID, dataset, table string) (*Exporter, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewExporter: bigquery client: %w", err)
	}
	return &Exporter{client: client, dataset: dataset, table: table}, nil
}

// Close closes the BigQuery client connection.
func (e *Exporter) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// ExportTransactions inserts a batch of transactions into the reporting
// table.
func (e *Exporter) ExportTransactions(ctx context.Context, txs []*ledger.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	rows := make([]*Row, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, RowFromTransaction(tx))
	}

	inserter := e.client.Dataset(e.dataset).Table(e.table).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("ExportTransactions: inserting rows: %w", err)
	}
	return nil
}
