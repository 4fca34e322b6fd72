package analytics

import (
	"testing"
	"time"

	"github.com/dkovalev/ledgerkeep/internal/ledger"
)

func TestRowFromTransaction(t *testing.T) {
	date := time.Date(2024, time.June, 5, 0, 0, 0, 0, time.UTC)
	created := time.Date(2024, time.June, 5, 12, 30, 0, 0, time.UTC)

	tx := &ledger.Transaction{
		ID:                 "tx-1",
		OwnerID:            "user-1",
		Amount:             100,
		Type:               ledger.TypeExpense,
		Category:           "electronics",
		Description:        "Laptop (3/12)",
		Date:               date,
		InstallmentGroupID: "p-1",
		InstallmentNumber:  3,
		TotalInstallments:  12,
		IsInstallment:      true,
		CreatedAt:          created,
		UpdatedAt:          created,
	}

	row := RowFromTransaction(tx)

	if row.TransactionID != "tx-1" || row.OwnerID != "user-1" {
		t.Errorf("identity fields wrong: %+v", row)
	}
	if row.Amount != 100 || row.Type != "expense" || row.Category != "electronics" {
		t.Errorf("money fields wrong: %+v", row)
	}
	if !row.Date.Equal(date) || !row.CreatedTS.Equal(created) || !row.UpdatedTS.Equal(created) {
		t.Errorf("timestamps wrong: %+v", row)
	}
	if row.InstallmentGroupID != "p-1" || row.InstallmentNumber != 3 || row.TotalInstallments != 12 || !row.IsInstallment {
		t.Errorf("installment linkage wrong: %+v", row)
	}
	if row.IsRecurring || row.SubscriptionID != "" {
		t.Errorf("subscription fields set on installment row: %+v", row)
	}
}
