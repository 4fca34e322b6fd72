package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dkovalev/ledgerkeep/internal/docstore"
	"github.com/dkovalev/ledgerkeep/internal/ledger"
)

func TestTransactionRoundTrip(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	tx := &ledger.Transaction{
		ID:      "tx-1",
		OwnerID: "user-1",
		Amount:  12.34,
		Type:    ledger.TypeExpense,
		Date:    time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := s.PutTransaction(ctx, tx); err != nil {
		t.Fatalf("PutTransaction failed: %v", err)
	}

	got, rev, err := s.GetTransaction(ctx, "tx-1")
	if err != nil {
		t.Fatalf("GetTransaction failed: %v", err)
	}
	if got.Amount != 12.34 || got.OwnerID != "user-1" {
		t.Errorf("round trip lost data: %+v", got)
	}
	if rev.Seq == 0 {
		t.Error("revision sequence not assigned")
	}

	if _, _, err := s.GetTransaction(ctx, "no-such-id"); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("absent id: err = %v, want ErrNotFound", err)
	}
}

func TestPutTransaction_RequiresID(t *testing.T) {
	s := NewStore()
	if err := s.PutTransaction(context.Background(), &ledger.Transaction{}); err == nil {
		t.Error("PutTransaction accepted a transaction without an ID")
	}
}

func TestConditionalUpdate_StaleRevision(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	p := &ledger.InstallmentPurchase{
		ID:                "p-1",
		OwnerID:           "user-1",
		TotalInstallments: 4,
		TransactionIDs:    []string{},
	}
	if err := s.PutPurchase(ctx, p); err != nil {
		t.Fatalf("PutPurchase failed: %v", err)
	}

	first, rev, err := s.GetPurchase(ctx, "p-1")
	if err != nil {
		t.Fatalf("GetPurchase failed: %v", err)
	}

	// A write through the same revision wins.
	first.PaidInstallments = 1
	if err := s.UpdatePurchase(ctx, first, rev); err != nil {
		t.Fatalf("UpdatePurchase failed: %v", err)
	}

	// Replaying the now-stale revision loses deterministically.
	first.PaidInstallments = 2
	if err := s.UpdatePurchase(ctx, first, rev); !errors.Is(err, docstore.ErrConflict) {
		t.Fatalf("stale revision: err = %v, want ErrConflict", err)
	}

	got, _, err := s.GetPurchase(ctx, "p-1")
	if err != nil {
		t.Fatalf("GetPurchase failed: %v", err)
	}
	if got.PaidInstallments != 1 {
		t.Errorf("losing write applied: paid = %d, want 1", got.PaidInstallments)
	}
}

func TestReadsReturnCopies(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	paid := time.Date(2024, time.April, 2, 0, 0, 0, 0, time.UTC)
	sub := &ledger.Subscription{
		Transaction: ledger.Transaction{
			ID:      "sub-1",
			OwnerID: "user-1",
			Amount:  9.99,
		},
		NextPaymentDate: time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC),
		LastPaymentDate: &paid,
	}
	if err := s.PutSubscription(ctx, sub); err != nil {
		t.Fatalf("PutSubscription failed: %v", err)
	}

	// Mutating the caller's struct after Put must not reach the store.
	sub.Amount = 0
	*sub.LastPaymentDate = time.Time{}

	got, _, err := s.GetSubscription(ctx, "sub-1")
	if err != nil {
		t.Fatalf("GetSubscription failed: %v", err)
	}
	if got.Amount != 9.99 {
		t.Errorf("stored amount mutated through caller's struct: %v", got.Amount)
	}
	if got.LastPaymentDate == nil || !got.LastPaymentDate.Equal(paid) {
		t.Errorf("stored last payment date mutated: %v", got.LastPaymentDate)
	}

	// And mutating a read result must not reach the store either.
	got.Amount = 1
	again, _, err := s.GetSubscription(ctx, "sub-1")
	if err != nil {
		t.Fatalf("GetSubscription failed: %v", err)
	}
	if again.Amount != 9.99 {
		t.Errorf("stored amount mutated through read result: %v", again.Amount)
	}

	p := &ledger.InstallmentPurchase{
		ID:             "p-1",
		OwnerID:        "user-1",
		TransactionIDs: []string{"tx-1"},
	}
	if err := s.PutPurchase(ctx, p); err != nil {
		t.Fatalf("PutPurchase failed: %v", err)
	}
	gotP, _, err := s.GetPurchase(ctx, "p-1")
	if err != nil {
		t.Fatalf("GetPurchase failed: %v", err)
	}
	gotP.TransactionIDs[0] = "tampered"
	again2, _, err := s.GetPurchase(ctx, "p-1")
	if err != nil {
		t.Fatalf("GetPurchase failed: %v", err)
	}
	if again2.TransactionIDs[0] != "tx-1" {
		t.Errorf("stored transaction ids mutated through read result: %v", again2.TransactionIDs)
	}
}

func TestTransactionsByOwner_Filtering(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	for i, owner := range []string{"user-1", "user-1", "user-2"} {
		tx := &ledger.Transaction{
			ID:      string(rune('a' + i)),
			OwnerID: owner,
			Date:    time.Date(2024, time.June, i+1, 0, 0, 0, 0, time.UTC),
		}
		if err := s.PutTransaction(ctx, tx); err != nil {
			t.Fatalf("PutTransaction failed: %v", err)
		}
	}

	txs, err := s.TransactionsByOwner(ctx, "user-1", true)
	if err != nil {
		t.Fatalf("TransactionsByOwner failed: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txs))
	}
	if txs[0].Date.Before(txs[1].Date) {
		t.Errorf("ordered query not descending: %v, %v", txs[0].Date, txs[1].Date)
	}
}

func TestSimulateMissingTransactionIndex(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	s.SimulateMissingTransactionIndex(true)

	if _, err := s.TransactionsByOwner(ctx, "user-1", true); !errors.Is(err, docstore.ErrIndexMissing) {
		t.Errorf("ordered query: err = %v, want ErrIndexMissing", err)
	}
	// The unordered path stays available.
	if _, err := s.TransactionsByOwner(ctx, "user-1", false); err != nil {
		t.Errorf("unordered query failed: %v", err)
	}

	s.SimulateMissingTransactionIndex(false)
	if _, err := s.TransactionsByOwner(ctx, "user-1", true); err != nil {
		t.Errorf("ordered query after restore failed: %v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if err := s.DeleteTransaction(ctx, "never-existed"); err != nil {
		t.Errorf("DeleteTransaction on absent id: %v", err)
	}
	if err := s.DeleteSubscription(ctx, "never-existed"); err != nil {
		t.Errorf("DeleteSubscription on absent id: %v", err)
	}
	if err := s.DeletePurchase(ctx, "never-existed"); err != nil {
		t.Errorf("DeletePurchase on absent id: %v", err)
	}
}

func TestEnsureCollections(t *testing.T) {
	s := NewStore()
	if err := s.EnsureCollections(context.Background(),
		ledger.CollectionTransactions, ledger.CollectionSubscriptions, ledger.CollectionInstallmentPurchases); err != nil {
		t.Fatalf("EnsureCollections failed: %v", err)
	}
}
