package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dkovalev/ledgerkeep/internal/docstore"
	"github.com/dkovalev/ledgerkeep/internal/docstore/memory"
	"github.com/dkovalev/ledgerkeep/internal/ledger"
)

func newSubscriptionService(store ledger.Store) *ledger.SubscriptionService {
	return ledger.NewSubscriptionService(store, zerolog.Nop())
}

func TestCreateSubscription(t *testing.T) {
	store := memory.NewStore()
	svc := newSubscriptionService(store)
	ctx := context.Background()

	next := date(2024, time.September, 1)
	sub, err := svc.Create(ctx, testOwner, ledger.CreateSubscriptionInput{
		Amount:          9.99,
		Category:        "entertainment",
		Description:     "Streaming",
		Frequency:       ledger.FrequencyMonthly,
		NextPaymentDate: next,
		AutoRenew:       true,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if sub.Type != ledger.TypeExpense {
		t.Errorf("type = %q, want expense", sub.Type)
	}
	if !sub.IsRecurring {
		t.Error("subscription not flagged recurring")
	}
	if !sub.NextPaymentDate.Equal(next) {
		t.Errorf("next payment date = %v, want %v", sub.NextPaymentDate, next)
	}
	if sub.LastPaymentDate != nil || sub.LastPaymentTransactionID != "" {
		t.Errorf("new subscription already has payment history: %+v", sub)
	}

	if _, err := svc.Create(ctx, "", ledger.CreateSubscriptionInput{Amount: 1}); !errors.Is(err, ledger.ErrNotAuthenticated) {
		t.Errorf("empty owner: err = %v, want ErrNotAuthenticated", err)
	}
}

func TestListSubscriptions_SortedByNextPayment(t *testing.T) {
	store := memory.NewStore()
	svc := newSubscriptionService(store)
	ctx := context.Background()

	days := []int{20, 5, 12}
	for _, d := range days {
		if _, err := svc.Create(ctx, testOwner, ledger.CreateSubscriptionInput{
			Amount:          10,
			Description:     "Sub",
			Frequency:       ledger.FrequencyMonthly,
			NextPaymentDate: date(2024, time.October, d),
		}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	if _, err := svc.Create(ctx, "somebody-else", ledger.CreateSubscriptionInput{
		Amount:          10,
		NextPaymentDate: date(2024, time.October, 1),
	}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	subs, err := svc.ListByOwner(ctx, testOwner)
	if err != nil {
		t.Fatalf("ListByOwner failed: %v", err)
	}
	if len(subs) != 3 {
		t.Fatalf("got %d subscriptions, want 3", len(subs))
	}
	for i := 1; i < len(subs); i++ {
		if subs[i].NextPaymentDate.Before(subs[i-1].NextPaymentDate) {
			t.Fatalf("subscriptions out of order at %d: %v before %v", i, subs[i].NextPaymentDate, subs[i-1].NextPaymentDate)
		}
	}
}

func TestRecordPayment(t *testing.T) {
	store := memory.NewStore()
	svc := newSubscriptionService(store)
	ctx := context.Background()

	next := date(2024, time.November, 1)
	sub, err := svc.Create(ctx, testOwner, ledger.CreateSubscriptionInput{
		Amount:          15.50,
		Category:        "fitness",
		Description:     "Gym",
		Frequency:       ledger.FrequencyMonthly,
		NextPaymentDate: next,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	tx, err := svc.RecordPayment(ctx, testOwner, sub.ID)
	if err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}

	if tx.Amount != 15.50 || tx.Type != ledger.TypeExpense {
		t.Errorf("payment transaction = %+v", tx)
	}
	if tx.SubscriptionID != sub.ID {
		t.Errorf("transaction subscription id = %q, want %q", tx.SubscriptionID, sub.ID)
	}
	if !tx.IsRecurring {
		t.Error("payment transaction not flagged recurring")
	}

	after, _, err := store.GetSubscription(ctx, sub.ID)
	if err != nil {
		t.Fatalf("GetSubscription failed: %v", err)
	}
	if after.LastPaymentDate == nil || !after.LastPaymentDate.Equal(tx.Date) {
		t.Errorf("last payment date = %v, want %v", after.LastPaymentDate, tx.Date)
	}
	if after.LastPaymentTransactionID != tx.ID {
		t.Errorf("last payment transaction id = %q, want %q", after.LastPaymentTransactionID, tx.ID)
	}
	// Recording a payment does not advance the cadence.
	if !after.NextPaymentDate.Equal(next) {
		t.Errorf("next payment date moved to %v, want %v", after.NextPaymentDate, next)
	}
}

func TestRecordPayment_ForeignOwner(t *testing.T) {
	store := memory.NewStore()
	svc := newSubscriptionService(store)
	ctx := context.Background()

	sub, err := svc.Create(ctx, testOwner, ledger.CreateSubscriptionInput{
		Amount:          8,
		Description:     "News",
		Frequency:       ledger.FrequencyMonthly,
		NextPaymentDate: date(2024, time.December, 1),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := svc.RecordPayment(ctx, "somebody-else", sub.ID); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("foreign owner: err = %v, want ErrNotFound", err)
	}

	// The rejected payment must not leave a transaction behind.
	txs, err := store.TransactionsByOwner(ctx, "somebody-else", false)
	if err != nil {
		t.Fatalf("TransactionsByOwner failed: %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("rejected payment created %d transactions", len(txs))
	}
}

func TestUpdateSubscription(t *testing.T) {
	store := memory.NewStore()
	svc := newSubscriptionService(store)
	ctx := context.Background()

	sub, err := svc.Create(ctx, testOwner, ledger.CreateSubscriptionInput{
		Amount:          12,
		Category:        "software",
		Description:     "Editor license",
		Frequency:       ledger.FrequencyMonthly,
		NextPaymentDate: date(2024, time.July, 15),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	amount := 14.0
	freq := ledger.FrequencyYearly
	updated, err := svc.Update(ctx, testOwner, sub.ID, ledger.SubscriptionUpdate{
		Amount:    &amount,
		Frequency: &freq,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Amount != amount || updated.Frequency != freq {
		t.Errorf("update not applied: %+v", updated)
	}
	if updated.Description != "Editor license" {
		t.Errorf("untouched description changed to %q", updated.Description)
	}

	if _, err := svc.Update(ctx, "somebody-else", sub.ID, ledger.SubscriptionUpdate{Amount: &amount}); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("foreign owner: err = %v, want ErrNotFound", err)
	}
}

func TestDeleteSubscription_KeepsPaymentHistory(t *testing.T) {
	store := memory.NewStore()
	svc := newSubscriptionService(store)
	ctx := context.Background()

	sub, err := svc.Create(ctx, testOwner, ledger.CreateSubscriptionInput{
		Amount:          20,
		Description:     "Cloud storage",
		Frequency:       ledger.FrequencyMonthly,
		NextPaymentDate: date(2024, time.August, 1),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	tx, err := svc.RecordPayment(ctx, testOwner, sub.ID)
	if err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}

	if err := svc.Delete(ctx, testOwner, sub.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, _, err := store.GetSubscription(ctx, sub.ID); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("subscription still present: err = %v", err)
	}

	// The payment transaction stays, now carrying a dangling reference.
	stored, _, err := store.GetTransaction(ctx, tx.ID)
	if err != nil {
		t.Fatalf("payment transaction gone after subscription delete: %v", err)
	}
	if stored.SubscriptionID != sub.ID {
		t.Errorf("transaction lost its subscription reference: %+v", stored)
	}
}
