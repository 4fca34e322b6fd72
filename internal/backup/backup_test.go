package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/dkovalev/ledgerkeep/internal/docstore/memory"
	"github.com/dkovalev/ledgerkeep/internal/ledger"
)

// captureWriter records every object written and its payload.
type captureWriter struct {
	objects map[string]*bytes.Buffer
}

func newCaptureWriter() *captureWriter {
	return &captureWriter{objects: make(map[string]*bytes.Buffer)}
}

func (c *captureWriter) NewWriter(ctx context.Context, objectName string) io.WriteCloser {
	buf := &bytes.Buffer{}
	c.objects[objectName] = buf
	return nopCloser{buf}
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func TestObjectName(t *testing.T) {
	ts := time.Date(2024, time.June, 5, 12, 30, 45, 0, time.UTC)
	got := ObjectName("user-1", ts)
	want := "ledger/user-1/20240605T123045Z.json"
	if got != want {
		t.Errorf("ObjectName = %q, want %q", got, want)
	}
}

func TestTake(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	tx := &ledger.Transaction{
		ID:      "tx-1",
		OwnerID: "user-1",
		Amount:  42,
		Type:    ledger.TypeExpense,
		Date:    time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := store.PutTransaction(ctx, tx); err != nil {
		t.Fatalf("PutTransaction failed: %v", err)
	}
	sub := &ledger.Subscription{
		Transaction: ledger.Transaction{ID: "sub-1", OwnerID: "user-1", Amount: 9.99},
	}
	if err := store.PutSubscription(ctx, sub); err != nil {
		t.Fatalf("PutSubscription failed: %v", err)
	}
	p := &ledger.InstallmentPurchase{ID: "p-1", OwnerID: "user-1", TransactionIDs: []string{"tx-1"}}
	if err := store.PutPurchase(ctx, p); err != nil {
		t.Fatalf("PutPurchase failed: %v", err)
	}

	// Foreign data must not end up in the snapshot.
	foreign := &ledger.Transaction{ID: "tx-2", OwnerID: "user-2", Amount: 1}
	if err := store.PutTransaction(ctx, foreign); err != nil {
		t.Fatalf("PutTransaction failed: %v", err)
	}

	dst := newCaptureWriter()
	objectName, err := Take(ctx, store, dst, "user-1")
	if err != nil {
		t.Fatalf("Take failed: %v", err)
	}

	if !strings.HasPrefix(objectName, "ledger/user-1/") || !strings.HasSuffix(objectName, ".json") {
		t.Errorf("object name = %q", objectName)
	}
	buf, ok := dst.objects[objectName]
	if !ok {
		t.Fatalf("no object written under %q", objectName)
	}

	var snap Snapshot
	if err := json.Unmarshal(buf.Bytes(), &snap); err != nil {
		t.Fatalf("snapshot is not valid JSON: %v", err)
	}
	if snap.OwnerID != "user-1" {
		t.Errorf("snapshot owner = %q", snap.OwnerID)
	}
	if len(snap.Transactions) != 1 || snap.Transactions[0].ID != "tx-1" {
		t.Errorf("snapshot transactions = %+v", snap.Transactions)
	}
	if len(snap.Subscriptions) != 1 || snap.Subscriptions[0].ID != "sub-1" {
		t.Errorf("snapshot subscriptions = %+v", snap.Subscriptions)
	}
	if len(snap.Purchases) != 1 || snap.Purchases[0].ID != "p-1" {
		t.Errorf("snapshot purchases = %+v", snap.Purchases)
	}
}

func TestTake_RequiresOwner(t *testing.T) {
	dst := newCaptureWriter()
	if _, err := Take(context.Background(), memory.NewStore(), dst, ""); !errors.Is(err, ledger.ErrNotAuthenticated) {
		t.Errorf("empty owner: err = %v, want ErrNotAuthenticated", err)
	}
	if len(dst.objects) != 0 {
		t.Errorf("object written despite rejected snapshot")
	}
}
