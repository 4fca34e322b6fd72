// Package backup serializes an owner's full ledger into a JSON snapshot
// object in GCS. Snapshots are write-only from the ledger's point of view;
// restore tooling lives elsewhere.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"

	"github.com/dkovalev/ledgerkeep/internal/ledger"
)

// ObjectWriter abstracts the destination bucket so tests can capture the
// payload without GCS.
type ObjectWriter interface {
	// NewWriter opens a writer for the named object. Closing the writer
	// finalizes the upload.
	NewWriter(ctx context.Context, objectName string) io.WriteCloser
}

// GCSBucket is the production ObjectWriter backed by a GCS bucket.
type GCSBucket struct {
	client *storage.Client
	bucket string
}

// NewGCSBucket creates an ObjectWriter for the named bucket. It assumes
// Application Default Credentials are configured.
func NewGCSBucket(ctx context.Context, bucket string) (*GCSBucket, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSBucket: creating storage client: %w", err)
	}
	return &GCSBucket{client: client, bucket: bucket}, nil
}

// Close closes the storage client.
func (b *GCSBucket) Close() error {
	if b.client != nil {
		return b.client.Close()
	}
	return nil
}

// NewWriter implements ObjectWriter.
func (b *GCSBucket) NewWriter(ctx context.Context, objectName string) io.WriteCloser {
	w := b.client.Bucket(b.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = "application/json"
	return w
}

// Snapshot is the serialized form of one owner's ledger.
type Snapshot struct {
	OwnerID       string                        `json:"ownerId"`
	TakenAt       time.Time                     `json:"takenAt"`
	Transactions  []*ledger.Transaction         `json:"transactions"`
	Subscriptions []*ledger.Subscription        `json:"subscriptions"`
	Purchases     []*ledger.InstallmentPurchase `json:"installmentPurchases"`
}

// ObjectName returns the object path for a snapshot of ownerID taken at t.
func ObjectName(ownerID string, t time.Time) string {
	return fmt.Sprintf("ledger/%s/%s.json", ownerID, t.UTC().Format("20060102T150405Z"))
}

// Take reads the owner's entire ledger from store and writes it as one
// JSON object, returning the object name.
func Take(ctx context.Context, store ledger.Store, dst ObjectWriter, ownerID string) (string, error) {
	if ownerID == "" {
		return "", fmt.Errorf("Take: %w", ledger.ErrNotAuthenticated)
	}

	txs, err := store.TransactionsByOwner(ctx, ownerID, false)
	if err != nil {
		return "", fmt.Errorf("Take: listing transactions: %w", err)
	}
	subs, err := store.SubscriptionsByOwner(ctx, ownerID)
	if err != nil {
		return "", fmt.Errorf("Take: listing subscriptions: %w", err)
	}
	purchases, err := store.PurchasesByOwner(ctx, ownerID)
	if err != nil {
		return "", fmt.Errorf("Take: listing purchases: %w", err)
	}

	snap := Snapshot{
		OwnerID:       ownerID,
		TakenAt:       time.Now().UTC(),
		Transactions:  txs,
		Subscriptions: subs,
		Purchases:     purchases,
	}

	objectName := ObjectName(ownerID, snap.TakenAt)
	w := dst.NewWriter(ctx, objectName)
	if err := json.NewEncoder(w).Encode(&snap); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("Take: encoding snapshot: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Take: finalizing upload: %w", err)
	}

	return objectName, nil
}
