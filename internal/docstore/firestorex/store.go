// Package firestorex implements ledger.Store on Cloud Firestore.
//
// Backend failures are mapped onto the docstore sentinels by gRPC status
// code rather than by error text: FailedPrecondition on a query means the
// composite index backing the requested ordering has not been declared,
// NotFound means the document is absent, Unavailable and DeadlineExceeded
// mean the backend could not be reached. Conditional updates run inside a
// Firestore transaction comparing the document update time against the
// revision observed by the caller's read.
package firestorex

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dkovalev/ledgerkeep/internal/docstore"
	"github.com/dkovalev/ledgerkeep/internal/ledger"
)

// Store is a Firestore-backed implementation of ledger.Store. It holds a
// shared client to avoid opening a connection per operation.
type Store struct {
	client *firestore.Client

	transactions  string
	subscriptions string
	purchases     string
}

// Option customizes a Store.
type Option func(*Store)

// WithCollections overrides the default collection names.
func WithCollections(transactions, subscriptions, purchases string) Option {
	return func(s *Store) {
		s.transactions = transactions
		s.subscriptions = subscriptions
		s.purchases = purchases
	}
}

// New creates a Firestore-backed store for the given project. It assumes
// Application Default Credentials are configured.
func New(ctx context.Context, projectID string, opts ...Option) (*Store, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("New: creating firestore client: %w", err)
	}
	return NewWithClient(client, opts...), nil
}

// NewWithClient creates a store using the provided client. The caller
// retains ownership of the client unless Close is used.
func NewWithClient(client *firestore.Client, opts ...Option) *Store {
	s := &Store{
		client:        client,
		transactions:  ledger.CollectionTransactions,
		subscriptions: ledger.CollectionSubscriptions,
		purchases:     ledger.CollectionInstallmentPurchases,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close closes the underlying Firestore client.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// EnsureCollections implements ledger.Store. Firestore creates collections
// lazily, so existence cannot fail; a bounded read per collection verifies
// the backend is reachable before the first real query.
func (s *Store) EnsureCollections(ctx context.Context, names ...string) error {
	for _, name := range names {
		it := s.client.Collection(name).Limit(1).Documents(ctx)
		_, err := it.Next()
		it.Stop()
		if err != nil && err != iterator.Done {
			return fmt.Errorf("EnsureCollections: probing %s: %w", name, mapReadErr(err))
		}
	}
	return nil
}

// PutTransaction implements ledger.Store.
func (s *Store) PutTransaction(ctx context.Context, tx *ledger.Transaction) error {
	if _, err := s.client.Collection(s.transactions).Doc(tx.ID).Set(ctx, tx); err != nil {
		return fmt.Errorf("PutTransaction: %s: %w", tx.ID, mapWriteErr(err))
	}
	return nil
}

// GetTransaction implements ledger.Store.
func (s *Store) GetTransaction(ctx context.Context, id string) (*ledger.Transaction, docstore.Revision, error) {
	snap, err := s.client.Collection(s.transactions).Doc(id).Get(ctx)
	if err != nil {
		return nil, docstore.Revision{}, fmt.Errorf("GetTransaction: %s: %w", id, mapReadErr(err))
	}

	var tx ledger.Transaction
	if err := snap.DataTo(&tx); err != nil {
		return nil, docstore.Revision{}, fmt.Errorf("GetTransaction: decoding %s: %w", id, err)
	}
	return &tx, docstore.Revision{UpdateTime: snap.UpdateTime}, nil
}

// UpdateTransaction implements ledger.Store.
func (s *Store) UpdateTransaction(ctx context.Context, tx *ledger.Transaction, rev docstore.Revision) error {
	return s.conditionalSet(ctx, s.client.Collection(s.transactions).Doc(tx.ID), tx, rev)
}

// DeleteTransaction implements ledger.Store. Deleting an absent document
// succeeds; Firestore deletes are idempotent.
func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	if _, err := s.client.Collection(s.transactions).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("DeleteTransaction: %s: %w", id, mapWriteErr(err))
	}
	return nil
}

// TransactionsByOwner implements ledger.Store. The ordered variant requires
// the (ownerId, date desc) composite index and reports
// docstore.ErrIndexMissing when it has not been declared.
func (s *Store) TransactionsByOwner(ctx context.Context, ownerID string, orderByDateDesc bool) ([]*ledger.Transaction, error) {
	q := s.client.Collection(s.transactions).Where("ownerId", "==", ownerID)
	if orderByDateDesc {
		q = q.OrderBy("date", firestore.Desc)
	}

	it := q.Documents(ctx)
	defer it.Stop()

	var result []*ledger.Transaction
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("TransactionsByOwner: iterating: %w", mapQueryErr(err))
		}

		var tx ledger.Transaction
		if err := snap.DataTo(&tx); err != nil {
			return nil, fmt.Errorf("TransactionsByOwner: decoding %s: %w", snap.Ref.ID, err)
		}
		result = append(result, &tx)
	}
	return result, nil
}

// PutSubscription implements ledger.Store.
func (s *Store) PutSubscription(ctx context.Context, sub *ledger.Subscription) error {
	if _, err := s.client.Collection(s.subscriptions).Doc(sub.ID).Set(ctx, sub); err != nil {
		return fmt.Errorf("PutSubscription: %s: %w", sub.ID, mapWriteErr(err))
	}
	return nil
}

// GetSubscription implements ledger.Store.
func (s *Store) GetSubscription(ctx context.Context, id string) (*ledger.Subscription, docstore.Revision, error) {
	snap, err := s.client.Collection(s.subscriptions).Doc(id).Get(ctx)
	if err != nil {
		return nil, docstore.Revision{}, fmt.Errorf("GetSubscription: %s: %w", id, mapReadErr(err))
	}

	var sub ledger.Subscription
	if err := snap.DataTo(&sub); err != nil {
		return nil, docstore.Revision{}, fmt.Errorf("GetSubscription: decoding %s: %w", id, err)
	}
	return &sub, docstore.Revision{UpdateTime: snap.UpdateTime}, nil
}

// UpdateSubscription implements ledger.Store.
func (s *Store) UpdateSubscription(ctx context.Context, sub *ledger.Subscription, rev docstore.Revision) error {
	return s.conditionalSet(ctx, s.client.Collection(s.subscriptions).Doc(sub.ID), sub, rev)
}

// DeleteSubscription implements ledger.Store.
func (s *Store) DeleteSubscription(ctx context.Context, id string) error {
	if _, err := s.client.Collection(s.subscriptions).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("DeleteSubscription: %s: %w", id, mapWriteErr(err))
	}
	return nil
}

// SubscriptionsByOwner implements ledger.Store. No server-side ordering is
// requested, so the missing-index condition cannot arise here.
func (s *Store) SubscriptionsByOwner(ctx context.Context, ownerID string) ([]*ledger.Subscription, error) {
	it := s.client.Collection(s.subscriptions).Where("ownerId", "==", ownerID).Documents(ctx)
	defer it.Stop()

	var result []*ledger.Subscription
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("SubscriptionsByOwner: iterating: %w", mapQueryErr(err))
		}

		var sub ledger.Subscription
		if err := snap.DataTo(&sub); err != nil {
			return nil, fmt.Errorf("SubscriptionsByOwner: decoding %s: %w", snap.Ref.ID, err)
		}
		result = append(result, &sub)
	}
	return result, nil
}

// PutPurchase implements ledger.Store.
func (s *Store) PutPurchase(ctx context.Context, p *ledger.InstallmentPurchase) error {
	if _, err := s.client.Collection(s.purchases).Doc(p.ID).Set(ctx, p); err != nil {
		return fmt.Errorf("PutPurchase: %s: %w", p.ID, mapWriteErr(err))
	}
	return nil
}

// GetPurchase implements ledger.Store.
func (s *Store) GetPurchase(ctx context.Context, id string) (*ledger.InstallmentPurchase, docstore.Revision, error) {
	snap, err := s.client.Collection(s.purchases).Doc(id).Get(ctx)
	if err != nil {
		return nil, docstore.Revision{}, fmt.Errorf("GetPurchase: %s: %w", id, mapReadErr(err))
	}

	var p ledger.InstallmentPurchase
	if err := snap.DataTo(&p); err != nil {
		return nil, docstore.Revision{}, fmt.Errorf("GetPurchase: decoding %s: %w", id, err)
	}
	return &p, docstore.Revision{UpdateTime: snap.UpdateTime}, nil
}

// UpdatePurchase implements ledger.Store.
func (s *Store) UpdatePurchase(ctx context.Context, p *ledger.InstallmentPurchase, rev docstore.Revision) error {
	return s.conditionalSet(ctx, s.client.Collection(s.purchases).Doc(p.ID), p, rev)
}

// DeletePurchase implements ledger.Store.
func (s *Store) DeletePurchase(ctx context.Context, id string) error {
	if _, err := s.client.Collection(s.purchases).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("DeletePurchase: %s: %w", id, mapWriteErr(err))
	}
	return nil
}

// PurchasesByOwner implements ledger.Store.
func (s *Store) PurchasesByOwner(ctx context.Context, ownerID string) ([]*ledger.InstallmentPurchase, error) {
	it := s.client.Collection(s.purchases).Where("ownerId", "==", ownerID).Documents(ctx)
	defer it.Stop()

	var result []*ledger.InstallmentPurchase
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("PurchasesByOwner: iterating: %w", mapQueryErr(err))
		}

		var p ledger.InstallmentPurchase
		if err := snap.DataTo(&p); err != nil {
			return nil, fmt.Errorf("PurchasesByOwner: decoding %s: %w", snap.Ref.ID, err)
		}
		result = append(result, &p)
	}
	return result, nil
}

// conditionalSet replaces the document only if its update time still
// matches the revision observed by the caller's read. A changed document
// reports docstore.ErrConflict; the transaction runner never retries past
// that because the closure fails deterministically on a stale revision.
func (s *Store) conditionalSet(ctx context.Context, ref *firestore.DocumentRef, data interface{}, rev docstore.Revision) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, t *firestore.Transaction) error {
		snap, err := t.Get(ref)
		if err != nil {
			return mapReadErr(err)
		}
		if !snap.UpdateTime.Equal(rev.UpdateTime) {
			return docstore.ErrConflict
		}
		return t.Set(ref, data)
	})
	if err != nil {
		if errors.Is(err, docstore.ErrConflict) || errors.Is(err, docstore.ErrNotFound) {
			return fmt.Errorf("conditionalSet: %s: %w", ref.ID, err)
		}
		return fmt.Errorf("conditionalSet: %s: %w", ref.ID, mapWriteErr(err))
	}
	return nil
}

// mapReadErr classifies a document read failure.
func mapReadErr(err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: %v", docstore.ErrNotFound, err)
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %v", docstore.ErrUnavailable, err)
	default:
		return err
	}
}

// mapQueryErr classifies a query failure. FailedPrecondition on a query is
// Firestore's structured signal that the required composite index is not
// declared.
func mapQueryErr(err error) error {
	switch status.Code(err) {
	case codes.FailedPrecondition:
		return fmt.Errorf("%w: %v", docstore.ErrIndexMissing, err)
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %v", docstore.ErrUnavailable, err)
	default:
		return err
	}
}

// mapWriteErr classifies a write failure.
func mapWriteErr(err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: %v", docstore.ErrNotFound, err)
	case codes.Aborted, codes.FailedPrecondition:
		return fmt.Errorf("%w: %v", docstore.ErrConflict, err)
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %v", docstore.ErrUnavailable, err)
	default:
		return err
	}
}

// Ensure Store implements ledger.Store.
var _ ledger.Store = (*Store)(nil)
