// Package memory provides an in-memory ledger.Store for tests and local
// development. It mirrors the production backend's semantics: deep copies
// on every read and write, per-document revisions for conditional updates,
// and an optional simulated missing composite index on the ordered
// transaction query.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dkovalev/ledgerkeep/internal/docstore"
	"github.com/dkovalev/ledgerkeep/internal/ledger"
)

// Store is an in-memory implementation of ledger.Store. It is safe for
// concurrent use. Data is lost on restart.
type Store struct {
	mu sync.RWMutex

	transactions  map[string]*ledger.Transaction
	subscriptions map[string]*ledger.Subscription
	purchases     map[string]*ledger.InstallmentPurchase

	txSeq  map[string]uint64
	subSeq map[string]uint64
	purSeq map[string]uint64

	collections map[string]bool

	missingTxDateIndex bool
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		transactions:  make(map[string]*ledger.Transaction),
		subscriptions: make(map[string]*ledger.Subscription),
		purchases:     make(map[string]*ledger.InstallmentPurchase),
		txSeq:         make(map[string]uint64),
		subSeq:        make(map[string]uint64),
		purSeq:        make(map[string]uint64),
		collections:   make(map[string]bool),
	}
}

// SimulateMissingTransactionIndex controls whether the ordered transaction
// query fails with docstore.ErrIndexMissing, exercising callers' fallback
// path.
func (s *Store) SimulateMissingTransactionIndex(missing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.missingTxDateIndex = missing
}

// EnsureCollections implements ledger.Store. The maps already exist, so it
// only records the declared names.
func (s *Store) EnsureCollections(ctx context.Context, names ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		s.collections[name] = true
	}
	return nil
}

// PutTransaction implements ledger.Store.
func (s *Store) PutTransaction(ctx context.Context, tx *ledger.Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("PutTransaction: transaction ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *tx
	s.transactions[tx.ID] = &cp
	s.txSeq[tx.ID]++
	return nil
}

// GetTransaction implements ledger.Store.
func (s *Store) GetTransaction(ctx context.Context, id string) (*ledger.Transaction, docstore.Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, exists := s.transactions[id]
	if !exists {
		return nil, docstore.Revision{}, fmt.Errorf("GetTransaction: %s: %w", id, docstore.ErrNotFound)
	}

	cp := *tx
	return &cp, docstore.Revision{Seq: s.txSeq[id]}, nil
}

// UpdateTransaction implements ledger.Store.
func (s *Store) UpdateTransaction(ctx context.Context, tx *ledger.Transaction, rev docstore.Revision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transactions[tx.ID]; !exists {
		return fmt.Errorf("UpdateTransaction: %s: %w", tx.ID, docstore.ErrNotFound)
	}
	if s.txSeq[tx.ID] != rev.Seq {
		return fmt.Errorf("UpdateTransaction: %s: %w", tx.ID, docstore.ErrConflict)
	}

	cp := *tx
	s.transactions[tx.ID] = &cp
	s.txSeq[tx.ID]++
	return nil
}

// DeleteTransaction implements ledger.Store. Deleting an absent document is
// not an error, matching the backend's idempotent delete.
func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.transactions, id)
	delete(s.txSeq, id)
	return nil
}

// TransactionsByOwner implements ledger.Store. Unordered results come back
// in map iteration order, which is deliberately unstable.
func (s *Store) TransactionsByOwner(ctx context.Context, ownerID string, orderByDateDesc bool) ([]*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if orderByDateDesc && s.missingTxDateIndex {
		return nil, fmt.Errorf("TransactionsByOwner: ordering by date: %w", docstore.ErrIndexMissing)
	}

	var result []*ledger.Transaction
	for _, tx := range s.transactions {
		if tx.OwnerID != ownerID {
			continue
		}
		cp := *tx
		result = append(result, &cp)
	}

	if orderByDateDesc {
		sort.SliceStable(result, func(i, j int) bool { return result[i].Date.After(result[j].Date) })
	}
	return result, nil
}

// PutSubscription implements ledger.Store.
func (s *Store) PutSubscription(ctx context.Context, sub *ledger.Subscription) error {
	if sub.ID == "" {
		return fmt.Errorf("PutSubscription: subscription ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := copySubscription(sub)
	s.subscriptions[sub.ID] = cp
	s.subSeq[sub.ID]++
	return nil
}

// GetSubscription implements ledger.Store.
func (s *Store) GetSubscription(ctx context.Context, id string) (*ledger.Subscription, docstore.Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, exists := s.subscriptions[id]
	if !exists {
		return nil, docstore.Revision{}, fmt.Errorf("GetSubscription: %s: %w", id, docstore.ErrNotFound)
	}

	return copySubscription(sub), docstore.Revision{Seq: s.subSeq[id]}, nil
}

// UpdateSubscription implements ledger.Store.
func (s *Store) UpdateSubscription(ctx context.Context, sub *ledger.Subscription, rev docstore.Revision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[sub.ID]; !exists {
		return fmt.Errorf("UpdateSubscription: %s: %w", sub.ID, docstore.ErrNotFound)
	}
	if s.subSeq[sub.ID] != rev.Seq {
		return fmt.Errorf("UpdateSubscription: %s: %w", sub.ID, docstore.ErrConflict)
	}

	s.subscriptions[sub.ID] = copySubscription(sub)
	s.subSeq[sub.ID]++
	return nil
}

// DeleteSubscription implements ledger.Store.
func (s *Store) DeleteSubscription(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.subscriptions, id)
	delete(s.subSeq, id)
	return nil
}

// SubscriptionsByOwner implements ledger.Store.
func (s *Store) SubscriptionsByOwner(ctx context.Context, ownerID string) ([]*ledger.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*ledger.Subscription
	for _, sub := range s.subscriptions {
		if sub.OwnerID != ownerID {
			continue
		}
		result = append(result, copySubscription(sub))
	}
	return result, nil
}

// PutPurchase implements ledger.Store.
func (s *Store) PutPurchase(ctx context.Context, p *ledger.InstallmentPurchase) error {
	if p.ID == "" {
		return fmt.Errorf("PutPurchase: purchase ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.purchases[p.ID] = copyPurchase(p)
	s.purSeq[p.ID]++
	return nil
}

// GetPurchase implements ledger.Store.
func (s *Store) GetPurchase(ctx context.Context, id string) (*ledger.InstallmentPurchase, docstore.Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.purchases[id]
	if !exists {
		return nil, docstore.Revision{}, fmt.Errorf("GetPurchase: %s: %w", id, docstore.ErrNotFound)
	}

	return copyPurchase(p), docstore.Revision{Seq: s.purSeq[id]}, nil
}

// UpdatePurchase implements ledger.Store. The write is conditional on the
// revision; a stale revision reports docstore.ErrConflict.
func (s *Store) UpdatePurchase(ctx context.Context, p *ledger.InstallmentPurchase, rev docstore.Revision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.purchases[p.ID]; !exists {
		return fmt.Errorf("UpdatePurchase: %s: %w", p.ID, docstore.ErrNotFound)
	}
	if s.purSeq[p.ID] != rev.Seq {
		return fmt.Errorf("UpdatePurchase: %s: %w", p.ID, docstore.ErrConflict)
	}

	s.purchases[p.ID] = copyPurchase(p)
	s.purSeq[p.ID]++
	return nil
}

// DeletePurchase implements ledger.Store.
func (s *Store) DeletePurchase(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.purchases, id)
	delete(s.purSeq, id)
	return nil
}

// PurchasesByOwner implements ledger.Store.
func (s *Store) PurchasesByOwner(ctx context.Context, ownerID string) ([]*ledger.InstallmentPurchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*ledger.InstallmentPurchase
	for _, p := range s.purchases {
		if p.OwnerID != ownerID {
			continue
		}
		result = append(result, copyPurchase(p))
	}
	return result, nil
}

func copySubscription(sub *ledger.Subscription) *ledger.Subscription {
	cp := *sub
	if sub.LastPaymentDate != nil {
		d := *sub.LastPaymentDate
		cp.LastPaymentDate = &d
	}
	return &cp
}

func copyPurchase(p *ledger.InstallmentPurchase) *ledger.InstallmentPurchase {
	cp := *p
	cp.TransactionIDs = append([]string{}, p.TransactionIDs...)
	return &cp
}

// Ensure Store implements ledger.Store.
var _ ledger.Store = (*Store)(nil)
