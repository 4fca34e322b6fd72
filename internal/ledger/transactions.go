package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dkovalev/ledgerkeep/internal/docstore"
)

// TransactionService persists and retrieves atomic money movements.
type TransactionService struct {
	store Store
	log   zerolog.Logger
}

// NewTransactionService creates a transaction service backed by store.
func NewTransactionService(store Store, log zerolog.Logger) *TransactionService {
	return &TransactionService{store: store, log: log}
}

// CreateTransactionInput carries the caller-supplied fields for a new
// transaction. A zero Date means "now".
type CreateTransactionInput struct {
	Amount      float64
	Type        TransactionType
	Category    string
	Description string
	Date        time.Time
	IsRecurring bool

	SubscriptionID     string
	InstallmentGroupID string
	InstallmentNumber  int
	TotalInstallments  int
	IsInstallment      bool
}

// Create records a new transaction for ownerID and returns it with
// locally-approximated timestamps (not the server-confirmed write time).
//
// Amount is stored as given; non-positive amounts are accepted at this
// layer.
func (s *TransactionService) Create(ctx context.Context, ownerID string, in CreateTransactionInput) (*Transaction, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("Create: %w", ErrNotAuthenticated)
	}

	now := time.Now().UTC()
	tx := &Transaction{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Amount:      in.Amount,
		Type:        in.Type,
		Category:    in.Category,
		Description: in.Description,
		Date:        normalizeDate(in.Date),
		IsRecurring: in.IsRecurring,

		SubscriptionID:     in.SubscriptionID,
		InstallmentGroupID: in.InstallmentGroupID,
		InstallmentNumber:  in.InstallmentNumber,
		TotalInstallments:  in.TotalInstallments,
		IsInstallment:      in.IsInstallment,

		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.PutTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("Create: putting transaction: %w", err)
	}

	s.log.Debug().Str("transaction_id", tx.ID).Str("owner_id", ownerID).Msg("Transaction created")
	return tx, nil
}

// TransactionUpdate holds the partial fields of an update; nil pointers
// leave the stored value untouched.
type TransactionUpdate struct {
	Amount      *float64
	Type        *TransactionType
	Category    *string
	Description *string
	Date        *time.Time
	IsRecurring *bool
}

// Update applies a partial update to the transaction with the given id.
// The stored record must belong to ownerID; a foreign id reports
// docstore.ErrNotFound, indistinguishable from an absent one.
func (s *TransactionService) Update(ctx context.Context, ownerID, id string, upd TransactionUpdate) (*Transaction, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("Update: %w", ErrNotAuthenticated)
	}

	tx, rev, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Update: getting transaction %s: %w", id, err)
	}
	if tx.OwnerID != ownerID {
		return nil, fmt.Errorf("Update: transaction %s: %w", id, docstore.ErrNotFound)
	}

	if upd.Amount != nil {
		tx.Amount = *upd.Amount
	}
	if upd.Type != nil {
		tx.Type = *upd.Type
	}
	if upd.Category != nil {
		tx.Category = *upd.Category
	}
	if upd.Description != nil {
		tx.Description = *upd.Description
	}
	if upd.Date != nil {
		tx.Date = normalizeDate(*upd.Date)
	}
	if upd.IsRecurring != nil {
		tx.IsRecurring = *upd.IsRecurring
	}
	tx.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateTransaction(ctx, tx, rev); err != nil {
		return nil, fmt.Errorf("Update: updating transaction %s: %w", id, err)
	}
	return tx, nil
}

// Delete hard-deletes the transaction with the given id. Subscriptions or
// installment purchases referencing it are left untouched; dangling
// references are accepted.
func (s *TransactionService) Delete(ctx context.Context, ownerID, id string) error {
	if ownerID == "" {
		return fmt.Errorf("Delete: %w", ErrNotAuthenticated)
	}

	tx, _, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("Delete: getting transaction %s: %w", id, err)
	}
	if tx.OwnerID != ownerID {
		return fmt.Errorf("Delete: transaction %s: %w", id, docstore.ErrNotFound)
	}

	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("Delete: deleting transaction %s: %w", id, err)
	}
	return nil
}

// ListByOwner returns the owner's transactions ordered by date descending,
// optionally restricted to start <= date <= end-of-day(end).
//
// Retrieval is two-path: an ordered query first, and when the backend
// reports the composite index as missing, the same filter without ordering
// followed by a client-side sort. The fallback trades a full owner-scoped
// scan for resilience against undeclared secondary indexes.
func (s *TransactionService) ListByOwner(ctx context.Context, ownerID string, start, end *time.Time) ([]*Transaction, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("ListByOwner: %w", ErrNotAuthenticated)
	}

	txs, err := s.store.TransactionsByOwner(ctx, ownerID, true)
	if errors.Is(err, docstore.ErrIndexMissing) {
		s.log.Warn().Str("owner_id", ownerID).Msg("Transaction date index missing, falling back to unordered query")
		txs, err = s.store.TransactionsByOwner(ctx, ownerID, false)
		if err == nil {
			sort.SliceStable(txs, func(i, j int) bool { return txs[i].Date.After(txs[j].Date) })
		}
	}
	if err != nil {
		return nil, fmt.Errorf("ListByOwner: querying transactions: %w", err)
	}

	if start == nil && end == nil {
		return txs, nil
	}

	filtered := make([]*Transaction, 0, len(txs))
	for _, tx := range txs {
		if start != nil && tx.Date.Before(*start) {
			continue
		}
		if end != nil && tx.Date.After(endOfDay(*end)) {
			continue
		}
		filtered = append(filtered, tx)
	}
	return filtered, nil
}
