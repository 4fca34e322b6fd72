package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dkovalev/ledgerkeep/internal/docstore"
)

// InstallmentService amortizes lump purchases into fixed payments and
// advances them strictly forward, one installment at a time.
type InstallmentService struct {
	store Store
	log   zerolog.Logger
}

// NewInstallmentService creates an installment engine backed by store.
func NewInstallmentService(store Store, log zerolog.Logger) *InstallmentService {
	return &InstallmentService{store: store, log: log}
}

// CreatePurchaseInput carries the caller-supplied fields for a new
// installment purchase. InstallmentAmount must already be computed by the
// caller as TotalAmount / TotalInstallments; the engine trusts it and
// performs no recomputation.
type CreatePurchaseInput struct {
	Description       string
	TotalAmount       float64
	InstallmentAmount float64
	TotalInstallments int
	StartDate         time.Time
	NextDueDate       time.Time
	Category          string
}

// CreatePurchase persists a new purchase with zero progress. When
// createFirstInstallment is set it also synthesizes the first linked
// transaction, dated at the purchase start date and labeled
// "<description> (1/<total>)", and advances the purchase to one paid
// installment. NextDueDate is left unchanged by that synthesized first
// installment.
func (s *InstallmentService) CreatePurchase(ctx context.Context, ownerID string, in CreatePurchaseInput, createFirstInstallment bool) (*InstallmentPurchase, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("CreatePurchase: %w", ErrNotAuthenticated)
	}
	if in.TotalInstallments <= 0 {
		return nil, fmt.Errorf("CreatePurchase: total installments must be positive: %w", ErrInvalidState)
	}

	now := time.Now().UTC()
	p := &InstallmentPurchase{
		ID:                uuid.New().String(),
		OwnerID:           ownerID,
		Description:       in.Description,
		TotalAmount:       in.TotalAmount,
		InstallmentAmount: in.InstallmentAmount,
		TotalInstallments: in.TotalInstallments,
		PaidInstallments:  0,
		StartDate:         normalizeDate(in.StartDate),
		NextDueDate:       normalizeDate(in.NextDueDate),
		Category:          in.Category,
		IsCompleted:       false,
		TransactionIDs:    []string{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.store.PutPurchase(ctx, p); err != nil {
		return nil, fmt.Errorf("CreatePurchase: putting purchase: %w", err)
	}

	if !createFirstInstallment {
		s.log.Debug().Str("purchase_id", p.ID).Str("owner_id", ownerID).Msg("Installment purchase created")
		return p, nil
	}

	tx := s.installmentTransaction(p, 1, p.StartDate)
	if err := s.store.PutTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("CreatePurchase: putting first installment transaction: %w", err)
	}

	stored, rev, err := s.store.GetPurchase(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("CreatePurchase: rereading purchase %s: %w", p.ID, err)
	}
	stored.PaidInstallments = 1
	stored.IsCompleted = stored.PaidInstallments == stored.TotalInstallments
	stored.TransactionIDs = []string{tx.ID}
	stored.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdatePurchase(ctx, stored, rev); err != nil {
		if delErr := s.store.DeleteTransaction(ctx, tx.ID); delErr != nil {
			s.log.Error().Err(delErr).Str("transaction_id", tx.ID).Msg("Failed to roll back first installment transaction")
		}
		return nil, fmt.Errorf("CreatePurchase: recording first installment on purchase %s: %w", p.ID, err)
	}

	s.log.Info().
		Str("purchase_id", stored.ID).
		Str("transaction_id", tx.ID).
		Int("total_installments", stored.TotalInstallments).
		Msg("Installment purchase created with first installment")
	return stored, nil
}

// AddPayment applies installment number n to the purchase.
//
// It rejects, without mutation, numbers at or below the paid count
// (already paid) and numbers above the total (out of range); a completed
// purchase therefore rejects everything. On success it links a new
// transaction "<description> (<n>/<total>)", increments the paid count and
// recomputes completion. While the purchase stays active, NextDueDate
// advances exactly one calendar month from its previous value, not from
// the payment date.
//
// A zero paymentDate means "now". The purchase update is conditional on
// the revision observed by the read, so two concurrent payments for the
// same number collapse to one winner; the loser reports
// docstore.ErrConflict and its provisional transaction is removed.
func (s *InstallmentService) AddPayment(ctx context.Context, ownerID, purchaseID string, n int, paymentDate time.Time) (*InstallmentPurchase, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("AddPayment: %w", ErrNotAuthenticated)
	}

	p, rev, err := s.store.GetPurchase(ctx, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("AddPayment: getting purchase %s: %w", purchaseID, err)
	}
	if p.OwnerID != ownerID {
		return nil, fmt.Errorf("AddPayment: purchase %s: %w", purchaseID, docstore.ErrNotFound)
	}

	if n <= p.PaidInstallments {
		return nil, fmt.Errorf("AddPayment: installment %d of purchase %s already paid: %w", n, purchaseID, ErrInvalidState)
	}
	if n > p.TotalInstallments {
		return nil, fmt.Errorf("AddPayment: installment %d exceeds total %d for purchase %s: %w", n, p.TotalInstallments, purchaseID, ErrInvalidState)
	}

	tx := s.installmentTransaction(p, n, normalizeDate(paymentDate))
	if err := s.store.PutTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("AddPayment: putting installment transaction: %w", err)
	}

	updated := *p
	updated.TransactionIDs = append(append([]string{}, p.TransactionIDs...), tx.ID)
	updated.PaidInstallments = p.PaidInstallments + 1
	updated.IsCompleted = updated.PaidInstallments == updated.TotalInstallments
	if !updated.IsCompleted {
		updated.NextDueDate = p.NextDueDate.AddDate(0, 1, 0)
	}
	updated.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdatePurchase(ctx, &updated, rev); err != nil {
		if delErr := s.store.DeleteTransaction(ctx, tx.ID); delErr != nil {
			s.log.Error().Err(delErr).Str("transaction_id", tx.ID).Msg("Failed to roll back installment transaction")
		}
		return nil, fmt.Errorf("AddPayment: updating purchase %s: %w", purchaseID, err)
	}

	s.log.Info().
		Str("purchase_id", updated.ID).
		Str("transaction_id", tx.ID).
		Int("installment", n).
		Int("paid", updated.PaidInstallments).
		Bool("completed", updated.IsCompleted).
		Msg("Installment payment recorded")
	return &updated, nil
}

// PurchaseUpdate holds the partial fields of an update; nil pointers leave
// the stored value untouched. Progress fields (paid count, completion,
// transaction ids) are only moved by payments, never by generic updates.
type PurchaseUpdate struct {
	Description *string
	Category    *string
	NextDueDate *time.Time
}

// UpdatePurchase applies a partial update to the purchase with the given
// id. The stored record must belong to ownerID.
func (s *InstallmentService) UpdatePurchase(ctx context.Context, ownerID, id string, upd PurchaseUpdate) (*InstallmentPurchase, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("UpdatePurchase: %w", ErrNotAuthenticated)
	}

	p, rev, err := s.store.GetPurchase(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("UpdatePurchase: getting purchase %s: %w", id, err)
	}
	if p.OwnerID != ownerID {
		return nil, fmt.Errorf("UpdatePurchase: purchase %s: %w", id, docstore.ErrNotFound)
	}

	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.Category != nil {
		p.Category = *upd.Category
	}
	if upd.NextDueDate != nil {
		p.NextDueDate = normalizeDate(*upd.NextDueDate)
	}
	p.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdatePurchase(ctx, p, rev); err != nil {
		return nil, fmt.Errorf("UpdatePurchase: updating purchase %s: %w", id, err)
	}
	return p, nil
}

// DeletePurchase hard-deletes the purchase. Linked transactions are
// intentionally left intact as standalone historical records.
func (s *InstallmentService) DeletePurchase(ctx context.Context, ownerID, id string) error {
	if ownerID == "" {
		return fmt.Errorf("DeletePurchase: %w", ErrNotAuthenticated)
	}

	p, _, err := s.store.GetPurchase(ctx, id)
	if err != nil {
		return fmt.Errorf("DeletePurchase: getting purchase %s: %w", id, err)
	}
	if p.OwnerID != ownerID {
		return fmt.Errorf("DeletePurchase: purchase %s: %w", id, docstore.ErrNotFound)
	}

	if err := s.store.DeletePurchase(ctx, id); err != nil {
		return fmt.Errorf("DeletePurchase: deleting purchase %s: %w", id, err)
	}
	return nil
}

// ListByOwner returns the owner's installment purchases. The fetch is
// unordered; no server-side ordering is requested.
func (s *InstallmentService) ListByOwner(ctx context.Context, ownerID string) ([]*InstallmentPurchase, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("ListByOwner: %w", ErrNotAuthenticated)
	}

	purchases, err := s.store.PurchasesByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ListByOwner: querying purchases: %w", err)
	}
	return purchases, nil
}

// installmentTransaction builds the expense transaction linked to
// installment n of the purchase.
func (s *InstallmentService) installmentTransaction(p *InstallmentPurchase, n int, date time.Time) *Transaction {
	now := time.Now().UTC()
	return &Transaction{
		ID:          uuid.New().String(),
		OwnerID:     p.OwnerID,
		Amount:      p.InstallmentAmount,
		Type:        TypeExpense,
		Category:    p.Category,
		Description: fmt.Sprintf("%s (%d/%d)", p.Description, n, p.TotalInstallments),
		Date:        date,

		InstallmentGroupID: p.ID,
		InstallmentNumber:  n,
		TotalInstallments:  p.TotalInstallments,
		IsInstallment:      true,

		CreatedAt: now,
		UpdatedAt: now,
	}
}
