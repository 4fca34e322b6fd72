package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dkovalev/ledgerkeep/internal/docstore"
)

// SubscriptionService tracks recurring obligations. Payments are recorded
// manually; no scheduler advances due dates.
type SubscriptionService struct {
	store Store
	log   zerolog.Logger
}

// NewSubscriptionService creates a subscription service backed by store.
func NewSubscriptionService(store Store, log zerolog.Logger) *SubscriptionService {
	return &SubscriptionService{store: store, log: log}
}

// CreateSubscriptionInput carries the caller-supplied fields for a new
// subscription.
type CreateSubscriptionInput struct {
	Amount      float64
	Category    string
	Description string
	Frequency   Frequency

	NextPaymentDate time.Time
	AutoRenew       bool
}

// Create records a new subscription for ownerID.
func (s *SubscriptionService) Create(ctx context.Context, ownerID string, in CreateSubscriptionInput) (*Subscription, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("Create: %w", ErrNotAuthenticated)
	}

	now := time.Now().UTC()
	sub := &Subscription{
		Transaction: Transaction{
			ID:          uuid.New().String(),
			OwnerID:     ownerID,
			Amount:      in.Amount,
			Type:        TypeExpense,
			Category:    in.Category,
			Description: in.Description,
			Date:        now,
			IsRecurring: true,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		Frequency:       in.Frequency,
		NextPaymentDate: normalizeDate(in.NextPaymentDate),
		AutoRenew:       in.AutoRenew,
	}

	if err := s.store.PutSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("Create: putting subscription: %w", err)
	}

	s.log.Debug().Str("subscription_id", sub.ID).Str("owner_id", ownerID).Msg("Subscription created")
	return sub, nil
}

// SubscriptionUpdate holds the partial fields of an update; nil pointers
// leave the stored value untouched.
type SubscriptionUpdate struct {
	Amount          *float64
	Category        *string
	Description     *string
	Frequency       *Frequency
	NextPaymentDate *time.Time
	AutoRenew       *bool
}

// Update applies a partial update to the subscription with the given id.
// The stored record must belong to ownerID.
func (s *SubscriptionService) Update(ctx context.Context, ownerID, id string, upd SubscriptionUpdate) (*Subscription, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("Update: %w", ErrNotAuthenticated)
	}

	sub, rev, err := s.store.GetSubscription(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Update: getting subscription %s: %w", id, err)
	}
	if sub.OwnerID != ownerID {
		return nil, fmt.Errorf("Update: subscription %s: %w", id, docstore.ErrNotFound)
	}

	if upd.Amount != nil {
		sub.Amount = *upd.Amount
	}
	if upd.Category != nil {
		sub.Category = *upd.Category
	}
	if upd.Description != nil {
		sub.Description = *upd.Description
	}
	if upd.Frequency != nil {
		sub.Frequency = *upd.Frequency
	}
	if upd.NextPaymentDate != nil {
		sub.NextPaymentDate = normalizeDate(*upd.NextPaymentDate)
	}
	if upd.AutoRenew != nil {
		sub.AutoRenew = *upd.AutoRenew
	}
	sub.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateSubscription(ctx, sub, rev); err != nil {
		return nil, fmt.Errorf("Update: updating subscription %s: %w", id, err)
	}
	return sub, nil
}

// Delete hard-deletes the subscription. Transactions it produced remain as
// standalone historical records.
func (s *SubscriptionService) Delete(ctx context.Context, ownerID, id string) error {
	if ownerID == "" {
		return fmt.Errorf("Delete: %w", ErrNotAuthenticated)
	}

	sub, _, err := s.store.GetSubscription(ctx, id)
	if err != nil {
		return fmt.Errorf("Delete: getting subscription %s: %w", id, err)
	}
	if sub.OwnerID != ownerID {
		return fmt.Errorf("Delete: subscription %s: %w", id, docstore.ErrNotFound)
	}

	if err := s.store.DeleteSubscription(ctx, id); err != nil {
		return fmt.Errorf("Delete: deleting subscription %s: %w", id, err)
	}
	return nil
}

// ListByOwner returns the owner's subscriptions sorted ascending by next
// payment date. The fetch itself is unordered; subscriptions never request
// server-side ordering, so the missing-index condition cannot arise here.
func (s *SubscriptionService) ListByOwner(ctx context.Context, ownerID string) ([]*Subscription, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("ListByOwner: %w", ErrNotAuthenticated)
	}

	subs, err := s.store.SubscriptionsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ListByOwner: querying subscriptions: %w", err)
	}

	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].NextPaymentDate.Before(subs[j].NextPaymentDate)
	})
	return subs, nil
}

// RecordPayment manually records one payment of the subscription: it
// creates an expense transaction dated now, tagged with the subscription
// id, then sets LastPaymentDate and LastPaymentTransactionID.
//
// NextPaymentDate is not advanced; advancing the cadence remains the
// caller's decision.
func (s *SubscriptionService) RecordPayment(ctx context.Context, ownerID, subscriptionID string) (*Transaction, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("RecordPayment: %w", ErrNotAuthenticated)
	}

	sub, rev, err := s.store.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("RecordPayment: getting subscription %s: %w", subscriptionID, err)
	}
	if sub.OwnerID != ownerID {
		return nil, fmt.Errorf("RecordPayment: subscription %s: %w", subscriptionID, docstore.ErrNotFound)
	}

	now := time.Now().UTC()
	tx := &Transaction{
		ID:             uuid.New().String(),
		OwnerID:        ownerID,
		Amount:         sub.Amount,
		Type:           TypeExpense,
		Category:       sub.Category,
		Description:    sub.Description,
		Date:           now,
		IsRecurring:    true,
		SubscriptionID: sub.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.PutTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("RecordPayment: putting transaction: %w", err)
	}

	paidAt := tx.Date
	sub.LastPaymentDate = &paidAt
	sub.LastPaymentTransactionID = tx.ID
	sub.UpdatedAt = now

	if err := s.store.UpdateSubscription(ctx, sub, rev); err != nil {
		// Roll the provisional transaction back so a lost write does not
		// leave an unlinked payment behind.
		if delErr := s.store.DeleteTransaction(ctx, tx.ID); delErr != nil {
			s.log.Error().Err(delErr).Str("transaction_id", tx.ID).Msg("Failed to roll back payment transaction")
		}
		return nil, fmt.Errorf("RecordPayment: updating subscription %s: %w", subscriptionID, err)
	}

	s.log.Info().
		Str("subscription_id", sub.ID).
		Str("transaction_id", tx.ID).
		Float64("amount", tx.Amount).
		Msg("Subscription payment recorded")
	return tx, nil
}
