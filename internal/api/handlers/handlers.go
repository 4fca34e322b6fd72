// Package handlers exposes the ledger over HTTP. The handlers are thin
// display/CRUD glue: they parse requests, thread the caller identity
// resolved by the middleware into the services explicitly, and map
// classified errors onto status codes.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dkovalev/ledgerkeep/internal/api/middleware"
	"github.com/dkovalev/ledgerkeep/internal/docstore"
	"github.com/dkovalev/ledgerkeep/internal/ledger"
)

// statusFor maps a classified ledger error onto an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, docstore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidState), errors.Is(err, docstore.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, docstore.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// parseDate accepts either RFC 3339 or a bare YYYY-MM-DD day.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// TransactionsHandler handles transaction endpoints.
type TransactionsHandler struct {
	svc *ledger.TransactionService
	log zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(svc *ledger.TransactionService, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{svc: svc, log: log}
}

// List handles GET /api/transactions
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	var start, end *time.Time
	if s := query.Get("start_date"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid start_date format")
			return
		}
		start = &t
	}
	if s := query.Get("end_date"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid end_date format")
			return
		}
		end = &t
	}

	txs, err := h.svc.ListByOwner(ctx, middleware.UserID(ctx), start, end)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list transactions")
		middleware.WriteError(w, statusFor(err), "Failed to list transactions")
		return
	}

	if txs == nil {
		txs = []*ledger.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, txs)
}

type createTransactionRequest struct {
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	IsRecurring bool    `json:"isRecurring"`
}

// Create handles POST /api/transactions
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	in := ledger.CreateTransactionInput{
		Amount:      req.Amount,
		Type:        ledger.TransactionType(req.Type),
		Category:    req.Category,
		Description: req.Description,
		IsRecurring: req.IsRecurring,
	}
	if req.Date != "" {
		t, err := parseDate(req.Date)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid date format")
			return
		}
		in.Date = t
	}

	tx, err := h.svc.Create(ctx, middleware.UserID(ctx), in)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create transaction")
		middleware.WriteError(w, statusFor(err), "Failed to create transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, tx)
}

type updateTransactionRequest struct {
	Amount      *float64 `json:"amount"`
	Type        *string  `json:"type"`
	Category    *string  `json:"category"`
	Description *string  `json:"description"`
	Date        *string  `json:"date"`
	IsRecurring *bool    `json:"isRecurring"`
}

// Update handles PUT /api/transactions/{id}
func (h *TransactionsHandler) Update(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	var req updateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	upd := ledger.TransactionUpdate{
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		IsRecurring: req.IsRecurring,
	}
	if req.Type != nil {
		t := ledger.TransactionType(*req.Type)
		upd.Type = &t
	}
	if req.Date != nil {
		t, err := parseDate(*req.Date)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid date format")
			return
		}
		upd.Date = &t
	}

	tx, err := h.svc.Update(ctx, middleware.UserID(ctx), id, upd)
	if err != nil {
		h.log.Error().Err(err).Str("transaction_id", id).Msg("Failed to update transaction")
		middleware.WriteError(w, statusFor(err), "Failed to update transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

// Delete handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	if err := h.svc.Delete(ctx, middleware.UserID(ctx), id); err != nil {
		h.log.Error().Err(err).Str("transaction_id", id).Msg("Failed to delete transaction")
		middleware.WriteError(w, statusFor(err), "Failed to delete transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// SubscriptionsHandler handles subscription endpoints.
type SubscriptionsHandler struct {
	svc *ledger.SubscriptionService
	log zerolog.Logger
}

// NewSubscriptionsHandler creates a new subscriptions handler.
func NewSubscriptionsHandler(svc *ledger.SubscriptionService, log zerolog.Logger) *SubscriptionsHandler {
	return &SubscriptionsHandler{svc: svc, log: log}
}

// List handles GET /api/subscriptions
func (h *SubscriptionsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subs, err := h.svc.ListByOwner(ctx, middleware.UserID(ctx))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list subscriptions")
		middleware.WriteError(w, statusFor(err), "Failed to list subscriptions")
		return
	}

	if subs == nil {
		subs = []*ledger.Subscription{}
	}
	middleware.WriteJSON(w, http.StatusOK, subs)
}

type createSubscriptionRequest struct {
	Amount          float64 `json:"amount"`
	Category        string  `json:"category"`
	Description     string  `json:"description"`
	Frequency       string  `json:"frequency"`
	NextPaymentDate string  `json:"nextPaymentDate"`
	AutoRenew       bool    `json:"autoRenew"`
}

// Create handles POST /api/subscriptions
func (h *SubscriptionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	in := ledger.CreateSubscriptionInput{
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		Frequency:   ledger.Frequency(req.Frequency),
		AutoRenew:   req.AutoRenew,
	}
	if req.NextPaymentDate != "" {
		t, err := parseDate(req.NextPaymentDate)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid nextPaymentDate format")
			return
		}
		in.NextPaymentDate = t
	}

	sub, err := h.svc.Create(ctx, middleware.UserID(ctx), in)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create subscription")
		middleware.WriteError(w, statusFor(err), "Failed to create subscription")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, sub)
}

type updateSubscriptionRequest struct {
	Amount          *float64 `json:"amount"`
	Category        *string  `json:"category"`
	Description     *string  `json:"description"`
	Frequency       *string  `json:"frequency"`
	NextPaymentDate *string  `json:"nextPaymentDate"`
	AutoRenew       *bool    `json:"autoRenew"`
}

// Update handles PUT /api/subscriptions/{id}
func (h *SubscriptionsHandler) Update(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	var req updateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	upd := ledger.SubscriptionUpdate{
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		AutoRenew:   req.AutoRenew,
	}
	if req.Frequency != nil {
		f := ledger.Frequency(*req.Frequency)
		upd.Frequency = &f
	}
	if req.NextPaymentDate != nil {
		t, err := parseDate(*req.NextPaymentDate)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid nextPaymentDate format")
			return
		}
		upd.NextPaymentDate = &t
	}

	sub, err := h.svc.Update(ctx, middleware.UserID(ctx), id, upd)
	if err != nil {
		h.log.Error().Err(err).Str("subscription_id", id).Msg("Failed to update subscription")
		middleware.WriteError(w, statusFor(err), "Failed to update subscription")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, sub)
}

// Delete handles DELETE /api/subscriptions/{id}
func (h *SubscriptionsHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	if err := h.svc.Delete(ctx, middleware.UserID(ctx), id); err != nil {
		h.log.Error().Err(err).Str("subscription_id", id).Msg("Failed to delete subscription")
		middleware.WriteError(w, statusFor(err), "Failed to delete subscription")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// RecordPayment handles POST /api/subscriptions/{id}/payments
func (h *SubscriptionsHandler) RecordPayment(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	tx, err := h.svc.RecordPayment(ctx, middleware.UserID(ctx), id)
	if err != nil {
		h.log.Error().Err(err).Str("subscription_id", id).Msg("Failed to record subscription payment")
		middleware.WriteError(w, statusFor(err), "Failed to record payment")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// InstallmentsHandler handles installment purchase endpoints.
type InstallmentsHandler struct {
	svc *ledger.InstallmentService
	log zerolog.Logger
}

// NewInstallmentsHandler creates a new installments handler.
func NewInstallmentsHandler(svc *ledger.InstallmentService, log zerolog.Logger) *InstallmentsHandler {
	return &InstallmentsHandler{svc: svc, log: log}
}

// List handles GET /api/installments
func (h *InstallmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	purchases, err := h.svc.ListByOwner(ctx, middleware.UserID(ctx))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list installment purchases")
		middleware.WriteError(w, statusFor(err), "Failed to list installment purchases")
		return
	}

	if purchases == nil {
		purchases = []*ledger.InstallmentPurchase{}
	}
	middleware.WriteJSON(w, http.StatusOK, purchases)
}

type createPurchaseRequest struct {
	Description            string  `json:"description"`
	TotalAmount            float64 `json:"totalAmount"`
	InstallmentAmount      float64 `json:"installmentAmount"`
	TotalInstallments      int     `json:"totalInstallments"`
	StartDate              string  `json:"startDate"`
	NextDueDate            string  `json:"nextDueDate"`
	Category               string  `json:"category"`
	CreateFirstInstallment *bool   `json:"createFirstInstallment"`
}

// Create handles POST /api/installments
func (h *InstallmentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createPurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	in := ledger.CreatePurchaseInput{
		Description:       req.Description,
		TotalAmount:       req.TotalAmount,
		InstallmentAmount: req.InstallmentAmount,
		TotalInstallments: req.TotalInstallments,
		Category:          req.Category,
	}
	if req.StartDate != "" {
		t, err := parseDate(req.StartDate)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid startDate format")
			return
		}
		in.StartDate = t
	}
	if req.NextDueDate != "" {
		t, err := parseDate(req.NextDueDate)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid nextDueDate format")
			return
		}
		in.NextDueDate = t
	}

	// First installment synthesis defaults to on.
	createFirst := true
	if req.CreateFirstInstallment != nil {
		createFirst = *req.CreateFirstInstallment
	}

	p, err := h.svc.CreatePurchase(ctx, middleware.UserID(ctx), in, createFirst)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create installment purchase")
		middleware.WriteError(w, statusFor(err), "Failed to create installment purchase")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, p)
}

type addPaymentRequest struct {
	InstallmentNumber int    `json:"installmentNumber"`
	PaymentDate       string `json:"paymentDate"`
}

// AddPayment handles POST /api/installments/{id}/payments
func (h *InstallmentsHandler) AddPayment(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	var req addPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var paymentDate time.Time
	if req.PaymentDate != "" {
		t, err := parseDate(req.PaymentDate)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid paymentDate format")
			return
		}
		paymentDate = t
	}

	p, err := h.svc.AddPayment(ctx, middleware.UserID(ctx), id, req.InstallmentNumber, paymentDate)
	if err != nil {
		h.log.Error().Err(err).Str("purchase_id", id).Int("installment", req.InstallmentNumber).Msg("Failed to add installment payment")
		middleware.WriteError(w, statusFor(err), fmt.Sprintf("Failed to add installment payment %d", req.InstallmentNumber))
		return
	}
	middleware.WriteJSON(w, http.StatusOK, p)
}

type updatePurchaseRequest struct {
	Description *string `json:"description"`
	Category    *string `json:"category"`
	NextDueDate *string `json:"nextDueDate"`
}

// Update handles PUT /api/installments/{id}
func (h *InstallmentsHandler) Update(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	var req updatePurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	upd := ledger.PurchaseUpdate{
		Description: req.Description,
		Category:    req.Category,
	}
	if req.NextDueDate != nil {
		t, err := parseDate(*req.NextDueDate)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid nextDueDate format")
			return
		}
		upd.NextDueDate = &t
	}

	p, err := h.svc.UpdatePurchase(ctx, middleware.UserID(ctx), id, upd)
	if err != nil {
		h.log.Error().Err(err).Str("purchase_id", id).Msg("Failed to update installment purchase")
		middleware.WriteError(w, statusFor(err), "Failed to update installment purchase")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, p)
}

// Delete handles DELETE /api/installments/{id}
func (h *InstallmentsHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	if err := h.svc.DeletePurchase(ctx, middleware.UserID(ctx), id); err != nil {
		h.log.Error().Err(err).Str("purchase_id", id).Msg("Failed to delete installment purchase")
		middleware.WriteError(w, statusFor(err), "Failed to delete installment purchase")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
