// Package ledger is the core of the personal-finance ledger: transactions
// (atomic money movements), subscriptions (recurring obligations) and
// installment purchases (lump sums amortized over fixed payments), together
// with the services that enforce their lifecycle rules.
package ledger

import (
	"time"
)

// Collection names in the backing document store.
const (
	CollectionTransactions         = "transactions"
	CollectionSubscriptions        = "subscriptions"
	CollectionInstallmentPurchases = "installment_purchases"
)

// TransactionType classifies the direction of a money movement.
type TransactionType string

const (
	TypeIncome     TransactionType = "income"
	TypeExpense    TransactionType = "expense"
	TypeInvestment TransactionType = "investment"
)

// Frequency is the billing cadence of a subscription.
type Frequency string

const (
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// Transaction is one atomic money movement.
//
// Amount is expected to be positive but this layer does not enforce it;
// validation lives in calling UI code. Category is constrained per type by
// convention only. The linkage fields tie a transaction back to the
// subscription or installment purchase that produced it; deleting that
// parent leaves the reference dangling, which is accepted.
type Transaction struct {
	ID          string          `json:"id" firestore:"id"`
	OwnerID     string          `json:"ownerId" firestore:"ownerId"`
	Amount      float64         `json:"amount" firestore:"amount"`
	Type        TransactionType `json:"type" firestore:"type"`
	Category    string          `json:"category" firestore:"category"`
	Description string          `json:"description" firestore:"description"`
	Date        time.Time       `json:"date" firestore:"date"`
	IsRecurring bool            `json:"isRecurring" firestore:"isRecurring"`

	SubscriptionID     string `json:"subscriptionId,omitempty" firestore:"subscriptionId,omitempty"`
	InstallmentGroupID string `json:"installmentGroupId,omitempty" firestore:"installmentGroupId,omitempty"`
	InstallmentNumber  int    `json:"installmentNumber,omitempty" firestore:"installmentNumber,omitempty"`
	TotalInstallments  int    `json:"totalInstallments,omitempty" firestore:"totalInstallments,omitempty"`
	IsInstallment      bool   `json:"isInstallment,omitempty" firestore:"isInstallment,omitempty"`

	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// Subscription is a recurring obligation. It carries all Transaction fields
// (the template for the payments it produces) plus the recurrence state.
//
// Invariant: when LastPaymentDate is set, NextPaymentDate should be at or
// after it. Nothing in this core advances NextPaymentDate automatically.
// AutoRenew is stored but never consulted by any operation here; automatic
// advancement does not exist yet.
type Subscription struct {
	Transaction

	Frequency       Frequency `json:"frequency" firestore:"frequency"`
	NextPaymentDate time.Time `json:"nextPaymentDate" firestore:"nextPaymentDate"`
	AutoRenew       bool      `json:"autoRenew" firestore:"autoRenew"`

	LastPaymentDate          *time.Time `json:"lastPaymentDate,omitempty" firestore:"lastPaymentDate,omitempty"`
	LastPaymentTransactionID string     `json:"lastPaymentTransactionId,omitempty" firestore:"lastPaymentTransactionId,omitempty"`
}

// InstallmentPurchase is a lump purchase amortized into TotalInstallments
// fixed payments.
//
// Invariants, held at every observable state:
//
//	0 <= PaidInstallments <= TotalInstallments
//	IsCompleted <=> PaidInstallments == TotalInstallments
//	len(TransactionIDs) == PaidInstallments
//
// Completed is terminal: no further payment may be applied, and no
// operation reduces PaidInstallments.
//
// InstallmentAmount is fixed at creation time as TotalAmount divided by
// TotalInstallments; the engine trusts the caller-computed value and never
// recomputes it, so a rounding remainder on the final payment may go
// uncollected (see Amortize for the exact split).
type InstallmentPurchase struct {
	ID                string    `json:"id" firestore:"id"`
	OwnerID           string    `json:"ownerId" firestore:"ownerId"`
	Description       string    `json:"description" firestore:"description"`
	TotalAmount       float64   `json:"totalAmount" firestore:"totalAmount"`
	InstallmentAmount float64   `json:"installmentAmount" firestore:"installmentAmount"`
	TotalInstallments int       `json:"totalInstallments" firestore:"totalInstallments"`
	PaidInstallments  int       `json:"paidInstallments" firestore:"paidInstallments"`
	StartDate         time.Time `json:"startDate" firestore:"startDate"`
	NextDueDate       time.Time `json:"nextDueDate" firestore:"nextDueDate"`
	Category          string    `json:"category" firestore:"category"`
	IsCompleted       bool      `json:"isCompleted" firestore:"isCompleted"`
	TransactionIDs    []string  `json:"transactionIds" firestore:"transactionIds"`
	CreatedAt         time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt" firestore:"updatedAt"`
}
