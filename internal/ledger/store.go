package ledger

import (
	"context"

	"github.com/dkovalev/ledgerkeep/internal/docstore"
)

// Store is the document-store surface the ledger services depend on.
// Implementations live in internal/docstore/firestorex (production) and
// internal/docstore/memory (tests, local development).
//
// Get operations return the revision observed by the read; Update
// operations take that revision back and must reject the write with
// docstore.ErrConflict when the stored document has changed since.
// Updates replace the whole document, so partial-update semantics are
// expressed by read-modify-write in the services.
type Store interface {
	// EnsureCollections makes sure the named backing collections exist and
	// are reachable. It must be awaited before the first query.
	EnsureCollections(ctx context.Context, names ...string) error

	PutTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, id string) (*Transaction, docstore.Revision, error)
	UpdateTransaction(ctx context.Context, tx *Transaction, rev docstore.Revision) error
	DeleteTransaction(ctx context.Context, id string) error

	// TransactionsByOwner returns every transaction owned by ownerID.
	// With orderByDateDesc the backend orders by date descending, which may
	// fail with docstore.ErrIndexMissing when the required composite index
	// has not been declared; without it results come back in no particular
	// order.
	TransactionsByOwner(ctx context.Context, ownerID string, orderByDateDesc bool) ([]*Transaction, error)

	PutSubscription(ctx context.Context, sub *Subscription) error
	GetSubscription(ctx context.Context, id string) (*Subscription, docstore.Revision, error)
	UpdateSubscription(ctx context.Context, sub *Subscription, rev docstore.Revision) error
	DeleteSubscription(ctx context.Context, id string) error
	SubscriptionsByOwner(ctx context.Context, ownerID string) ([]*Subscription, error)

	PutPurchase(ctx context.Context, p *InstallmentPurchase) error
	GetPurchase(ctx context.Context, id string) (*InstallmentPurchase, docstore.Revision, error)
	UpdatePurchase(ctx context.Context, p *InstallmentPurchase, rev docstore.Revision) error
	DeletePurchase(ctx context.Context, id string) error
	PurchasesByOwner(ctx context.Context, ownerID string) ([]*InstallmentPurchase, error)
}
