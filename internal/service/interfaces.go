// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/centavo-app/centavo/internal/model"
)

// Gateway is the persistence contract between the ledger and the two
// remote record collections. Implementations translate the unified
// Transaction shape into kind-specific payloads and back.
type Gateway interface {
	// ListAll returns every income and expense for ownerID, unsorted.
	ListAll(ctx context.Context, ownerID string) ([]model.Transaction, error)
	// Create writes tx to the collection matching tx.Kind and returns
	// it with the server-assigned id.
	Create(ctx context.Context, tx model.Transaction) (model.Transaction, error)
	// Update applies a partial patch to the record scoped to id and the
	// caller's identity.
	Update(ctx context.Context, id string, kind model.TransactionKind, patch TransactionPatch) (model.Transaction, error)
	// Delete removes the record scoped to id and the caller's identity.
	Delete(ctx context.Context, id string, kind model.TransactionKind) error
}

// TransactionPatch carries only the fields to change in a partial
// update. Nil pointers mean "leave unchanged".
type TransactionPatch struct {
	Title          *string
	Amount         *float64
	OccurredOn     *model.Date
	Classification *string
	Notes          *string
	IsRecurring    *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p TransactionPatch) IsEmpty() bool {
	return p.Title == nil && p.Amount == nil && p.OccurredOn == nil &&
		p.Classification == nil && p.Notes == nil && p.IsRecurring == nil
}

// RateSource fetches a live exchange-rate table for a base currency.
type RateSource interface {
	FetchRates(ctx context.Context, base string) (model.RateTable, error)
}

// KeyValueStore is a durable slot for small blobs that must survive
// process restarts. Get returns common.ErrNotFound for absent keys.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// IdentityProvider supplies the current owner identity. An empty id
// with a nil error means no one is signed in.
type IdentityProvider interface {
	OwnerID(ctx context.Context) (string, error)
}
