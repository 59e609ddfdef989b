package store

import (
	"context"
	"time"

	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/domain"
)

// IntentStore is the single source of truth for reconciliation. Update
// serializes read-then-write per intent id: two concurrent webhook
// deliveries for the same intent never interleave a stale read with a
// stale write.
type IntentStore interface {
	// Put records a newly created intent. Ids are gateway-assigned and
	// never reused; an existing id is domain.ErrIntentExists.
	Put(ctx context.Context, intent *domain.PaymentIntent) error

	Get(ctx context.Context, id string) (*domain.PaymentIntent, error)

	// Update runs fn against the current row under the per-id critical
	// section and commits the mutated copy. If fn returns an error
	// nothing is written and the error is returned as-is.
	Update(ctx context.Context, id string, fn func(*domain.PaymentIntent) error) (*domain.PaymentIntent, error)

	// FindStaleCreated lists intents still in CREATED whose last update
	// is older than before. Feeds the reconciliation sweeper.
	FindStaleCreated(ctx context.Context, before time.Time, limit int) ([]domain.PaymentIntent, error)
}
