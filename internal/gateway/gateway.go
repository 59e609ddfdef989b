package gateway

import (
	"context"
	"errors"

	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/domain"
)

// Gateway errors. Adapters translate provider-specific failures into these
// so provider SDK types never leak into the service layer.
var (
	ErrGatewayRejected    = errors.New("gateway rejected the request")
	ErrGatewayUnavailable = errors.New("gateway is currently unavailable")
	ErrGatewayTimeout     = errors.New("gateway call timed out")
	ErrIntentNotFound     = errors.New("gateway has no record of the intent")
)

// CreateResult carries the gateway-assigned identity of a new intent.
// ClientSecret is only available here; it cannot be fetched again later.
type CreateResult struct {
	ID           string
	ClientSecret string
}

// Gateway is the call surface to the external payment provider. Create
// irreversibly reserves funds-hold capacity on success; Cancel releases it.
// No adapter retries on failure, that decision belongs to the caller.
type Gateway interface {
	Create(ctx context.Context, amount int64, currency string) (CreateResult, error)
	Cancel(ctx context.Context, id string) error
	// Status asks the provider for the authoritative state of an intent.
	Status(ctx context.Context, id string) (domain.IntentState, error)
}
