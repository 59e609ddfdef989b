package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/domain"
)

// StripeGateway implements Gateway against the Stripe PaymentIntents API.
type StripeGateway struct {
	client *client.API
}

// NewStripeGateway builds an adapter bound to its own client instance.
// The package-global stripe client is deliberately not used.
func NewStripeGateway(apiKey string) *StripeGateway {
	sc := &client.API{}
	sc.Init(apiKey, nil)
	return &StripeGateway{client: sc}
}

func (sg *StripeGateway) Create(ctx context.Context, amount int64, currency string) (CreateResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	// A fresh key per call: a network failure after Stripe commits must not
	// let a blind retry reserve a second hold.
	params.IdempotencyKey = stripe.String(uuid.NewString())
	params.Context = ctx

	pi, err := sg.client.PaymentIntents.New(params)
	if err != nil {
		return CreateResult{}, mapStripeError(err)
	}
	return CreateResult{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (sg *StripeGateway) Cancel(ctx context.Context, id string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	if _, err := sg.client.PaymentIntents.Cancel(id, params); err != nil {
		return mapStripeError(err)
	}
	return nil
}

func (sg *StripeGateway) Status(ctx context.Context, id string) (domain.IntentState, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := sg.client.PaymentIntents.Get(id, params)
	if err != nil {
		return domain.IntentUnknown, mapStripeError(err)
	}
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return domain.IntentSucceeded, nil
	case stripe.PaymentIntentStatusCanceled:
		return domain.IntentCanceled, nil
	case stripe.PaymentIntentStatusRequiresPaymentMethod,
		stripe.PaymentIntentStatusRequiresConfirmation,
		stripe.PaymentIntentStatusRequiresAction,
		stripe.PaymentIntentStatusProcessing:
		return domain.IntentCreated, nil
	default:
		return domain.IntentUnknown, nil
	}
}

// mapStripeError folds stripe-go errors into the package's taxonomy.
func mapStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrIntentNotFound, stripeErr.Code)
		}
		if stripeErr.HTTPStatusCode >= http.StatusInternalServerError {
			return ErrGatewayUnavailable
		}
		return fmt.Errorf("%w: %s", ErrGatewayRejected, stripeErr.Code)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrGatewayTimeout
	}
	return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
}

var _ Gateway = (*StripeGateway)(nil)
