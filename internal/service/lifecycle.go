package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/domain"
	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/gateway"
	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/store"
	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/webhook"
)

// ReconcileOutcome says what a webhook event did to the store. Skips are
// normal operation, not errors: the ingress acknowledges them so the
// gateway stops redelivering.
type ReconcileOutcome string

const (
	OutcomeApplied          ReconcileOutcome = "applied"
	OutcomeDuplicateEvent   ReconcileOutcome = "duplicate_event"
	OutcomeTerminalNoop     ReconcileOutcome = "terminal_noop"
	OutcomeUnknownIntent    ReconcileOutcome = "unknown_intent"
	OutcomeUnrecognizedType ReconcileOutcome = "unrecognized_type"
)

// skip sentinels let the store's Update closure abort without writing.
var (
	errSkipDuplicate = errors.New("event already applied")
	errSkipTerminal  = errors.New("intent is in a terminal state")
)

// LifecycleManager owns the intent state machine. Every mutation of an
// intent flows through here: the creating request's result, a
// client-initiated cancel, a verified webhook event, or the sweeper's
// status probe.
type LifecycleManager struct {
	gateway  gateway.Gateway
	store    store.IntentStore
	currency string
	logger   *slog.Logger
}

func NewLifecycleManager(gw gateway.Gateway, st store.IntentStore, currency string, logger *slog.Logger) *LifecycleManager {
	return &LifecycleManager{
		gateway:  gw,
		store:    st,
		currency: currency,
		logger:   logger,
	}
}

// CreateIntent reserves a funds hold for amount and records the result.
// The amount crosses a trust boundary upstream, so positivity is checked
// here regardless of what the caller computed. On gateway failure the
// store is left untouched.
func (lm *LifecycleManager) CreateIntent(ctx context.Context, amount int64) (*domain.PaymentIntent, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	created, err := lm.gateway.Create(ctx, amount, lm.currency)
	if err != nil {
		return nil, fmt.Errorf("gateway create: %w", err)
	}

	intent := &domain.PaymentIntent{
		ID:           created.ID,
		Amount:       amount,
		Currency:     lm.currency,
		State:        domain.IntentCreated,
		ClientSecret: created.ClientSecret,
	}
	if err := lm.store.Put(ctx, intent); err != nil {
		// The hold exists at the gateway but we failed to record it; the
		// sweeper cannot find it, so this is worth a loud log line.
		lm.logger.Error("intent created at gateway but not recorded",
			"intent_id", created.ID, "error", err)
		return nil, fmt.Errorf("recording intent %s: %w", created.ID, err)
	}

	lm.logger.Info("payment intent created", "intent_id", intent.ID, "amount", amount)
	return intent, nil
}

// CancelIntent releases the hold for an intent still in CREATED. The
// gateway call runs outside the store's per-id critical section; only the
// final state commit happens inside it.
func (lm *LifecycleManager) CancelIntent(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	if id == "" {
		return nil, domain.ErrIntentNotFound
	}
	intent, err := lm.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if intent.State != domain.IntentCreated {
		return nil, domain.ErrNotCancellable
	}

	if err := lm.gateway.Cancel(ctx, id); err != nil {
		return nil, fmt.Errorf("gateway cancel: %w", err)
	}

	updated, err := lm.store.Update(ctx, id, func(p *domain.PaymentIntent) error {
		// A webhook may have landed between the read and here.
		if p.State.Terminal() {
			if p.State == domain.IntentCanceled {
				return nil
			}
			return domain.ErrNotCancellable
		}
		p.State = domain.IntentCanceled
		return nil
	})
	if err != nil {
		return nil, err
	}

	lm.logger.Info("payment intent canceled", "intent_id", id)
	return updated, nil
}

func (lm *LifecycleManager) GetIntent(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	return lm.store.Get(ctx, id)
}

// Reconcile applies a verified webhook event to the store. Unknown
// intents, duplicate events, terminal states, and unrecognized types are
// all skips: logged, acknowledged, never surfaced as errors.
func (lm *LifecycleManager) Reconcile(ctx context.Context, ev webhook.Event) (ReconcileOutcome, error) {
	target, recognized := ev.TargetState()
	if !recognized {
		lm.logger.Info("unhandled event type", "event_id", ev.EventID, "type", ev.Type)
		return OutcomeUnrecognizedType, nil
	}

	_, err := lm.store.Update(ctx, ev.IntentID, func(p *domain.PaymentIntent) error {
		if p.LastEventID == ev.EventID {
			return errSkipDuplicate
		}
		if p.State.Terminal() {
			return errSkipTerminal
		}
		p.State = target
		p.LastEventID = ev.EventID
		return nil
	})

	switch {
	case err == nil:
		lm.logger.Info("event applied", "event_id", ev.EventID, "intent_id", ev.IntentID, "type", ev.Type)
		return OutcomeApplied, nil
	case errors.Is(err, errSkipDuplicate):
		lm.logger.Info("duplicate event ignored", "event_id", ev.EventID, "intent_id", ev.IntentID)
		return OutcomeDuplicateEvent, nil
	case errors.Is(err, errSkipTerminal):
		lm.logger.Info("event for terminal intent ignored", "event_id", ev.EventID, "intent_id", ev.IntentID, "type", ev.Type)
		return OutcomeTerminalNoop, nil
	case errors.Is(err, domain.ErrIntentNotFound):
		// Possibly an intent from another environment sharing the same
		// gateway account. Acknowledge so delivery stops.
		lm.logger.Warn("event for unknown intent", "event_id", ev.EventID, "intent_id", ev.IntentID)
		return OutcomeUnknownIntent, nil
	default:
		return "", err
	}
}

// ReconcileStatus commits a state observed by polling the gateway
// directly. Used by the sweeper for intents whose webhook never arrived.
func (lm *LifecycleManager) ReconcileStatus(ctx context.Context, id string, observed domain.IntentState) error {
	if !observed.Terminal() {
		return nil
	}
	_, err := lm.store.Update(ctx, id, func(p *domain.PaymentIntent) error {
		if p.State.Terminal() {
			return errSkipTerminal
		}
		p.State = observed
		return nil
	})
	if errors.Is(err, errSkipTerminal) || errors.Is(err, domain.ErrIntentNotFound) {
		return nil
	}
	if err == nil {
		lm.logger.Info("stale intent reconciled from gateway status", "intent_id", id, "state", observed)
	}
	return err
}
