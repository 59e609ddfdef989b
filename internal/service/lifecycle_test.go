package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/domain"
	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/gateway"
	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/store"
	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/webhook"
)

func newManager(t *testing.T) (*LifecycleManager, *gateway.MockGateway, *store.MemoryStore) {
	t.Helper()
	gw := gateway.NewMockGateway()
	st := store.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewLifecycleManager(gw, st, "usd", logger), gw, st
}

// timeFarFuture makes FindStaleCreated list every non-terminal intent.
func timeFarFuture() time.Time {
	return time.Now().Add(time.Hour)
}

func TestCreateIntent(t *testing.T) {
	ctx := context.Background()
	lm, _, _ := newManager(t)

	intent, err := lm.CreateIntent(ctx, 3800)
	require.NoError(t, err)
	assert.Equal(t, "pi_1", intent.ID)
	assert.Equal(t, "secret_1", intent.ClientSecret)
	assert.Equal(t, int64(3800), intent.Amount)
	assert.Equal(t, domain.IntentCreated, intent.State)

	got, err := lm.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentCreated, got.State)
	assert.Equal(t, int64(3800), got.Amount)
}

func TestCreateIntent_RejectsNonPositiveAmounts(t *testing.T) {
	ctx := context.Background()
	lm, gw, _ := newManager(t)

	for _, amount := range []int64{0, -5} {
		_, err := lm.CreateIntent(ctx, amount)
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	}
	// Validation happens before any gateway call.
	assert.Equal(t, 0, gw.CreateCalls)
}

func TestCreateIntent_GatewayFailureLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	lm, gw, st := newManager(t)

	gw.FailCreate = gateway.ErrGatewayUnavailable
	_, err := lm.CreateIntent(ctx, 1000)
	assert.ErrorIs(t, err, gateway.ErrGatewayUnavailable)

	stale, err := st.FindStaleCreated(ctx, timeFarFuture(), 10)
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestCancelIntent(t *testing.T) {
	ctx := context.Background()
	lm, gw, _ := newManager(t)

	intent, err := lm.CreateIntent(ctx, 1000)
	require.NoError(t, err)

	canceled, err := lm.CancelIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentCanceled, canceled.State)
	assert.Equal(t, 1, gw.CancelCalls)
}

func TestCancelIntent_TerminalOrUnknown(t *testing.T) {
	ctx := context.Background()
	lm, gw, _ := newManager(t)

	intent, err := lm.CreateIntent(ctx, 1000)
	require.NoError(t, err)

	// Settle via webhook, then attempt cancel.
	_, err = lm.Reconcile(ctx, webhook.Event{
		EventID: "evt_1", Type: webhook.TypeIntentSucceeded, IntentID: intent.ID,
	})
	require.NoError(t, err)

	_, err = lm.CancelIntent(ctx, intent.ID)
	assert.ErrorIs(t, err, domain.ErrNotCancellable)
	// The gateway's cancel was never invoked for a settled intent.
	assert.Equal(t, 0, gw.CancelCalls)

	_, err = lm.CancelIntent(ctx, "pi_unknown")
	assert.ErrorIs(t, err, domain.ErrIntentNotFound)
	assert.Equal(t, 0, gw.CancelCalls)
}

func TestCancelIntent_GatewayFailure(t *testing.T) {
	ctx := context.Background()
	lm, gw, _ := newManager(t)

	intent, err := lm.CreateIntent(ctx, 1000)
	require.NoError(t, err)

	gw.FailCancel = gateway.ErrGatewayTimeout
	_, err = lm.CancelIntent(ctx, intent.ID)
	assert.ErrorIs(t, err, gateway.ErrGatewayTimeout)

	// Store still shows CREATED; no compensating action was taken.
	got, err := lm.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentCreated, got.State)
}

func TestReconcile_AppliesTransition(t *testing.T) {
	ctx := context.Background()
	lm, _, _ := newManager(t)

	intent, err := lm.CreateIntent(ctx, 3800)
	require.NoError(t, err)

	outcome, err := lm.Reconcile(ctx, webhook.Event{
		EventID: "evt_1", Type: webhook.TypeIntentSucceeded, IntentID: intent.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	got, err := lm.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentSucceeded, got.State)
	assert.Equal(t, "evt_1", got.LastEventID)
}

func TestReconcile_DuplicateEventIsNoop(t *testing.T) {
	ctx := context.Background()
	lm, _, _ := newManager(t)

	intent, err := lm.CreateIntent(ctx, 3800)
	require.NoError(t, err)

	ev := webhook.Event{EventID: "evt_1", Type: webhook.TypeIntentSucceeded, IntentID: intent.ID}

	outcome, err := lm.Reconcile(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	outcome, err = lm.Reconcile(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicateEvent, outcome)

	got, err := lm.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentSucceeded, got.State)
}

func TestReconcile_TerminalStatesAreSticky(t *testing.T) {
	ctx := context.Background()
	lm, _, _ := newManager(t)

	intent, err := lm.CreateIntent(ctx, 3800)
	require.NoError(t, err)

	_, err = lm.Reconcile(ctx, webhook.Event{
		EventID: "evt_cancel", Type: webhook.TypeIntentCanceled, IntentID: intent.ID,
	})
	require.NoError(t, err)

	// A conflicting terminal event delivered later must not win.
	outcome, err := lm.Reconcile(ctx, webhook.Event{
		EventID: "evt_success", Type: webhook.TypeIntentSucceeded, IntentID: intent.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeTerminalNoop, outcome)

	got, err := lm.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentCanceled, got.State)
	assert.Equal(t, "evt_cancel", got.LastEventID)
}

func TestReconcile_CreatedConfirmationIsIdempotent(t *testing.T) {
	ctx := context.Background()
	lm, _, _ := newManager(t)

	intent, err := lm.CreateIntent(ctx, 3800)
	require.NoError(t, err)

	outcome, err := lm.Reconcile(ctx, webhook.Event{
		EventID: "evt_created", Type: webhook.TypeIntentCreated, IntentID: intent.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	got, err := lm.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentCreated, got.State)
}

func TestReconcile_UnknownIntentIsAcknowledged(t *testing.T) {
	ctx := context.Background()
	lm, _, _ := newManager(t)

	outcome, err := lm.Reconcile(ctx, webhook.Event{
		EventID: "evt_1", Type: webhook.TypeIntentSucceeded, IntentID: "pi_other_env",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnknownIntent, outcome)
}

func TestReconcile_UnrecognizedTypeLeavesStateAlone(t *testing.T) {
	ctx := context.Background()
	lm, _, _ := newManager(t)

	intent, err := lm.CreateIntent(ctx, 3800)
	require.NoError(t, err)

	outcome, err := lm.Reconcile(ctx, webhook.Event{
		EventID: "evt_1", Type: "charge.refunded", IntentID: intent.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnrecognizedType, outcome)

	got, err := lm.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentCreated, got.State)
	assert.Empty(t, got.LastEventID)
}

func TestReconcile_ConcurrentConflictingTerminals(t *testing.T) {
	ctx := context.Background()
	lm, _, _ := newManager(t)

	intent, err := lm.CreateIntent(ctx, 3800)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			lm.Reconcile(ctx, webhook.Event{EventID: "evt_s", Type: webhook.TypeIntentSucceeded, IntentID: intent.ID})
		}()
		go func() {
			defer wg.Done()
			lm.Reconcile(ctx, webhook.Event{EventID: "evt_c", Type: webhook.TypeIntentCanceled, IntentID: intent.ID})
		}()
	}
	wg.Wait()

	got, err := lm.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.True(t, got.State.Terminal())
	switch got.LastEventID {
	case "evt_s":
		assert.Equal(t, domain.IntentSucceeded, got.State)
	case "evt_c":
		assert.Equal(t, domain.IntentCanceled, got.State)
	default:
		t.Fatalf("unexpected last event id %q", got.LastEventID)
	}
}

func TestReconcileStatus(t *testing.T) {
	ctx := context.Background()
	lm, _, _ := newManager(t)

	intent, err := lm.CreateIntent(ctx, 3800)
	require.NoError(t, err)

	// Non-terminal observations are ignored.
	require.NoError(t, lm.ReconcileStatus(ctx, intent.ID, domain.IntentCreated))
	got, _ := lm.GetIntent(ctx, intent.ID)
	assert.Equal(t, domain.IntentCreated, got.State)

	require.NoError(t, lm.ReconcileStatus(ctx, intent.ID, domain.IntentSucceeded))
	got, _ = lm.GetIntent(ctx, intent.ID)
	assert.Equal(t, domain.IntentSucceeded, got.State)

	// Terminal state stays put even if a later probe disagrees.
	require.NoError(t, lm.ReconcileStatus(ctx, intent.ID, domain.IntentCanceled))
	got, _ = lm.GetIntent(ctx, intent.ID)
	assert.Equal(t, domain.IntentSucceeded, got.State)

	// Unknown ids are not an error for the sweeper either.
	require.NoError(t, lm.ReconcileStatus(ctx, "pi_unknown", domain.IntentSucceeded))
}
