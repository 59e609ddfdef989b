package worker

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/domain"
	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/gateway"
	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/service"
	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/store"
)

func setup(t *testing.T) (*ReconciliationWorker, *service.LifecycleManager, *gateway.MockGateway) {
	t.Helper()
	gw := gateway.NewMockGateway()
	st := store.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := service.NewLifecycleManager(gw, st, "usd", logger)
	rw := NewReconciliationWorker(st, gw, manager, time.Minute, 30*time.Minute, logger)
	return rw, manager, gw
}

func TestSweep_ReconcilesSettledStaleIntent(t *testing.T) {
	ctx := context.Background()
	rw, manager, gw := setup(t)

	intent, err := manager.CreateIntent(ctx, 3800)
	require.NoError(t, err)

	// The buyer confirmed at the gateway but the webhook never arrived.
	gw.Settle(intent.ID)
	backdate(t, rw.store, intent.ID)

	require.NoError(t, rw.Sweep(ctx))

	got, err := manager.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentSucceeded, got.State)
}

func TestSweep_LeavesUnsettledIntentsAlone(t *testing.T) {
	ctx := context.Background()
	rw, manager, _ := setup(t)

	intent, err := manager.CreateIntent(ctx, 3800)
	require.NoError(t, err)
	backdate(t, rw.store, intent.ID)

	require.NoError(t, rw.Sweep(ctx))

	got, err := manager.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentCreated, got.State)
}

func TestSweep_IgnoresFreshIntents(t *testing.T) {
	ctx := context.Background()
	rw, manager, gw := setup(t)

	intent, err := manager.CreateIntent(ctx, 3800)
	require.NoError(t, err)
	gw.Settle(intent.ID)

	require.NoError(t, rw.Sweep(ctx))

	got, err := manager.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentCreated, got.State)
}

func TestSweep_StatusProbeFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	rw, manager, gw := setup(t)

	a, err := manager.CreateIntent(ctx, 1000)
	require.NoError(t, err)
	b, err := manager.CreateIntent(ctx, 2000)
	require.NoError(t, err)
	gw.Settle(b.ID)
	gw.Forget(a.ID)
	backdate(t, rw.store, a.ID)
	backdate(t, rw.store, b.ID)

	require.NoError(t, rw.Sweep(ctx))

	// b still gets reconciled even though a's probe failed.
	got, err := manager.GetIntent(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentSucceeded, got.State)
}

// backdate pushes an intent's UpdatedAt past the sweep age threshold.
func backdate(t *testing.T, st store.IntentStore, id string) {
	t.Helper()
	ms, ok := st.(*store.MemoryStore)
	require.True(t, ok)
	ms.SetUpdatedAt(id, time.Now().Add(-time.Hour))
}
