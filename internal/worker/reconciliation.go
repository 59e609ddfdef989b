package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/gateway"
	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/metrics"
	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/service"
	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/store"
)

const sweepBatchSize = 50

// ReconciliationWorker finds intents stuck in CREATED past maxAge, asks
// the gateway for their authoritative state, and commits terminal results
// through the lifecycle manager. This covers webhooks that never arrived;
// it does not retry failed gateway calls.
type ReconciliationWorker struct {
	store    store.IntentStore
	gateway  gateway.Gateway
	manager  *service.LifecycleManager
	interval time.Duration
	maxAge   time.Duration
	logger   *slog.Logger
}

func NewReconciliationWorker(
	st store.IntentStore,
	gw gateway.Gateway,
	manager *service.LifecycleManager,
	interval time.Duration,
	maxAge time.Duration,
	logger *slog.Logger,
) *ReconciliationWorker {
	return &ReconciliationWorker{
		store:    st,
		gateway:  gw,
		manager:  manager,
		interval: interval,
		maxAge:   maxAge,
		logger:   logger,
	}
}

// Run blocks until ctx is done.
func (rw *ReconciliationWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(rw.interval)
	defer ticker.Stop()

	rw.logger.Info("reconciliation worker started", "interval", rw.interval)

	for {
		select {
		case <-ctx.Done():
			rw.logger.Info("reconciliation worker stopped")
			return
		case <-ticker.C:
			if err := rw.Sweep(ctx); err != nil {
				rw.logger.Error("sweep failed", "error", err)
			}
		}
	}
}

// Sweep runs one reconciliation pass. Exported so tests and operators can
// trigger it without the ticker.
func (rw *ReconciliationWorker) Sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-rw.maxAge)
	stale, err := rw.store.FindStaleCreated(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}

	rw.logger.Info("found stale intents", "count", len(stale))

	for _, intent := range stale {
		state, err := rw.gateway.Status(ctx, intent.ID)
		if err != nil {
			// Leave it for the next pass.
			rw.logger.Warn("status probe failed", "intent_id", intent.ID, "error", err)
			continue
		}
		if !state.Terminal() {
			continue
		}
		if err := rw.manager.ReconcileStatus(ctx, intent.ID, state); err != nil {
			rw.logger.Error("commit of probed state failed", "intent_id", intent.ID, "error", err)
			continue
		}
		metrics.SweeperReconciledTotal.Inc()
	}
	return nil
}
