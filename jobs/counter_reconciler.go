package jobs

import (
	"context"
	"time"

	"github.com/ELEVATE-Project/project-service-sub000/services"

	"go.uber.org/zap"
)

type TreeReconciler interface {
	Reconcile(ctx context.Context, tenantID string) (*services.ReconcileResult, error)
}

type TenantLister interface {
	Tenants(ctx context.Context) ([]string, error)
}

// RunSummary totals one pass over every tenant.
type RunSummary struct {
	Tenants          int
	Failed           int
	Scanned          int
	CountersRepaired int
	PathsRepaired    int
	Orphans          int
}

// CounterReconciler periodically repairs child caches and materialized paths
// for every tenant.
type CounterReconciler struct {
	reconciler TreeReconciler
	tenants    TenantLister
	interval   time.Duration
	timeout    time.Duration
	logger     *zap.Logger
}

func NewCounterReconciler(reconciler TreeReconciler, tenants TenantLister, interval time.Duration, logger *zap.Logger) *CounterReconciler {
	return &CounterReconciler{
		reconciler: reconciler,
		tenants:    tenants,
		interval:   interval,
		timeout:    30 * time.Minute,
		logger:     logger.Named("counter_reconciler"),
	}
}

// Start runs a pass immediately and then on every tick until ctx is cancelled.
func (cr *CounterReconciler) Start(ctx context.Context) {
	cr.logger.Info("Starting counter reconciler", zap.Duration("interval", cr.interval))

	cr.runLogged(ctx)

	ticker := time.NewTicker(cr.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cr.logger.Info("Counter reconciler stopped")
			return
		case <-ticker.C:
			cr.runLogged(ctx)
		}
	}
}

// StartBackground runs Start in a goroutine. The returned func blocks until the
// loop has exited, including a pass that was in flight when ctx was cancelled.
func (cr *CounterReconciler) StartBackground(ctx context.Context) (wait func()) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		cr.Start(ctx)
	}()
	return func() { <-done }
}

func (cr *CounterReconciler) runLogged(ctx context.Context) {
	summary, err := cr.RunOnce(ctx)
	if err != nil && ctx.Err() != nil {
		cr.logger.Info("Counter reconciliation interrupted", zap.Error(err))
		return
	}
	if err != nil {
		cr.logger.Error("Counter reconciliation failed", zap.Error(err))
		return
	}
	cr.logger.Info("Counter reconciliation completed",
		zap.Int("tenants", summary.Tenants),
		zap.Int("failed", summary.Failed),
		zap.Int("scanned", summary.Scanned),
		zap.Int("counters_repaired", summary.CountersRepaired),
		zap.Int("paths_repaired", summary.PathsRepaired),
		zap.Int("orphans", summary.Orphans),
	)
}

// RunOnce reconciles every tenant. A failing tenant is logged and skipped;
// only a failure to list tenants is returned.
func (cr *CounterReconciler) RunOnce(ctx context.Context) (RunSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, cr.timeout)
	defer cancel()

	tenants, err := cr.tenants.Tenants(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	summary := RunSummary{Tenants: len(tenants)}
	for _, tenant := range tenants {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}

		result, err := cr.reconciler.Reconcile(ctx, tenant)
		if err != nil {
			summary.Failed++
			cr.logger.Error("Failed to reconcile tenant", zap.String("tenant_id", tenant), zap.Error(err))
			continue
		}
		summary.Scanned += result.Scanned
		summary.CountersRepaired += result.CountersRepaired
		summary.PathsRepaired += result.PathsRepaired
		summary.Orphans += result.Orphans
	}
	return summary, nil
}
