package main

import (
	"context"

	"github.com/ELEVATE-Project/project-service-sub000/jobs"
	"github.com/ELEVATE-Project/project-service-sub000/routes"

	"go.uber.org/zap"
)

func runReconcile(ctx context.Context, tenant string) error {
	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	container := routes.NewServiceContainer(rt.cfg, rt.dependencies())

	var lister jobs.TenantLister = rt.categories
	if tenant != "" {
		lister = singleTenant(tenant)
	}

	summary, err := jobs.NewCounterReconciler(container.CategoryService, lister, 0, rt.logger).RunOnce(ctx)
	if err != nil {
		return err
	}

	rt.logger.Info("Reconciliation finished",
		zap.Int("tenants", summary.Tenants),
		zap.Int("failed", summary.Failed),
		zap.Int("scanned", summary.Scanned),
		zap.Int("counters_repaired", summary.CountersRepaired),
		zap.Int("paths_repaired", summary.PathsRepaired),
		zap.Int("orphans", summary.Orphans),
	)
	return nil
}

type singleTenant string

func (s singleTenant) Tenants(context.Context) ([]string, error) {
	return []string{string(s)}, nil
}
