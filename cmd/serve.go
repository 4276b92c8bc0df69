package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ELEVATE-Project/project-service-sub000/jobs"
	"github.com/ELEVATE-Project/project-service-sub000/routes"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func runServe(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	cfg := rt.cfg
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	container := routes.NewServiceContainer(cfg, rt.dependencies())
	router := routes.NewRouter(container)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	jobsCtx, cancelJobs := context.WithCancel(ctx)
	defer cancelJobs()
	waitJobs := func() {}
	if cfg.ReconcileInterval > 0 {
		reconciler := jobs.NewCounterReconciler(container.CategoryService, rt.categories, cfg.ReconcileInterval, rt.logger)
		waitJobs = reconciler.StartBackground(jobsCtx)
	}

	serveErr := make(chan error, 1)
	go func() {
		rt.logger.Info("Starting project service", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			rt.logger.Error("Server failed", zap.Error(err))
			return err
		}
	case <-ctx.Done():
		rt.logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		rt.logger.Warn("Graceful shutdown failed", zap.Error(err))
	}
	// stores and the publisher close after this returns; nothing may still use them
	cancelJobs()
	waitJobs()
	container.Notifier.Wait()
	rt.logger.Info("Server stopped")
	return nil
}
