package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonesrussell/north-cloud/huginn/internal/config"
	"github.com/jonesrussell/north-cloud/huginn/internal/logger"
	"github.com/jonesrussell/north-cloud/huginn/internal/scheduler"
	"github.com/jonesrussell/north-cloud/huginn/internal/server"
)

const (
	signalChannelBufferSize = 1
	shutdownTimeout         = 30 * time.Second
)

// Serve runs migrations, recovers interrupted sessions and serves the API
// until interrupted by signal or server error.
func Serve(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	if err := RunMigrations(ctx, cfg, log); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	svc, err := NewServices(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := svc.Close(); closeErr != nil {
			log.Error("Failed to close services", logger.Error(closeErr))
		}
	}()

	if err = svc.Orchestrator.Recover(ctx); err != nil {
		return fmt.Errorf("recover sessions: %w", err)
	}

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(cfg.Scheduler.Spec, svc.Contractors, svc.Orchestrator, log)
		if err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
		if err = sched.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}

	srv := SetupHTTPServer(svc)
	log.Info("Starting HTTP server", logger.Int("port", cfg.Server.Port))
	errChan := srv.StartAsync()

	sigChan := make(chan os.Signal, signalChannelBufferSize)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var serveErr error
	select {
	case serveErr = <-errChan:
		log.Error("Server error", logger.Error(serveErr))
		serveErr = fmt.Errorf("server error: %w", serveErr)
	case sig := <-sigChan:
		log.Info("Shutdown signal received", logger.String("signal", sig.String()))
	case <-ctx.Done():
		log.Info("Context cancelled, shutting down")
	}

	return shutdown(log, srv, sched, svc, serveErr)
}

// shutdown stops intake first, then drains running scans.
func shutdown(log logger.Logger, srv *server.Server, sched *scheduler.Scheduler, svc *Services, serveErr error) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if sched != nil {
		log.Info("Stopping scheduler")
		if err := sched.Stop(ctx); err != nil {
			log.Error("Failed to stop scheduler", logger.Error(err))
		}
	}

	log.Info("Stopping HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Failed to stop server", logger.Error(err))
	}

	log.Info("Draining scan sessions")
	if err := svc.Orchestrator.Shutdown(ctx); err != nil {
		log.Error("Failed to drain scan sessions", logger.Error(err))
	}

	log.Info("Server stopped")
	return serveErr
}
