package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/vyrodovalexey/solitude/internal/config"
	"github.com/vyrodovalexey/solitude/internal/observability"
)

// runProxy starts the listeners and blocks until a shutdown signal or a
// listener failure.
func runProxy(app *application, configPath string, logger observability.Logger) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	startServer(app.server, "proxy", errCh, logger)
	if app.adminServer != nil {
		startServer(app.adminServer, "admin", errCh, logger)
	}

	watcher := startConfigWatcher(ctx, app, configPath, logger)

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		logger.Error("server failed", observability.Error(err))
	}

	shutdown(app, watcher, logger)
}

// startServer runs server in the background and reports unexpected
// listener errors on errCh.
func startServer(server *http.Server, name string, errCh chan<- error, logger observability.Logger) {
	logger.Info("starting server",
		observability.String("server", name),
		observability.String("address", server.Addr),
	)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
}

// shutdown drains the listeners and releases every component.
func shutdown(app *application, watcher *config.Watcher, logger observability.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		app.config.Server.ShutdownTimeout.OrDefault(config.DefaultShutdownTimeout))
	defer cancel()

	if watcher != nil {
		_ = watcher.Stop()
	}

	if app.adminServer != nil {
		logger.Info("stopping admin server")
		if err := app.adminServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to stop admin server gracefully", observability.Error(err))
		}
	}

	if app.server != nil {
		logger.Info("stopping proxy server")
		if err := app.server.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to stop proxy server gracefully", observability.Error(err))
		}
	}

	app.closeResources(shutdownCtx)
	logger.Info("solitude stopped")
}

// closeResources releases components in reverse dependency order. It is
// safe on a partially initialized application.
func (app *application) closeResources(ctx context.Context) {
	logger := app.logger
	if logger == nil {
		logger = observability.NopLogger()
	}

	if app.dispatcher != nil {
		if err := app.dispatcher.Close(); err != nil {
			logger.Error("failed to close dispatcher", observability.Error(err))
		}
	}

	// The Redis limiter owns its client.
	if app.limiter != nil {
		if err := app.limiter.Close(); err != nil {
			logger.Error("failed to close rate limiter", observability.Error(err))
		}
	} else if app.redisClient != nil {
		_ = app.redisClient.Close()
	}

	if app.vaultClient != nil {
		logger.Info("closing vault client")
		if err := app.vaultClient.Close(); err != nil {
			logger.Error("failed to close vault client", observability.Error(err))
		}
	}

	if app.tracer != nil {
		if err := app.tracer.Shutdown(ctx); err != nil {
			logger.Error("failed to shutdown tracer", observability.Error(err))
		}
	}
}
