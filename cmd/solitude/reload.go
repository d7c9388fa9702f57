package main

import (
	"context"
	"reflect"
	"slices"

	"github.com/vyrodovalexey/solitude/internal/config"
	"github.com/vyrodovalexey/solitude/internal/observability"
)

// startConfigWatcher starts the configuration watcher. Watch failures
// are logged and the proxy keeps running on the loaded configuration.
func startConfigWatcher(
	ctx context.Context,
	app *application,
	configPath string,
	logger observability.Logger,
) *config.Watcher {
	watcher, err := config.NewWatcher(configPath, func(newCfg *config.Config) {
		logger.Info("configuration changed, reloading")
		reloadComponents(app, newCfg, logger)
	},
		config.WithLogger(logger),
		config.WithErrorCallback(func(err error) {
			logger.Warn("configuration reload rejected", observability.Error(err))
		}),
	)
	if err != nil {
		logger.Warn("failed to create config watcher", observability.Error(err))
		return nil
	}

	if err := watcher.Start(ctx); err != nil {
		logger.Warn("failed to start config watcher", observability.Error(err))
		return watcher
	}
	return watcher
}

// reloadComponents applies the parts of newCfg that can change at
// runtime. Only the log level is hot-reloaded, unless a flag or the
// environment pinned it. Other changes are reported once and take effect
// on restart.
func reloadComponents(app *application, newCfg *config.Config, logger observability.Logger) {
	if !app.logLevelPinned {
		applyLogLevel(logger, newCfg.Logging.Level)
	}

	previous := app.lastReload
	if previous == nil {
		previous = app.config
	}
	app.lastReload = newCfg

	changedSinceLast := restartRequiredSections(previous, newCfg)
	for _, section := range restartRequiredSections(app.config, newCfg) {
		if !slices.Contains(changedSinceLast, section) {
			continue
		}
		logger.Warn("configuration change requires restart",
			observability.String("section", section),
		)
	}
}

// restartRequiredSections lists the sections of next that differ from
// current and are not applied at runtime.
func restartRequiredSections(current, next *config.Config) []string {
	var changed []string
	if current.Logging.Format != next.Logging.Format || current.Logging.Output != next.Logging.Output {
		changed = append(changed, "logging")
	}
	if !reflect.DeepEqual(current.Server, next.Server) {
		changed = append(changed, "server")
	}
	if !reflect.DeepEqual(current.Admin, next.Admin) {
		changed = append(changed, "admin")
	}
	if !reflect.DeepEqual(current.Tracing, next.Tracing) {
		changed = append(changed, "tracing")
	}
	if !reflect.DeepEqual(current.Proxy, next.Proxy) {
		changed = append(changed, "proxy")
	}
	if !reflect.DeepEqual(current.Vault, next.Vault) {
		changed = append(changed, "vault")
	}
	if !reflect.DeepEqual(current.RateLimit, next.RateLimit) {
		changed = append(changed, "rateLimit")
	}
	if !reflect.DeepEqual(current.Bluevia, next.Bluevia) {
		changed = append(changed, "bluevia")
	}
	return changed
}
