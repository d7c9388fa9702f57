// Package main is the entry point for the solitude payment proxy.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/vyrodovalexey/solitude/internal/config"
	"github.com/vyrodovalexey/solitude/internal/observability"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// exitFunc is replaced in tests.
var exitFunc = os.Exit

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool
	// logLevelSet and logFormatSet report an explicit value from the flag
	// or environment, which then wins over the configuration file.
	logLevelSet  bool
	logFormatSet bool
}

func main() {
	if err := loadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	logger := initLogger(flags)
	defer func() { _ = logger.Sync() }()

	cfg := loadAndValidateConfig(flags.configPath, logger)
	if cfg == nil {
		return
	}
	logger = reconfigureLogger(logger, flags, cfg.Logging)

	app, err := initApplication(cfg, logger)
	if err != nil {
		fatalWithSync(logger, "failed to initialize application", observability.Error(err))
		return
	}
	app.logLevelPinned = flags.logLevelSet

	runProxy(app, flags.configPath, logger)
}

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	configPath := flag.String("config", getEnvOrDefault("SOLITUDE_CONFIG_PATH", "configs/solitude.yaml"),
		"Path to configuration file")
	logLevel := flag.String("log-level", getEnvOrDefault("SOLITUDE_LOG_LEVEL", "info"),
		"Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", getEnvOrDefault("SOLITUDE_LOG_FORMAT", "json"),
		"Log format (json, console)")
	showVersion := flag.Bool("version", getEnvBool("SOLITUDE_SHOW_VERSION", false), "Show version information")
	flag.Parse()

	levelSet := os.Getenv("SOLITUDE_LOG_LEVEL") != ""
	formatSet := os.Getenv("SOLITUDE_LOG_FORMAT") != ""
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "log-level":
			levelSet = true
		case "log-format":
			formatSet = true
		}
	})

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
		logLevelSet:  levelSet,
		logFormatSet: formatSet,
	}
}

// printVersion prints version information.
func printVersion() {
	fmt.Printf("solitude version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// initLogger initializes the logger.
func initLogger(flags cliFlags) observability.Logger {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  flags.logLevel,
		Format: flags.logFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		exitFunc(1)
		return observability.NopLogger()
	}

	return logger
}

// effectiveLogConfig merges the logging section of the configuration
// file with explicit flag or environment overrides.
func effectiveLogConfig(flags cliFlags, file config.LoggingConfig) observability.LogConfig {
	lc := observability.LogConfig{
		Level:  file.Level,
		Format: file.Format,
		Output: file.Output,
	}
	if flags.logLevelSet || lc.Level == "" {
		lc.Level = flags.logLevel
	}
	if flags.logFormatSet || lc.Format == "" {
		lc.Format = flags.logFormat
	}
	return lc
}

// reconfigureLogger replaces the bootstrap logger with one built from the
// loaded configuration. The bootstrap logger is kept if that fails.
func reconfigureLogger(
	bootstrap observability.Logger,
	flags cliFlags,
	file config.LoggingConfig,
) observability.Logger {
	logger, err := observability.NewLogger(effectiveLogConfig(flags, file))
	if err != nil {
		bootstrap.Warn("failed to apply logging configuration", observability.Error(err))
		return bootstrap
	}
	_ = bootstrap.Sync()
	return logger
}

// loadAndValidateConfig loads and validates the configuration.
func loadAndValidateConfig(configPath string, logger observability.Logger) *config.Config {
	logger.Info("starting solitude",
		observability.String("version", version),
		observability.String("config", configPath),
	)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fatalWithSync(logger, "failed to load configuration", observability.Error(err))
		return nil
	}

	if err := config.ValidateConfig(cfg); err != nil {
		fatalWithSync(logger, "invalid configuration", observability.Error(err))
		return nil
	}

	logger.Info("configuration loaded",
		observability.Bool("proxy_enabled", cfg.Proxy.Enabled),
		observability.Bool("paypal_enabled", cfg.Proxy.Backends.PayPal.IsEnabled(cfg.Proxy.Enabled)),
		observability.Bool("bango_enabled", cfg.Proxy.Backends.Bango.IsEnabled(cfg.Proxy.Enabled)),
		observability.Bool("bluevia_enabled", cfg.Bluevia.Enabled),
		observability.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
	)

	return cfg
}

// applyLogLevel switches the logger level when the logger supports it.
func applyLogLevel(logger observability.Logger, level string) {
	if level == "" {
		return
	}
	setter, ok := logger.(observability.LevelSetter)
	if !ok || setter.Level() == level {
		return
	}
	if err := setter.SetLevel(level); err != nil {
		logger.Warn("invalid log level", observability.String("level", level), observability.Error(err))
		return
	}
	logger.Info("log level changed", observability.String("level", level))
}

// fatalWithSync logs at error level, flushes the logger and exits.
func fatalWithSync(logger observability.Logger, msg string, fields ...observability.Field) {
	logger.Error(msg, fields...)
	_ = logger.Sync()
	exitFunc(1)
}
