package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/goodtune/kwatch/internal/actuator"
	"github.com/goodtune/kwatch/internal/config"
	"github.com/goodtune/kwatch/internal/ledger"
	"github.com/goodtune/kwatch/internal/metrics"
	"github.com/goodtune/kwatch/internal/monitor"
	"github.com/goodtune/kwatch/internal/secret"
	"github.com/goodtune/kwatch/internal/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run the enforcement monitor",
	Long: `Run the enforcement monitor in the foreground. The monitor polls the
target account's session state, tracks usage in per-day ledger files,
consumes redeem codes, and shuts the machine down when the daily budget
is exhausted or the allowed hours are exceeded.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runMonitorContext(ctx)
}

// runMonitorContext wires the monitor together and runs it until a
// terminal state or cancellation. Shared by the foreground command and
// the OS service wrapper.
func runMonitorContext(ctx context.Context) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Msg("Starting KWatch")

	// Initialize ledger store
	store, err := ledger.NewStore(cfg.Storage.DataDir, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize ledger store: %w", err)
	}

	logger.Info().Str("data_dir", cfg.Storage.DataDir).Msg("Ledger store initialized")

	// Load the signing secret; an empty secret is degraded, not fatal
	key := secret.Load(cfg.Storage.SecretFile, logger)

	// Optional metrics server
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		addr := fmt.Sprintf("%s:%d", cfg.Metrics.BindAddress, cfg.Metrics.Port)
		metricsServer = metrics.NewServer(addr, logger)
		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	mon := monitor.New(
		monitor.Config{
			TargetUser:         cfg.Monitor.TargetUser,
			RedeemFile:         cfg.Monitor.RedeemFile,
			DailyLimit:         cfg.Monitor.DailyLimitDuration(),
			CheckInterval:      cfg.Monitor.CheckIntervalDuration(),
			StartupDelay:       cfg.Monitor.StartupDelayDuration(),
			EarliestHour:       cfg.Monitor.EarliestHour,
			LatestHour:         cfg.Monitor.LatestHour,
			ShutdownDelay:      cfg.Monitor.ShutdownDelayDuration(),
			NightShutdownDelay: cfg.Monitor.NightShutdownDelayDuration(),
		},
		store,
		key,
		session.NewProbe(logger),
		actuator.New(logger),
		logger,
	)

	// Tell systemd we are up when running under it
	if runtime.GOOS == "linux" {
		if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
			logger.Debug().Err(err).Msg("systemd notify failed")
		}
	}

	state := mon.Run(ctx)

	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Error stopping metrics server")
		}
	}

	logger.Info().Str("state", string(state)).Msg("KWatch stopped")
	return nil
}

// setupLogger configures the logger based on configuration
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Set output format
	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Default to JSON
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// defaultConfigPath picks the per-OS configuration file location.
func defaultConfigPath() string {
	if runtime.GOOS == "windows" {
		return `C:\ProgramData\kwatch\config.yaml`
	}
	return "/etc/kwatch/config.yaml"
}
