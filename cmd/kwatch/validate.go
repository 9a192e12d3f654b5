package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/goodtune/kwatch/internal/config"
	"github.com/spf13/cobra"
)

var validateDump bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the KWatch configuration file for syntax and semantic errors.`,
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateDump, "dump", false, "Dump the effective configuration")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		red := color.New(color.FgRed, color.Bold)
		_, _ = red.Fprintf(os.Stderr, "Configuration validation failed: %v\n", err)
		return err
	}

	green := color.New(color.FgGreen)
	_, _ = green.Fprintf(os.Stdout, "Configuration is valid: %s\n", configPath)

	if cfg.Monitor.RedeemFile == "" {
		yellow := color.New(color.FgYellow)
		_, _ = yellow.Fprintln(os.Stdout, "Warning: no redeem file configured, extra-time codes cannot be submitted")
	}

	if validateDump {
		fmt.Fprintln(os.Stdout)
		fmt.Fprintf(os.Stdout, "monitor:\n")
		fmt.Fprintf(os.Stdout, "  target_user:          %s\n", cfg.Monitor.TargetUser)
		fmt.Fprintf(os.Stdout, "  redeem_file:          %s\n", cfg.Monitor.RedeemFile)
		fmt.Fprintf(os.Stdout, "  daily_limit:          %s\n", cfg.Monitor.DailyLimitDuration())
		fmt.Fprintf(os.Stdout, "  check_interval:       %s\n", cfg.Monitor.CheckIntervalDuration())
		fmt.Fprintf(os.Stdout, "  startup_delay:        %s\n", cfg.Monitor.StartupDelayDuration())
		fmt.Fprintf(os.Stdout, "  allowed_hours:        %02d:00-%02d:59\n", cfg.Monitor.EarliestHour, cfg.Monitor.LatestHour)
		fmt.Fprintf(os.Stdout, "  shutdown_delay:       %s\n", cfg.Monitor.ShutdownDelayDuration())
		fmt.Fprintf(os.Stdout, "  night_shutdown_delay: %s\n", cfg.Monitor.NightShutdownDelayDuration())
		fmt.Fprintf(os.Stdout, "storage:\n")
		fmt.Fprintf(os.Stdout, "  data_dir:             %s\n", cfg.Storage.DataDir)
		fmt.Fprintf(os.Stdout, "  secret_file:          %s\n", cfg.Storage.SecretFile)
		fmt.Fprintf(os.Stdout, "logging:\n")
		fmt.Fprintf(os.Stdout, "  level:                %s\n", cfg.Logging.Level)
		fmt.Fprintf(os.Stdout, "  format:               %s\n", cfg.Logging.Format)
		fmt.Fprintf(os.Stdout, "metrics:\n")
		fmt.Fprintf(os.Stdout, "  enabled:              %t\n", cfg.Metrics.Enabled)
		if cfg.Metrics.Enabled {
			fmt.Fprintf(os.Stdout, "  listen:               %s:%d\n", cfg.Metrics.BindAddress, cfg.Metrics.Port)
		}
	}

	return nil
}
