package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/goodtune/kwatch/internal/config"
	"github.com/goodtune/kwatch/internal/ledger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show today's usage ledger",
	Long:  `Show time spent, extra time granted, remaining budget, and recent events for today. Read-only.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	store, err := ledger.NewStore(cfg.Storage.DataDir, zerolog.Nop())
	if err != nil {
		return fmt.Errorf("failed to open ledger store: %w", err)
	}

	now := time.Now()
	led := store.Load(now)

	budget := int64(cfg.Monitor.DailyLimitDuration().Seconds()) + led.ExtraTimeSec
	remaining := budget - led.TimeSpentSec
	if remaining < 0 {
		remaining = 0
	}

	bold := color.New(color.Bold)
	_, _ = bold.Fprintf(os.Stdout, "Usage for %s (user %s)\n\n", now.Format(ledger.DateFormat), cfg.Monitor.TargetUser)

	fmt.Fprintf(os.Stdout, "  Time spent:  %s\n", secondsDuration(led.TimeSpentSec))
	fmt.Fprintf(os.Stdout, "  Extra time:  %s\n", secondsDuration(led.ExtraTimeSec))
	fmt.Fprintf(os.Stdout, "  Budget:      %s\n", secondsDuration(budget))

	if remaining == 0 {
		red := color.New(color.FgRed, color.Bold)
		_, _ = red.Fprintln(os.Stdout, "  Remaining:   none")
	} else {
		green := color.New(color.FgGreen)
		_, _ = green.Fprintf(os.Stdout, "  Remaining:   %s\n", secondsDuration(remaining))
	}

	if led.LastTick != "" {
		fmt.Fprintf(os.Stdout, "  Last tick:   %s\n", led.LastTick)
	}
	fmt.Fprintf(os.Stdout, "  Codes used:  %d\n", len(led.UsedRedeemCodes))

	if len(led.EventLog) > 0 {
		fmt.Fprintln(os.Stdout, "\nRecent events:")
		events := led.EventLog
		if len(events) > 10 {
			events = events[len(events)-10:]
		}
		for _, e := range events {
			fmt.Fprintf(os.Stdout, "  %s\n", e)
		}
	}

	return nil
}

func secondsDuration(sec int64) time.Duration {
	return time.Duration(sec) * time.Second
}
