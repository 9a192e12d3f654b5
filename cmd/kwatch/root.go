package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version    = "dev"
	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kwatch",
	Short: "KWatch - Daily screen time budget enforcement for a supervised account",
	Long: `KWatch monitors a supervised account's daily screen time on the machine
it runs on, and powers the machine off when the daily budget is spent or
the allowed hours are over. Extra time is granted offline through short
signed redeem codes generated with "kwatch code" on the parent's machine.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to the monitor when no subcommand is provided
		return runMonitor(cmd, args)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Path to configuration file")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
