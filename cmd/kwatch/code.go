package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/goodtune/kwatch/internal/config"
	"github.com/goodtune/kwatch/internal/redeem"
	"github.com/goodtune/kwatch/internal/secret"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	codeDate  string
	codeExtra int64
)

var codeCmd = &cobra.Command{
	Use:   "code",
	Short: "Generate an extra-time redeem code",
	Long: `Generate a signed redeem code granting extra screen time for a given
date. Run this on the parent's machine with the same secret the monitor
uses; the supervised user places the code in the redeem file.

The secret is read from the KWATCH_SECRET environment variable (hex), or
from the configured secret file when the variable is unset.`,
	Example: `  KWATCH_SECRET=6b77617463682d6b6579 kwatch code
  kwatch code --date 2026-08-30 --extra 1800`,
	RunE: runCode,
}

func init() {
	codeCmd.Flags().StringVarP(&codeDate, "date", "d", "", "Date the code is valid for, YYYY-MM-DD (default: today)")
	codeCmd.Flags().Int64VarP(&codeExtra, "extra", "e", 3600, "Extra seconds the code grants")
	rootCmd.AddCommand(codeCmd)
}

func runCode(cmd *cobra.Command, args []string) error {
	key, err := signingKey()
	if err != nil {
		return err
	}

	date := codeDate
	if date == "" {
		date = time.Now().Format(redeem.DateFormat)
	}
	if _, err := time.Parse(redeem.DateFormat, date); err != nil {
		return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}
	if codeExtra <= 0 {
		return fmt.Errorf("extra seconds must be positive, got %d", codeExtra)
	}

	code := redeem.Generate(date, codeExtra, key)

	green := color.New(color.FgGreen, color.Bold)
	_, _ = green.Fprintln(os.Stdout, code)
	fmt.Fprintf(os.Stdout, "Grants %s of extra time on %s\n", time.Duration(codeExtra)*time.Second, date)

	return nil
}

// signingKey resolves the shared secret for code generation: the
// KWATCH_SECRET environment variable wins, then the configured secret
// file. Unlike the monitor, generating without a secret is an error.
func signingKey() (secret.Secret, error) {
	if env := os.Getenv("KWATCH_SECRET"); env != "" {
		key, err := hex.DecodeString(env)
		if err != nil {
			return nil, fmt.Errorf("KWATCH_SECRET is not valid hex: %w", err)
		}
		return secret.Secret(key), nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	key := secret.Load(cfg.Storage.SecretFile, zerolog.Nop())
	if key.Empty() {
		return nil, fmt.Errorf("no secret available: set KWATCH_SECRET or provision %s", cfg.Storage.SecretFile)
	}
	return key, nil
}
