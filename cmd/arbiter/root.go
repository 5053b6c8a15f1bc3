package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "arbiter",
	Short: "Arbiter - policy and compliance decision engine",
	Long: `Arbiter is a policy and compliance decision engine for regulated
asset platforms.

It enforces a coarse access policy in front of its API and evaluates
fine-grained compliance rules against transaction contexts:
  - Deny-list, jurisdiction, and rate-quota gates with decision caching
  - Prioritized compliance rules with short-circuit deny semantics
  - Transfer eligibility checks (sanctions, accreditation, limits)
  - Provenance headers and a durable audit trail for every decision`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
