package main

import (
	"github.com/spf13/cobra"
)

var outputJSON bool

var rootCmd = &cobra.Command{
	Use:   "relayctl",
	Short: "Operator CLI for the hookrelay webhook engine",
	Long: `relayctl inspects the state the webhook engine keeps in Postgres:
tracked render jobs, changelog entries, and the delivery ledger.`,
	SilenceUsage: true,
}

func init() { //nolint:gochecknoinits // Cobra's init function for flag registration
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output as JSON")
}
