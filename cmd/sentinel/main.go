package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "v0.3.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:     "sentinel",
		Short:   "Polymarket wallet strategy analyzer",
		Version: version,
		Long: `WalletSentinel classifies Polymarket wallets into strategy archetypes
(info_edge, model_based, market_maker, whale, scalper, ...) from their position
history, watches wallets for label drift and scores itself against ground truth.`,
		SilenceUsage: true,
	}
	addGlobalFlags(rootCmd.PersistentFlags(), opts)

	rootCmd.AddCommand(
		newAnalyzeCmd(opts),
		newServeCmd(opts),
		newEvalCmd(opts),
		newTopCmd(opts),
	)
	return rootCmd
}
