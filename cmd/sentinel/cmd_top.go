package main

import (
	"fmt"
	"math"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"WalletSentinel/internal/config"
)

func newTopCmd(global *globalOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "top",
		Short: "List the top ranked wallets from the data source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(global, (*config.Config).ValidateAnalyze)
			if err != nil {
				return err
			}
			defer a.Close()

			wallets, err := a.collector.TopWallets(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tWALLET\tUSER\tPNL\tWIN RATE")
			for i, p := range wallets {
				rank := i + 1
				if p.Rank != nil {
					rank = *p.Rank
				}
				winRate := "-"
				if p.ClosedWinRate != nil {
					winRate = fmt.Sprintf("%.1f%%", *p.ClosedWinRate*100)
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t$%s\t%s\n", rank, p.Wallet, p.Username, humanize.Comma(int64(math.Round(p.PnLAllTime))), winRate)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of wallets to list")
	return cmd
}
