package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"WalletSentinel/internal/config"
	"WalletSentinel/internal/notifier"
	"WalletSentinel/internal/pipeline"
	"WalletSentinel/internal/strategy"
)

type analyzeOptions struct {
	JSON   bool
	Report bool
	Notify bool
}

func newAnalyzeCmd(global *globalOptions) *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze <wallet> [wallet...]",
		Short: "Classify one or more wallets",
		Long:  "Collects positions, runs the statistical analyzers, classifies and applies the hard overrides, then prints the thesis",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(global, (*config.Config).ValidateAnalyze)
			if err != nil {
				return err
			}
			defer a.Close()

			var tn *notifier.TelegramNotifier
			if opts.Notify {
				if err := a.cfg.ValidateServe(); err != nil {
					return errors.Wrap(err, "--notify")
				}
				if tn, err = notifier.NewTelegramNotifier(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.cfg.Proxy, a.logger); err != nil {
					return err
				}
			}

			failed := 0
			for _, wallet := range args {
				res, err := a.pipeline.Analyze(cmd.Context(), wallet)
				if err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", wallet, err)
					continue
				}
				if err := printResult(cmd.OutOrStdout(), res, opts); err != nil {
					return err
				}
				if tn != nil {
					if err := tn.SendWithRetry(cmd.Context(), notifier.FormatThesis(res.Thesis), 3); err != nil {
						a.logger.Error("send thesis", zap.Error(err))
					}
				}
			}
			if failed > 0 {
				return errors.Errorf("%d of %d wallets failed", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Print the thesis as JSON")
	cmd.Flags().BoolVar(&opts.Report, "report", false, "Also print the analyzer report and hints")
	cmd.Flags().BoolVar(&opts.Notify, "notify", false, "Send the thesis to the configured Telegram chat")
	return cmd
}

func printResult(w io.Writer, res *pipeline.Result, opts *analyzeOptions) error {
	if opts.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Thesis)
	}

	th := res.Thesis
	fmt.Fprintf(w, "Wallet:     %s\n", th.Wallet)
	fmt.Fprintf(w, "Run:        %s\n", res.RunID)
	fmt.Fprintf(w, "Primary:    %s (%.0f%%)\n", th.Primary, th.Confidence*100)
	fmt.Fprintf(w, "Secondary:  %v\n", th.Secondary)
	fmt.Fprintf(w, "Candidate:  %s\n", res.Candidate.Primary)
	if res.Decision.Changed() {
		fmt.Fprintf(w, "Overrides:  %v\n", res.Decision.Fired)
	}
	fmt.Fprintln(w, "Evidence:")
	for _, e := range th.Evidence {
		fmt.Fprintf(w, "  - %s\n", e)
	}
	if th.Reasoning != "" {
		fmt.Fprintf(w, "Reasoning:  %s\n", th.Reasoning)
	}
	if len(th.SignalsToMonitor) > 0 {
		fmt.Fprintf(w, "Monitor:    %v\n", th.SignalsToMonitor)
	}
	fmt.Fprintf(w, "Risk:       %s\n", th.RiskAssessment)

	if opts.Report && res.Report != nil {
		fmt.Fprintf(w, "\n%s\n", res.Report.Text())
		if len(res.Hints) > 0 {
			fmt.Fprintf(w, "\n%s\n", strategy.RenderHints(res.Hints))
		}
	}
	fmt.Fprintln(w)
	return nil
}
