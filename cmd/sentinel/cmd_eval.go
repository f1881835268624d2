package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"WalletSentinel/internal/config"
	"WalletSentinel/internal/notifier"
)

func newEvalCmd(global *globalOptions) *cobra.Command {
	var (
		notify           bool
		failOnRegression bool
	)
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Score the analyzer against labeled ground truth wallets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(global, (*config.Config).ValidateAnalyze, (*config.Config).ValidateEval)
			if err != nil {
				return err
			}
			defer a.Close()

			ev, err := buildEvaluator(a)
			if err != nil {
				return err
			}
			report, err := ev.Run(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, s := range report.Scores {
				status := "ok"
				switch {
				case s.Err != "":
					status = "error: " + s.Err
				case !s.StrategyCorrect:
					status = fmt.Sprintf("predicted %s, expected %s", s.Predicted, s.Actual)
				}
				fmt.Fprintf(out, "%-44s composite=%.3f recall=%.2f  %s\n", s.Wallet, s.Composite(), s.EvidenceRecall, status)
			}
			fmt.Fprintln(out, report.Summary())

			if notify {
				if err := a.cfg.ValidateServe(); err != nil {
					return errors.Wrap(err, "--notify")
				}
				tn, err := notifier.NewTelegramNotifier(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.cfg.Proxy, a.logger)
				if err != nil {
					return err
				}
				if err := tn.SendWithRetry(cmd.Context(), notifier.FormatEvalSummary(report), 3); err != nil {
					a.logger.Error("send eval summary", zap.Error(err))
				}
			}
			if failOnRegression && report.Regression != nil {
				return errors.Errorf("regression: mean composite %.3f below previous best %.3f",
					report.Regression.Current, report.Regression.PreviousBest)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&notify, "notify", false, "Send the summary to the configured Telegram chat")
	cmd.Flags().BoolVar(&failOnRegression, "fail-on-regression", false, "Exit non-zero when a regression is detected")
	return cmd
}
