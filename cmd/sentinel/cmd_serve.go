package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"WalletSentinel/internal/config"
	"WalletSentinel/internal/evaluator"
	"WalletSentinel/internal/notifier"
	"WalletSentinel/internal/scheduler"
	"WalletSentinel/internal/watchlist"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(global *globalOptions) *cobra.Command {
	var runOnStart bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot, the watchlist scheduler and the metrics endpoint",
		Long:  "Long-running mode: re-analyzes the watchlist on schedule, alerts on strategy drift, runs periodic evaluation and answers bot commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(global, (*config.Config).ValidateServe)
			if err != nil {
				return err
			}
			defer a.Close()
			return serve(cmd.Context(), a, runOnStart)
		},
	}
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "Run a watchlist sweep immediately")
	return cmd
}

func serve(parent context.Context, a *app, runOnStart bool) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	log := a.logger

	wl, err := watchlist.NewManager(a.cfg.Watchlist.StateFile, a.cfg.Watchlist.Wallets, log)
	if err != nil {
		return errors.Wrap(err, "init watchlist")
	}

	tn, err := notifier.NewTelegramNotifier(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.cfg.Proxy, log)
	if err != nil {
		return err
	}

	var eval scheduler.EvalRunner
	if ev, err := buildEvaluator(a); err != nil {
		log.Warn("evaluation disabled", zap.Error(err))
	} else {
		eval = ev
	}

	sched := scheduler.NewScheduler(ctx, a.pipeline, wl, eval, tn, log)
	if err := sched.RegisterAll(a.cfg.Schedule.WatchCron, a.cfg.Schedule.EvalCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("metrics server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", zap.Error(err))
		}
	}()

	go tn.StartPolling(ctx, sched.HandleCommand)
	log.Info("telegram polling started")

	if runOnStart {
		log.Info("run-on-start enabled, sweeping watchlist now")
		go sched.RunWatchNow(ctx)
	}

	log.Info("WalletSentinel is running", zap.Int("watched", len(wl.Wallets())))
	<-ctx.Done()
	log.Info("shutdown signal received, stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("metrics server shutdown", zap.Error(err))
	}
	return nil
}

// buildEvaluator loads ground truth; an empty set disables evaluation.
func buildEvaluator(a *app) (*evaluator.Evaluator, error) {
	if err := a.cfg.ValidateEval(); err != nil {
		return nil, err
	}
	truth, err := evaluator.LoadGroundTruth(a.cfg.Eval.GroundTruthPath)
	if err != nil {
		return nil, err
	}
	if len(truth) == 0 {
		return nil, errors.Errorf("no ground truth labels in %s", a.cfg.Eval.GroundTruthPath)
	}
	ev := evaluator.New(truth, a.analyzeThesis, a.recorder, a.metrics, a.logger)
	ev.Threshold = a.cfg.Eval.RegressionThreshold
	return ev, nil
}
