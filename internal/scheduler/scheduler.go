package scheduler

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"WalletSentinel/internal/evaluator"
	"WalletSentinel/internal/model"
	"WalletSentinel/internal/notifier"
	"WalletSentinel/internal/pipeline"
	"WalletSentinel/internal/watchlist"
)

const sendRetries = 3

var walletPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Analyzer produces a pipeline result for one wallet.
type Analyzer interface {
	Analyze(ctx context.Context, wallet string) (*pipeline.Result, error)
}

// EvalRunner runs a ground truth evaluation.
type EvalRunner interface {
	Run(ctx context.Context) (*evaluator.Report, error)
}

// Sender delivers formatted messages.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages the cron jobs and bot commands.
type Scheduler struct {
	cron      *cron.Cron
	analyzer  Analyzer
	watchlist *watchlist.Manager
	eval      EvalRunner
	sender    Sender
	logger    *zap.Logger
	ctx       context.Context

	// one watch sweep at a time
	watchMu sync.Mutex
}

// NewScheduler creates a new Scheduler. eval may be nil when no ground truth is configured.
func NewScheduler(ctx context.Context, a Analyzer, wl *watchlist.Manager, eval EvalRunner, s Sender, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:      cron.New(cron.WithSeconds()),
		analyzer:  a,
		watchlist: wl,
		eval:      eval,
		sender:    s,
		logger:    logger,
		ctx:       ctx,
	}
}

// RegisterAll registers the watchlist sweep and, when an evaluator is set, the eval job.
func (s *Scheduler) RegisterAll(watchCron, evalCron string) error {
	if _, err := s.cron.AddFunc(watchCron, func() { s.RunWatchNow(s.ctx) }); err != nil {
		return errors.Wrap(err, "register watch task")
	}
	if s.eval == nil {
		return nil
	}
	if _, err := s.cron.AddFunc(evalCron, func() { s.evalTask(s.ctx) }); err != nil {
		return errors.Wrap(err, "register eval task")
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// RunWatchNow re-analyzes every watched wallet in sequence and alerts on
// label drift. It returns the drifts found.
func (s *Scheduler) RunWatchNow(ctx context.Context) []*watchlist.Drift {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	wallets := s.watchlist.Wallets()
	s.logger.Info("running watchlist sweep", zap.Int("wallets", len(wallets)))

	var drifts []*watchlist.Drift
	failed := 0
	for _, w := range wallets {
		if ctx.Err() != nil {
			break
		}
		res, err := s.analyzer.Analyze(ctx, w)
		if err != nil {
			failed++
			s.logger.Error("watch analyze", zap.String("wallet", w), zap.Error(err))
			continue
		}
		if d := s.watchlist.Observe(res.Thesis); d != nil {
			drifts = append(drifts, d)
			s.trySend(ctx, notifier.FormatDrift(d))
		}
	}
	s.logger.Info("watchlist sweep done",
		zap.Int("drifts", len(drifts)), zap.Int("failed", failed))
	return drifts
}

func (s *Scheduler) evalTask(ctx context.Context) {
	if _, err := s.runEval(ctx); err != nil {
		s.trySend(ctx, notifier.FormatError("eval", err))
	}
}

func (s *Scheduler) runEval(ctx context.Context) (string, error) {
	s.logger.Info("running eval task")
	report, err := s.eval.Run(ctx)
	if err != nil {
		s.logger.Error("eval run", zap.Error(err))
		return "", err
	}
	msg := notifier.FormatEvalSummary(report)
	s.trySend(ctx, msg)
	return msg, nil
}

// HandleCommand processes a bot command and returns the reply. Replies
// already delivered by the handler come back empty.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	// strip a trailing @botname
	name, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")
	args := fields[1:]

	switch name {
	case "/analyze":
		wallet, errMsg := walletArg(args)
		if errMsg != "" {
			return errMsg
		}
		res, err := s.analyzer.Analyze(ctx, wallet)
		if err != nil {
			return notifier.FormatError("analyze", err)
		}
		return notifier.FormatThesis(res.Thesis)
	case "/watch":
		wallet, errMsg := walletArg(args)
		if errMsg != "" {
			return errMsg
		}
		if !s.watchlist.Add(wallet) {
			return fmt.Sprintf("<code>%s</code> is already watched", wallet)
		}
		return fmt.Sprintf("👀 watching <code>%s</code>", wallet)
	case "/unwatch":
		wallet, errMsg := walletArg(args)
		if errMsg != "" {
			return errMsg
		}
		if !s.watchlist.Remove(wallet) {
			return fmt.Sprintf("<code>%s</code> is not watched", wallet)
		}
		return fmt.Sprintf("🗑 stopped watching <code>%s</code>", wallet)
	case "/watchlist":
		return notifier.FormatWatchlist(s.watchStates())
	case "/eval":
		if s.eval == nil {
			return "Evaluation is not configured"
		}
		if _, err := s.runEval(ctx); err != nil {
			return notifier.FormatError("eval", err)
		}
		return ""
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) watchStates() []model.WatchState {
	wallets := s.watchlist.Wallets()
	states := make([]model.WatchState, 0, len(wallets))
	for _, w := range wallets {
		if ws, ok := s.watchlist.Get(w); ok {
			states = append(states, ws)
		}
	}
	return states
}

func walletArg(args []string) (string, string) {
	if len(args) != 1 {
		return "", "usage: command &lt;wallet&gt;"
	}
	w := strings.ToLower(args[0])
	if !walletPattern.MatchString(w) {
		return "", "invalid wallet address: expected 0x followed by 40 hex characters"
	}
	return w, ""
}

func (s *Scheduler) trySend(ctx context.Context, text string) {
	if s.sender == nil {
		return
	}
	if err := s.sender.SendWithRetry(ctx, text, sendRetries); err != nil {
		s.logger.Error("send notification", zap.Error(err))
	}
}
