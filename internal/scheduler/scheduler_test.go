package scheduler

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WalletSentinel/internal/evaluator"
	"WalletSentinel/internal/model"
	"WalletSentinel/internal/pipeline"
	"WalletSentinel/internal/watchlist"
)

var (
	walletA = "0x" + strings.Repeat("a", 40)
	walletB = "0x" + strings.Repeat("b", 40)
)

type fakeAnalyzer struct {
	mu     sync.Mutex
	labels map[string]model.Strategy
	fail   map[string]bool
	calls  []string
	before func(wallet string)
}

func (f *fakeAnalyzer) set(wallet string, s model.Strategy) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.labels[wallet] = s
}

func (f *fakeAnalyzer) Analyze(_ context.Context, wallet string) (*pipeline.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, wallet)
	if f.before != nil {
		f.before(wallet)
	}
	if f.fail[wallet] {
		return nil, pipeline.ErrNoPositions
	}
	th := &model.Thesis{Wallet: wallet, Primary: f.labels[wallet], Confidence: 0.7}
	return &pipeline.Result{RunID: "r", Thesis: th}, nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSender) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

type fakeEval struct {
	report *evaluator.Report
	err    error
}

func (f *fakeEval) Run(context.Context) (*evaluator.Report, error) { return f.report, f.err }

func newTestScheduler(t *testing.T, eval EvalRunner) (*Scheduler, *fakeAnalyzer, *fakeSender, *watchlist.Manager) {
	t.Helper()
	wl, err := watchlist.NewManager(filepath.Join(t.TempDir(), "wl.json"), []string{walletA, walletB}, nil)
	require.NoError(t, err)
	a := &fakeAnalyzer{
		labels: map[string]model.Strategy{walletA: model.StrategyWhale, walletB: model.StrategyScalper},
		fail:   map[string]bool{},
	}
	s := &fakeSender{}
	return NewScheduler(context.Background(), a, wl, eval, s, nil), a, s, wl
}

func TestScheduler_RunWatchNow(t *testing.T) {
	sched, a, sender, wl := newTestScheduler(t, nil)
	ctx := context.Background()

	assert.Empty(t, sched.RunWatchNow(ctx))
	assert.Empty(t, sender.sent)

	a.set(walletA, model.StrategyInfoEdge)
	a.fail[walletB] = true
	drifts := sched.RunWatchNow(ctx)
	require.Len(t, drifts, 1)
	assert.Equal(t, walletA, drifts[0].Wallet)
	assert.Equal(t, model.StrategyWhale, drifts[0].From)
	assert.Equal(t, model.StrategyInfoEdge, drifts[0].To)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "Strategy drift")

	ws, ok := wl.Get(walletB)
	require.True(t, ok)
	assert.Equal(t, model.StrategyScalper, ws.LastPrimary)
	assert.Equal(t, []string{walletA, walletB, walletA, walletB}, a.calls)
}

func TestScheduler_RunWatchNowUnwatchedMidSweep(t *testing.T) {
	sched, a, sender, wl := newTestScheduler(t, nil)
	a.before = func(wallet string) {
		if wallet == walletA {
			wl.Remove(walletA)
		}
	}

	assert.Empty(t, sched.RunWatchNow(context.Background()))
	assert.Empty(t, sender.sent)
	assert.Equal(t, []string{walletB}, wl.Wallets())
}

func TestScheduler_RunWatchNowCancelled(t *testing.T) {
	sched, a, _, _ := newTestScheduler(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Empty(t, sched.RunWatchNow(ctx))
	assert.Empty(t, a.calls)
}

func TestScheduler_HandleCommand(t *testing.T) {
	report := &evaluator.Report{Scores: []evaluator.Score{{Wallet: walletA, StrategyCorrect: true}}}
	newWallet := "0x" + strings.Repeat("C", 40)

	tests := []struct {
		name    string
		command string
		want    string
	}{
		{"help", "/help", "WalletSentinel commands"},
		{"unknown", "/foo", "WalletSentinel commands"},
		{"empty", "  ", "WalletSentinel commands"},
		{"analyze", "/analyze " + walletA, "<b>whale</b>"},
		{"analyze with bot suffix", "/analyze@sentinel_bot " + walletB, "<b>scalper</b>"},
		{"analyze missing arg", "/analyze", "usage"},
		{"analyze bad wallet", "/analyze 0x123", "invalid wallet address"},
		{"watch new", "/watch " + newWallet, "watching <code>" + strings.ToLower(newWallet)},
		{"watch existing", "/watch " + walletA, "already watched"},
		{"unwatch", "/unwatch " + walletB, "stopped watching"},
		{"unwatch missing", "/unwatch " + "0x" + strings.Repeat("d", 40), "is not watched"},
		{"watchlist", "/watchlist", "Watchlist</b> (2)"},
	}
	sched, _, _, _ := newTestScheduler(t, &fakeEval{report: report})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, sched.HandleCommand(context.Background(), tt.command), tt.want)
		})
	}
}

func TestScheduler_EvalCommand(t *testing.T) {
	report := &evaluator.Report{Scores: []evaluator.Score{{Wallet: walletA, StrategyCorrect: true}}}
	sched, _, sender, _ := newTestScheduler(t, &fakeEval{report: report})
	assert.Empty(t, sched.HandleCommand(context.Background(), "/eval"))
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "Eval report")

	failing, _, _, _ := newTestScheduler(t, &fakeEval{err: errors.New("no ground truth wallets labeled")})
	assert.Contains(t, failing.HandleCommand(context.Background(), "/eval"), "eval failed: no ground truth")

	none, _, _, _ := newTestScheduler(t, nil)
	assert.Contains(t, none.HandleCommand(context.Background(), "/eval"), "not configured")
}

func TestScheduler_RegisterAll(t *testing.T) {
	sched, _, _, _ := newTestScheduler(t, &fakeEval{})
	require.NoError(t, sched.RegisterAll("0 0 8 * * *", "0 0 9 * * 1"))
	assert.Len(t, sched.cron.Entries(), 2)

	noEval, _, _, _ := newTestScheduler(t, nil)
	require.NoError(t, noEval.RegisterAll("0 0 8 * * *", "bad"))
	assert.Len(t, noEval.cron.Entries(), 1)

	bad, _, _, _ := newTestScheduler(t, nil)
	assert.Error(t, bad.RegisterAll("not a cron", ""))
}
