package notifier

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WalletSentinel/internal/evaluator"
	"WalletSentinel/internal/model"
	"WalletSentinel/internal/watchlist"
)

// fakeTelegram serves getMe and sendMessage, failing the first failures sends.
type fakeTelegram struct {
	mu       sync.Mutex
	failures int
	sent     []string
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"sentinel","username":"sentinel_bot"}}`)
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		_ = r.ParseForm()
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failures > 0 {
			f.failures--
			fmt.Fprint(w, `{"ok":false,"error_code":429,"description":"Too Many Requests"}`)
			return
		}
		f.sent = append(f.sent, r.PostForm.Get("text"))
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`)
	default:
		http.NotFound(w, r)
	}
}

func newTestNotifier(t *testing.T, fake *fakeTelegram) *TelegramNotifier {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	n, err := newTelegramNotifier("token", "42", "", srv.URL+"/bot%s/%s", nil)
	require.NoError(t, err)
	n.backoff = time.Millisecond
	return n
}

func TestTelegramNotifier_SendWithRetry(t *testing.T) {
	fake := &fakeTelegram{failures: 2}
	n := newTestNotifier(t, fake)

	require.NoError(t, n.SendWithRetry(context.Background(), "<b>hello</b>", 3))
	assert.Equal(t, []string{"<b>hello</b>"}, fake.sent)

	fake.mu.Lock()
	fake.failures = 5
	fake.mu.Unlock()
	err := n.SendWithRetry(context.Background(), "dropped", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func commandUpdate(chatID int64, text string) tgbotapi.Update {
	cmdLen := len(strings.Fields(text)[0])
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
	}}
}

func TestTelegramNotifier_Dispatch(t *testing.T) {
	fake := &fakeTelegram{}
	n := newTestNotifier(t, fake)

	got := make(chan string, 4)
	handler := func(_ context.Context, command string) string {
		got <- command
		return "reply to " + command
	}

	n.dispatch(context.Background(), commandUpdate(7, "/help"), handler)
	n.dispatch(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{Text: "hello", Chat: &tgbotapi.Chat{ID: 42}}}, handler)
	n.dispatch(context.Background(), tgbotapi.Update{}, handler)
	n.dispatch(context.Background(), commandUpdate(42, " /analyze 0xabc "), handler)

	select {
	case cmd := <-got:
		assert.Equal(t, "/analyze 0xabc", cmd)
	case <-time.After(2 * time.Second):
		t.Fatal("handler not called")
	}
	assert.Eventually(t, func() bool {
		fake.mu.Lock()
		defer fake.mu.Unlock()
		return len(fake.sent) == 1 && fake.sent[0] == "reply to /analyze 0xabc"
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, got)
}

func TestNewTelegramNotifier_BadChatID(t *testing.T) {
	_, err := NewTelegramNotifier("token", "not-a-number", "", nil)
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
	long := strings.Repeat("é", maxMessageRunes+10)
	assert.Len(t, []rune(truncate(long, maxMessageRunes)), maxMessageRunes)
}

func TestFormatThesis(t *testing.T) {
	th := &model.Thesis{
		Wallet:           "0x1234567890abcdef1234",
		Primary:          model.StrategyModelBased,
		Secondary:        []model.Strategy{model.StrategyInfoEdge},
		Confidence:       0.75,
		Evidence:         []string{"OVERRIDE info_edge→model_based [info_edge_sports]: 80% sports <b>"},
		Reasoning:        "Systematic sizing.",
		SignalsToMonitor: []string{"win rate"},
		RiskAssessment:   "Risk LOW: max drawdown 5%",
		PositionCount:    1200,
	}
	out := FormatThesis(th)
	assert.Contains(t, out, "<code>0x1234…1234</code>")
	assert.Contains(t, out, "<b>model_based</b> (confidence 75%)")
	assert.Contains(t, out, "Secondary: info_edge")
	assert.Contains(t, out, "80% sports &lt;b&gt;")
	assert.Contains(t, out, "Positions analyzed: 1200")
	assert.Contains(t, out, "Risk LOW")

	th.Evidence = make([]string, maxEvidenceLines+3)
	for i := range th.Evidence {
		th.Evidence[i] = fmt.Sprintf("line %d", i)
	}
	assert.Contains(t, FormatThesis(th), "… 3 more")
}

func TestFormatDriftAndWatchlist(t *testing.T) {
	d := &watchlist.Drift{Wallet: "0xabc", From: model.StrategyWhale, To: model.StrategyInfoEdge,
		FromConfidence: 0.6, ToConfidence: 0.8, StableRuns: 2}
	out := FormatDrift(d)
	assert.Contains(t, out, "whale (60%) → <b>info_edge</b> (80%)")
	assert.Contains(t, out, "3 consecutive run(s)")

	assert.Contains(t, FormatWatchlist(nil), "empty")
	list := FormatWatchlist([]model.WatchState{
		{Wallet: "0xaaa"},
		{Wallet: "0xbbb", LastPrimary: model.StrategyHedger, LastConfidence: 0.5, ConsecutiveStable: 4,
			LastAnalyzedAt: time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)},
	})
	assert.Contains(t, list, "(2)")
	assert.Contains(t, list, "0xaaa</code>: not analyzed (never)")
	assert.Contains(t, list, "hedger 50%, stable 4 (2026-01-02 03:04)")
}

func TestFormatEvalSummary(t *testing.T) {
	r := &evaluator.Report{
		RunID:     "r1",
		CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Scores: []evaluator.Score{
			{Wallet: "0xaaa", Predicted: model.StrategyWhale, Actual: model.StrategyWhale, StrategyCorrect: true},
			{Wallet: "0xbbb", Predicted: model.StrategyScalper, Actual: model.StrategyMarketMaker},
			{Wallet: "0xccc", Err: "fetch failed"},
		},
		Regression: &evaluator.Regression{PreviousBest: 0.8, Current: 0.4, Delta: -0.4},
	}
	out := FormatEvalSummary(r)
	assert.Contains(t, out, "2026-03-01")
	assert.Contains(t, out, "Wallets: 3")
	assert.Contains(t, out, "Strategy accuracy: 33.3%")
	assert.Contains(t, out, "❌ <code>0xbbb</code>: scalper, expected market_maker")
	assert.Contains(t, out, "💥 <code>0xccc</code>: fetch failed")
	assert.Contains(t, out, "Regression:</b> 0.800 → 0.400 (-0.400)")
	assert.NotContains(t, out, "0xaaa")
}

func TestFormatError(t *testing.T) {
	out := FormatError("analyze", errors.New("wallet <x> not found"))
	assert.Contains(t, out, "analyze failed: wallet &lt;x&gt; not found")
}
