package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"WalletSentinel/internal/metrics"
	"WalletSentinel/internal/model"
)

func fastOptions() AlgoArenaOptions {
	return AlgoArenaOptions{
		Timeout:      2 * time.Second,
		RateLimitRPS: 1000,
		RateBurst:    10,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestAlgoArenaFetcher_Endpoints(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/algos/positions/0xabc", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"tb":120.5,"ap":0.42,"cp":1,"pnl":69.9,"ts":1740000000,"t":"Fed rate cut?","cid":"0x1","o":"Yes"}]`))
	})
	mux.HandleFunc("/api/algos/pnl/0xabc", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []model.PnLPoint{{Timestamp: 1740000000, PnL: 12}})
	})
	mux.HandleFunc("/api/wallets/0xabc/pnl", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"current":{"pnl_all_time":5000,"rank":7,"sharpe_score":1.4}}`))
	})
	mux.HandleFunc("/api/rankings/table", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"rankings":[{"wallet":"0xabc","pnl_all_time":5000},{"wallet":"0xdef","pnl_all_time":10}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := NewAlgoArenaFetcher(srv.URL, fastOptions(), nil, zap.NewNop())
	ctx := context.Background()

	positions, err := f.FetchPositions(ctx, "0xabc")
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, model.Position{TotalBought: 120.5, AvgPrice: 0.42, CurrentPrice: 1, PnL: 69.9,
		Timestamp: 1740000000, Title: "Fed rate cut?", ConditionID: "0x1", Outcome: "Yes"}, positions[0])

	history, err := f.FetchPnLHistory(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, []model.PnLPoint{{Timestamp: 1740000000, PnL: 12}}, history)

	profile, err := f.FetchProfile(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", profile.Wallet)
	assert.Equal(t, 5000.0, profile.PnLAllTime)
	require.NotNil(t, profile.Rank)
	assert.Equal(t, 7, *profile.Rank)
	require.NotNil(t, profile.SharpeScore)
	assert.Equal(t, 1.4, *profile.SharpeScore)

	top, err := f.FetchTopWallets(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "0xdef", top[1].Wallet)
}

func TestAlgoArenaFetcher_NotFoundIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewAlgoArenaFetcher(srv.URL, fastOptions(), nil, nil)
	for i := 0; i < 4; i++ {
		_, err := f.FetchPositions(context.Background(), "missing")
		assert.True(t, errors.Is(err, ErrWalletNotFound))
	}
	assert.Equal(t, int32(4), hits.Load())
	assert.Equal(t, gobreaker.StateClosed, f.BreakerState())
}

func TestAlgoArenaFetcher_RetriesThenTripsBreaker(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "upstream down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := metrics.New()
	core, logs := observer.New(zapcore.DebugLevel)
	f := NewAlgoArenaFetcher(srv.URL, fastOptions(), m, zap.New(core))

	_, err := f.FetchPositions(context.Background(), "0xabc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Equal(t, int32(3), hits.Load(), "one attempt plus two retries")

	retries := logs.FilterMessage("retrying request").All()
	require.Len(t, retries, 2)
	assert.Equal(t, int64(2), retries[1].ContextMap()["retry"])
	assert.Equal(t, "algoarena", retries[0].ContextMap()["fetcher"])
	assert.Equal(t, gobreaker.StateOpen, f.BreakerState())

	_, err = f.FetchPnLHistory(context.Background(), "0xabc")
	assert.True(t, errors.Is(err, ErrBreakerOpen))
	assert.Equal(t, int32(3), hits.Load(), "open breaker short-circuits")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchErrors.WithLabelValues(EndpointPositions)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchErrors.WithLabelValues(EndpointPnL)))
	assert.Equal(t, float64(gobreaker.StateOpen), testutil.ToFloat64(m.BreakerState.WithLabelValues("algoarena")))
}

func TestFileFetcher(t *testing.T) {
	dir := t.TempDir()
	rank := 3
	require.NoError(t, WriteFixture(dir, "0xaaa", &Fixture{
		Profile:   &model.WalletProfile{Wallet: "0xaaa", PnLAllTime: 10, Rank: &rank},
		Positions: GeneratePositions(1, 5),
	}))
	require.NoError(t, WriteFixture(dir, "0xbbb", &Fixture{Positions: GeneratePositions(2, 3)}))

	f := NewFileFetcher(dir)
	ctx := context.Background()

	positions, err := f.FetchPositions(ctx, "0xaaa")
	require.NoError(t, err)
	assert.Equal(t, GeneratePositions(1, 5), positions)

	profile, err := f.FetchProfile(ctx, "0xbbb")
	require.NoError(t, err)
	assert.Equal(t, "0xbbb", profile.Wallet)

	top, err := f.FetchTopWallets(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "0xaaa", top[0].Wallet)

	_, err = f.FetchPositions(ctx, "0xccc")
	assert.True(t, errors.Is(err, ErrWalletNotFound))
	_, err = f.FetchPositions(ctx, "../etc/passwd")
	assert.Error(t, err)
}

func TestGeneratePositions_Deterministic(t *testing.T) {
	a := GeneratePositions(42, 50)
	assert.Equal(t, a, GeneratePositions(42, 50))
	assert.NotEqual(t, a, GeneratePositions(43, 50))
	for _, p := range a {
		assert.Greater(t, p.TotalBought, 0.0)
		assert.True(t, p.AvgPrice > 0 && p.AvgPrice < 1)
	}
}

func TestCollector_Collect(t *testing.T) {
	sharpe := 0.8
	mock := &MockFetcher{
		Positions:  GeneratePositions(7, 10),
		Profile:    &model.WalletProfile{Wallet: "0xabc", SharpeScore: &sharpe},
		PnLHistory: []model.PnLPoint{{Timestamp: 1, PnL: 2}},
	}
	data, err := NewCollector(mock, zap.NewNop()).Collect(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", data.Wallet)
	assert.Len(t, data.Positions, 10)
	assert.Equal(t, mock.Profile, data.Profile)
	assert.Len(t, data.PnLHistory, 1)
	assert.False(t, data.FetchedAt.IsZero())
}

func TestCollector_PositionsRequired(t *testing.T) {
	mock := &MockFetcher{Err: errors.New("down")}
	_, err := NewCollector(mock, nil).Collect(context.Background(), "0xabc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collect positions")
}

func TestCollector_TopWallets(t *testing.T) {
	mock := &MockFetcher{Profile: &model.WalletProfile{Wallet: "0xabc", PnLAllTime: 1200}}
	wallets, err := NewCollector(mock, nil).TopWallets(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, wallets, 1)
	assert.Equal(t, "0xabc", wallets[0].Wallet)

	_, err = NewCollector(&MockFetcher{Err: errors.New("down")}, nil).TopWallets(context.Background(), 5)
	assert.ErrorContains(t, err, "collect top wallets")
}
