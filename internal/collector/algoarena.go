package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"WalletSentinel/internal/metrics"
	"WalletSentinel/internal/model"
	"WalletSentinel/internal/retrier"
)

// Endpoint names used in logs and metrics.
const (
	EndpointPositions = "positions"
	EndpointPnL       = "pnl"
	EndpointProfile   = "profile"
	EndpointRankings  = "rankings"
)

// AlgoArenaOptions tunes the HTTP fetcher.
type AlgoArenaOptions struct {
	Timeout      time.Duration
	RateLimitRPS float64
	RateBurst    int
	MaxRetries   int
	RetryBackoff time.Duration
	ProxyURL     string
}

// AlgoArenaFetcher implements Fetcher against the AlgoArena REST API.
// Requests are rate limited, retried with backoff and guarded by a circuit breaker.
type AlgoArenaFetcher struct {
	BaseURL string
	Client  *http.Client

	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	retrier *retrier.Retrier
	metrics *metrics.Registry
	logger  *zap.Logger
}

// NewAlgoArenaFetcher creates a fetcher with optional proxy support.
func NewAlgoArenaFetcher(baseURL string, opts AlgoArenaOptions, m *metrics.Registry, logger *zap.Logger) *AlgoArenaFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RateLimitRPS <= 0 {
		opts.RateLimitRPS = 5
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 1
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := &http.Transport{}
	if opts.ProxyURL != "" {
		if u, err := url.Parse(opts.ProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}

	logger = logger.With(zap.String("fetcher", "algoarena"))
	f := &AlgoArenaFetcher{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimitRPS), opts.RateBurst),
		retrier: retrier.New(
			retrier.WithMaxRetries(opts.MaxRetries),
			retrier.WithInitialInterval(opts.RetryBackoff),
			retrier.WithMaxInterval(10*opts.RetryBackoff),
			retrier.WithMultiplier(2),
			retrier.OnRetry(func(retry int, delay time.Duration, err error) {
				logger.Debug("retrying request", zap.Int("retry", retry), zap.Duration("delay", delay), zap.Error(err))
			}),
		),
		metrics: m,
		logger:  logger,
	}

	st := gobreaker.Settings{Name: "algoarena"}
	st.Interval = 60 * time.Second
	st.Timeout = 60 * time.Second
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 3
	}
	st.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, ErrWalletNotFound)
	}
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		f.logger.Warn("circuit breaker state change",
			zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
		f.metrics.SetBreakerState(name, int(to))
	}
	f.breaker = gobreaker.NewCircuitBreaker(st)
	return f
}

func (f *AlgoArenaFetcher) Name() string { return "algoarena" }

// BreakerState reports the current circuit breaker state.
func (f *AlgoArenaFetcher) BreakerState() gobreaker.State { return f.breaker.State() }

func (f *AlgoArenaFetcher) FetchPositions(ctx context.Context, wallet string) ([]model.Position, error) {
	var positions []model.Position
	if err := f.get(ctx, EndpointPositions, "/api/algos/positions/"+url.PathEscape(wallet), nil, &positions); err != nil {
		return nil, errors.Wrapf(err, "fetch positions for %s", wallet)
	}
	return positions, nil
}

func (f *AlgoArenaFetcher) FetchPnLHistory(ctx context.Context, wallet string) ([]model.PnLPoint, error) {
	var points []model.PnLPoint
	if err := f.get(ctx, EndpointPnL, "/api/algos/pnl/"+url.PathEscape(wallet), nil, &points); err != nil {
		return nil, errors.Wrapf(err, "fetch pnl history for %s", wallet)
	}
	return points, nil
}

// walletPnL is the /api/wallets/{wallet}/pnl response shape.
type walletPnL struct {
	Current struct {
		PnLAllTime    float64  `json:"pnl_all_time"`
		Rank          *int     `json:"rank"`
		Username      string   `json:"username"`
		ClosedWinRate *float64 `json:"closed_winrate"`
		SharpeScore   *float64 `json:"sharpe_score"`
	} `json:"current"`
}

func (f *AlgoArenaFetcher) FetchProfile(ctx context.Context, wallet string) (*model.WalletProfile, error) {
	var body walletPnL
	if err := f.get(ctx, EndpointProfile, "/api/wallets/"+url.PathEscape(wallet)+"/pnl", nil, &body); err != nil {
		return nil, errors.Wrapf(err, "fetch profile for %s", wallet)
	}
	return &model.WalletProfile{
		Wallet:        wallet,
		Username:      body.Current.Username,
		PnLAllTime:    body.Current.PnLAllTime,
		Rank:          body.Current.Rank,
		ClosedWinRate: body.Current.ClosedWinRate,
		SharpeScore:   body.Current.SharpeScore,
	}, nil
}

// FetchTopWallets reads the rankings table. The API answers with either a bare
// list or an object holding a "rankings" list.
func (f *AlgoArenaFetcher) FetchTopWallets(ctx context.Context, limit int) ([]model.WalletProfile, error) {
	var raw json.RawMessage
	q := url.Values{"limit": {fmt.Sprint(limit)}}
	if err := f.get(ctx, EndpointRankings, "/api/rankings/table", q, &raw); err != nil {
		return nil, errors.Wrap(err, "fetch rankings")
	}
	var wrapped struct {
		Rankings []model.WalletProfile `json:"rankings"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Rankings != nil {
		return wrapped.Rankings, nil
	}
	var list []model.WalletProfile
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, errors.Wrap(err, "decode rankings")
	}
	return list, nil
}

// get performs a rate-limited, retried GET through the circuit breaker and
// decodes the JSON body into out.
func (f *AlgoArenaFetcher) get(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	target := f.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	err := f.retrier.Do(ctx, func(ctx context.Context) error {
		if err := f.limiter.Wait(ctx); err != nil {
			return retrier.Permanent(errors.Wrap(err, "rate limiter"))
		}
		_, err := f.breaker.Execute(func() (interface{}, error) {
			return nil, f.do(ctx, target, out)
		})
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return retrier.Permanent(ErrBreakerOpen)
		case errors.Is(err, ErrWalletNotFound):
			return retrier.Permanent(err)
		case err != nil:
			f.logger.Debug("request failed", zap.String("endpoint", endpoint), zap.Error(err))
		}
		return err
	})
	if err != nil {
		f.metrics.FetchError(endpoint)
	}
	return err
}

func (f *AlgoArenaFetcher) do(ctx context.Context, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return errors.Wrap(err, "request")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrWalletNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("status %d, body: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode")
	}
	return nil
}
