package collector

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"WalletSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// With no Positions set it generates a deterministic history from Seed.
type MockFetcher struct {
	Positions  []model.Position
	Profile    *model.WalletProfile
	PnLHistory []model.PnLPoint
	Count      int
	Seed       int64
	Err        error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchPositions(_ context.Context, _ string) ([]model.Position, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Positions != nil {
		return m.Positions, nil
	}
	n := m.Count
	if n == 0 {
		n = 200
	}
	return GeneratePositions(m.Seed, n), nil
}

func (m *MockFetcher) FetchProfile(_ context.Context, wallet string) (*model.WalletProfile, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Profile != nil {
		return m.Profile, nil
	}
	return &model.WalletProfile{Wallet: wallet}, nil
}

func (m *MockFetcher) FetchPnLHistory(_ context.Context, _ string) ([]model.PnLPoint, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.PnLHistory, nil
}

func (m *MockFetcher) FetchTopWallets(_ context.Context, _ int) ([]model.WalletProfile, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Profile != nil {
		return []model.WalletProfile{*m.Profile}, nil
	}
	return nil, nil
}

var mockTitles = []string{
	"NBA: Lakers vs Celtics",
	"Will Trump win the 2028 presidential election?",
	"Bitcoin above $120K on June 30?",
	"Fed rate cut in September?",
	"Will it snow in NYC on Christmas?",
	"Oscar for best picture",
}

// GeneratePositions builds n pseudo-random positions; equal seeds give equal output.
func GeneratePositions(seed int64, n int) []model.Position {
	rng := rand.New(rand.NewSource(seed))
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	out := make([]model.Position, n)
	for i := range out {
		ap := 0.05 + rng.Float64()*0.9
		tb := 50 + rng.ExpFloat64()*2000
		var pnl float64
		if rng.Float64() < 0.55 {
			pnl = tb * (1 - ap) / ap * 0.5
		} else {
			pnl = -tb * 0.8
		}
		outcome := model.SideYes
		if rng.Intn(3) == 0 {
			outcome = model.SideNo
		}
		out[i] = model.Position{
			TotalBought:  tb,
			AvgPrice:     ap,
			CurrentPrice: ap,
			PnL:          pnl,
			Timestamp:    start + int64(i)*5400 + rng.Int63n(3600),
			Title:        mockTitles[rng.Intn(len(mockTitles))],
			ConditionID:  fmt.Sprintf("0xmock%03d", rng.Intn(n/3+1)),
			Outcome:      outcome,
		}
	}
	return out
}
