package analyzer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WalletSentinel/internal/model"
)

const (
	titleSports    = "NBA Finals: Lakers vs Celtics"
	titlePolitics  = "Presidential election outcome"
	titleCrypto    = "Bitcoin above 100k on Friday?"
	titleEconomics = "Fed decision in June"
	titleOther     = "Taylor Swift engagement"
)

var base = time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC).Unix() // Monday

func pos(tb, ap, pnl float64, ts int64, title, cid, outcome string) model.Position {
	return model.Position{
		TotalBought:  tb,
		AvgPrice:     ap,
		CurrentPrice: ap,
		PnL:          pnl,
		Timestamp:    ts,
		Title:        title,
		ConditionID:  cid,
		Outcome:      outcome,
	}
}

// sample builds a mixed wallet history spread over several weeks.
func sample() []model.Position {
	titles := []string{titleSports, titlePolitics, titleCrypto, titleEconomics, titleOther}
	outcomes := []string{"Yes", "No", "Yes"}
	var out []model.Position
	for i := 0; i < 60; i++ {
		pnl := float64((i*37)%200 - 90)
		out = append(out, pos(
			float64(50+(i*113)%4000),
			0.1+float64(i%9)/10,
			pnl,
			base+int64(i)*7919,
			titles[i%len(titles)],
			"cid-"+string(rune('a'+i%13)),
			outcomes[i%len(outcomes)],
		))
	}
	return out
}

func TestAnalyzers_EmptyInput(t *testing.T) {
	timing := AnalyzeTiming(nil)
	assert.Zero(t, timing.TotalPositions)
	assert.Empty(t, timing.PeakHours)
	assert.Empty(t, timing.Signals)

	sizing := AnalyzeSizing(nil)
	assert.Zero(t, sizing.CV)
	assert.Zero(t, sizing.TotalVolume)
	assert.Empty(t, sizing.Signals)

	market := AnalyzeMarkets(nil)
	assert.Zero(t, market.HerfindahlIndex)
	assert.Empty(t, market.Signals)

	flow := AnalyzeFlow(nil)
	assert.Zero(t, flow.ProfitFactor)
	assert.Equal(t, TrendInsufficient, flow.Trend)
	assert.Empty(t, flow.Signals)

	pattern := AnalyzePattern(nil)
	assert.Zero(t, pattern.MaxDrawdown)
	assert.Empty(t, pattern.Streaks)
	assert.Empty(t, pattern.Signals)

	corr := AnalyzeCorrelation(nil)
	assert.Zero(t, corr.HedgeRatio)
	assert.Empty(t, corr.Signals)

	report, err := RunAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, report.Signals())
	assert.Len(t, report.Results(), len(Registry))
}

func TestAnalyzers_SingletonInput(t *testing.T) {
	one := []model.Position{pos(250_000, 0.2, 900, base, titleSports, "m1", "No")}

	timing := AnalyzeTiming(one)
	assert.Equal(t, 1, timing.TotalPositions)
	assert.Zero(t, timing.DailyConsistency)
	assert.Zero(t, timing.ActiveDays)
	assert.Empty(t, timing.PeakHours)
	assert.Empty(t, timing.Signals)

	sizing := AnalyzeSizing(one)
	assert.Equal(t, 1, sizing.TotalPositions)
	assert.Zero(t, sizing.TotalVolume)
	assert.Zero(t, sizing.WhaleCount)
	assert.Empty(t, sizing.Signals)

	market := AnalyzeMarkets(one)
	assert.Equal(t, 1, market.TotalPositions)
	assert.Zero(t, market.HerfindahlIndex)
	assert.Empty(t, market.DominantCategory)
	assert.Empty(t, market.Signals)

	flow := AnalyzeFlow(one)
	assert.Equal(t, 1, flow.TotalPositions)
	assert.Zero(t, flow.WinCount)
	assert.Equal(t, TrendInsufficient, flow.Trend)
	assert.Empty(t, flow.Signals)

	pattern := AnalyzePattern(one)
	assert.Equal(t, 1, pattern.TotalPositions)
	assert.Empty(t, pattern.Streaks)
	assert.Empty(t, pattern.Signals)

	corr := AnalyzeCorrelation(one)
	assert.Equal(t, 1, corr.TotalPositions)
	assert.Zero(t, corr.UniqueMarkets)
	assert.Empty(t, corr.Signals)

	report, err := RunAll(context.Background(), one)
	require.NoError(t, err)
	assert.Empty(t, report.Signals())

	// two timestamps are enough for timing statistics
	two := append(one, pos(100, 0.5, 1, base+secondsPerDay, titleOther, "m2", "Yes"))
	assert.Equal(t, 2, AnalyzeTiming(two).ActiveDays)

	// one dated position among undated ones has no span to measure
	mixed := append(one, pos(100, 0.5, 1, 0, titleOther, "m2", "Yes"))
	assert.Zero(t, AnalyzeTiming(mixed).DailyConsistency)
	assert.Empty(t, AnalyzeTiming(mixed).Signals)
}

func TestAnalyzers_Deterministic(t *testing.T) {
	positions := sample()
	assert.Equal(t, AnalyzeTiming(positions), AnalyzeTiming(positions))
	assert.Equal(t, AnalyzeSizing(positions), AnalyzeSizing(positions))
	assert.Equal(t, AnalyzeMarkets(positions), AnalyzeMarkets(positions))
	assert.Equal(t, AnalyzeFlow(positions), AnalyzeFlow(positions))
	assert.Equal(t, AnalyzePattern(positions), AnalyzePattern(positions))
	assert.Equal(t, AnalyzeCorrelation(positions), AnalyzeCorrelation(positions))

	a, err := RunAll(context.Background(), positions)
	require.NoError(t, err)
	b, err := RunAll(context.Background(), positions)
	require.NoError(t, err)
	assert.Equal(t, a.Text(), b.Text())
}

func TestAnalyzers_Bounds(t *testing.T) {
	positions := sample()
	inUnit := func(name string, v float64) {
		assert.GreaterOrEqual(t, v, 0.0, name)
		assert.LessOrEqual(t, v, 1.0, name)
	}

	timing := AnalyzeTiming(positions)
	inUnit("off_hours", timing.OffHoursPct)
	inUnit("weekend", timing.WeekendPct)
	inUnit("consistency", timing.DailyConsistency)

	sizing := AnalyzeSizing(positions)
	assert.GreaterOrEqual(t, sizing.CV, 0.0)
	inUnit("concentration", sizing.SizeConcentration)
	inUnit("low_odds", sizing.LowOddsPct)
	inUnit("mid_odds", sizing.MidOddsPct)
	inUnit("high_odds", sizing.HighOddsPct)

	market := AnalyzeMarkets(positions)
	inUnit("hhi", market.HerfindahlIndex)
	inUnit("yes", market.YesPct)
	inUnit("no", market.NoPct)
	inUnit("category_concentration", market.CategoryConcentration)

	flow := AnalyzeFlow(positions)
	inUnit("win_rate", flow.WinRate)

	pattern := AnalyzePattern(positions)
	inUnit("dd_pct", pattern.MaxDrawdownPct)
	inUnit("r2", pattern.CurveR2)

	corr := AnalyzeCorrelation(positions)
	inUnit("hedge", corr.HedgeRatio)
	inUnit("related", corr.RelatedPct)
}

func TestAnalyzeTiming(t *testing.T) {
	at := func(hour int) int64 {
		return time.Date(2025, 3, 3, hour, 0, 0, 0, time.UTC).Unix()
	}
	positions := []model.Position{
		pos(10, 0.5, 1, at(5), titleOther, "a", "Yes"),
		pos(10, 0.5, 1, at(5), titleOther, "a", "Yes"),
		pos(10, 0.5, 1, at(3), titleOther, "a", "Yes"),
		pos(10, 0.5, 1, at(3), titleOther, "a", "Yes"),
		pos(10, 0.5, 1, at(9), titleOther, "a", "Yes"),
		pos(10, 0.5, 1, 0, titleOther, "a", "Yes"),
	}
	r := AnalyzeTiming(positions)

	assert.Equal(t, 6, r.TotalPositions)
	assert.Equal(t, []int{3, 5, 9}, r.PeakHours)
	assert.InDelta(t, 0.8, r.OffHoursPct, 1e-9)
	assert.Zero(t, r.WeekendPct)
	assert.Equal(t, 1, r.ActiveDays)
	assert.Equal(t, 1, r.TotalSpanDays)
	assert.Equal(t, 1.0, r.DailyConsistency)
	assert.Equal(t, 5, r.DayDistribution["Monday"])
	assert.Contains(t, r.Text(), "=== TIMING ANALYSIS ===")
}

func TestAnalyzeSizing(t *testing.T) {
	positions := []model.Position{
		pos(50, 0.2, 5, base, titleOther, "a", "Yes"),
		pos(500, 0.5, -5, base, titleOther, "a", "Yes"),
		pos(5_000, 0.5, 5, base, titleOther, "a", "Yes"),
		pos(50_000, 0.8, -5, base, titleOther, "a", "Yes"),
		pos(500_000, 0.9, 5, base, titleOther, "a", "Yes"),
		pos(0, 0, 0, base, titleOther, "a", "Yes"),
	}
	r := AnalyzeSizing(positions)

	assert.Equal(t, 6, r.TotalPositions)
	assert.Equal(t, 1, r.MicroCount)
	assert.Equal(t, 1, r.SmallCount)
	assert.Equal(t, 1, r.MediumCount)
	assert.Equal(t, 1, r.LargeCount)
	assert.Equal(t, 1, r.WhaleCount)
	assert.InDelta(t, 555_550.0, r.TotalVolume, 1e-6)
	assert.InDelta(t, 5_000.0, r.MedianSize, 1e-6)
	assert.InDelta(t, 500_000.0/555_550.0, r.SizeConcentration, 1e-9)
	assert.InDelta(t, 0.2, r.LowOddsPct, 1e-9)
	assert.InDelta(t, 0.4, r.MidOddsPct, 1e-9)
	assert.InDelta(t, 0.4, r.HighOddsPct, 1e-9)
	assert.InDelta(t, 1.9656, r.CV, 1e-3)
	assert.Contains(t, r.Signals[0], "WHALE_SIZING")
	assert.Contains(t, r.Signals[1], "CONCENTRATED")
	assert.Contains(t, r.Text(), "=== SIZING ANALYSIS ===")
}

func TestCategorize_FirstMatchWins(t *testing.T) {
	tests := []struct {
		title string
		want  Category
	}{
		{titleSports, CategorySports},
		{titlePolitics, CategoryPolitics},
		{titleCrypto, CategoryCrypto},
		{titleEconomics, CategoryEconomics},
		{titleOther, CategoryOther},
		{"Bitcoin vs Ethereum market cap", CategorySports},
		{"Trump vs Biden debate", CategorySports},
		{"Oscar for best movie", CategoryEntertainment},
		{"", CategoryOther},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.title))
		})
	}
}

func TestCategorizer_Order(t *testing.T) {
	order := NewCategorizer(CategoryRules).Order()
	assert.Equal(t, []Category{
		CategorySports, CategoryPolitics, CategoryCrypto, CategoryEconomics,
		CategoryEntertainment, CategoryScienceTech, CategoryWeather, CategoryOther,
	}, order)

	c := NewCategorizer([]CategoryRule{{Category: CategoryCrypto, Patterns: []string{`(`, `coin`}}})
	assert.Equal(t, CategoryCrypto, c.Categorize("Dogecoin flips"))
}

func TestAnalyzeMarkets(t *testing.T) {
	positions := []model.Position{
		pos(100, 0.5, 10, base, titleSports, "m1", "Yes"),
		pos(100, 0.5, -4, base, titlePolitics, "m2", "No"),
	}
	r := AnalyzeMarkets(positions)

	assert.Equal(t, CategorySports, r.DominantCategory, "ties resolve by table order")
	assert.InDelta(t, 0.5, r.CategoryConcentration, 1e-9)
	assert.InDelta(t, 0.5, r.HerfindahlIndex, 1e-9)
	assert.Equal(t, 2, r.UniqueMarkets)
	assert.InDelta(t, 0.5, r.CategoryShare(CategoryPolitics), 1e-9)
	assert.Zero(t, r.CategoryShare(CategoryCrypto))
	assert.Len(t, r.TopMarkets, 2)
	assert.Contains(t, r.Signals[0], "MARKET_CONCENTRATED")
	assert.Contains(t, r.Text(), "=== MARKET ANALYSIS ===")
}

func TestAnalyzeMarkets_NoBias(t *testing.T) {
	var positions []model.Position
	for i := 0; i < 10; i++ {
		positions = append(positions, pos(10, 0.2, 1, base, titleCrypto, "m", "No"))
	}
	r := AnalyzeMarkets(positions)
	assert.Equal(t, 1.0, r.NoPct)
	assert.Contains(t, r.Signals, "NO_BIAS: 100% positions are NO, contrarian tendency")
	assert.Contains(t, r.Signals, "REPEAT_MARKETS: avg 10.0 positions per market, re-enters markets")
}

func TestAnalyzeFlow_ProfitFactor(t *testing.T) {
	tests := []struct {
		name string
		pnls []float64
		want float64
	}{
		{"no losses", []float64{10, 20, 30}, 60},
		{"loss below floor", []float64{10, -0.5}, 10},
		{"regular", []float64{30, -10, -5}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var positions []model.Position
			for _, p := range tt.pnls {
				positions = append(positions, pos(100, 0.5, p, base, titleOther, "m", "Yes"))
			}
			assert.InDelta(t, tt.want, AnalyzeFlow(positions).ProfitFactor, 1e-9)
		})
	}
}

func TestAnalyzeFlow(t *testing.T) {
	month := func(m time.Month) int64 { return time.Date(2025, m, 10, 0, 0, 0, 0, time.UTC).Unix() }
	positions := []model.Position{
		pos(100, 0.5, 10, month(1), titleOther, "a", "Yes"),
		pos(100, 0.5, -10, month(2), titleOther, "a", "Yes"),
		pos(100, 0.5, 40, month(3), titleOther, "b", "Yes"),
		pos(100, 0.5, 50, month(4), titleOther, "c", "Yes"),
	}
	r := AnalyzeFlow(positions)

	assert.Equal(t, 3, r.WinCount)
	assert.Equal(t, 1, r.LossCount)
	assert.InDelta(t, 0.75, r.WinRate, 1e-9)
	assert.InDelta(t, 50.0, r.MaxSingleWin, 1e-9)
	assert.InDelta(t, -10.0, r.MaxSingleLoss, 1e-9)
	assert.InDelta(t, 22.5, r.Expectancy, 1e-9)
	assert.Equal(t, 1, r.MultiEntryMarkets)
	assert.Len(t, r.MonthlyPnL, 4)
	// recent (-10+40+50)/3 = 26.7 vs first month 10
	assert.Equal(t, TrendImproving, r.Trend)
	assert.Contains(t, r.Text(), "=== FLOW ANALYSIS ===")
}

func TestAnalyzePattern_Streaks(t *testing.T) {
	pnls := []float64{5, 5, -1, 0, -1, -1, 3}
	var positions []model.Position
	for i, p := range pnls {
		positions = append(positions, pos(100, 0.5, p, base+int64(i), titleOther, "m", "Yes"))
	}
	r := AnalyzePattern(positions)

	assert.Equal(t, []int{2, -3, 1}, r.Streaks)
	total := 0
	for _, s := range r.Streaks {
		if s < 0 {
			s = -s
		}
		total += s
	}
	assert.Equal(t, 6, total, "streaks cover every decisive position")
	assert.Equal(t, 2, r.MaxWinStreak)
	assert.Equal(t, 3, r.MaxLossStreak)
	assert.Equal(t, 1, r.CurrentStreak)
	assert.Equal(t, 1, r.RecoveriesFromLoss)
	assert.InDelta(t, 1.0, r.AvgRecoveryLength, 1e-9)
}

func TestAnalyzePattern_Drawdown(t *testing.T) {
	pnls := []float64{10, 20, -15, -5, 30}
	var positions []model.Position
	for i, p := range pnls {
		positions = append(positions, pos(100, 0.5, p, base+int64(i), titleOther, "m", "Yes"))
	}
	r := AnalyzePattern(positions)

	assert.InDelta(t, 20.0, r.MaxDrawdown, 1e-9)
	assert.InDelta(t, 30.0, r.DrawdownPeak, 1e-9)
	assert.LessOrEqual(t, r.MaxDrawdown, r.DrawdownPeak)
	assert.InDelta(t, 20.0/30.0, r.MaxDrawdownPct, 1e-9)
	assert.Equal(t, 2, r.RecoveryPositions)
	assert.Contains(t, r.Signals, "SEVERE_DRAWDOWN: 67% peak-to-trough")
}

func TestAnalyzePattern_DrawdownBelowStart(t *testing.T) {
	tests := []struct {
		name     string
		pnls     []float64
		dd       float64
		peak     float64
		ddPct    float64
		recovery int
	}{
		{"falls through zero", []float64{5, -30}, 30, 5, 1, 1},
		{"negative from the start", []float64{-10, -20}, 20, -10, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var positions []model.Position
			for i, p := range tt.pnls {
				positions = append(positions, pos(100, 0.5, p, base+int64(i), titleOther, "m", "Yes"))
			}
			r := AnalyzePattern(positions)

			assert.InDelta(t, tt.dd, r.MaxDrawdown, 1e-9)
			assert.InDelta(t, tt.peak, r.DrawdownPeak, 1e-9)
			assert.InDelta(t, tt.ddPct, r.MaxDrawdownPct, 1e-9)
			assert.Equal(t, tt.recovery, r.RecoveryPositions)
		})
	}
}

func TestAnalyzePattern_NoDrawdown(t *testing.T) {
	var positions []model.Position
	for i := 0; i < 12; i++ {
		positions = append(positions, pos(100, 0.5, float64(i+1), base+int64(i), titleOther, "m", "Yes"))
	}
	r := AnalyzePattern(positions)

	assert.Zero(t, r.MaxDrawdown)
	assert.Zero(t, r.RecoveryPositions)
	assert.True(t, r.CurveFitted)
	assert.Greater(t, r.CurveR2, 0.9)
	assert.Equal(t, []int{12}, r.Streaks)
}

func TestAnalyzePattern_FlatIdenticalTimestamps(t *testing.T) {
	var positions []model.Position
	for i := 0; i < 50; i++ {
		positions = append(positions, pos(100, 0.5, 0, base, titleOther, "m", "Yes"))
	}
	r := AnalyzePattern(positions)

	assert.Zero(t, r.MaxDrawdown)
	assert.Zero(t, r.MaxWinStreak)
	assert.Zero(t, r.MaxLossStreak)
	assert.Zero(t, r.CurrentStreak)
	assert.Zero(t, r.CurveR2)
	assert.False(t, r.CurveFitted)
	assert.Empty(t, r.Signals)
}

func TestNormalizeTitle(t *testing.T) {
	assert.Equal(t, "will bitcoin hit $X by DATE?", NormalizeTitle("  Will Bitcoin hit $100K by March 31?"))
	assert.Equal(t, "fed cut in YYYY?", NormalizeTitle("Fed cut in 2025?"))
	assert.Equal(t, NormalizeTitle("Will Bitcoin hit $150,000 by March 31?"), NormalizeTitle("Will Bitcoin hit $90K by March 31?"))
}

func TestAnalyzeCorrelation(t *testing.T) {
	positions := []model.Position{
		pos(100, 0.5, 1, base, "Will Bitcoin hit $100K by March 31?", "btc100", "Yes"),
		pos(100, 0.5, 1, base+60, "Will Bitcoin hit $150K by March 31?", "btc150", "No"),
		pos(100, 0.5, 1, base+120, titleSports, "game", "Yes"),
		pos(100, 0.5, 1, base+10*secondsPerDay, titleSports, "game", "No"),
	}
	r := AnalyzeCorrelation(positions)

	assert.Equal(t, 3, r.UniqueMarkets)
	assert.Equal(t, 1, r.BothSideMarkets)
	assert.InDelta(t, 1.0/3.0, r.HedgeRatio, 1e-9)
	assert.Equal(t, 1, r.TemporalClusters)
	assert.Equal(t, 3, r.MaxClusterSize)
	assert.Equal(t, 1, r.RelatedGroups)
	assert.Equal(t, 2, r.RelatedPositions)
	assert.Equal(t, 1, r.OpposingPairs)
	assert.Equal(t, 3, r.PeakOpenMarkets)
	assert.Contains(t, r.Signals, "SOME_HEDGING: 1 opposing pair(s) in related markets")
	assert.Contains(t, r.Text(), "=== CORRELATION ANALYSIS ===")
}

func TestAnalyzeCorrelation_OpenMarketsRefCounted(t *testing.T) {
	positions := []model.Position{
		pos(100, 0.5, 1, base, titleOther, "a", "Yes"),
		pos(100, 0.5, 1, base+6*secondsPerDay, titleOther, "a", "Yes"),
		pos(100, 0.5, 1, base+7*secondsPerDay+1, titleOther, "b", "Yes"),
	}
	r := AnalyzeCorrelation(positions)
	assert.Equal(t, 2, r.PeakOpenMarkets, "market a stays open through its second position")
}

func TestAnalyzeCorrelation_Directional(t *testing.T) {
	var positions []model.Position
	for i := 0; i < 20; i++ {
		positions = append(positions, pos(100, 0.5, 1, 0, titlePolitics, "p", "Yes"))
	}
	r := AnalyzeCorrelation(positions)
	assert.Equal(t, SideCount{Yes: 20}, r.CategoryDirection[CategoryPolitics])
	assert.Contains(t, r.Signals, "DIRECTIONAL_POLITICS: 100% YES-side in politics, strong directional conviction")
	assert.Zero(t, r.PeakOpenMarkets)
}

func TestRun_PanicFailsWholesale(t *testing.T) {
	entries := append([]Entry{}, Registry...)
	entries = append(entries, Entry{Name: "broken", Run: func([]model.Position, *Report) { panic("boom") }})

	report, err := Run(context.Background(), entries, sample())
	require.Error(t, err)
	assert.Nil(t, report)
	assert.Contains(t, err.Error(), "broken")
}

func TestRunAll_Report(t *testing.T) {
	report, err := RunAll(context.Background(), sample())
	require.NoError(t, err)

	require.NotNil(t, report.Timing)
	require.NotNil(t, report.Correlation)
	names := make([]string, 0, len(Registry))
	for _, res := range report.Results() {
		names = append(names, res.Name())
	}
	assert.Equal(t, []string{NameTiming, NameSizing, NameMarket, NameFlow, NamePattern, NameCorrelation}, names)
	assert.Contains(t, report.Text(), "=== PATTERN ANALYSIS ===")
}
