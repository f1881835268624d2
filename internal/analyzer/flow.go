package analyzer

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"WalletSentinel/internal/calculator"
	"WalletSentinel/internal/model"
)

// Trend directions reported by AnalyzeFlow.
const (
	TrendImproving    = "improving"
	TrendDeclining    = "declining"
	TrendStable       = "stable"
	TrendInsufficient = "insufficient_data"
)

// Flow summarizes realized PnL and accumulation behaviour.
type Flow struct {
	TotalPositions      int
	TotalVolume         float64
	TotalPnL            float64
	WinCount            int
	LossCount           int
	WinRate             float64
	AvgWin              float64
	AvgLoss             float64
	ProfitFactor        float64
	Expectancy          float64
	RiskReward          float64
	MaxSingleWin        float64
	MaxSingleLoss       float64
	MultiEntryMarkets   int
	AvgEntriesPerMarket float64
	MonthlyPnL          map[string]float64
	MonthlyVolume       map[string]float64
	Trend               string
	Signals             []string
}

// AnalyzeFlow computes win/loss statistics. A position with pnl <= 0 is a loss.
func AnalyzeFlow(positions []model.Position) *Flow {
	r := &Flow{
		TotalPositions: len(positions),
		MonthlyPnL:     map[string]float64{},
		MonthlyVolume:  map[string]float64{},
		Trend:          TrendInsufficient,
	}
	if len(positions) < minSamples {
		return r
	}

	var winPnL, lossPnL []float64
	entries := map[string]int{}
	for _, p := range positions {
		r.TotalVolume += p.TotalBought
		r.TotalPnL += p.PnL
		if p.PnL > 0 {
			winPnL = append(winPnL, p.PnL)
		} else {
			lossPnL = append(lossPnL, p.PnL)
		}
		if p.ConditionID != "" {
			entries[p.ConditionID]++
		}
		if p.Timestamp > 0 {
			month := p.OpenedAt().Format("2006-01")
			r.MonthlyPnL[month] += p.PnL
			r.MonthlyVolume[month] += p.TotalBought
		}
	}

	r.WinCount = len(winPnL)
	r.LossCount = len(lossPnL)
	r.WinRate = calculator.Fraction(r.WinCount, len(positions))
	r.AvgWin = calculator.MeanOrZero(winPnL)
	r.AvgLoss = calculator.MeanOrZero(lossPnL)
	if len(winPnL) > 0 {
		_, r.MaxSingleWin, _ = calculator.MinMax(winPnL)
	}
	if len(lossPnL) > 0 {
		r.MaxSingleLoss, _, _ = calculator.MinMax(lossPnL)
	}

	grossProfit := calculator.Sum(winPnL)
	grossLoss := math.Abs(calculator.Sum(lossPnL))
	r.ProfitFactor = grossProfit / math.Max(grossLoss, 1)
	r.Expectancy = r.TotalPnL / float64(len(positions))
	if r.AvgLoss != 0 {
		r.RiskReward = r.AvgWin / math.Abs(r.AvgLoss)
	}

	for _, n := range entries {
		if n > 1 {
			r.MultiEntryMarkets++
		}
	}
	if len(entries) > 0 {
		r.AvgEntriesPerMarket = float64(len(positions)) / float64(len(entries))
	}
	r.Trend = monthlyTrend(r.MonthlyPnL)

	switch {
	case r.ProfitFactor > 2.0:
		r.Signals = append(r.Signals, fmt.Sprintf("HIGH_PROFIT_FACTOR: %.1fx, strong edge", r.ProfitFactor))
	case r.ProfitFactor < 0.8:
		r.Signals = append(r.Signals, fmt.Sprintf("LOW_PROFIT_FACTOR: %.1fx, losing strategy overall", r.ProfitFactor))
	}
	switch {
	case r.WinRate > 0.65:
		r.Signals = append(r.Signals, fmt.Sprintf("HIGH_WIN_RATE: %s, consistent winner", pct(r.WinRate, 0)))
	case r.WinRate < 0.35:
		r.Signals = append(r.Signals, fmt.Sprintf("LOW_WIN_RATE: %s, few wins but possibly large payoffs", pct(r.WinRate, 0)))
	}
	if r.RiskReward > 3 {
		r.Signals = append(r.Signals, fmt.Sprintf("HIGH_RR: %.1fx, asymmetric payoffs", r.RiskReward))
	}
	if len(entries) > 5 && float64(r.MultiEntryMarkets) > float64(len(entries))*0.3 {
		r.Signals = append(r.Signals, fmt.Sprintf("ACCUMULATOR: re-enters %d markets, builds positions over time", r.MultiEntryMarkets))
	}
	if r.MaxSingleLoss != 0 && math.Abs(r.MaxSingleLoss) > r.TotalVolume*0.1 {
		r.Signals = append(r.Signals, fmt.Sprintf("LARGE_DRAWDOWN: single loss %s is >10%% of total volume", usd(r.MaxSingleLoss)))
	}
	return r
}

// monthlyTrend compares the last three months with the earliest ones.
func monthlyTrend(monthly map[string]float64) string {
	if len(monthly) < 3 {
		return TrendInsufficient
	}
	months := make([]string, 0, len(monthly))
	for m := range monthly {
		months = append(months, m)
	}
	sort.Strings(months)

	pick := func(keys []string) []float64 {
		out := make([]float64, len(keys))
		for i, k := range keys {
			out[i] = monthly[k]
		}
		return out
	}
	recent := calculator.MeanOrZero(pick(months[len(months)-3:]))
	older := months[:1]
	if len(months) >= 6 {
		older = months[:3]
	}
	base := calculator.MeanOrZero(pick(older))

	switch {
	case recent > base*1.5:
		return TrendImproving
	case recent < base*0.5:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func (r *Flow) Name() string { return NameFlow }

func (r *Flow) SignalList() []string { return r.Signals }

func (r *Flow) Text() string {
	var b strings.Builder
	b.WriteString("=== FLOW ANALYSIS ===")
	b.WriteString(fmt.Sprintf("\nTotal volume: %s, PnL: %s", usd(r.TotalVolume), usd(r.TotalPnL)))
	b.WriteString(fmt.Sprintf("\nWin rate: %s (%dW/%dL)", pct(r.WinRate, 1), r.WinCount, r.LossCount))
	b.WriteString(fmt.Sprintf("\nAvg win: %s, Avg loss: %s", usd(r.AvgWin), usd(r.AvgLoss)))
	b.WriteString(fmt.Sprintf("\nProfit factor: %.2f, Expectancy: %s/trade", r.ProfitFactor, usd(r.Expectancy)))
	b.WriteString(fmt.Sprintf("\nRisk/reward ratio: %.2f", r.RiskReward))
	b.WriteString(fmt.Sprintf("\nMax win: %s, Max loss: %s", usd(r.MaxSingleWin), usd(r.MaxSingleLoss)))
	b.WriteString(fmt.Sprintf("\nMulti-entry markets: %d, Avg entries/market: %.1f", r.MultiEntryMarkets, r.AvgEntriesPerMarket))
	b.WriteString("\nTrend: " + r.Trend)
	writeSignals(&b, r.Signals)
	return b.String()
}

