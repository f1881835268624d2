package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"WalletSentinel/internal/calculator"
	"WalletSentinel/internal/model"
)

const (
	recoveryStreak = 3
	longStreak     = 10
	edgeTrendBand  = 0.05
)

// Pattern describes win/loss streaks, drawdown and behaviour after outcomes.
type Pattern struct {
	TotalPositions int
	// Streaks holds signed run lengths in order: positive for wins, negative for losses.
	Streaks            []int
	MaxWinStreak       int
	MaxLossStreak      int
	AvgWinStreak       float64
	AvgLossStreak      float64
	CurrentStreak      int
	MaxDrawdown        float64
	MaxDrawdownPct     float64
	DrawdownPeak       float64
	RecoveryPositions  int
	RecoveriesFromLoss int
	AvgRecoveryLength  float64
	SizeAfterLossRatio float64
	SizeAfterWinRatio  float64
	FirstHalfWinRate   float64
	SecondHalfWinRate  float64
	EdgeTrend          string
	CurveR2            float64
	CurveFitted        bool
	Signals            []string
}

// AnalyzePattern needs at least two positions; fewer return a zero result.
func AnalyzePattern(positions []model.Position) *Pattern {
	r := &Pattern{TotalPositions: len(positions), EdgeTrend: TrendStable}
	if len(positions) < minSamples {
		return r
	}

	sorted := make([]model.Position, len(positions))
	copy(sorted, positions)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })

	// flat positions carry no outcome
	var outcomes []bool
	for _, p := range sorted {
		if p.PnL != 0 {
			outcomes = append(outcomes, p.PnL > 0)
		}
	}
	r.computeStreaks(outcomes)
	r.computeRecoveries()

	cumulative := make([]float64, len(sorted))
	var running float64
	for i, p := range sorted {
		running += p.PnL
		cumulative[i] = running
	}
	r.computeDrawdown(cumulative)

	sizes := make([]float64, len(sorted))
	for i, p := range sorted {
		sizes[i] = p.TotalBought
	}
	if avg := calculator.MeanOrZero(sizes); avg > 0 {
		var afterLoss, afterWin []float64
		for i := 1; i < len(sorted); i++ {
			switch prev := sorted[i-1].PnL; {
			case prev < 0:
				afterLoss = append(afterLoss, sorted[i].TotalBought)
			case prev > 0:
				afterWin = append(afterWin, sorted[i].TotalBought)
			}
		}
		r.SizeAfterLossRatio = calculator.MeanOrZero(afterLoss) / avg
		r.SizeAfterWinRatio = calculator.MeanOrZero(afterWin) / avg
	}

	mid := len(outcomes) / 2
	r.FirstHalfWinRate = winRate(outcomes[:mid])
	r.SecondHalfWinRate = winRate(outcomes[mid:])
	switch {
	case r.SecondHalfWinRate > r.FirstHalfWinRate+edgeTrendBand:
		r.EdgeTrend = TrendImproving
	case r.SecondHalfWinRate < r.FirstHalfWinRate-edgeTrendBand:
		r.EdgeTrend = TrendDeclining
	}

	r.CurveR2, r.CurveFitted = calculator.RSquared(cumulative)

	if r.MaxWinStreak >= longStreak {
		r.Signals = append(r.Signals, fmt.Sprintf("LONG_WIN_STREAKS: %d consecutive wins", r.MaxWinStreak))
	}
	if r.MaxLossStreak >= longStreak {
		r.Signals = append(r.Signals, fmt.Sprintf("LONG_LOSS_STREAKS: %d consecutive losses", r.MaxLossStreak))
	}
	if r.CurveFitted {
		switch {
		case r.CurveR2 > 0.9:
			r.Signals = append(r.Signals, fmt.Sprintf("STEADY_GRINDER: R²=%.2f, very consistent returns", r.CurveR2))
		case r.CurveR2 < 0.3 && len(cumulative) >= 20:
			r.Signals = append(r.Signals, fmt.Sprintf("VOLATILE_RETURNS: R²=%.2f, erratic PnL curve", r.CurveR2))
		}
	}
	if r.MaxDrawdownPct > 0.5 {
		r.Signals = append(r.Signals, fmt.Sprintf("SEVERE_DRAWDOWN: %s peak-to-trough", pct(r.MaxDrawdownPct, 0)))
	}
	switch {
	case r.SizeAfterLossRatio > 1.3:
		r.Signals = append(r.Signals, fmt.Sprintf("MARTINGALE_TENDENCY: sizes up %.1fx after losses", r.SizeAfterLossRatio))
	case r.SizeAfterLossRatio > 0 && r.SizeAfterLossRatio < 0.7:
		r.Signals = append(r.Signals, fmt.Sprintf("RISK_REDUCER: sizes down to %.1fx after losses", r.SizeAfterLossRatio))
	}
	switch r.EdgeTrend {
	case TrendImproving:
		r.Signals = append(r.Signals, "IMPROVING_EDGE: win rate increasing over time")
	case TrendDeclining:
		r.Signals = append(r.Signals, "DECLINING_EDGE: win rate decreasing over time")
	}
	return r
}

func (r *Pattern) computeStreaks(outcomes []bool) {
	if len(outcomes) == 0 {
		return
	}
	run := 0
	flush := func(win bool) {
		if win {
			r.Streaks = append(r.Streaks, run)
		} else {
			r.Streaks = append(r.Streaks, -run)
		}
	}
	for i, o := range outcomes {
		if i > 0 && o != outcomes[i-1] {
			flush(outcomes[i-1])
			run = 0
		}
		run++
	}
	flush(outcomes[len(outcomes)-1])
	r.CurrentStreak = r.Streaks[len(r.Streaks)-1]

	var wins, losses []float64
	for _, s := range r.Streaks {
		if s > 0 {
			wins = append(wins, float64(s))
			r.MaxWinStreak = max(r.MaxWinStreak, s)
		} else {
			losses = append(losses, float64(-s))
			r.MaxLossStreak = max(r.MaxLossStreak, -s)
		}
	}
	r.AvgWinStreak = calculator.MeanOrZero(wins)
	r.AvgLossStreak = calculator.MeanOrZero(losses)
}

// computeRecoveries counts win runs that end a loss run of recoveryStreak or more.
func (r *Pattern) computeRecoveries() {
	var lengths []float64
	for i := 1; i < len(r.Streaks); i++ {
		if r.Streaks[i] > 0 && -r.Streaks[i-1] >= recoveryStreak {
			lengths = append(lengths, float64(r.Streaks[i]))
		}
	}
	r.RecoveriesFromLoss = len(lengths)
	r.AvgRecoveryLength = calculator.MeanOrZero(lengths)
}

func (r *Pattern) computeDrawdown(cumulative []float64) {
	peak := cumulative[0]
	end := 0
	for i, v := range cumulative {
		if v > peak {
			peak = v
		}
		if dd := peak - v; dd > r.MaxDrawdown {
			r.MaxDrawdown = dd
			r.DrawdownPeak = peak
			end = i
		}
	}
	if r.MaxDrawdown == 0 {
		return
	}
	if r.DrawdownPeak > 0 {
		r.MaxDrawdownPct = calculator.Clamp01(r.MaxDrawdown / r.DrawdownPeak)
	}
	for i := end; i < len(cumulative); i++ {
		r.RecoveryPositions++
		if cumulative[i] >= r.DrawdownPeak {
			break
		}
	}
}

func winRate(outcomes []bool) float64 {
	wins := 0
	for _, o := range outcomes {
		if o {
			wins++
		}
	}
	return calculator.Fraction(wins, len(outcomes))
}

func (r *Pattern) Name() string { return NamePattern }

func (r *Pattern) SignalList() []string { return r.Signals }

func (r *Pattern) Text() string {
	var b strings.Builder
	b.WriteString("=== PATTERN ANALYSIS ===")
	b.WriteString(fmt.Sprintf("\nMax win streak: %d, Max loss streak: %d", r.MaxWinStreak, r.MaxLossStreak))
	b.WriteString(fmt.Sprintf("\nAvg win streak: %.1f, Avg loss streak: %.1f", r.AvgWinStreak, r.AvgLossStreak))
	b.WriteString(fmt.Sprintf("\nMax drawdown: %s (%s of peak)", usd(r.MaxDrawdown), pct(r.MaxDrawdownPct, 1)))
	b.WriteString(fmt.Sprintf("\nDrawdown recovery: %d positions", r.RecoveryPositions))
	b.WriteString(fmt.Sprintf("\nRecoveries from 3+ losses: %d", r.RecoveriesFromLoss))
	b.WriteString(fmt.Sprintf("\nSize after loss ratio: %.2fx, after win: %.2fx", r.SizeAfterLossRatio, r.SizeAfterWinRatio))
	b.WriteString(fmt.Sprintf("\nEdge trend: 1st half WR=%s, 2nd half WR=%s -> %s",
		pct(r.FirstHalfWinRate, 1), pct(r.SecondHalfWinRate, 1), r.EdgeTrend))
	b.WriteString(fmt.Sprintf("\nPnL curve R²: %.3f (1.0=perfectly linear)", r.CurveR2))
	writeSignals(&b, r.Signals)
	return b.String()
}
