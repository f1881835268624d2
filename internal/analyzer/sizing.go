package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"WalletSentinel/internal/calculator"
	"WalletSentinel/internal/model"
)

// Size tier upper bounds; anything at or above the last bound is whale-sized.
const (
	microLimit  = 100
	smallLimit  = 1_000
	mediumLimit = 10_000
	largeLimit  = 100_000
)

// Sizing summarizes position sizes and entry prices.
type Sizing struct {
	TotalPositions    int
	TotalVolume       float64
	AvgPositionSize   float64
	MedianSize        float64
	StdPositionSize   float64
	MinPositionSize   float64
	MaxPositionSize   float64
	MicroCount        int
	SmallCount        int
	MediumCount       int
	LargeCount        int
	WhaleCount        int
	CV                float64
	SizeConcentration float64
	AvgWinSize        float64
	AvgLossSize       float64
	WinLossSizeRatio  float64
	AvgEntryPrice     float64
	PricedEntries     int
	LowOddsPct        float64
	MidOddsPct        float64
	HighOddsPct       float64
	Signals           []string
}

// AnalyzeSizing computes size distribution statistics over positions with a positive size.
func AnalyzeSizing(positions []model.Position) *Sizing {
	r := &Sizing{TotalPositions: len(positions)}
	if len(positions) < minSamples {
		return r
	}

	var sizes []float64
	for _, p := range positions {
		if p.TotalBought > 0 {
			sizes = append(sizes, p.TotalBought)
		}
	}
	if len(sizes) == 0 {
		return r
	}

	r.TotalVolume = calculator.Sum(sizes)
	r.AvgPositionSize = calculator.MeanOrZero(sizes)
	r.MedianSize, _ = calculator.Median(sizes)
	r.MinPositionSize, r.MaxPositionSize, _ = calculator.MinMax(sizes)
	r.StdPositionSize = calculator.SampleStdDev(sizes)
	r.CV = calculator.CoefficientOfVariation(r.StdPositionSize, r.AvgPositionSize)

	for _, s := range sizes {
		switch {
		case s < microLimit:
			r.MicroCount++
		case s < smallLimit:
			r.SmallCount++
		case s < mediumLimit:
			r.MediumCount++
		case s < largeLimit:
			r.LargeCount++
		default:
			r.WhaleCount++
		}
	}

	sorted := make([]float64, len(sizes))
	copy(sorted, sizes)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	topN := len(sorted) / 10
	if topN < 1 {
		topN = 1
	}
	r.SizeConcentration = calculator.Clamp01(calculator.Sum(sorted[:topN]) / r.TotalVolume)

	var winSizes, lossSizes, entries []float64
	for _, p := range positions {
		if p.TotalBought > 0 {
			if p.PnL > 0 {
				winSizes = append(winSizes, p.TotalBought)
			} else {
				lossSizes = append(lossSizes, p.TotalBought)
			}
		}
		if p.AvgPrice > 0 && p.AvgPrice <= 1 {
			entries = append(entries, p.AvgPrice)
		}
	}
	r.AvgWinSize = calculator.MeanOrZero(winSizes)
	r.AvgLossSize = calculator.MeanOrZero(lossSizes)
	r.WinLossSizeRatio = calculator.Ratio(r.AvgWinSize, r.AvgLossSize)

	r.PricedEntries = len(entries)
	if len(entries) > 0 {
		var low, mid, high int
		for _, e := range entries {
			switch {
			case e < 0.3:
				low++
			case e <= 0.7:
				mid++
			default:
				high++
			}
		}
		r.AvgEntryPrice = calculator.MeanOrZero(entries)
		r.LowOddsPct = calculator.Fraction(low, len(entries))
		r.MidOddsPct = calculator.Fraction(mid, len(entries))
		r.HighOddsPct = calculator.Fraction(high, len(entries))
	}

	switch {
	case r.CV < 0.5:
		r.Signals = append(r.Signals, "CONSISTENT_SIZING: low CV suggests systematic/model-based approach")
	case r.CV > 2.0:
		r.Signals = append(r.Signals, "HIGHLY_VARIABLE_SIZING: high CV, mixes small and very large bets")
	}
	if whaleShare := calculator.Fraction(r.WhaleCount, len(sizes)); whaleShare > 0.1 {
		r.Signals = append(r.Signals, fmt.Sprintf("WHALE_SIZING: %d positions >$100K (%s)", r.WhaleCount, pct(whaleShare, 0)))
	}
	if r.SizeConcentration > 0.5 {
		r.Signals = append(r.Signals, fmt.Sprintf("CONCENTRATED: top 10%% of positions = %s of volume", pct(r.SizeConcentration, 0)))
	}
	switch {
	case r.WinLossSizeRatio > 1.5:
		r.Signals = append(r.Signals, "LARGER_ON_WINS: sizes up on winning trades, possible conviction scaling")
	case r.WinLossSizeRatio > 0 && r.WinLossSizeRatio < 0.7:
		r.Signals = append(r.Signals, "LARGER_ON_LOSSES: sizes up on losing trades, possible averaging down")
	}
	switch {
	case r.LowOddsPct > 0.5:
		r.Signals = append(r.Signals, fmt.Sprintf("LOW_ODDS_BUYER: %s entries below 0.30, hunting longshots", pct(r.LowOddsPct, 0)))
	case r.HighOddsPct > 0.5:
		r.Signals = append(r.Signals, fmt.Sprintf("HIGH_ODDS_BUYER: %s entries above 0.70, buying favorites", pct(r.HighOddsPct, 0)))
	case r.MidOddsPct > 0.6:
		r.Signals = append(r.Signals, fmt.Sprintf("MID_ODDS_FOCUS: %s entries in 0.30-0.70, near-tossup markets", pct(r.MidOddsPct, 0)))
	}
	if r.AvgPositionSize > largeLimit {
		r.Signals = append(r.Signals, fmt.Sprintf("VERY_LARGE_AVG: %s average position", usd(r.AvgPositionSize)))
	}
	return r
}

func (r *Sizing) Name() string { return NameSizing }

func (r *Sizing) SignalList() []string { return r.Signals }

// Text renders the fixed-format sizing report.
func (r *Sizing) Text() string {
	var b strings.Builder
	b.WriteString("=== SIZING ANALYSIS ===")
	b.WriteString(fmt.Sprintf("\nTotal volume: %s across %d positions", usd(r.TotalVolume), r.TotalPositions))
	b.WriteString(fmt.Sprintf("\nPosition size: avg=%s, median=%s, max=%s",
		usd(r.AvgPositionSize), usd(r.MedianSize), usd(r.MaxPositionSize)))
	b.WriteString(fmt.Sprintf("\nCV (consistency): %.2f (lower=more consistent)", r.CV))
	b.WriteString(fmt.Sprintf("\nSize distribution: micro=%d, small=%d, medium=%d, large=%d, whale=%d",
		r.MicroCount, r.SmallCount, r.MediumCount, r.LargeCount, r.WhaleCount))
	b.WriteString(fmt.Sprintf("\nTop 10%% concentration: %s of volume", pct(r.SizeConcentration, 1)))
	b.WriteString(fmt.Sprintf("\nAvg win size: %s, Avg loss size: %s, ratio: %.2f",
		usd(r.AvgWinSize), usd(r.AvgLossSize), r.WinLossSizeRatio))
	b.WriteString(fmt.Sprintf("\nEntry prices: low(<0.3)=%s, mid(0.3-0.7)=%s, high(>0.7)=%s",
		pct(r.LowOddsPct, 1), pct(r.MidOddsPct, 1), pct(r.HighOddsPct, 1)))
	writeSignals(&b, r.Signals)
	return b.String()
}
