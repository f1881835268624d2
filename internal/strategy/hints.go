package strategy

import (
	"fmt"
	"math"
	"strings"

	"WalletSentinel/internal/analyzer"
)

// Hints lists the archetypes the numbers lean toward. Thresholds sit below the
// override rules so a classifier sees a label coming before it is forced.
func Hints(sizing *analyzer.Sizing, flow *analyzer.Flow, market *analyzer.Market, positions int) []string {
	s := NewSignals(sizing, flow, market, positions, nil)
	var out []string
	add := func(format string, args ...any) {
		out = append(out, fmt.Sprintf(format, args...))
	}

	if s.AvgSize > 50_000 {
		add("WHALE: avg position $%.0f; whale fits unless accuracy or volume says otherwise", s.AvgSize)
	}
	if positions > 1000 && s.CV < 1.5 {
		add("MODEL_BASED: %d positions with sizing CV %.2f suggests a systematic model", positions, s.CV)
	}
	if positions > 10_000 && math.Abs(s.Edge()) < 0.03 {
		add("MARKET_MAKER: %d positions with win rate %.1f%% near 50%%; thin edge over high volume", positions, s.WinRate*100)
	}
	if positions > 3000 && math.Abs(s.Edge()) >= 0.02 && math.Abs(s.Edge()) <= 0.15 && s.AvgSize < 20_000 {
		add("SCALPER: %d small positions with edge %+.1f%%", positions, s.Edge()*100)
	}
	if s.PoliticsShare > 0.20 && s.LowOddsEntries() {
		add("INFO_EDGE: %.0f%% politics/economics with avg entry %.2f; check for early news-driven entries", s.PoliticsShare*100, s.AvgEntry)
	}
	if s.SportsShare > 0.30 {
		add("SPORTS_CAVEAT: %.0f%% sports; high accuracy in sports usually means a model, not inside information", s.SportsShare*100)
	}
	if s.CryptoShare > 0.50 && !s.Unpriced && s.AvgEntry >= 0.40 && s.AvgEntry <= 0.60 {
		add("CRYPTO_COIN_FLIP: %.0f%% crypto at avg entry %.2f; near coin-flip pricing", s.CryptoShare*100, s.AvgEntry)
	}
	if market != nil && market.NoPct > 0.6 && !s.Unpriced && s.AvgEntry < 0.5 {
		add("CONTRARIAN: %.0f%% NO positions at avg entry %.2f", market.NoPct*100, s.AvgEntry)
	}
	if sizing != nil && sizing.HighOddsPct > 0.4 && market != nil && market.YesPct > 0.6 {
		add("MOMENTUM: %.0f%% entries above 0.70 with %.0f%% YES; buys favorites", sizing.HighOddsPct*100, market.YesPct*100)
	}
	return out
}

// RenderHints formats hints as a text block for the classifier context.
func RenderHints(hints []string) string {
	var b strings.Builder
	b.WriteString("=== RULE-BASED HINTS ===")
	if len(hints) == 0 {
		b.WriteString("\nNo strong archetype hints.")
		return b.String()
	}
	for _, h := range hints {
		b.WriteString("\n- " + h)
	}
	return b.String()
}
