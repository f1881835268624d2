package strategy

import (
	"fmt"
	"strings"
	"time"

	"WalletSentinel/internal/analyzer"
	"WalletSentinel/internal/calculator"
	"WalletSentinel/internal/model"
)

const (
	maxAnalyzerEvidence = 8
	maxMonitorSignals   = 5
)

// RiskTiers maps the max drawdown share of peak to a risk level.
var RiskTiers = []struct {
	MinDrawdown float64
	Level       string
}{
	{0.50, "high"},
	{0.25, "moderate"},
	{0.0, "low"},
}

func mapRisk(drawdownPct float64) string {
	for _, t := range RiskTiers {
		if drawdownPct >= t.MinDrawdown {
			return t.Level
		}
	}
	return RiskTiers[len(RiskTiers)-1].Level
}

// monitorText rewrites analyzer signal codes as things to watch on the next run.
var monitorText = map[string]string{
	"HIGH_PROFIT_FACTOR":   "profit factor holding above 2.0",
	"LOW_PROFIT_FACTOR":    "profit factor recovering above 0.8",
	"HIGH_WIN_RATE":        "win rate staying above 65%",
	"LOW_WIN_RATE":         "payoff size on the few winning trades",
	"WHALE_SIZING":         "share of positions above $100K",
	"CONSISTENT_SIZING":    "sizing CV staying below 0.5",
	"MARTINGALE_TENDENCY":  "position size after losing trades",
	"SEVERE_DRAWDOWN":      "recovery toward the previous equity peak",
	"NO_BIAS":              "share of NO-side entries",
	"YES_BIAS":             "share of YES-side entries",
	"SPECIALIST":           "entries outside the dominant category",
	"HEDGER":               "markets held on both sides",
	"BATCH_TRADER":         "clustered multi-market entries",
	"HIGH_FREQUENCY":       "trade frequency per day",
	"DECLINING_EDGE":       "second-half win rate versus first half",
	"IMPROVING_EDGE":       "second-half win rate versus first half",
	"LOW_ODDS_BUYER":       "entries priced below 0.30",
	"HIGH_ODDS_BUYER":      "entries priced above 0.70",
	"PORTFOLIO_BUILDER":    "number of concurrently open markets",
	"RELATED_MARKET_FOCUS": "positions across related market variants",
}

// Assemble packages the final label, evidence and risk note for a wallet.
func Assemble(wallet string, cand Candidate, d Decision, report *analyzer.Report) *model.Thesis {
	if report == nil {
		report = &analyzer.Report{}
	}
	t := &model.Thesis{
		Wallet:     wallet,
		Primary:    d.Label,
		Confidence: calculator.Clamp01(d.Confidence(cand.Confidence)),
		Reasoning:  cand.Reasoning,
		CreatedAt:  time.Now().UTC(),
	}
	if t.Primary == "" {
		t.Primary = model.StrategyUnknown
	}
	for _, s := range d.Secondary {
		t.Demote(s)
	}
	if report.Flow != nil {
		t.PositionCount = report.Flow.TotalPositions
	}

	signals := report.Signals()
	seen := map[string]bool{}
	addEvidence := func(lines ...string) {
		for _, l := range lines {
			if l != "" && !seen[l] {
				seen[l] = true
				t.Evidence = append(t.Evidence, l)
			}
		}
	}
	addEvidence(cand.Evidence...)
	if len(signals) > maxAnalyzerEvidence {
		addEvidence(signals[:maxAnalyzerEvidence]...)
	} else {
		addEvidence(signals...)
	}
	addEvidence(d.Evidence...)

	if d.Changed() {
		t.Reasoning = strings.TrimSpace(t.Reasoning + fmt.Sprintf(" Overrides applied: %s.", strings.Join(d.Fired, ", ")))
	}
	t.SignalsToMonitor = monitorSignals(signals)
	t.RiskAssessment = riskNote(report)
	return t
}

func signalCode(signal string) string {
	if i := strings.Index(signal, ":"); i >= 0 {
		return signal[:i]
	}
	return signal
}

func monitorSignals(signals []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, s := range signals {
		code := signalCode(s)
		text, ok := monitorText[code]
		if !ok {
			text = "persistence of " + code
		}
		if seen[text] {
			continue
		}
		seen[text] = true
		out = append(out, text)
		if len(out) == maxMonitorSignals {
			break
		}
	}
	return out
}

func riskNote(r *analyzer.Report) string {
	var dd, ddPct, pf, conc float64
	if r.Pattern != nil {
		dd, ddPct = r.Pattern.MaxDrawdown, r.Pattern.MaxDrawdownPct
	}
	if r.Flow != nil {
		pf = r.Flow.ProfitFactor
	}
	if r.Sizing != nil {
		conc = r.Sizing.SizeConcentration
	}
	return fmt.Sprintf("Risk %s: max drawdown $%.0f (%.0f%% of peak), profit factor %.2f, top-decile sizing holds %.0f%% of volume.",
		mapRisk(ddPct), dd, ddPct*100, pf, conc*100)
}
