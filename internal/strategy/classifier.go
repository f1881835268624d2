package strategy

import (
	"context"
	"fmt"
	"math"

	"WalletSentinel/internal/analyzer"
	"WalletSentinel/internal/calculator"
	"WalletSentinel/internal/model"
)

// Candidate is a proposed label before overrides run.
type Candidate struct {
	Primary    model.Strategy
	Secondary  []model.Strategy
	Confidence float64
	Evidence   []string
	Reasoning  string
	Source     string
}

// Input is everything a classifier may read.
type Input struct {
	Wallet    string
	Positions int
	Report    *analyzer.Report
	Hints     []string
	Profile   *model.WalletProfile
}

// Classifier proposes a candidate label for a wallet.
type Classifier interface {
	Classify(ctx context.Context, in Input) (Candidate, error)
}

// ParseCandidate validates free-text labels from an external classifier.
// The primary falls back to unknown; invalid secondaries are dropped.
func ParseCandidate(primary string, secondary []string, confidence float64) Candidate {
	c := Candidate{
		Primary:    model.ParseStrategy(primary),
		Confidence: calculator.Clamp01(confidence),
	}
	for _, s := range model.FilterStrategies(secondary) {
		if s != c.Primary {
			c.Secondary = append(c.Secondary, s)
		}
	}
	return c
}

type heuristic struct {
	Label      model.Strategy
	Confidence float64
	When       func(s *Signals, r *analyzer.Report) bool
}

// heuristics is checked in order; the first match proposes the label.
var heuristics = []heuristic{
	{model.StrategyWhale, 0.60, func(s *Signals, _ *analyzer.Report) bool {
		return s.AvgSize > 100_000
	}},
	{model.StrategyHedger, 0.55, func(_ *Signals, r *analyzer.Report) bool {
		return r.Correlation != nil && r.Correlation.HedgeRatio > 0.15
	}},
	{model.StrategyContrarian, 0.55, func(s *Signals, r *analyzer.Report) bool {
		return r.Market != nil && r.Market.NoPct > 0.7 && !s.Unpriced && s.AvgEntry < 0.4
	}},
	{model.StrategyMomentum, 0.55, func(s *Signals, r *analyzer.Report) bool {
		return r.Sizing != nil && r.Sizing.HighOddsPct > 0.5 && r.Market != nil && r.Market.YesPct > 0.6
	}},
	{model.StrategyMarketMaker, 0.55, func(s *Signals, _ *analyzer.Report) bool {
		return s.Positions > 10_000 && math.Abs(s.Edge()) < 0.03
	}},
	{model.StrategyInfoEdge, 0.55, func(s *Signals, _ *analyzer.Report) bool {
		return s.NewsEarlyEntry() && !s.SportsDominant()
	}},
	{model.StrategyModelBased, 0.55, func(s *Signals, _ *analyzer.Report) bool {
		return s.Positions > 1000 && s.CV < 1.5
	}},
	{model.StrategyScalper, 0.50, func(s *Signals, _ *analyzer.Report) bool {
		return s.Positions > 3000 && s.AvgSize < 20_000
	}},
	{model.StrategyModelBased, 0.40, func(s *Signals, _ *analyzer.Report) bool {
		return s.Positions >= 20
	}},
}

// HeuristicClassifier is the deterministic baseline classifier.
type HeuristicClassifier struct{}

func (HeuristicClassifier) Classify(_ context.Context, in Input) (Candidate, error) {
	r := in.Report
	if r == nil {
		r = &analyzer.Report{}
	}
	s := NewSignals(r.Sizing, r.Flow, r.Market, in.Positions, sharpeOf(in.Profile))

	c := Candidate{Primary: model.StrategyUnknown, Confidence: 0.3, Source: "heuristic"}
	var matched []model.Strategy
	for _, h := range heuristics {
		if h.When(s, r) {
			matched = append(matched, h.Label)
			if c.Primary == model.StrategyUnknown {
				c.Primary = h.Label
				c.Confidence = h.Confidence
			}
		}
	}
	c.Secondary = demote(nil, c.Primary, matched...)
	if len(c.Secondary) > 2 {
		c.Secondary = c.Secondary[:2]
	}

	c.Evidence = []string{
		fmt.Sprintf("Win rate %.1f%% with profit factor %.2f over %d positions", s.WinRate*100, s.ProfitFactor, s.Positions),
		fmt.Sprintf("Average position $%.0f with sizing CV %.2f", s.AvgSize, s.CV),
	}
	if r.Market != nil && r.Market.DominantCategory != "" {
		c.Evidence = append(c.Evidence, fmt.Sprintf("Dominant category %s at %.0f%% of positions",
			r.Market.DominantCategory, r.Market.CategoryConcentration*100))
	}
	c.Reasoning = fmt.Sprintf("Baseline rules matched %d archetype(s); %s selected from %s.", len(matched), c.Primary, s)
	return c, nil
}

func sharpeOf(p *model.WalletProfile) *float64 {
	if p == nil {
		return nil
	}
	return p.SharpeScore
}
