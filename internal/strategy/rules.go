package strategy

import (
	"fmt"
	"math"

	"WalletSentinel/internal/analyzer"
	"WalletSentinel/internal/model"
)

// Signals is the numeric view of a wallet that override rules read.
type Signals struct {
	Positions     int
	AvgSize       float64
	CV            float64
	WinRate       float64
	ProfitFactor  float64
	AvgEntry      float64
	LowOddsPct    float64
	SportsShare   float64
	PoliticsShare float64
	CryptoShare   float64
	// Sharpe is optional; nil or zero disables the clauses that read it.
	Sharpe *float64
	// Unpriced marks a history without a usable entry price. AvgEntry is then
	// zero and says nothing about odds.
	Unpriced bool
}

// NewSignals extracts rule inputs from analyzer results. Nil results read as zero.
func NewSignals(sizing *analyzer.Sizing, flow *analyzer.Flow, market *analyzer.Market, positions int, sharpe *float64) *Signals {
	s := &Signals{Positions: positions, Sharpe: sharpe, Unpriced: sizing == nil || sizing.PricedEntries == 0}
	if sizing != nil {
		s.AvgSize = sizing.AvgPositionSize
		s.CV = sizing.CV
		s.AvgEntry = sizing.AvgEntryPrice
		s.LowOddsPct = sizing.LowOddsPct
	}
	if flow != nil {
		s.WinRate = flow.WinRate
		s.ProfitFactor = flow.ProfitFactor
	}
	if market != nil {
		s.SportsShare = market.CategoryShare(analyzer.CategorySports)
		s.PoliticsShare = market.CategoryShare(analyzer.CategoryPolitics) + market.CategoryShare(analyzer.CategoryEconomics)
		s.CryptoShare = market.CategoryShare(analyzer.CategoryCrypto)
	}
	return s
}

func (s *Signals) SportsDominant() bool { return s.SportsShare > 0.40 }

func (s *Signals) PoliticsFocus() bool { return s.PoliticsShare > 0.25 }

func (s *Signals) CryptoDominant() bool { return s.CryptoShare > 0.60 }

// LowOddsEntries reports a habit of buying below even odds. An unpriced
// history never qualifies.
func (s *Signals) LowOddsEntries() bool {
	return !s.Unpriced && (s.AvgEntry < 0.45 || s.LowOddsPct > 0.30)
}

func (s *Signals) Exceptional() bool { return s.WinRate > 0.75 || s.ProfitFactor > 3.0 }

// Edge is the win rate above a coin flip.
func (s *Signals) Edge() float64 { return s.WinRate - 0.5 }

// NewsEarlyEntry is the info-edge signature: politics focus, cheap entries, real profit.
func (s *Signals) NewsEarlyEntry() bool {
	return s.PoliticsFocus() && s.LowOddsEntries() && s.ProfitFactor > 1.1
}

func (s *Signals) negativeSharpe() bool {
	return s.Sharpe != nil && *s.Sharpe < 0
}

func (s *Signals) String() string {
	return fmt.Sprintf("n=%d avg=$%.0f cv=%.2f wr=%.1f%% pf=%.2f entry=%.2f sports=%.0f%% politics=%.0f%% crypto=%.0f%%",
		s.Positions, s.AvgSize, s.CV, s.WinRate*100, s.ProfitFactor, s.AvgEntry,
		s.SportsShare*100, s.PoliticsShare*100, s.CryptoShare*100)
}

// Rule rewrites the current label when its condition holds.
// An empty From admits every label.
type Rule struct {
	Name   string
	From   []model.Strategy
	When   func(*Signals) bool
	To     func(*Signals) model.Strategy
	Reason func(*Signals) string
}

func (r Rule) admits(label model.Strategy) bool {
	if len(r.From) == 0 {
		return true
	}
	for _, f := range r.From {
		if f == label {
			return true
		}
	}
	return false
}

func to(s model.Strategy) func(*Signals) model.Strategy {
	return func(*Signals) model.Strategy { return s }
}

func from(s ...model.Strategy) []model.Strategy { return s }

func wrpf(s *Signals) string {
	return fmt.Sprintf("win rate %.1f%%, profit factor %.2f", s.WinRate*100, s.ProfitFactor)
}

// Rules is evaluated top to bottom and the first admitted match decides a pass.
var Rules = []Rule{
	{
		Name: "sports_whale",
		When: func(s *Signals) bool {
			return s.AvgSize > 100_000 && s.Positions < 5000 && s.SportsDominant()
		},
		To: to(model.StrategyWhale),
		Reason: func(s *Signals) string {
			return fmt.Sprintf("avg size $%.0f over %d positions, %.0f%% sports", s.AvgSize, s.Positions, s.SportsShare*100)
		},
	},
	{
		Name: "large_unprofitable_whale",
		When: func(s *Signals) bool {
			return s.AvgSize > 300_000 && s.Positions < 2500 && !s.PoliticsFocus() &&
				(s.WinRate < 0.55 || s.negativeSharpe())
		},
		To: to(model.StrategyWhale),
		Reason: func(s *Signals) string {
			return fmt.Sprintf("avg size $%.0f over %d positions, %s", s.AvgSize, s.Positions, wrpf(s))
		},
	},
	{
		Name: "whale_exceptional_accuracy",
		From: from(model.StrategyWhale),
		When: func(s *Signals) bool {
			return s.PoliticsFocus() && !s.SportsDominant() && s.Exceptional()
		},
		To: to(model.StrategyInfoEdge),
		Reason: func(s *Signals) string {
			return fmt.Sprintf("%.0f%% politics/economics with %s", s.PoliticsShare*100, wrpf(s))
		},
	},
	{
		Name: "whale_news_early_entry",
		From: from(model.StrategyWhale),
		When: func(s *Signals) bool { return s.NewsEarlyEntry() },
		To:   to(model.StrategyInfoEdge),
		Reason: func(s *Signals) string {
			return fmt.Sprintf("%.0f%% politics/economics, avg entry %.2f, profit factor %.2f", s.PoliticsShare*100, s.AvgEntry, s.ProfitFactor)
		},
	},
	{
		Name: "whale_too_consistent",
		From: from(model.StrategyWhale),
		When: func(s *Signals) bool {
			return s.Positions > 500 && s.CV < 1.2 && s.WinRate > 0.55 && s.ProfitFactor > 1.2
		},
		To: to(model.StrategyModelBased),
		Reason: func(s *Signals) string {
			return fmt.Sprintf("%d positions with sizing CV %.2f, %s", s.Positions, s.CV, wrpf(s))
		},
	},
	{
		Name: "whale_sports_rescue",
		From: from(model.StrategyWhale),
		When: func(s *Signals) bool {
			return s.SportsDominant() && s.Positions > 2000 && s.WinRate > 0.58 && s.ProfitFactor > 1.05 && s.AvgSize < 50_000
		},
		To: to(model.StrategyModelBased),
		Reason: func(s *Signals) string {
			return fmt.Sprintf("%.0f%% sports over %d positions, avg $%.0f, %s", s.SportsShare*100, s.Positions, s.AvgSize, wrpf(s))
		},
	},
	{
		Name: "whale_small_size",
		From: from(model.StrategyWhale),
		When: func(s *Signals) bool { return s.AvgSize < 10_000 && s.Positions > 3000 },
		To: func(s *Signals) model.Strategy {
			edge := math.Abs(s.Edge())
			switch {
			case edge < 0.03 && s.Positions > 20_000:
				return model.StrategyMarketMaker
			case edge >= 0.03 && edge <= 0.15 && s.Positions > 5000:
				return model.StrategyScalper
			default:
				return model.StrategyModelBased
			}
		},
		Reason: func(s *Signals) string {
			return fmt.Sprintf("avg size $%.0f is not whale-sized across %d positions, edge %+.1f%%", s.AvgSize, s.Positions, s.Edge()*100)
		},
	},
	{
		Name: "model_news_early_entry",
		From: from(model.StrategyModelBased),
		When: func(s *Signals) bool {
			return s.PoliticsFocus() && s.LowOddsEntries() && s.ProfitFactor > 1.1 && !s.SportsDominant()
		},
		To: to(model.StrategyInfoEdge),
		Reason: func(s *Signals) string {
			return fmt.Sprintf("%.0f%% politics/economics, avg entry %.2f, %.0f%% low-odds entries, profit factor %.2f",
				s.PoliticsShare*100, s.AvgEntry, s.LowOddsPct*100, s.ProfitFactor)
		},
	},
	{
		Name: "info_edge_unproven",
		From: from(model.StrategyInfoEdge),
		When: func(s *Signals) bool {
			return !s.Exceptional() && !s.NewsEarlyEntry() && s.Positions > 500
		},
		To: to(model.StrategyModelBased),
		Reason: func(s *Signals) string {
			return fmt.Sprintf("%s over %d positions without news-driven early entries", wrpf(s), s.Positions)
		},
	},
	{
		Name: "info_edge_sports",
		From: from(model.StrategyInfoEdge),
		When: func(s *Signals) bool {
			return s.SportsDominant() && s.WinRate > 0.55 && s.ProfitFactor > 1.1
		},
		To: to(model.StrategyModelBased),
		Reason: func(s *Signals) string {
			return fmt.Sprintf("%.0f%% sports with %s", s.SportsShare*100, wrpf(s))
		},
	},
	{
		Name: "scalper_sports_accuracy",
		From: from(model.StrategyScalper),
		When: func(s *Signals) bool { return s.SportsDominant() && s.WinRate > 0.58 },
		To:   to(model.StrategyModelBased),
		Reason: func(s *Signals) string {
			return fmt.Sprintf("%.0f%% sports with win rate %.1f%%", s.SportsShare*100, s.WinRate*100)
		},
	},
	{
		Name: "scalper_sports_volume",
		From: from(model.StrategyScalper),
		When: func(s *Signals) bool {
			return s.SportsDominant() &&
				((s.Positions > 15_000 && s.CV < 0.5) ||
					(s.Positions > 20_000 && s.WinRate > 0.51 && s.ProfitFactor > 1.0))
		},
		To: to(model.StrategyModelBased),
		Reason: func(s *Signals) string {
			return fmt.Sprintf("%.0f%% sports over %d positions, sizing CV %.2f, %s", s.SportsShare*100, s.Positions, s.CV, wrpf(s))
		},
	},
	{
		Name: "market_maker_sports_edge",
		From: from(model.StrategyMarketMaker),
		When: func(s *Signals) bool {
			return s.SportsDominant() && s.Edge() > 0.03 && s.ProfitFactor > 1.05
		},
		To: to(model.StrategyModelBased),
		Reason: func(s *Signals) string {
			return fmt.Sprintf("%.0f%% sports with edge %+.1f%%, profit factor %.2f", s.SportsShare*100, s.Edge()*100, s.ProfitFactor)
		},
	},
	{
		Name: "market_maker_directional",
		From: from(model.StrategyMarketMaker, model.StrategyArbitrage),
		When: func(s *Signals) bool { return s.WinRate > 0.53 && s.ProfitFactor > 1.05 },
		To:   to(model.StrategyModelBased),
		Reason: func(s *Signals) string {
			return wrpf(s) + " is directional, not spread capture"
		},
	},
	{
		Name: "high_volume_thin_edge",
		When: func(s *Signals) bool {
			return s.Positions > 30_000 && s.AvgSize < 150_000 && math.Abs(s.Edge()) < 0.02 && s.ProfitFactor < 1.10
		},
		To: func(s *Signals) model.Strategy {
			if s.CryptoDominant() {
				return model.StrategyScalper
			}
			return model.StrategyMarketMaker
		},
		Reason: func(s *Signals) string {
			return fmt.Sprintf("%d positions, avg $%.0f, %s, %.0f%% crypto", s.Positions, s.AvgSize, wrpf(s), s.CryptoShare*100)
		},
	},
	{
		Name: "crypto_coin_flip",
		From: from(model.StrategyScalper, model.StrategyModelBased),
		When: func(s *Signals) bool {
			return s.CryptoDominant() && s.AvgEntry >= 0.45 && s.AvgEntry <= 0.55 &&
				s.Positions >= 500 && s.Positions <= 5000
		},
		To: to(model.StrategyContrarian),
		Reason: func(s *Signals) string {
			return fmt.Sprintf("%.0f%% crypto at avg entry %.2f over %d positions", s.CryptoShare*100, s.AvgEntry, s.Positions)
		},
	},
}
