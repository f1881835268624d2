package model

import "strings"

// Strategy is a trading strategy archetype.
type Strategy string

const (
	StrategyInfoEdge    Strategy = "info_edge"
	StrategyModelBased  Strategy = "model_based"
	StrategyMarketMaker Strategy = "market_maker"
	StrategyContrarian  Strategy = "contrarian"
	StrategyMomentum    Strategy = "momentum"
	StrategyHedger      Strategy = "hedger"
	StrategyArbitrage   Strategy = "arbitrage"
	StrategyWhale       Strategy = "whale"
	StrategyScalper     Strategy = "scalper"
	StrategyUnknown     Strategy = "unknown"
)

// Strategies lists the closed label set in canonical order.
var Strategies = []Strategy{
	StrategyInfoEdge,
	StrategyModelBased,
	StrategyMarketMaker,
	StrategyContrarian,
	StrategyMomentum,
	StrategyHedger,
	StrategyArbitrage,
	StrategyWhale,
	StrategyScalper,
	StrategyUnknown,
}

// Valid reports whether s belongs to the closed label set.
func (s Strategy) Valid() bool {
	for _, v := range Strategies {
		if s == v {
			return true
		}
	}
	return false
}

// ParseStrategy maps free text onto a label. Exact matches win, then a
// substring match in either direction, otherwise unknown.
func ParseStrategy(raw string) Strategy {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return StrategyUnknown
	}
	if s := Strategy(v); s.Valid() {
		return s
	}
	for _, s := range Strategies {
		if strings.Contains(v, string(s)) || strings.Contains(string(s), v) {
			return s
		}
	}
	return StrategyUnknown
}

// FilterStrategies keeps only valid labels, dropping duplicates.
func FilterStrategies(raw []string) []Strategy {
	var out []Strategy
	seen := make(map[Strategy]bool)
	for _, r := range raw {
		s := Strategy(strings.ToLower(strings.TrimSpace(r)))
		if !s.Valid() || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
