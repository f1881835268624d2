package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"WalletSentinel/internal/calculator"
	"WalletSentinel/internal/model"
)

const unknownMarket = "unknown"

// MarketVolume is one market's traded volume and realized PnL.
type MarketVolume struct {
	ConditionID string
	Title       string
	Volume      float64
	PnL         float64
}

// Market summarizes which markets and categories a wallet trades.
type Market struct {
	TotalPositions        int
	UniqueMarkets         int
	UniqueTitles          int
	CategoryCounts        map[Category]int
	CategoryPnL           map[Category]float64
	CategoryVolume        map[Category]float64
	DominantCategory      Category
	CategoryConcentration float64
	HerfindahlIndex       float64
	TopMarkets            []MarketVolume
	YesPct                float64
	NoPct                 float64
	Signals               []string
}

// AnalyzeMarkets categorizes every position and measures market concentration.
func AnalyzeMarkets(positions []model.Position) *Market {
	r := &Market{
		TotalPositions: len(positions),
		CategoryCounts: map[Category]int{},
		CategoryPnL:    map[Category]float64{},
		CategoryVolume: map[Category]float64{},
	}
	if len(positions) < minSamples {
		return r
	}

	cids := map[string]bool{}
	titles := map[string]bool{}
	for _, p := range positions {
		if p.ConditionID != "" {
			cids[p.ConditionID] = true
		}
		if p.Title != "" {
			titles[p.Title] = true
		}
		cat := Categorize(p.Title)
		r.CategoryCounts[cat]++
		r.CategoryPnL[cat] += p.PnL
		r.CategoryVolume[cat] += p.TotalBought
	}
	r.UniqueMarkets = len(cids)
	r.UniqueTitles = len(titles)

	best := -1
	for _, cat := range defaultCategorizer.Order() {
		if c := r.CategoryCounts[cat]; c > best {
			best = c
			r.DominantCategory = cat
		}
	}
	r.CategoryConcentration = calculator.Fraction(best, len(positions))

	markets := map[string]*MarketVolume{}
	var order []string
	for _, p := range positions {
		cid := p.ConditionID
		if cid == "" {
			cid = unknownMarket
		}
		m, ok := markets[cid]
		if !ok {
			m = &MarketVolume{ConditionID: cid}
			markets[cid] = m
			order = append(order, cid)
		}
		m.Volume += p.TotalBought
		m.PnL += p.PnL
		m.Title = p.Title
	}
	var total float64
	for _, m := range markets {
		total += m.Volume
	}
	if total <= 0 {
		total = 1
	}
	vols := make([]MarketVolume, 0, len(order))
	for _, cid := range order {
		share := markets[cid].Volume / total
		r.HerfindahlIndex += share * share
		vols = append(vols, *markets[cid])
	}
	r.HerfindahlIndex = calculator.Clamp01(r.HerfindahlIndex)
	sort.SliceStable(vols, func(i, j int) bool { return vols[i].Volume > vols[j].Volume })
	if len(vols) > 10 {
		vols = vols[:10]
	}
	r.TopMarkets = vols

	var yes, no int
	for _, p := range positions {
		switch p.Side() {
		case model.SideYes:
			yes++
		case model.SideNo:
			no++
		}
	}
	outcomes := yes + no
	if outcomes == 0 {
		outcomes = 1
	}
	r.YesPct = calculator.Fraction(yes, outcomes)
	r.NoPct = calculator.Fraction(no, outcomes)

	switch {
	case r.CategoryConcentration > 0.8:
		r.Signals = append(r.Signals, fmt.Sprintf("SPECIALIST: %s in %s", pct(r.CategoryConcentration, 0), r.DominantCategory))
	case len(r.CategoryCounts) >= 4 && r.CategoryConcentration < 0.5:
		r.Signals = append(r.Signals, fmt.Sprintf("DIVERSIFIED: trades across %d categories", len(r.CategoryCounts)))
	}
	switch {
	case r.HerfindahlIndex > 0.1:
		r.Signals = append(r.Signals, fmt.Sprintf("MARKET_CONCENTRATED: HHI=%.3f, concentrated in few markets", r.HerfindahlIndex))
	case r.HerfindahlIndex < 0.01:
		r.Signals = append(r.Signals, "HIGHLY_DIVERSIFIED: very spread across many markets")
	}
	switch {
	case r.NoPct > 0.7:
		r.Signals = append(r.Signals, fmt.Sprintf("NO_BIAS: %s positions are NO, contrarian tendency", pct(r.NoPct, 0)))
	case r.YesPct > 0.7:
		r.Signals = append(r.Signals, fmt.Sprintf("YES_BIAS: %s positions are YES", pct(r.YesPct, 0)))
	}
	if r.UniqueMarkets > 0 {
		perMarket := float64(len(positions)) / float64(r.UniqueMarkets)
		if perMarket > 3 {
			r.Signals = append(r.Signals, fmt.Sprintf("REPEAT_MARKETS: avg %.1f positions per market, re-enters markets", perMarket))
		}
	}
	return r
}

// CategoryShare is the fraction of positions that fall in cat.
func (r *Market) CategoryShare(cat Category) float64 {
	if r == nil {
		return 0
	}
	return calculator.Fraction(r.CategoryCounts[cat], r.TotalPositions)
}

func (r *Market) Name() string { return NameMarket }

func (r *Market) SignalList() []string { return r.Signals }

// categoriesByCount orders categories by count descending, then table order.
func (r *Market) categoriesByCount() []Category {
	var cats []Category
	for _, c := range defaultCategorizer.Order() {
		if r.CategoryCounts[c] > 0 {
			cats = append(cats, c)
		}
	}
	sort.SliceStable(cats, func(i, j int) bool { return r.CategoryCounts[cats[i]] > r.CategoryCounts[cats[j]] })
	return cats
}

func (r *Market) Text() string {
	var b strings.Builder
	b.WriteString("=== MARKET ANALYSIS ===")
	b.WriteString(fmt.Sprintf("\nPositions: %d across %d markets", r.TotalPositions, r.UniqueMarkets))

	cats := r.categoriesByCount()
	counts := make([]string, 0, len(cats))
	for _, c := range cats {
		counts = append(counts, fmt.Sprintf("%s=%d", c, r.CategoryCounts[c]))
	}
	b.WriteString("\nCategories: " + strings.Join(counts, ", "))
	b.WriteString(fmt.Sprintf("\nDominant: %s (%s)", r.DominantCategory, pct(r.CategoryConcentration, 0)))
	b.WriteString(fmt.Sprintf("\nHerfindahl index: %.3f (0=diverse, 1=concentrated)", r.HerfindahlIndex))
	b.WriteString(fmt.Sprintf("\nOutcome bias: Yes=%s, No=%s", pct(r.YesPct, 0), pct(r.NoPct, 0)))

	if len(cats) > 0 {
		byPnL := append([]Category(nil), cats...)
		sort.SliceStable(byPnL, func(i, j int) bool { return r.CategoryPnL[byPnL[i]] > r.CategoryPnL[byPnL[j]] })
		pnls := make([]string, 0, len(byPnL))
		for _, c := range byPnL {
			pnls = append(pnls, fmt.Sprintf("%s=%s", c, usd(r.CategoryPnL[c])))
		}
		b.WriteString("\nPnL by category: " + strings.Join(pnls, ", "))
	}
	if len(r.TopMarkets) > 0 {
		b.WriteString("\nTop 5 markets by volume:")
		for i, m := range r.TopMarkets {
			if i == 5 {
				break
			}
			b.WriteString(fmt.Sprintf("\n  %s (PnL: %s) %s", usd(m.Volume), usdSigned(m.PnL), truncateRunes(m.Title, 60)))
		}
	}
	writeSignals(&b, r.Signals)
	return b.String()
}
