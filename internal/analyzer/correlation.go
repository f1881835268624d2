package analyzer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"WalletSentinel/internal/calculator"
	"WalletSentinel/internal/model"
)

const (
	clusterWindowSeconds = 3600
	clusterMinPositions  = 3
	holdSeconds          = 7 * secondsPerDay
	directionMinTotal    = 20
	directionMinBias     = 0.85
)

var (
	titleDollarRe = regexp.MustCompile(`\$[\d,]+k?`)
	titleYearRe   = regexp.MustCompile(`\d{4}`)
	titleDateRe   = regexp.MustCompile(`(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)\w*\s+\d+`)
)

// SideCount tallies YES and NO positions.
type SideCount struct {
	Yes int
	No  int
}

// Total is Yes+No.
func (s SideCount) Total() int { return s.Yes + s.No }

// Correlation covers hedging, clustering and portfolio breadth across markets.
type Correlation struct {
	TotalPositions    int
	UniqueMarkets     int
	BothSideMarkets   int
	HedgeRatio        float64
	TemporalClusters  int
	AvgClusterSize    float64
	MaxClusterSize    int
	PeakOpenMarkets   int
	AvgOpenMarkets    float64
	RelatedGroups     int
	RelatedPositions  int
	RelatedPct        float64
	OpposingPairs     int
	CategoryDirection map[Category]SideCount
	Signals           []string
}

// AnalyzeCorrelation groups positions by market and by normalized title root.
func AnalyzeCorrelation(positions []model.Position) *Correlation {
	r := &Correlation{
		TotalPositions:    len(positions),
		CategoryDirection: map[Category]SideCount{},
	}
	if len(positions) < minSamples {
		return r
	}

	sides := map[string]map[string]bool{}
	for _, p := range positions {
		cid := marketKey(p)
		if sides[cid] == nil {
			sides[cid] = map[string]bool{}
		}
		sides[cid][p.Side()] = true
	}
	r.UniqueMarkets = len(sides)
	for _, s := range sides {
		if s[model.SideYes] && s[model.SideNo] {
			r.BothSideMarkets++
		}
	}
	r.HedgeRatio = calculator.Fraction(r.BothSideMarkets, r.UniqueMarkets)

	var timed []model.Position
	for _, p := range positions {
		if p.Timestamp > 0 {
			timed = append(timed, p)
		}
	}
	sort.SliceStable(timed, func(i, j int) bool { return timed[i].Timestamp < timed[j].Timestamp })

	r.computeClusters(timed)
	r.computeRelated(positions)
	r.computeOpenMarkets(timed)

	for _, p := range positions {
		side := p.Side()
		if side != model.SideYes && side != model.SideNo {
			continue
		}
		cat := directionCategorizer.Categorize(p.Title)
		sc := r.CategoryDirection[cat]
		if side == model.SideYes {
			sc.Yes++
		} else {
			sc.No++
		}
		r.CategoryDirection[cat] = sc
	}

	switch {
	case r.HedgeRatio > 0.15:
		r.Signals = append(r.Signals, fmt.Sprintf("HEDGER: %s of markets have both YES and NO positions, active hedging", pct(r.HedgeRatio, 0)))
	case r.HedgeRatio > 0.05:
		r.Signals = append(r.Signals, fmt.Sprintf("PARTIAL_HEDGE: %s of markets have both sides", pct(r.HedgeRatio, 0)))
	}
	if r.TemporalClusters > 10 {
		r.Signals = append(r.Signals, fmt.Sprintf("BATCH_TRADER: %d temporal clusters, enters multiple markets simultaneously", r.TemporalClusters))
	}
	if r.RelatedPct > 0.3 {
		r.Signals = append(r.Signals, fmt.Sprintf("RELATED_MARKET_FOCUS: %s of positions in related market variants", pct(r.RelatedPct, 0)))
	}
	switch {
	case r.OpposingPairs > 5:
		r.Signals = append(r.Signals, fmt.Sprintf("CROSS_MARKET_HEDGE: %d opposing pairs across related markets", r.OpposingPairs))
	case r.OpposingPairs > 0:
		r.Signals = append(r.Signals, fmt.Sprintf("SOME_HEDGING: %d opposing pair(s) in related markets", r.OpposingPairs))
	}
	if r.PeakOpenMarkets > 50 {
		r.Signals = append(r.Signals, fmt.Sprintf("PORTFOLIO_BUILDER: peak %d concurrent markets, active portfolio management", r.PeakOpenMarkets))
	}
	for _, cat := range directionCategorizer.Order() {
		sc := r.CategoryDirection[cat]
		if sc.Total() < directionMinTotal {
			continue
		}
		side, top := "YES", sc.Yes
		if sc.No > sc.Yes {
			side, top = "NO", sc.No
		}
		if bias := calculator.Fraction(top, sc.Total()); bias > directionMinBias {
			r.Signals = append(r.Signals, fmt.Sprintf("DIRECTIONAL_%s: %s %s-side in %s, strong directional conviction",
				strings.ToUpper(string(cat)), pct(bias, 0), side, cat))
		}
	}
	return r
}

func marketKey(p model.Position) string {
	if p.ConditionID == "" {
		return unknownMarket
	}
	return p.ConditionID
}

// computeClusters finds windows anchored at their first timestamp that hold
// at least three positions across at least two markets.
func (r *Correlation) computeClusters(timed []model.Position) {
	var sizes []float64
	var cluster []model.Position
	closeCluster := func() {
		if len(cluster) < clusterMinPositions {
			return
		}
		markets := map[string]bool{}
		for _, p := range cluster {
			markets[p.ConditionID] = true
		}
		if len(markets) >= 2 {
			sizes = append(sizes, float64(len(cluster)))
			r.MaxClusterSize = max(r.MaxClusterSize, len(cluster))
		}
	}
	for _, p := range timed {
		if len(cluster) > 0 && p.Timestamp-cluster[0].Timestamp > clusterWindowSeconds {
			closeCluster()
			cluster = nil
		}
		cluster = append(cluster, p)
	}
	closeCluster()

	r.TemporalClusters = len(sizes)
	r.AvgClusterSize = calculator.MeanOrZero(sizes)
}

// NormalizeTitle reduces a market title to a root shared by its variants.
func NormalizeTitle(title string) string {
	t := strings.TrimSpace(strings.ToLower(title))
	t = titleDollarRe.ReplaceAllString(t, "$$X")
	t = titleYearRe.ReplaceAllString(t, "YYYY")
	t = titleDateRe.ReplaceAllString(t, "DATE")
	return truncateRunes(t, 60)
}

func (r *Correlation) computeRelated(positions []model.Position) {
	groups := map[string][]model.Position{}
	var roots []string
	for _, p := range positions {
		root := NormalizeTitle(p.Title)
		if _, ok := groups[root]; !ok {
			roots = append(roots, root)
		}
		groups[root] = append(groups[root], p)
	}

	for _, root := range roots {
		members := groups[root]
		bySide := map[string]map[string]bool{}
		var cids []string
		for _, p := range members {
			if bySide[p.ConditionID] == nil {
				bySide[p.ConditionID] = map[string]bool{}
				cids = append(cids, p.ConditionID)
			}
			bySide[p.ConditionID][p.Side()] = true
		}
		if len(cids) < 2 {
			continue
		}
		r.RelatedGroups++
		r.RelatedPositions += len(members)
		for i := range cids {
			for j := i + 1; j < len(cids); j++ {
				a, b := bySide[cids[i]], bySide[cids[j]]
				if (a[model.SideYes] && b[model.SideNo]) || (a[model.SideNo] && b[model.SideYes]) {
					r.OpposingPairs++
				}
			}
		}
	}
	r.RelatedPct = calculator.Fraction(r.RelatedPositions, len(positions))
}

// computeOpenMarkets sweeps open/close events assuming a fixed hold period.
// A market stays open while any of its positions is open.
func (r *Correlation) computeOpenMarkets(timed []model.Position) {
	if len(timed) == 0 {
		return
	}
	type event struct {
		ts    int64
		delta int
		cid   string
	}
	events := make([]event, 0, 2*len(timed))
	for _, p := range timed {
		events = append(events,
			event{p.Timestamp, 1, p.ConditionID},
			event{p.Timestamp + holdSeconds, -1, p.ConditionID})
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].ts != events[j].ts {
			return events[i].ts < events[j].ts
		}
		return events[i].delta < events[j].delta
	})

	refs := map[string]int{}
	var counts []float64
	for _, e := range events {
		refs[e.cid] += e.delta
		if refs[e.cid] == 0 {
			delete(refs, e.cid)
		}
		r.PeakOpenMarkets = max(r.PeakOpenMarkets, len(refs))
		counts = append(counts, float64(len(refs)))
	}
	r.AvgOpenMarkets = calculator.MeanOrZero(counts)
}

func (r *Correlation) Name() string { return NameCorrelation }

func (r *Correlation) SignalList() []string { return r.Signals }

func (r *Correlation) Text() string {
	var b strings.Builder
	b.WriteString("=== CORRELATION ANALYSIS ===")
	b.WriteString(fmt.Sprintf("\nPositions: %d across %d markets", r.TotalPositions, r.UniqueMarkets))
	b.WriteString(fmt.Sprintf("\nBoth-side markets: %d (%s of markets)", r.BothSideMarkets, pct(r.HedgeRatio, 1)))
	b.WriteString(fmt.Sprintf("\nTemporal clusters (3+ positions/hour): %d", r.TemporalClusters))
	if r.TemporalClusters > 0 {
		b.WriteString(fmt.Sprintf("\n  Avg cluster size: %.1f, max: %d", r.AvgClusterSize, r.MaxClusterSize))
	}
	b.WriteString(fmt.Sprintf("\nPeak concurrent open markets: %d", r.PeakOpenMarkets))
	b.WriteString(fmt.Sprintf("\nAvg concurrent open markets: %.1f", r.AvgOpenMarkets))
	b.WriteString(fmt.Sprintf("\nRelated market groups: %d (%s of positions)", r.RelatedGroups, pct(r.RelatedPct, 0)))
	b.WriteString(fmt.Sprintf("\nOpposing pairs (YES+NO on related markets): %d", r.OpposingPairs))

	cats := make([]Category, 0, len(r.CategoryDirection))
	for _, c := range directionCategorizer.Order() {
		if r.CategoryDirection[c].Total() >= 5 {
			cats = append(cats, c)
		}
	}
	if len(cats) > 0 {
		sort.SliceStable(cats, func(i, j int) bool {
			return r.CategoryDirection[cats[i]].Total() > r.CategoryDirection[cats[j]].Total()
		})
		b.WriteString("\nDirection by category:")
		for _, c := range cats {
			sc := r.CategoryDirection[c]
			b.WriteString(fmt.Sprintf("\n  %s: Yes=%d (%s), No=%d (%s)", c,
				sc.Yes, pct(calculator.Fraction(sc.Yes, sc.Total()), 0),
				sc.No, pct(calculator.Fraction(sc.No, sc.Total()), 0)))
		}
	}
	writeSignals(&b, r.Signals)
	return b.String()
}
