package evaluator

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"WalletSentinel/internal/calculator"
	"WalletSentinel/internal/model"
)

// Composite weights.
const (
	WeightStrategy    = 0.30
	WeightEvidence    = 0.25
	WeightSpecificity = 0.20
	WeightFalseClaims = 0.15
	WeightCalibration = 0.10

	falseClaimPenalty = 0.2
)

// Score grades one thesis.
type Score struct {
	Wallet          string         `json:"wallet"`
	Predicted       model.Strategy `json:"predicted_strategy"`
	Actual          model.Strategy `json:"actual_strategy,omitempty"`
	StrategyCorrect bool           `json:"strategy_correct"`
	StrategyPartial bool           `json:"strategy_partial"`
	EvidenceRecall  float64        `json:"evidence_recall"`
	FalseClaims     int            `json:"false_claims"`
	Specificity     float64        `json:"specificity"`
	Calibration     float64        `json:"confidence_calibration"`
	Heuristic       bool           `json:"heuristic"`
	Err             string         `json:"error,omitempty"`
}

// StrategyScore is 1 for a correct primary, 0.5 for a partial match, else 0.
func (s Score) StrategyScore() float64 {
	switch {
	case s.StrategyCorrect:
		return 1
	case s.StrategyPartial:
		return 0.5
	default:
		return 0
	}
}

// Composite is the weighted total in [0,1].
func (s Score) Composite() float64 {
	falseClaims := math.Max(0, 1-falseClaimPenalty*float64(s.FalseClaims))
	return WeightStrategy*s.StrategyScore() +
		WeightEvidence*s.EvidenceRecall +
		WeightSpecificity*s.Specificity +
		WeightFalseClaims*falseClaims +
		WeightCalibration*s.Calibration
}

// categoryKeywords maps ground-truth evidence categories to words that count
// as finding that kind of evidence.
var categoryKeywords = map[string][]string{
	"timing":           {"hour", "weekday", "weekend", "timing", "burst", "before resolution"},
	"sizing":           {"position size", "avg position", "sizing", "whale", "concentrat"},
	"market_selection": {"category", "sports", "politics", "crypto", "markets"},
	"correlation":      {"hedge", "correlat", "related", "cluster", "opposing"},
	"performance":      {"win rate", "profit factor", "drawdown", "streak", "pnl"},
}

var wordRe = regexp.MustCompile(`[a-z0-9$%]+`)

var stopWords = map[string]bool{
	"about": true, "after": true, "before": true, "their": true, "there": true,
	"these": true, "which": true, "while": true, "would": true, "wallet": true,
	"trades": true, "trader": true, "should": true, "shows": true,
}

// significantWords returns the words of s worth matching on.
func significantWords(s string) []string {
	var out []string
	for _, w := range wordRe.FindAllString(strings.ToLower(s), -1) {
		if len(w) >= 5 && !stopWords[w] {
			out = append(out, w)
		}
	}
	return out
}

// evidenceFound reports whether haystack covers the point: any keyword of
// its category, or at least half of its significant words.
func evidenceFound(ep EvidencePoint, haystack string) bool {
	for _, kw := range categoryKeywords[strings.ToLower(ep.Category)] {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	words := significantWords(ep.Description)
	if len(words) == 0 {
		return false
	}
	hits := 0
	for _, w := range words {
		if strings.Contains(haystack, w) {
			hits++
		}
	}
	return hits*2 >= len(words)
}

// specificity is the fraction of lines that cite a number, dollar amount or percentage.
func specificity(lines []string) float64 {
	concrete := 0
	for _, l := range lines {
		if strings.ContainsAny(l, "$%") || strings.IndexFunc(l, unicode.IsDigit) >= 0 {
			concrete++
		}
	}
	return calculator.Fraction(concrete, len(lines))
}

func contains(list []model.Strategy, s model.Strategy) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ScoreThesis grades th against its ground truth label. A secondary label
// that the ground truth does not list counts as a false claim.
func ScoreThesis(th *model.Thesis, gt *GroundTruth) Score {
	s := Score{
		Wallet:      th.Wallet,
		Predicted:   th.Primary,
		Actual:      gt.Primary,
		Specificity: specificity(th.Evidence),
	}
	s.StrategyCorrect = th.Primary == gt.Primary
	s.StrategyPartial = !s.StrategyCorrect &&
		(contains(th.Secondary, gt.Primary) || contains(gt.Secondary, th.Primary))

	haystack := strings.ToLower(strings.Join(th.Evidence, "\n"))
	found := 0
	for _, ep := range gt.EvidencePoints {
		if evidenceFound(ep, haystack) {
			found++
		}
	}
	if len(gt.EvidencePoints) > 0 {
		s.EvidenceRecall = calculator.Fraction(found, len(gt.EvidencePoints))
	}

	for _, sec := range th.Secondary {
		if sec != gt.Primary && !contains(gt.Secondary, sec) {
			s.FalseClaims++
		}
	}

	s.Calibration = 1 - math.Abs(calculator.Clamp01(th.Confidence)-s.StrategyScore())
	return s
}

// HeuristicScore grades a thesis without ground truth. Completeness of the
// reasoning, monitoring signals and risk note stands in for evidence recall.
func HeuristicScore(th *model.Thesis) Score {
	s := Score{
		Wallet:      th.Wallet,
		Predicted:   th.Primary,
		Specificity: specificity(th.Evidence),
		Calibration: 0.5,
		Heuristic:   true,
	}
	if len(th.Reasoning) > 50 {
		s.EvidenceRecall += 0.4
	}
	if len(th.SignalsToMonitor) > 0 {
		s.EvidenceRecall += 0.3
	}
	if len(th.RiskAssessment) > 10 {
		s.EvidenceRecall += 0.3
	}
	s.EvidenceRecall = calculator.Clamp01(s.EvidenceRecall)
	return s
}
