package evaluator

import (
	"fmt"
	"strings"
	"time"
)

// Report aggregates the scores of one evaluation run.
type Report struct {
	RunID      string      `json:"run_id"`
	Scores     []Score     `json:"scores"`
	CreatedAt  time.Time   `json:"created_at"`
	Regression *Regression `json:"regression,omitempty"`
}

// MeanComposite is the average composite score, 0 for an empty report.
func (r *Report) MeanComposite() float64 {
	if len(r.Scores) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range r.Scores {
		sum += s.Composite()
	}
	return sum / float64(len(r.Scores))
}

// StrategyAccuracy is the fraction of exactly correct primaries.
func (r *Report) StrategyAccuracy() float64 {
	if len(r.Scores) == 0 {
		return 0
	}
	n := 0
	for _, s := range r.Scores {
		if s.StrategyCorrect {
			n++
		}
	}
	return float64(n) / float64(len(r.Scores))
}

// MeanRecall is the average evidence recall.
func (r *Report) MeanRecall() float64 {
	if len(r.Scores) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range r.Scores {
		sum += s.EvidenceRecall
	}
	return sum / float64(len(r.Scores))
}

// Summary renders a short multi-line digest.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Eval report %s\n", r.RunID)
	fmt.Fprintf(&b, "  Wallets evaluated: %d\n", len(r.Scores))
	fmt.Fprintf(&b, "  Mean composite score: %.3f\n", r.MeanComposite())
	fmt.Fprintf(&b, "  Strategy accuracy: %.1f%%\n", r.StrategyAccuracy()*100)
	fmt.Fprintf(&b, "  Mean evidence recall: %.1f%%", r.MeanRecall()*100)
	if r.Regression != nil {
		fmt.Fprintf(&b, "\n  REGRESSION: %.3f -> %.3f (%+.3f)", r.Regression.PreviousBest, r.Regression.Current, r.Regression.Delta)
	}
	return b.String()
}

// Regression describes a drop of the mean composite below the previous best.
type Regression struct {
	PreviousBest float64 `json:"previous_best"`
	Current      float64 `json:"current"`
	Delta        float64 `json:"delta"`
}

// DetectRegression compares current against the best of previous. It returns
// nil when there is no history or the drop is within threshold.
func DetectRegression(current float64, previous []float64, threshold float64) *Regression {
	if len(previous) == 0 {
		return nil
	}
	best := previous[0]
	for _, p := range previous[1:] {
		if p > best {
			best = p
		}
	}
	if current < best-threshold {
		return &Regression{PreviousBest: best, Current: current, Delta: current - best}
	}
	return nil
}
