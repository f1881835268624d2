package strategy

import (
	"fmt"

	"WalletSentinel/internal/model"
)

// OverrideConfidence is the confidence floor once any override fires.
const OverrideConfidence = 0.75

// Decision is the outcome of running the override rules over a candidate label.
type Decision struct {
	Label     model.Strategy
	Secondary []model.Strategy
	Evidence  []string
	// Fired lists the rules that moved the label, in firing order.
	Fired []string
	// Confirmed is the rule that matched the final label without moving it, if any.
	Confirmed   string
	CycleHalted bool
}

// Changed reports whether any rule moved the label.
func (d Decision) Changed() bool { return len(d.Fired) > 0 }

// Confidence applies the override floor to a classifier confidence.
func (d Decision) Confidence(c float64) float64 {
	if d.Changed() && c < OverrideConfidence {
		return OverrideConfidence
	}
	return c
}

// Engine applies an ordered rule table until the label settles.
type Engine struct {
	rules []Rule
}

// NewEngine builds an engine over rules. A nil table uses Rules.
func NewEngine(rules []Rule) *Engine {
	if rules == nil {
		rules = Rules
	}
	return &Engine{rules: rules}
}

// RuleNames returns the rule names in evaluation order.
func (e *Engine) RuleNames() []string {
	names := make([]string, len(e.rules))
	for i, r := range e.rules {
		names[i] = r.Name
	}
	return names
}

// match returns the first rule admitting label whose condition holds.
func (e *Engine) match(label model.Strategy, s *Signals) (Rule, bool) {
	for _, r := range e.rules {
		if r.admits(label) && r.When(s) {
			return r, true
		}
	}
	return Rule{}, false
}

// Apply runs passes over the table until a pass leaves the label unchanged.
// Each moved label is demoted into the secondary set.
func (e *Engine) Apply(candidate model.Strategy, secondary []model.Strategy, s *Signals) Decision {
	d := Decision{Label: candidate}
	d.Secondary = demote(nil, candidate, secondary...)
	if s == nil {
		return d
	}

	seen := map[model.Strategy]bool{candidate: true}
	for {
		r, ok := e.match(d.Label, s)
		if !ok {
			return d
		}
		next := r.To(s)
		if next == d.Label {
			d.Confirmed = r.Name
			return d
		}
		if seen[next] {
			d.CycleHalted = true
			return d
		}
		seen[next] = true

		d.Evidence = append(d.Evidence, fmt.Sprintf("OVERRIDE %s→%s [%s]: %s", d.Label, next, r.Name, r.Reason(s)))
		d.Fired = append(d.Fired, r.Name)
		prev := d.Label
		d.Label = next
		d.Secondary = demote(d.Secondary, next, prev)
	}
}

// demote appends labels to list, skipping duplicates, invalid labels and primary.
func demote(list []model.Strategy, primary model.Strategy, labels ...model.Strategy) []model.Strategy {
	out := make([]model.Strategy, 0, len(list)+len(labels))
	for _, l := range list {
		if l != primary {
			out = append(out, l)
		}
	}
	for _, l := range labels {
		if l == primary || !l.Valid() || l == model.StrategyUnknown {
			continue
		}
		dup := false
		for _, o := range out {
			if o == l {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, l)
		}
	}
	return out
}
