package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"WalletSentinel/internal/model"
)

// Analyzer names, also used as metric labels and report keys.
const (
	NameTiming      = "timing_analysis"
	NameSizing      = "sizing_analysis"
	NameMarket      = "market_analysis"
	NameFlow        = "flow_analysis"
	NamePattern     = "pattern_analysis"
	NameCorrelation = "correlation_analysis"
)

// minSamples is the shortest input an analyzer draws statistics from. Shorter
// input yields a zero-valued result that keeps only its position count.
const minSamples = 2

// Result is the common view over every analyzer output.
type Result interface {
	Name() string
	SignalList() []string
	Text() string
}

// Entry binds an analyzer name to its run function and the report slot it fills.
type Entry struct {
	Name string
	Run  func([]model.Position, *Report)
}

// Registry is the fixed set of analyzers, in report order.
var Registry = []Entry{
	{Name: NameTiming, Run: func(p []model.Position, r *Report) { r.Timing = AnalyzeTiming(p) }},
	{Name: NameSizing, Run: func(p []model.Position, r *Report) { r.Sizing = AnalyzeSizing(p) }},
	{Name: NameMarket, Run: func(p []model.Position, r *Report) { r.Market = AnalyzeMarkets(p) }},
	{Name: NameFlow, Run: func(p []model.Position, r *Report) { r.Flow = AnalyzeFlow(p) }},
	{Name: NamePattern, Run: func(p []model.Position, r *Report) { r.Pattern = AnalyzePattern(p) }},
	{Name: NameCorrelation, Run: func(p []model.Position, r *Report) { r.Correlation = AnalyzeCorrelation(p) }},
}

// Report joins the outputs of every registered analyzer.
type Report struct {
	Timing      *Timing
	Sizing      *Sizing
	Market      *Market
	Flow        *Flow
	Pattern     *Pattern
	Correlation *Correlation
}

// Results returns the analyzer outputs in registry order, skipping unset slots.
func (r *Report) Results() []Result {
	var out []Result
	for _, res := range []Result{r.Timing, r.Sizing, r.Market, r.Flow, r.Pattern, r.Correlation} {
		if res != nil && !isNilResult(res) {
			out = append(out, res)
		}
	}
	return out
}

func isNilResult(res Result) bool {
	switch v := res.(type) {
	case *Timing:
		return v == nil
	case *Sizing:
		return v == nil
	case *Market:
		return v == nil
	case *Flow:
		return v == nil
	case *Pattern:
		return v == nil
	case *Correlation:
		return v == nil
	}
	return false
}

// Signals flattens analyzer signals in registry order.
func (r *Report) Signals() []string {
	var out []string
	for _, res := range r.Results() {
		out = append(out, res.SignalList()...)
	}
	return out
}

// Text joins every analyzer rendering with blank lines.
func (r *Report) Text() string {
	results := r.Results()
	parts := make([]string, 0, len(results))
	for _, res := range results {
		parts = append(parts, res.Text())
	}
	return strings.Join(parts, "\n\n")
}

// RunAll runs every registry entry concurrently over the same positions.
// A panicking analyzer fails the whole run.
func RunAll(ctx context.Context, positions []model.Position) (*Report, error) {
	return Run(ctx, Registry, positions)
}

// Run executes the given entries concurrently. Each entry writes only its own slot.
func Run(ctx context.Context, entries []Entry, positions []model.Position) (*Report, error) {
	slots := make([]Report, len(entries))
	g, ctx := errgroup.WithContext(ctx)
	for i, e := range entries {
		g.Go(func() (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = errors.Errorf("analyzer %s panicked: %v", e.Name, rec)
				}
			}()
			if err := ctx.Err(); err != nil {
				return errors.Wrapf(err, "analyzer %s", e.Name)
			}
			e.Run(positions, &slots[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{}
	for _, s := range slots {
		report.merge(s)
	}
	return report, nil
}

func (r *Report) merge(s Report) {
	if s.Timing != nil {
		r.Timing = s.Timing
	}
	if s.Sizing != nil {
		r.Sizing = s.Sizing
	}
	if s.Market != nil {
		r.Market = s.Market
	}
	if s.Flow != nil {
		r.Flow = s.Flow
	}
	if s.Pattern != nil {
		r.Pattern = s.Pattern
	}
	if s.Correlation != nil {
		r.Correlation = s.Correlation
	}
}

// Summary is a one-line digest used in logs.
func (r *Report) Summary() string {
	return fmt.Sprintf("analyzers=%d signals=%d", len(r.Results()), len(r.Signals()))
}
