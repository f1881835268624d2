package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"WalletSentinel/internal/analyzer"
	"WalletSentinel/internal/collector"
	"WalletSentinel/internal/metrics"
	"WalletSentinel/internal/model"
	"WalletSentinel/internal/recorder"
	"WalletSentinel/internal/strategy"
)

// ErrNoPositions is returned when a wallet has no position history.
var ErrNoPositions = errors.New("no positions for wallet")

// Step names, used as log fields and metric labels.
const (
	StepCollect  = "collect"
	StepAnalyze  = "analyze"
	StepHints    = "hints"
	StepClassify = "classify"
	StepValidate = "validate"
	StepOverride = "override"
	StepAssemble = "assemble"
	StepRecord   = "record"
)

// Analysis statuses counted on metrics.Registry.Analyses.
const (
	StatusOK          = "ok"
	StatusNoPositions = "no_positions"
	StatusError       = "error"
)

// Result carries every intermediate product of one run.
type Result struct {
	RunID     string
	Data      *model.WalletData
	Report    *analyzer.Report
	Hints     []string
	Candidate strategy.Candidate
	Decision  strategy.Decision
	Thesis    *model.Thesis
}

// Pipeline runs the end-to-end analysis of a single wallet.
type Pipeline struct {
	collector  *collector.Collector
	classifier strategy.Classifier
	engine     *strategy.Engine
	recorder   recorder.Recorder
	metrics    *metrics.Registry
	logger     *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithClassifier(c strategy.Classifier) Option {
	return func(p *Pipeline) { p.classifier = c }
}

func WithEngine(e *strategy.Engine) Option {
	return func(p *Pipeline) { p.engine = e }
}

func WithRecorder(r recorder.Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

func WithMetrics(m *metrics.Registry) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New builds a pipeline over col. Defaults: heuristic classifier, the
// standard override table, no recording, no metrics.
func New(col *collector.Collector, opts ...Option) *Pipeline {
	p := &Pipeline{
		collector:  col,
		classifier: strategy.HeuristicClassifier{},
		engine:     strategy.NewEngine(nil),
		recorder:   recorder.NewNoopRecorder(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Analyze collects, analyzes, classifies and overrides one wallet, then
// records the resulting thesis. Recording failures are logged only.
func (p *Pipeline) Analyze(ctx context.Context, wallet string) (*Result, error) {
	res := &Result{RunID: uuid.NewString()}
	log := p.logger.With(zap.String("run_id", res.RunID), zap.String("wallet", wallet))
	started := time.Now()
	log.Info("analysis started")

	err := p.run(ctx, log, wallet, res)
	switch {
	case errors.Is(err, ErrNoPositions):
		p.metrics.AnalysisDone(StatusNoPositions)
	case err != nil:
		p.metrics.AnalysisDone(StatusError)
	default:
		p.metrics.AnalysisDone(StatusOK)
	}
	if err != nil {
		log.Error("analysis failed", zap.Error(err), zap.Duration("elapsed", time.Since(started)))
		return nil, err
	}

	log.Info("thesis produced",
		zap.String("primary", string(res.Thesis.Primary)),
		zap.Float64("confidence", res.Thesis.Confidence),
		zap.Strings("overrides", res.Decision.Fired),
		zap.Duration("elapsed", time.Since(started)))
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, log *zap.Logger, wallet string, res *Result) error {
	err := p.step(log, StepCollect, func() error {
		data, err := p.collector.Collect(ctx, wallet)
		if err != nil {
			return err
		}
		if len(data.Positions) == 0 {
			return ErrNoPositions
		}
		res.Data = data
		return nil
	})
	if err != nil {
		return err
	}
	positions := res.Data.Positions

	err = p.step(log, StepAnalyze, func() error {
		report, err := analyzer.RunAll(ctx, positions)
		if err != nil {
			return err
		}
		res.Report = report
		log.Debug("analyzers complete", zap.String("summary", report.Summary()))
		return nil
	})
	if err != nil {
		return err
	}
	r := res.Report

	// the in-memory steps stop once the caller has gone away
	err = p.step(log, StepHints, func() error {
		res.Hints = strategy.Hints(r.Sizing, r.Flow, r.Market, len(positions))
		return ctx.Err()
	})
	if err != nil {
		return err
	}

	err = p.step(log, StepClassify, func() error {
		c, err := p.classifier.Classify(ctx, strategy.Input{
			Wallet:    wallet,
			Positions: len(positions),
			Report:    r,
			Hints:     res.Hints,
			Profile:   res.Data.Profile,
		})
		if err != nil {
			return errors.Wrap(err, "classifier")
		}
		res.Candidate = c
		return nil
	})
	if err != nil {
		return err
	}

	err = p.step(log, StepValidate, func() error {
		res.Candidate = validate(res.Candidate)
		return ctx.Err()
	})
	if err != nil {
		return err
	}

	err = p.step(log, StepOverride, func() error {
		var sharpe *float64
		if res.Data.Profile != nil {
			sharpe = res.Data.Profile.SharpeScore
		}
		s := strategy.NewSignals(r.Sizing, r.Flow, r.Market, len(positions), sharpe)
		res.Decision = p.engine.Apply(res.Candidate.Primary, res.Candidate.Secondary, s)
		for _, name := range res.Decision.Fired {
			p.metrics.RuleFired(name)
		}
		if res.Decision.CycleHalted {
			log.Warn("override cycle halted", zap.Strings("fired", res.Decision.Fired))
		}
		return ctx.Err()
	})
	if err != nil {
		return err
	}

	err = p.step(log, StepAssemble, func() error {
		res.Thesis = strategy.Assemble(wallet, res.Candidate, res.Decision, r)
		res.Thesis.RunID = res.RunID
		return ctx.Err()
	})
	if err != nil {
		return err
	}

	if err := p.step(log, StepRecord, func() error {
		return p.recorder.RecordThesis(&recorder.ThesisRecord{
			Thesis:    res.Thesis,
			Candidate: res.Candidate.Primary,
			Source:    res.Candidate.Source,
			Overrides: res.Decision.Fired,
		})
	}); err != nil {
		log.Warn("thesis not recorded", zap.Error(err))
	}
	return nil
}

// step times fn, logs its outcome and records the duration.
func (p *Pipeline) step(log *zap.Logger, name string, fn func() error) error {
	started := time.Now()
	err := fn()
	p.metrics.ObserveStep(name, started, err)

	fields := []zap.Field{zap.String("step", name), zap.Duration("elapsed", time.Since(started))}
	if err != nil {
		log.Debug("step failed", append(fields, zap.Error(err))...)
		return errors.Wrapf(err, "step %s", name)
	}
	log.Debug("step done", fields...)
	return nil
}

// validate normalizes classifier labels to the closed strategy set.
func validate(c strategy.Candidate) strategy.Candidate {
	secondary := make([]string, len(c.Secondary))
	for i, s := range c.Secondary {
		secondary[i] = string(s)
	}
	v := strategy.ParseCandidate(string(c.Primary), secondary, c.Confidence)
	v.Evidence = c.Evidence
	v.Reasoning = c.Reasoning
	v.Source = c.Source
	return v
}
