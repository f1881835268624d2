package evaluator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"WalletSentinel/internal/metrics"
	"WalletSentinel/internal/model"
	"WalletSentinel/internal/recorder"
)

const (
	defaultThreshold   = 0.05
	defaultConcurrency = 2
	historyDepth       = 20
)

// AnalyzeFunc produces a thesis for a wallet.
type AnalyzeFunc func(ctx context.Context, wallet string) (*model.Thesis, error)

// Evaluator scores theses against ground truth and tracks regressions.
type Evaluator struct {
	truth     GroundTruthSet
	analyze   AnalyzeFunc
	recorder  recorder.Recorder
	metrics   *metrics.Registry
	logger    *zap.Logger
	Threshold float64
}

// New creates an evaluator. rec and m may be nil.
func New(truth GroundTruthSet, analyze AnalyzeFunc, rec recorder.Recorder, m *metrics.Registry, logger *zap.Logger) *Evaluator {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		truth:     truth,
		analyze:   analyze,
		recorder:  rec,
		metrics:   m,
		logger:    logger,
		Threshold: defaultThreshold,
	}
}

// Score grades th against ground truth when the wallet is labeled, else heuristically.
func (e *Evaluator) Score(th *model.Thesis) Score {
	gt, err := e.truth.Get(th.Wallet)
	if errors.Is(err, ErrNotFound) {
		return HeuristicScore(th)
	}
	return ScoreThesis(th, gt)
}

// Run analyzes every labeled wallet, scores the results, records them and
// checks the mean composite against previous runs. A failed analysis keeps an
// empty score carrying the error.
func (e *Evaluator) Run(ctx context.Context) (*Report, error) {
	wallets := e.truth.Wallets()
	if len(wallets) == 0 {
		return nil, errors.New("no ground truth wallets labeled")
	}

	report := &Report{RunID: uuid.NewString(), Scores: make([]Score, len(wallets)), CreatedAt: time.Now().UTC()}
	log := e.logger.With(zap.String("eval_run", report.RunID))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultConcurrency)
	for i, w := range wallets {
		g.Go(func() error {
			th, err := e.analyze(gctx, w)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Warn("analysis failed", zap.String("wallet", w), zap.Error(err))
				report.Scores[i] = Score{Wallet: w, Actual: e.truth[w].Primary, Err: err.Error()}
				return nil
			}
			report.Scores[i] = e.Score(th)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "eval run")
	}

	previous, err := e.recorder.PreviousMeans(historyDepth)
	if err != nil {
		log.Warn("previous eval reports unavailable", zap.Error(err))
	}
	mean := report.MeanComposite()
	report.Regression = DetectRegression(mean, previous, e.Threshold)

	for _, s := range report.Scores {
		if err := e.recorder.RecordEvalScore(toRecord(report.RunID, s)); err != nil {
			log.Warn("eval score not recorded", zap.String("wallet", s.Wallet), zap.Error(err))
		}
	}
	if err := e.recorder.RecordEvalReport(&recorder.EvalReportRecord{
		RunID:            report.RunID,
		Count:            len(report.Scores),
		MeanComposite:    mean,
		StrategyAccuracy: report.StrategyAccuracy(),
		MeanRecall:       report.MeanRecall(),
		Regression:       report.Regression != nil,
	}); err != nil {
		log.Warn("eval report not recorded", zap.Error(err))
	}
	e.metrics.SetEvalComposite(mean)

	log.Info("eval complete",
		zap.Int("wallets", len(wallets)),
		zap.Float64("mean_composite", mean),
		zap.Float64("strategy_accuracy", report.StrategyAccuracy()),
		zap.Bool("regression", report.Regression != nil))
	return report, nil
}

func toRecord(runID string, s Score) *recorder.EvalScoreRecord {
	return &recorder.EvalScoreRecord{
		RunID:          runID,
		Wallet:         s.Wallet,
		Expected:       s.Actual,
		Actual:         s.Predicted,
		StrategyScore:  s.StrategyScore(),
		EvidenceRecall: s.EvidenceRecall,
		Specificity:    s.Specificity,
		FalseClaims:    s.FalseClaims,
		Calibration:    s.Calibration,
		Composite:      s.Composite(),
		Heuristic:      s.Heuristic,
	}
}
