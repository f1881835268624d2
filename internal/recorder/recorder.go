package recorder

import "WalletSentinel/internal/model"

// ThesisRecord holds a produced thesis and how the engine reached it.
type ThesisRecord struct {
	Thesis    *model.Thesis
	Candidate model.Strategy // label proposed before overrides
	Source    string         // classifier name
	Overrides []string       // rule names in firing order
}

// EvalScoreRecord is one scored thesis from an evaluation run.
type EvalScoreRecord struct {
	RunID          string
	Wallet         string
	Expected       model.Strategy // empty for heuristic scores
	Actual         model.Strategy
	StrategyScore  float64
	EvidenceRecall float64
	Specificity    float64
	FalseClaims    int
	Calibration    float64
	Composite      float64
	Heuristic      bool
}

// EvalReportRecord is the aggregate of one evaluation run.
type EvalReportRecord struct {
	RunID            string
	Count            int
	MeanComposite    float64
	StrategyAccuracy float64
	MeanRecall       float64
	Regression       bool
}

// Recorder persists analysis history.
type Recorder interface {
	RecordThesis(rec *ThesisRecord) error
	RecordEvalScore(rec *EvalScoreRecord) error
	RecordEvalReport(rec *EvalReportRecord) error
	// PreviousMeans returns the mean composite of past reports, newest first.
	PreviousMeans(limit int) ([]float64, error)
	Close() error
}
