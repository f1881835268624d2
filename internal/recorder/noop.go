package recorder

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordThesis(_ *ThesisRecord) error         { return nil }
func (n *NoopRecorder) RecordEvalScore(_ *EvalScoreRecord) error   { return nil }
func (n *NoopRecorder) RecordEvalReport(_ *EvalReportRecord) error { return nil }
func (n *NoopRecorder) PreviousMeans(_ int) ([]float64, error)     { return nil, nil }
func (n *NoopRecorder) Close() error                               { return nil }
