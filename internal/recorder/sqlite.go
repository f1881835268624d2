package recorder

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists analysis history to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *zap.Logger) (*SQLiteRecorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create db dir")
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}

	// WAL lets dashboards read while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "set WAL mode")
	}

	r := &SQLiteRecorder{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate")
	}

	logger.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS theses (
			id                 INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp          INTEGER NOT NULL,
			run_id             TEXT,
			wallet             TEXT NOT NULL,
			primary_strategy   TEXT NOT NULL,
			secondary          TEXT,
			confidence         REAL,
			candidate          TEXT,
			source             TEXT,
			overrides          TEXT,
			evidence           TEXT,
			reasoning          TEXT,
			signals_to_monitor TEXT,
			risk_assessment    TEXT,
			position_count     INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_theses_wallet ON theses(wallet, timestamp)`,

		`CREATE TABLE IF NOT EXISTS eval_scores (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp       INTEGER NOT NULL,
			run_id          TEXT NOT NULL,
			wallet          TEXT NOT NULL,
			expected        TEXT,
			actual          TEXT,
			strategy_score  REAL,
			evidence_recall REAL,
			specificity     REAL,
			false_claims    INTEGER,
			calibration     REAL,
			composite       REAL,
			heuristic       INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_eval_scores_run ON eval_scores(run_id)`,

		`CREATE TABLE IF NOT EXISTS eval_reports (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp         INTEGER NOT NULL,
			run_id            TEXT NOT NULL,
			count             INTEGER,
			mean_composite    REAL,
			strategy_accuracy REAL,
			mean_recall       REAL,
			regression        INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_eval_reports_ts ON eval_reports(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return errors.Wrapf(err, "exec %q", s[:40])
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordThesis(rec *ThesisRecord) error {
	th := rec.Thesis
	if th == nil {
		return errors.New("nil thesis")
	}
	ts := th.CreatedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	cols := make([]string, 0, 4)
	for _, v := range []any{th.Secondary, rec.Overrides, th.Evidence, th.SignalsToMonitor} {
		b, err := json.Marshal(v)
		if err != nil {
			return errors.Wrap(err, "encode thesis column")
		}
		cols = append(cols, string(b))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO theses
		(timestamp, run_id, wallet, primary_strategy, secondary, confidence,
		 candidate, source, overrides, evidence, reasoning,
		 signals_to_monitor, risk_assessment, position_count)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		ts.Unix(), th.RunID, th.Wallet, string(th.Primary), cols[0], th.Confidence,
		string(rec.Candidate), rec.Source, cols[1], cols[2], th.Reasoning,
		cols[3], th.RiskAssessment, th.PositionCount,
	)
	return errors.Wrap(err, "insert thesis")
}

func (r *SQLiteRecorder) RecordEvalScore(rec *EvalScoreRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO eval_scores
		(timestamp, run_id, wallet, expected, actual, strategy_score, evidence_recall,
		 specificity, false_claims, calibration, composite, heuristic)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), rec.RunID, rec.Wallet, string(rec.Expected), string(rec.Actual),
		rec.StrategyScore, rec.EvidenceRecall, rec.Specificity, rec.FalseClaims,
		rec.Calibration, rec.Composite, rec.Heuristic,
	)
	return errors.Wrap(err, "insert eval score")
}

func (r *SQLiteRecorder) RecordEvalReport(rec *EvalReportRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO eval_reports
		(timestamp, run_id, count, mean_composite, strategy_accuracy, mean_recall, regression)
		VALUES (?,?,?,?,?,?,?)`,
		time.Now().Unix(), rec.RunID, rec.Count, rec.MeanComposite,
		rec.StrategyAccuracy, rec.MeanRecall, rec.Regression,
	)
	return errors.Wrap(err, "insert eval report")
}

func (r *SQLiteRecorder) PreviousMeans(limit int) ([]float64, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.Query(
		`SELECT mean_composite FROM eval_reports ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query eval reports")
	}
	defer rows.Close()

	var means []float64
	for rows.Next() {
		var m float64
		if err := rows.Scan(&m); err != nil {
			return nil, errors.Wrap(err, "scan eval report")
		}
		means = append(means, m)
	}
	return means, errors.Wrap(rows.Err(), "iterate eval reports")
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite recorder")
	return r.db.Close()
}
