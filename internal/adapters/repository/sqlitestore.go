package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/umwero/internal/domain/model"
	"github.com/okian/umwero/internal/domain/scoring"
	"github.com/okian/umwero/internal/domain/types"
	"github.com/okian/umwero/pkg/logger"
	"github.com/okian/umwero/pkg/metrics"
)

const memoryDSN = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS attempts (
	seq             INTEGER PRIMARY KEY AUTOINCREMENT,
	attempt_id      TEXT    NOT NULL UNIQUE,
	learner_id      TEXT    NOT NULL,
	template_id     TEXT    NOT NULL,
	character       TEXT    NOT NULL,
	accuracy        REAL    NOT NULL,
	grade           TEXT    NOT NULL,
	passed          INTEGER NOT NULL,
	stroke_count    INTEGER NOT NULL,
	deviation_count INTEGER NOT NULL,
	submitted_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS attempts_learner ON attempts (learner_id, submitted_at);

CREATE TABLE IF NOT EXISTS progress (
	learner_id      TEXT    NOT NULL,
	template_id     TEXT    NOT NULL,
	character       TEXT    NOT NULL,
	attempts        INTEGER NOT NULL,
	best_accuracy   REAL    NOT NULL,
	best_grade      TEXT    NOT NULL,
	mastered        INTEGER NOT NULL,
	last_attempt_at INTEGER NOT NULL,
	PRIMARY KEY (learner_id, template_id)
);`

// attemptRow mirrors the attempts table. Timestamps are unix milliseconds.
type attemptRow struct {
	AttemptID      string  `db:"attempt_id"`
	LearnerID      string  `db:"learner_id"`
	TemplateID     string  `db:"template_id"`
	Character      string  `db:"character"`
	Accuracy       float64 `db:"accuracy"`
	Grade          string  `db:"grade"`
	Passed         bool    `db:"passed"`
	StrokeCount    int     `db:"stroke_count"`
	DeviationCount int     `db:"deviation_count"`
	SubmittedAt    int64   `db:"submitted_at"`
}

type progressRow struct {
	LearnerID     string  `db:"learner_id"`
	TemplateID    string  `db:"template_id"`
	Character     string  `db:"character"`
	Attempts      int     `db:"attempts"`
	BestAccuracy  float64 `db:"best_accuracy"`
	BestGrade     string  `db:"best_grade"`
	Mastered      bool    `db:"mastered"`
	LastAttemptAt int64   `db:"last_attempt_at"`
}

type leaderRow struct {
	LearnerID string  `db:"learner_id"`
	Mastered  int     `db:"mastered"`
	TotalBest float64 `db:"total_best"`
	Templates int     `db:"templates"`
}

// SQLiteStore persists attempts in SQLite through sqlx. Progress rows are
// maintained on write; the leaderboard is aggregated in SQL.
type SQLiteStore struct {
	db     *sqlx.DB
	logger logger.Logger
}

// NewSQLiteStore opens (creating if needed) the database at path and
// ensures the schema exists. An empty path or ":memory:" opens a private
// in-memory database.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	s := applyOptions(opts)

	if path == "" {
		path = memoryDSN
	}
	inMemory := path == memoryDSN || strings.Contains(path, "mode=memory")
	if !inMemory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// Each connection to :memory: is a separate database, and SQLite
	// serializes writers anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	s.logger.Info(ctx, "sqlite store opened", logger.String("path", path))
	st := &SQLiteStore{db: db, logger: s.logger}
	metrics.UpdateLearnersTracked(st.Count(ctx))
	return st, nil
}

// Record implements Store.
func (s *SQLiteStore) Record(ctx context.Context, rec model.AttemptRecord) (improved bool, err error) {
	defer observe("record", time.Now())

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin record: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.NamedExecContext(ctx, `
		INSERT OR IGNORE INTO attempts
		(attempt_id, learner_id, template_id, character, accuracy, grade, passed, stroke_count, deviation_count, submitted_at)
		VALUES (:attempt_id, :learner_id, :template_id, :character, :accuracy, :grade, :passed, :stroke_count, :deviation_count, :submitted_at)`,
		toAttemptRow(rec),
	)
	if err != nil {
		return false, fmt.Errorf("insert attempt %s: %w", rec.AttemptID, err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert attempt %s: %w", rec.AttemptID, err)
	}
	if inserted == 0 {
		return false, tx.Commit()
	}

	var (
		row      progressRow
		progress model.Progress
		isNew    bool
	)
	err = tx.GetContext(ctx, &row, `
		SELECT learner_id, template_id, character, attempts, best_accuracy, best_grade, mastered, last_attempt_at
		FROM progress WHERE learner_id = ? AND template_id = ?`,
		rec.LearnerID, rec.TemplateID,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		isNew = true
	case err != nil:
		return false, fmt.Errorf("load progress: %w", err)
	default:
		progress = row.toModel()
	}

	improved = progress.Apply(rec)
	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO progress
		(learner_id, template_id, character, attempts, best_accuracy, best_grade, mastered, last_attempt_at)
		VALUES (:learner_id, :template_id, :character, :attempts, :best_accuracy, :best_grade, :mastered, :last_attempt_at)
		ON CONFLICT (learner_id, template_id) DO UPDATE SET
			character = excluded.character,
			attempts = excluded.attempts,
			best_accuracy = excluded.best_accuracy,
			best_grade = excluded.best_grade,
			mastered = excluded.mastered,
			last_attempt_at = excluded.last_attempt_at`,
		toProgressRow(progress),
	)
	if err != nil {
		return false, fmt.Errorf("save progress: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit record: %w", err)
	}
	if isNew {
		metrics.UpdateLearnersTracked(s.Count(ctx))
	}
	return improved, nil
}

// History implements Store.
func (s *SQLiteStore) History(ctx context.Context, learnerID, templateID string, limit int) ([]model.AttemptRecord, error) {
	defer observe("history", time.Now())
	if err := checkLimit(limit); err != nil {
		return nil, err
	}

	var rows []attemptRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT attempt_id, learner_id, template_id, character, accuracy, grade, passed, stroke_count, deviation_count, submitted_at
		FROM attempts
		WHERE learner_id = ? AND (? = '' OR template_id = ?)
		ORDER BY submitted_at DESC, seq DESC
		LIMIT ?`,
		learnerID, templateID, templateID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	out := make([]model.AttemptRecord, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// Progress implements Store.
func (s *SQLiteStore) Progress(ctx context.Context, learnerID string) ([]model.Progress, error) {
	defer observe("progress", time.Now())

	var rows []progressRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT learner_id, template_id, character, attempts, best_accuracy, best_grade, mastered, last_attempt_at
		FROM progress WHERE learner_id = ?
		ORDER BY template_id`,
		learnerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	if len(rows) == 0 {
		metrics.RecordErrorByComponent("repository", "not_found")
		return nil, fmt.Errorf("%q: %w", learnerID, ErrNotFound)
	}
	out := make([]model.Progress, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// TopN implements Store.
func (s *SQLiteStore) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	defer observe("top_n", time.Now())
	if err := checkLimit(n); err != nil {
		return nil, err
	}

	var rows []leaderRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT learner_id, SUM(mastered) AS mastered, SUM(best_accuracy) AS total_best, COUNT(*) AS templates
		FROM progress
		GROUP BY learner_id
		ORDER BY SUM(mastered) DESC, SUM(best_accuracy) / COUNT(*) DESC, learner_id ASC
		LIMIT ?`,
		n,
	)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	out := make([]types.Entry, len(rows))
	for i, r := range rows {
		out[i] = types.Entry{
			Rank:        i + 1,
			LearnerID:   r.LearnerID,
			Mastered:    r.Mastered,
			AverageBest: round2(r.TotalBest / float64(r.Templates)),
		}
	}
	return out, nil
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context) int {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(DISTINCT learner_id) FROM progress`); err != nil {
		s.logger.Warn(ctx, "count learners failed", logger.Error(err))
		return 0
	}
	return n
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}

func toAttemptRow(rec model.AttemptRecord) attemptRow {
	return attemptRow{
		AttemptID:      rec.AttemptID,
		LearnerID:      rec.LearnerID,
		TemplateID:     rec.TemplateID,
		Character:      rec.Character,
		Accuracy:       rec.Accuracy,
		Grade:          string(rec.Grade),
		Passed:         rec.Passed,
		StrokeCount:    rec.StrokeCount,
		DeviationCount: rec.DeviationCount,
		SubmittedAt:    rec.SubmittedAt.UnixMilli(),
	}
}

func (r attemptRow) toModel() model.AttemptRecord {
	return model.AttemptRecord{
		AttemptID:      r.AttemptID,
		LearnerID:      r.LearnerID,
		TemplateID:     r.TemplateID,
		Character:      r.Character,
		Accuracy:       r.Accuracy,
		Grade:          scoring.Grade(r.Grade),
		Passed:         r.Passed,
		StrokeCount:    r.StrokeCount,
		DeviationCount: r.DeviationCount,
		SubmittedAt:    time.UnixMilli(r.SubmittedAt).UTC(),
	}
}

func toProgressRow(p model.Progress) progressRow {
	return progressRow{
		LearnerID:     p.LearnerID,
		TemplateID:    p.TemplateID,
		Character:     p.Character,
		Attempts:      p.Attempts,
		BestAccuracy:  p.BestAccuracy,
		BestGrade:     string(p.BestGrade),
		Mastered:      p.Mastered,
		LastAttemptAt: p.LastAttemptAt.UnixMilli(),
	}
}

func (r progressRow) toModel() model.Progress {
	return model.Progress{
		LearnerID:     r.LearnerID,
		TemplateID:    r.TemplateID,
		Character:     r.Character,
		Attempts:      r.Attempts,
		BestAccuracy:  r.BestAccuracy,
		BestGrade:     scoring.Grade(r.BestGrade),
		Mastered:      r.Mastered,
		LastAttemptAt: time.UnixMilli(r.LastAttemptAt).UTC(),
	}
}
