package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/boxoffice/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS prediction_runs (
	id                TEXT PRIMARY KEY,
	director_query    TEXT NOT NULL,
	budget_text       TEXT NOT NULL,
	outcome           TEXT NOT NULL,
	director_name     TEXT NOT NULL DEFAULT '',
	director_id       TEXT NOT NULL DEFAULT '',
	score             REAL NOT NULL DEFAULT 0,
	predicted_revenue REAL,
	error             TEXT NOT NULL DEFAULT '',
	created_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_prediction_runs_outcome ON prediction_runs(outcome);
CREATE INDEX IF NOT EXISTS idx_prediction_runs_director ON prediction_runs(director_name);
CREATE INDEX IF NOT EXISTS idx_prediction_runs_created_at ON prediction_runs(created_at);
`

const sqliteInsertRun = `INSERT INTO prediction_runs
	(id, director_query, budget_text, outcome, director_name, director_id, score, predicted_revenue, error, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const runColumns = `id, director_query, budget_text, outcome, director_name, director_id, score, predicted_revenue, error, created_at`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) RecordPrediction(ctx context.Context, req model.PredictionRequest, res model.PredictionResult) (*model.PredictionRun, error) {
	run := NewRun(req, res)
	if _, err := s.db.ExecContext(ctx, sqliteInsertRun, runArgs(run)...); err != nil {
		return nil, eris.Wrap(err, "sqlite: insert prediction run")
	}
	return &run, nil
}

// RecordPredictions inserts runs in one transaction.
func (s *SQLiteStore) RecordPredictions(ctx context.Context, runs []model.PredictionRun) (int64, error) {
	if len(runs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteInsertRun)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, run := range runs {
		if _, err := stmt.ExecContext(ctx, runArgs(run)...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert prediction run %s", run.ID)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit")
	}
	return int64(len(runs)), nil
}

func (s *SQLiteStore) GetPrediction(ctx context.Context, id string) (*model.PredictionRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM prediction_runs WHERE id = ?`,
		id,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get prediction %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get prediction %s", id)
	}
	return run, nil
}

func (s *SQLiteStore) ListPredictions(ctx context.Context, filter RunFilter) ([]model.PredictionRun, error) {
	query := `SELECT ` + runColumns + ` FROM prediction_runs WHERE 1=1`
	var args []any

	if filter.Outcome != "" {
		query += ` AND outcome = ?`
		args = append(args, string(filter.Outcome))
	}
	if filter.Director != "" {
		query += ` AND director_name = ?`
		args = append(args, filter.Director)
	}
	if !filter.CreatedAfter.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.CreatedAfter.UTC())
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limitOrDefault(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list predictions")
	}
	defer rows.Close() //nolint:errcheck

	runs := []model.PredictionRun{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan prediction run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list predictions iterate")
}

// helpers

func runArgs(run model.PredictionRun) []any {
	return []any{
		run.ID, run.DirectorQuery, run.BudgetText, string(run.Outcome),
		run.DirectorName, run.DirectorID, run.Score, run.PredictedRevenue,
		run.Error, run.CreatedAt,
	}
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.PredictionRun, error) {
	var r model.PredictionRun
	var outcome string
	var revenue sql.NullFloat64
	var createdAt time.Time

	err := row.Scan(&r.ID, &r.DirectorQuery, &r.BudgetText, &outcome,
		&r.DirectorName, &r.DirectorID, &r.Score, &revenue, &r.Error, &createdAt)
	if err != nil {
		return nil, err
	}
	r.Outcome = model.Outcome(outcome)
	if revenue.Valid {
		v := revenue.Float64
		r.PredictedRevenue = &v
	}
	r.CreatedAt = createdAt.UTC()
	return &r, nil
}
