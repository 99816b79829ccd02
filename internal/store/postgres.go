package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/boxoffice/internal/db"
	"github.com/sells-group/boxoffice/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"insert_prediction_run": postgresInsertRun,
	"get_prediction_run":    `SELECT ` + runColumns + ` FROM prediction_runs WHERE id = $1`,
}

const postgresInsertRun = `INSERT INTO prediction_runs
	(id, director_query, budget_text, outcome, director_name, director_id, score, predicted_revenue, error, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

var copyColumns = []string{
	"id", "director_query", "budget_text", "outcome", "director_name",
	"director_id", "score", "predicted_revenue", "error", "created_at",
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute
	pgxCfg.AfterConnect = prepareStatements

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS prediction_runs (
	id                TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	director_query    TEXT NOT NULL,
	budget_text       TEXT NOT NULL,
	outcome           TEXT NOT NULL,
	director_name     TEXT NOT NULL DEFAULT '',
	director_id       TEXT NOT NULL DEFAULT '',
	score             DOUBLE PRECISION NOT NULL DEFAULT 0,
	predicted_revenue DOUBLE PRECISION,
	error             TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_prediction_runs_outcome ON prediction_runs(outcome);
CREATE INDEX IF NOT EXISTS idx_prediction_runs_director ON prediction_runs(director_name);
CREATE INDEX IF NOT EXISTS idx_prediction_runs_created_at ON prediction_runs(created_at DESC);
`

// prepareStatements prepares the hot queries on each new connection.
func prepareStatements(ctx context.Context, conn *pgx.Conn) error {
	for name, sql := range preparedStatements {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return eris.Wrapf(err, "postgres: prepare %s", name)
		}
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) RecordPrediction(ctx context.Context, req model.PredictionRequest, res model.PredictionResult) (*model.PredictionRun, error) {
	run := NewRun(req, res)
	if _, err := s.pool.Exec(ctx, postgresInsertRun, runArgs(run)...); err != nil {
		return nil, eris.Wrap(err, "postgres: insert prediction run")
	}
	return &run, nil
}

// RecordPredictions bulk-inserts runs with COPY.
func (s *PostgresStore) RecordPredictions(ctx context.Context, runs []model.PredictionRun) (int64, error) {
	rows := make([][]any, len(runs))
	for i, run := range runs {
		rows[i] = runArgs(run)
	}
	n, err := db.CopyRows(ctx, s.pool, "prediction_runs", copyColumns, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: record predictions")
	}
	return n, nil
}

func (s *PostgresStore) GetPrediction(ctx context.Context, id string) (*model.PredictionRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+runColumns+` FROM prediction_runs WHERE id = $1`,
		id,
	)
	run, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get prediction %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get prediction %s", id)
	}
	return run, nil
}

func (s *PostgresStore) ListPredictions(ctx context.Context, filter RunFilter) ([]model.PredictionRun, error) {
	query := `SELECT ` + runColumns + ` FROM prediction_runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Outcome != "" {
		query += fmt.Sprintf(` AND outcome = $%d`, argIdx)
		args = append(args, string(filter.Outcome))
		argIdx++
	}
	if filter.Director != "" {
		query += fmt.Sprintf(` AND director_name = $%d`, argIdx)
		args = append(args, filter.Director)
		argIdx++
	}
	if !filter.CreatedAfter.IsZero() {
		query += fmt.Sprintf(` AND created_at >= $%d`, argIdx)
		args = append(args, filter.CreatedAfter)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, argIdx)
	args = append(args, limitOrDefault(filter.Limit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list predictions")
	}
	defer rows.Close()

	runs := []model.PredictionRun{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan prediction run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list predictions iterate")
}
