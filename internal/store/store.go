// Package store persists an audit log of prediction calls.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/boxoffice/internal/config"
	"github.com/sells-group/boxoffice/internal/model"
)

// ErrNotFound is returned when a prediction run does not exist.
var ErrNotFound = eris.New("prediction run not found")

// RunFilter specifies criteria for listing prediction runs.
type RunFilter struct {
	Outcome  model.Outcome `json:"outcome,omitempty"`
	Director string        `json:"director,omitempty"`
	// CreatedAfter keeps runs created at or after this time when non-zero.
	CreatedAfter time.Time `json:"created_after,omitempty"`
	Limit        int       `json:"limit,omitempty"`
	Offset       int       `json:"offset,omitempty"`
}

// Store defines the persistence interface for prediction runs.
type Store interface {
	RecordPrediction(ctx context.Context, req model.PredictionRequest, res model.PredictionResult) (*model.PredictionRun, error)
	RecordPredictions(ctx context.Context, runs []model.PredictionRun) (int64, error)
	GetPrediction(ctx context.Context, id string) (*model.PredictionRun, error)
	ListPredictions(ctx context.Context, filter RunFilter) ([]model.PredictionRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// NewRun builds an unsaved run record for a request and its result.
func NewRun(req model.PredictionRequest, res model.PredictionResult) model.PredictionRun {
	run := model.PredictionRun{
		ID:            uuid.New().String(),
		DirectorQuery: req.DirectorQuery,
		BudgetText:    req.BudgetText,
		Outcome:       res.Outcome,
		DirectorName:  res.DirectorName,
		DirectorID:    res.DirectorID,
		Score:         res.Score,
		CreatedAt:     time.Now().UTC(),
	}
	if res.OK() {
		revenue := res.PredictedRevenue
		run.PredictedRevenue = &revenue
	}
	if res.Err != nil {
		run.Error = res.Err.Error()
	}
	return run
}

// Open returns the store selected by cfg.Driver. The "none" driver returns
// a nil Store and no error.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", config.DriverNone:
		return nil, nil
	case config.DriverSQLite:
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "boxoffice.db"
		}
		return NewSQLite(dsn)
	case config.DriverPostgres:
		return NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{
			MaxConns: cfg.MaxConns,
			MinConns: cfg.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}
