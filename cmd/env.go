package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/boxoffice/internal/config"
	"github.com/sells-group/boxoffice/internal/dataset"
	"github.com/sells-group/boxoffice/internal/fetcher"
	"github.com/sells-group/boxoffice/internal/pipeline"
	"github.com/sells-group/boxoffice/internal/store"
)

// appEnv holds the loader, predictor and optional store shared by the
// predict, batch, match and serve commands.
type appEnv struct {
	Loader    *dataset.Loader
	Predictor pipeline.Predictor
	Store     store.Store // may be nil
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// newEnv builds the environment from c. The store is opened and migrated
// only when withStore is set and a driver is configured.
func newEnv(ctx context.Context, c *config.Config, withStore bool) (*appEnv, error) {
	env := &appEnv{
		Loader: &dataset.Loader{
			Opener: fetcher.NewOpener(
				fetcher.HTTPOptions{
					UserAgent:  c.Fetch.UserAgent,
					Timeout:    time.Duration(c.Fetch.TimeoutSecs) * time.Second,
					MaxRetries: c.Fetch.MaxRetries,
					RatePerSec: c.Fetch.RatePerSec,
				},
				fetcher.FTPOptions{Timeout: time.Duration(c.Fetch.TimeoutSecs) * time.Second},
			),
			Format: c.Data.Format,
			Sheet:  c.Data.Sheet,
		},
		Predictor: pipeline.Predictor{MinScore: c.Match.MinScore},
	}

	if !withStore {
		return env, nil
	}

	st, err := store.Open(ctx, c.Store)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return env, nil
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	env.Store = st
	return env, nil
}

// loadTables loads both configured tables.
func (e *appEnv) loadTables(ctx context.Context, c *config.Config) (*dataset.Tables, error) {
	start := time.Now()
	t, err := e.Loader.LoadTables(ctx, c.Data.Directors, c.Data.Movies)
	if err != nil {
		return nil, err
	}
	zap.L().Debug("tables loaded", zap.Duration("elapsed", time.Since(start)))
	return t, nil
}
