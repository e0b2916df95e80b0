package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/upkeephq/predict-cli/internal/engine"
	"github.com/upkeephq/predict-cli/internal/refdata"
	"github.com/upkeephq/predict-cli/internal/resilience"
	"github.com/upkeephq/predict-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "predict.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initEngine(st store.Store) (*engine.Engine, error) {
	opts := []engine.Option{}

	if cfg.Engine.RetryAttempts > 0 {
		policy := resilience.DefaultPolicy()
		policy.MaxAttempts = cfg.Engine.RetryAttempts
		opts = append(opts, engine.WithRetryPolicy(policy))
	}

	if cfg.Refdata.PatternsPath != "" {
		classifier, err := refdata.LoadPatterns(cfg.Refdata.PatternsPath)
		if err != nil {
			return nil, eris.Wrap(err, "load permit patterns")
		}
		opts = append(opts, engine.WithClassifier(classifier))
	}

	return engine.New(st, opts...), nil
}
