package main

import (
	"context"
	"os"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-qualifier/internal/classifier"
	"github.com/sells-group/lead-qualifier/internal/pipeline"
	"github.com/sells-group/lead-qualifier/internal/scorer"
	"github.com/sells-group/lead-qualifier/internal/store"
	"github.com/sells-group/lead-qualifier/pkg/notion"
	sfpkg "github.com/sells-group/lead-qualifier/pkg/salesforce"
)

// initStore opens the configured store and applies migrations.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "leads.db"
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// scoringEnv holds what the scoring commands and the server need.
type scoringEnv struct {
	Store        store.Store
	Orchestrator *pipeline.Orchestrator
}

// Close releases the store.
func (e *scoringEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initScoring opens the store and wires the heuristic, classifier and
// orchestrator. Callers should defer env.Close().
func initScoring(ctx context.Context) (*scoringEnv, error) {
	if err := scorer.ValidateWeights(cfg.Scoring.Weights); err != nil {
		return nil, err
	}

	cls, err := classifier.New(cfg)
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	orch := pipeline.New(st, scorer.NewHeuristic(cfg.Scoring.Weights), cls, cfg.Scoring.PoolSize)
	zap.L().Debug("scoring initialized",
		zap.String("store", cfg.Store.Driver),
		zap.String("classifier", cfg.Classifier.Provider),
		zap.Int("pool_size", orch.PoolSize()),
	)
	return &scoringEnv{Store: st, Orchestrator: orch}, nil
}

func initNotion() (notion.Client, error) {
	if err := cfg.Validate("notion"); err != nil {
		return nil, err
	}
	var opts []notion.ClientOption
	if cfg.Notion.RatePerSec > 0 {
		opts = append(opts, notion.WithRateLimit(cfg.Notion.RatePerSec))
	}
	return notion.NewClient(cfg.Notion.Token, opts...), nil
}

func initSalesforce() (sfpkg.Client, error) {
	if err := cfg.Validate("salesforce"); err != nil {
		return nil, err
	}

	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.Salesforce.LoginURL,
		Username:       cfg.Salesforce.Username,
		ConsumerKey:    cfg.Salesforce.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}

	return sfpkg.NewClient(sf, sfpkg.WithRateLimit(cfg.Salesforce.RatePerSec)), nil
}
