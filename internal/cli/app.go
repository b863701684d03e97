package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/clientscore/internal/cache"
	"github.com/ppiankov/clientscore/internal/gateway"
	"github.com/ppiankov/clientscore/internal/ingest"
	"github.com/ppiankov/clientscore/internal/model"
	"github.com/ppiankov/clientscore/internal/pipeline"
	"github.com/ppiankov/clientscore/internal/store"
)

// app holds the components shared by the commands
type app struct {
	store    store.Store
	gateway  *gateway.HTTPGateway
	pipeline *pipeline.Pipeline
	close    func() error
}

// openApp opens the configured store, runs the one-time ingestion and wires
// the prediction pipeline
func openApp(ctx context.Context, c *model.Config, log *zap.Logger) (*app, error) {
	st, closeStore, err := openStore(c.Store, c.Cache)
	if err != nil {
		return nil, err
	}

	if _, err := runIngestion(ctx, st, c.Ingest, log); err != nil {
		_ = closeStore()
		return nil, err
	}

	gw, err := gateway.NewHTTPGateway(gateway.ConfigFromModel(c.Gateway))
	if err != nil {
		_ = closeStore()
		return nil, fmt.Errorf("create gateway: %w", err)
	}

	return &app{
		store:    st,
		gateway:  gw,
		pipeline: pipeline.NewPipeline(st, gw, log, c.Server.MaxPageSize),
		close:    closeStore,
	}, nil
}

// openStore returns the configured store, wrapped with the record cache when enabled
func openStore(sc model.StoreConfig, cc model.CacheConfig) (store.Store, func() error, error) {
	var (
		st        store.Store
		closeFunc = func() error { return nil }
	)

	switch sc.Driver {
	case "sqlite":
		s, err := store.NewSQLiteStore(sc.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		st = s
		closeFunc = s.Close
	default:
		st = store.NewMemoryStore()
	}

	if cc.Enabled {
		st = store.NewCachedStore(st, cache.NewMemoryCache(cc.TTL, 2*cc.TTL), cc.TTL)
	}
	return st, closeFunc, nil
}

// runIngestion loads the configured table, or the bundled one, into st
func runIngestion(ctx context.Context, st store.Store, ic model.IngestConfig, log *zap.Logger) (int, error) {
	loader := ingest.NewLoader(st, log)
	if ic.Path != "" {
		n, err := loader.LoadFile(ctx, ic.Path)
		if err != nil {
			return 0, fmt.Errorf("ingest %s: %w", ic.Path, err)
		}
		return n, nil
	}

	n, err := loader.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("ingest bundled dataset: %w", err)
	}
	return n, nil
}
