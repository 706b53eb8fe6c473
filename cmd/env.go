package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/scriptura/internal/catalog"
	"github.com/sells-group/scriptura/internal/resolver"
	"github.com/sells-group/scriptura/internal/source"
	"github.com/sells-group/scriptura/internal/store"
)

// env holds the wired store and resolver shared by commands.
type env struct {
	Store    store.Store
	Resolver *resolver.Resolver
}

// initEnv opens the configured store, runs migrations, and wires one
// source per acquisition strategy into the resolver.
func initEnv(ctx context.Context) (*env, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	sources := map[catalog.Strategy]source.Source{
		catalog.StrategyLocal:   source.NewLocal(st),
		catalog.StrategyESV:     source.NewESV(cfg.ESV),
		catalog.StrategyTreeAPI: source.NewTree(cfg.BibleAPI),
	}

	return &env{
		Store:    st,
		Resolver: resolver.New(st, sources),
	}, nil
}

func (e *env) Close() {
	_ = e.Store.Close()
}
