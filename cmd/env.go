package main

import (
	"context"

	"github.com/rcliao/companyscout/internal/config"
	"github.com/rcliao/companyscout/internal/discovery"
	"github.com/rcliao/companyscout/internal/research"
	"github.com/rcliao/companyscout/internal/store"
	"github.com/rcliao/companyscout/pkg/anthropic"
	"github.com/rcliao/companyscout/pkg/serper"
)

// workersFile is where worker role overrides live next to config.yaml.
const workersFile = "workers.yaml"

// scoutEnv bundles the wired coordinators and their shared store.
type scoutEnv struct {
	Store     store.Store
	Research  *research.Coordinator
	Discovery *discovery.Coordinator
}

func (e *scoutEnv) Close() {
	e.Store.Close() //nolint:errcheck
}

func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store)
}

// initEnv wires the store, search and model clients, and both coordinators.
func initEnv(ctx context.Context) (*scoutEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	overrides, err := config.LoadWorkerOverrides(workersFile)
	if err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}

	search := serper.NewClient(cfg.Serper.Key,
		serper.WithBaseURL(cfg.Serper.BaseURL),
		serper.WithRateLimit(cfg.Serper.RequestsPerSec),
	)
	llm := anthropic.NewClient(cfg.Anthropic.Key)

	researcher := research.NewCoordinator(st, search, llm, cfg, overrides)
	return &scoutEnv{
		Store:     st,
		Research:  researcher,
		Discovery: discovery.NewCoordinator(st, search, llm, cfg, overrides, researcher),
	}, nil
}
