package upgradeproxy

import (
	"context"
	"errors"
	"log/slog"

	httpadapter "ballotproxy/contexts/governance/upgrade-proxy/adapters/http"
	"ballotproxy/contexts/governance/upgrade-proxy/adapters/memory"
	"ballotproxy/contexts/governance/upgrade-proxy/application"
	"ballotproxy/contexts/governance/upgrade-proxy/application/workers"
	domainerrors "ballotproxy/contexts/governance/upgrade-proxy/domain/errors"
	"ballotproxy/contexts/governance/upgrade-proxy/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Proxy   *application.Proxy
	Relay   workers.OutboxRelay
	Store   *memory.Store
}

type Dependencies struct {
	Store     ports.StateStore
	Registry  ports.Registry
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Metrics   ports.Metrics
	Publisher ports.EventPublisher
	BatchSize int
	Logger    *slog.Logger

	// Owner and Implementation initialize storage that has never been
	// deployed. Deployed storage keeps its recorded values.
	Owner          string
	Implementation string
}

// NewModule attaches to deployed storage, or deploys into empty storage.
func NewModule(ctx context.Context, deps Dependencies) (Module, error) {
	proxyDeps := application.Dependencies{
		Store:    deps.Store,
		Registry: deps.Registry,
		Clock:    deps.Clock,
		IDGen:    deps.IDGen,
		Metrics:  deps.Metrics,
		Logger:   deps.Logger,
	}
	proxy, err := application.Attach(ctx, proxyDeps)
	if errors.Is(err, domainerrors.ErrNotDeployed) {
		proxy, err = application.Deploy(ctx, proxyDeps, deps.Owner, deps.Implementation)
	}
	if err != nil {
		return Module{}, err
	}
	return Module{
		Handler: httpadapter.Handler{
			Proxy:  proxy,
			Logger: deps.Logger,
		},
		Proxy: proxy,
		Relay: workers.OutboxRelay{
			Outbox:    deps.Store,
			Publisher: deps.Publisher,
			Clock:     deps.Clock,
			BatchSize: deps.BatchSize,
			Logger:    deps.Logger,
		},
	}, nil
}

// NewInMemoryModule deploys a proxy over fresh memory storage. The returned
// Store also serves as the module clock. The relay publishes to publisher; a
// nil publisher leaves outbox rows pending and RunOnce reports
// ErrPublisherRequired.
func NewInMemoryModule(
	ctx context.Context,
	registry ports.Registry,
	publisher ports.EventPublisher,
	owner string,
	implementation string,
	logger *slog.Logger,
) (Module, error) {
	store := memory.NewStore()
	module, err := NewModule(ctx, Dependencies{
		Store:          store,
		Registry:       registry,
		Clock:          store,
		IDGen:          store,
		Publisher:      publisher,
		Logger:         logger,
		Owner:          owner,
		Implementation: implementation,
	})
	if err != nil {
		return Module{}, err
	}
	module.Store = store
	return module, nil
}
