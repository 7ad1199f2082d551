package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	upgradeproxy "ballotproxy/contexts/governance/upgrade-proxy"
	"ballotproxy/contexts/governance/upgrade-proxy/adapters/memory"
	postgresadapter "ballotproxy/contexts/governance/upgrade-proxy/adapters/postgres"
	proxyruntime "ballotproxy/contexts/governance/upgrade-proxy/adapters/runtime"
	sqliteadapter "ballotproxy/contexts/governance/upgrade-proxy/adapters/sqlite"
	"ballotproxy/contexts/governance/upgrade-proxy/application/workers"
	"ballotproxy/contexts/governance/upgrade-proxy/ports"
	votingengine "ballotproxy/contexts/governance/voting-engine"
	votingentities "ballotproxy/contexts/governance/voting-engine/domain/entities"
	"ballotproxy/contexts/governance/voting-engine/logic"
	"ballotproxy/internal/platform/config"
	"ballotproxy/internal/platform/db"
	"ballotproxy/internal/platform/httpserver"
	"ballotproxy/internal/platform/messaging"
	"ballotproxy/internal/platform/metrics"
	"ballotproxy/internal/shared/dispatch"

	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	core     *core
	server   *httpserver.Server
	consumer workers.EventLogConsumer
}

type WorkerApp struct {
	core     *core
	consumer workers.EventLogConsumer
}

// CallApp submits single calls from the command line.
type CallApp struct {
	core *core
}

// logOutput receives every process log line.
var logOutput io.Writer = os.Stderr

// core is what every process shares: storage, the deployed proxy and the
// voting module routed through it.
type core struct {
	cfg     config.Config
	logger  *slog.Logger
	metrics *metrics.Proxy
	bus     *messaging.Kafka
	proxy   upgradeproxy.Module
	voting  votingengine.Module
	closers []func() error
}

func BuildAPI(ctx context.Context) (*APIApp, error) {
	c, err := buildCore(ctx, "api")
	if err != nil {
		return nil, err
	}
	server := httpserver.New(c.proxy, c.voting, c.metrics.Handler(), c.logger, normalizeAddr(c.cfg.HTTPPort))
	return &APIApp{
		core:     c,
		server:   server,
		consumer: c.eventLogConsumer(),
	}, nil
}

func BuildWorker(ctx context.Context) (*WorkerApp, error) {
	c, err := buildCore(ctx, "worker")
	if err != nil {
		return nil, err
	}
	c.warnMemoryStorage("worker uses private in-memory storage; no other process shares its outbox",
		"bootstrap_worker_memory_storage")
	return &WorkerApp{
		core:     c,
		consumer: c.eventLogConsumer(),
	}, nil
}

func BuildCall(ctx context.Context) (*CallApp, error) {
	c, err := buildCore(ctx, "cli")
	if err != nil {
		return nil, err
	}
	c.warnMemoryStorage("call runs against fresh in-memory storage; its state is discarded on exit",
		"bootstrap_call_memory_storage")
	return &CallApp{core: c}, nil
}

func buildCore(ctx context.Context, process string) (*core, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(logOutput, &slog.HandlerOptions{Level: cfg.SlogLevel()})).
		With("service", cfg.ServiceName, "process", process)

	c := &core{cfg: cfg, logger: logger, metrics: metrics.NewProxy()}
	store, err := c.openStorage(ctx)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	bus, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.bus = bus

	registry := memory.NewRegistry()
	votingengine.RegisterImplementations(registry, logger)

	implementation := strings.TrimSpace(cfg.ProxyImplementation)
	if implementation == "" {
		implementation = logic.V1Address
	}
	proxyModule, err := upgradeproxy.NewModule(ctx, upgradeproxy.Dependencies{
		Store:          store,
		Registry:       registry,
		Clock:          proxyruntime.SystemClock{},
		IDGen:          proxyruntime.UUIDGenerator{},
		Metrics:        c.metrics,
		Publisher:      bus,
		BatchSize:      cfg.OutboxBatchSize,
		Logger:         logger,
		Owner:          cfg.ProxyOwner,
		Implementation: implementation,
	})
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.proxy = proxyModule
	c.voting = votingengine.NewModule(votingengine.Dependencies{
		Proxy:  proxyModule.Proxy,
		Logger: logger,
	})

	logger.Info("proxy ready",
		"event", "bootstrap_proxy_ready",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"storage_driver", cfg.StorageDriver,
		"kafka_brokers", bus.Brokers(),
	)
	return c, nil
}

func (c *core) warnMemoryStorage(message string, event string) {
	if c.cfg.StorageDriver != config.StorageMemory {
		return
	}
	c.logger.Warn(message,
		"event", event,
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
}

func (c *core) openStorage(ctx context.Context) (ports.StateStore, error) {
	switch c.cfg.StorageDriver {
	case config.StorageSQLite:
		store, err := sqliteadapter.Open(ctx, c.cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, store.Close)
		return store, nil
	case config.StoragePostgres:
		pg, err := db.Connect(ctx, c.cfg.PostgresDSN, c.logger)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, pg.Close)
		repo := postgresadapter.NewRepository(pg.DB, c.logger)
		if err := repo.Migrate(ctx); err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return memory.NewStore(), nil
	}
}

func (c *core) eventLogConsumer() workers.EventLogConsumer {
	return workers.EventLogConsumer{
		Subscriber: c.bus,
		Topics:     append(workers.DefaultEventTopics(), votingentities.EventTypeSessionCreated),
		Logger:     c.logger,
	}
}

func (c *core) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// Run serves HTTP and relays the outbox until ctx is cancelled or either
// side fails.
func (a *APIApp) Run(ctx context.Context) error {
	a.core.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	if err := a.consumer.Start(ctx); err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(a.server.Start)
	group.Go(func() error {
		return a.core.proxy.Relay.Run(groupCtx, a.core.cfg.OutboxPollInterval)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func (a *APIApp) Close() error {
	return a.core.Close()
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if err := w.consumer.Start(ctx); err != nil {
		return err
	}
	w.core.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.core.cfg.OutboxPollInterval.String(),
		"kafka_brokers", w.core.bus.Brokers(),
	)
	return w.core.proxy.Relay.Run(ctx, w.core.cfg.OutboxPollInterval)
}

func (w *WorkerApp) Close() error {
	return w.core.Close()
}

// Call dispatches one call and relays the events it committed.
func (a *CallApp) Call(ctx context.Context, caller string, method string, args json.RawMessage) (dispatch.Receipt, error) {
	receipt, err := a.core.proxy.Proxy.Dispatch(ctx, dispatch.Call{
		Caller: caller,
		Method: method,
		Args:   args,
	})
	if err != nil {
		return dispatch.Receipt{}, err
	}
	if _, err := a.core.proxy.Relay.RunOnce(ctx); err != nil {
		a.core.logger.Warn("outbox relay after call failed",
			"event", "bootstrap_call_relay_failed",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"error", err.Error(),
		)
	}
	return receipt, nil
}

func (a *CallApp) Close() error {
	return a.core.Close()
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
