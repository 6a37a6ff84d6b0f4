package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/fx"

	"github.com/webitel/reactor-plant/internal/config"
	"github.com/webitel/reactor-plant/internal/netservice"
	"github.com/webitel/reactor-plant/internal/obs"
	"github.com/webitel/reactor-plant/internal/plant"
	"github.com/webitel/reactor-plant/internal/store"
)

// NewApp composes the demo binary's fx.App, following the teacher's
// cmd/fx.go shape (fx.Provide the shared singletons, fx.Invoke/Module the
// wiring points, fx.Lifecycle hooks starting and draining background
// work) generalized from "gRPC server + postgres store" to "plant +
// reactors + admin HTTP surface".
func NewApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLogger,
			ProvideStore,
			ProvidePlant,
			netservice.NewRouter,
		),
		fx.Invoke(replayPoolConfigs),
		fx.Invoke(registerReactors),
		fx.Invoke(runPlant),
		fx.Invoke(runAdminHTTP),
		fx.Invoke(wireAMQP),
	)
}

// ProvideStore opens the bbolt-backed pool-config store at cfg.StorePath
// and arms its Close on fx shutdown.
func ProvideStore(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) (*store.Store, error) {
	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("provide store: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return st.Close()
		},
	})
	return st, nil
}

// replayPoolConfigs pre-creates every pool whose size was persisted by a
// prior admin PUT /pools/{name}, before registerReactors runs — so that by
// the time a reactor's Pool(name, n) word calls PoolByName, the pool
// already exists at the operator's last-configured size and n is ignored.
func replayPoolConfigs(p *plant.Plant, st *store.Store, logger *slog.Logger) error {
	cfgs, err := st.LoadPoolConfigs()
	if err != nil {
		return fmt.Errorf("replay pool configs: %w", err)
	}
	for _, cfg := range cfgs {
		if cfg.Name == "" {
			continue
		}
		p.PoolByName(cfg.Name, cfg.Concurrency)
		logger.Info("POOL_CONFIG_REPLAYED", "pool", cfg.Name, "concurrency", cfg.Concurrency)
	}
	return nil
}

// ProvideLogger builds the process logger per cfg.
func ProvideLogger(cfg *config.Config) *slog.Logger {
	return obs.NewLogger(cfg.LogFormat, config.ParseLevel(cfg.LogLevel))
}

// ProvidePlant constructs the plant and arms its fx lifecycle: Start runs
// on a background goroutine (Plant.Start blocks the calling goroutine as
// the main pool's one worker), Stop calls Shutdown and waits for it to
// drain.
func ProvidePlant(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) (*plant.Plant, error) {
	providers := obs.NewProviders()
	recorder, err := obs.NewStatsRecorder(
		providers.Tracer.Tracer(ServiceName),
		providers.Meter.Meter(ServiceName),
	)
	if err != nil {
		providers.Shutdown()
		return nil, fmt.Errorf("provide plant: %w", err)
	}

	p := plant.New(plant.Config{
		DefaultPoolConcurrency: cfg.DefaultPoolConcurrency,
		LinkedCacheCapacity:    cfg.LinkedCacheCapacity,
		Logger:                 logger,
		OnStatistics:           recorder.Record,
	})

	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer close(done)
				if err := p.Start(context.Background()); err != nil {
					logger.Error("PLANT_START_FAILED", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			p.Shutdown()
			providers.Shutdown()
			select {
			case <-done:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		},
	})
	return p, nil
}

// registerReactors installs the demo plant's reactors. A real deployment
// would fx.Provide each Reactor and fx.Invoke a longer list; the demo
// wires one directly to keep the binary self-contained.
func registerReactors(p *plant.Plant, logger *slog.Logger) error {
	return p.Install(NewHeartbeatReactor(logger))
}

// runPlant exists purely so fx has an Invoke depending on *plant.Plant,
// forcing ProvidePlant's lifecycle hooks to register even if no other
// component asks for the plant directly.
func runPlant(p *plant.Plant) {}

// runAdminHTTP starts the chi-based admin surface (see cmd/httpadmin.go)
// under the same fx lifecycle discipline as the teacher's grpcsrv.Module.
func runAdminHTTP(lc fx.Lifecycle, cfg *config.Config, p *plant.Plant, st *store.Store, logger *slog.Logger) {
	srv := NewAdminServer(cfg.HTTPAdminAddr, p, logger, st)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go srv.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

// wireAMQP, when cfg.AMQP.Enabled, builds a durable publisher/subscriber
// pair against cfg.AMQP.URL, subscribes netservice.Packet off
// cfg.AMQP.Exchange, and drives the router's Run/Close through the same
// fx lifecycle as the plant and admin server. A no-op otherwise, so the
// demo binary runs standalone without a broker.
func wireAMQP(lc fx.Lifecycle, cfg *config.Config, p *plant.Plant, router *message.Router, logger *slog.Logger) error {
	if !cfg.AMQP.Enabled {
		return nil
	}

	publisher, subscriber, err := netservice.NewDurableAMQPPubSub(cfg.AMQP.URL, ServiceName, watermill.NewSlogLogger(logger))
	if err != nil {
		return fmt.Errorf("wire amqp: %w", err)
	}

	transport := netservice.NewAMQPTransport(p, router, publisher, logger)
	netservice.Subscribe[netservice.Packet](transport, ServiceName, cfg.AMQP.Exchange, subscriber)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := router.Run(context.Background()); err != nil {
					logger.Error("AMQP_ROUTER_FAILED", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return router.Close()
		},
	})
	return nil
}
