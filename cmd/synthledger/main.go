package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"SynthLedger/internal/config"
	"SynthLedger/internal/engine"
	"SynthLedger/internal/ingestion"
	"SynthLedger/internal/observability"
	"SynthLedger/internal/oracle"
	"SynthLedger/internal/persistence"
	"SynthLedger/internal/projection"
	"SynthLedger/internal/query"
	"SynthLedger/internal/registry"
	"SynthLedger/internal/server"
	"SynthLedger/internal/token"
)

func main() {
	cfg, err := config.Load(os.Getenv("SYNTH_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger("synthledger")
	metrics := observability.NewMetrics()
	healthChecker := observability.NewHealthChecker()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- Postgres ----
	db, err := sql.Open("postgres", cfg.Postgres.DSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("open postgres")
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)

	pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		pingCancel()
		logger.Fatal().Err(err).Msg("ping postgres")
	}
	pingCancel()

	if cfg.Postgres.RunMigrations {
		migrator := persistence.NewMigrator(db, cfg.Postgres.MigrationsDir, logger)
		if err := migrator.Up(ctx); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
	}

	// ---- NATS ----
	var (
		nc *nats.Conn
		js jetstream.JetStream
	)
	if cfg.NATS.Enabled {
		nc, js, err = ingestion.Connect(cfg.NATS.URL, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect nats")
		}
		defer nc.Close()

		if err := ingestion.EnsureOutboundStream(ctx, js); err != nil {
			logger.Fatal().Err(err).Msg("ensure outbound stream")
		}
		if cfg.Oracle.Mode == "nats" {
			if err := ingestion.EnsurePriceStream(ctx, js); err != nil {
				logger.Fatal().Err(err).Msg("ensure price stream")
			}
		}
	}

	// ---- Price feeds ----
	assets := make([]string, 0, len(cfg.Collateral))
	feeds := make([]oracle.PriceFeed, 0, len(cfg.Collateral))
	cachedFeeds := make(map[string]*oracle.CachedFeed)

	switch cfg.Oracle.Mode {
	case "nats":
		for _, spec := range cfg.Collateral {
			cached := oracle.NewCachedFeed()
			cachedFeeds[spec.Symbol] = cached
			assets = append(assets, spec.Symbol)
			feeds = append(feeds, cached)
		}
	case "chainlink":
		client, err := ethclient.DialContext(ctx, cfg.Oracle.EthRPC)
		if err != nil {
			logger.Fatal().Err(err).Msg("dial eth rpc")
		}
		defer client.Close()
		for _, spec := range cfg.Collateral {
			feed, err := oracle.NewChainlinkFeed(ctx, client, common.HexToAddress(spec.FeedAddress))
			if err != nil {
				logger.Fatal().Err(err).Str("asset", spec.Symbol).Msg("init chainlink feed")
			}
			assets = append(assets, spec.Symbol)
			feeds = append(feeds, feed)
		}
	}

	collateralRegistry, err := registry.New(assets, feeds)
	if err != nil {
		logger.Fatal().Err(err).Msg("build collateral registry")
	}

	pricing, err := oracle.NewAdapter(collateralRegistry, cfg.Oracle.MaxAge.Duration)
	if err != nil {
		logger.Fatal().Err(err).Msg("build pricing adapter")
	}

	// ---- Engine and pipelines ----
	persistChan := make(chan engine.Output, cfg.Engine.PersistChanSize)
	projectionChan := make(chan engine.Output, cfg.Engine.ProjectionChanSize)
	publishChan := make(chan engine.Output, cfg.Engine.PublishChanSize)

	// In-process custody backends. On-chain deployments swap these for
	// adapters speaking to the token and vault contracts.
	liabilityToken := token.NewMemoryToken()
	collateralVault := token.NewMemoryVault()

	eng, err := engine.New(engine.Config{
		Registry:       collateralRegistry,
		Pricing:        pricing,
		Token:          liabilityToken,
		Vault:          collateralVault,
		PersistChan:    persistChan,
		ProjectionChan: projectionChan,
		PublishChan:    publishChan,
		Metrics:        metrics,
		Logger:         observability.NewLogger("engine"),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("build engine")
	}

	snapshots := persistence.NewSnapshotStore(db)
	if snap, ok, err := snapshots.LoadLatest(ctx); err != nil {
		logger.Fatal().Err(err).Msg("load snapshot")
	} else if ok {
		if err := eng.Restore(snap); err != nil {
			logger.Fatal().Err(err).Msg("restore snapshot")
		}
		logger.Info().Int64("sequence", snap.Sequence).Msg("restored from snapshot")
	}

	var wg sync.WaitGroup

	persistWorker := persistence.NewWorker(db, persistChan, cfg.Postgres.BatchSize,
		cfg.Postgres.FlushTimeout.Duration, metrics, observability.NewLogger("persistence"))
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := persistWorker.Run(ctx); err != nil && err != context.Canceled {
			logger.Error().Err(err).Msg("persistence worker stopped")
		}
	}()

	projectionWorker := projection.NewWorker(db, projectionChan, observability.NewLogger("projection"))
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := projectionWorker.Run(ctx); err != nil && err != context.Canceled {
			logger.Error().Err(err).Msg("projection worker stopped")
		}
	}()

	var priceSubscriber *ingestion.PriceSubscriber
	if cfg.NATS.Enabled {
		publisher := ingestion.NewOutboundPublisher(js, publishChan, observability.NewLogger("publisher"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := publisher.Run(ctx); err != nil && err != context.Canceled {
				logger.Error().Err(err).Msg("outbound publisher stopped")
			}
		}()

		if cfg.Oracle.Mode == "nats" {
			priceSubscriber = ingestion.NewPriceSubscriber(js, cachedFeeds, observability.NewLogger("prices"))
			if err := priceSubscriber.Subscribe(ctx); err != nil {
				logger.Fatal().Err(err).Msg("subscribe price updates")
			}
		}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		runSnapshotLoop(ctx, eng, snapshots, metrics, cfg.Engine.SnapshotInterval, logger)
	}()

	// ---- Serving surfaces ----
	queries := query.NewService(db)
	httpServer := server.NewHTTPServer(cfg.Server.HTTPAddr, eng, queries, healthChecker, metrics, observability.NewLogger("http"))
	grpcServer := server.NewGRPCServer(cfg.Server.GRPCAddr, observability.NewLogger("grpc"))

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()
	go func() {
		if err := grpcServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("grpc server failed")
		}
	}()

	healthChecker.SetReady(true)
	grpcServer.SetServing(true)
	logger.Info().Strs("assets", assets).Str("oracle_mode", cfg.Oracle.Mode).Msg("synthledger up")

	// ---- Shutdown ----
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutting down")

	healthChecker.SetReady(false)
	grpcServer.SetServing(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	grpcServer.Stop()
	if priceSubscriber != nil {
		priceSubscriber.Stop()
	}

	cancel()
	wg.Wait()

	if err := snapshots.Save(context.Background(), eng.Snapshot()); err != nil {
		logger.Warn().Err(err).Msg("final snapshot failed")
	}
	logger.Info().Msg("shutdown complete")
}

// runSnapshotLoop saves a balance snapshot whenever the engine advances past
// the configured interval since the last snapshot, checking once a minute.
func runSnapshotLoop(ctx context.Context, eng *engine.Engine, store *persistence.SnapshotStore, metrics *observability.Metrics, interval int64, logger zerolog.Logger) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	var lastSnapshotSeq int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			seq := eng.Sequence()
			if seq-lastSnapshotSeq < interval {
				continue
			}
			start := time.Now()
			snap := eng.Snapshot()
			if err := store.Save(ctx, snap); err != nil {
				logger.Warn().Err(err).Msg("snapshot save failed")
				continue
			}
			lastSnapshotSeq = snap.Sequence
			metrics.SnapshotTaken.Inc()
			metrics.SnapshotDuration.Observe(time.Since(start).Seconds())
			metrics.SnapshotLastSeq.Set(float64(snap.Sequence))
			logger.Info().Int64("sequence", snap.Sequence).Msg("snapshot saved")
		}
	}
}
