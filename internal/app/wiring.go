package app

import (
	"context"
	"fmt"
	"io"
	"time"

	api "swapstats/internal/api/http"
	"swapstats/internal/api/http/handlers"
	"swapstats/internal/api/http/mw"
	"swapstats/internal/cache"
	"swapstats/internal/config"
	"swapstats/internal/feeds"
	"swapstats/internal/ingest"
	"swapstats/internal/metrics"
	"swapstats/internal/orderbook"
	"swapstats/internal/pubsub"
	natsps "swapstats/internal/pubsub/nats"
	"swapstats/internal/refdata"
	"swapstats/internal/rpc"
	"swapstats/internal/scheduler"
	"swapstats/internal/service"
	"swapstats/internal/sources"
	"swapstats/internal/stats"
	"swapstats/internal/stores/clickhouse"
	"swapstats/internal/stores/ledger"
	"swapstats/internal/stores/redis"

	"github.com/grafana/pyroscope-go"
	lgcfg "gitlab.com/nevasik7/alerting/config"
	"gitlab.com/nevasik7/alerting/logger"
)

type Container struct {
	log logger.Logger
	app *App

	// infra
	redis   *redis.Client
	plane   *cache.Plane
	ledger  *ledger.Store
	ch      *clickhouse.Conn
	chW     *clickhouse.Writer
	nc      *natsps.Client
	sources []io.Closer
	geoip   *mw.GeoIPLookup

	// metrics
	profiler *pyroscope.Profiler
}

func (c *Container) Start() error {
	return c.app.Start()
}

func (c *Container) Stop(ctx context.Context) error {
	if err := c.app.Shutdown(ctx); err != nil {
		return fmt.Errorf("app shutdown is failed, error=%w", err)
	}
	return nil
}

// Cleanup closes every dependency Build opened, in reverse order
func (c *Container) Cleanup() {
	ctxClean, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if c.profiler != nil {
		if err := c.profiler.Stop(); err != nil {
			c.log.Errorf("Failed to stop profiler: %v", err)
		}
	}
	if c.geoip != nil {
		if err := c.geoip.Close(); err != nil {
			c.log.Errorf("Failed to close geoip db: %v", err)
		}
	}
	if c.chW != nil {
		if err := c.chW.Close(ctxClean); err != nil {
			c.log.Errorf("Failed to close by cleanupF clickhouse writer: %v", err)
		}
	}
	if c.ch != nil {
		if err := c.ch.Close(); err != nil {
			c.log.Errorf("Failed to close by cleanupF clickhouse client: %v", err)
		}
	}
	if c.nc != nil {
		if err := c.nc.Close(); err != nil {
			c.log.Errorf("Failed to close by cleanupF nats client: %v", err)
		}
	}
	for _, s := range c.sources {
		if err := s.Close(); err != nil {
			c.log.Errorf("Failed to close by cleanupF source: %v", err)
		}
	}
	if c.ledger != nil {
		if err := c.ledger.Close(); err != nil {
			c.log.Errorf("Failed to close by cleanupF ledger: %v", err)
		}
	}
	// the redis backend owns the client
	if c.plane != nil {
		if err := c.plane.Close(); err != nil {
			c.log.Errorf("Failed to close by cleanupF cache plane: %v", err)
		}
	}
	if c.redis != nil && c.plane == nil {
		if err := c.redis.Close(); err != nil {
			c.log.Errorf("Failed to close by cleanupF redis client: %v", err)
		}
	}

	c.log.Info("Successfully cleaned up dependency")
}

// Build construct image app; on error everything opened so far is closed
func Build(ctx context.Context, cfg *config.Config) (c *Container, err error) {
	lg := logger.New(lgcfg.LoggerCfg{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	lg.Info("Successfully initialize logger")

	c = &Container{log: lg}
	defer func() {
		if err != nil {
			c.Cleanup()
			c = nil
		}
	}()

	c.profiler, err = metrics.InitPProf(&metrics.PProfConfig{
		Enabled:       cfg.Metrics.Pyroscope.Enabled,
		AppInstanceID: cfg.App.InstanceID,
		AppName:       cfg.Metrics.Pyroscope.AppName,
		ServerAddr:    cfg.Metrics.Pyroscope.ServerAddr,
		AuthToken:     cfg.Metrics.Pyroscope.AuthToken,
		Env:           cfg.App.NodeType,
		Tags:          cfg.Metrics.Pyroscope.Tags,
	})
	if err != nil {
		return c, fmt.Errorf("failed initialize pyroscope, error=%w", err)
	}
	if c.profiler != nil {
		lg.Infof("Successfully initialize Pyroscope to %s as %s", cfg.Metrics.Pyroscope.ServerAddr, cfg.Metrics.Pyroscope.AppName)
	}

	// Redis client
	if cfg.Cache.Backend == "redis" || cfg.RateLimit.ByIP.Enabled {
		if c.redis, err = redis.New(ctx, lg, &cfg.Stores.Redis); err != nil {
			return c, fmt.Errorf("failed initialize redis client, error=%w", err)
		}
	}

	// Cache plane
	var backend cache.Backend
	if cfg.Cache.Backend == "redis" {
		backend = cache.NewRedis(c.redis)
	} else {
		if cfg.App.NodeType == config.NodeServe {
			lg.Warn("Serve node with a process-local cache, nothing will publish derived stats")
		}
		backend = cache.NewMemory(cfg.Cache.JanitorInterval)
	}
	if c.plane, err = cache.New(lg, backend, cache.Options{Testing: cfg.App.Testing, OpTimeout: cfg.Cache.OpTimeout}); err != nil {
		return c, err
	}
	lg.Infof("Successfully initialize cache plane, backend=%s, testing=%t", cfg.Cache.Backend, cfg.App.Testing)

	// Canonical ledger
	c.ledger, err = ledger.Open(ctx, lg, ledger.Config{
		Driver:       cfg.Ledger.Driver,
		DSN:          cfg.Ledger.DSN,
		MaxOpenConns: cfg.Ledger.MaxOpenConns,
	})
	if err != nil {
		return c, fmt.Errorf("failed open ledger, error=%w", err)
	}
	if err = c.ledger.Migrate(ctx); err != nil {
		return c, fmt.Errorf("failed migrate ledger, error=%w", err)
	}
	lg.Infof("Successfully initialize ledger, driver=%s", cfg.Ledger.Driver)

	// NATS Broadcaster
	var notifier pubsub.Broadcaster
	if cfg.PubSub.NATS.Enabled {
		if c.nc, err = natsps.New(lg, &cfg.PubSub.NATS); err != nil {
			return c, fmt.Errorf("failed initialize nats client, error=%w", err)
		}
		notifier = c.nc
		lg.Infof("Successfully initialize nats client, url=%s", cfg.PubSub.NATS.URL)
	}

	// Reference data and orderbooks
	refStore := refdata.NewStore(lg, c.plane, cfg.Cache.RefDataTTL)

	rpcClient, err := rpc.New(lg, rpc.Config{
		URL:        cfg.RPC.URL,
		Userpass:   cfg.RPC.Userpass,
		Timeout:    cfg.RPC.Timeout,
		MaxRetries: cfg.RPC.MaxRetries,
	})
	if err != nil {
		return c, fmt.Errorf("failed initialize rpc client, error=%w", err)
	}

	books, err := orderbook.New(lg, c.plane, rpcClient, refStore, orderbook.Options{
		TTL:          cfg.Cache.OrderbookTTL,
		LockTTL:      cfg.Cache.OrderbookLock,
		WaitAttempts: cfg.Cache.WaitAttempts,
		WaitInterval: cfg.Cache.WaitInterval,
	})
	if err != nil {
		return c, err
	}

	engine, err := stats.New(lg, c.ledger, refStore, books, c.plane, notifier, stats.Options{TTL: cfg.Cache.ArtifactTTL})
	if err != nil {
		return c, err
	}
	lg.Info("Successfully initialize stats engine")

	var sched *scheduler.Scheduler
	if cfg.App.Processes() {
		if sched, err = c.buildProcessing(ctx, cfg, refStore, notifier, engine, books); err != nil {
			return c, err
		}
	}

	var httpSrv *api.Server
	if cfg.App.ServesHTTP() {
		if httpSrv, err = c.buildHTTP(cfg, refStore, books, engine); err != nil {
			return c, err
		}
	}

	// keep interfaces nil when a subsystem is off
	var (
		srvIface   HTTPServer
		schedIface Scheduler
	)
	if httpSrv != nil {
		srvIface = httpSrv
	}
	if sched != nil {
		schedIface = sched
	}
	c.app = NewApp(lg, srvIface, schedIface)

	lg.Infof("Successfully initialize Wiring, node_type=%s", cfg.App.NodeType)
	return c, nil
}

func (c *Container) buildProcessing(
	ctx context.Context,
	cfg *config.Config,
	refStore *refdata.Store,
	notifier pubsub.Broadcaster,
	engine *stats.Engine,
	books *orderbook.Aggregator,
) (*scheduler.Scheduler, error) {
	lg := c.log
	fo := feeds.Options{Timeout: cfg.Feeds.Timeout, MaxRetries: cfg.Feeds.MaxRetries}

	coins, err := feeds.NewCoinConfigClient(lg, cfg.Feeds.CoinConfigURL, fo)
	if err != nil {
		return nil, err
	}
	prices, err := feeds.NewPriceClient(lg, cfg.Feeds.PricesURL, cfg.Feeds.PriceChunkSize, cfg.Feeds.PriceChunkDelay, fo)
	if err != nil {
		return nil, err
	}
	fetchers := refdata.Fetchers{Coins: coins, Prices: prices}
	if cfg.Feeds.FiatRatesURL != "" {
		if fetchers.Fiat, err = feeds.NewFiatClient(lg, cfg.Feeds.FiatRatesURL, cfg.Feeds.FiatRatesAPIKey, fo); err != nil {
			return nil, err
		}
	} else {
		lg.Warn("Fiat rates url is not set, fiat_rates stays empty")
	}

	refresher, err := refdata.NewRefresher(lg, refStore, fetchers, notifier)
	if err != nil {
		return nil, err
	}

	// Source ledgers
	var srcs []sources.Source
	for _, path := range cfg.Sources.NodeSQLitePaths {
		s, err := sources.OpenSQLite(ctx, lg, path)
		if err != nil {
			return nil, fmt.Errorf("failed open node source %s, error=%w", path, err)
		}
		c.sources = append(c.sources, s)
		srcs = append(srcs, s)
	}
	if cfg.Sources.UpstreamDSN != "" {
		up, err := sources.NewUpstream(ctx, lg, cfg.Sources.UpstreamDSN, cfg.Sources.UpstreamMaxConns)
		if err != nil {
			return nil, fmt.Errorf("failed open upstream source, error=%w", err)
		}
		c.sources = append(c.sources, up)
		srcs = append(srcs, up.Sources()...)
	}
	if len(srcs) == 0 {
		lg.Warn("No source ledgers configured, ingestion has nothing to read")
	}

	// ClickHouse archive
	var archiver ingest.Archiver
	if cfg.Stores.ClickHouse.Enabled {
		if c.ch, err = clickhouse.New(ctx, lg, &cfg.Stores.ClickHouse); err != nil {
			return nil, fmt.Errorf("failed initialize clickhouse client, error=%w", err)
		}
		c.chW = clickhouse.NewWriter(lg, c.ch.Native, cfg.Stores.ClickHouse.Writer)
		archiver = c.chW
		lg.Info("Successfully initialize clickhouse writer")
	}

	pipeline, err := ingest.New(lg, ingest.Deps{
		Store:    c.ledger,
		Sources:  srcs,
		Prices:   refStore,
		Archiver: archiver,
		Notifier: notifier,
	})
	if err != nil {
		return nil, err
	}

	sched, err := scheduler.New(lg, c.plane, scheduler.Options{
		LockTTL:     cfg.Scheduler.LockTTL,
		Periods:     cfg.Scheduler.Periods,
		StopTimeout: cfg.App.ShutdownTimeout,
	})
	if err != nil {
		return nil, err
	}

	for _, t := range Tasks(TaskDeps{
		Log:       lg,
		Plane:     c.plane,
		RefData:   refresher,
		Ingest:    pipeline,
		Recompute: engine,
		Books:     books,
		IngestCfg: cfg.Ingest,
		StatsCfg:  cfg.Stats,
	}) {
		if err = sched.Register(t); err != nil {
			return nil, err
		}
	}
	lg.Infof("Successfully initialize scheduler, sources=%d", len(srcs))

	return sched, nil
}

func (c *Container) buildHTTP(cfg *config.Config, refStore *refdata.Store, books *orderbook.Aggregator, engine *stats.Engine) (*api.Server, error) {
	lg := c.log
	httpCfg := &cfg.API.HTTP

	deps := map[string]service.Health{}
	if c.redis != nil {
		deps["redis"] = c.redis
	}
	if c.nc != nil {
		deps["nats"] = c.nc
	}
	if c.ch != nil {
		deps["clickhouse"] = c.ch
	}

	market := service.NewMarketService(lg, c.plane, c.ledger, books, refStore, engine, deps, service.Options{
		DefaultDepth: cfg.Stats.OrderbookDepth,
		PairsDays:    cfg.Stats.PairsDays,
	})

	m := api.Middlewares{
		Logging:   mw.NewLogging(lg),
		Gzip:      mw.NewGzip(0, lg),
		BasicAuth: mw.NewBasicAuth(&httpCfg.BasicAuth),
	}
	if httpCfg.CORS.Enabled {
		m.CORS = mw.NewCORS(&httpCfg.CORS)
	}
	if cfg.RateLimit.ByIP.Enabled {
		m.RateLimit = mw.NewRateLimit(lg, &cfg.RateLimit.ByIP, c.redis)
	}
	if httpCfg.GeoBlock.Enabled {
		geo, err := mw.OpenGeoIP(httpCfg.GeoBlock.DBPath)
		if err != nil {
			return nil, err
		}
		c.geoip = geo
		m.GeoBlock = mw.NewGeoBlock(lg, &httpCfg.GeoBlock, geo)
	}
	if m.BasicAuth == nil {
		lg.Warn("Basic auth is not configured, privileged endpoints are disabled")
	}

	router := api.BuildRouter(handlers.NewHandler(lg, market), m, cfg.Metrics.Prometheus)
	srv := api.NewServer(lg, httpCfg, router)
	lg.Infof("Successfully initialize HTTP server, addr=%s", httpCfg.Addr)

	return srv, nil
}
