package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"swapstats/internal/cache"
	"swapstats/internal/config"
	"swapstats/internal/ingest"
	"swapstats/internal/scheduler"
	"swapstats/internal/stats"

	"gitlab.com/nevasik7/alerting/logger"
)

type RefreshJobs interface {
	RefreshCoinConfig(ctx context.Context) error
	RefreshPrices(ctx context.Context) error
	RefreshFiat(ctx context.Context) error
}

type IngestJobs interface {
	Recent(ctx context.Context, w time.Duration) (ingest.Result, error)
}

type RecomputeJobs interface {
	RecomputePairsLastTraded(ctx context.Context) error
	RecomputeCoinVolumes(ctx context.Context, w stats.Window) error
	RecomputePairVolumes(ctx context.Context, w stats.Window) error
	RecomputeTickers(ctx context.Context, days int) error
	RecomputeOrderbookExtended(ctx context.Context, w stats.Window) error
}

type PrefetchJobs interface {
	RefreshMerged(ctx context.Context, pairStd string) error
}

type TaskDeps struct {
	Log       logger.Logger
	Plane     *cache.Plane
	RefData   RefreshJobs
	Ingest    IngestJobs
	Recompute RecomputeJobs
	Books     PrefetchJobs
	IngestCfg config.IngestConfig
	StatsCfg  config.StatsConfig

	boot *bootstrapState
}

// bootstrapState remembers which startup steps already succeeded
type bootstrapState struct {
	coins    atomic.Bool
	prices   atomic.Bool
	fiat     atomic.Bool
	ingested atomic.Bool
}

// bootstrapRetry is the tick of the startup task until its backfill lands
const bootstrapRetry = 30 * time.Second

// Tasks is the processing node schedule
func Tasks(d TaskDeps) []scheduler.Task {
	volumes := func(w stats.Window, fn func(context.Context, stats.Window) error) func(context.Context) error {
		return func(ctx context.Context) error { return fn(ctx, w) }
	}

	if d.boot == nil {
		d.boot = &bootstrapState{}
	}

	return []scheduler.Task{
		{Name: "ingest_bootstrap", Startup: true, Period: bootstrapRetry, Fn: d.bootstrap},

		{Name: "coin_config_refresh", Period: 24 * time.Hour, Fn: d.RefData.RefreshCoinConfig},
		{Name: "prices_refresh", Period: 15 * time.Minute, Fn: d.RefData.RefreshPrices},
		{Name: "fiat_rates_refresh", Period: time.Hour, Fn: d.RefData.RefreshFiat},

		{Name: "ingest_recent", Period: time.Minute, Fn: d.ingestRecent},

		{Name: "pairs_last_traded_recompute", Period: 10 * time.Second, Fn: d.Recompute.RecomputePairsLastTraded},
		{Name: "coin_volumes_24h_recompute", Period: 20 * time.Second, Fn: volumes(stats.Last24h, d.Recompute.RecomputeCoinVolumes)},
		{Name: "coin_volumes_14d_recompute", Period: 120 * time.Second, Fn: volumes(stats.Last14d, d.Recompute.RecomputeCoinVolumes)},
		{Name: "coin_volumes_alltime_recompute", Period: 300 * time.Second, Fn: volumes(stats.AllTime, d.Recompute.RecomputeCoinVolumes)},
		{Name: "pair_volumes_24h_recompute", Period: 30 * time.Second, Fn: volumes(stats.Last24h, d.Recompute.RecomputePairVolumes)},
		{Name: "pair_volumes_14d_recompute", Period: 120 * time.Second, Fn: volumes(stats.Last14d, d.Recompute.RecomputePairVolumes)},
		{Name: "pair_volumes_alltime_recompute", Period: 300 * time.Second, Fn: volumes(stats.AllTime, d.Recompute.RecomputePairVolumes)},
		{Name: "tickers_recompute", Period: 10 * time.Second, Fn: d.tickers},
		{Name: "orderbook_extended_recompute", Period: 60 * time.Second, Fn: volumes(stats.Last24h, d.Recompute.RecomputeOrderbookExtended)},
		{Name: "orderbook_prefetch_top_pairs", Period: 60 * time.Second, Fn: d.prefetch},
	}
}

// bootstrap loads reference data in dependency order, then backfills the bootstrap window.
// Every tick retries the steps still missing; once the backfill is committed it is a no-op.
func (d TaskDeps) bootstrap(ctx context.Context) error {
	st := d.boot
	if st == nil {
		st = &bootstrapState{}
	}
	if st.ingested.Load() {
		return nil
	}

	d.bootStep(ctx, &st.coins, "coin config", d.RefData.RefreshCoinConfig)
	d.bootStep(ctx, &st.prices, "prices", d.RefData.RefreshPrices)
	d.bootStep(ctx, &st.fiat, "fiat rates", d.RefData.RefreshFiat)

	res, err := d.Ingest.Recent(ctx, d.IngestCfg.BootstrapWindow)
	if err != nil {
		return fmt.Errorf("failed bootstrap ingest, retry in %s, error=%w", bootstrapRetry, err)
	}
	st.ingested.Store(true)

	d.Log.Infof("Bootstrap ingest done, fetched=%d, inserted=%d, updated=%d", res.Fetched, res.Inserted, res.Updated)
	return nil
}

func (d TaskDeps) bootStep(ctx context.Context, done *atomic.Bool, name string, fn func(context.Context) error) {
	if done.Load() {
		return
	}
	if err := fn(ctx); err != nil {
		d.Log.Warnf("Initial %s refresh failed, error=%v", name, err)
		return
	}
	done.Store(true)
}

func (d TaskDeps) ingestRecent(ctx context.Context) error {
	res, err := d.Ingest.Recent(ctx, d.IngestCfg.RecentWindow)
	if errors.Is(err, ingest.ErrNoPrices) {
		d.Log.Warnf("Ingest skipped, price table is not loaded yet")
		return nil
	}
	if err != nil {
		return err
	}
	d.Log.Debugf("Ingest done, fetched=%d, inserted=%d, updated=%d, conflicts=%d", res.Fetched, res.Inserted, res.Updated, res.Conflicts)
	return nil
}

func (d TaskDeps) tickers(ctx context.Context) error {
	return d.Recompute.RecomputeTickers(ctx, d.StatsCfg.PairsDays)
}

// prefetch refreshes the merged books of the most liquid pairs of the last published tickers
func (d TaskDeps) prefetch(ctx context.Context) error {
	ts, ok := cache.GetJSON[stats.Tickers](ctx, d.Plane, cache.KeyTickers)
	if !ok {
		d.Log.Debugf("Orderbook prefetch skipped, no tickers published yet")
		return nil
	}

	var failed int
	for _, pair := range stats.TopPairs(ts, d.StatsCfg.PrefetchTopN) {
		if err := d.Books.RefreshMerged(ctx, pair); err != nil {
			failed++
			d.Log.Warnf("Orderbook prefetch failed, pair=%s, error=%v", pair, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	if failed > 0 {
		return fmt.Errorf("failed prefetch %d orderbooks", failed)
	}
	return nil
}
