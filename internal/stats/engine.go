package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"swapstats/internal/cache"
	"swapstats/internal/domain"
	"swapstats/internal/pubsub"
	"swapstats/internal/stores/ledger"

	"github.com/shopspring/decimal"
	"gitlab.com/nevasik7/alerting/logger"
)

// SwapReader is the read side of the canonical ledger
type SwapReader interface {
	Query(ctx context.Context, f ledger.Filter) ([]domain.Swap, error)
}

type RefData interface {
	CoinConfigs(ctx context.Context) domain.CoinConfigs
	Prices(ctx context.Context) domain.PriceTable
}

// Books serves live orderbooks: merged per std pair and single variants
type Books interface {
	GetOrderbook(ctx context.Context, pair string, depth int) (domain.Book, error)
	GetVariant(ctx context.Context, pair string, depth int) (domain.Book, error)
}

type Options struct {
	TTL         time.Duration // lifetime of a published artifact
	BookWorkers int
}

// Engine derives market statistics from the canonical ledger and publishes them to the cache plane
type Engine struct {
	log      logger.Logger
	swaps    SwapReader
	ref      RefData
	books    Books
	plane    *cache.Plane
	notifier pubsub.Broadcaster
	opts     Options
	now      func() time.Time
}

func New(log logger.Logger, swaps SwapReader, ref RefData, books Books, plane *cache.Plane, notifier pubsub.Broadcaster, opts Options) (*Engine, error) {
	if swaps == nil || ref == nil || books == nil {
		return nil, errors.New("swap reader, refdata and orderbooks are required")
	}

	// sane defaults
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.BookWorkers <= 0 {
		opts.BookWorkers = 4
	}

	return &Engine{
		log:      log,
		swaps:    swaps,
		ref:      ref,
		books:    books,
		plane:    plane,
		notifier: notifier,
		opts:     opts,
		now:      time.Now,
	}, nil
}

func (e *Engine) successful(ctx context.Context, w Window) ([]domain.Swap, int64, int64, error) {
	from, to := w.Bounds(e.now())
	rows, err := e.swaps.Query(ctx, ledger.Filter{From: from, To: to})
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed query swaps for %s, error=%w", w.Name, err)
	}
	return rows, from, to, nil
}

// oriented is one swap seen from the current canonical orientation of its pair
type oriented struct {
	std     string
	variant string
	base    decimal.Decimal
	quote   decimal.Decimal
	price   decimal.Decimal // quote per base
	swap    *domain.Swap
}

// orient re-keys a row by today's market cap ordering. Rows keep the ordering they
// were written with, so a row may need inverting; bridge duplicates fold into
// their canonical direction.
func orient(s *domain.Swap, prices domain.PriceTable) oriented {
	o := oriented{std: domain.OrderByMarketCap(s.PairStd, prices), variant: s.Pair, price: s.Price, swap: s}
	o.base, o.quote = s.BaseQuoteVolumes()

	reversed := o.std != s.PairStd
	if reversed {
		o.variant = domain.Invert(s.Pair)
	}
	if domain.IsBridgeSwapDuplicate(o.variant, prices) {
		o.variant = domain.Invert(o.variant)
		reversed = !reversed
	}
	if reversed {
		o.base, o.quote = o.quote, o.base
		o.price = s.ReversePrice
	}
	return o
}

func (e *Engine) publish(ctx context.Context, key string, v any) error {
	if e.plane == nil {
		return nil
	}
	if err := cache.SetJSON(ctx, e.plane, key, v, e.opts.TTL); err != nil {
		return fmt.Errorf("failed publish %s, error=%w", key, err)
	}
	if e.notifier != nil {
		event := map[string]any{"key": key, "at": e.now().Unix()}
		if err := e.notifier.Publish(ctx, pubsub.SubjectRecompute, event); err != nil {
			e.log.Warnf("Failed notify recompute of %s, error=%v", key, err)
		}
	}
	e.log.Debugf("Published %s", key)
	return nil
}

// ========== Recompute ==========

func (e *Engine) RecomputePairsLastTraded(ctx context.Context) error {
	v, err := e.PairsLastTraded(ctx)
	if err != nil {
		return err
	}
	return e.publish(ctx, cache.KeyPairsLastTraded, v)
}

func (e *Engine) RecomputeCoinVolumes(ctx context.Context, w Window) error {
	v, err := e.CoinTradeVolumes(ctx, w)
	if err != nil {
		return err
	}
	return e.publish(ctx, cache.CoinVolumesKey(w.Name), v)
}

func (e *Engine) RecomputePairVolumes(ctx context.Context, w Window) error {
	v, err := e.PairTradeVolumes(ctx, w)
	if err != nil {
		return err
	}
	return e.publish(ctx, cache.PairVolumesKey(w.Name), v)
}

func (e *Engine) RecomputeTickers(ctx context.Context, days int) error {
	v, err := e.Tickers(ctx, days)
	if err != nil {
		return err
	}
	return e.publish(ctx, cache.KeyTickers, v)
}

func (e *Engine) RecomputeOrderbookExtended(ctx context.Context, w Window) error {
	v, err := e.OrderbookExtended(ctx, w)
	if err != nil {
		return err
	}
	return e.publish(ctx, cache.KeyOrderbookExtended, v)
}
