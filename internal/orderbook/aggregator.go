package orderbook

import (
	"context"
	"errors"
	"time"

	"swapstats/internal/cache"
	"swapstats/internal/domain"
	"swapstats/internal/rpc"

	"gitlab.com/nevasik7/alerting/logger"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

type RPC interface {
	Orderbook(ctx context.Context, base, rel string) (*rpc.Orderbook, error)
}

type RefData interface {
	CoinConfigs(ctx context.Context) domain.CoinConfigs
	Prices(ctx context.Context) domain.PriceTable
}

type Options struct {
	TTL          time.Duration // snapshot lifetime
	LockTTL      time.Duration // upper bound of one fetch
	WaitAttempts int
	WaitInterval time.Duration
	Parallel     int // variant fetches in flight for a merged book
}

// Aggregator fetches, caches and merges live orderbooks.
// At most one RPC per canonical key is in flight: singleflight inside the
// process, a cache-plane lock across processes.
type Aggregator struct {
	log   logger.Logger
	plane *cache.Plane
	rpc   RPC
	ref   RefData
	opts  Options
	sf    singleflight.Group
	now   func() time.Time
}

func New(log logger.Logger, plane *cache.Plane, client RPC, ref RefData, opts Options) (*Aggregator, error) {
	if plane == nil || client == nil || ref == nil {
		return nil, errors.New("cache plane, rpc client and refdata are required")
	}

	// sane defaults
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Minute
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Second
	}
	if opts.WaitAttempts <= 0 {
		opts.WaitAttempts = 10
	}
	if opts.WaitInterval <= 0 {
		opts.WaitInterval = 200 * time.Millisecond
	}
	if opts.Parallel <= 0 {
		opts.Parallel = 4
	}

	return &Aggregator{log: log, plane: plane, rpc: client, ref: ref, opts: opts, now: time.Now}, nil
}

// GetOrderbook returns the book for pair quoted in the requested orientation.
// A pair without platform suffixes is the sum of all its tradable variants.
func (a *Aggregator) GetOrderbook(ctx context.Context, pair string, depth int) (domain.Book, error) {
	base, quote, err := domain.BaseQuote(pair)
	if err != nil {
		return domain.Book{}, err
	}

	var book domain.Book
	if domain.HasPlatform(pair) {
		book = a.variant(ctx, base, quote, false)
	} else {
		book = a.merged(ctx, base, quote)
	}
	return Truncate(book, depth), nil
}

// GetVariant serves exactly one variant pair, a plain pair included, without merging
func (a *Aggregator) GetVariant(ctx context.Context, pair string, depth int) (domain.Book, error) {
	base, quote, err := domain.BaseQuote(pair)
	if err != nil {
		return domain.Book{}, err
	}
	return Truncate(a.variant(ctx, base, quote, false), depth), nil
}

// Refresh re-fetches one variant pair regardless of the cached copy
func (a *Aggregator) Refresh(ctx context.Context, pair string) (domain.Book, error) {
	base, quote, err := domain.BaseQuote(pair)
	if err != nil {
		return domain.Book{}, err
	}
	return a.variant(ctx, base, quote, true), nil
}

// RefreshMerged re-fetches every variant of a std pair
func (a *Aggregator) RefreshMerged(ctx context.Context, pairStd string) error {
	configs, prices := a.ref.CoinConfigs(ctx), a.ref.Prices(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Parallel)
	for _, v := range domain.PairVariants(domain.DeplatformPair(pairStd), configs, prices) {
		b, q, err := domain.BaseQuote(v)
		if err != nil || !tradable(configs, b, q) {
			continue
		}
		g.Go(func() error {
			a.variant(gctx, b, q, true)
			return nil
		})
	}
	return g.Wait()
}

func (a *Aggregator) merged(ctx context.Context, base, quote string) domain.Book {
	configs, prices := a.ref.CoinConfigs(ctx), a.ref.Prices(ctx)

	pairStd := domain.MakePair(base, quote)
	canonical := domain.OrderByMarketCap(pairStd, prices)
	cb, cq, _ := domain.BaseQuote(canonical)

	variants := domain.PairVariants(canonical, configs, prices)
	books := make([]domain.Book, len(variants))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Parallel)
	for i, v := range variants {
		vb, vq, err := domain.BaseQuote(v)
		if err != nil || !tradable(configs, vb, vq) {
			continue
		}
		g.Go(func() error {
			books[i] = a.variant(gctx, vb, vq, false)
			return nil
		})
	}
	_ = g.Wait()

	present := books[:0]
	for _, b := range books {
		if b.Pair != "" && len(b.Variants) > 0 {
			present = append(present, b)
		}
	}

	m := Merge(cb, cq, present, a.now().Unix())
	if canonical != pairStd {
		return Reverse(m)
	}
	return m
}

func tradable(configs domain.CoinConfigs, base, quote string) bool {
	return base != quote && configs.Tradable(base) && configs.Tradable(quote)
}

// variant serves one platform-qualified pair; force skips the cache read
func (a *Aggregator) variant(ctx context.Context, base, quote string, force bool) domain.Book {
	configs, prices := a.ref.CoinConfigs(ctx), a.ref.Prices(ctx)
	if !tradable(configs, base, quote) {
		return Template(base, quote, a.now().Unix())
	}

	pair := domain.MakePair(base, quote)
	canonical := domain.OrderByMarketCap(pair, prices)
	cb, cq, _ := domain.BaseQuote(canonical)
	key := cache.OrderbookKey(cb, cq)

	orient := func(b domain.Book) domain.Book {
		if canonical != pair {
			return Reverse(b)
		}
		return b
	}

	if !force {
		if b, ok := cache.GetJSON[domain.Book](ctx, a.plane, key); ok {
			return orient(b)
		}
	}

	v, _, _ := a.sf.Do(key, func() (any, error) {
		// shared by every coalesced caller, so it must not die with the first one
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.opts.LockTTL)
		defer cancel()
		return a.fetch(fctx, cb, cq, key, prices, force), nil
	})
	return orient(v.(domain.Book))
}

func (a *Aggregator) fetch(ctx context.Context, base, quote, key string, prices domain.PriceTable, force bool) domain.Book {
	token, locked := a.plane.AcquireLock(ctx, key, a.opts.LockTTL)
	if !locked {
		// another process is fetching
		if b, ok := cache.GetJSON[domain.Book](ctx, a.plane, key); ok && !force {
			return b
		}
		if _, ok := a.plane.WaitForValue(ctx, key, a.opts.WaitAttempts, a.opts.WaitInterval); ok {
			if b, ok := cache.GetJSON[domain.Book](ctx, a.plane, key); ok {
				return b
			}
		}
		return Template(base, quote, a.now().Unix())
	}
	defer a.plane.ReleaseLock(key, token)

	if !force {
		if b, ok := cache.GetJSON[domain.Book](ctx, a.plane, key); ok {
			return b
		}
	}

	ob, err := a.rpc.Orderbook(ctx, base, quote)
	if err != nil {
		a.log.Warnf("Failed fetch orderbook %s_%s, error=%v", base, quote, err)
		if b, ok := cache.GetJSON[domain.Book](ctx, a.plane, key); ok {
			return b
		}
		return Template(base, quote, a.now().Unix())
	}

	b := build(ob, prices, a.now().Unix())
	if err = cache.SetJSON(ctx, a.plane, key, b, a.opts.TTL); err != nil {
		a.log.Warnf("Failed cache orderbook %s, error=%v", key, err)
	}
	return b
}
