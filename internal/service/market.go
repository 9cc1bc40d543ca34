package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"swapstats/internal/cache"
	"swapstats/internal/domain"
	"swapstats/internal/present"
	"swapstats/internal/stats"
	"swapstats/internal/stores/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gitlab.com/nevasik7/alerting/logger"
)

var ErrInvalidParam = errors.New("invalid parameter")

const (
	defaultTradesLimit = 100
	maxTradesLimit     = 10000
	maxTradesSpan      = 30 * 24 * time.Hour
)

// Ledger is the read side of the canonical swaps table used by request handlers
type Ledger interface {
	Query(ctx context.Context, f ledger.Filter) ([]domain.Swap, error)
	Count(ctx context.Context, f ledger.Filter) (int64, error)
	GetByUUID(ctx context.Context, uuid string) (domain.Swap, error)
	UUIDs(ctx context.Context, f ledger.Filter) ([]string, error)
	Distinct(ctx context.Context, column string, f ledger.Filter) ([]string, error)
	Ping(ctx context.Context) error
}

type Orderbooks interface {
	GetOrderbook(ctx context.Context, pair string, depth int) (domain.Book, error)
}

type RefData interface {
	CoinConfigs(ctx context.Context) domain.CoinConfigs
	Prices(ctx context.Context) domain.PriceTable
	FiatRates(ctx context.Context) map[string]decimal.Decimal
}

// TickerSource computes a ticker row for a single pair on demand
type TickerSource interface {
	TickerInfo(ctx context.Context, pair string, w stats.Window) (stats.Ticker, error)
}

// Health is implemented by optional collaborators (nats, clickhouse)
type Health interface {
	Health(ctx context.Context) error
}

type Options struct {
	DefaultDepth int
	MaxDepth     int
	PairsDays    int
}

// MarketService answers the HTTP surface: published artifacts from the cache plane,
// live orderbooks through the aggregator and bounded trade queries on the ledger.
type MarketService struct {
	log    logger.Logger
	plane  *cache.Plane
	ledger Ledger
	books  Orderbooks
	ref    RefData
	engine TickerSource
	deps   map[string]Health
	opts   Options
	now    func() time.Time
}

func NewMarketService(
	log logger.Logger,
	plane *cache.Plane,
	store Ledger,
	books Orderbooks,
	ref RefData,
	engine TickerSource,
	deps map[string]Health,
	opts Options,
) *MarketService {
	// sane defaults
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 100
	}
	if opts.DefaultDepth <= 0 || opts.DefaultDepth > opts.MaxDepth {
		opts.DefaultDepth = opts.MaxDepth
	}
	if opts.PairsDays <= 0 {
		opts.PairsDays = 7
	}

	return &MarketService{
		log:    log,
		plane:  plane,
		ledger: store,
		books:  books,
		ref:    ref,
		engine: engine,
		deps:   deps,
		opts:   opts,
		now:    time.Now,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParam, fmt.Sprintf(format, args...))
}

func parseInt(raw string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
}

// ========== Published artifacts ==========

// Tickers reads the last published tickers; an empty document until the first recompute
func (s *MarketService) Tickers(ctx context.Context) stats.Tickers {
	if v, ok := cache.GetJSON[stats.Tickers](ctx, s.plane, cache.KeyTickers); ok {
		return v
	}
	s.log.Debugf("Cache miss %s, serving template", cache.KeyTickers)
	return stats.Tickers{
		LastUpdate: s.now().Unix(),
		Range:      stats.Days(s.opts.PairsDays).Name,
		Data:       []stats.Ticker{},
	}
}

// Ticker finds one pair in the published tickers, inverting it for a reverse request.
// Variant pairs are computed on demand. Unknown pairs get a zeroed row.
func (s *MarketService) Ticker(ctx context.Context, pair string) (stats.Ticker, error) {
	base, quote, err := domain.BaseQuote(pair)
	if err != nil {
		return stats.Ticker{}, invalid("pair %q", pair)
	}

	if domain.HasPlatform(pair) && s.engine != nil {
		t, err := s.engine.TickerInfo(ctx, pair, stats.Days(s.opts.PairsDays))
		if err != nil {
			return stats.Ticker{}, fmt.Errorf("failed ticker of %s, error=%w", pair, err)
		}
		return t, nil
	}

	std := domain.DeplatformPair(pair)
	inv := domain.Invert(std)
	for _, t := range s.Tickers(ctx).Data {
		switch t.TickerID {
		case std:
			return t, nil
		case inv:
			return stats.InvertTicker(t), nil
		}
	}

	prices := s.ref.Prices(ctx)
	return stats.Ticker{
		TickerID:      std,
		Pair:          pair,
		Base:          base,
		Quote:         quote,
		Variants:      []string{},
		BasePriceUSD:  prices.USD(base),
		QuotePriceUSD: prices.USD(quote),
		Priced:        prices.PairPriced(pair),
	}, nil
}

func (s *MarketService) PairsLastTraded(ctx context.Context) map[string]stats.LastTraded {
	if v, ok := cache.GetJSON[map[string]stats.LastTraded](ctx, s.plane, cache.KeyPairsLastTraded); ok {
		return v
	}
	return map[string]stats.LastTraded{}
}

// LastTrade of a pair std or one of its variants, in the requested orientation
func (s *MarketService) LastTrade(ctx context.Context, pair string) (stats.LastTraded, error) {
	if _, _, err := domain.BaseQuote(pair); err != nil {
		return stats.LastTraded{}, invalid("pair %q", pair)
	}

	all := s.PairsLastTraded(ctx)
	std := domain.DeplatformPair(pair)

	lookup := func(std, variant string) (stats.LastTraded, bool) {
		lt, ok := all[std]
		if !ok {
			return stats.LastTraded{}, false
		}
		if variant == std {
			return lt, true
		}
		v, ok := lt.Variants[variant]
		return v, ok
	}

	if lt, ok := lookup(std, pair); ok {
		return lt, nil
	}
	if lt, ok := lookup(domain.Invert(std), domain.Invert(pair)); ok {
		lt.LastSwapPrice = invert(lt.LastSwapPrice)
		lt.FirstSwapPrice = invert(lt.FirstSwapPrice)
		lt.Variants = nil
		return lt, nil
	}
	return stats.LastTraded{Priced: s.ref.Prices(ctx).PairPriced(pair)}, nil
}

func invert(d decimal.Decimal) decimal.Decimal {
	if d.IsZero() {
		return d
	}
	return decimal.NewFromInt(1).Div(d)
}

func parseWindow(name string) (string, error) {
	switch name {
	case cache.Window24h, cache.Window14d, cache.WindowAllTime:
		return name, nil
	}
	return "", invalid("window %q, expected one of %s|%s|%s", name, cache.Window24h, cache.Window14d, cache.WindowAllTime)
}

func (s *MarketService) PairVolumes(ctx context.Context, window string) (stats.PairVolumes, error) {
	w, err := parseWindow(window)
	if err != nil {
		return stats.PairVolumes{}, err
	}
	if v, ok := cache.GetJSON[stats.PairVolumes](ctx, s.plane, cache.PairVolumesKey(w)); ok {
		return v, nil
	}
	return stats.PairVolumes{Range: w, Volumes: map[string]map[string]stats.PairVolume{}}, nil
}

func (s *MarketService) CoinVolumes(ctx context.Context, window string) (stats.CoinVolumes, error) {
	w, err := parseWindow(window)
	if err != nil {
		return stats.CoinVolumes{}, err
	}
	if v, ok := cache.GetJSON[stats.CoinVolumes](ctx, s.plane, cache.CoinVolumesKey(w)); ok {
		return v, nil
	}
	return stats.CoinVolumes{Range: w, Volumes: map[string]map[string]stats.CoinVolume{}}, nil
}

func (s *MarketService) OrderbookExtended(ctx context.Context) stats.OrderbookExtended {
	if v, ok := cache.GetJSON[stats.OrderbookExtended](ctx, s.plane, cache.KeyOrderbookExtended); ok {
		return v
	}
	return stats.OrderbookExtended{Pairs: map[string]stats.ExtendedPair{}}
}

// USDVolume24h is the traded USD value of the last day
func (s *MarketService) USDVolume24h(ctx context.Context) decimal.Decimal {
	v, _ := s.PairVolumes(ctx, cache.Window24h)
	return v.TradeVolumeUSD
}

// ========== Reference data ==========

func (s *MarketService) CoinConfigs(ctx context.Context) domain.CoinConfigs {
	if v := s.ref.CoinConfigs(ctx); v != nil {
		return v
	}
	return domain.CoinConfigs{}
}

func (s *MarketService) FiatRates(ctx context.Context) map[string]decimal.Decimal {
	if v := s.ref.FiatRates(ctx); v != nil {
		return v
	}
	return map[string]decimal.Decimal{}
}

// ========== Orderbook ==========

// ParseDepth: empty means the default, otherwise 1..MaxDepth
func (s *MarketService) ParseDepth(raw string) (int, error) {
	if raw == "" {
		return s.opts.DefaultDepth, nil
	}
	n, err := parseInt(raw)
	if err != nil || n < 1 || n > int64(s.opts.MaxDepth) {
		return 0, invalid("depth %q, expected 1..%d", raw, s.opts.MaxDepth)
	}
	return int(n), nil
}

func (s *MarketService) Orderbook(ctx context.Context, pair string, depth int) (domain.Book, error) {
	book, err := s.books.GetOrderbook(ctx, pair, depth)
	if errors.Is(err, domain.ErrInvalidPair) {
		return domain.Book{}, invalid("pair %q", pair)
	}
	return book, err
}

// ========== Trades ==========

type TradesQuery struct {
	Pair  string
	From  int64
	To    int64
	Limit int
	Type  domain.TradeType // empty = both sides
}

// ParseTradesQuery validates raw query params: unix seconds, from <= to, bounded span and limit
func (s *MarketService) ParseTradesQuery(pair, from, to, limit, side string) (TradesQuery, error) {
	q := TradesQuery{Pair: pair, Limit: defaultTradesLimit}
	if _, _, err := domain.BaseQuote(pair); err != nil {
		return q, invalid("pair %q", pair)
	}

	now := s.now()
	q.To = now.Unix()
	if to != "" {
		v, err := parseInt(to)
		if err != nil || v <= 0 {
			return q, invalid("end_time %q", to)
		}
		q.To = v
	}
	q.From = q.To - int64((24 * time.Hour).Seconds())
	if from != "" {
		v, err := parseInt(from)
		if err != nil || v < 0 {
			return q, invalid("start_time %q", from)
		}
		q.From = v
	}
	if q.From > q.To {
		return q, invalid("start_time after end_time")
	}
	if q.To-q.From > int64(maxTradesSpan.Seconds()) {
		return q, invalid("range longer than %s", maxTradesSpan)
	}

	if limit != "" {
		v, err := parseInt(limit)
		if err != nil || v < 1 || v > maxTradesLimit {
			return q, invalid("limit %q, expected 1..%d", limit, maxTradesLimit)
		}
		q.Limit = int(v)
	}

	switch strings.ToLower(side) {
	case "":
	case string(domain.TradeBuy):
		q.Type = domain.TradeBuy
	case string(domain.TradeSell):
		q.Type = domain.TradeSell
	default:
		return q, invalid("type %q, expected buy|sell", side)
	}
	return q, nil
}

// Trades quotes the successful swaps of a pair in the requested orientation, newest first.
// A pair without platforms includes every variant.
func (s *MarketService) Trades(ctx context.Context, q TradesQuery) ([]present.Trade, error) {
	rows, err := s.ledger.Query(ctx, ledger.Filter{
		From:      q.From,
		To:        q.To,
		Pair:      q.Pair,
		TradeType: string(q.Type),
		Limit:     q.Limit,
		Desc:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed query trades of %s, error=%w", q.Pair, err)
	}

	out := make([]present.Trade, 0, len(rows))
	for _, row := range rows {
		out = append(out, present.TradeFor(row, q.Pair))
	}
	return out, nil
}

// Last24hSwaps returns every successful swap of the last day, newest first
func (s *MarketService) Last24hSwaps(ctx context.Context) ([]domain.Swap, error) {
	now := s.now()
	rows, err := s.ledger.Query(ctx, ledger.Filter{From: now.Add(-24 * time.Hour).Unix(), To: now.Unix(), Desc: true})
	if err != nil {
		return nil, fmt.Errorf("failed query last 24h swaps, error=%w", err)
	}
	return rows, nil
}

// Swaps24hForCoin counts the successful swaps of the last day touching coin (ticker or variant)
func (s *MarketService) Swaps24hForCoin(ctx context.Context, coin string) (int64, error) {
	if coin == "" {
		return 0, invalid("coin is required")
	}
	now := s.now()
	return s.ledger.Count(ctx, ledger.Filter{Coin: coin, From: now.Add(-24 * time.Hour).Unix(), To: now.Unix()})
}

// ========== Swaps ==========

func (s *MarketService) Swap(ctx context.Context, id string) (domain.Swap, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Swap{}, invalid("uuid %q", id)
	}
	return s.ledger.GetByUUID(ctx, id)
}

// SwapsQuery filters the swap listing endpoints
type SwapsQuery struct {
	From    int64
	To      int64
	Coin    string
	Pair    string
	Pubkey  string
	GUI     string
	Version string
	Limit   int
}

func (q SwapsQuery) filter(status ledger.Status) (ledger.Filter, error) {
	if q.From < 0 || q.To < 0 || (q.To > 0 && q.From > q.To) {
		return ledger.Filter{}, invalid("time range %d..%d", q.From, q.To)
	}
	if q.Pair != "" {
		if _, _, err := domain.BaseQuote(q.Pair); err != nil {
			return ledger.Filter{}, invalid("pair %q", q.Pair)
		}
	}
	if q.Limit < 0 || q.Limit > maxTradesLimit {
		return ledger.Filter{}, invalid("limit %d, expected 0..%d", q.Limit, maxTradesLimit)
	}
	return ledger.Filter{
		From:    q.From,
		To:      q.To,
		Coin:    q.Coin,
		Pair:    q.Pair,
		Pubkey:  q.Pubkey,
		GUI:     q.GUI,
		Version: q.Version,
		Status:  status,
		Limit:   q.Limit,
		Desc:    true,
	}, nil
}

func (s *MarketService) SwapUUIDs(ctx context.Context, q SwapsQuery) ([]string, error) {
	f, err := q.filter(ledger.StatusSuccess)
	if err != nil {
		return nil, err
	}
	return s.ledger.UUIDs(ctx, f)
}

func (s *MarketService) FailedSwaps(ctx context.Context, q SwapsQuery) ([]domain.Swap, error) {
	f, err := q.filter(ledger.StatusFailed)
	if err != nil {
		return nil, err
	}
	return s.ledger.Query(ctx, f)
}

// Distinct values of an enum column over every swap matching q, failed ones included
func (s *MarketService) Distinct(ctx context.Context, column string, q SwapsQuery) ([]string, error) {
	f, err := q.filter(ledger.StatusAll)
	if err != nil {
		return nil, err
	}
	vals, err := s.ledger.Distinct(ctx, column, f)
	if errors.Is(err, ledger.ErrUnknownColumn) {
		return nil, invalid("column %q, expected one of %s", column, strings.Join(ledger.DistinctColumns(), "|"))
	}
	return vals, err
}

// ========== Landing page ==========

func (s *MarketService) Info(ctx context.Context) (present.InfoInput, error) {
	now := s.now()
	in := present.InfoInput{}

	var err error
	if in.SwapsAllTime, err = s.ledger.Count(ctx, ledger.Filter{}); err != nil {
		return in, err
	}
	if in.Swaps30d, err = s.ledger.Count(ctx, ledger.Filter{From: now.Add(-30 * 24 * time.Hour).Unix()}); err != nil {
		return in, err
	}
	if in.Swaps24h, err = s.ledger.Count(ctx, ledger.Filter{From: now.Add(-24 * time.Hour).Unix()}); err != nil {
		return in, err
	}

	in.Volume24hUSD = s.USDVolume24h(ctx)
	in.LiquidityUSD = s.Tickers(ctx).CombinedLiquidityUSD
	return in, nil
}

// ========== Health ==========

func (s *MarketService) CheckDependency(ctx context.Context) error {
	errDependency := make([]string, 0, 2+len(s.deps))

	if err := s.ledger.Ping(ctx); err != nil {
		errDependency = append(errDependency, fmt.Sprintf("Ledger connection error: %v", err))
	}

	if err := s.plane.Ping(ctx); err != nil {
		errDependency = append(errDependency, fmt.Sprintf("Cache connection error: %v", err))
	}

	for name, dep := range s.deps {
		if err := dep.Health(ctx); err != nil {
			errDependency = append(errDependency, fmt.Sprintf("%s: %v", name, err))
		}
	}

	if len(errDependency) > 0 {
		return fmt.Errorf("dependency check failed: %v", strings.Join(errDependency, "; "))
	}

	s.log.Debugf("All dependency check passed")
	return nil
}
