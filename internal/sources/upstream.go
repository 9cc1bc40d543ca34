package sources

import (
	"context"
	"errors"
	"fmt"
	"time"

	"swapstats/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"gitlab.com/nevasik7/alerting/logger"
)

const (
	successSelect = `
SELECT uuid, started_at, maker_coin, taker_coin,
	maker_amount::text, taker_amount::text,
	maker_pubkey, taker_pubkey, maker_gui, taker_gui, maker_version, taker_version
FROM swaps
WHERE started_at >= $1 AND started_at <= $2
ORDER BY started_at`

	failedSelect = `
SELECT uuid, started_at, maker_coin, taker_coin,
	maker_amount::text, taker_amount::text,
	maker_pubkey, taker_pubkey, maker_gui, taker_gui, maker_version, taker_version
FROM swaps_failed
WHERE started_at >= $1 AND started_at <= $2
ORDER BY started_at`
)

// Upstream holds the pool shared by the swaps and swaps_failed sources
type Upstream struct {
	log  logger.Logger
	pool *pgxpool.Pool
}

func NewUpstream(ctx context.Context, log logger.Logger, dsn string, maxConns int32) (*Upstream, error) {
	if dsn == "" {
		return nil, errors.New("upstream dsn is required")
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed parse upstream dsn, error=%w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed create upstream pool, error=%w", err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed ping upstream, error=%w", err)
	}

	log.Infof("Connected to upstream swaps database, host=%s", cfg.ConnConfig.Host)
	return &Upstream{log: log, pool: pool}, nil
}

// Sources: successful then failed table
func (u *Upstream) Sources() []Source {
	return []Source{
		&upstreamSource{up: u, kind: KindSuccess, query: successSelect, name: "upstream:swaps"},
		&upstreamSource{up: u, kind: KindFailed, query: failedSelect, name: "upstream:swaps_failed"},
	}
}

func (u *Upstream) Close() error {
	u.pool.Close()
	return nil
}

type upstreamSource struct {
	up    *Upstream
	kind  Kind
	query string
	name  string
}

func (s *upstreamSource) Name() string {
	return s.name
}

func (s *upstreamSource) Kind() Kind {
	return s.kind
}

// Close is a no-op, the pool belongs to Upstream
func (s *upstreamSource) Close() error {
	return nil
}

func (s *upstreamSource) FetchSwaps(ctx context.Context, r Range, f Filter) ([]domain.RawSwap, error) {
	if (f.Status == StatusSuccess && s.kind == KindFailed) || (f.Status == StatusFailed && s.kind == KindSuccess) {
		return nil, nil
	}

	rows, err := s.up.pool.Query(ctx, s.query, time.Unix(r.From, 0).UTC(), time.Unix(r.To, 0).UTC())
	if err != nil {
		return nil, fmt.Errorf("failed query %s, error=%w", s.name, err)
	}

	scanned, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (upstreamRow, error) {
		var u upstreamRow
		err := row.Scan(&u.UUID, &u.StartedAt, &u.MakerCoin, &u.TakerCoin, &u.MakerAmount, &u.TakerAmount,
			&u.MakerPubkey, &u.TakerPubkey, &u.MakerGUI, &u.TakerGUI, &u.MakerVersion, &u.TakerVersion)
		return u, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed scan %s, error=%w", s.name, err)
	}

	out := make([]domain.RawSwap, 0, len(scanned))
	for _, u := range scanned {
		raw, err := u.raw(s.name)
		if err != nil {
			s.up.log.Warnf("Skip %s row uuid=%s, error=%v", s.name, u.UUID, err)
			continue
		}
		out = append(out, raw)
	}
	return out, nil
}

type upstreamRow struct {
	UUID         string
	StartedAt    time.Time
	MakerCoin    string
	TakerCoin    string
	MakerAmount  *string
	TakerAmount  *string
	MakerPubkey  *string
	TakerPubkey  *string
	MakerGUI     *string
	TakerGUI     *string
	MakerVersion *string
	TakerVersion *string
}

// the upstream tables carry no finished_at and no usd prices
func (u upstreamRow) raw(source string) (domain.RawSwap, error) {
	makerAmount, err := parseAmount(u.MakerAmount)
	if err != nil {
		return domain.RawSwap{}, fmt.Errorf("bad maker_amount, error=%w", err)
	}
	takerAmount, err := parseAmount(u.TakerAmount)
	if err != nil {
		return domain.RawSwap{}, fmt.Errorf("bad taker_amount, error=%w", err)
	}

	started := u.StartedAt.UTC().Unix()
	out := domain.RawSwap{
		Source:       source,
		UUID:         u.UUID,
		StartedAt:    started,
		MakerCoin:    u.MakerCoin,
		TakerCoin:    u.TakerCoin,
		MakerAmount:  makerAmount,
		TakerAmount:  takerAmount,
		MakerPubkey:  deref(u.MakerPubkey),
		TakerPubkey:  deref(u.TakerPubkey),
		MakerGUI:     deref(u.MakerGUI),
		TakerGUI:     deref(u.TakerGUI),
		MakerVersion: deref(u.MakerVersion),
		TakerVersion: deref(u.TakerVersion),
		IsSuccess:    domain.SwapUnknown,
	}
	normaliseIdentity(&out)
	return out, nil
}

func parseAmount(s *string) (decimal.Decimal, error) {
	if s == nil || *s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(*s)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
