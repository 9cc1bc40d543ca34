package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"swapstats/internal/config"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"gitlab.com/nevasik7/alerting/logger"
)

// archive copy of the canonical ledger, decimals kept as Decimal(38,18)
const archiveDDL = `
CREATE TABLE IF NOT EXISTS swaps_archive (
	uuid String,
	started_at DateTime,
	finished_at DateTime,
	maker_coin LowCardinality(String),
	taker_coin LowCardinality(String),
	maker_amount Decimal(38, 18),
	taker_amount Decimal(38, 18),
	maker_coin_usd_price Decimal(38, 18),
	taker_coin_usd_price Decimal(38, 18),
	pair LowCardinality(String),
	pair_std LowCardinality(String),
	trade_type LowCardinality(String),
	price Decimal(38, 18),
	is_success Int8,
	last_updated DateTime
) ENGINE = ReplacingMergeTree(last_updated)
ORDER BY uuid`

type Conn struct {
	Native ch.Conn
}

func New(ctx context.Context, log logger.Logger, cfg *config.ClickHouseConfig) (*Conn, error) {
	if cfg == nil {
		return nil, errors.New("clickhouse config is required")
	}

	opts, err := ch.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed parse DSN ch, error=%w", err)
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	if opts.Compression == nil {
		opts.Compression = &ch.Compression{Method: ch.CompressionLZ4}
	}
	opts.ClientInfo = ch.ClientInfo{
		Products: []struct{ Name, Version string }{{Name: "swapstats", Version: "1.0.0"}},
	}

	conn, err := ch.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed open ch, error=%w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err = conn.Ping(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed ping ch, error=%w", err)
	}
	if err = conn.Exec(pingCtx, archiveDDL); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed create swaps_archive, error=%w", err)
	}

	log.Infof("Successfully connect to clickhouse")
	return &Conn{Native: conn}, nil
}

func (c *Conn) Close() error {
	return c.Native.Close()
}

func (c *Conn) Health(ctx context.Context) error {
	return c.Native.Ping(ctx)
}
