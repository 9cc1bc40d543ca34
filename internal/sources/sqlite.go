package sources

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"swapstats/internal/domain"

	_ "github.com/glebarez/go-sqlite"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"gitlab.com/nevasik7/alerting/logger"
)

// NodeSchema is the per-node stats_swaps table
const NodeSchema = `
CREATE TABLE IF NOT EXISTS stats_swaps (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	uuid VARCHAR(255) NOT NULL UNIQUE,
	maker_coin VARCHAR(255) NOT NULL,
	taker_coin VARCHAR(255) NOT NULL,
	started_at INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	maker_amount DECIMAL NOT NULL,
	taker_amount DECIMAL NOT NULL,
	is_success INTEGER,
	maker_coin_ticker VARCHAR(255),
	maker_coin_platform VARCHAR(255),
	taker_coin_ticker VARCHAR(255),
	taker_coin_platform VARCHAR(255),
	maker_coin_usd_price DECIMAL,
	taker_coin_usd_price DECIMAL,
	maker_pubkey VARCHAR(255),
	taker_pubkey VARCHAR(255),
	maker_gui VARCHAR(255),
	taker_gui VARCHAR(255),
	maker_version VARCHAR(255),
	taker_version VARCHAR(255)
);`

const nodeSelect = `
SELECT uuid, maker_coin, taker_coin,
	CAST(started_at AS INTEGER) AS started_at, CAST(finished_at AS INTEGER) AS finished_at,
	CAST(maker_amount AS TEXT) AS maker_amount, CAST(taker_amount AS TEXT) AS taker_amount,
	is_success,
	CAST(maker_coin_usd_price AS TEXT) AS maker_coin_usd_price,
	CAST(taker_coin_usd_price AS TEXT) AS taker_coin_usd_price,
	maker_pubkey, taker_pubkey, maker_gui, taker_gui, maker_version, taker_version
FROM stats_swaps
WHERE ((finished_at >= ? AND finished_at <= ?) OR (finished_at = 0 AND started_at >= ? AND started_at <= ?))`

type nodeRow struct {
	UUID              string              `db:"uuid"`
	MakerCoin         string              `db:"maker_coin"`
	TakerCoin         string              `db:"taker_coin"`
	StartedAt         sql.NullInt64       `db:"started_at"`
	FinishedAt        sql.NullInt64       `db:"finished_at"`
	MakerAmount       decimal.NullDecimal `db:"maker_amount"`
	TakerAmount       decimal.NullDecimal `db:"taker_amount"`
	IsSuccess         sql.NullInt64       `db:"is_success"`
	MakerCoinUSDPrice decimal.NullDecimal `db:"maker_coin_usd_price"`
	TakerCoinUSDPrice decimal.NullDecimal `db:"taker_coin_usd_price"`
	MakerPubkey       sql.NullString      `db:"maker_pubkey"`
	TakerPubkey       sql.NullString      `db:"taker_pubkey"`
	MakerGUI          sql.NullString      `db:"maker_gui"`
	TakerGUI          sql.NullString      `db:"taker_gui"`
	MakerVersion      sql.NullString      `db:"maker_version"`
	TakerVersion      sql.NullString      `db:"taker_version"`
}

// denullify: NULL numerics -> 0, NULL strings -> ""
func (r nodeRow) raw(source string) domain.RawSwap {
	state := domain.SwapUnknown
	if r.IsSuccess.Valid {
		switch {
		case r.IsSuccess.Int64 > 0:
			state = domain.SwapSucceeded
		case r.IsSuccess.Int64 == 0:
			state = domain.SwapFailed
		}
	}

	out := domain.RawSwap{
		Source:            source,
		UUID:              r.UUID,
		StartedAt:         r.StartedAt.Int64,
		FinishedAt:        r.FinishedAt.Int64,
		MakerCoin:         r.MakerCoin,
		TakerCoin:         r.TakerCoin,
		MakerAmount:       r.MakerAmount.Decimal,
		TakerAmount:       r.TakerAmount.Decimal,
		MakerCoinUSDPrice: r.MakerCoinUSDPrice.Decimal,
		TakerCoinUSDPrice: r.TakerCoinUSDPrice.Decimal,
		MakerPubkey:       r.MakerPubkey.String,
		TakerPubkey:       r.TakerPubkey.String,
		MakerGUI:          r.MakerGUI.String,
		TakerGUI:          r.TakerGUI.String,
		MakerVersion:      r.MakerVersion.String,
		TakerVersion:      r.TakerVersion.String,
		IsSuccess:         state,
	}
	normaliseIdentity(&out)
	return out
}

// SQLiteSource reads the stats_swaps table of one swap node
type SQLiteSource struct {
	log  logger.Logger
	db   *sqlx.DB
	name string
}

// OpenSQLite opens path read-only
func OpenSQLite(ctx context.Context, log logger.Logger, path string) (*SQLiteSource, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", path)

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed open node sqlite %s, error=%w", path, err)
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed ping node sqlite %s, error=%w", path, err)
	}

	return &SQLiteSource{
		log:  log,
		db:   db,
		name: "node:" + filepath.Base(path),
	}, nil
}

func (s *SQLiteSource) Name() string {
	return s.name
}

func (s *SQLiteSource) Kind() Kind {
	return KindNode
}

func (s *SQLiteSource) FetchSwaps(ctx context.Context, r Range, f Filter) ([]domain.RawSwap, error) {
	query := nodeSelect
	switch f.Status {
	case StatusSuccess:
		query += " AND is_success = 1"
	case StatusFailed:
		query += " AND is_success = 0"
	}
	query += " ORDER BY finished_at"

	var rows []nodeRow
	if err := s.db.SelectContext(ctx, &rows, query, r.From, r.To, r.From, r.To); err != nil {
		return nil, fmt.Errorf("failed select stats_swaps from %s, error=%w", s.name, err)
	}

	out := make([]domain.RawSwap, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.raw(s.name))
	}
	s.log.Debugf("Fetched %d swaps from %s, range=[%d,%d]", len(out), s.name, r.From, r.To)
	return out, nil
}

func (s *SQLiteSource) Close() error {
	return s.db.Close()
}
