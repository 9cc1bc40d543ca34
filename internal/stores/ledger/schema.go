package ledger

import "fmt"

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// decimals live as TEXT on sqlite, NUMERIC on postgres; never float
const schemaTmpl = `
CREATE TABLE IF NOT EXISTS swaps (
	uuid VARCHAR(64) PRIMARY KEY,
	started_at BIGINT NOT NULL DEFAULT 0,
	finished_at BIGINT NOT NULL DEFAULT 0,
	duration BIGINT NOT NULL DEFAULT 0,
	maker_coin VARCHAR(128) NOT NULL DEFAULT '',
	taker_coin VARCHAR(128) NOT NULL DEFAULT '',
	maker_coin_ticker VARCHAR(64) NOT NULL DEFAULT '',
	maker_coin_platform VARCHAR(64) NOT NULL DEFAULT '',
	taker_coin_ticker VARCHAR(64) NOT NULL DEFAULT '',
	taker_coin_platform VARCHAR(64) NOT NULL DEFAULT '',
	maker_amount %[1]s NOT NULL,
	taker_amount %[1]s NOT NULL,
	maker_coin_usd_price %[1]s NOT NULL,
	taker_coin_usd_price %[1]s NOT NULL,
	maker_pubkey VARCHAR(128) NOT NULL DEFAULT '',
	taker_pubkey VARCHAR(128) NOT NULL DEFAULT '',
	maker_gui VARCHAR(128) NOT NULL DEFAULT '',
	taker_gui VARCHAR(128) NOT NULL DEFAULT '',
	maker_version VARCHAR(128) NOT NULL DEFAULT '',
	taker_version VARCHAR(128) NOT NULL DEFAULT '',
	is_success SMALLINT NOT NULL DEFAULT -1,
	pair VARCHAR(255) NOT NULL DEFAULT '',
	pair_reverse VARCHAR(255) NOT NULL DEFAULT '',
	pair_std VARCHAR(255) NOT NULL DEFAULT '',
	pair_std_reverse VARCHAR(255) NOT NULL DEFAULT '',
	trade_type VARCHAR(8) NOT NULL DEFAULT '',
	price %[1]s NOT NULL,
	reverse_price %[1]s NOT NULL,
	last_updated BIGINT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS swaps_finished_at_idx ON swaps (finished_at);
CREATE INDEX IF NOT EXISTS swaps_pair_std_idx ON swaps (pair_std);
CREATE INDEX IF NOT EXISTS swaps_pair_idx ON swaps (pair);
`

func schema(driver string) string {
	decType := "TEXT"
	if driver == DriverPostgres {
		decType = "NUMERIC"
	}
	return fmt.Sprintf(schemaTmpl, decType)
}

const columns = `uuid, started_at, finished_at, duration,
	maker_coin, taker_coin, maker_coin_ticker, maker_coin_platform, taker_coin_ticker, taker_coin_platform,
	maker_amount, taker_amount, maker_coin_usd_price, taker_coin_usd_price,
	maker_pubkey, taker_pubkey, maker_gui, taker_gui, maker_version, taker_version,
	is_success, pair, pair_reverse, pair_std, pair_std_reverse, trade_type, price, reverse_price, last_updated`

const insertSQL = `INSERT INTO swaps (` + columns + `) VALUES (
	:uuid, :started_at, :finished_at, :duration,
	:maker_coin, :taker_coin, :maker_coin_ticker, :maker_coin_platform, :taker_coin_ticker, :taker_coin_platform,
	:maker_amount, :taker_amount, :maker_coin_usd_price, :taker_coin_usd_price,
	:maker_pubkey, :taker_pubkey, :maker_gui, :taker_gui, :maker_version, :taker_version,
	:is_success, :pair, :pair_reverse, :pair_std, :pair_std_reverse, :trade_type, :price, :reverse_price, :last_updated)`

const updateSQL = `UPDATE swaps SET
	started_at = :started_at, finished_at = :finished_at, duration = :duration,
	maker_coin = :maker_coin, taker_coin = :taker_coin,
	maker_coin_ticker = :maker_coin_ticker, maker_coin_platform = :maker_coin_platform,
	taker_coin_ticker = :taker_coin_ticker, taker_coin_platform = :taker_coin_platform,
	maker_amount = :maker_amount, taker_amount = :taker_amount,
	maker_coin_usd_price = :maker_coin_usd_price, taker_coin_usd_price = :taker_coin_usd_price,
	maker_pubkey = :maker_pubkey, taker_pubkey = :taker_pubkey, maker_gui = :maker_gui, taker_gui = :taker_gui,
	maker_version = :maker_version, taker_version = :taker_version, is_success = :is_success,
	pair = :pair, pair_reverse = :pair_reverse, pair_std = :pair_std, pair_std_reverse = :pair_std_reverse,
	trade_type = :trade_type, price = :price, reverse_price = :reverse_price, last_updated = :last_updated
WHERE uuid = :uuid`
