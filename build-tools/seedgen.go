//go:build ignore

// Run: go run ./build-tools/seedgen.go -db data/MM2.db -rows 5000 -days 14 -coins KMD,LTC,DOC,MARTY,BTC-segwit,USDC-PLG20

package main

import (
	"context"
	"flag"
	"fmt"
	mrand "math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"swapstats/internal/sources"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const insertSwap = `
INSERT INTO stats_swaps (
	uuid, maker_coin, taker_coin, started_at, finished_at, maker_amount, taker_amount, is_success,
	maker_coin_ticker, maker_coin_platform, taker_coin_ticker, taker_coin_platform,
	maker_coin_usd_price, taker_coin_usd_price, maker_pubkey, taker_pubkey,
	maker_gui, taker_gui, maker_version, taker_version
) VALUES (
	:uuid, :maker_coin, :taker_coin, :started_at, :finished_at, :maker_amount, :taker_amount, :is_success,
	:maker_coin_ticker, :maker_coin_platform, :taker_coin_ticker, :taker_coin_platform,
	:maker_coin_usd_price, :taker_coin_usd_price, :maker_pubkey, :taker_pubkey,
	:maker_gui, :taker_gui, :maker_version, :taker_version
)`

type seedRow struct {
	UUID              string `db:"uuid"`
	MakerCoin         string `db:"maker_coin"`
	TakerCoin         string `db:"taker_coin"`
	StartedAt         int64  `db:"started_at"`
	FinishedAt        int64  `db:"finished_at"`
	MakerAmount       string `db:"maker_amount"`
	TakerAmount       string `db:"taker_amount"`
	IsSuccess         int    `db:"is_success"`
	MakerCoinTicker   string `db:"maker_coin_ticker"`
	MakerCoinPlatform string `db:"maker_coin_platform"`
	TakerCoinTicker   string `db:"taker_coin_ticker"`
	TakerCoinPlatform string `db:"taker_coin_platform"`
	MakerCoinUSDPrice string `db:"maker_coin_usd_price"`
	TakerCoinUSDPrice string `db:"taker_coin_usd_price"`
	MakerPubkey       string `db:"maker_pubkey"`
	TakerPubkey       string `db:"taker_pubkey"`
	MakerGUI          string `db:"maker_gui"`
	TakerGUI          string `db:"taker_gui"`
	MakerVersion      string `db:"maker_version"`
	TakerVersion      string `db:"taker_version"`
}

// rough usd anchors, jittered per swap
var usdPrices = map[string]float64{
	"KMD": 0.25, "LTC": 70, "BTC": 60000, "DOC": 0, "MARTY": 0, "USDC": 1, "ETH": 3000, "DGB": 0.01,
}

var guis = []string{"adex-desktop 0.9.1", "komodo-wallet 0.8.2", "mm2cli", ""}

func main() {
	var (
		dbPath   = flag.String("db", "data/MM2.db", "node sqlite file, created if missing")
		rows     = flag.Int("rows", 1000, "swaps to insert")
		days     = flag.Int("days", 14, "spread started_at over the last N days")
		coins    = flag.String("coins", "KMD,LTC,DOC,MARTY,BTC-segwit,USDC-PLG20", "comma-separated coin tickers")
		failRate = flag.Float64("fail-rate", 0.1, "share of failed swaps")
		batch    = flag.Int("batch", 500, "rows per transaction")
	)
	flag.Parse()

	tickers := splitTrim(*coins)
	if len(tickers) < 2 {
		fmt.Println("need at least two coins")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sqlx.Open("sqlite", fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", *dbPath))
	if err != nil {
		fmt.Printf("open error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if _, err = db.ExecContext(ctx, sources.NodeSchema); err != nil {
		fmt.Printf("schema error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("seedgen → db=%s rows=%d days=%d coins=%s\n", *dbPath, *rows, *days, strings.Join(tickers, ","))

	now := time.Now().Unix()
	span := int64(*days) * 86400
	written := 0

	for written < *rows {
		if ctx.Err() != nil {
			fmt.Println("signal received, stopping…")
			break
		}

		n := min(*batch, *rows-written)
		chunk := make([]seedRow, 0, n)
		for i := 0; i < n; i++ {
			chunk = append(chunk, randomSwap(tickers, now-mrand.Int63n(span), *failRate))
		}

		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			fmt.Printf("begin error: %v\n", err)
			os.Exit(1)
		}
		if _, err = tx.NamedExecContext(ctx, insertSwap, chunk); err != nil {
			_ = tx.Rollback()
			fmt.Printf("insert error: %v\n", err)
			os.Exit(1)
		}
		if err = tx.Commit(); err != nil {
			fmt.Printf("commit error: %v\n", err)
			os.Exit(1)
		}
		written += n
	}

	fmt.Printf("done, inserted=%d\n", written)
}

func randomSwap(tickers []string, startedAt int64, failRate float64) seedRow {
	mi := mrand.Intn(len(tickers))
	ti := mrand.Intn(len(tickers) - 1)
	if ti >= mi {
		ti++
	}
	maker, taker := tickers[mi], tickers[ti]
	makerTicker, makerPlatform := splitCoin(maker)
	takerTicker, takerPlatform := splitCoin(taker)

	makerUSD := jitter(usdPrices[makerTicker])
	takerUSD := jitter(usdPrices[takerTicker])

	makerAmount := 1 + mrand.Float64()*500
	takerAmount := makerAmount * (0.5 + mrand.Float64())
	if makerUSD > 0 && takerUSD > 0 {
		takerAmount = makerAmount * makerUSD / takerUSD * (0.98 + mrand.Float64()*0.04)
	}

	success, finishedAt := 1, startedAt+60+mrand.Int63n(1200)
	if mrand.Float64() < failRate {
		success, finishedAt = 0, 0
	}

	gui := guis[mrand.Intn(len(guis))]
	return seedRow{
		UUID:              uuid.NewString(),
		MakerCoin:         maker,
		TakerCoin:         taker,
		StartedAt:         startedAt,
		FinishedAt:        finishedAt,
		MakerAmount:       fmt.Sprintf("%.8f", makerAmount),
		TakerAmount:       fmt.Sprintf("%.8f", takerAmount),
		IsSuccess:         success,
		MakerCoinTicker:   makerTicker,
		MakerCoinPlatform: makerPlatform,
		TakerCoinTicker:   takerTicker,
		TakerCoinPlatform: takerPlatform,
		MakerCoinUSDPrice: fmt.Sprintf("%.8f", makerUSD),
		TakerCoinUSDPrice: fmt.Sprintf("%.8f", takerUSD),
		MakerPubkey:       randPubkey(),
		TakerPubkey:       randPubkey(),
		MakerGUI:          gui,
		TakerGUI:          guis[mrand.Intn(len(guis))],
		MakerVersion:      "2.1.0-beta",
		TakerVersion:      "2.1.0-beta",
	}
}

// "USDC-PLG20" -> USDC, PLG20
func splitCoin(coin string) (string, string) {
	ticker, platform, _ := strings.Cut(coin, "-")
	return ticker, platform
}

func jitter(p float64) float64 {
	return p * (0.95 + mrand.Float64()*0.1)
}

func randPubkey() string {
	return "02" + strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")[:64]
}

func splitTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
