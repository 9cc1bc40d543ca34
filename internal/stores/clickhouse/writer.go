package clickhouse

import (
	"context"
	"errors"
	"sync"
	"time"

	"swapstats/internal/config"
	"swapstats/internal/domain"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"gitlab.com/nevasik7/alerting/logger"
)

var ErrWriterClosed = errors.New("clickhouse writer closed")

// ArchiveRow is one canonical swap as the archive stores it
type ArchiveRow struct {
	UUID              string
	StartedAt         time.Time
	FinishedAt        time.Time
	MakerCoin         string
	TakerCoin         string
	MakerAmount       string // Decimal(38,18), sent as string
	TakerAmount       string
	MakerCoinUSDPrice string
	TakerCoinUSDPrice string
	Pair              string
	PairStd           string
	TradeType         string
	Price             string
	IsSuccess         int8
	LastUpdated       time.Time
}

func ToArchiveRow(s domain.Swap) ArchiveRow {
	return ArchiveRow{
		UUID:              s.UUID,
		StartedAt:         time.Unix(s.StartedAt, 0).UTC(),
		FinishedAt:        time.Unix(s.FinishedAt, 0).UTC(),
		MakerCoin:         s.MakerCoin,
		TakerCoin:         s.TakerCoin,
		MakerAmount:       s.MakerAmount.StringFixed(18),
		TakerAmount:       s.TakerAmount.StringFixed(18),
		MakerCoinUSDPrice: s.MakerCoinUSDPrice.StringFixed(18),
		TakerCoinUSDPrice: s.TakerCoinUSDPrice.StringFixed(18),
		Pair:              s.Pair,
		PairStd:           s.PairStd,
		TradeType:         string(s.TradeType),
		Price:             s.Price.StringFixed(18),
		IsSuccess:         int8(s.IsSuccess),
		LastUpdated:       time.Unix(s.LastUpdated, 0).UTC(),
	}
}

// Writer batches archive rows in the background
type Writer struct {
	log    logger.Logger
	conn   ch.Conn
	cfg    config.ClickHouseWriterConfig
	insert func(ctx context.Context, rows []ArchiveRow) error

	mu     sync.RWMutex
	closed bool
	inCh   chan ArchiveRow
	wg     sync.WaitGroup
}

func NewWriter(log logger.Logger, conn ch.Conn, cfg config.ClickHouseWriterConfig) *Writer {
	w := newWriter(log, cfg, nil)
	w.conn = conn
	w.insert = w.insertBatch
	w.start()
	return w
}

func newWriter(log logger.Logger, cfg config.ClickHouseWriterConfig, insert func(context.Context, []ArchiveRow) error) *Writer {
	// sane defaults
	if cfg.BatchMaxRows <= 0 {
		cfg.BatchMaxRows = 1000
	}
	if cfg.BatchMaxInterval <= 0 {
		cfg.BatchMaxInterval = time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 200 * time.Millisecond
	}

	return &Writer{
		log:    log,
		cfg:    cfg,
		insert: insert,
		inCh:   make(chan ArchiveRow, 8192),
	}
}

func (w *Writer) start() {
	w.wg.Add(1)
	go w.loop()
}

// Archive enqueues committed canonical rows; it blocks only while the buffer is full
func (w *Writer) Archive(ctx context.Context, rows []domain.Swap) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return ErrWriterClosed
	}

	for i := range rows {
		select {
		case w.inCh <- ToArchiveRow(rows[i]):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Close flushes what is buffered; safe to call more than once
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.inCh)
	}
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) loop() {
	defer w.wg.Done()

	batch := make([]ArchiveRow, 0, w.cfg.BatchMaxRows)
	ticker := time.NewTicker(w.cfg.BatchMaxInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := w.withRetry(batch); err != nil {
			w.log.Errorf("Failed insert [%d] rows by batch to clickhouse, error=%v", len(batch), err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case row, ok := <-w.inCh:
			if !ok {
				flush()
				return
			}
			batch = append(batch, row)
			if len(batch) >= w.cfg.BatchMaxRows {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// withRetry repeats the insert with exponential delay
func (w *Writer) withRetry(rows []ArchiveRow) error {
	wait := w.cfg.RetryBackoff

	var err error
	for attempt := 0; attempt <= w.cfg.MaxRetries; attempt++ {
		if err = w.insert(context.Background(), rows); err == nil {
			return nil
		}
		if attempt < w.cfg.MaxRetries {
			time.Sleep(wait)
			wait *= 2
		}
	}
	return err
}

func (w *Writer) insertBatch(ctx context.Context, rows []ArchiveRow) error {
	batch, err := w.conn.PrepareBatch(ctx, `INSERT INTO swaps_archive (
		uuid, started_at, finished_at, maker_coin, taker_coin,
		maker_amount, taker_amount, maker_coin_usd_price, taker_coin_usd_price,
		pair, pair_std, trade_type, price, is_success, last_updated)`)
	if err != nil {
		return err
	}

	for i := range rows {
		r := &rows[i]
		if err = batch.Append(
			r.UUID, r.StartedAt, r.FinishedAt, r.MakerCoin, r.TakerCoin,
			r.MakerAmount, r.TakerAmount, r.MakerCoinUSDPrice, r.TakerCoinUSDPrice,
			r.Pair, r.PairStd, r.TradeType, r.Price, r.IsSuccess, r.LastUpdated,
		); err != nil {
			_ = batch.Abort()
			return err
		}
	}

	return batch.Send()
}
