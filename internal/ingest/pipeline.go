package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"swapstats/internal/domain"
	"swapstats/internal/metrics"
	"swapstats/internal/pubsub"
	"swapstats/internal/sources"
	"swapstats/internal/stores/ledger"

	"gitlab.com/nevasik7/alerting/logger"
)

var (
	ErrNoPrices      = errors.New("price table is empty")
	ErrSourcesFailed = errors.New("every source failed")
)

// PriceReader yields the current price table used to order new pairs
type PriceReader interface {
	Prices(ctx context.Context) domain.PriceTable
}

// Archiver receives canonical rows after they are committed
type Archiver interface {
	Archive(ctx context.Context, rows []domain.Swap) error
}

type Deps struct {
	Store    *ledger.Store
	Sources  []sources.Source
	Prices   PriceReader
	Archiver Archiver           // optional
	Notifier pubsub.Broadcaster // optional
}

type Result struct {
	From          int64    `json:"from"`
	To            int64    `json:"to"`
	Fetched       int      `json:"fetched"`
	Skipped       int      `json:"skipped"`
	Inserted      int      `json:"inserted"`
	Updated       int      `json:"updated"`
	Unchanged     int      `json:"unchanged"`
	Conflicts     int      `json:"conflicts"`
	FailedSources []string `json:"failed_sources,omitempty"`
}

type Pipeline struct {
	log  logger.Logger
	deps Deps
	now  func() time.Time
}

func New(log logger.Logger, deps Deps) (*Pipeline, error) {
	if deps.Store == nil {
		return nil, errors.New("ledger store is required")
	}
	if deps.Prices == nil {
		return nil, errors.New("price reader is required")
	}

	return &Pipeline{log: log, deps: deps, now: time.Now}, nil
}

// Recent ingests [now - w, now]
func (p *Pipeline) Recent(ctx context.Context, w time.Duration) (Result, error) {
	return p.Ingest(ctx, sources.LastWindow(p.now(), w))
}

// Ingest pulls the window from every source and commits the reconciled rows in one transaction
func (p *Pipeline) Ingest(ctx context.Context, w sources.Range) (Result, error) {
	res := Result{From: w.From, To: w.To}

	prices := p.deps.Prices.Prices(ctx)
	if len(prices) == 0 {
		return res, ErrNoPrices
	}

	batch, order := p.collect(ctx, w, prices, &res)
	if len(p.deps.Sources) > 0 && len(res.FailedSources) == len(p.deps.Sources) {
		return res, ErrSourcesFailed
	}
	if len(batch) == 0 {
		return res, nil
	}

	var written []domain.Swap
	err := p.deps.Store.WithTx(ctx, func(tx *ledger.Tx) error {
		written = written[:0]
		res.Inserted, res.Updated, res.Unchanged, res.Conflicts = 0, 0, 0, 0

		existing, err := tx.GetByUUIDs(ctx, order)
		if err != nil {
			return err
		}

		now := p.now().Unix()
		for _, uuid := range order {
			row := batch[uuid]

			cur, ok := existing[uuid]
			if !ok {
				row.LastUpdated = now
				if err = tx.Insert(ctx, row); err != nil {
					return err
				}
				res.Inserted++
				written = append(written, row)
				continue
			}

			merged, conflicts := ledger.Merge(cur, row)
			p.logConflicts(conflicts)
			res.Conflicts += len(conflicts)

			if ledger.Same(merged, cur) {
				res.Unchanged++
				continue
			}
			merged.LastUpdated = now
			if err = tx.Update(ctx, merged); err != nil {
				return err
			}
			res.Updated++
			written = append(written, merged)
		}
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("failed commit ingest window, error=%w", err)
	}

	metrics.IngestRows.WithLabelValues("insert").Add(float64(res.Inserted))
	metrics.IngestRows.WithLabelValues("update").Add(float64(res.Updated))
	metrics.IngestRows.WithLabelValues("skip").Add(float64(res.Skipped))

	p.afterCommit(ctx, written, res)
	return res, nil
}

// collect fetches and normalises every source, folding rows that share a uuid
func (p *Pipeline) collect(ctx context.Context, w sources.Range, prices domain.PriceTable, res *Result) (map[string]domain.Swap, []string) {
	batch := make(map[string]domain.Swap)

	for _, src := range p.deps.Sources {
		raws, err := src.FetchSwaps(ctx, w, sources.Filter{Status: sources.StatusAll})
		if err != nil {
			p.log.Warnf("Skip source for this tick, source=%s, error=%v", src.Name(), err)
			metrics.SourceErrors.WithLabelValues(src.Name()).Inc()
			res.FailedSources = append(res.FailedSources, src.Name())
			continue
		}
		res.Fetched += len(raws)

		for _, raw := range raws {
			row, ok := Normalise(raw, src.Kind(), prices)
			if !ok {
				p.log.Debugf("Skip unpriceable swap, uuid=%s, source=%s", raw.UUID, src.Name())
				res.Skipped++
				continue
			}

			prev, seen := batch[row.UUID]
			if !seen {
				batch[row.UUID] = row
				continue
			}
			merged, conflicts := ledger.Merge(prev, row)
			p.logConflicts(conflicts)
			batch[row.UUID] = merged
		}
	}

	order := make([]string, 0, len(batch))
	for uuid := range batch {
		order = append(order, uuid)
	}
	sort.Strings(order)

	return batch, order
}

func (p *Pipeline) logConflicts(conflicts []ledger.Conflict) {
	for _, c := range conflicts {
		p.log.Warnf("Conflicting sources, keep existing value, uuid=%s, field=%s, existing=%s, incoming=%s",
			c.UUID, c.Field, c.Existing, c.Incoming)
	}
}

func (p *Pipeline) afterCommit(ctx context.Context, written []domain.Swap, res Result) {
	if p.deps.Archiver != nil && len(written) > 0 {
		if err := p.deps.Archiver.Archive(ctx, written); err != nil {
			p.log.Errorf("Failed archive [%d] swaps, error=%v", len(written), err)
		}
	}

	if p.deps.Notifier != nil {
		if err := p.deps.Notifier.Publish(ctx, pubsub.SubjectIngest, res); err != nil {
			p.log.Errorf("Failed publish ingest result, error=%v", err)
		}
	}

	p.log.Infof("Ingested window [%d, %d], fetched=%d, inserted=%d, updated=%d, unchanged=%d, skipped=%d",
		res.From, res.To, res.Fetched, res.Inserted, res.Updated, res.Unchanged, res.Skipped)
}
