package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"swapstats/internal/domain"

	_ "github.com/glebarez/go-sqlite"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"gitlab.com/nevasik7/alerting/logger"
)

var ErrUUIDNotFound = errors.New("swap uuid not found")

const lookupChunk = 500

// Store is the canonical swaps table
type Store struct {
	log    logger.Logger
	db     *sqlx.DB
	driver string
}

type Config struct {
	Driver       string
	DSN          string
	MaxOpenConns int
}

func Open(ctx context.Context, log logger.Logger, cfg Config) (*Store, error) {
	switch cfg.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported ledger driver %q", cfg.Driver)
	}
	if cfg.DSN == "" {
		return nil, errors.New("ledger dsn is required")
	}

	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed open ledger, error=%w", err)
	}

	if cfg.Driver == DriverSQLite {
		// one writer; in-memory databases live per connection
		db.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed ping ledger, error=%w", err)
	}

	log.Infof("Successfully open ledger, driver=%s", cfg.Driver)
	return &Store{log: log, db: db, driver: cfg.Driver}, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema(s.driver)); err != nil {
		return fmt.Errorf("failed migrate ledger, error=%w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ========== Reads ==========

func (s *Store) Query(ctx context.Context, f Filter) ([]domain.Swap, error) {
	where, args := f.where()
	q := "SELECT " + columns + " FROM swaps" + where + f.order()
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	var out []domain.Swap
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("failed query swaps, error=%w", err)
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, f Filter) (int64, error) {
	where, args := f.where()

	var n int64
	if err := s.db.GetContext(ctx, &n, s.db.Rebind("SELECT COUNT(*) FROM swaps"+where), args...); err != nil {
		return 0, fmt.Errorf("failed count swaps, error=%w", err)
	}
	return n, nil
}

// First swap by finished_at matching f
func (s *Store) First(ctx context.Context, f Filter) (domain.Swap, bool, error) {
	f.Desc, f.Limit = false, 1
	return s.one(ctx, f)
}

// Last swap by finished_at matching f
func (s *Store) Last(ctx context.Context, f Filter) (domain.Swap, bool, error) {
	f.Desc, f.Limit = true, 1
	return s.one(ctx, f)
}

func (s *Store) one(ctx context.Context, f Filter) (domain.Swap, bool, error) {
	rows, err := s.Query(ctx, f)
	if err != nil || len(rows) == 0 {
		return domain.Swap{}, false, err
	}
	return rows[0], true, nil
}

func (s *Store) GetByUUID(ctx context.Context, uuid string) (domain.Swap, error) {
	var out domain.Swap
	err := s.db.GetContext(ctx, &out, s.db.Rebind("SELECT "+columns+" FROM swaps WHERE uuid = ?"), uuid)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Swap{}, ErrUUIDNotFound
	}
	if err != nil {
		return domain.Swap{}, fmt.Errorf("failed get swap, error=%w", err)
	}
	return out, nil
}

func (s *Store) UUIDs(ctx context.Context, f Filter) ([]string, error) {
	where, args := f.where()
	q := "SELECT uuid FROM swaps" + where + f.order()
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	var out []string
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("failed select uuids, error=%w", err)
	}
	return out, nil
}

// Distinct enumerates the values of a whitelisted column, sorted
func (s *Store) Distinct(ctx context.Context, column string, f Filter) ([]string, error) {
	cols, ok := distinctColumns[column]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}

	where, args := f.where()
	parts := make([]string, 0, len(cols))
	allArgs := make([]any, 0, len(args)*len(cols))
	for _, c := range cols {
		parts = append(parts, "SELECT "+c+" AS v FROM swaps"+where)
		allArgs = append(allArgs, args...)
	}
	q := "SELECT DISTINCT v FROM (" + strings.Join(parts, " UNION ") + ") d WHERE v <> '' ORDER BY v"

	var out []string
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(q), allArgs...); err != nil {
		return nil, fmt.Errorf("failed distinct %s, error=%w", column, err)
	}
	return out, nil
}

// ========== Writes ==========

// Tx scopes the ingestion writes of one commit
type Tx struct {
	tx *sqlx.Tx
}

// WithTx commits when fn returns nil, rolls back otherwise
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed begin tx, error=%w", err)
	}

	if err = fn(&Tx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Errorf("Failed rollback ledger tx, error=%v", rbErr)
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed commit tx, error=%w", err)
	}
	return nil
}

func (t *Tx) GetByUUIDs(ctx context.Context, uuids []string) (map[string]domain.Swap, error) {
	out := make(map[string]domain.Swap, len(uuids))

	for start := 0; start < len(uuids); start += lookupChunk {
		end := min(start+lookupChunk, len(uuids))

		q, args, err := sqlx.In("SELECT "+columns+" FROM swaps WHERE uuid IN (?)", uuids[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed build uuid lookup, error=%w", err)
		}

		var rows []domain.Swap
		if err = t.tx.SelectContext(ctx, &rows, t.tx.Rebind(q), args...); err != nil {
			return nil, fmt.Errorf("failed lookup uuids, error=%w", err)
		}
		for _, r := range rows {
			out[r.UUID] = r
		}
	}
	return out, nil
}

func (t *Tx) Insert(ctx context.Context, row domain.Swap) error {
	if _, err := t.tx.NamedExecContext(ctx, insertSQL, row); err != nil {
		return fmt.Errorf("failed insert swap %s, error=%w", row.UUID, err)
	}
	return nil
}

func (t *Tx) Update(ctx context.Context, row domain.Swap) error {
	if _, err := t.tx.NamedExecContext(ctx, updateSQL, row); err != nil {
		return fmt.Errorf("failed update swap %s, error=%w", row.UUID, err)
	}
	return nil
}

// UpsertByUUID inserts a new row or merges it into the existing one
func (s *Store) UpsertByUUID(ctx context.Context, row domain.Swap) ([]Conflict, error) {
	var conflicts []Conflict

	err := s.WithTx(ctx, func(tx *Tx) error {
		existing, err := tx.GetByUUIDs(ctx, []string{row.UUID})
		if err != nil {
			return err
		}

		cur, ok := existing[row.UUID]
		if !ok {
			if row.LastUpdated == 0 {
				row.LastUpdated = time.Now().Unix()
			}
			return tx.Insert(ctx, row)
		}

		merged, c := Merge(cur, row)
		conflicts = c
		if Same(merged, cur) {
			return nil
		}
		merged.LastUpdated = time.Now().Unix()
		return tx.Update(ctx, merged)
	})
	return conflicts, err
}
