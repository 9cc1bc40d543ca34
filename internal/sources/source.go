package sources

import (
	"context"
	"strings"
	"time"

	"swapstats/internal/domain"
)

// Kind decides how ingestion defaults fields a source does not carry
type Kind int

const (
	KindNode Kind = iota
	KindSuccess
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindFailed:
		return "failed"
	default:
		return "node"
	}
}

type Status int

const (
	StatusAll Status = iota
	StatusSuccess
	StatusFailed
)

type Filter struct {
	Status Status
}

// Range of epoch seconds, inclusive
type Range struct {
	From int64
	To   int64
}

// LastWindow = [now - w, now]
func LastWindow(now time.Time, w time.Duration) Range {
	return Range{From: now.Add(-w).Unix(), To: now.Unix()}
}

// Source is a read-only swap ledger
type Source interface {
	Name() string
	Kind() Kind
	FetchSwaps(ctx context.Context, r Range, f Filter) ([]domain.RawSwap, error)
	Close() error
}

// empty gui/version/pubkey become the "unknown" sentinel
func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return domain.Unknown
	}
	return s
}

func normaliseIdentity(r *domain.RawSwap) {
	r.MakerPubkey = orUnknown(r.MakerPubkey)
	r.TakerPubkey = orUnknown(r.TakerPubkey)
	r.MakerGUI = orUnknown(r.MakerGUI)
	r.TakerGUI = orUnknown(r.TakerGUI)
	r.MakerVersion = orUnknown(r.MakerVersion)
	r.TakerVersion = orUnknown(r.TakerVersion)
}
