package ledger

import (
	"errors"
	"strings"
)

var ErrUnknownColumn = errors.New("unknown distinct column")

// Status: the zero value selects successful swaps only
type Status int

const (
	StatusSuccess Status = iota
	StatusAll
	StatusFailed
)

type Filter struct {
	// finished_at bounds, 0 = open
	From int64
	To   int64

	Coin    string // variant or ticker, either side
	Pair    string // any of pair, pair_reverse, pair_std, pair_std_reverse
	// TradeType is the side seen from Pair; ignored without Pair
	TradeType string
	Pubkey  string
	GUI     string
	Version string
	Status  Status

	Limit int
	Desc  bool
}

func (f Filter) where() (string, []any) {
	conds := make([]string, 0, 8)
	args := make([]any, 0, 12)

	switch f.Status {
	case StatusSuccess:
		conds = append(conds, "is_success = 1")
	case StatusFailed:
		conds = append(conds, "is_success = 0")
	}
	if f.From > 0 {
		conds = append(conds, "finished_at >= ?")
		args = append(args, f.From)
	}
	if f.To > 0 {
		conds = append(conds, "finished_at <= ?")
		args = append(args, f.To)
	}
	if f.Coin != "" {
		conds = append(conds, "(maker_coin = ? OR taker_coin = ? OR maker_coin_ticker = ? OR taker_coin_ticker = ?)")
		args = append(args, f.Coin, f.Coin, f.Coin, f.Coin)
	}
	if f.Pair != "" {
		conds = append(conds, "(pair = ? OR pair_reverse = ? OR pair_std = ? OR pair_std_reverse = ?)")
		args = append(args, f.Pair, f.Pair, f.Pair, f.Pair)

		if f.TradeType != "" {
			// rows stored in the reverse orientation quote the opposite side
			conds = append(conds, "(((pair_reverse = ? OR pair_std_reverse = ?) AND trade_type = ?) OR "+
				"(pair_reverse <> ? AND pair_std_reverse <> ? AND trade_type = ?))")
			args = append(args, f.Pair, f.Pair, oppositeSide(f.TradeType), f.Pair, f.Pair, f.TradeType)
		}
	}
	if f.Pubkey != "" {
		conds = append(conds, "(maker_pubkey = ? OR taker_pubkey = ?)")
		args = append(args, f.Pubkey, f.Pubkey)
	}
	if f.GUI != "" {
		conds = append(conds, "(maker_gui = ? OR taker_gui = ?)")
		args = append(args, f.GUI, f.GUI)
	}
	if f.Version != "" {
		conds = append(conds, "(maker_version = ? OR taker_version = ?)")
		args = append(args, f.Version, f.Version)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func oppositeSide(side string) string {
	switch side {
	case "buy":
		return "sell"
	case "sell":
		return "buy"
	}
	return side
}

func (f Filter) order() string {
	if f.Desc {
		return " ORDER BY finished_at DESC, uuid DESC"
	}
	return " ORDER BY finished_at ASC, uuid ASC"
}

// distinctColumns maps an enum name to the columns it unions
var distinctColumns = map[string][]string{
	"gui":      {"maker_gui", "taker_gui"},
	"version":  {"maker_version", "taker_version"},
	"pubkey":   {"maker_pubkey", "taker_pubkey"},
	"coin":     {"maker_coin", "taker_coin"},
	"pair":     {"pair"},
	"pair_std": {"pair_std"},
}

func DistinctColumns() []string {
	return []string{"coin", "gui", "pair", "pair_std", "pubkey", "version"}
}
