package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"swapstats/internal/present"
	"swapstats/internal/service"

	"github.com/go-chi/chi/v5"
)

func parseSwapsQuery(q url.Values) (service.SwapsQuery, error) {
	out := service.SwapsQuery{
		Coin:    q.Get("coin"),
		Pair:    q.Get("pair"),
		Pubkey:  q.Get("pubkey"),
		GUI:     q.Get("gui"),
		Version: q.Get("version"),
	}

	ints := []struct {
		name string
		dst  *int64
	}{
		{"start_time", &out.From},
		{"end_time", &out.To},
	}
	for _, p := range ints {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return out, fmt.Errorf("%w: %s %q", service.ErrInvalidParam, p.name, raw)
		}
		*p.dst = v
	}

	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return out, fmt.Errorf("%w: limit %q", service.ErrInvalidParam, raw)
		}
		out.Limit = v
	}
	return out, nil
}

func (a *Handler) Swap(w http.ResponseWriter, r *http.Request) {
	s, err := a.Market.Swap(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		a.fail(w, r, "Swap", err)
		return
	}
	a.ok(w, "Swap", present.SwapToGeneric(s))
}

func (a *Handler) SwapUUIDs(w http.ResponseWriter, r *http.Request) {
	q, err := parseSwapsQuery(r.URL.Query())
	if err != nil {
		a.fail(w, r, "SwapUUIDs", err)
		return
	}

	ids, err := a.Market.SwapUUIDs(r.Context(), q)
	if err != nil {
		a.fail(w, r, "SwapUUIDs", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	a.ok(w, "SwapUUIDs", map[string]any{"swaps_count": len(ids), "swap_uuids": ids})
}

func (a *Handler) FailedSwaps(w http.ResponseWriter, r *http.Request) {
	q, err := parseSwapsQuery(r.URL.Query())
	if err != nil {
		a.fail(w, r, "FailedSwaps", err)
		return
	}

	rows, err := a.Market.FailedSwaps(r.Context(), q)
	if err != nil {
		a.fail(w, r, "FailedSwaps", err)
		return
	}
	a.ok(w, "FailedSwaps", present.SwapsToGeneric(rows))
}

func (a *Handler) Distinct(w http.ResponseWriter, r *http.Request) {
	q, err := parseSwapsQuery(r.URL.Query())
	if err != nil {
		a.fail(w, r, "Distinct", err)
		return
	}

	vals, err := a.Market.Distinct(r.Context(), chi.URLParam(r, "column"), q)
	if err != nil {
		a.fail(w, r, "Distinct", err)
		return
	}
	if vals == nil {
		vals = []string{}
	}
	a.ok(w, "Distinct", vals)
}
