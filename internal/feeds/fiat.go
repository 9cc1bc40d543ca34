package feeds

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"swapstats/internal/domain"

	"github.com/shopspring/decimal"
	"gitlab.com/nevasik7/alerting/logger"
)

const feedFiat = "fiat_rates"

type fiatDoc struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

type FiatClient struct {
	f      fetcher
	url    string
	apiKey string
}

func NewFiatClient(log logger.Logger, rawURL, apiKey string, opts Options) (*FiatClient, error) {
	if rawURL == "" {
		return nil, errors.New("fiat rates url is required")
	}
	return &FiatClient{f: opts.fetcher(log), url: rawURL, apiKey: apiKey}, nil
}

// Fetch returns the table rebased on USD (USD = 1, BTC removed)
func (c *FiatClient) Fetch(ctx context.Context) (map[string]decimal.Decimal, error) {
	var doc fiatDoc
	if err := c.f.getJSON(ctx, feedFiat, c.requestURL(), &doc); err != nil {
		return nil, err
	}
	return NormaliseFiat(doc.Rates)
}

func (c *FiatClient) requestURL() string {
	if c.apiKey == "" {
		return c.url
	}
	sep := "?"
	if strings.Contains(c.url, "?") {
		sep = "&"
	}
	return c.url + sep + "api_key=" + url.QueryEscape(c.apiKey)
}

// NormaliseFiat divides every rate by the USD rate
func NormaliseFiat(rates map[string]decimal.Decimal) (map[string]decimal.Decimal, error) {
	usd, ok := rates["USD"]
	if !ok || !usd.IsPositive() {
		return nil, schemaErr(feedFiat, errors.New("usd rate is missing"))
	}

	out := make(map[string]decimal.Decimal, len(rates))
	for code, r := range rates {
		if code == "BTC" {
			continue
		}
		out[code] = domain.Div(r, usd)
	}
	out["USD"] = decimal.NewFromInt(1)
	return out, nil
}
