package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"swapstats/internal/metrics"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"gitlab.com/nevasik7/alerting/logger"
)

const methodOrderbook = "orderbook"

var ErrTransport = errors.New("rpc transport failure")

// Fault is the typed error envelope returned by the swap node
type Fault struct {
	Method string
	Type   string
	Msg    string
	Data   json.RawMessage
}

func (f *Fault) Error() string {
	return fmt.Sprintf("rpc %s fault, type=%s, error=%s", f.Method, f.Type, f.Msg)
}

type request struct {
	MMRPC    string `json:"mmrpc"`
	Userpass string `json:"userpass"`
	Method   string `json:"method"`
	Params   any    `json:"params"`
	ID       uint64 `json:"id"`
}

type response struct {
	MMRPC     string          `json:"mmrpc"`
	Result    json.RawMessage `json:"result"`
	Error     string          `json:"error"`
	ErrorType string          `json:"error_type"`
	ErrorData json.RawMessage `json:"error_data"`
	ID        uint64          `json:"id"`
}

type number struct {
	Decimal decimal.Decimal `json:"decimal"`
}

type entry struct {
	Price         number `json:"price"`
	BaseMaxVolume number `json:"base_max_volume"`
}

type orderbookResult struct {
	Base string  `json:"base"`
	Rel  string  `json:"rel"`
	Bids []entry `json:"bids"`
	Asks []entry `json:"asks"`
}

// Entry: price in rel per base, volume in base
type Entry struct {
	Price  decimal.Decimal
	Volume decimal.Decimal
}

type Orderbook struct {
	Base string
	Rel  string
	Bids []Entry
	Asks []Entry
}

type Config struct {
	URL        string
	Userpass   string
	Timeout    time.Duration
	MaxRetries uint64
	RetryWait  time.Duration
}

type Client struct {
	log    logger.Logger
	hc     *http.Client
	cfg    Config
	nextID atomic.Uint64
}

func New(log logger.Logger, cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("rpc url is required")
	}

	// sane defaults
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 200 * time.Millisecond
	}

	return &Client{
		log: log,
		hc:  &http.Client{Timeout: cfg.Timeout},
		cfg: cfg,
	}, nil
}

func (c *Client) Orderbook(ctx context.Context, base, rel string) (*Orderbook, error) {
	var res orderbookResult
	params := map[string]string{"base": base, "rel": rel}
	if err := c.call(ctx, methodOrderbook, params, &res); err != nil {
		return nil, err
	}

	return &Orderbook{
		Base: base,
		Rel:  rel,
		Bids: toEntries(res.Bids),
		Asks: toEntries(res.Asks),
	}, nil
}

func toEntries(in []entry) []Entry {
	out := make([]Entry, 0, len(in))
	for _, e := range in {
		out = append(out, Entry{Price: e.Price.Decimal, Volume: e.BaseMaxVolume.Decimal})
	}
	return out
}

// call retries transport failures; node faults and malformed bodies are returned as is
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	body, err := json.Marshal(request{
		MMRPC:    "2.0",
		Userpass: c.cfg.Userpass,
		Method:   method,
		Params:   params,
		ID:       c.nextID.Add(1),
	})
	if err != nil {
		return fmt.Errorf("failed encode rpc request, error=%w", err)
	}

	var resp response
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		r, err := c.hc.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTransport, err)
		}
		defer r.Body.Close()

		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTransport, err)
		}
		if r.StatusCode >= http.StatusInternalServerError && len(bytes.TrimSpace(raw)) == 0 {
			return fmt.Errorf("%w: status=%d", ErrTransport, r.StatusCode)
		}

		resp = response{}
		if err = json.Unmarshal(raw, &resp); err != nil {
			return backoff.Permanent(fmt.Errorf("failed decode rpc %s response, status=%d, error=%w", method, r.StatusCode, err))
		}
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.cfg.RetryWait
	if err = backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(eb, c.cfg.MaxRetries), ctx)); err != nil {
		metrics.RPCRequests.WithLabelValues(method, "error").Inc()
		return err
	}

	if resp.Error != "" || resp.ErrorType != "" {
		metrics.RPCRequests.WithLabelValues(method, "fault").Inc()
		return &Fault{Method: method, Type: resp.ErrorType, Msg: resp.Error, Data: resp.ErrorData}
	}

	if err = json.Unmarshal(resp.Result, out); err != nil {
		metrics.RPCRequests.WithLabelValues(method, "error").Inc()
		return fmt.Errorf("failed decode rpc %s result, error=%w", method, err)
	}

	metrics.RPCRequests.WithLabelValues(method, "ok").Inc()
	return nil
}
