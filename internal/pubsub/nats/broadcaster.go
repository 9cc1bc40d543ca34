package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"swapstats/internal/config"

	"github.com/nats-io/nats.go"
	"gitlab.com/nevasik7/alerting/logger"
)

var ErrNotConnected = errors.New("nats is not connected")

// Client publishes JSON events under the configured prefix
type Client struct {
	nc     *nats.Conn
	log    logger.Logger
	prefix string
}

func New(log logger.Logger, cfg *config.NATSConfig) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("nats config is required")
	}
	if cfg.URL == "" {
		return nil, errors.New("nats url is required")
	}

	opts := []nats.Option{
		nats.Name("swapstats"),
		nats.Timeout(5 * time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warnf("NATS disconnected, error=%v", err)
			}
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Infof("Connected to NATS successfully, url=%s", cfg.URL)
	return &Client{
		nc:     nc,
		log:    log,
		prefix: strings.Trim(cfg.BroadcastPrefix, "."),
	}, nil
}

func (c *Client) Subject(subject string) string {
	if c.prefix == "" {
		return subject
	}
	return c.prefix + "." + subject
}

func (c *Client) Publish(ctx context.Context, subject string, data interface{}) error {
	if !c.Ready() {
		return ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed marshal event %s, error=%w", subject, err)
	}

	if err = c.nc.Publish(c.Subject(subject), b); err != nil {
		return fmt.Errorf("failed publish event %s, error=%w", subject, err)
	}
	return nil
}

func (c *Client) Health(ctx context.Context) error {
	if !c.Ready() {
		return ErrNotConnected
	}
	return c.nc.FlushWithContext(ctx)
}

func (c *Client) Ready() bool {
	return c.nc != nil && c.nc.Status() == nats.CONNECTED
}

func (c *Client) Status() nats.Status {
	if c.nc == nil {
		return nats.DISCONNECTED
	}
	return c.nc.Status()
}

func (c *Client) Close() error {
	if c.nc == nil || c.nc.Status() == nats.CLOSED {
		return nil
	}

	if err := c.nc.Drain(); err != nil {
		c.log.Errorf("Failed to drain connection to NATS, error=%v", err)
		c.nc.Close()
		return fmt.Errorf("failed to drain connection to NATS: %w", err)
	}

	// drain closes asynchronously
	for i := 0; i < 50 && c.nc.Status() != nats.CLOSED; i++ {
		time.Sleep(20 * time.Millisecond)
	}
	c.nc.Close()
	c.log.Infof("NATS connection closed gracefully")
	return nil
}
