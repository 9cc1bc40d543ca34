package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"swapstats/internal/config"

	goredis "github.com/redis/go-redis/v9"
	"gitlab.com/nevasik7/alerting/logger"
)

type Client struct {
	*goredis.Client
	Prefix string
}

func New(ctx context.Context, log logger.Logger, cfg *config.RedisConfig) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("redis config is required")
	}
	if cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}

	// sane defaults
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = time.Second
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed ping redis, error=%w", err)
	}

	log.Infof("Connected to redis successfully, addr=%s", cfg.Addr)
	return &Client{Client: rdb, Prefix: cfg.Prefix}, nil
}

// Key applies the configured namespace prefix
func (c *Client) Key(k string) string {
	if c.Prefix == "" {
		return k
	}
	return c.Prefix + ":" + k
}

func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
