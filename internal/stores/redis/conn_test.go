package redis

import (
	"context"
	"testing"

	"swapstats/internal/config"
	"swapstats/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	ctx := context.Background()
	lg := testutil.Logger()

	t.Run("nil_config", func(t *testing.T) {
		c, err := New(ctx, lg, nil)
		assert.Nil(t, c)
		assert.EqualError(t, err, "redis config is required")
	})

	t.Run("empty_addr", func(t *testing.T) {
		c, err := New(ctx, lg, &config.RedisConfig{})
		assert.Nil(t, c)
		assert.EqualError(t, err, "redis addr is required")
	})

	t.Run("unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		c, err := New(ctx, lg, &config.RedisConfig{Addr: addr})
		assert.Nil(t, c)
		assert.Error(t, err)
	})

	t.Run("success_with_prefix", func(t *testing.T) {
		mr := miniredis.RunT(t)

		c, err := New(ctx, lg, &config.RedisConfig{Addr: mr.Addr(), Prefix: "swapstats"})
		require.NoError(t, err)
		defer c.Close()

		assert.Equal(t, "swapstats:tickers", c.Key("tickers"))
		require.NoError(t, c.Set(ctx, c.Key("k"), "v", 0).Err())
		assert.True(t, mr.Exists("swapstats:k"))
	})
}
