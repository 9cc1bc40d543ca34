package cache

import (
	"context"
	"errors"
	"time"

	"swapstats/internal/stores/redis"

	goredis "github.com/redis/go-redis/v9"
)

// Redis is the shared backend used when serve and process nodes run apart
type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.rdb.Get(ctx, r.rdb.Key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return r.rdb.Set(ctx, r.rdb.Key(key), val, ttl).Err()
}

func (r *Redis) SetNX(ctx context.Context, key string, val []byte, ttl time.Duration) (bool, error) {
	return r.rdb.SetNX(ctx, r.rdb.Key(key), val, ttl).Result()
}

func (r *Redis) Del(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, r.rdb.Key(key)).Err()
}

var luaDelIfValue = goredis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

func (r *Redis) DelIfValue(ctx context.Context, key string, val []byte) (bool, error) {
	n, err := luaDelIfValue.Run(ctx, r.rdb.Client, []string{r.rdb.Key(key)}, val).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
