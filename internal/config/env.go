package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// optional .env next to the binary, real env wins
func loadDotEnv() {
	_ = godotenv.Load()
}

// applyEnv overrides yaml values with the recognised environment variables
func (c *Config) applyEnv() {
	c.App.NodeType = getEnv("NODE_TYPE", c.App.NodeType)
	c.App.Testing = getEnvAsBool("TESTING", c.App.Testing)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)

	c.Ledger.Driver = getEnv("LEDGER_DRIVER", c.Ledger.Driver)
	c.Ledger.DSN = getEnv("LEDGER_DSN", c.Ledger.DSN)

	c.Sources.NodeSQLitePaths = getEnvAsSlice("NODE_SQLITE_PATHS", c.Sources.NodeSQLitePaths, ",")
	c.Sources.UpstreamDSN = getEnv("UPSTREAM_DSN", c.Sources.UpstreamDSN)

	c.API.HTTP.Addr = getEnv("HTTP_ADDR", c.API.HTTP.Addr)
	c.API.HTTP.BasicAuth.User = getEnv("API_USER", c.API.HTTP.BasicAuth.User)
	c.API.HTTP.BasicAuth.Pass = getEnv("API_PASS", c.API.HTTP.BasicAuth.Pass)

	c.Feeds.CoinConfigURL = getEnv("COIN_CONFIG_URL", c.Feeds.CoinConfigURL)
	c.Feeds.PricesURL = getEnv("PRICES_URL", c.Feeds.PricesURL)
	c.Feeds.FiatRatesURL = getEnv("FIAT_RATES_URL", c.Feeds.FiatRatesURL)
	c.Feeds.FiatRatesAPIKey = getEnv("FIAT_RATES_API_KEY", c.Feeds.FiatRatesAPIKey)

	c.RPC.URL = getEnv("RPC_URL", c.RPC.URL)
	c.RPC.Userpass = getEnv("RPC_USERPASS", c.RPC.Userpass)

	c.Stores.Redis.Addr = getEnv("REDIS_ADDR", c.Stores.Redis.Addr)
	c.Stores.Redis.Password = getEnv("REDIS_PASSWORD", c.Stores.Redis.Password)
	c.Stores.ClickHouse.DSN = getEnv("CLICKHOUSE_DSN", c.Stores.ClickHouse.DSN)
	c.PubSub.NATS.URL = getEnv("NATS_URL", c.PubSub.NATS.URL)
}

// Helper functions for parsing environment variables
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valStr := getEnv(key, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsSlice(key string, defaultVal []string, sep string) []string {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultVal
	}

	out := make([]string, 0, 4)
	for _, v := range strings.Split(valStr, sep) {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
