package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	NodeDev     = "dev"
	NodeServe   = "serve"
	NodeProcess = "process"
)

var ErrUnknownNodeType = errors.New("unknown node type")

type Config struct {
	App       AppConfig       `yaml:"app"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Sources   SourcesConfig   `yaml:"sources"`
	Feeds     FeedsConfig     `yaml:"feeds"`
	RPC       RPCConfig       `yaml:"rpc"`
	Cache     CacheConfig     `yaml:"cache"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Stats     StatsConfig     `yaml:"stats"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Stores    StoresConfig    `yaml:"stores"`
	PubSub    PubSubConfig    `yaml:"pubsub"`
	API       APIConfig       `yaml:"api"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type AppConfig struct {
	InstanceID      string        `yaml:"instance_id"`
	NodeType        string        `yaml:"node_type"` // dev|serve|process
	Testing         bool          `yaml:"testing"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ServesHTTP: dev and serve nodes
func (a AppConfig) ServesHTTP() bool {
	return a.NodeType == NodeDev || a.NodeType == NodeServe
}

// Processes: dev and process nodes run ingestion and recompute
func (a AppConfig) Processes() bool {
	return a.NodeType == NodeDev || a.NodeType == NodeProcess
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // json|console
}

// RateBucket is one redis token bucket
type RateBucket struct {
	Enabled      bool          `yaml:"enabled"`
	RefillPerSec int           `yaml:"refill_per_sec"` // tokens added every second
	Burst        int           `yaml:"burst"`          // bucket size
	TTL          time.Duration `yaml:"ttl"`            // idle key lifetime
}

type RateLimitConfig struct {
	ByIP RateBucket `yaml:"by_ip"`
}

type LedgerConfig struct {
	Driver       string        `yaml:"driver"` // sqlite|postgres
	DSN          string        `yaml:"dsn"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

type SourcesConfig struct {
	NodeSQLitePaths  []string `yaml:"node_sqlite_paths"`
	UpstreamDSN      string   `yaml:"upstream_dsn"`
	UpstreamMaxConns int32    `yaml:"upstream_max_conns"`
}

type FeedsConfig struct {
	CoinConfigURL   string        `yaml:"coin_config_url"`
	PricesURL       string        `yaml:"prices_url"`
	FiatRatesURL    string        `yaml:"fiat_rates_url"`
	FiatRatesAPIKey string        `yaml:"fiat_rates_api_key"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxRetries      uint64        `yaml:"max_retries"`
	PriceChunkSize  int           `yaml:"price_chunk_size"`
	PriceChunkDelay time.Duration `yaml:"price_chunk_delay"`
}

type RPCConfig struct {
	URL        string        `yaml:"url"`
	Userpass   string        `yaml:"userpass"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries uint64        `yaml:"max_retries"`
}

type CacheConfig struct {
	Backend         string        `yaml:"backend"` // memory|redis
	OpTimeout       time.Duration `yaml:"op_timeout"`
	OrderbookTTL    time.Duration `yaml:"orderbook_ttl"`
	OrderbookLock   time.Duration `yaml:"orderbook_lock"`
	ArtifactTTL     time.Duration `yaml:"artifact_ttl"`
	RefDataTTL      time.Duration `yaml:"refdata_ttl"`
	WaitAttempts    int           `yaml:"wait_attempts"`
	WaitInterval    time.Duration `yaml:"wait_interval"`
	JanitorInterval time.Duration `yaml:"janitor_interval"`
}

type IngestConfig struct {
	RecentWindow    time.Duration `yaml:"recent_window"`
	BootstrapWindow time.Duration `yaml:"bootstrap_window"`
}

type StatsConfig struct {
	PairsDays      int `yaml:"pairs_days"`
	PrefetchTopN   int `yaml:"prefetch_top_n"`
	OrderbookDepth int `yaml:"orderbook_depth"`
}

type SchedulerConfig struct {
	// per task override, keyed by task name
	Periods map[string]time.Duration `yaml:"periods"`
	LockTTL time.Duration            `yaml:"lock_ttl"`
}

type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	Prefix       string        `yaml:"prefix"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type ClickHouseWriterConfig struct {
	BatchMaxRows     int           `yaml:"batch_max_rows"`
	BatchMaxInterval time.Duration `yaml:"batch_max_interval"`
	MaxRetries       int           `yaml:"max_retries"`
	RetryBackoff     time.Duration `yaml:"retry_backoff"`
}

type ClickHouseConfig struct {
	Enabled bool                   `yaml:"enabled"`
	DSN     string                 `yaml:"dsn"`
	Writer  ClickHouseWriterConfig `yaml:"writer"`
}

type StoresConfig struct {
	Redis      RedisConfig      `yaml:"redis"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

type NATSConfig struct {
	Enabled         bool   `yaml:"enabled"`
	URL             string `yaml:"url"`
	BroadcastPrefix string `yaml:"broadcast_prefix"`
}

type PubSubConfig struct {
	NATS NATSConfig `yaml:"nats"`
}

type CORSConfig struct {
	Enabled bool     `yaml:"enabled"`
	Origins []string `yaml:"origins"`
	Methods []string `yaml:"methods"`
	Headers []string `yaml:"headers"`
}

type BasicAuthConfig struct {
	User string `yaml:"user"`
	Pass string `yaml:"pass"`
}

type GeoBlockConfig struct {
	Enabled   bool     `yaml:"enabled"`
	DBPath    string   `yaml:"db_path"`
	Countries []string `yaml:"countries"` // ISO codes, replaces the built-in list when set
}

type HTTPConfig struct {
	Addr         string          `yaml:"addr"`
	ReadTimeout  time.Duration   `yaml:"read_timeout"`
	WriteTimeout time.Duration   `yaml:"write_timeout"`
	IdleTimeout  time.Duration   `yaml:"idle_timeout"`
	CORS         CORSConfig      `yaml:"cors"`
	BasicAuth    BasicAuthConfig `yaml:"basic_auth"`
	GeoBlock     GeoBlockConfig  `yaml:"geo_block"`
}

type APIConfig struct {
	HTTP HTTPConfig `yaml:"http"`
}

type PyroscopeConfig struct {
	Enabled    bool              `yaml:"enabled"`
	AppName    string            `yaml:"app_name"`
	ServerAddr string            `yaml:"server_addr"`
	AuthToken  string            `yaml:"auth_token"`
	Tags       map[string]string `yaml:"tags"`
}

type MetricsConfig struct {
	Prometheus string          `yaml:"prometheus"`
	Pyroscope  PyroscopeConfig `yaml:"pyroscope"`
}

// Load reads the yaml file, overlays the environment and applies defaults
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err = yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}

	loadDotEnv()
	cfg.applyEnv()

	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate fills sane defaults and rejects values nothing can run with
func (c *Config) Validate() error {
	switch c.App.NodeType {
	case "":
		c.App.NodeType = NodeDev
	case NodeDev, NodeServe, NodeProcess:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownNodeType, c.App.NodeType)
	}

	// sane defaults
	if c.App.ShutdownTimeout <= 0 {
		c.App.ShutdownTimeout = 10 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	if c.Ledger.Driver == "" {
		c.Ledger.Driver = "sqlite"
	}
	if c.Ledger.DSN == "" {
		c.Ledger.DSN = "file:swapstats.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	if c.Ledger.QueryTimeout <= 0 {
		c.Ledger.QueryTimeout = 30 * time.Second
	}
	if c.Sources.UpstreamMaxConns <= 0 {
		c.Sources.UpstreamMaxConns = 4
	}

	if c.Feeds.Timeout <= 0 {
		c.Feeds.Timeout = 30 * time.Second
	}
	if c.Feeds.MaxRetries == 0 {
		c.Feeds.MaxRetries = 3
	}
	if c.Feeds.PriceChunkSize <= 0 || c.Feeds.PriceChunkSize > 200 {
		c.Feeds.PriceChunkSize = 200
	}
	if c.Feeds.PriceChunkDelay <= 0 {
		c.Feeds.PriceChunkDelay = 2 * time.Second
	}

	if c.RPC.Timeout <= 0 {
		c.RPC.Timeout = 5 * time.Second
	}
	if c.RPC.MaxRetries == 0 {
		c.RPC.MaxRetries = 2
	}

	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.OpTimeout <= 0 {
		c.Cache.OpTimeout = 500 * time.Millisecond
	}
	if c.Cache.OrderbookTTL <= 0 {
		c.Cache.OrderbookTTL = 30 * time.Minute
	}
	if c.Cache.OrderbookLock <= 0 {
		c.Cache.OrderbookLock = 10 * time.Second
	}
	if c.Cache.ArtifactTTL <= 0 {
		c.Cache.ArtifactTTL = time.Hour
	}
	if c.Cache.RefDataTTL <= 0 {
		c.Cache.RefDataTTL = 48 * time.Hour
	}
	if c.Cache.WaitAttempts <= 0 {
		c.Cache.WaitAttempts = 10
	}
	if c.Cache.WaitInterval <= 0 {
		c.Cache.WaitInterval = 200 * time.Millisecond
	}
	if c.Cache.JanitorInterval <= 0 {
		c.Cache.JanitorInterval = time.Minute
	}

	if c.Ingest.RecentWindow < 24*time.Hour {
		c.Ingest.RecentWindow = 24 * time.Hour
	}
	if c.Ingest.BootstrapWindow < 14*24*time.Hour {
		c.Ingest.BootstrapWindow = 14 * 24 * time.Hour
	}

	if c.Stats.PairsDays <= 0 {
		c.Stats.PairsDays = 7
	}
	if c.Stats.PrefetchTopN <= 0 {
		c.Stats.PrefetchTopN = 30
	}
	if c.Stats.OrderbookDepth <= 0 {
		c.Stats.OrderbookDepth = 100
	}

	if c.Scheduler.LockTTL <= 0 {
		c.Scheduler.LockTTL = 10 * time.Minute
	}

	if c.API.HTTP.Addr == "" {
		c.API.HTTP.Addr = ":8080"
	}
	if c.API.HTTP.ReadTimeout <= 0 {
		c.API.HTTP.ReadTimeout = 10 * time.Second
	}
	if c.API.HTTP.WriteTimeout <= 0 {
		c.API.HTTP.WriteTimeout = 30 * time.Second
	}
	if c.API.HTTP.IdleTimeout <= 0 {
		c.API.HTTP.IdleTimeout = 60 * time.Second
	}
	if c.RateLimit.ByIP.RefillPerSec <= 0 {
		c.RateLimit.ByIP.RefillPerSec = 10
	}
	if c.RateLimit.ByIP.Burst <= 0 {
		c.RateLimit.ByIP.Burst = 20
	}
	if c.RateLimit.ByIP.TTL <= 0 {
		c.RateLimit.ByIP.TTL = 2 * time.Minute
	}
	if c.Metrics.Prometheus == "" {
		c.Metrics.Prometheus = "/metrics"
	}

	if c.Cache.Backend == "redis" && c.Stores.Redis.Addr == "" {
		return errors.New("redis addr is required for redis cache backend")
	}
	if c.RateLimit.ByIP.Enabled && c.Stores.Redis.Addr == "" {
		return errors.New("redis addr is required for rate limiting")
	}
	return nil
}
