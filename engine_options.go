package rowdex

import "go.uber.org/zap"

// Option configures the Engine.
type Option func(*engineConfig)

type engineConfig struct {
	driver   string // "memory", "redis" or "postgres"
	addrs    []string
	password string
	dsn      string

	dataDir         string
	keyPrefix       string
	defaultAnalyzer string
	maxBatchSize    int

	logger *zap.Logger
}

// WithInMemory keeps rows in process memory. This is the default when
// no store option is given; data does not survive a restart.
func WithInMemory() Option {
	return func(c *engineConfig) {
		c.driver = "memory"
	}
}

// WithRedis stores rows in a Redis instance.
func WithRedis(addr, password string) Option {
	return func(c *engineConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	}
}

// WithPostgres stores rows in a Postgres key-value table.
func WithPostgres(dsn string) Option {
	return func(c *engineConfig) {
		c.driver = "postgres"
		c.dsn = dsn
	}
}

// WithDataDir persists index segments under dir, one subdirectory per
// table. Without it every index lives in memory and is lost on Close.
func WithDataDir(dir string) Option {
	return func(c *engineConfig) {
		c.dataDir = dir
	}
}

// WithKeyPrefix namespaces every store key. Use it to run several
// engines against one shared store.
func WithKeyPrefix(prefix string) Option {
	return func(c *engineConfig) {
		c.keyPrefix = prefix
	}
}

// WithDefaultAnalyzer sets the analyzer applied to text fields of
// schemas generated from struct tags. Schemas passed as JSON name
// their own default.
func WithDefaultAnalyzer(name string) Option {
	return func(c *engineConfig) {
		c.defaultAnalyzer = name
	}
}

// WithMaxBatchSize sets the maximum number of rows per batch upsert.
// Default: 1000.
func WithMaxBatchSize(size int) Option {
	return func(c *engineConfig) {
		c.maxBatchSize = size
	}
}

// WithLogger enables structured logging for engine internals.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return func(c *engineConfig) {
		c.logger = l
	}
}
