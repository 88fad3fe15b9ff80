package rowdex

import (
	"strconv"

	"github.com/kailas-cloud/rowdex/internal/index"
)

// TableOption configures table creation.
type TableOption func(*tableConfig)

type tableConfig struct {
	options map[string]string
}

func newTableConfig(opts []TableOption) *tableConfig {
	cfg := &tableConfig{options: make(map[string]string)}
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

// WithRefreshInterval sets the background commit interval in seconds.
// Zero disables background commits; buffered writes then become
// searchable on an explicit Commit or when the write buffer fills.
func WithRefreshInterval(seconds int) TableOption {
	return func(c *tableConfig) {
		c.options[index.OptionRefreshSeconds] = strconv.Itoa(seconds)
	}
}

// WithMaxBufferedDocs sets the buffered-write threshold that forces an
// automatic commit. Default: 1000.
func WithMaxBufferedDocs(n int) TableOption {
	return func(c *tableConfig) {
		c.options[index.OptionMaxBufferedDocs] = strconv.Itoa(n)
	}
}

// WithDirectory overrides the engine data dir for this table's index
// segments.
func WithDirectory(dir string) TableOption {
	return func(c *tableConfig) {
		c.options[index.OptionDirectory] = dir
	}
}

// WithMemoryIndex keeps this table's index in memory even when the
// engine persists other tables to disk.
func WithMemoryIndex() TableOption {
	return func(c *tableConfig) {
		c.options[index.OptionInMemory] = "true"
	}
}

// WithTableOption passes a raw index option through verbatim. Unknown
// keys are rejected at create time.
func WithTableOption(key, value string) TableOption {
	return func(c *tableConfig) {
		c.options[key] = value
	}
}
