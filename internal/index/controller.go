package index

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/rowdex/internal/domain"
	"github.com/kailas-cloud/rowdex/internal/domain/row"
	"github.com/kailas-cloud/rowdex/internal/metrics"
	"github.com/kailas-cloud/rowdex/internal/schema"
	"github.com/kailas-cloud/rowdex/internal/search"
)

// ErrNotReady signals an operation against a controller whose service has
// not been initialized yet.
var ErrNotReady = errors.New("index not initialized")

// State is the lifecycle state of one index controller.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateReloading
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateReloading:
		return "reloading"
	case StateRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Controller mediates every interaction with one table's indexing
// service under a reader-writer lock. Row writes and searches share the
// lock; anything that replaces or tears down the service handle takes it
// exclusively. The handle is only ever swapped under the exclusive lock,
// so shared-lock holders always see either a live service or nil.
type Controller struct {
	table   string
	options map[string]string
	log     *zap.Logger

	mu    sync.RWMutex
	state State
	svc   *Service
	sch   *schema.Schema
	opts  Options

	stopRefresh chan struct{}
}

// NewController builds an uninitialized controller for one table's index.
// Call Init before use.
func NewController(tableName string, options map[string]string, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{table: tableName, options: options, log: log}
}

// Table returns the backing table name.
func (c *Controller) Table() string { return c.table }

// State reports the current lifecycle state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Schema returns the parsed mapper schema, nil before Init.
func (c *Controller) Schema() *schema.Schema {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sch
}

// Init parses the options and opens the engine index. Calling it on a
// removed controller is an error; Reload is the path that resurrects one.
func (c *Controller) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateRemoved {
		return domain.ErrIndexRemoved
	}
	if err := c.setupLocked(); err != nil {
		return fmt.Errorf("init index %q: %w", c.table, err)
	}
	c.startRefreshLocked()
	return nil
}

func (c *Controller) setupLocked() error {
	if c.svc != nil {
		c.state = StateReady
		return nil
	}
	opts, sch, err := ParseOptions(c.options)
	if err != nil {
		return err
	}
	svc, err := NewService(sch, opts)
	if err != nil {
		return err
	}
	c.svc, c.sch, c.opts = svc, sch, opts
	c.state = StateReady
	c.log.Info("index ready",
		zap.String("table", c.table),
		zap.Bool("in_memory", opts.InMemory))
	return nil
}

// Index mirrors a stored row into the engine. The write path is
// best-effort: a store write must never fail because the index did, so
// every error here is logged and counted instead of returned.
func (c *Controller) Index(key string, r row.Row) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateReady || c.svc == nil {
		c.log.Debug("index write skipped",
			zap.String("table", c.table),
			zap.String("state", c.state.String()))
		return
	}
	if err := c.svc.Index(key, r); err != nil {
		reason := "index"
		if errors.Is(err, domain.ErrInvalidValue) {
			reason = "coerce"
		}
		metrics.IndexFailuresTotal.WithLabelValues(c.table, reason).Inc()
		c.log.Error("ignoring index write failure",
			zap.String("table", c.table),
			zap.String("key", key),
			zap.Error(err))
		return
	}
	metrics.RowsIndexedTotal.WithLabelValues(c.table).Inc()
}

// DeleteRow removes one key's documents. Unlike Index this propagates
// failures to the caller, and the service handle stays live afterwards:
// row deletion is maintenance, not teardown.
func (c *Controller) DeleteRow(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateRemoved {
		return domain.ErrIndexRemoved
	}
	if c.svc == nil {
		return fmt.Errorf("delete row from index %q: %w", c.table, ErrNotReady)
	}
	if err := c.svc.Delete(key); err != nil {
		return fmt.Errorf("delete row %q from index %q: %w", key, c.table, err)
	}
	return nil
}

// RemoveIndex permanently tears the index down and deletes its on-disk
// segments. The Removed state is terminal for writes; only an explicit
// Reload builds a new service.
func (c *Controller) RemoveIndex() error {
	if err := c.teardown(true); err != nil {
		return fmt.Errorf("remove index %q: %w", c.table, err)
	}
	return nil
}

// Invalidate detaches the index without deleting its segments, so a later
// Reload can reopen them.
func (c *Controller) Invalidate() error {
	if err := c.teardown(false); err != nil {
		return fmt.Errorf("invalidate index %q: %w", c.table, err)
	}
	return nil
}

func (c *Controller) teardown(destroy bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateRemoved {
		return nil
	}
	c.stopRefreshLocked()
	var err error
	if c.svc != nil {
		if destroy {
			err = c.svc.Destroy()
		} else {
			err = c.svc.Close()
		}
		c.svc = nil
	}
	c.state = StateRemoved
	return err
}

// Reload re-establishes the service after a host-driven restart. With a
// live service it is a no-op; after removal or invalidation it builds a
// fresh handle, reopening whatever segments survive on disk.
func (c *Controller) Reload() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.svc != nil {
		c.state = StateReady
		return nil
	}
	c.state = StateReloading
	if err := c.setupLocked(); err != nil {
		return fmt.Errorf("reload index %q: %w", c.table, err)
	}
	c.startRefreshLocked()
	return nil
}

// Truncate drops documents written before the given time. The controller
// lock is held only long enough to read the handle; the sweep itself is
// delegated to the service, whose closed check keeps a concurrent
// teardown safe.
func (c *Controller) Truncate(ctx context.Context, before time.Time) error {
	svc, err := c.handle()
	if err != nil {
		return fmt.Errorf("truncate index %q: %w", c.table, err)
	}
	if err := svc.Truncate(ctx, before); err != nil {
		return fmt.Errorf("truncate index %q: %w", c.table, err)
	}
	return nil
}

// DeleteAll drops every document while keeping the index live.
func (c *Controller) DeleteAll(ctx context.Context) error {
	svc, err := c.handle()
	if err != nil {
		return fmt.Errorf("clear index %q: %w", c.table, err)
	}
	if err := svc.DeleteAll(ctx); err != nil {
		return fmt.Errorf("clear index %q: %w", c.table, err)
	}
	return nil
}

// Commit forces the service to persist buffered writes.
func (c *Controller) Commit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateRemoved {
		return domain.ErrIndexRemoved
	}
	if c.svc == nil {
		return fmt.Errorf("commit index %q: %w", c.table, ErrNotReady)
	}
	if err := c.svc.Commit(); err != nil {
		return fmt.Errorf("commit index %q: %w", c.table, err)
	}
	metrics.IndexCommitsTotal.WithLabelValues(c.table, "manual").Inc()
	return nil
}

// Search compiles the request against the table schema and executes it.
func (c *Controller) Search(ctx context.Context, req *search.Request) (*bleve.SearchResult, error) {
	start := time.Now()
	res, err := c.search(ctx, req)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.SearchesTotal.WithLabelValues(c.table, status).Inc()
	metrics.SearchDuration.WithLabelValues(c.table).Observe(time.Since(start).Seconds())
	return res, err
}

func (c *Controller) search(ctx context.Context, req *search.Request) (*bleve.SearchResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state == StateRemoved {
		return nil, domain.ErrIndexRemoved
	}
	if c.svc == nil || c.sch == nil {
		return nil, fmt.Errorf("search index %q: %w", c.table, ErrNotReady)
	}
	breq, err := req.Compile(c.sch)
	if err != nil {
		return nil, err
	}
	return c.svc.Search(ctx, breq, req.Refresh())
}

// Count returns the number of committed documents.
func (c *Controller) Count() (uint64, error) {
	svc, err := c.handle()
	if err != nil {
		return 0, fmt.Errorf("count index %q: %w", c.table, err)
	}
	n, err := svc.Count()
	if err != nil {
		return 0, fmt.Errorf("count index %q: %w", c.table, err)
	}
	return n, nil
}

func (c *Controller) handle() (*Service, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state == StateRemoved {
		return nil, domain.ErrIndexRemoved
	}
	if c.svc == nil {
		return nil, ErrNotReady
	}
	return c.svc, nil
}

func (c *Controller) startRefreshLocked() {
	if c.opts.RefreshSeconds <= 0 || c.stopRefresh != nil {
		return
	}
	stop := make(chan struct{})
	c.stopRefresh = stop
	go c.refreshLoop(stop, time.Duration(c.opts.RefreshSeconds)*time.Second)
}

func (c *Controller) refreshLoop(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.backgroundCommit()
		}
	}
}

func (c *Controller) backgroundCommit() {
	svc, err := c.handle()
	if err != nil {
		return
	}
	if err := svc.Commit(); err != nil {
		if errors.Is(err, ErrServiceClosed) {
			return
		}
		c.log.Warn("background commit failed",
			zap.String("table", c.table), zap.Error(err))
		return
	}
	metrics.IndexCommitsTotal.WithLabelValues(c.table, "background").Inc()
}

func (c *Controller) stopRefreshLocked() {
	if c.stopRefresh != nil {
		close(c.stopRefresh)
		c.stopRefresh = nil
	}
}
