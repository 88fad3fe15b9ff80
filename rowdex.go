package rowdex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/rowdex/internal/db"
	dbMemory "github.com/kailas-cloud/rowdex/internal/db/memory"
	dbPostgres "github.com/kailas-cloud/rowdex/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/rowdex/internal/db/redis"
	rowrepo "github.com/kailas-cloud/rowdex/internal/repository/row"
	tablerepo "github.com/kailas-cloud/rowdex/internal/repository/table"
	batchuc "github.com/kailas-cloud/rowdex/internal/usecase/batch"
	healthuc "github.com/kailas-cloud/rowdex/internal/usecase/health"
	rowuc "github.com/kailas-cloud/rowdex/internal/usecase/row"
	searchuc "github.com/kailas-cloud/rowdex/internal/usecase/search"
	tableuc "github.com/kailas-cloud/rowdex/internal/usecase/table"
)

const defaultReadinessTimeout = 10 * time.Second

// Engine is the embedded rowdex entry point.
type Engine struct {
	store     db.Store
	tabSvc    *tableuc.Service
	rowSvc    *rowuc.Service
	searchSvc *searchuc.Service
	batchSvc  *batchuc.Service
	healthSvc *healthuc.Service

	defaultAnalyzer string
}

// New creates an Engine, connects to the row store and reopens the
// indexes of every persisted table. Without a store option rows live in
// process memory.
func New(opts ...Option) (*Engine, error) {
	cfg := &engineConfig{driver: "memory"}
	for _, o := range opts {
		o(cfg)
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("rowdex: store not ready: %w", err)
	}

	eng := wireEngine(store, cfg)
	if err := eng.tabSvc.OpenAll(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("rowdex: reopen tables: %w", err)
	}
	return eng, nil
}

func createStore(cfg *engineConfig) (db.Store, error) {
	switch cfg.driver {
	case "memory":
		return dbMemory.NewStore(), nil
	case "redis":
		if len(cfg.addrs) == 0 {
			return nil, errors.New("rowdex: redis address required")
		}
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("rowdex: create redis store: %w", err)
		}
		return s, nil
	case "postgres":
		if cfg.dsn == "" {
			return nil, errors.New("rowdex: postgres DSN required")
		}
		s, err := dbPostgres.NewStore(context.Background(), dbPostgres.Config{
			DSN: cfg.dsn,
		})
		if err != nil {
			return nil, fmt.Errorf("rowdex: create postgres store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("rowdex: unknown driver %q", cfg.driver)
	}
}

func wireEngine(store db.Store, cfg *engineConfig) *Engine {
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	tabRepo := tablerepo.New(store, cfg.keyPrefix)
	rowRepo := rowrepo.New(store, cfg.keyPrefix)

	tabSvc := tableuc.New(tabRepo, rowRepo, cfg.dataDir, logger)
	rowSvc := rowuc.New(rowRepo, tabSvc, tabSvc)
	searchSvc := searchuc.New(rowRepo, tabSvc, tabSvc)
	batchSvc := batchuc.New(rowRepo, tabSvc, tabSvc)
	if cfg.maxBatchSize > 0 {
		batchSvc = batchSvc.WithMaxBatchSize(cfg.maxBatchSize)
	}
	healthSvc := healthuc.New(store, tabSvc)

	return &Engine{
		store:     store,
		tabSvc:    tabSvc,
		rowSvc:    rowSvc,
		searchSvc: searchSvc,
		batchSvc:  batchSvc,
		healthSvc: healthSvc,

		defaultAnalyzer: cfg.defaultAnalyzer,
	}
}

// Close flushes buffered index writes and releases all resources.
// Index segments stay on disk so the next engine can reopen them.
func (e *Engine) Close() error {
	var err error
	if e.tabSvc != nil {
		err = e.tabSvc.Close()
	}
	if e.store != nil {
		e.store.Close()
	}
	return err
}

// Ping checks row-store connectivity.
func (e *Engine) Ping(ctx context.Context) error {
	if err := e.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Health checks the row store and every index controller.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	report := e.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status:  string(report.Status),
		Checks:  checks,
		Indexes: report.States,
	}
}

// Tables returns the table management service.
func (e *Engine) Tables() *TableService {
	return &TableService{tabs: e.tabSvc, rows: e.rowSvc}
}

// Rows returns the row service for a given table.
func (e *Engine) Rows(table string) *RowService {
	return &RowService{table: table, rows: e.rowSvc, batch: e.batchSvc}
}

// Search returns the search service for a given table.
func (e *Engine) Search(table string) *SearchService {
	return &SearchService{table: table, svc: e.searchSvc}
}
