package row

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/rowdex/internal/domain"
	domrow "github.com/kailas-cloud/rowdex/internal/domain/row"
	domtab "github.com/kailas-cloud/rowdex/internal/domain/table"
	"github.com/kailas-cloud/rowdex/internal/index"
)

// --- Mocks ---

type mockRepo struct {
	putRows    []domrow.Row
	putErr     error
	batchRows  []domrow.Row
	batchErr   error
	getResult  domrow.Row
	getErr     error
	deleted    []string
	deleteErr  error
	keysResult []string
	keysErr    error
}

func (m *mockRepo) Put(_ context.Context, _ string, r domrow.Row) error {
	m.putRows = append(m.putRows, r)
	return m.putErr
}

func (m *mockRepo) PutMulti(_ context.Context, _ string, rows []domrow.Row) error {
	m.batchRows = append(m.batchRows, rows...)
	return m.batchErr
}

func (m *mockRepo) Get(_ context.Context, _, _ string) (domrow.Row, error) {
	return m.getResult, m.getErr
}

func (m *mockRepo) Delete(_ context.Context, _, key string) error {
	m.deleted = append(m.deleted, key)
	return m.deleteErr
}

func (m *mockRepo) Keys(_ context.Context, _ string) ([]string, error) {
	return m.keysResult, m.keysErr
}

type mockTables struct {
	getErr error
}

func (m *mockTables) Get(_ context.Context, name string) (domtab.Table, error) {
	if m.getErr != nil {
		return domtab.Table{}, m.getErr
	}
	return domtab.Reconstruct(name, testSchemaJSON, nil, 1700000000000, 1), nil
}

type mockControllers struct {
	ctrl *index.Controller
}

func (m *mockControllers) Controller(string) (*index.Controller, bool) {
	return m.ctrl, m.ctrl != nil
}

const testSchemaJSON = `{"fields":{"name":{"type":"text"},"age":{"type":"integer"}}}`

func readyController(t *testing.T) *index.Controller {
	t.Helper()
	ctrl := index.NewController("users", map[string]string{
		"schema":          testSchemaJSON,
		"in_memory":       "true",
		"refresh_seconds": "0",
	}, nil)
	if err := ctrl.Init(); err != nil {
		t.Fatalf("init controller: %v", err)
	}
	t.Cleanup(func() { _ = ctrl.Invalidate() })
	return ctrl
}

func testRow(t *testing.T, key string) domrow.Row {
	t.Helper()
	r, err := domrow.New(key, map[string]any{"name": "Alice", "age": int64(30)})
	if err != nil {
		t.Fatalf("row.New: %v", err)
	}
	return r
}

// --- Upsert ---

func TestUpsert_StoresAndIndexes(t *testing.T) {
	repo := &mockRepo{}
	ctrl := readyController(t)
	svc := New(repo, &mockTables{}, &mockControllers{ctrl: ctrl})

	if err := svc.Upsert(context.Background(), "users", testRow(t, "u1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.putRows) != 1 || repo.putRows[0].Key() != "u1" {
		t.Fatalf("unexpected store writes: %+v", repo.putRows)
	}
	if err := ctrl.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if n, _ := ctrl.Count(); n != 1 {
		t.Errorf("index docs = %d, want 1", n)
	}
}

func TestUpsert_NoControllerStillStores(t *testing.T) {
	repo := &mockRepo{}
	svc := New(repo, &mockTables{}, &mockControllers{})

	if err := svc.Upsert(context.Background(), "users", testRow(t, "u1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.putRows) != 1 {
		t.Errorf("expected the store write to happen, got %d", len(repo.putRows))
	}
}

func TestUpsert_BadColumnValueDoesNotFail(t *testing.T) {
	repo := &mockRepo{}
	ctrl := readyController(t)
	svc := New(repo, &mockTables{}, &mockControllers{ctrl: ctrl})

	r, err := domrow.New("u1", map[string]any{"age": "not-a-number"})
	if err != nil {
		t.Fatalf("row.New: %v", err)
	}
	if err := svc.Upsert(context.Background(), "users", r); err != nil {
		t.Fatalf("index coercion failure must not surface: %v", err)
	}
	if len(repo.putRows) != 1 {
		t.Error("the store write must happen regardless of the index")
	}
}

func TestUpsert_UnknownTable(t *testing.T) {
	repo := &mockRepo{}
	svc := New(repo, &mockTables{getErr: domain.ErrTableNotFound}, &mockControllers{})

	err := svc.Upsert(context.Background(), "ghost", testRow(t, "u1"))
	if !errors.Is(err, domain.ErrTableNotFound) {
		t.Fatalf("expected ErrTableNotFound, got %v", err)
	}
	if len(repo.putRows) != 0 {
		t.Error("nothing may be stored for an unknown table")
	}
}

func TestUpsert_StoreErrorPropagates(t *testing.T) {
	repo := &mockRepo{putErr: errors.New("connection lost")}
	svc := New(repo, &mockTables{}, &mockControllers{})

	if err := svc.Upsert(context.Background(), "users", testRow(t, "u1")); err == nil {
		t.Fatal("expected store error to propagate")
	}
}

// --- UpsertBatch ---

func TestUpsertBatch_StoresAndIndexesAll(t *testing.T) {
	repo := &mockRepo{}
	ctrl := readyController(t)
	svc := New(repo, &mockTables{}, &mockControllers{ctrl: ctrl})

	rows := []domrow.Row{testRow(t, "u1"), testRow(t, "u2"), testRow(t, "u3")}
	if err := svc.UpsertBatch(context.Background(), "users", rows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.batchRows) != 3 {
		t.Fatalf("expected 3 batch writes, got %d", len(repo.batchRows))
	}
	if err := ctrl.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if n, _ := ctrl.Count(); n != 3 {
		t.Errorf("index docs = %d, want 3", n)
	}
}

func TestUpsertBatch_EmptyIsNoOp(t *testing.T) {
	repo := &mockRepo{}
	svc := New(repo, &mockTables{getErr: domain.ErrTableNotFound}, &mockControllers{})

	// The table check is skipped entirely for an empty batch.
	if err := svc.UpsertBatch(context.Background(), "users", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- Get ---

func TestGet_HappyPath(t *testing.T) {
	repo := &mockRepo{getResult: testRow(t, "u1")}
	svc := New(repo, &mockTables{}, &mockControllers{})

	r, err := svc.Get(context.Background(), "users", "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Key() != "u1" {
		t.Errorf("unexpected key: %s", r.Key())
	}
}

func TestGet_RowNotFound(t *testing.T) {
	repo := &mockRepo{getErr: domain.ErrRowNotFound}
	svc := New(repo, &mockTables{}, &mockControllers{})

	_, err := svc.Get(context.Background(), "users", "missing")
	if !errors.Is(err, domain.ErrRowNotFound) {
		t.Fatalf("expected ErrRowNotFound, got %v", err)
	}
}

// --- Delete ---

func TestDelete_RemovesFromIndexThenStore(t *testing.T) {
	repo := &mockRepo{}
	ctrl := readyController(t)
	svc := New(repo, &mockTables{}, &mockControllers{ctrl: ctrl})

	if err := svc.Upsert(context.Background(), "users", testRow(t, "u1")); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := svc.Delete(context.Background(), "users", "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != "u1" {
		t.Errorf("unexpected store deletes: %v", repo.deleted)
	}
	if err := ctrl.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if n, _ := ctrl.Count(); n != 0 {
		t.Errorf("index docs = %d, want 0", n)
	}
}

func TestDelete_RemovedIndexBlocksStoreDelete(t *testing.T) {
	repo := &mockRepo{}
	ctrl := readyController(t)
	if err := ctrl.RemoveIndex(); err != nil {
		t.Fatalf("remove index: %v", err)
	}
	svc := New(repo, &mockTables{}, &mockControllers{ctrl: ctrl})

	err := svc.Delete(context.Background(), "users", "u1")
	if !errors.Is(err, domain.ErrIndexRemoved) {
		t.Fatalf("expected ErrIndexRemoved, got %v", err)
	}
	if len(repo.deleted) != 0 {
		t.Error("the store delete must not run when the index cannot record it")
	}
}

func TestDelete_NoControllerDeletesStoreOnly(t *testing.T) {
	repo := &mockRepo{}
	svc := New(repo, &mockTables{}, &mockControllers{})

	if err := svc.Delete(context.Background(), "users", "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.deleted) != 1 {
		t.Error("expected the store delete to happen")
	}
}

// --- Count / Stats ---

func TestCount(t *testing.T) {
	repo := &mockRepo{keysResult: []string{"u1", "u2", "u3"}}
	svc := New(repo, &mockTables{}, &mockControllers{})

	n, err := svc.Count(context.Background(), "users")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
}

func TestStats_CombinesStoreAndIndex(t *testing.T) {
	repo := &mockRepo{keysResult: []string{"u1", "u2"}}
	ctrl := readyController(t)
	svc := New(repo, &mockTables{}, &mockControllers{ctrl: ctrl})

	if err := svc.Upsert(context.Background(), "users", testRow(t, "u1")); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := ctrl.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	st, err := svc.Stats(context.Background(), "users")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Rows != 2 {
		t.Errorf("rows = %d, want 2", st.Rows)
	}
	if st.IndexDocs != 1 {
		t.Errorf("index docs = %d, want 1", st.IndexDocs)
	}
	if st.State != "ready" {
		t.Errorf("state = %s, want ready", st.State)
	}
}

func TestStats_NoController(t *testing.T) {
	repo := &mockRepo{keysResult: []string{"u1"}}
	svc := New(repo, &mockTables{}, &mockControllers{})

	st, err := svc.Stats(context.Background(), "users")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.State != "none" || st.IndexDocs != 0 {
		t.Errorf("unexpected stats: %+v", st)
	}
}
