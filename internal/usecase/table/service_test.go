package table

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kailas-cloud/rowdex/internal/domain"
	domrow "github.com/kailas-cloud/rowdex/internal/domain/row"
	domtab "github.com/kailas-cloud/rowdex/internal/domain/table"
	"github.com/kailas-cloud/rowdex/internal/index"
)

// --- Mocks ---

type mockRepo struct {
	created    []domtab.Table
	updated    []domtab.Table
	deleted    []string
	getResult  domtab.Table
	getErr     error
	listResult []domtab.Table
	listErr    error
	createErr  error
	updateErr  error
	deleteErr  error
}

func (m *mockRepo) Create(_ context.Context, t domtab.Table) error {
	m.created = append(m.created, t)
	return m.createErr
}

func (m *mockRepo) Update(_ context.Context, t domtab.Table) error {
	m.updated = append(m.updated, t)
	return m.updateErr
}

func (m *mockRepo) Get(_ context.Context, _ string) (domtab.Table, error) {
	return m.getResult, m.getErr
}

func (m *mockRepo) List(_ context.Context) ([]domtab.Table, error) {
	return m.listResult, m.listErr
}

func (m *mockRepo) Delete(_ context.Context, name string) error {
	m.deleted = append(m.deleted, name)
	return m.deleteErr
}

type mockPurger struct {
	purged []string
	count  int
	err    error
}

func (m *mockPurger) DeleteTable(_ context.Context, tableName string) (int, error) {
	m.purged = append(m.purged, tableName)
	return m.count, m.err
}

const testSchemaJSON = `{"fields":{"name":{"type":"text"},"age":{"type":"integer"}}}`

func testOptions() map[string]string {
	return map[string]string{"refresh_seconds": "0"}
}

func newTestService(t *testing.T) (*Service, *mockRepo, *mockPurger) {
	t.Helper()
	repo := &mockRepo{}
	rows := &mockPurger{}
	svc := New(repo, rows, "", nil)
	t.Cleanup(func() { _ = svc.Close() })
	return svc, repo, rows
}

func storedTable(name string) domtab.Table {
	return domtab.Reconstruct(name, testSchemaJSON, testOptions(), 1700000000000, 1)
}

// --- Create ---

func TestCreate_Success(t *testing.T) {
	svc, repo, _ := newTestService(t)

	tab, err := svc.Create(context.Background(), "users", testSchemaJSON, testOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tab.Name() != "users" || tab.Version() != 1 {
		t.Errorf("unexpected table: name=%s version=%d", tab.Name(), tab.Version())
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 catalog write, got %d", len(repo.created))
	}

	ctrl, ok := svc.Controller("users")
	if !ok {
		t.Fatal("expected a registered controller")
	}
	if ctrl.State() != index.StateReady {
		t.Errorf("controller state = %v, want Ready", ctrl.State())
	}
}

func TestCreate_InvalidName(t *testing.T) {
	svc, repo, _ := newTestService(t)

	_, err := svc.Create(context.Background(), "no spaces", testSchemaJSON, nil)
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if len(repo.created) != 0 {
		t.Error("catalog must stay untouched on validation failure")
	}
}

func TestCreate_BadOptionsRejectedBeforeAnyState(t *testing.T) {
	svc, repo, _ := newTestService(t)

	_, err := svc.Create(context.Background(), "users", testSchemaJSON,
		map[string]string{"max_buffered_docs": "not-a-number"})
	if !errors.Is(err, domain.ErrInvalidOptions) {
		t.Fatalf("expected ErrInvalidOptions, got %v", err)
	}
	if len(repo.created) != 0 {
		t.Error("catalog must stay untouched on option validation failure")
	}
	if _, ok := svc.Controller("users"); ok {
		t.Error("no controller may exist after a rejected create")
	}
}

func TestCreate_AlreadyExists(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.createErr = domain.ErrTableExists

	_, err := svc.Create(context.Background(), "users", testSchemaJSON, testOptions())
	if !errors.Is(err, domain.ErrTableExists) {
		t.Fatalf("expected ErrTableExists, got %v", err)
	}
	if _, ok := svc.Controller("users"); ok {
		t.Error("no controller may be registered when the catalog write fails")
	}
}

func TestCreate_IndexOpenFailureRollsBackCatalog(t *testing.T) {
	dir := t.TempDir()
	// A regular file where the index directory should go makes the engine
	// open fail deterministically.
	if err := os.WriteFile(filepath.Join(dir, "users"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write blocker file: %v", err)
	}

	repo := &mockRepo{}
	svc := New(repo, &mockPurger{}, dir, nil)
	t.Cleanup(func() { _ = svc.Close() })

	_, err := svc.Create(context.Background(), "users", testSchemaJSON, testOptions())
	if err == nil {
		t.Fatal("expected index open failure")
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != "users" {
		t.Errorf("expected catalog rollback for users, got %v", repo.deleted)
	}
	if _, ok := svc.Controller("users"); ok {
		t.Error("no controller may survive a failed create")
	}
}

// --- Ensure ---

func TestEnsure_CreatesMissingTable(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.getErr = domain.ErrTableNotFound

	tab, err := svc.Ensure(context.Background(), "users", testSchemaJSON, testOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tab.Name() != "users" {
		t.Errorf("unexpected table name: %s", tab.Name())
	}
	if len(repo.created) != 1 {
		t.Errorf("expected 1 catalog write, got %d", len(repo.created))
	}
}

func TestEnsure_ExistingTableOpensController(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.getResult = storedTable("users")

	tab, err := svc.Ensure(context.Background(), "users", "ignored", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tab.SchemaJSON() != testSchemaJSON {
		t.Error("stored definition must win over the arguments")
	}
	if len(repo.created) != 0 {
		t.Error("no catalog write expected for an existing table")
	}
	if ctrl, ok := svc.Controller("users"); !ok || ctrl.State() != index.StateReady {
		t.Error("expected a ready controller for the existing table")
	}
}

// --- Alter ---

func TestAlter_ReplacesOptionsAndController(t *testing.T) {
	svc, repo, _ := newTestService(t)

	if _, err := svc.Create(context.Background(), "users", testSchemaJSON, testOptions()); err != nil {
		t.Fatalf("create: %v", err)
	}
	old, _ := svc.Controller("users")
	repo.getResult = storedTable("users")

	tab, err := svc.Alter(context.Background(), "users",
		map[string]string{"refresh_seconds": "0", "max_buffered_docs": "5"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tab.Version() != 2 {
		t.Errorf("version = %d, want 2", tab.Version())
	}
	if len(repo.updated) != 1 {
		t.Fatalf("expected 1 catalog update, got %d", len(repo.updated))
	}

	fresh, ok := svc.Controller("users")
	if !ok {
		t.Fatal("expected a registered controller after alter")
	}
	if fresh == old {
		t.Error("alter must build a fresh controller")
	}
	if fresh.State() != index.StateReady {
		t.Errorf("controller state = %v, want Ready", fresh.State())
	}
}

func TestAlter_SchemaChangeRejected(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Alter(context.Background(), "users",
		map[string]string{"schema": `{"fields":{}}`})
	if !errors.Is(err, domain.ErrInvalidOptions) {
		t.Fatalf("expected ErrInvalidOptions, got %v", err)
	}
}

func TestAlter_UnknownTable(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.getErr = domain.ErrTableNotFound

	_, err := svc.Alter(context.Background(), "ghost", testOptions())
	if !errors.Is(err, domain.ErrTableNotFound) {
		t.Fatalf("expected ErrTableNotFound, got %v", err)
	}
}

// --- Drop ---

func TestDrop_RemovesIndexRowsAndCatalog(t *testing.T) {
	svc, repo, rows := newTestService(t)

	if _, err := svc.Create(context.Background(), "users", testSchemaJSON, testOptions()); err != nil {
		t.Fatalf("create: %v", err)
	}
	repo.getResult = storedTable("users")
	rows.count = 7

	if err := svc.Drop(context.Background(), "users"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows.purged) != 1 || rows.purged[0] != "users" {
		t.Errorf("expected row purge for users, got %v", rows.purged)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != "users" {
		t.Errorf("expected catalog delete for users, got %v", repo.deleted)
	}
	if _, ok := svc.Controller("users"); ok {
		t.Error("controller must be deregistered after drop")
	}
}

func TestDrop_UnknownTable(t *testing.T) {
	svc, repo, rows := newTestService(t)
	repo.getErr = domain.ErrTableNotFound

	err := svc.Drop(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrTableNotFound) {
		t.Fatalf("expected ErrTableNotFound, got %v", err)
	}
	if len(rows.purged) != 0 {
		t.Error("nothing may be purged for an unknown table")
	}
}

// --- Reload ---

func TestReload_ResurrectsInvalidatedController(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.Create(context.Background(), "users", testSchemaJSON, testOptions()); err != nil {
		t.Fatalf("create: %v", err)
	}
	ctrl, _ := svc.Controller("users")
	if err := ctrl.Invalidate(); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	if err := svc.Reload(context.Background(), "users"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctrl.State() != index.StateReady {
		t.Errorf("controller state = %v, want Ready", ctrl.State())
	}
}

func TestReload_OpensControllerFromCatalog(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.getResult = storedTable("users")

	if err := svc.Reload(context.Background(), "users"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctrl, ok := svc.Controller("users"); !ok || ctrl.State() != index.StateReady {
		t.Error("expected a ready controller after reload")
	}
}

func TestReload_UnknownTable(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.getErr = domain.ErrTableNotFound

	err := svc.Reload(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrTableNotFound) {
		t.Fatalf("expected ErrTableNotFound, got %v", err)
	}
}

// --- OpenAll ---

func TestOpenAll_RegistersEveryPersistedTable(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.listResult = []domtab.Table{storedTable("users"), storedTable("orders")}

	if err := svc.OpenAll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{"users", "orders"} {
		ctrl, ok := svc.Controller(name)
		if !ok {
			t.Fatalf("expected controller for %s", name)
		}
		if ctrl.State() != index.StateReady {
			t.Errorf("controller %s state = %v, want Ready", name, ctrl.State())
		}
	}
}

func TestOpenAll_BrokenIndexStaysRegistered(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "users"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write blocker file: %v", err)
	}

	repo := &mockRepo{listResult: []domtab.Table{storedTable("users")}}
	svc := New(repo, &mockPurger{}, dir, nil)
	t.Cleanup(func() { _ = svc.Close() })

	if err := svc.OpenAll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctrl, ok := svc.Controller("users")
	if !ok {
		t.Fatal("a broken index must still register its controller")
	}
	if ctrl.State() == index.StateReady {
		t.Error("controller cannot be Ready when the index failed to open")
	}
}

// --- Commit / Truncate ---

func TestCommit_UnknownTable(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.getErr = domain.ErrTableNotFound

	err := svc.Commit(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrTableNotFound) {
		t.Fatalf("expected ErrTableNotFound, got %v", err)
	}
}

func TestCommit_NoOpenIndex(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.getResult = storedTable("users")

	err := svc.Commit(context.Background(), "users")
	if !errors.Is(err, index.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestTruncate_ZeroTimeDropsEverything(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.Create(context.Background(), "users", testSchemaJSON, testOptions()); err != nil {
		t.Fatalf("create: %v", err)
	}
	ctrl, _ := svc.Controller("users")
	ctrl.Index("u1", domrow.Reconstruct("u1", map[string]any{"name": "Alice", "age": int64(30)}))
	if err := ctrl.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if err := svc.Truncate(context.Background(), "users", time.Time{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, _ := ctrl.Count(); n != 0 {
		t.Errorf("index docs = %d, want 0", n)
	}
}

// --- Close ---

func TestClose_DetachesControllers(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.Create(context.Background(), "users", testSchemaJSON, testOptions()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := svc.Controller("users"); ok {
		t.Error("controllers must be deregistered on close")
	}
}
