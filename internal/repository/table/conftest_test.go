package table

import (
	"context"
	"testing"

	domtab "github.com/kailas-cloud/rowdex/internal/domain/table"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	getFn      func(ctx context.Context, key string) ([]byte, error)
	multiGetFn func(ctx context.Context, keys []string) ([][]byte, error)
	setFn      func(ctx context.Context, key string, value []byte) error
	delFn      func(ctx context.Context, key string) error
	existsFn   func(ctx context.Context, key string) (bool, error)
	scanFn     func(ctx context.Context, prefix string) ([]string, error)
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, nil
}

func (m *mockStore) MultiGet(ctx context.Context, keys []string) ([][]byte, error) {
	if m.multiGetFn != nil {
		return m.multiGetFn(ctx, keys)
	}
	return nil, nil
}

func (m *mockStore) Set(ctx context.Context, key string, value []byte) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value)
	}
	return nil
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

func (m *mockStore) Scan(ctx context.Context, prefix string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, prefix)
	}
	return nil, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms, "")
	return repo, ms
}

const testSchemaJSON = `{"fields":{"name":{"type":"text"},"age":{"type":"integer"}}}`

func testTable(t *testing.T) domtab.Table {
	t.Helper()
	return domtab.Reconstruct(
		"users",
		testSchemaJSON,
		map[string]string{"in_memory": "true"},
		1700000000000,
		1,
	)
}

func encodedTable(t *testing.T, tab domtab.Table) []byte {
	t.Helper()
	data, err := encodeTable(tab)
	if err != nil {
		t.Fatalf("encode table: %v", err)
	}
	return data
}
