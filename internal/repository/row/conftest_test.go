package row

import (
	"context"
	"testing"

	"github.com/kailas-cloud/rowdex/internal/db"
	domrow "github.com/kailas-cloud/rowdex/internal/domain/row"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	getFn       func(ctx context.Context, key string) ([]byte, error)
	multiGetFn  func(ctx context.Context, keys []string) ([][]byte, error)
	setFn       func(ctx context.Context, key string, value []byte) error
	setMultiFn  func(ctx context.Context, items []db.SetItem) error
	delFn       func(ctx context.Context, key string) error
	delPrefixFn func(ctx context.Context, prefix string) (int, error)
	scanFn      func(ctx context.Context, prefix string) ([]string, error)
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

func (m *mockStore) SetMulti(ctx context.Context, items []db.SetItem) error {
	if m.setMultiFn != nil {
		return m.setMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func (m *mockStore) DelPrefix(ctx context.Context, prefix string) (int, error) {
	if m.delPrefixFn != nil {
		return m.delPrefixFn(ctx, prefix)
	}
	return 0, nil
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

func testRow(t *testing.T, key string) domrow.Row {
	t.Helper()
	return domrow.Reconstruct(key, map[string]any{
		"name": "Alice",
		"age":  int64(30),
	})
}

func encodedRow(t *testing.T, r domrow.Row) []byte {
	t.Helper()
	data, err := encodeRow(r)
	if err != nil {
		t.Fatalf("encode row: %v", err)
	}
	return data
}
