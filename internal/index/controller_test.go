package index

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/rowdex/internal/domain"
	"github.com/kailas-cloud/rowdex/internal/domain/row"
	"github.com/kailas-cloud/rowdex/internal/search"
)

func memOptions() map[string]string {
	return map[string]string{
		OptionSchema:         testSchemaJSON,
		OptionInMemory:       "true",
		OptionRefreshSeconds: "0",
	}
}

func newReadyController(t *testing.T) *Controller {
	t.Helper()
	c := NewController("users", memOptions(), zap.NewNop())
	if err := c.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() { _ = c.Invalidate() })
	return c
}

func indexRow(t *testing.T, c *Controller, key string, columns map[string]any) {
	t.Helper()
	r, err := row.New(key, columns)
	if err != nil {
		t.Fatalf("new row %s: %v", key, err)
	}
	c.Index(key, r)
}

func controllerSearch(t *testing.T, c *Controller, reqJSON string) map[string]bool {
	t.Helper()
	req, err := search.ParseRequest([]byte(reqJSON))
	if err != nil {
		t.Fatalf("parse request: %v", err)
	}
	res, err := c.Search(context.Background(), &req)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	ids := make(map[string]bool, len(res.Hits))
	for _, h := range res.Hits {
		ids[h.ID] = true
	}
	return ids
}

func TestControllerLifecycle(t *testing.T) {
	c := NewController("users", memOptions(), zap.NewNop())
	if got := c.State(); got != StateUninitialized {
		t.Fatalf("state = %v, want uninitialized", got)
	}

	if err := c.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	if got := c.State(); got != StateReady {
		t.Fatalf("state = %v, want ready", got)
	}

	if err := c.Invalidate(); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if got := c.State(); got != StateRemoved {
		t.Fatalf("state = %v, want removed", got)
	}

	if err := c.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := c.State(); got != StateReady {
		t.Fatalf("state after reload = %v, want ready", got)
	}
	_ = c.Invalidate()
}

func TestControllerInitAfterRemoveFails(t *testing.T) {
	c := newReadyController(t)
	if err := c.RemoveIndex(); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := c.Init(); !errors.Is(err, domain.ErrIndexRemoved) {
		t.Errorf("init after remove = %v, want ErrIndexRemoved", err)
	}
}

func TestControllerReloadKeepsLiveHandle(t *testing.T) {
	c := newReadyController(t)
	before := c.svc
	if err := c.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if c.svc != before {
		t.Error("reload replaced a live service handle")
	}
}

func TestControllerIndexSwallowsFailures(t *testing.T) {
	c := newReadyController(t)

	// Fractional value for an integer field: the write must be dropped
	// without an error reaching the caller.
	c.Index("bad", row.Reconstruct("bad", map[string]any{"age": 30.5}))

	if got := c.State(); got != StateReady {
		t.Fatalf("state after failed write = %v, want ready", got)
	}

	indexRow(t, c, "good", map[string]any{"name": "alice", "age": 30})
	if err := c.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	ids := controllerSearch(t, c, `{}`)
	if len(ids) != 1 || !ids["good"] {
		t.Errorf("hits = %v, want only the good row", ids)
	}
}

func TestControllerIndexBeforeInitIsNoOp(t *testing.T) {
	c := NewController("users", memOptions(), zap.NewNop())
	c.Index("k", row.Reconstruct("k", map[string]any{"name": "x"}))
	if got := c.State(); got != StateUninitialized {
		t.Errorf("state = %v, want uninitialized", got)
	}
}

func TestControllerDeleteRowKeepsIndexLive(t *testing.T) {
	c := newReadyController(t)

	indexRow(t, c, "r1", map[string]any{"name": "alice"})
	indexRow(t, c, "r2", map[string]any{"name": "bob"})
	if err := c.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if err := c.DeleteRow("r1"); err != nil {
		t.Fatalf("delete row: %v", err)
	}
	if err := c.Commit(); err != nil {
		t.Fatalf("commit after delete: %v", err)
	}

	if got := c.State(); got != StateReady {
		t.Errorf("state after delete = %v, want ready", got)
	}
	ids := controllerSearch(t, c, `{}`)
	if len(ids) != 1 || !ids["r2"] {
		t.Errorf("hits = %v, want only r2", ids)
	}
}

func TestControllerRemovedOperationsFail(t *testing.T) {
	c := newReadyController(t)
	if err := c.RemoveIndex(); err != nil {
		t.Fatalf("remove: %v", err)
	}

	tests := []struct {
		name string
		op   func() error
	}{
		{"delete_row", func() error { return c.DeleteRow("k") }},
		{"commit", func() error { return c.Commit() }},
		{"truncate", func() error { return c.Truncate(context.Background(), time.Now()) }},
		{"delete_all", func() error { return c.DeleteAll(context.Background()) }},
		{"count", func() error { _, err := c.Count(); return err }},
		{"search", func() error {
			req, err := search.ParseRequest([]byte(`{}`))
			if err != nil {
				return err
			}
			_, err = c.Search(context.Background(), &req)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.op(); !errors.Is(err, domain.ErrIndexRemoved) {
				t.Errorf("error = %v, want ErrIndexRemoved", err)
			}
		})
	}

	// Removing again stays idempotent.
	if err := c.RemoveIndex(); err != nil {
		t.Errorf("second remove: %v", err)
	}
}

func TestControllerRemoveThenReloadBuildsFreshHandle(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "idx")
	options := map[string]string{
		OptionSchema:         testSchemaJSON,
		OptionDirectory:      dir,
		OptionRefreshSeconds: "0",
	}
	c := NewController("users", options, zap.NewNop())
	if err := c.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	indexRow(t, c, "r1", map[string]any{"name": "alice"})
	if err := c.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	torn := c.svc

	if err := c.RemoveIndex(); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("index directory survived removal: %v", err)
	}

	if err := c.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	defer c.RemoveIndex()

	if got := c.State(); got != StateReady {
		t.Fatalf("state = %v, want ready", got)
	}
	if c.svc == torn {
		t.Fatal("reload reused the torn-down service handle")
	}

	// The rebuilt index starts empty and accepts writes.
	n, err := c.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("count = %d, want 0 after rebuild", n)
	}
	indexRow(t, c, "r2", map[string]any{"name": "bob"})
	if err := c.Commit(); err != nil {
		t.Fatalf("commit after reload: %v", err)
	}
	ids := controllerSearch(t, c, `{}`)
	if len(ids) != 1 || !ids["r2"] {
		t.Errorf("hits = %v, want only r2", ids)
	}
}

func TestControllerConcurrentWritersAndTeardown(t *testing.T) {
	c := newReadyController(t)

	const writers = 8
	const perWriter = 50

	var wg sync.WaitGroup
	start := make(chan struct{})
	for g := 0; g < writers; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			<-start
			for i := 0; i < perWriter; i++ {
				key := fmt.Sprintf("g%d-k%d", g, i)
				cols := map[string]any{"name": "alice", "age": i}
				if i%10 == 9 {
					cols["age"] = 0.5 // swallowed coercion failure
				}
				c.Index(key, row.Reconstruct(key, cols))
			}
		}(g)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		for i := 0; i < perWriter; i++ {
			_ = c.DeleteRow(fmt.Sprintf("g0-k%d", i))
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		time.Sleep(2 * time.Millisecond)
		_ = c.RemoveIndex()
	}()

	close(start)
	wg.Wait()

	if got := c.State(); got != StateRemoved {
		t.Fatalf("state = %v, want removed", got)
	}

	// The controller must come back cleanly after the storm.
	if err := c.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	indexRow(t, c, "after", map[string]any{"name": "carol"})
	if err := c.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	ids := controllerSearch(t, c, `{"query": {"type": "match", "field": "name", "value": "carol"}}`)
	if !ids["after"] {
		t.Errorf("hits = %v, want the post-reload row", ids)
	}
}

func TestControllerRangeSearch(t *testing.T) {
	c := newReadyController(t)

	for _, age := range []int{17, 18, 40, 64, 65} {
		indexRow(t, c, fmt.Sprintf("age%d", age), map[string]any{"name": "person", "age": age})
	}
	if err := c.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	ids := controllerSearch(t, c, `{
		"query": {"type": "range", "field": "age",
		          "lower": 18, "upper": 65,
		          "include_lower": true, "include_upper": false},
		"limit": 100
	}`)
	want := map[string]bool{"age18": true, "age40": true, "age64": true}
	if len(ids) != len(want) {
		t.Fatalf("hits = %v, want %v", ids, want)
	}
	for k := range want {
		if !ids[k] {
			t.Errorf("missing hit %s", k)
		}
	}
}

func TestControllerSortedSearch(t *testing.T) {
	c := newReadyController(t)

	for _, age := range []int{40, 18, 64} {
		indexRow(t, c, fmt.Sprintf("age%d", age), map[string]any{"age": age})
	}
	if err := c.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	req, err := search.ParseRequest([]byte(`{"sort": [{"field": "age", "reverse": true}], "limit": 10}`))
	if err != nil {
		t.Fatalf("parse request: %v", err)
	}
	res, err := c.Search(context.Background(), &req)
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	var got []string
	for _, h := range res.Hits {
		got = append(got, h.ID)
	}
	want := []string{"age64", "age40", "age18"}
	if len(got) != len(want) {
		t.Fatalf("hits = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("hit[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestControllerBoostScalesScore(t *testing.T) {
	c := newReadyController(t)

	indexRow(t, c, "r1", map[string]any{"name": "alice wonder"})
	if err := c.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	score := func(reqJSON string) float64 {
		t.Helper()
		req, err := search.ParseRequest([]byte(reqJSON))
		if err != nil {
			t.Fatalf("parse request: %v", err)
		}
		res, err := c.Search(context.Background(), &req)
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(res.Hits) != 1 {
			t.Fatalf("hits = %d, want 1", len(res.Hits))
		}
		return res.Hits[0].Score
	}

	plain := score(`{"query": {"type": "match", "field": "name", "value": "alice"}}`)
	boosted := score(`{"query": {"type": "match", "field": "name", "value": "alice", "boost": 2}}`)

	if plain <= 0 {
		t.Fatalf("plain score = %v, want > 0", plain)
	}
	if ratio := boosted / plain; math.Abs(ratio-2) > 1e-6 {
		t.Errorf("boosted/plain = %v, want 2", ratio)
	}
}

func TestControllerSearchWithRefreshSeesBufferedWrites(t *testing.T) {
	c := newReadyController(t)

	indexRow(t, c, "r1", map[string]any{"name": "alice"})

	if ids := controllerSearch(t, c, `{}`); len(ids) != 0 {
		t.Errorf("unrefreshed search saw buffered writes: %v", ids)
	}
	if ids := controllerSearch(t, c, `{"refresh": true}`); !ids["r1"] {
		t.Errorf("refreshing search missed buffered write: %v", ids)
	}
}

func TestControllerTruncate(t *testing.T) {
	c := newReadyController(t)

	indexRow(t, c, "r1", map[string]any{"name": "alice"})
	indexRow(t, c, "r2", map[string]any{"name": "bob"})
	if err := c.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if err := c.Truncate(context.Background(), time.Now().Add(time.Second)); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	n, err := c.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
}

func TestControllerCompileErrorsSurface(t *testing.T) {
	c := newReadyController(t)

	req, err := search.ParseRequest([]byte(`{"query": {"type": "range", "field": "missing"}}`))
	if err != nil {
		t.Fatalf("parse request: %v", err)
	}
	if _, err := c.Search(context.Background(), &req); !errors.Is(err, domain.ErrUnknownField) {
		t.Errorf("error = %v, want ErrUnknownField", err)
	}
}
