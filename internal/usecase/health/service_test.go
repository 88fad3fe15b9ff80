package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockStorePinger struct {
	err error
}

func (m *mockStorePinger) Ping(_ context.Context) error { return m.err }

type mockIndexObserver struct {
	states map[string]string
}

func (m *mockIndexObserver) States() map[string]string { return m.states }

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockStorePinger{}, &mockIndexObserver{states: map[string]string{
		"users": "ready", "orders": "ready",
	}})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if r.Checks["store"] != CheckOK {
		t.Errorf("expected store %q, got %q", CheckOK, r.Checks["store"])
	}
	if r.Checks["indexes"] != CheckOK {
		t.Errorf("expected indexes %q, got %q", CheckOK, r.Checks["indexes"])
	}
}

func TestCheck_StoreError(t *testing.T) {
	svc := New(&mockStorePinger{err: errors.New("conn refused")}, &mockIndexObserver{})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["store"] != CheckError {
		t.Errorf("expected store %q, got %q", CheckError, r.Checks["store"])
	}
}

func TestCheck_BrokenIndexDegrades(t *testing.T) {
	svc := New(&mockStorePinger{}, &mockIndexObserver{states: map[string]string{
		"users": "ready", "orders": "removed",
	}})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["indexes"] != CheckError {
		t.Errorf("expected indexes %q, got %q", CheckError, r.Checks["indexes"])
	}
	if r.States["orders"] != "removed" {
		t.Errorf("expected per-table state to carry through, got %v", r.States)
	}
}

func TestCheck_NilIndexObserver(t *testing.T) {
	svc := New(&mockStorePinger{}, nil)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks["indexes"]; ok {
		t.Error("no indexes check expected without an observer")
	}
}
