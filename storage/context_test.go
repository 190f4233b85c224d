package storage

import (
	"fmt"
	"testing"
)

type testHost struct {
	Base
	X int
}

func newTestHost() *testHost {
	h := &testHost{}
	h.Base.Init(h)
	return h
}

func (h *testHost) GetValue(kind Kind, sub any) (any, error) {
	if kind == Attr {
		if name, _ := sub.(string); name == "x" {
			return h.X, nil
		}
	}
	return nil, fmt.Errorf("no such attr: %v", sub)
}

func (h *testHost) SetValue(kind Kind, sub any, value any) error {
	if kind == Attr {
		if name, _ := sub.(string); name == "x" {
			h.X = value.(int)
			h.Notify(Attr, "x")
			return nil
		}
	}
	return fmt.Errorf("no such attr: %v", sub)
}

func TestAddValueWritesThroughEffectiveValue(t *testing.T) {
	ctx := NewContext()
	host := newTestHost()
	target := NewTarget(host, Attr, "x")

	if err := ctx.AddValue(target, ID(1), 42, 1, nil); err != nil {
		t.Fatalf("AddValue: %v", err)
	}
	if host.X != 42 {
		t.Fatalf("expected host.X == 42, got %d", host.X)
	}
}

func TestRemoveValueClearsWriteThrough(t *testing.T) {
	ctx := NewContext()
	host := newTestHost()
	target := NewTarget(host, Attr, "x")

	if err := ctx.AddValue(target, ID(1), 1, 1, nil); err != nil {
		t.Fatalf("AddValue: %v", err)
	}
	if err := ctx.AddValue(target, ID(2), 2, 2, nil); err != nil {
		t.Fatalf("AddValue: %v", err)
	}
	if host.X != 2 {
		t.Fatalf("expected host.X == 2, got %d", host.X)
	}
	if err := ctx.RemoveValue(target, ID(2)); err != nil {
		t.Fatalf("RemoveValue: %v", err)
	}
	if host.X != 1 {
		t.Fatalf("expected host.X == 1 after removing higher-priority entry, got %d", host.X)
	}
}

func TestTrackRecordsReads(t *testing.T) {
	ctx := NewContext()
	host := newTestHost()
	target := NewTarget(host, Attr, "x")
	if err := ctx.AddValue(target, NewID(), 7, 1, nil); err != nil {
		t.Fatalf("AddValue: %v", err)
	}

	val, deps := Track(ctx, func() any {
		v, _ := ctx.GetValue(target)
		return v
	})

	if val != 7 {
		t.Fatalf("expected 7, got %v", val)
	}
	if len(deps) != 1 || !deps[0].Equal(target) {
		t.Fatalf("expected deps to contain target, got %v", deps)
	}
}

func TestCommitWithoutTransaction(t *testing.T) {
	ctx := NewContext()
	if err := ctx.Commit(); !IsErrCode(NoTransactionErr, err) {
		t.Fatalf("expected NoTransactionErr, got %v", err)
	}
}

func TestBeginTwiceRejected(t *testing.T) {
	ctx := NewContext()
	if err := ctx.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := ctx.Begin(); !IsErrCode(NoTransactionErr, err) {
		t.Fatalf("expected NoTransactionErr on double Begin, got %v", err)
	}
}

func TestProcessEventsOscillationAborts(t *testing.T) {
	ctx := NewContext()
	host := newTestHost()
	a := NewTarget(host, Attr, "a")
	b := NewTarget(host, Attr, "b")

	ctx.AddWatchSet([]Target{a}, NewID(), func() { ctx.queue.Push(b) })
	ctx.AddWatchSet([]Target{b}, NewID(), func() { ctx.queue.Push(a) })

	ctx.mu.Lock()
	ctx.inTransaction = true
	ctx.queue.Push(a)
	ctx.mu.Unlock()

	err := ctx.ProcessEvents()
	if !IsErrCode(OscillationErr, err) {
		t.Fatalf("expected OscillationErr, got %v", err)
	}
}

func TestProcessEventsNestedDrainRejected(t *testing.T) {
	ctx := NewContext()
	host := newTestHost()
	a := NewTarget(host, Attr, "a")

	var nestedErr error
	ctx.AddWatchSet([]Target{a}, NewID(), func() {
		nestedErr = ctx.ProcessEvents()
	})

	ctx.mu.Lock()
	ctx.inTransaction = true
	ctx.queue.Push(a)
	ctx.mu.Unlock()

	if err := ctx.ProcessEvents(); err != nil {
		t.Fatalf("outer ProcessEvents: %v", err)
	}
	if !IsErrCode(NestedDrainErr, nestedErr) {
		t.Fatalf("expected NestedDrainErr, got %v", nestedErr)
	}
}
