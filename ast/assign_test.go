package ast_test

import (
	"fmt"
	"testing"

	"github.com/rulebook/rbk/ast"
	"github.com/rulebook/rbk/storage"
)

type cell struct {
	storage.Base
	V any
}

func newCell() *cell {
	c := &cell{}
	c.Base.Init(c)
	return c
}

var errNoSuchAttr = fmt.Errorf("no such attr")

func (c *cell) GetValue(kind storage.Kind, sub any) (any, error) {
	if kind == storage.Attr {
		if name, _ := sub.(string); name == "v" {
			return c.V, nil
		}
	}
	return nil, errNoSuchAttr
}

func (c *cell) SetValue(kind storage.Kind, sub any, value any) error {
	if kind == storage.Attr {
		if name, _ := sub.(string); name == "v" {
			c.V = value
			c.Notify(storage.Attr, "v")
			return nil
		}
	}
	return errNoSuchAttr
}

func TestAssignWritesRHSOnActivation(t *testing.T) {
	ctx := storage.NewContext()
	target := newCell()

	a := ast.NewAssign(ctx,
		func() (ast.Lvalue, error) { return ast.Lvalue{Obj: target, Kind: storage.Attr, Sub: "v"}, nil },
		func() any { return 5 },
		func() float64 { return 1 },
		nil,
	)

	if err := a.SetActive(true); err != nil {
		t.Fatalf("SetActive(true): %v", err)
	}
	if target.V != 5 {
		t.Fatalf("expected target.V == 5, got %v", target.V)
	}

	if err := a.SetActive(false); err != nil {
		t.Fatalf("SetActive(false): %v", err)
	}
}

func TestAssignReevaluatesOnDependencyChange(t *testing.T) {
	ctx := storage.NewContext()
	source := newCell()
	source.V = 1
	target := newCell()

	sourceWrapper, err := storage.Wrap(ctx, source)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}

	a := ast.NewAssign(ctx,
		func() (ast.Lvalue, error) { return ast.Lvalue{Obj: target, Kind: storage.Attr, Sub: "v"}, nil },
		func() any {
			v, _ := sourceWrapper.GetAttr("v")
			return v
		},
		func() float64 { return 1 },
		nil,
	)

	if err := a.SetActive(true); err != nil {
		t.Fatalf("SetActive(true): %v", err)
	}
	if target.V != 1 {
		t.Fatalf("expected target.V == 1, got %v", target.V)
	}

	if err := sourceWrapper.SetAttr("v", 2); err != nil {
		t.Fatalf("SetAttr: %v", err)
	}
	if target.V != 2 {
		t.Fatalf("expected target.V == 2 after dependency changed, got %v", target.V)
	}
}

// TestAssignChainSeesUncommittedValueWithinSameTransaction exercises a
// `y = x; z = y` style chain activating in a single transaction: z's
// right-hand side reads y's attribute while y's own write-through is still
// only queued, not yet applied to y's host field. z must observe the value
// y is about to take on, not whatever stale value sat on y's field before
// the transaction started.
func TestAssignChainSeesUncommittedValueWithinSameTransaction(t *testing.T) {
	ctx := storage.NewContext()
	x := newCell()
	x.V = 7
	y := newCell()
	y.V = -1 // a stale value the host field must not still show through
	z := newCell()

	yWrapper, err := storage.Wrap(ctx, y)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}

	ay := ast.NewAssign(ctx,
		func() (ast.Lvalue, error) { return ast.Lvalue{Obj: y, Kind: storage.Attr, Sub: "v"}, nil },
		func() any { return x.V },
		func() float64 { return 1 },
		nil,
	)
	az := ast.NewAssign(ctx,
		func() (ast.Lvalue, error) { return ast.Lvalue{Obj: z, Kind: storage.Attr, Sub: "v"}, nil },
		func() any {
			v, _ := yWrapper.GetAttr("v")
			return v
		},
		func() float64 { return 1 },
		nil,
	)

	blk := ast.NewBlock(ctx, ay, az)
	if err := blk.SetActive(true); err != nil {
		t.Fatalf("SetActive(true): %v", err)
	}

	if y.V != 7 {
		t.Fatalf("expected y.V == 7, got %v", y.V)
	}
	if z.V != 7 {
		t.Fatalf("expected z.V == 7 (reading y's freshly computed value), got %v", z.V)
	}
}

func TestAssignRelocatesOnLHSChange(t *testing.T) {
	ctx := storage.NewContext()
	targetA := newCell()
	targetB := newCell()
	holder := newCell()
	holder.V = targetA
	holderWrapper, err := storage.Wrap(ctx, holder)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}

	a := ast.NewAssign(ctx,
		func() (ast.Lvalue, error) {
			v, _ := holderWrapper.GetAttr("v")
			obj, _ := v.(storage.Trackable)
			return ast.Lvalue{Obj: obj, Kind: storage.Attr, Sub: "v"}, nil
		},
		func() any { return 9 },
		func() float64 { return 1 },
		nil,
	)

	if err := a.SetActive(true); err != nil {
		t.Fatalf("SetActive(true): %v", err)
	}
	if targetA.V != 9 {
		t.Fatalf("expected targetA.V == 9, got %v", targetA.V)
	}

	if err := holderWrapper.SetAttr("v", targetB); err != nil {
		t.Fatalf("SetAttr: %v", err)
	}
	if targetB.V != 9 {
		t.Fatalf("expected targetB.V == 9 after the left-hand side moved, got %v", targetB.V)
	}
}
