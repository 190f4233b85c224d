package topdown

import (
	"testing"

	"github.com/rulebook/rbk/storage"
)

type evalHost struct {
	storage.Base
	X int
}

func newEvalHost() *evalHost {
	h := &evalHost{}
	h.Base.Init(h)
	return h
}

func (h *evalHost) GetValue(kind storage.Kind, sub any) (any, error) {
	return h.X, nil
}

func TestRunExprReturnsValueAndDeps(t *testing.T) {
	ctx := storage.NewContext()
	host := newEvalHost()
	target := storage.NewTarget(host, storage.Attr, "x")

	if err := ctx.AddValue(target, storage.NewID(), 41, 1, nil); err != nil {
		t.Fatalf("AddValue: %v", err)
	}

	val, deps := RunExpr(ctx, func() int {
		v, _ := ctx.GetValue(target)
		n, _ := v.(int)
		return n
	})

	if val != 41 {
		t.Fatalf("expected 41, got %v", val)
	}
	if len(deps) != 1 || !deps[0].Equal(target) {
		t.Fatalf("expected deps to contain target, got %v", deps)
	}
}
