package ast_test

import (
	"testing"

	"github.com/rulebook/rbk/ast"
	"github.com/rulebook/rbk/storage"
)

func TestIfActivatesThenBranch(t *testing.T) {
	ctx := storage.NewContext()
	var thenActive, elseActive bool

	then := ast.NewBlock(ctx,
		ast.NewEnterLeave(ctx, ast.Enter, func() { thenActive = true }),
		ast.NewEnterLeave(ctx, ast.Leave, func() { thenActive = false }),
	)
	els := ast.NewBlock(ctx,
		ast.NewEnterLeave(ctx, ast.Enter, func() { elseActive = true }),
		ast.NewEnterLeave(ctx, ast.Leave, func() { elseActive = false }),
	)

	cond := true
	f := ast.NewIf(ctx, func() bool { return cond }, then, els)

	if err := f.SetActive(true); err != nil {
		t.Fatalf("SetActive(true): %v", err)
	}
	if !thenActive || elseActive {
		t.Fatalf("expected then branch active, else inactive: then=%v else=%v", thenActive, elseActive)
	}
}

func TestIfSwitchesBranchOnReevaluation(t *testing.T) {
	ctx := storage.NewContext()
	host := newCell()
	host.V = true

	var thenActive, elseActive bool
	then := ast.NewBlock(ctx,
		ast.NewEnterLeave(ctx, ast.Enter, func() { thenActive = true }),
		ast.NewEnterLeave(ctx, ast.Leave, func() { thenActive = false }),
	)
	els := ast.NewBlock(ctx,
		ast.NewEnterLeave(ctx, ast.Enter, func() { elseActive = true }),
		ast.NewEnterLeave(ctx, ast.Leave, func() { elseActive = false }),
	)

	wrapped, err := storage.Wrap(ctx, host)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}

	f := ast.NewIf(ctx, func() bool {
		v, _ := wrapped.GetAttr("v")
		b, _ := v.(bool)
		return b
	}, then, els)

	if err := f.SetActive(true); err != nil {
		t.Fatalf("SetActive(true): %v", err)
	}
	if !thenActive {
		t.Fatalf("expected then branch active initially")
	}

	if err := wrapped.SetAttr("v", false); err != nil {
		t.Fatalf("SetAttr: %v", err)
	}
	if thenActive || !elseActive {
		t.Fatalf("expected switch to else branch after condition flipped: then=%v else=%v", thenActive, elseActive)
	}
}

func TestIfWithNilElseBranch(t *testing.T) {
	ctx := storage.NewContext()
	var thenActive bool
	then := ast.NewEnterLeave(ctx, ast.Enter, func() { thenActive = true })

	f := ast.NewIf(ctx, func() bool { return false }, then, nil)
	if err := f.SetActive(true); err != nil {
		t.Fatalf("SetActive(true): %v", err)
	}
	if thenActive {
		t.Fatalf("expected then branch to stay inactive when condition is false and else is nil")
	}
}
