package rego_test

import (
	"testing"

	"github.com/rulebook/rbk/ast"
	"github.com/rulebook/rbk/ns"
	"github.com/rulebook/rbk/rego"
	"github.com/rulebook/rbk/storage"
)

type constBuilder struct {
	name  string
	value any
}

func (b constBuilder) Build(ctx *storage.Context, namespace *ns.Namespace) (ast.Directive, error) {
	return ast.NewAssign(ctx,
		func() (ast.Lvalue, error) {
			return ast.Lvalue{Obj: namespace, Kind: storage.Attr, Sub: b.name}, nil
		},
		func() any { return b.value },
		func() float64 { return 1 },
		nil,
	), nil
}

func TestLoadActivatesRootDirective(t *testing.T) {
	rt, err := rego.Load(constBuilder{name: "answer", value: 42})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	v, err := rt.Namespace.GetValue(storage.Attr, "answer")
	if err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if v != 42 {
		t.Fatalf("expected 42, got %v", v)
	}
}

func TestCloseDeactivatesRootDirective(t *testing.T) {
	rt, err := rego.Load(constBuilder{name: "answer", value: 42})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if rt.Root.Active() {
		t.Fatalf("expected root directive to be inactive after Close")
	}
}

func TestWithBuiltinsOverridesDefaultTable(t *testing.T) {
	custom := map[string]any{"pi": 3.14}
	rt, err := rego.Load(constBuilder{name: "x", value: 1}, rego.WithBuiltins(custom))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	v, err := rt.Namespace.GetValue(storage.Attr, "pi")
	if err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if v != 3.14 {
		t.Fatalf("expected 3.14, got %v", v)
	}
	if _, err := rt.Namespace.GetValue(storage.Attr, "len"); err == nil {
		t.Fatalf("expected default builtins to be replaced, not merged")
	}
}

func TestWithCommitHookObservesActivationCommit(t *testing.T) {
	var committed []storage.Committer
	rt, err := rego.Load(constBuilder{name: "x", value: 1}, rego.WithCommitHook(func(dirty []storage.Committer) {
		committed = dirty
	}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(committed) != 1 {
		t.Fatalf("expected exactly one dirty directive from Load's activation commit, got %d", len(committed))
	}
	_ = rt
}
