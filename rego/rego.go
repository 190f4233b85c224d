// Package rego is the top-level entry point: it wires a storage.Context, a
// root ns.Namespace, and a directive tree built by an injected Builder into
// a running Runtime.
package rego

import (
	"github.com/rulebook/rbk/ast"
	"github.com/rulebook/rbk/log"
	"github.com/rulebook/rbk/ns"
	"github.com/rulebook/rbk/storage"
)

// Builder turns rule source into a directive tree rooted at a single
// ast.Directive, reading and writing against the given namespace. Parsing
// and compiling rule syntax is out of scope for this module; Builder is the
// seam a caller plugs a real tokenizer/compiler into.
type Builder interface {
	Build(ctx *storage.Context, namespace *ns.Namespace) (ast.Directive, error)
}

type config struct {
	logger   log.Logger
	builtins map[string]any
	hooks    []func([]storage.Committer)
}

// Option configures Load.
type Option func(*config)

// WithLogger installs a logger the storage.Context traces transaction and
// value-set activity through.
func WithLogger(l log.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithBuiltins overrides the namespace's fallback table. The default is
// ns.DefaultBuiltins().
func WithBuiltins(b map[string]any) Option {
	return func(c *config) { c.builtins = b }
}

// WithCommitHook registers a callback run once per commit with the set of
// directives that committed.
func WithCommitHook(h func([]storage.Committer)) Option {
	return func(c *config) { c.hooks = append(c.hooks, h) }
}

// Runtime is the fully wired instance Load returns.
type Runtime struct {
	Context   *storage.Context
	Namespace *ns.Namespace
	Root      ast.Directive
}

// Load builds a Runtime using builder and activates its root directive,
// starting the ruleset running.
func Load(builder Builder, opts ...Option) (*Runtime, error) {
	cfg := &config{builtins: ns.DefaultBuiltins()}
	for _, opt := range opts {
		opt(cfg)
	}

	var storageOpts []storage.Option
	if cfg.logger != nil {
		storageOpts = append(storageOpts, storage.WithLogger(cfg.logger))
	}
	for _, h := range cfg.hooks {
		storageOpts = append(storageOpts, storage.WithCommitHook(h))
	}

	ctx := storage.NewContext(storageOpts...)
	namespace := ns.New(cfg.builtins)

	root, err := builder.Build(ctx, namespace)
	if err != nil {
		return nil, err
	}
	if err := root.SetActive(true); err != nil {
		return nil, err
	}

	return &Runtime{Context: ctx, Namespace: namespace, Root: root}, nil
}

// Close deactivates the root directive, unwinding every value-set and
// watch-set contribution it transitively holds.
func (r *Runtime) Close() error {
	return r.Root.SetActive(false)
}
