// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package storage implements the reactive core of the rule engine: targets,
// value sets, watch sets, the transaction/commit protocol and the tracking
// object wrapper.
package storage

import (
	"sync"

	"github.com/rulebook/rbk/log"
	"github.com/rulebook/rbk/util"
)

// Setter is implemented by host objects whose attr/item slots the engine may
// write during commit. A Setter is expected to mutate its
// own state and then call its embedded Base's Notify, exactly like any other
// host setter.
type Setter interface {
	SetValue(kind Kind, sub any, value any) error
}

// Committer is implemented by anything that needs a hook run once per commit
// — in this module, that is ast.Directive. Defined here,
// not in ast, so storage never imports the directive tree; ast.Directive
// satisfies this structurally.
type Committer interface {
	Commit() error
}

// Orderable lets a Committer participate in deterministic commit-hook
// ordering: lower values commit first. Committers that don't implement it
// sort as 0.
type Orderable interface {
	CommitOrder() int
}

func commitOrderOf(c Committer) int {
	if o, ok := c.(Orderable); ok {
		return o.CommitOrder()
	}
	return 0
}

// ObjectCommitter is implemented by host objects that need a hook run once
// per commit, after their own fields have been written through by that same
// commit. Unlike Committer, which is keyed off the directive that
// contributed a value, ObjectCommitter is keyed off the object the value
// landed on, and runs in ascending CommitOrder (see CommitOrder below).
type ObjectCommitter interface {
	RbkCommit() error
}

// CommitOrder returns obj's commit-hook ordering key, read off its embedded
// Base, defaulting to 0 when obj carries none.
func CommitOrder(obj Trackable) int {
	base := obj.rbkBase()
	if base == nil {
		return 0
	}
	return base.CommitOrder
}

func targetEq(a, b any) bool { return a.(Target).Equal(b.(Target)) }
func targetHash(a any) int   { return a.(Target).Hash() }

type pendingWrite struct {
	value any
}

type frame struct {
	deps []Target
}

// Context is the single mutable home for every target's value set and watch
// set, the pending-event queue, and the transaction/commit protocol. A
// Context is not safe for concurrent use by multiple goroutines
// without external synchronization beyond what it does internally; the
// engine model is single-writer.
type Context struct {
	mu sync.Mutex

	values  *util.HashMap[Target, *ValueSet]
	watches *util.HashMap[Target, []watchEntry]

	queue *util.FIFO

	trackStack *util.LIFO

	inTransaction bool
	processing    bool
	asyncErr      error

	uncommittedValues     map[Target]pendingWrite
	uncommittedDirectives map[Committer]struct{}

	commitHooks []func([]Committer)

	logger log.Logger
}

type watchEntry struct {
	id ID
	h  Handler
}

// Option configures a Context at construction time.
type Option func(*Context)

// WithLogger installs a logger used to trace transaction begin/commit and
// value-set additions/removals at Debug level. The default is log.Global().
func WithLogger(l log.Logger) Option {
	return func(c *Context) { c.logger = l }
}

// WithCommitHook registers a callback invoked once per commit with the set
// of directives that committed, already sorted by CommitOrder. Multiple
// hooks may be registered; they run in registration order.
func WithCommitHook(h func([]Committer)) Option {
	return func(c *Context) { c.commitHooks = append(c.commitHooks, h) }
}

// NewContext returns a freshly initialized, empty Context.
func NewContext(opts ...Option) *Context {
	c := &Context{
		values:                util.NewHashMap[Target, *ValueSet](targetEq, targetHash),
		watches:               util.NewHashMap[Target, []watchEntry](targetEq, targetHash),
		queue:                 util.NewFIFO(),
		trackStack:            util.NewLIFO(),
		uncommittedValues:     map[Target]pendingWrite{},
		uncommittedDirectives: map[Committer]struct{}{},
		logger:                log.Global(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// beginTracking pushes a new read-tracking frame and returns nothing; reads
// observed until the matching endTracking are recorded against it.
func (c *Context) beginTracking() {
	c.trackStack.Push(&frame{})
}

// endTracking pops the current read-tracking frame and returns the targets
// it observed, in first-read order, one entry per distinct target (see
// RecordRead).
func (c *Context) endTracking() []Target {
	v, ok := c.trackStack.Pop()
	if !ok {
		return nil
	}
	return v.(*frame).deps
}

// Track runs fn in its own read-tracking frame and returns both fn's result
// and the list of targets it read. This is the primitive expression
// evaluation builds on to discover a directive's dependencies: each operand
// is evaluated in its own separate read-tracking frame.
func Track[T any](c *Context, fn func() T) (T, []Target) {
	c.beginTracking()
	v := fn()
	return v, c.endTracking()
}

// RecordRead notes that the current read-tracking frame, if any, observed
// target. The object wrapper calls this on every attribute/item read and on
// iteration. A target the frame already holds is not recorded twice.
func (c *Context) RecordRead(t Target) {
	v, ok := c.trackStack.Peek()
	if !ok {
		return
	}
	f := v.(*frame)
	for _, d := range f.deps {
		if d.Equal(t) {
			return
		}
	}
	f.deps = append(f.deps, t)
}

func (c *Context) valueSet(t Target) *ValueSet {
	vs, ok := c.values.Get(t)
	if !ok {
		vs = newValueSet()
		c.values.Put(t, vs)
	}
	return vs
}

// PendingValue returns the value queued by QueueWrite for t within the
// current transaction, if any, without recording a read. A Wrapper consults
// this before falling back to the host's own GetValue, so that a read made
// later in the same transaction as a write sees the write's value rather
// than the stale pre-transaction one still sitting on the host field.
func (c *Context) PendingValue(t Target) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.uncommittedValues[t]
	if !ok {
		return nil, false
	}
	return w.value, true
}

// GetValue returns the effective value at t, recording the read
// against the current tracking frame if one is open.
func (c *Context) GetValue(t Target) (any, error) {
	c.mu.Lock()
	vs, ok := c.values.Get(t)
	c.mu.Unlock()

	c.RecordRead(t)

	if !ok {
		return nil, emptyBaseError()
	}
	return vs.Effective()
}

// AddValue inserts or replaces the entry contributed under id to target's
// value set, then raises a value-set-changed notification for target.
//
// The host field itself is updated as part of the following commit:
// whenever the value set's effective value is computable, AddValue queues a
// write-through of it to the target (see Context.Commit), so the object a
// watcher observes always reflects the current effective value rather than
// a raw contribution.
func (c *Context) AddValue(t Target, id ID, value any, priority float64, comb Combinator) error {
	c.mu.Lock()
	vs := c.valueSet(t)
	vs.Put(id, ValueEntry{Value: value, Priority: priority, Combinator: comb})
	eff, effErr := vs.Effective()
	c.mu.Unlock()

	if effErr == nil {
		c.QueueWrite(t, eff)
	}

	c.logger.WithField("target", t.String()).Debug("value added")
	return c.NotifyChange(t)
}

// RemoveValue removes the entry contributed under id from target's value
// set and raises a value-set-changed notification. Silent if absent.
func (c *Context) RemoveValue(t Target, id ID) error {
	c.mu.Lock()
	vs, ok := c.values.Get(t)
	removed := false
	var eff any
	var effErr error = emptyBaseError()
	if ok {
		removed = vs.Delete(id)
		if vs.Len() == 0 {
			c.values.Delete(t)
		} else {
			eff, effErr = vs.Effective()
		}
	}
	c.mu.Unlock()

	if !removed {
		return nil
	}
	if effErr == nil {
		c.QueueWrite(t, eff)
	}
	c.logger.WithField("target", t.String()).Debug("value removed")
	return c.NotifyChange(t)
}
