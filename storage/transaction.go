// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package storage

import "sort"

// Begin opens a transaction. It is an error to call Begin while one is
// already open.
func (c *Context) Begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inTransaction {
		return noTransactionError("transaction already open")
	}
	c.inTransaction = true
	c.logger.Debug("transaction begin")
	return nil
}

// InTransaction reports whether a transaction is currently open.
func (c *Context) InTransaction() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inTransaction
}

// MarkDirty records that d has pending commit work, to be run by the next
// Commit.
func (c *Context) MarkDirty(d Committer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uncommittedDirectives[d] = struct{}{}
}

// QueueWrite records that target should take on value at the next Commit.
// AddValue and RemoveValue call it with the value set's new effective
// value, so the write-through is deferred to commit time and several
// Assigns targeting the same slot collapse into a single write.
func (c *Context) QueueWrite(t Target, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uncommittedValues[t] = pendingWrite{value: value}
}

// Commit runs every dirty directive's Commit hook in ascending CommitOrder,
// applies every queued write-through, runs the RbkCommit hook of every
// written-to object that implements ObjectCommitter (in ascending
// CommitOrder of its own), then invokes any registered global commit hooks
// with the directive list. It is an error to call Commit with no open
// transaction.
func (c *Context) Commit() error {
	c.mu.Lock()
	if !c.inTransaction {
		c.mu.Unlock()
		return noTransactionError("commit called with no open transaction")
	}

	writes := c.uncommittedValues
	c.uncommittedValues = map[Target]pendingWrite{}

	dirty := make([]Committer, 0, len(c.uncommittedDirectives))
	for d := range c.uncommittedDirectives {
		dirty = append(dirty, d)
	}
	c.uncommittedDirectives = map[Committer]struct{}{}
	c.inTransaction = false

	var hooks []func([]Committer)
	hooks = append(hooks, c.commitHooks...)
	c.mu.Unlock()

	sort.Slice(dirty, func(i, j int) bool { return commitOrderOf(dirty[i]) < commitOrderOf(dirty[j]) })

	var firstErr error
	for _, d := range dirty {
		if err := d.Commit(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	touched := make([]Trackable, 0, len(writes))
	seenObj := map[uint64]bool{}
	for t, w := range writes {
		obj, ok := t.Resolve()
		if !ok {
			continue
		}
		setter, ok := obj.(Setter)
		if !ok {
			continue
		}
		if err := setter.SetValue(t.Kind, t.Sub, w.value); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if base := obj.rbkBase(); base != nil && !seenObj[base.id] {
			seenObj[base.id] = true
			touched = append(touched, obj)
		}
	}

	sort.Slice(touched, func(i, j int) bool { return CommitOrder(touched[i]) < CommitOrder(touched[j]) })
	for _, obj := range touched {
		oc, ok := obj.(ObjectCommitter)
		if !ok {
			continue
		}
		if err := oc.RbkCommit(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	for _, h := range hooks {
		h(dirty)
	}

	c.logger.Debug("transaction commit")
	return firstErr
}
