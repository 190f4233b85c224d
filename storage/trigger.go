// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package storage

// MaxChain bounds the number of cumulative watcher dispatches a single
// drain will perform before it concludes the graph is oscillating and
// aborts.
const MaxChain = 1000

// AddWatchSet registers h under id against every target in targets. A
// directive calls this once per activation with the dependency list
// produced by its own read-tracking frame.
func (c *Context) AddWatchSet(targets []Target, id ID, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range targets {
		lst, _ := c.watches.Get(t)
		lst = append(lst, watchEntry{id: id, h: h})
		c.watches.Put(t, lst)
	}
}

// RemoveWatchSet removes every registration made under id against the given
// targets. Called when a directive deactivates or re-evaluates its
// dependency list.
func (c *Context) RemoveWatchSet(targets []Target, id ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range targets {
		lst, ok := c.watches.Get(t)
		if !ok {
			continue
		}
		out := lst[:0:0]
		for _, e := range lst {
			if e.id != id {
				out = append(out, e)
			}
		}
		if len(out) == 0 {
			c.watches.Delete(t)
		} else {
			c.watches.Put(t, out)
		}
	}
}

// NotifyChange enqueues target for dispatch and drains the queue. If no
// transaction is currently open, NotifyChange opens and commits one around
// the drain itself, matching the convention that externally triggered
// single changes are each their own transaction.
//
// If a drain is already running (this call was itself made from inside a
// watcher handler, the common case for a reactive chain like `y = x; z =
// y`), NotifyChange only pushes onto the shared queue and returns; the
// enclosing ProcessEvents loop will pick the new target up on its own,
// since the queue is shared. Calling ProcessEvents again here would just
// fail with NestedDrainErr instead of actually advancing anything.
func (c *Context) NotifyChange(t Target) error {
	c.mu.Lock()
	if c.processing {
		c.queue.Push(t)
		c.mu.Unlock()
		return nil
	}
	openedHere := !c.inTransaction
	if openedHere {
		c.inTransaction = true
	}
	c.queue.Push(t)
	c.mu.Unlock()

	err := c.ProcessEvents()

	if openedHere {
		if cerr := c.Commit(); err == nil {
			err = cerr
		}
	}
	return err
}

// RecordError stores err as the drain's first observed error, if one has
// not already been recorded. Watch handlers run as bare Handler closures
// with no return value of their own; a directive's reevaluate hook calls
// this instead of discarding its error, so that a genuine mid-cascade
// failure (EmptyBaseErr, UnsupportedLvalueErr, ObjectGoneErr, ...) surfaces
// out of ProcessEvents/SetActive rather than vanishing silently.
func (c *Context) RecordError(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	if c.asyncErr == nil {
		c.asyncErr = err
	}
	c.mu.Unlock()
}

// ProcessEvents drains the pending-target queue, invoking every watcher
// registered against each dequeued target, until the queue is empty or
// MaxChain cumulative dispatches have occurred. It is not reentrant: a
// watcher that (directly or indirectly) calls back into ProcessEvents while
// one is already running gets NestedDrainErr.
func (c *Context) ProcessEvents() error {
	c.mu.Lock()
	if c.processing {
		c.mu.Unlock()
		return nestedDrainError()
	}
	c.processing = true
	c.asyncErr = nil
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.processing = false
		c.mu.Unlock()
	}()

	dispatches := 0
	for {
		c.mu.Lock()
		v, ok := c.queue.Pop()
		c.mu.Unlock()
		if !ok {
			break
		}
		t := v.(Target)

		c.mu.Lock()
		entries := append([]watchEntry(nil), mustGetWatches(c, t)...)
		c.mu.Unlock()

		for _, e := range entries {
			dispatches++
			if dispatches > MaxChain {
				return oscillationError(t, c.upcomingTargets(4))
			}
			e.h()
		}
	}

	c.mu.Lock()
	err := c.asyncErr
	c.asyncErr = nil
	c.mu.Unlock()
	return err
}

func mustGetWatches(c *Context, t Target) []watchEntry {
	lst, _ := c.watches.Get(t)
	return lst
}

func (c *Context) upcomingTargets(n int) []Target {
	c.mu.Lock()
	snap := c.queue.Snapshot()
	c.mu.Unlock()
	if len(snap) > n {
		snap = snap[:n]
	}
	out := make([]Target, 0, len(snap))
	for _, v := range snap {
		out = append(out, v.(Target))
	}
	return out
}
