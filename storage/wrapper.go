// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package storage

import "fmt"

// Getter is implemented by host objects whose attr/item slots can be read
// generically through a Wrapper. Hosts that also implement Setter support
// engine-driven writes (see storage.go).
type Getter interface {
	GetValue(kind Kind, sub any) (any, error)
}

// Iterable is implemented by host objects that expose an iteration
// sequence, addressed as the (obj, Iter, nil) target.
type Iterable interface {
	Items() []any
}

// Wrapper mediates attribute, item, and iteration access to a Trackable
// host object through a Context, so every access is recorded against the
// caller's active read-tracking frame. Callers reach into a host object
// exclusively through its Wrapper rather than holding the bare object, so
// that expression code never bypasses dependency tracking by accident.
type Wrapper struct {
	ctx *Context
	obj Trackable
}

// Wrap returns a Wrapper around obj. Wrapping an object that is already a
// *Wrapper is an error: a value should pass through exactly one layer of
// wrapping, otherwise a single logical access would record more than one
// read.
func Wrap(ctx *Context, obj Trackable) (*Wrapper, error) {
	if _, ok := obj.(*Wrapper); ok {
		return nil, doubleWrapError()
	}
	return &Wrapper{ctx: ctx, obj: obj}, nil
}

func (w *Wrapper) rbkBase() *Base { return w.obj.rbkBase() }

// Track delegates to the wrapped object.
func (w *Wrapper) Track(sub TrackSub, h Handler) ID { return w.obj.Track(sub, h) }

// Untrack delegates to the wrapped object.
func (w *Wrapper) Untrack(sub TrackSub, id ID) { w.obj.Untrack(sub, id) }

// Unwrap returns the underlying host object.
func (w *Wrapper) Unwrap() Trackable { return w.obj }

// GetAttr reads a named attribute, recording the read and wrapping the
// result if it is itself Trackable.
func (w *Wrapper) GetAttr(name string) (any, error) {
	return w.get(Attr, name)
}

// GetItem reads a keyed item, recording the read.
func (w *Wrapper) GetItem(key any) (any, error) {
	return w.get(Item, key)
}

// get consults the Context's pending write for (obj, kind, sub) before
// falling back to the host's own GetValue, so that a read made later in the
// same transaction as a write (a rulebook chain like `y = x; z = y`
// reacting within one transaction) observes the freshly computed value
// rather than the host field's stale pre-commit contents.
func (w *Wrapper) get(kind Kind, sub any) (any, error) {
	if _, err := w.resolveBase(); err != nil {
		return nil, err
	}
	target := NewTarget(w.obj, kind, sub)

	var v any
	if pending, ok := w.ctx.PendingValue(target); ok {
		v = pending
	} else {
		g, ok := w.obj.(Getter)
		if !ok {
			return nil, fmt.Errorf("rbk: %T does not support reads", w.obj)
		}
		hv, err := g.GetValue(kind, sub)
		if err != nil {
			return nil, err
		}
		v = hv
	}

	w.ctx.RecordRead(target)
	if t, ok := v.(Trackable); ok {
		return Wrap(w.ctx, t)
	}
	return v, nil
}

// SetAttr writes a named attribute straight through to the host object; the
// host's own setter is responsible for calling Notify.
func (w *Wrapper) SetAttr(name string, value any) error {
	return w.set(Attr, name, value)
}

// SetItem writes a keyed item straight through.
func (w *Wrapper) SetItem(key any, value any) error {
	return w.set(Item, key, value)
}

// set writes straight through to the host object, then raises the same
// change notification AddValue/RemoveValue would, so that a write made
// directly through the wrapper (rule code assigning into a host object
// outside of an Assign directive's own contribution) schedules the same
// watchers a value-set change would.
func (w *Wrapper) set(kind Kind, sub any, value any) error {
	if _, err := w.resolveBase(); err != nil {
		return err
	}
	s, ok := w.obj.(Setter)
	if !ok {
		return fmt.Errorf("rbk: %T does not support writes", w.obj)
	}
	if u, ok := value.(*Wrapper); ok {
		value = u.Unwrap()
	}
	if err := s.SetValue(kind, sub, value); err != nil {
		return err
	}
	return w.ctx.NotifyChange(NewTarget(w.obj, kind, sub))
}

// Iter reports a read against the object's own iteration target and returns
// its items, wrapping any that are themselves Trackable.
func (w *Wrapper) Iter() ([]any, error) {
	if _, err := w.resolveBase(); err != nil {
		return nil, err
	}
	it, ok := w.obj.(Iterable)
	if !ok {
		return nil, fmt.Errorf("rbk: %T is not iterable", w.obj)
	}
	w.ctx.RecordRead(NewTarget(w.obj, Iter, nil))
	items := it.Items()
	out := make([]any, len(items))
	for i, v := range items {
		if t, ok := v.(Trackable); ok {
			wrapped, err := Wrap(w.ctx, t)
			if err != nil {
				return nil, err
			}
			out[i] = wrapped
			continue
		}
		out[i] = v
	}
	return out, nil
}

// Contains reports whether key is present, recording the same (obj, Item,
// key) read a direct GetItem would.
func (w *Wrapper) Contains(key any) bool {
	_, err := w.GetItem(key)
	return err == nil
}

// resolveBase rejects a wrapped object whose Base has no owner, i.e. one
// whose Base.Init was never called. The Wrapper holds its object strongly,
// so the object itself cannot be reclaimed while the Wrapper is alive.
func (w *Wrapper) resolveBase() (*Base, error) {
	base := w.obj.rbkBase()
	if base == nil || base.owner == nil {
		return nil, objectGoneError()
	}
	return base, nil
}

// Equal unwraps both sides before comparing, so a wrapped and an unwrapped
// reference to the same host object compare equal.
func Equal(a, b any) bool {
	if wa, ok := a.(*Wrapper); ok {
		a = wa.Unwrap()
	}
	if wb, ok := b.(*Wrapper); ok {
		b = wb.Unwrap()
	}
	return a == b
}
