package ast

import "github.com/rulebook/rbk/storage"

// For activates one body per item yielded by source, diffing successive
// item lists by raw identity rather than equality: a survivor keeps its
// existing body, new items get a freshly built one, and items that
// disappeared have their body deactivated. Items must be
// comparable values (typically pointers to trackable host objects).
//
// If the sequence being iterated is itself a trackable host object, pass it
// as iterObj so For also subscribes to its own (obj, Iter, nil) target and
// re-diffs on structural changes the source expression's own dependencies
// wouldn't otherwise catch.
type For struct {
	Base
	source   func() []any
	iterObj  storage.Trackable
	makeBody func(item any) Directive

	deps   []storage.Target
	bodies map[any]Directive
}

// NewFor returns an inactive For. iterObj may be nil.
func NewFor(ctx *storage.Context, source func() []any, iterObj storage.Trackable, makeBody func(item any) Directive) *For {
	f := &For{source: source, iterObj: iterObj, makeBody: makeBody, bodies: map[any]Directive{}}
	f.Base = newBase(ctx, f.onSetActive)
	return f
}

func (f *For) onSetActive(active bool) error {
	if !active {
		f.ctx.RemoveWatchSet(f.deps, f.id)
		f.deps = nil
		return f.deactivateAll()
	}
	return f.reconcile()
}

func (f *For) reconcile() error {
	items, deps := storage.Track(f.ctx, f.source)
	if f.iterObj != nil {
		deps = append(deps, storage.NewTarget(f.iterObj, storage.Iter, nil))
	}

	f.ctx.RemoveWatchSet(f.deps, f.id)
	f.deps = deps
	f.ctx.AddWatchSet(f.deps, f.id, func() { f.ctx.RecordError(f.reconcile()) })

	seen := make(map[any]bool, len(items))
	for _, item := range items {
		seen[item] = true
		if _, ok := f.bodies[item]; !ok {
			f.bodies[item] = f.makeBody(item)
		}
	}
	for item, body := range f.bodies {
		if seen[item] {
			continue
		}
		if err := body.SetActive(false); err != nil {
			return err
		}
		delete(f.bodies, item)
	}
	for _, item := range items {
		if err := f.bodies[item].SetActive(true); err != nil {
			return err
		}
	}
	return nil
}

func (f *For) deactivateAll() error {
	for item, body := range f.bodies {
		if err := body.SetActive(false); err != nil {
			return err
		}
		delete(f.bodies, item)
	}
	return nil
}
