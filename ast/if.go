package ast

import "github.com/rulebook/rbk/storage"

// If activates its then-body or else-body depending on a boolean condition,
// re-evaluating the condition and switching branches whenever anything it
// read changes. The watch set is registered before either branch is
// activated the first time, so a change arriving while the initial branch
// is still coming up is never missed.
type If struct {
	Base
	cond     func() bool
	thenBody Directive
	elseBody Directive // nil if there is no else branch

	deps    []storage.Target
	current Directive // the branch currently active, or nil
}

// NewIf returns an inactive If over cond, thenBody and elseBody. elseBody
// may be nil.
func NewIf(ctx *storage.Context, cond func() bool, thenBody, elseBody Directive) *If {
	f := &If{cond: cond, thenBody: thenBody, elseBody: elseBody}
	f.Base = newBase(ctx, f.onSetActive)
	return f
}

func (f *If) onSetActive(active bool) error {
	if !active {
		f.ctx.RemoveWatchSet(f.deps, f.id)
		f.deps = nil
		return f.switchTo(nil)
	}
	return f.reevaluate()
}

func (f *If) reevaluate() error {
	result, deps := storage.Track(f.ctx, f.cond)

	f.ctx.RemoveWatchSet(f.deps, f.id)
	f.deps = deps
	f.ctx.AddWatchSet(f.deps, f.id, func() { f.ctx.RecordError(f.reevaluate()) })

	var want Directive
	if result {
		want = f.thenBody
	} else {
		want = f.elseBody
	}
	return f.switchTo(want)
}

func (f *If) switchTo(want Directive) error {
	if f.current == want {
		return nil
	}
	if f.current != nil {
		if err := f.current.SetActive(false); err != nil {
			return err
		}
	}
	f.current = want
	if f.current != nil {
		if err := f.current.SetActive(true); err != nil {
			return err
		}
	}
	return nil
}
