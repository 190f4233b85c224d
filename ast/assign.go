package ast

import "github.com/rulebook/rbk/storage"

// Lvalue is the (host object, slot) pair an Assign writes to, produced by
// evaluating the assignment's left-hand side.
type Lvalue struct {
	Obj  storage.Trackable
	Kind storage.Kind
	Sub  any
}

// Assign contributes a value to a target's value set for as long as it is
// active, at a given priority, optionally combined relative to the rest of
// the set rather than replacing it outright.
//
// obj, rhs and prio are evaluated in three independent read-tracking
// frames, not one shared frame, because each can legitimately depend on a
// disjoint set of targets and conflating them would force an unnecessary
// re-evaluation of all three whenever any one dependency changes.
// Assign's own Commit hook is an intentional no-op: the actual host-field
// write-through happens centrally, once per target, inside
// storage.Context.Commit — not per contributing directive — so that
// several Assigns targeting the same slot collapse into a single write
// instead of each clobbering the others' in the same commit.
type Assign struct {
	Base
	lvalue func() (Lvalue, error)
	rhs    func() any
	prio   func() float64
	comb   storage.Combinator

	deps       []storage.Target
	lastTarget *storage.Target
}

// NewAssign returns an inactive Assign. comb is nil for an absolute
// assignment, or a two-argument fold function for a relative one.
func NewAssign(ctx *storage.Context, lvalue func() (Lvalue, error), rhs func() any, prio func() float64, comb storage.Combinator) *Assign {
	a := &Assign{lvalue: lvalue, rhs: rhs, prio: prio, comb: comb}
	a.Base = newBase(ctx, a.onSetActive)
	return a
}

func (a *Assign) onSetActive(active bool) error {
	if !active {
		a.ctx.RemoveWatchSet(a.deps, a.id)
		a.deps = nil
		if a.lastTarget != nil {
			if err := a.ctx.RemoveValue(*a.lastTarget, a.id); err != nil {
				return err
			}
			a.lastTarget = nil
		}
		return nil
	}
	return a.reevaluate()
}

func (a *Assign) reevaluate() error {
	lv, lvDeps := storage.Track(a.ctx, func() Lvalue {
		v, err := a.lvalue()
		if err != nil {
			return Lvalue{}
		}
		return v
	})
	if lv.Obj == nil {
		return unsupportedLvalueError(lv)
	}
	rhsVal, rhsDeps := storage.Track(a.ctx, a.rhs)
	prioVal, prioDeps := storage.Track(a.ctx, a.prio)

	deps := make([]storage.Target, 0, len(lvDeps)+len(rhsDeps)+len(prioDeps))
	deps = append(deps, lvDeps...)
	deps = append(deps, rhsDeps...)
	deps = append(deps, prioDeps...)

	a.ctx.RemoveWatchSet(a.deps, a.id)
	a.deps = deps
	a.ctx.AddWatchSet(a.deps, a.id, func() { a.ctx.RecordError(a.reevaluate()) })

	target := storage.NewTarget(lv.Obj, lv.Kind, lv.Sub)
	if a.lastTarget != nil && !a.lastTarget.Equal(target) {
		if err := a.ctx.RemoveValue(*a.lastTarget, a.id); err != nil {
			return err
		}
	}
	a.lastTarget = &target

	return a.ctx.AddValue(target, a.id, rhsVal, prioVal, a.comb)
}
