// Package ast implements the directive activation tree: Block, If, For,
// Assign, and EnterLeave. Every directive embeds Base, which
// owns the directive's stable identity and the activation protocol shared
// by all of them.
package ast

import (
	"github.com/google/uuid"

	"github.com/rulebook/rbk/storage"
)

// Directive is implemented by every node in the activation tree.
type Directive interface {
	storage.Committer
	SetActive(active bool) error
	Active() bool
}

// Base implements the set_active protocol shared by every directive kind.
// Concrete directives embed Base and assign its setActive hook during
// construction; commit defaults to a no-op, which is correct for Assign and
// overridden by EnterLeave.
type Base struct {
	ctx     *storage.Context
	id      storage.ID
	uid     uuid.UUID
	active  bool
	cActive bool

	setActive   func(active bool) error
	commit      func() error
	commitOrder int
}

func newBase(ctx *storage.Context, setActive func(bool) error) Base {
	return Base{ctx: ctx, id: storage.NewID(), uid: uuid.New(), setActive: setActive}
}

// ID returns the directive's stable storage identity: the key under which
// it contributes entries to value sets and registers watch sets.
func (b *Base) ID() storage.ID { return b.id }

// UUID returns a process-stable identifier that survives directive copying
// in tests, independent of pointer identity.
func (b *Base) UUID() uuid.UUID { return b.uid }

// Active reports whether the directive is currently active.
func (b *Base) Active() bool { return b.active }

// CommitOrder implements storage.Orderable.
func (b *Base) CommitOrder() int { return b.commitOrder }

// SetCommitOrder sets the key Context.Commit sorts dirty directives by.
func (b *Base) SetCommitOrder(n int) { b.commitOrder = n }

// Commit implements storage.Committer. It only fires the subclass commit
// hook when active actually differs from the state last committed
// (c_active in the shared activation contract), so a directive toggled an
// even number of times within a single transaction, net unchanged, does not
// replay a commit-time transition that never really happened. The default
// hook is a no-op; directives that need one (EnterLeave) set it in their
// constructor.
func (b *Base) Commit() error {
	if b.cActive == b.active {
		return nil
	}
	b.cActive = b.active
	if b.commit == nil {
		return nil
	}
	return b.commit()
}

// SetActive runs the common activation contract: toggling to
// the state the directive is already in is a no-op. Otherwise, a
// transaction is opened if one is not already, the subclass hook runs, the
// directive is marked dirty, pending events drain, and the transaction
// commits if this call is the one that opened it. When SetActive is itself
// called from inside a running drain (a watcher switching an If branch or a
// For body), the pending events are left to that enclosing drain.
func (b *Base) SetActive(active bool) error {
	if b.active == active {
		return nil
	}

	openedHere := !b.ctx.InTransaction()
	if openedHere {
		if err := b.ctx.Begin(); err != nil {
			return err
		}
	}

	if err := b.setActive(active); err != nil {
		if openedHere {
			_ = b.ctx.Commit()
		}
		return err
	}

	b.active = active
	b.ctx.MarkDirty(b)

	err := b.ctx.ProcessEvents()
	if storage.IsErrCode(storage.NestedDrainErr, err) {
		err = nil
	}

	if openedHere {
		if cerr := b.ctx.Commit(); err == nil {
			err = cerr
		}
	}
	return err
}
