package ast

import "github.com/rulebook/rbk/storage"

// Tag selects which activation edge an EnterLeave action fires on.
// Enter/Leave fire synchronously with the activation edge itself, inside
// SetActive's subclass hook; CEnter/CLeave fire during the directive's
// Commit hook, once the surrounding transaction's write-through has
// actually taken effect.
type Tag int

const (
	Enter Tag = iota
	Leave
	CEnter
	CLeave
)

// EnterLeave runs an opaque, zero-argument action once on a particular
// activation edge and never again until that edge recurs. It carries no
// value-set or watch-set state of its own; it exists purely to let
// directive trees sequence side effects against activation and commit.
type EnterLeave struct {
	Base
	tag    Tag
	action func()
}

// NewEnterLeave returns an inactive EnterLeave that runs action on the
// given edge.
func NewEnterLeave(ctx *storage.Context, tag Tag, action func()) *EnterLeave {
	el := &EnterLeave{tag: tag, action: action}
	el.Base = newBase(ctx, el.onSetActive)
	if tag == CEnter || tag == CLeave {
		el.Base.commit = el.onCommit
	}
	return el
}

func (el *EnterLeave) onSetActive(active bool) error {
	switch el.tag {
	case Enter:
		if active {
			el.action()
		}
	case Leave:
		if !active {
			el.action()
		}
	}
	return nil
}

func (el *EnterLeave) onCommit() error {
	switch el.tag {
	case CEnter:
		if el.active {
			el.action()
		}
	case CLeave:
		if !el.active {
			el.action()
		}
	}
	return nil
}
