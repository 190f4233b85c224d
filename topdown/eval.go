package topdown

import "github.com/rulebook/rbk/storage"

// RunExpr evaluates fn inside its own read-tracking frame and returns fn's
// result together with the targets it read. It is a thin wrapper over
// storage.Track, the primitive the ast directives call directly to evaluate
// each of their expression fields (a condition, a right-hand side, a
// priority, an lvalue), so that each gets its own independent dependency
// list.
func RunExpr[T any](ctx *storage.Context, fn func() T) (T, []storage.Target) {
	return storage.Track(ctx, fn)
}
