// Package topdown holds the pieces of expression evaluation that sit below
// the directive tree: RunExpr, a wrapper over the storage.Track
// read-tracking primitive, and the named relative-value combinators rule
// expressions can reach for by name.
package topdown

import "github.com/rulebook/rbk/storage"

// Add, Max, Min and Append are concrete storage.Combinator instances
// covering the common relative-assignment cases, rather than requiring
// every relative assignment to hand-build a closure. storage.ValueEntry.Combinator
// still accepts any func(any, any) any; these are sugar, not a restriction.
var (
	Add    storage.Combinator = addCombinator
	Max    storage.Combinator = maxCombinator
	Min    storage.Combinator = minCombinator
	Append storage.Combinator = appendCombinator
)

// Combinators maps a combinator's name to its implementation, for
// rulebook-level prio/combinator expressions that resolve a combinator by
// name rather than embedding one directly.
var Combinators = map[string]storage.Combinator{
	"add":    Add,
	"max":    Max,
	"min":    Min,
	"append": Append,
}

func addCombinator(base, rel any) any {
	return toFloat(base) + toFloat(rel)
}

func maxCombinator(base, rel any) any {
	b, r := toFloat(base), toFloat(rel)
	if r > b {
		return r
	}
	return b
}

func minCombinator(base, rel any) any {
	b, r := toFloat(base), toFloat(rel)
	if r < b {
		return r
	}
	return b
}

func appendCombinator(base, rel any) any {
	b, _ := base.([]any)
	out := make([]any, len(b), len(b)+1)
	copy(out, b)
	return append(out, rel)
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	default:
		return 0
	}
}
