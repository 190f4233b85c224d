// Package ns implements the namespace that anchors rule expression
// evaluation: a trackable root object mapping names to values, with a
// fallthrough to a fixed builtins table for names it doesn't bind itself.
package ns

import "github.com/rulebook/rbk/storage"

// Namespace is a trackable mapping from name to value. Reads of a name it
// does not hold fall through to its builtins table.
type Namespace struct {
	storage.Base
	vars     map[string]any
	builtins map[string]any
}

// New returns an empty Namespace backed by builtins. Pass DefaultBuiltins()
// for the standard table, or nil for none.
func New(builtins map[string]any) *Namespace {
	if builtins == nil {
		builtins = map[string]any{}
	}
	n := &Namespace{vars: map[string]any{}, builtins: builtins}
	n.Base.Init(n)
	return n
}

// GetValue implements storage.Getter. Only Attr targets are supported; a
// Namespace has no items or iteration sequence of its own.
func (n *Namespace) GetValue(kind storage.Kind, sub any) (any, error) {
	if kind != storage.Attr {
		return nil, undefinedNameError(attrName(sub))
	}
	name := attrName(sub)
	if v, ok := n.vars[name]; ok {
		return v, nil
	}
	if v, ok := n.builtins[name]; ok {
		return v, nil
	}
	return nil, undefinedNameError(name)
}

// SetValue implements storage.Setter.
func (n *Namespace) SetValue(kind storage.Kind, sub any, value any) error {
	if kind != storage.Attr {
		return undefinedNameError(attrName(sub))
	}
	name := attrName(sub)
	n.vars[name] = value
	n.Base.Notify(storage.Attr, name)
	return nil
}

func attrName(sub any) string {
	name, _ := sub.(string)
	return name
}

// DefaultBuiltins returns the math/collection primitives a namespace's
// fallback table exposes by default: len, max, min, abs, sum.
func DefaultBuiltins() map[string]any {
	return map[string]any{
		"len": func(v []any) int { return len(v) },
		"max": func(vs ...float64) float64 {
			m := vs[0]
			for _, v := range vs[1:] {
				if v > m {
					m = v
				}
			}
			return m
		},
		"min": func(vs ...float64) float64 {
			m := vs[0]
			for _, v := range vs[1:] {
				if v < m {
					m = v
				}
			}
			return m
		},
		"abs": func(x float64) float64 {
			if x < 0 {
				return -x
			}
			return x
		},
		"sum": func(vs []float64) float64 {
			var s float64
			for _, v := range vs {
				s += v
			}
			return s
		},
	}
}
