package ns

import "github.com/rulebook/rbk/storage"

// Overlay presents a base Namespace with a small set of names bound
// locally and read-only: once a name is bound through Bind, reads of it see
// the overlay's own value, and any write attempt raises ShadowedWrite
// rather than silently reaching through to base. Writes to any other name
// forward to base unchanged. This is how a For body binds its iteration
// variable without letting rule code reassign it out from under the loop.
type Overlay struct {
	storage.Base
	base     *Namespace
	shadowed map[string]bool
	vars     map[string]any
}

// NewOverlay returns an Overlay over base with no names bound yet.
func NewOverlay(base *Namespace) *Overlay {
	o := &Overlay{base: base, shadowed: map[string]bool{}, vars: map[string]any{}}
	o.Base.Init(o)
	return o
}

// Bind sets the overlay's own value for name and marks it shadowed.
func (o *Overlay) Bind(name string, value any) {
	o.shadowed[name] = true
	o.vars[name] = value
	o.Base.Notify(storage.Attr, name)
}

// GetValue implements storage.Getter, preferring the overlay's own bindings
// over the base namespace.
func (o *Overlay) GetValue(kind storage.Kind, sub any) (any, error) {
	if kind != storage.Attr {
		return nil, undefinedNameError(attrName(sub))
	}
	name := attrName(sub)
	if v, ok := o.vars[name]; ok {
		return v, nil
	}
	return o.base.GetValue(kind, sub)
}

// SetValue implements storage.Setter. Writing a shadowed name is an error;
// every other name forwards to base.
func (o *Overlay) SetValue(kind storage.Kind, sub any, value any) error {
	if kind != storage.Attr {
		return undefinedNameError(attrName(sub))
	}
	name := attrName(sub)
	if o.shadowed[name] {
		return shadowedWriteError(name)
	}
	return o.base.SetValue(kind, sub, value)
}
