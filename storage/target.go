package storage

import (
	"fmt"
	"sync"
	"sync/atomic"
	"weak"
)

// Kind is the category of slot a Target addresses.
type Kind int

const (
	// Attr addresses a named attribute on a host object.
	Attr Kind = iota
	// Item addresses a keyed item on a host object (e.g. map/slice element).
	Item
	// Iter addresses "the iteration sequence of object" as a whole; Sub is
	// unused for this kind.
	Iter
)

func (k Kind) String() string {
	switch k {
	case Attr:
		return "attr"
	case Item:
		return "item"
	case Iter:
		return "iter"
	default:
		return "unknown"
	}
}

// Handler is invoked synchronously when a tracked target changes. It
// carries no arguments: a watch set registers the same closure against
// every one of its targets, and the consumer re-evaluates itself whichever
// target fired — this mirrors the host protocol's "tracker()" callback
// convention.
type Handler func()

// ID identifies a track registration, a value-set contributor, or a watch
// set.
type ID uint64

var lastID uint64

// NewID returns a process-wide unique identifier. Each directive in the ast
// package takes one at construction as the key for its value-set entries
// and watch sets.
func NewID() ID {
	return ID(atomic.AddUint64(&lastID, 1))
}

// TrackSub selects what a Track registration listens for: either a specific
// (kind, sub) slot, or every change on the object (the wildcard form).
type TrackSub struct {
	kind     Kind
	sub      any
	wildcard bool
}

// On returns a TrackSub matching exactly the given (kind, sub) slot.
func On(kind Kind, sub any) TrackSub {
	return TrackSub{kind: kind, sub: sub}
}

// Any returns a TrackSub matching every change on the object.
func Any() TrackSub {
	return TrackSub{wildcard: true}
}

type subKey struct {
	kind Kind
	sub  any
}

// Trackable is implemented by host objects that participate in reactivity.
// The only exported requirement is Track/Untrack; the sealing method is
// promoted automatically by embedding Base, which is the supported way to
// implement this interface: a concrete trackable base type whose setters
// are the single funnel for notifications.
type Trackable interface {
	Track(sub TrackSub, h Handler) ID
	Untrack(sub TrackSub, id ID)

	rbkBase() *Base
}

type trackEntry struct {
	id ID
	h  Handler
}

// Base is embedded by host structs to make them Trackable. Host setters call
// Notify after mutating a public field; Notify is the single funnel every
// change flows through. Fields/attributes whose name begins with
// an underscore are a host-side convention for "internal" and should simply
// never route through Notify.
//
// Every Base must be initialized once via Init before use.
type Base struct {
	id          uint64
	owner       Trackable
	mu          sync.Mutex
	handlers    map[subKey][]trackEntry
	wildcard    []trackEntry
	nextTrackID uint64

	// CommitOrder is read by Context.Commit to sort per-object commit hooks.
	// Zero by default.
	CommitOrder int
}

var lastBaseID uint64

// Init associates a Base with its owning host object. owner is typically the
// struct that embeds this Base, passed as a pointer. Init is idempotent with
// respect to identity assignment but always refreshes the owner reference.
func (b *Base) Init(owner Trackable) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.id == 0 {
		b.id = atomic.AddUint64(&lastBaseID, 1)
	}
	b.owner = owner
}

func (b *Base) rbkBase() *Base { return b }

// Track registers a handler for the given sub-selector and returns an ID
// that can later be passed to Untrack.
func (b *Base) Track(sub TrackSub, h Handler) ID {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextTrackID++
	id := ID(b.nextTrackID)
	entry := trackEntry{id: id, h: h}
	if sub.wildcard {
		b.wildcard = append(b.wildcard, entry)
		return id
	}
	if b.handlers == nil {
		b.handlers = map[subKey][]trackEntry{}
	}
	k := subKey{kind: sub.kind, sub: sub.sub}
	b.handlers[k] = append(b.handlers[k], entry)
	return id
}

// Untrack removes a previously registered handler. Unknown ids are ignored.
func (b *Base) Untrack(sub TrackSub, id ID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub.wildcard {
		b.wildcard = removeEntry(b.wildcard, id)
		return
	}
	k := subKey{kind: sub.kind, sub: sub.sub}
	if lst, ok := b.handlers[k]; ok {
		b.handlers[k] = removeEntry(lst, id)
	}
}

func removeEntry(lst []trackEntry, id ID) []trackEntry {
	out := lst[:0:0]
	for _, e := range lst {
		if e.id != id {
			out = append(out, e)
		}
	}
	return out
}

// Notify fans the change on (kind, sub) out to every matching handler plus
// every wildcard handler. Handlers must not block; Notify itself
// is synchronous and does not enqueue anything — that is the Context's job,
// done by the handler closures it registers via AddWatchSet.
func (b *Base) Notify(kind Kind, sub any) {
	b.mu.Lock()
	k := subKey{kind: kind, sub: sub}
	specific := append([]trackEntry(nil), b.handlers[k]...)
	wild := append([]trackEntry(nil), b.wildcard...)
	b.mu.Unlock()

	for _, e := range specific {
		e.h()
	}
	for _, e := range wild {
		e.h()
	}
}

// Target identifies a mutable slot (object, kind, sub) on a host object.
// The object is referenced weakly: once the owning host object becomes
// unreachable from elsewhere, the Target's value-set and watch-set entries
// become unreachable through it too.
type Target struct {
	obj   weak.Pointer[Base]
	objID uint64
	Kind  Kind
	Sub   any
}

// NewTarget builds a Target addressing (obj, kind, sub).
func NewTarget(obj Trackable, kind Kind, sub any) Target {
	base := obj.rbkBase()
	return Target{obj: weak.Make(base), objID: base.id, Kind: kind, Sub: sub}
}

// Resolve returns the live Trackable the Target addresses, or ok=false if
// the object has been reclaimed.
func (t Target) Resolve() (Trackable, bool) {
	base := t.obj.Value()
	if base == nil {
		return nil, false
	}
	return base.owner, true
}

// MustResolve is like Resolve but returns ObjectGoneErr instead of ok=false,
// for callers that need to surface reclamation as an error rather than
// silently skip it.
func (t Target) MustResolve() (Trackable, error) {
	obj, ok := t.Resolve()
	if !ok {
		return nil, objectGoneError()
	}
	return obj, nil
}

// Equal reports whether two targets address the same slot. Identity of the
// object is compared by the stable id captured at Target-creation time, so
// equality survives reclamation of the object itself.
func (t Target) Equal(o Target) bool {
	return t.objID == o.objID && t.Kind == o.Kind && t.Sub == o.Sub
}

// Hash returns a hash code suitable for use with util.HashMap.
func (t Target) Hash() int {
	h := int(t.objID)*31 + int(t.Kind)
	return h*31 + hashAny(t.Sub)
}

func hashAny(v any) int {
	switch x := v.(type) {
	case nil:
		return 0
	case string:
		h := 0
		for _, c := range x {
			h = h*31 + int(c)
		}
		return h
	case int:
		return x
	default:
		return int(fmt.Sprintf("%v", x)[0])
	}
}

func (t Target) String() string {
	return fmt.Sprintf("(%d, %s, %v)", t.objID, t.Kind, t.Sub)
}
