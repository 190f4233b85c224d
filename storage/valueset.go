// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package storage

import "sort"

// Combinator folds a relative value entry onto a running base value:
// base = combinator(base, entry.value).
type Combinator func(base, rel any) any

// ValueEntry is a single contribution to a target's ValueSet: a value at a
// priority, optionally marked relative by a Combinator.
type ValueEntry struct {
	Value      any
	Priority   float64
	Combinator Combinator // nil for a non-relative ("absolute") entry
}

func (e ValueEntry) relative() bool { return e.Combinator != nil }

// ValueSet is the mapping from a contributing directive's identity to its
// ValueEntry for one target. Insertion order is preserved so that
// ties in priority resolve deterministically within a single run, matching
// the reference implementation's reliance on stable sort over insertion
// order (original_source rulebook/runtime.py get_effective_value).
type ValueSet struct {
	order []ID
	byID  map[ID]ValueEntry
}

func newValueSet() *ValueSet {
	return &ValueSet{byID: map[ID]ValueEntry{}}
}

// Put inserts or replaces the entry contributed under id.
func (vs *ValueSet) Put(id ID, e ValueEntry) {
	if _, ok := vs.byID[id]; !ok {
		vs.order = append(vs.order, id)
	}
	vs.byID[id] = e
}

// Delete removes the entry contributed under id. Returns true if present.
func (vs *ValueSet) Delete(id ID) bool {
	if _, ok := vs.byID[id]; !ok {
		return false
	}
	delete(vs.byID, id)
	for i, x := range vs.order {
		if x == id {
			vs.order = append(vs.order[:i], vs.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of contributing entries.
func (vs *ValueSet) Len() int { return len(vs.byID) }

// Effective computes the set's effective value: sort by descending priority,
// find the highest-priority non-relative entry (the anchor), then fold in
// the relative entries strictly above it from lowest-above-anchor to
// highest. Fails with EmptyBaseErr if no non-relative anchor exists,
// including when the set is empty.
func (vs *ValueSet) Effective() (any, error) {
	entries := make([]ValueEntry, 0, len(vs.order))
	for _, id := range vs.order {
		entries = append(entries, vs.byID[id])
	}
	// Stable sort descending by priority; ties keep insertion order, which
	// keeps tie-breaking deterministic within one execution without being
	// specified further.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Priority > entries[j].Priority
	})

	anchor := 0
	for anchor < len(entries) && entries[anchor].relative() {
		anchor++
	}
	if anchor >= len(entries) {
		return nil, emptyBaseError()
	}

	base := entries[anchor].Value
	anchorPrio := entries[anchor].Priority
	for i := anchor - 1; i >= 0; i-- {
		if entries[i].Priority <= anchorPrio {
			continue
		}
		base = entries[i].Combinator(base, entries[i].Value)
	}
	return base, nil
}
