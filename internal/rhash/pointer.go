// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rhash

// PointerTable maps pointer-identity keys to arbitrary values, using
// pointer equality (no dereference, no string comparison). Keys are
// compared by their uintptr representation; lookup multiplies by the
// golden ratio and shifts right by the table's current shift to pick a
// bucket.
type PointerTable[V any] struct {
	t *table[uintptr, ptrEntry[V]]
}

type ptrEntry[V any] struct {
	key   uintptr
	value V
}

// NewPointerTable returns an empty table. Callers pass keys as the uintptr
// used for hashing and comparison.
func NewPointerTable[V any]() *PointerTable[V] {
	var zero ptrEntry[V]
	pt := &PointerTable[V]{}
	pt.t = newTable[uintptr, ptrEntry[V]](
		func(k uintptr) uint64 { return uint64(k) },
		func(e ptrEntry[V], k uintptr) bool { return e.key == k },
		func(e ptrEntry[V]) uintptr { return e.key },
		zero,
	)
	return pt
}

// Len reports the number of stored keys.
func (pt *PointerTable[V]) Len() int { return pt.t.len() }

// Fetch returns the value stored for key, or the zero value and false if
// absent.
func (pt *PointerTable[V]) Fetch(key uintptr) (V, bool) {
	if len(pt.t.entries) == 0 {
		var zero V
		return zero, false
	}
	slot := pt.t.lookup(pt.t.ideal(pt.t.hash(key)), key)
	if slot < 0 {
		var zero V
		return zero, false
	}
	return pt.t.entries[slot].value, true
}

// LvalueFetch returns a pointer to the stored value for key, creating a
// zero-valued entry if absent. fresh reports whether the entry was just
// created.
func (pt *PointerTable[V]) LvalueFetch(key uintptr) (value *V, fresh bool) {
	slot, fresh := pt.t.fetchOrInsert(key)
	if fresh {
		pt.t.entries[slot] = ptrEntry[V]{key: key}
	}
	return &pt.t.entries[slot].value, fresh
}

// Insert stores value for key, panicking if key is already present with a
// different value. equal decides whether two values may coexist for the
// same key; routes through LvalueFetch so a fresh key never triggers the
// conflict check.
func (pt *PointerTable[V]) Insert(key uintptr, value V, equal func(a, b V) bool) {
	v, fresh := pt.LvalueFetch(key)
	if !fresh && !equal(*v, value) {
		panic("rhash: conflicting value for existing pointer key")
	}
	*v = value
}

// InsertUnconditional stores value for key regardless of any prior value,
// a convenience over the conflict-checked Insert.
func (pt *PointerTable[V]) InsertUnconditional(key uintptr, value V) {
	v, _ := pt.LvalueFetch(key)
	*v = value
}

// Delete removes key, a no-op if absent.
func (pt *PointerTable[V]) Delete(key uintptr) {
	if len(pt.t.entries) == 0 {
		return
	}
	slot := pt.t.lookup(pt.t.ideal(pt.t.hash(key)), key)
	if slot < 0 {
		return
	}
	pt.t.deleteSlot(slot)
}

// FetchAndDelete removes key and returns its prior value, or the zero
// value and false if absent.
func (pt *PointerTable[V]) FetchAndDelete(key uintptr) (V, bool) {
	v, ok := pt.Fetch(key)
	if !ok {
		return v, false
	}
	pt.Delete(key)
	return v, true
}

// Fsck runs the shared probe-distance self-check.
func (pt *PointerTable[V]) Fsck() error { return pt.t.fsck() }
