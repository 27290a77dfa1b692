// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rhash

// Keyed is implemented by payload types stored behind a FixkeyTable. The
// table stores P directly (typically a pointer type) so that payload
// addresses stay stable across grows, unlike the inline entries of
// PointerTable/IndexTable.
type Keyed interface {
	// FixkeyString returns the key this payload is stored under. A zero
	// value (empty string) marks a freshly allocated, not-yet-keyed
	// payload.
	FixkeyString() string
}

// FixkeyTable maps string keys to pointers to externally allocated,
// fixed-shape payloads.
type FixkeyTable[P Keyed] struct {
	t     *table[string, P]
	alloc func() P
}

// NewFixkeyTable returns an empty table. alloc allocates a fresh,
// zero-keyed payload on first insertion of a new key; the caller is
// responsible for filling in the key field afterward.
func NewFixkeyTable[P Keyed](alloc func() P) *FixkeyTable[P] {
	ft := &FixkeyTable[P]{alloc: alloc}
	ft.t = newTable[string, P](
		stringHash,
		func(p P, k string) bool { return p.FixkeyString() == k },
		func(p P) string { return p.FixkeyString() },
		*new(P),
	)
	return ft
}

// Fetch returns the payload pointer stored for key, or the zero value and
// false if absent.
func (ft *FixkeyTable[P]) Fetch(key string) (P, bool) {
	if len(ft.t.entries) == 0 {
		var zero P
		return zero, false
	}
	slot := ft.t.lookup(ft.t.ideal(stringHash(key)), key)
	if slot < 0 {
		var zero P
		return zero, false
	}
	return ft.t.entries[slot], true
}

// LvalueFetch returns the payload for key, allocating and inserting a
// fresh zero-keyed one (via alloc) if absent. The caller must set the
// payload's key field when fresh is true, since the table only indexes by
// the string it is given here, not by whatever the payload reports until
// the caller makes the two agree.
func (ft *FixkeyTable[P]) LvalueFetch(key string) (payload P, fresh bool) {
	if len(ft.t.entries) == 0 {
		ft.t.init()
	}
	h := stringHash(key)
	bucket := ft.t.ideal(h)
	if slot := ft.t.lookup(bucket, key); slot >= 0 {
		return ft.t.entries[slot], false
	}
	if ft.t.curItems >= ft.t.maxItems {
		ft.t.grow()
		bucket = ft.t.ideal(h)
	}
	slot := ft.t.insertNew(bucket, key)
	p := ft.alloc()
	ft.t.entries[slot] = p
	return p, true
}

// Len reports the number of stored keys.
func (ft *FixkeyTable[P]) Len() int { return ft.t.len() }

// Fsck runs the shared probe-distance self-check.
func (ft *FixkeyTable[P]) Fsck() error { return ft.t.fsck() }
