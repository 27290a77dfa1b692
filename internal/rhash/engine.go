// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rhash implements a family of open-addressed Robin-Hood hash
// tables sharing one layout recipe and one probe/insert/delete algorithm.
// Each variant (pointer keys, interned-string keys via an external index,
// string keys with an indirected payload) only supplies a hash function,
// an equality function and an entry shape; the probing discipline below is
// shared verbatim.
//
// Layout: one contiguous allocation holds, conceptually, entry slots
// followed by a control header followed by a metadata byte array with a
// sentinel byte of value 1 at each end. In C this is one malloc'd block
// with the entries growing downward from the header; here it is two
// separately allocated slices of equal length (entries, metadata) that are
// replaced together on grow, with no sentinel bytes and no overflow slots:
// probing wraps around to slot 0 at the end of the table.
package rhash

const (
	// initialSize is the number of buckets a freshly allocated table starts
	// with (PTR_INITIAL_SIZE in the source design).
	initialSize = 8

	// maxProbeDistance bounds how far an entry may be displaced from its
	// ideal bucket. Reaching it during insertion is a programming error;
	// the engine instead forces a grow before any insert can get that far.
	maxProbeDistance = 255

	// loadFactorNum/Den express the 0.75 load factor threshold.
	loadFactorNum = 3
	loadFactorDen = 4
)

// goldenRatio64 is the 64-bit golden ratio multiplicative hash constant
// used to spread pointer-derived hash words before taking the top bits.
const goldenRatio64 = 11400714819323198485

// table is the generic engine shared by every variant. K is the key type
// used for equality and re-hash during grow; E is the stored entry type.
// Variants embed *table[K, E] and add their own typed accessors.
type table[K any, E any] struct {
	entries []E    // logical slot i lives at entries[i]; never reordered except by probe/insert/delete
	meta    []uint8 // meta[i] is 1+probeDistance for slot i, 0 if empty; len(meta) == len(entries)

	curItems int
	maxItems int  // load-factor threshold; forced to 0 to demand a grow before the next insert
	shift    uint // key right shift: bucket = hash >> shift

	hash func(K) uint64
	eq   func(E, K) bool
	key  func(E) K
	zero E
}

func newTable[K any, E any](hash func(K) uint64, eq func(E, K) bool, key func(E) K, zero E) *table[K, E] {
	return &table[K, E]{
		hash: hash,
		eq:   eq,
		key:  key,
		zero: zero,
	}
}

func (t *table[K, E]) len() int { return t.curItems }

func (t *table[K, E]) init() {
	t.entries = make([]E, initialSize)
	t.meta = make([]uint8, initialSize)
	t.maxItems = initialSize * loadFactorNum / loadFactorDen
	// word_bits - 3 for an 8-bucket initial table (log2(8) == 3).
	t.shift = 64 - 3
}

// ideal derives a bucket index from a raw hash word by post-multiplying
// with the golden ratio constant and taking the top bits (shift). Pointer
// keys pass their hash straight through; the string-keyed variants'
// externally provided hash is mixed the same way here rather than being
// pre-mixed by the caller, so every variant shares this one path.
func (t *table[K, E]) ideal(h uint64) int {
	return int((h * goldenRatio64) >> t.shift)
}

func wrap(i, n int) int {
	if i >= n {
		return i - n
	}
	return i
}

// lookup returns the slot holding k, or -1 if absent.
func (t *table[K, E]) lookup(bucket int, k K) int {
	if len(t.entries) == 0 {
		return -1
	}
	n := len(t.entries)
	slot := bucket
	dist := uint8(1)
	for {
		m := t.meta[slot]
		if m < dist {
			return -1
		}
		if m == dist && t.eq(t.entries[slot], k) {
			return slot
		}
		if dist == maxProbeDistance {
			return -1
		}
		dist++
		slot = wrap(slot+1, n)
	}
}

// fetchOrInsert returns the slot for k, creating a zero-valued entry if
// absent, and reports whether the entry was freshly created. It grows the
// table first if capacity demands it and the key is not already present
// (lookups must never trigger a grow, since a grow invalidates iterators).
func (t *table[K, E]) fetchOrInsert(k K) (slot int, fresh bool) {
	if len(t.entries) == 0 {
		t.init()
	}
	h := t.hash(k)
	bucket := t.ideal(h)
	if s := t.lookup(bucket, k); s >= 0 {
		return s, false
	}
	if t.curItems >= t.maxItems {
		t.grow()
		bucket = t.ideal(h)
	}
	return t.insertNew(bucket, k), true
}

// insertNew places a fresh key into the table, displacing occupants with
// smaller probe distance as Robin-Hood hashing requires, and returns the
// slot the caller should fill in.
func (t *table[K, E]) insertNew(bucket int, k K) int {
	n := len(t.entries)
	slot := bucket
	dist := uint8(1)
	newKeySlot := -1
	for {
		m := t.meta[slot]
		if m < dist {
			if m == 0 {
				t.meta[slot] = dist
				t.curItems++
				if newKeySlot < 0 {
					newKeySlot = slot
				}
				return newKeySlot
			}
			// Displace: make room by shifting the block [slot, gap) forward
			// by one, bumping every shifted entry's probe distance.
			gap := slot
			d := m
			for {
				gap = wrap(gap+1, n)
				d++
				if d >= maxProbeDistance {
					// Force the *next* insertion to grow first; this one
					// still completes since we already hold the gap.
					t.maxItems = 0
				}
				if t.meta[gap] == 0 {
					break
				}
				d = t.meta[gap] + 1
			}
			// Shift entries/meta from slot..gap-1 one slot to the right.
			for i := gap; i != slot; {
				prev := i - 1
				if prev < 0 {
					prev = n - 1
				}
				t.entries[i] = t.entries[prev]
				t.meta[i] = t.meta[prev] + 1
				i = prev
			}
			t.meta[slot] = dist
			t.curItems++
			if newKeySlot < 0 {
				newKeySlot = slot
			}
			return newKeySlot
		}
		if dist == maxProbeDistance {
			panic("rhash: probe distance overflow on insertion")
		}
		dist++
		slot = wrap(slot+1, n)
	}
}

// deleteSlot removes the entry at slot, shifting back every subsequent
// entry whose probe distance is greater than one.
func (t *table[K, E]) deleteSlot(slot int) {
	n := len(t.entries)
	cur := slot
	for {
		next := wrap(cur+1, n)
		if t.meta[next] <= 1 {
			t.entries[cur] = t.zero
			t.meta[cur] = 0
			break
		}
		t.entries[cur] = t.entries[next]
		t.meta[cur] = t.meta[next] - 1
		cur = next
	}
	t.curItems--
}

// grow doubles the table and reinserts every live entry from scratch.
func (t *table[K, E]) grow() {
	old := t.entries
	oldMeta := t.meta
	newSize := len(t.entries) * 2
	if newSize == 0 {
		newSize = initialSize
	}
	t.entries = make([]E, newSize)
	t.meta = make([]uint8, newSize)
	t.curItems = 0
	t.maxItems = newSize * loadFactorNum / loadFactorDen
	t.shift--

	for i, m := range oldMeta {
		if m == 0 {
			continue
		}
		k := t.key(old[i])
		bucket := t.ideal(t.hash(k))
		slot := t.insertNew(bucket, k)
		t.entries[slot] = old[i]
	}
}

// fsck walks the table and reports the first invariant violation found, or
// nil if none. It is the self-check tool named in the design: every
// occupied slot's metadata must equal 1 + (actual slot - ideal slot), and
// cur_items must equal the count of non-zero metadata bytes.
func (t *table[K, E]) fsck() error {
	n := len(t.entries)
	count := 0
	for slot := 0; slot < n; slot++ {
		m := t.meta[slot]
		if m == 0 {
			continue
		}
		count++
		k := t.key(t.entries[slot])
		ideal := t.ideal(t.hash(k))
		dist := wrap(slot-ideal+n, n) + 1
		if int(m) != dist {
			return fsckError{slot: slot, want: dist, got: int(m)}
		}
	}
	if count != t.curItems {
		return fsckError{slot: -1, want: t.curItems, got: count}
	}
	return nil
}

type fsckError struct {
	slot, want, got int
}

func (e fsckError) Error() string {
	if e.slot < 0 {
		return "rhash: cur_items mismatch"
	}
	return "rhash: probe-distance metadata mismatch at slot"
}
