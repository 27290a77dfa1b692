// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rhash

const NotFound = ^uint32(0)

// InternedList is the external interned-string store an IndexTable's
// entries point into. The table never stores string bytes itself; it
// stores indexes, and re-reads strings through this interface to compare
// keys.
type InternedList interface {
	// StringAt returns the interned string stored at idx.
	StringAt(idx uint32) string
}

// IndexTable maps string keys to uint32 indexes into an externally owned
// InternedList.
type IndexTable struct {
	t    *table[string, uint32]
	list InternedList
}

func stringHash(s string) uint64 {
	// A simple FNV-1a mix; the golden-ratio post-multiply before bucketing
	// is applied uniformly by table.ideal, not here.
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}

// NewIndexTable returns an empty table reading strings back through list.
func NewIndexTable(list InternedList) *IndexTable {
	it := &IndexTable{list: list}
	it.t = newTable[string, uint32](
		stringHash,
		func(idx uint32, k string) bool { return it.list.StringAt(idx) == k },
		func(idx uint32) string { return it.list.StringAt(idx) },
		NotFound,
	)
	return it
}

// Fetch returns the index stored for key, or NotFound.
func (it *IndexTable) Fetch(key string) uint32 {
	if len(it.t.entries) == 0 {
		return NotFound
	}
	slot := it.t.lookup(it.t.ideal(stringHash(key)), key)
	if slot < 0 {
		return NotFound
	}
	return it.t.entries[slot]
}

// Insert associates key with idx (the index at which key is interned in
// the external list). Re-inserting the same key with a different idx
// oopses, since the interned list is append-only and a key's index never
// changes once assigned.
func (it *IndexTable) Insert(key string, idx uint32) {
	slot, fresh := it.t.fetchOrInsert(key)
	if !fresh {
		if it.t.entries[slot] != idx {
			panic("rhash: interned string re-indexed")
		}
		return
	}
	it.t.entries[slot] = idx
}

// Len reports the number of stored keys.
func (it *IndexTable) Len() int { return it.t.len() }

// Fsck runs the shared probe-distance self-check.
func (it *IndexTable) Fsck() error { return it.t.fsck() }
