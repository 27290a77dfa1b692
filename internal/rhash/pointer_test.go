// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rhash

import "testing"

// Insert 1000 distinct pointer keys in ascending order, then in shuffled
// order; curItems, fetch, fsck, and max probe distance must all come out
// right.
func TestPointerTable_BulkInsertAscendingAndShuffled(t *testing.T) {
	const n = 1000

	run := func(t *testing.T, keys []uintptr) {
		pt := NewPointerTable[int]()
		for i, k := range keys {
			v, fresh := pt.LvalueFetch(k)
			if !fresh {
				t.Fatalf("key %d unexpectedly present", k)
			}
			*v = i
		}
		if pt.Len() != n {
			t.Fatalf("Len() = %d, want %d", pt.Len(), n)
		}
		for i, k := range keys {
			v, ok := pt.Fetch(k)
			if !ok || v != i {
				t.Fatalf("Fetch(%d) = (%d, %v), want (%d, true)", k, v, ok, i)
			}
		}
		if err := pt.Fsck(); err != nil {
			t.Fatalf("fsck: %v", err)
		}
		maxMeta := uint8(0)
		for _, m := range pt.t.meta {
			if m > maxMeta {
				maxMeta = m
			}
		}
		if maxMeta > maxProbeDistance {
			t.Fatalf("max probe distance %d exceeds %d", maxMeta, maxProbeDistance)
		}
	}

	ascending := make([]uintptr, n)
	for i := range ascending {
		// Keys are 8 apart, like aligned pointers, starting at 16.
		ascending[i] = uintptr(i*8 + 16)
	}
	t.Run("ascending", func(t *testing.T) { run(t, ascending) })

	shuffled := append([]uintptr(nil), ascending...)
	// Deterministic shuffle (no math/rand dependency on ordering needed
	// for the property under test, just a non-monotonic insertion order).
	for i := len(shuffled) - 1; i > 0; i-- {
		j := (i * 2654435761) % (i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	t.Run("shuffled", func(t *testing.T) { run(t, shuffled) })
}

func TestPointerTable_DeleteStability(t *testing.T) {
	pt := NewPointerTable[string]()
	keys := []uintptr{8, 16, 24, 32, 40, 800, 808, 1600}
	for i, k := range keys {
		v, _ := pt.LvalueFetch(k)
		*v = string(rune('a' + i))
	}
	pt.Delete(keys[2])
	if _, ok := pt.Fetch(keys[2]); ok {
		t.Fatalf("deleted key %d still present", keys[2])
	}
	for i, k := range keys {
		if i == 2 {
			continue
		}
		if _, ok := pt.Fetch(k); !ok {
			t.Fatalf("key %d lost after unrelated delete", k)
		}
	}
	if err := pt.Fsck(); err != nil {
		t.Fatalf("fsck after delete: %v", err)
	}
}

func TestPointerTable_FetchAndDelete(t *testing.T) {
	pt := NewPointerTable[int]()
	pt.InsertUnconditional(42, 99)
	v, ok := pt.FetchAndDelete(42)
	if !ok || v != 99 {
		t.Fatalf("FetchAndDelete = (%d, %v), want (99, true)", v, ok)
	}
	if _, ok := pt.Fetch(42); ok {
		t.Fatalf("key still present after FetchAndDelete")
	}
	if _, ok := pt.FetchAndDelete(42); ok {
		t.Fatalf("FetchAndDelete on absent key reported present")
	}
}

func TestPointerTable_GrowPreservesKeyset(t *testing.T) {
	pt := NewPointerTable[int]()
	const n = 64
	for i := 0; i < n; i++ {
		v, _ := pt.LvalueFetch(uintptr(i*16 + 8))
		*v = i * i
	}
	for i := 0; i < n; i++ {
		v, ok := pt.Fetch(uintptr(i*16 + 8))
		if !ok || v != i*i {
			t.Fatalf("key %d: got (%d,%v), want (%d,true)", i, v, ok, i*i)
		}
	}
}
