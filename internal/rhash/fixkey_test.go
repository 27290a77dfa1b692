// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rhash

import "testing"

type symbolEntry struct {
	key   string
	value int
}

func (s *symbolEntry) FixkeyString() string { return s.key }

func TestFixkeyTable_AllocatesStablePayloadAddresses(t *testing.T) {
	ft := NewFixkeyTable(func() *symbolEntry { return &symbolEntry{} })

	p, fresh := ft.LvalueFetch("alpha")
	if !fresh {
		t.Fatalf("expected fresh allocation")
	}
	p.key = "alpha" // caller fills in the key field after a fresh allocation
	p.value = 1

	same, fresh := ft.LvalueFetch("alpha")
	if fresh {
		t.Fatalf("expected existing entry, got fresh")
	}
	if same != p || same.value != 1 {
		t.Fatalf("LvalueFetch returned a different payload: %+v vs %+v", same, p)
	}

	q, ok := ft.Fetch("alpha")
	if !ok || q != p {
		t.Fatalf("Fetch mismatch: %+v, %v", q, ok)
	}
	if _, ok := ft.Fetch("missing"); ok {
		t.Fatalf("Fetch(missing) reported present")
	}
}

func TestFixkeyTable_Fsck(t *testing.T) {
	ft := NewFixkeyTable(func() *symbolEntry { return &symbolEntry{} })
	for _, k := range []string{"a", "bb", "ccc", "dddd", "eeeee", "ffffff"} {
		p, _ := ft.LvalueFetch(k)
		p.key = k
	}
	if err := ft.Fsck(); err != nil {
		t.Fatalf("fsck: %v", err)
	}
}

// Grow preservation: payload addresses obtained before a grow remain valid
// and keep reporting the value the caller stored, since FixkeyTable stores
// pointers rather than inline structs.
func TestFixkeyTable_GrowPreservesPayloadIdentity(t *testing.T) {
	ft := NewFixkeyTable(func() *symbolEntry { return &symbolEntry{} })
	const n = 100
	ptrs := make(map[string]*symbolEntry, n)
	for i := 0; i < n; i++ {
		k := string(rune('a'+i%26)) + string(rune(i))
		p, fresh := ft.LvalueFetch(k)
		if !fresh {
			t.Fatalf("key %q unexpectedly present", k)
		}
		p.key = k
		p.value = i
		ptrs[k] = p
	}
	for k, want := range ptrs {
		got, ok := ft.Fetch(k)
		if !ok {
			t.Fatalf("key %q lost after grow", k)
		}
		if got != want {
			t.Fatalf("payload pointer for %q changed across grow", k)
		}
		if got.value != ptrs[k].value {
			t.Fatalf("payload value for %q corrupted", k)
		}
	}
	if err := ft.Fsck(); err != nil {
		t.Fatalf("fsck after grow: %v", err)
	}
}
