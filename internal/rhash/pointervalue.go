// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rhash

// PointerValueTable is the narrowest variant: pointer key to a uintptr
// value, nothing more. It is PointerTable[uintptr] under a narrower name,
// since the two share every algorithm and only differ in what the caller
// stores.
type PointerValueTable struct {
	*PointerTable[uintptr]
}

func NewPointerValueTable() PointerValueTable {
	return PointerValueTable{NewPointerTable[uintptr]()}
}
