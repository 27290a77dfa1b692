// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spesh

// Type is one entry of an observed argument-type tuple: the argument's
// runtime type and, if it was a container, the type obtained by
// decontainerizing it. Either handle may be absent (nil).
type Type struct {
	Type            TypeHandle
	DecontType      TypeHandle
	TypeConcrete    bool
	DecontConcrete  bool
}

// equal reports whether two Type entries carry the same byte-pattern: a
// TypeTupleCount's key is distinguished by the byte-pattern of its
// arg_types tuple, not by any deeper structural equality. Handles are
// borrowed and compared by identity.
func (t Type) equal(o Type) bool {
	return t.Type == o.Type && t.DecontType == o.DecontType &&
		t.TypeConcrete == o.TypeConcrete && t.DecontConcrete == o.DecontConcrete
}

// argTypesEqual compares two tuples by byte-pattern (length then entries).
func argTypesEqual(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].equal(b[i]) {
			return false
		}
	}
	return true
}

// TypeCount is a (type handle, concreteness) observation and how many
// times it was seen at one ByOffset.
type TypeCount struct {
	Type     TypeHandle
	Concrete bool
	Count    uint32
}

// ValueCount is a distinct observed value and how many times it was seen
// at one ByOffset.
type ValueCount struct {
	Value ValueHandle
	Count uint32
}

// TypeTupleCount is a type tuple observed at a call site reached from one
// ByOffset, and how many times that exact (callsite, tuple) pair was
// seen.
type TypeTupleCount struct {
	Callsite Callsite
	ArgTypes []Type // owned copy
	Count    uint32
}

// ByOffset holds the observations made at one bytecode offset within a
// ByType's argument-type tuple.
type ByOffset struct {
	BytecodeOffset uint32
	Types          []TypeCount
	Values         []ValueCount
	TypeTuples     []TypeTupleCount
}

func (bo *ByOffset) mergeType(h TypeHandle, concrete bool, barrier func(any)) {
	for i := range bo.Types {
		if bo.Types[i].Type == h && bo.Types[i].Concrete == concrete {
			bo.Types[i].Count++
			return
		}
	}
	bo.Types = append(bo.Types, TypeCount{Type: h, Concrete: concrete, Count: 1})
	barrier(h)
}

func (bo *ByOffset) mergeValue(v ValueHandle, barrier func(any)) {
	for i := range bo.Values {
		if bo.Values[i].Value == v {
			bo.Values[i].Count++
			return
		}
	}
	bo.Values = append(bo.Values, ValueCount{Value: v, Count: 1})
	barrier(v)
}

func (bo *ByOffset) mergeTypeTuple(cs Callsite, argTypes []Type, barrier func(any)) {
	for i := range bo.TypeTuples {
		tt := &bo.TypeTuples[i]
		if tt.Callsite == cs && argTypesEqual(tt.ArgTypes, argTypes) {
			tt.Count++
			return
		}
	}
	owned := make([]Type, len(argTypes))
	copy(owned, argTypes)
	bo.TypeTuples = append(bo.TypeTuples, TypeTupleCount{Callsite: cs, ArgTypes: owned, Count: 1})
	for _, t := range owned {
		if t.Type != nil {
			barrier(t.Type)
		}
		if t.DecontType != nil {
			barrier(t.DecontType)
		}
	}
}

// byOffset finds or lazily creates the ByOffset entry for offset.
func byOffset(list *[]ByOffset, offset uint32) *ByOffset {
	for i := range *list {
		if (*list)[i].BytecodeOffset == offset {
			return &(*list)[i]
		}
	}
	*list = append(*list, ByOffset{BytecodeOffset: offset})
	return &(*list)[len(*list)-1]
}

// ByType holds statistics for one distinct observed argument-type tuple
// under a single callsite.
type ByType struct {
	ArgTypes []Type // owned
	Hits     uint64
	OSRHits  uint64
	MaxDepth int
	ByOffset []ByOffset
}

// ByCallsite holds statistics for one distinct callsite encountered by a
// static frame (cs may be the NoCallsite sentinel).
type ByCallsite struct {
	Callsite Callsite
	Hits     uint64
	OSRHits  uint64
	MaxDepth int
	ByType   []ByType
}

// findByType linear-searches for an entry whose ArgTypes byte-pattern
// equals argTypes. A linear scan is deliberate: per-frame fan-out is
// small, so a hash table would only add overhead.
func (bc *ByCallsite) findByType(argTypes []Type) *ByType {
	for i := range bc.ByType {
		if argTypesEqual(bc.ByType[i].ArgTypes, argTypes) {
			return &bc.ByType[i]
		}
	}
	return nil
}

// StaticValue is a first-observation-wins (offset, value) pair recorded
// directly on a SpeshStats from STATIC log events.
type StaticValue struct {
	Offset uint32
	Value  ValueHandle
}

// SpeshStats is the root of one static frame's statistics tree.
type SpeshStats struct {
	Hits        uint64
	OSRHits     uint64
	LastUpdate  uint64 // monotonic version counter
	ByCallsite  []ByCallsite
	StaticValues []StaticValue
}

// findOrInsertByCallsiteIndex finds or lazily creates the ByCallsite entry
// for cs, keyed by the callsite handle's own identity (pointer equality),
// and returns its index into s.ByCallsite rather than a pointer. Callers
// that must hold onto the result across further inserts (which can
// reallocate s.ByCallsite's backing array via append) should keep the
// index and re-derive &s.ByCallsite[idx] on each use instead of caching a
// pointer.
func (s *SpeshStats) findOrInsertByCallsiteIndex(cs Callsite) int {
	for i := range s.ByCallsite {
		if s.ByCallsite[i].Callsite == cs {
			return i
		}
	}
	s.ByCallsite = append(s.ByCallsite, ByCallsite{Callsite: cs})
	return len(s.ByCallsite) - 1
}

// recordStatic implements "first observation wins" for STATIC events.
func (s *SpeshStats) recordStatic(offset uint32, v ValueHandle) {
	for i := range s.StaticValues {
		if s.StaticValues[i].Offset == offset {
			return // later observations for the same offset are ignored
		}
	}
	s.StaticValues = append(s.StaticValues, StaticValue{Offset: offset, Value: v})
}

// StaticValue returns the recorded value for offset, if any.
func (s *SpeshStats) StaticValue(offset uint32) (ValueHandle, bool) {
	for _, sv := range s.StaticValues {
		if sv.Offset == offset {
			return sv.Value, true
		}
	}
	return nil, false
}

// DominantCallsite returns the ByCallsite with the most hits, ties broken
// by first-seen order.
func (s *SpeshStats) DominantCallsite() (*ByCallsite, bool) {
	if len(s.ByCallsite) == 0 {
		return nil, false
	}
	best := &s.ByCallsite[0]
	for i := 1; i < len(s.ByCallsite); i++ {
		if s.ByCallsite[i].Hits > best.Hits {
			best = &s.ByCallsite[i]
		}
	}
	return best, true
}

// DominantType returns the ByType with the most hits under bc.
func (bc *ByCallsite) DominantType() (*ByType, bool) {
	if len(bc.ByType) == 0 {
		return nil, false
	}
	best := &bc.ByType[0]
	for i := 1; i < len(bc.ByType); i++ {
		if bc.ByType[i].Hits > best.Hits {
			best = &bc.ByType[i]
		}
	}
	return best, true
}

// DominantType returns the most-observed TypeCount at this offset.
func (bo *ByOffset) DominantType() (*TypeCount, bool) {
	if len(bo.Types) == 0 {
		return nil, false
	}
	best := &bo.Types[0]
	for i := 1; i < len(bo.Types); i++ {
		if bo.Types[i].Count > best.Count {
			best = &bo.Types[i]
		}
	}
	return best, true
}

// DominantValue returns the most-observed ValueCount at this offset.
func (bo *ByOffset) DominantValue() (*ValueCount, bool) {
	if len(bo.Values) == 0 {
		return nil, false
	}
	best := &bo.Values[0]
	for i := 1; i < len(bo.Values); i++ {
		if bo.Values[i].Count > best.Count {
			best = &bo.Values[i]
		}
	}
	return best, true
}
