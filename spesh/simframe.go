// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spesh

// simFrame is one entry of the transient simulated call stack built and
// torn down within a single Update call. Its state machine is Open ->
// popping -> removed; there is no transition back to Open.
type simFrame struct {
	staticFrame StaticFrame
	stats       *SpeshStats

	// bcIdx indexes stats.ByCallsite rather than holding a *ByCallsite
	// directly. A ByCallsite is a slice element: the same static frame can
	// recurse through a second, distinct callsite while an outer
	// invocation is still open, and findOrInsertByCallsiteIndex's append can
	// reallocate stats.ByCallsite's backing array at any time. A pointer
	// taken before that reallocation would silently write to the
	// abandoned array; the index stays valid across growth since it never
	// changes, only the slice's address does.
	bcIdx int
	cid   CID

	callsite Callsite

	// argTypes is freshly allocated at ENTRY, sized to callsite.FlagCount,
	// and filled incrementally by PARAMETER/PARAMETER_DECONT events. A nil
	// slot within it (TypeHandle == nil where one is required) marks the
	// tuple as incomplete at pop time. Ownership moves exactly once: to a
	// ByType on pop, or it is discarded — never both.
	argTypes []Type

	// hasType/hasDecont track, per flag slot, whether a PARAMETER /
	// PARAMETER_DECONT event has actually been observed. These are kept
	// separate (rather than one shared "slot touched" bit) because the two
	// events are independent: a PARAMETER_DECONT for a slot carries no
	// Type, only a DecontType, so a shared bit would let complete() see
	// hasValue[i]==true while argTypes[i].Type is still nil and then
	// dereference that nil TypeHandle via ContainerSpec.
	hasType   []bool
	hasDecont []bool

	pendingOffsetLogs []offsetEvent
	pendingCallInfos  []simCallType

	osrHits          uint64
	lastInvokeOffset uint32
	lastInvokeCode   CodeHandle
	haveLastInvoke   bool

	popping bool
}

// bc returns the ByCallsite this frame belongs to, re-deriving the pointer
// from f.stats/f.bcIdx every time rather than caching it, so it is always
// safe even if stats.ByCallsite has grown since the frame was pushed.
func (f *simFrame) bc() *ByCallsite {
	return &f.stats.ByCallsite[f.bcIdx]
}

// offsetEvent is a buffered TYPE/INVOKE/RETURN event, attributed to a
// ByOffset only once the frame pops and its ByType target is known.
type offsetEvent struct {
	kind   Kind // KindType, KindInvoke, or KindReturn
	offset uint32
	typ    TypeHandle
	concrete bool
	value  ValueHandle // INVOKE's code value, stored as a ValueHandle for ByOffset.Values
}

// simCallType is a type tuple observed at an invocation site, contributed
// back up to the caller when the callee pops.
type simCallType struct {
	offset   uint32
	callsite Callsite
	argTypes []Type // borrows the permanent ByType.ArgTypes; never the transient buffer
}

// argToFlagIdx maps a PARAMETER/PARAMETER_DECONT event's 0-based arg_idx
// to a flag index: positional args map one-to-one, named args occupy
// pairs after the positionals and take the odd index of their pair.
func argToFlagIdx(cs Callsite, argIdx int) int {
	numPos := cs.NumPos()
	if argIdx < numPos {
		return argIdx
	}
	named := argIdx - numPos
	return numPos + named*2 + 1
}

// complete reports whether every object-arg slot of the frame's argTypes
// has a type, and, if a container, a decont type too.
func (f *simFrame) complete() bool {
	flags := f.callsite.ArgFlags()
	for i, fl := range flags {
		if fl&ArgObj == 0 {
			continue
		}
		t := f.argTypes[i]
		if !f.hasType[i] || t.Type == nil {
			return false
		}
		if _, isContainer := t.Type.ContainerSpec(); isContainer && (!f.hasDecont[i] || t.DecontType == nil) {
			return false
		}
	}
	return true
}

func (f *simFrame) hasObjectFlags() bool {
	for _, fl := range f.callsite.ArgFlags() {
		if fl&ArgObj != 0 {
			return true
		}
	}
	return false
}
