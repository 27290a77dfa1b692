// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package spesh implements a call-graph-aware profile statistics
// aggregator: it consumes a flat, correlation-ID-tagged log of typed
// observation events, reconstructs the logical call stack the log
// implies, and folds the events into per-static-frame statistics
// organized by callsite, observed argument-type tuple, and bytecode
// offset. The resulting trees later feed a specializer (out of scope
// here); this package only guarantees they are correct and queryable
// after Update, and ages them out via Cleanup when stale.
package spesh

// StaticFrame is the compile-time identity of a function or block.
// Statistics attach to it and are shared across dynamic invocations of
// it. It is an opaque handle, borrowed from the (out-of-scope) VM, and is
// always compared by identity — concrete implementations are expected to
// be pointer types so Go's own `==`/map-key semantics give pointer
// identity for free.
type StaticFrame any

// ValueHandle is an opaque, borrowed reference to an observed value
// (STATIC event payloads, or an INVOKE's code object treated as a value
// for ValueCount purposes). Like StaticFrame, it is compared by identity;
// concrete implementations must be comparable (typically pointer types).
type ValueHandle any

// ArgFlag describes one flag slot of a Callsite's argument shape.
type ArgFlag uint8

// ArgObj is set on flags describing an object argument (as opposed to a
// native int/num/str argument, which carries no type information).
const ArgObj ArgFlag = 1 << 0

// Callsite is an immutable descriptor of an invocation's static argument
// shape: positional count, named slots, and per-flag type-tracking bits.
// It is borrowed from (and owned by) the out-of-scope compiler/VM.
type Callsite interface {
	FlagCount() int
	NumPos() int
	ArgFlags() []ArgFlag
}

// NoCallsite is the sentinel used when a frame was entered without any
// callsite information (e.g. the outermost entry point).
var NoCallsite Callsite = noCallsite{}

type noCallsite struct{}

func (noCallsite) FlagCount() int      { return 0 }
func (noCallsite) NumPos() int         { return 0 }
func (noCallsite) ArgFlags() []ArgFlag { return nil }

// RepresentationID identifies the low-level representation family a
// TypeHandle's referent belongs to; RepCode marks code objects. The
// aggregator does not consult it: whether a caller's last-invoke code
// object denotes a known compiled routine comes from CodeHandle.Concrete.
type RepresentationID uint8

const (
	RepOther RepresentationID = iota
	RepCode
)

// ContainerSpec marks that a TypeHandle describes a container type (one
// that can be decontainerized to obtain an inner "decont type").
type ContainerSpec struct{}

// TypeHandle is an opaque, borrowed reference to a VM type object. Either
// it or its decont type may be absent entirely (nil interface value).
type TypeHandle interface {
	ContainerSpec() (ContainerSpec, bool)
	Representation() RepresentationID
}

// CodeHandle is an opaque, borrowed reference to a code object — the
// value an INVOKE event's target is. It is concrete if it denotes a known
// compiled routine (as opposed to, say, a dynamically computed callable).
type CodeHandle interface {
	StaticFrame() StaticFrame
	Concrete() bool
}
