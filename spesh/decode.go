// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spesh

import (
	"encoding/binary"
	"fmt"
	"io"
)

// internedFrame, internedCallsite, internedType, internedCode and
// internedValue let
// a decoded log reference handles by small integer ID rather than by
// pointer, since a serialized log has no live pointers to borrow. They
// are intentionally minimal: ambient CLI/test tooling, not part of the
// aggregator's contract (SPEC_FULL.md §2).
type internedFrame struct{ id uint32 }
type internedCallsite struct {
	id    uint32
	flags []ArgFlag
	pos   int
}
type internedType struct {
	id        uint32
	container bool
}
type internedCode struct {
	id       uint32
	frame    StaticFrame
	concrete bool
}
type internedValue struct{ id uint32 }

func (c *internedCallsite) FlagCount() int      { return len(c.flags) }
func (c *internedCallsite) NumPos() int         { return c.pos }
func (c *internedCallsite) ArgFlags() []ArgFlag { return c.flags }

func (t *internedType) ContainerSpec() (ContainerSpec, bool) { return ContainerSpec{}, t.container }
func (t *internedType) Representation() RepresentationID     { return RepOther }

func (c *internedCode) StaticFrame() StaticFrame { return c.frame }
func (c *internedCode) Concrete() bool           { return c.concrete }

func (f *internedFrame) String() string { return fmt.Sprintf("frame#%d", f.id) }
func (c *internedCallsite) String() string { return fmt.Sprintf("cs#%d", c.id) }
func (t *internedType) String() string     { return fmt.Sprintf("type#%d", t.id) }
func (v *internedValue) String() string    { return fmt.Sprintf("value#%d", v.id) }

// Interner resolves the small integer IDs a serialized log uses into the
// long-lived handle objects the aggregator operates on, caching them so
// repeated IDs resolve to the same pointer (identity matters throughout
// this package).
type Interner struct {
	frames    map[uint32]*internedFrame
	callsites map[uint32]*internedCallsite
	types     map[uint32]*internedType
	codes     map[uint32]*internedCode
	values    map[uint32]*internedValue
}

func NewInterner() *Interner {
	return &Interner{
		frames:    make(map[uint32]*internedFrame),
		callsites: make(map[uint32]*internedCallsite),
		types:     make(map[uint32]*internedType),
		codes:     make(map[uint32]*internedCode),
		values:    make(map[uint32]*internedValue),
	}
}

func (in *Interner) Frame(id uint32) *internedFrame {
	f := in.frames[id]
	if f == nil {
		f = &internedFrame{id: id}
		in.frames[id] = f
	}
	return f
}

// Callsite resolves id, creating it with the given shape on first sight.
// Subsequent lookups of the same id ignore pos/flags (a real log always
// describes a callsite identically every time).
func (in *Interner) Callsite(id uint32, pos int, flags []ArgFlag) *internedCallsite {
	cs := in.callsites[id]
	if cs == nil {
		cs = &internedCallsite{id: id, pos: pos, flags: flags}
		in.callsites[id] = cs
	}
	return cs
}

func (in *Interner) Type(id uint32, container bool) *internedType {
	ty := in.types[id]
	if ty == nil {
		ty = &internedType{id: id, container: container}
		in.types[id] = ty
	}
	return ty
}

func (in *Interner) Code(id uint32, frame StaticFrame, concrete bool) *internedCode {
	c := in.codes[id]
	if c == nil {
		c = &internedCode{id: id, frame: frame, concrete: concrete}
		in.codes[id] = c
	}
	return c
}

func (in *Interner) Value(id uint32) *internedValue {
	v := in.values[id]
	if v == nil {
		v = &internedValue{id: id}
		in.values[id] = v
	}
	return v
}

// wireEvent is the fixed-width binary record Decode reads. It covers the
// Entry/Parameter/Type/Invoke/OSR/Static/Return shapes with every field
// present (zero where unused by that Kind), trading a few wasted bytes per
// record for a single fixed-size read.
type wireEvent struct {
	Kind     uint8
	_        [7]byte // padding to keep the struct 8-byte aligned for binary.Read
	ID       uint64
	FrameID  uint32
	CsID     uint32
	ArgIdx   uint32
	TypeID   uint32
	Concrete uint8
	_        [3]byte
	Offset   uint32
	CodeID   uint32
	ValueID  uint32
	NumPos   uint32
	NumFlags uint32
}

// Decode reads a sequence of wireEvents and resolves them into a
// LogBuffer using in, a convenience for cmd/speshstats; it is not part of
// the aggregator's contract.
func Decode(r io.Reader, in *Interner) (LogBuffer, error) {
	var log LogBuffer
	for {
		var we wireEvent
		if err := binary.Read(r, binary.LittleEndian, &we); err != nil {
			if err == io.EOF {
				return log, nil
			}
			return nil, fmt.Errorf("spesh: decode event: %w", err)
		}
		ev := Event{Kind: Kind(we.Kind), ID: CID(we.ID)}
		switch ev.Kind {
		case KindEntry:
			ev.StaticFrame = in.Frame(we.FrameID)
			flags := make([]ArgFlag, we.NumFlags)
			for i := range flags {
				if i%2 == 0 {
					flags[i] = ArgObj
				}
			}
			ev.Callsite = in.Callsite(we.CsID, int(we.NumPos), flags)
		case KindParameter, KindParameterDecont:
			ev.ArgIdx = int(we.ArgIdx)
			ev.Type = in.Type(we.TypeID, false)
			ev.Concrete = we.Concrete != 0
		case KindType, KindReturn:
			ev.Offset = we.Offset
			if we.TypeID != 0 {
				ev.Type = in.Type(we.TypeID, false)
			}
			ev.Concrete = we.Concrete != 0
		case KindInvoke:
			ev.Offset = we.Offset
			ev.Code = in.Code(we.CodeID, in.Frame(we.FrameID), we.Concrete != 0)
		case KindStatic:
			ev.Offset = we.Offset
			ev.Value = in.Value(we.ValueID)
		case KindOSR:
			// no payload beyond ID
		default:
			return nil, fmt.Errorf("spesh: unknown event kind %d", we.Kind)
		}
		log = append(log, ev)
	}
}
