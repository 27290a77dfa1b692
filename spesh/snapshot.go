// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spesh

import "fmt"

// Snapshot is a plain-data rendering of a SpeshStats tree, suitable for
// printing or for structural assertions in tests. It holds no borrowed
// handles by pointer identity, only their String() labels, so it can
// safely outlive the stats tree it was taken from.
type Snapshot struct {
	Hits       uint64
	OSRHits    uint64
	LastUpdate uint64
	Callsites  []CallsiteSnapshot
}

type CallsiteSnapshot struct {
	Label    string
	Hits     uint64
	OSRHits  uint64
	MaxDepth int
	Types    []TypeSnapshot
}

type TypeSnapshot struct {
	ArgTypes []string
	Hits     uint64
	OSRHits  uint64
	MaxDepth int
	Offsets  []OffsetSnapshot
}

type OffsetSnapshot struct {
	BytecodeOffset uint32
	Types          []string // "<label> x<count>"
	Values         []string
	TypeTuples     []string
}

func label(v any) string {
	if v == nil {
		return "<nil>"
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", v)
}

func typeTupleLabel(types []Type) string {
	s := "("
	for i, t := range types {
		if i > 0 {
			s += ", "
		}
		s += label(t.Type)
		if t.DecontType != nil {
			s += "[" + label(t.DecontType) + "]"
		}
	}
	return s + ")"
}

// Snapshot renders the receiver as plain data.
func (s *SpeshStats) Snapshot() Snapshot {
	out := Snapshot{Hits: s.Hits, OSRHits: s.OSRHits, LastUpdate: s.LastUpdate}
	for _, bc := range s.ByCallsite {
		csSnap := CallsiteSnapshot{
			Label:    label(bc.Callsite),
			Hits:     bc.Hits,
			OSRHits:  bc.OSRHits,
			MaxDepth: bc.MaxDepth,
		}
		for _, bt := range bc.ByType {
			tySnap := TypeSnapshot{
				ArgTypes: make([]string, len(bt.ArgTypes)),
				Hits:     bt.Hits,
				OSRHits:  bt.OSRHits,
				MaxDepth: bt.MaxDepth,
			}
			for i, t := range bt.ArgTypes {
				tySnap.ArgTypes[i] = typeTupleLabel([]Type{t})
			}
			for _, bo := range bt.ByOffset {
				offSnap := OffsetSnapshot{BytecodeOffset: bo.BytecodeOffset}
				for _, tc := range bo.Types {
					offSnap.Types = append(offSnap.Types, fmt.Sprintf("%s x%d", label(tc.Type), tc.Count))
				}
				for _, vc := range bo.Values {
					offSnap.Values = append(offSnap.Values, fmt.Sprintf("%s x%d", label(vc.Value), vc.Count))
				}
				for _, tt := range bo.TypeTuples {
					offSnap.TypeTuples = append(offSnap.TypeTuples,
						fmt.Sprintf("%s%s x%d", label(tt.Callsite), typeTupleLabel(tt.ArgTypes), tt.Count))
				}
				tySnap.Offsets = append(tySnap.Offsets, offSnap)
			}
			csSnap.Types = append(csSnap.Types, tySnap)
		}
		out.Callsites = append(out.Callsites, csSnap)
	}
	return out
}
