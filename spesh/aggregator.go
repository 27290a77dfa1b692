// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spesh

// Aggregator consumes logs and maintains per-static-frame statistics
// trees. One aggregator call (Update) is single-threaded; the caller
// serializes access to the target frames' stats.
type Aggregator struct {
	// Host provides the write barrier and GC worklist enqueue the
	// aggregator must use for every borrowed reference it stores.
	Host GCHost

	// DebugGC, when set, is a pure assertion aid: callers may use it to
	// mark the calling thread "in spesh" for their own GC's benefit. The
	// aggregator itself never branches on it; write barriers remain
	// mandatory regardless.
	DebugGC bool

	// stats holds one SpeshStats per StaticFrame this aggregator has
	// ever seen an ENTRY for. A real VM would store this inline on the
	// static frame's own container; this package stores it keyed by
	// frame identity instead, since StaticFrame is an opaque borrowed
	// handle with no slot of its own to attach to.
	stats map[StaticFrame]*SpeshStats
}

// Stats returns the statistics tree for sf, or nil if none exists yet
// (no ENTRY has been observed for it, or it has aged out via Cleanup).
func (a *Aggregator) Stats(sf StaticFrame) *SpeshStats {
	return a.stats[sf]
}

func (a *Aggregator) statsFor(sf StaticFrame) *SpeshStats {
	if a.stats == nil {
		a.stats = make(map[StaticFrame]*SpeshStats)
	}
	s := a.stats[sf]
	if s == nil {
		s = &SpeshStats{}
		a.stats[sf] = s
	}
	return s
}

// Update consumes log end-to-end, folding its events into the statistics
// trees of whichever static frames it touches. Every such frame is pushed
// at most once into updatedFrameSink. Update has no observable effect
// beyond the stats trees and the sink; it cannot fail on well-formed
// input (malformed logs are impossible by construction in the
// instrumentation that produces them — any internal inconsistency
// discovered here is fatal and panics).
func (a *Aggregator) Update(log LogBuffer, version uint64, updatedFrameSink *[]StaticFrame) {
	var stack []*simFrame
	pushed := make(map[StaticFrame]bool)

	markUpdated := func(sf StaticFrame, s *SpeshStats) {
		if s.LastUpdate >= version {
			return
		}
		s.LastUpdate = version
		if !pushed[sf] {
			pushed[sf] = true
			*updatedFrameSink = append(*updatedFrameSink, sf)
		}
	}

	// findFrame scans the simulated stack top-down for cid; if the match
	// isn't the top, everything above it is popped first (the implicit-
	// return discipline: a deeper event implies every shallower frame
	// already returned). Returns nil if no frame carries cid (the event
	// is then silently dropped).
	findFrame := func(cid CID) *simFrame {
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i].cid == cid {
				for len(stack) > i+1 {
					top := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					a.popFrame(top, stack, version, markUpdated)
				}
				return stack[i]
			}
		}
		return nil
	}

	for _, ev := range log {
		switch ev.Kind {
		case KindEntry:
			s := a.statsFor(ev.StaticFrame)
			markUpdated(ev.StaticFrame, s)
			s.Hits++
			bcIdx := s.findOrInsertByCallsiteIndex(ev.Callsite)
			s.ByCallsite[bcIdx].Hits++

			cs := ev.Callsite
			if cs == nil {
				cs = NoCallsite
			}
			n := cs.FlagCount()
			f := &simFrame{
				staticFrame: ev.StaticFrame,
				stats:       s,
				bcIdx:       bcIdx,
				cid:         ev.ID,
				callsite:    cs,
			}
			if n > 0 {
				f.argTypes = make([]Type, n)
				f.hasType = make([]bool, n)
				f.hasDecont = make([]bool, n)
			}
			stack = append(stack, f)

		case KindParameter, KindParameterDecont:
			f := findFrame(ev.ID)
			if f == nil {
				continue // lost ENTRY; silently absorbed
			}
			flagIdx := argToFlagIdx(f.callsite, ev.ArgIdx)
			flags := f.callsite.ArgFlags()
			if flagIdx < 0 || flagIdx >= len(flags) {
				panic("spesh: parameter flag index out of bounds")
			}
			if flags[flagIdx]&ArgObj == 0 {
				continue // non-object flags carry no type; silent drop
			}
			if ev.Kind == KindParameter {
				f.argTypes[flagIdx].Type = ev.Type
				f.argTypes[flagIdx].TypeConcrete = ev.Concrete
				f.hasType[flagIdx] = true
			} else {
				f.argTypes[flagIdx].DecontType = ev.Type
				f.argTypes[flagIdx].DecontConcrete = ev.Concrete
				f.hasDecont[flagIdx] = true
			}
			if ev.Type != nil {
				a.Host.WriteBarrier(f.staticFrame, ev.Type)
			}

		case KindType:
			f := findFrame(ev.ID)
			if f == nil {
				continue
			}
			f.pendingOffsetLogs = append(f.pendingOffsetLogs, offsetEvent{
				kind: KindType, offset: ev.Offset, typ: ev.Type, concrete: ev.Concrete,
			})

		case KindInvoke:
			f := findFrame(ev.ID)
			if f == nil {
				continue
			}
			var v ValueHandle
			if ev.Code != nil {
				v = ev.Code
			}
			f.pendingOffsetLogs = append(f.pendingOffsetLogs, offsetEvent{
				kind: KindInvoke, offset: ev.Offset, value: v,
			})
			f.lastInvokeOffset = ev.Offset
			f.lastInvokeCode = ev.Code
			f.haveLastInvoke = true

		case KindOSR:
			f := findFrame(ev.ID)
			if f == nil {
				continue
			}
			f.osrHits++

		case KindStatic:
			f := findFrame(ev.ID)
			if f == nil {
				continue
			}
			f.stats.recordStatic(ev.Offset, ev.Value)

		case KindReturn:
			f := findFrame(ev.ID)
			if f == nil {
				continue // silently absorbed: parent frame already gone
			}
			// findFrame already popped everything above f, so f is now
			// the top of the stack. Pop it immediately; the return
			// itself is attributed to the caller's invoke offset (if
			// any) after popping.
			if len(stack) == 0 || stack[len(stack)-1] != f {
				panic("spesh: return for frame not at top of stack")
			}
			stack = stack[:len(stack)-1]
			a.popFrame(f, stack, version, markUpdated)

			if ev.Type != nil && len(stack) > 0 {
				caller := stack[len(stack)-1]
				if caller.haveLastInvoke && caller.lastInvokeCode != nil &&
					caller.lastInvokeCode.Concrete() &&
					caller.lastInvokeCode.StaticFrame() == f.staticFrame {
					caller.pendingOffsetLogs = append(caller.pendingOffsetLogs, offsetEvent{
						kind: KindReturn, offset: caller.lastInvokeOffset, typ: ev.Type, concrete: ev.Concrete,
					})
				}
			}
		}
	}

	// Teardown: pop all remaining frames still open at end of log.
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		a.popFrame(top, stack, version, markUpdated)
	}
}

// popFrame folds a frame's accumulated observations into its owning
// ByCallsite/ByType/ByOffset trees and, if it has one, contributes a
// SimCallType back up to its caller. stack is the simulated stack with f
// already removed (its new top, possibly empty); it is not itself
// mutated except for that append.
func (a *Aggregator) popFrame(f *simFrame, stack []*simFrame, version uint64, markUpdated func(StaticFrame, *SpeshStats)) {
	if f.popping {
		panic("spesh: double pop of sim frame")
	}
	f.popping = true

	frameDepth := len(stack) + 1

	// bc is re-derived from f.stats/f.bcIdx right here, rather than read
	// from a field cached at ENTRY time: a later ENTRY of this same static
	// frame through a new callsite, between then and now, can append to
	// f.stats.ByCallsite and reallocate its backing array.
	bc := f.bc()

	// Step 2: fold OSR hits, update max depth.
	f.stats.OSRHits += f.osrHits
	bc.OSRHits += f.osrHits
	if frameDepth > bc.MaxDepth {
		bc.MaxDepth = frameDepth
	}

	// Step 3: resolve destination ByType.
	var bt *ByType
	keepTuple := f.argTypes != nil && f.callsite.FlagCount() > 0 && f.hasObjectFlags() && f.complete()
	if keepTuple {
		if existing := bc.findByType(f.argTypes); existing != nil {
			bt = existing
			// f.argTypes discarded; existing ByType already owns its copy.
		} else {
			bc.ByType = append(bc.ByType, ByType{ArgTypes: f.argTypes})
			bt = &bc.ByType[len(bc.ByType)-1]
			for _, t := range f.argTypes {
				if t.Type != nil {
					a.Host.WriteBarrier(f.staticFrame, t.Type)
				}
				if t.DecontType != nil {
					a.Host.WriteBarrier(f.staticFrame, t.DecontType)
				}
			}
		}
	}

	if bt != nil {
		barrier := barrierFunc(a.Host, f.staticFrame)
		// Step 4: fold buffered offset events.
		for _, oe := range f.pendingOffsetLogs {
			bo := byOffset(&bt.ByOffset, oe.offset)
			switch oe.kind {
			case KindType, KindReturn:
				bo.mergeType(oe.typ, oe.concrete, barrier)
			case KindInvoke:
				if oe.value != nil {
					bo.mergeValue(oe.value, barrier)
				}
			}
		}
		// Step 5: fold buffered call-infos.
		for _, ci := range f.pendingCallInfos {
			bo := byOffset(&bt.ByOffset, ci.offset)
			bo.mergeTypeTuple(ci.callsite, ci.argTypes, barrier)
		}
		// Step 6: bump ByType hits/osr/depth.
		bt.Hits++
		bt.OSRHits += f.osrHits
		if frameDepth > bt.MaxDepth {
			bt.MaxDepth = frameDepth
		}
	}

	// Step 7: contribute this frame's type tuple back to the caller.
	if bt != nil && len(stack) > 0 {
		caller := stack[len(stack)-1]
		if caller.haveLastInvoke && caller.lastInvokeCode != nil &&
			caller.lastInvokeCode.Concrete() &&
			caller.lastInvokeCode.StaticFrame() == f.staticFrame {
			caller.pendingCallInfos = append(caller.pendingCallInfos, simCallType{
				offset:   caller.lastInvokeOffset,
				callsite: f.callsite,
				argTypes: bt.ArgTypes,
			})
		}
	}

	// Step 8: free transient buffers (left to the GC; nil them out so a
	// stray reference past this point is a bug, not a silent reuse).
	f.pendingOffsetLogs = nil
	f.pendingCallInfos = nil
	f.argTypes = nil
	f.hasType = nil
	f.hasDecont = nil
}

// Cleanup drops or ages out the statistics for every frame in
// candidateSink: absent stats are dropped, stale stats (last_update more
// than MaxAge versions behind globalVersion) are destroyed and dropped,
// everything else is retained. Retention compacts candidateSink in place.
func (a *Aggregator) Cleanup(candidateSink *[]StaticFrame, globalVersion uint64, maxAge uint64) {
	kept := (*candidateSink)[:0]
	for _, sf := range *candidateSink {
		s := a.stats[sf]
		if s == nil {
			continue
		}
		if globalVersion-s.LastUpdate > maxAge {
			Destroy(s)
			delete(a.stats, sf)
			continue
		}
		kept = append(kept, sf)
	}
	*candidateSink = kept
}
