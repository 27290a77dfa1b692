// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/go-spesh/spesh/spesh"
)

// runCobra builds a tiny cobra command tree for the "richer" subcommands
// (dump, fsck) and executes it, layered over the flag-based root the
// same way a one-off cobra command sits beside a simpler dispatcher.
func runCobra(name string, args []string) error {
	root := &cobra.Command{Use: name}
	root.AddCommand(dumpCmd(), fsckCmd())
	root.SetArgs(append([]string{name}, args...))
	return root.Execute()
}

func dumpCmd() *cobra.Command {
	var version uint64
	cmd := &cobra.Command{
		Use:   "dump logfile frame-id",
		Short: "print a static frame's statistics tree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, in, err := openLog(args[0])
			if err != nil {
				return err
			}
			id, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("frame-id: %w", err)
			}
			agg := &spesh.Aggregator{Host: spesh.NopGCHost{}}
			var sink []spesh.StaticFrame
			agg.Update(log, version, &sink)

			frame := in.Frame(uint32(id))
			s := agg.Stats(frame)
			if s == nil {
				return fmt.Errorf("no stats recorded for frame %d", id)
			}
			printSnapshot(s.Snapshot(), 0)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&version, "version", 1, "version to stamp touched frames with")
	return cmd
}

func printSnapshot(s spesh.Snapshot, indent int) {
	pad := func(n int) string { return fmt.Sprintf("%*s", n, "") }
	fmt.Printf("%shits=%d osr_hits=%d last_update=%d\n", pad(indent), s.Hits, s.OSRHits, s.LastUpdate)
	for _, cs := range s.Callsites {
		fmt.Printf("%scallsite %s: hits=%d osr_hits=%d max_depth=%d\n",
			pad(indent+2), cs.Label, cs.Hits, cs.OSRHits, cs.MaxDepth)
		for _, ty := range cs.Types {
			fmt.Printf("%stype %v: hits=%d osr_hits=%d max_depth=%d\n",
				pad(indent+4), ty.ArgTypes, ty.Hits, ty.OSRHits, ty.MaxDepth)
			for _, off := range ty.Offsets {
				fmt.Printf("%soffset %d: types=%v values=%v tuples=%v\n",
					pad(indent+6), off.BytecodeOffset, off.Types, off.Values, off.TypeTuples)
			}
		}
	}
}
