// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-spesh/spesh/internal/rhash"
)

// stringList is an append-only InternedList built from a log's distinct
// handle labels, giving fsckCmd something concrete to index and self-check
// without reaching into the aggregator's own tables.
type stringList []string

func (l stringList) StringAt(idx uint32) string { return l[idx] }

func fsckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fsck logfile",
		Short: "self-check a table built from the log's interned strings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, _, err := openLog(args[0])
			if err != nil {
				return err
			}

			var list stringList
			seen := make(map[string]bool)
			add := func(s string) {
				if s == "" || seen[s] {
					return
				}
				seen[s] = true
				list = append(list, s)
			}
			for _, ev := range log {
				add(label(ev.StaticFrame))
				add(label(ev.Callsite))
				add(label(ev.Type))
				add(label(ev.Code))
				add(label(ev.Value))
			}

			it := rhash.NewIndexTable(list)
			for idx, s := range list {
				it.Insert(s, uint32(idx))
			}
			if err := it.Fsck(); err != nil {
				return fmt.Errorf("fsck failed: %w", err)
			}
			fmt.Printf("ok: %d distinct strings, %d events\n", len(list), len(log))
			return nil
		},
	}
	return cmd
}

// label renders a handle the way spesh.label does for Stringers, without
// exporting that helper from the spesh package. Unlike spesh.label it
// returns the empty string for nil, which add skips.
func label(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", v)
}
