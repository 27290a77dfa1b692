// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/go-spesh/spesh/spesh"
)

func openLog(path string) (spesh.LogBuffer, *spesh.Interner, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	in := spesh.NewInterner()
	log, err := spesh.Decode(f, in)
	if err != nil {
		return nil, nil, err
	}
	return log, in, nil
}

func runUpdate(args []string, version uint64) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: speshstats update logfile")
	}
	log, _, err := openLog(args[0])
	if err != nil {
		return err
	}

	agg := &spesh.Aggregator{Host: spesh.NopGCHost{}}
	var sink []spesh.StaticFrame
	agg.Update(log, version, &sink)

	for _, sf := range sink {
		s := agg.Stats(sf)
		fmt.Printf("%v: hits=%d osr_hits=%d last_update=%d\n", sf, s.Hits, s.OSRHits, s.LastUpdate)
	}
	return nil
}

func runCleanup(args []string, version, maxAge uint64) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: speshstats cleanup logfile")
	}
	log, _, err := openLog(args[0])
	if err != nil {
		return err
	}

	agg := &spesh.Aggregator{Host: spesh.NopGCHost{}}
	var sink []spesh.StaticFrame
	agg.Update(log, version, &sink)
	before := len(sink)
	agg.Cleanup(&sink, version+maxAge+1, maxAge)
	fmt.Printf("retained %d of %d touched frames after aging\n", len(sink), before)
	return nil
}
