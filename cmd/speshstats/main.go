// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The speshstats tool runs the call-graph profile statistics aggregator
// over a recorded log and lets a developer inspect or age the resulting
// trees. Run "speshstats help" for a list of commands.
package main

import (
	"flag"
	"fmt"
	"os"
)

func usage() {
	fmt.Println(`
Usage:

        speshstats command logfile

The commands are:

        help: print this message
      update: run the aggregator over logfile and print one line per
              touched static frame
     cleanup: run the aggregator, age at version+max-age+1 and report
              how many touched frames were retained
        dump: print a static frame's statistics tree
        fsck: self-check a table built from the log's interned strings

Flags applicable to all commands:
`)
	flag.PrintDefaults()
}

func main() {
	version := flag.Uint64("version", 1, "global version counter to stamp touched frames with")
	maxAge := flag.Uint64("max-age", 10, "MAX_AGE used by the cleanup command")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "%s: no command specified\n", os.Args[0])
		usage()
		os.Exit(2)
	}
	cmd := args[0]
	if cmd == "help" {
		usage()
		return
	}

	rest := args[1:]
	var err error
	switch cmd {
	case "update":
		err = runUpdate(rest, *version)
	case "cleanup":
		err = runCleanup(rest, *version, *maxAge)
	case "dump", "fsck":
		// Handled by the cobra-based subcommands below; re-dispatch with
		// the command name stripped so cobra sees its own args.
		err = runCobra(cmd, rest)
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %s\n", os.Args[0], cmd)
		fmt.Fprintf(os.Stderr, "Run '%s help' for usage.\n", os.Args[0])
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[0], err)
		os.Exit(1)
	}
}
