// Command fluxlog ingests XGEN flux-measurement log files, reduces them
// to background-corrected MIG readings, and maintains the per-cell flux
// data store and group-III calibration reports.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/banshee-data/fluxlog/internal/cells"
	"github.com/banshee-data/fluxlog/internal/pipeline"
)

var (
	storeDir  = flag.String("store", "flux-data", "folder holding the per-cell flux store files")
	calibDir  = flag.String("calib", "flux-calibs", "folder holding calibration reports")
	cellTable = flag.String("cells", "", "optional JSON cell table overriding the built-in campaign table")
	assumeYes = flag.Bool("yes", false, "overwrite conflicting store data without prompting")
	dryRun    = flag.Bool("dry-run", false, "process files but write nothing")
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Usage: fluxlog [flags] <command> <files...>

Commands:
  add        parse flux data files and merge the corrected readings
             into the store
  calibrate  run a group-III flux calibration over files sharing one
             measurement timestamp, then store the readings

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		usage()
		os.Exit(2)
	}

	registry := cells.DefaultList()
	if *cellTable != "" {
		var err error
		registry, err = cells.Load(*cellTable)
		if err != nil {
			log.Fatalf("failed to load cell table: %v", err)
		}
	}

	p := pipeline.New(registry)
	p.Resolver = stdinParamResolver(stdin, os.Stdout)

	cmd, files := args[0], args[1:]
	var err error
	switch cmd {
	case "add":
		err = runAdd(p, files)
	case "calibrate":
		err = runCalibrate(p, files)
	default:
		log.Printf("unknown command %q", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", cmd, err)
	}
}
