package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/banshee-data/trajectory/internal/version"
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	var err error
	switch command {
	case "fuse", "simulate":
		err = handleRun(command, args, os.Stdout)
	case "plan":
		err = handlePlan(args, os.Stdout)
	case "serve":
		err = handleServe(args)
	case "migrate":
		err = handleMigrate(args)
	case "version":
		fmt.Println(version.String())
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("%s: %v", command, err)
	}
}

func printUsage() {
	fmt.Println(`trajectory - waypoint fusion and vehicle dynamics simulation

Usage: trajectory <command> [options]

Commands:
  fuse       Fuse a waypoint route through the motion estimator
  simulate   Simulate the vehicle along the route's target speeds
  plan       Print the optimum speed profile and its vehicle playback
  serve      Run the HTTP API
  migrate    Apply run store migrations (up, down, version)
  version    Show version
  help       Show this help message

Run Flags (fuse, simulate):
  -in <file>       Waypoint document (required)
  -out <file>      Enriched run document (default: run.json)
  -config <file>   Tuning config JSON (default: built-in defaults)
  -db <file>       Also store the run in this sqlite database
  -plot <file>     Write a track plot (png, svg or pdf)
  -chart <file>    Write an HTML speed chart
  -speed-plot <f>  Write a speed plot (png, svg or pdf)

Examples:
  trajectory fuse -in route.json -out run.json -plot track.png
  trajectory simulate -in route.json -db runs.db -chart speed.html
  trajectory serve -listen :8080 -db runs.db`)
}
