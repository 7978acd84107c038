// Command midi2-log views and analyzes capture files written by midi2-host.
//
// Capture files are created by running midi2-host with -capture, or by
// setting capture in its config file.
//
// Usage:
//
//	midi2-log <command> [flags] <file.ulog>
//
// Commands:
//
//	view     View capture in human-readable format
//	export   Export capture to JSONL or CSV
//	filter   Filter capture and write to new file
//	stats    Show statistics about the capture
//
// Examples:
//
//	# View only codec-layer events
//	midi2-log view -layer codec host.ulog
//
//	# View outgoing replies on group 3
//	midi2-log view -direction out -group 3 host.ulog
//
//	# Export errors to CSV
//	midi2-log export -format csv -category error -o errors.csv host.ulog
//
//	# Keep a single endpoint
//	midi2-log filter -endpoint Canvas -o canvas.ulog host.ulog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fountain-coach/midi2-go/cmd/midi2-log/commands"
	"github.com/fountain-coach/midi2-go/pkg/version"
)

const usage = `midi2-log - UMP Capture Analyzer

Usage:
  midi2-log <command> [flags] <file.ulog>

Commands:
  view     View capture in human-readable format
  export   Export capture to JSONL or CSV
  filter   Filter capture and write to new file
  stats    Show statistics about the capture
  version  Print the version

Use "midi2-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "version":
		fmt.Println("midi2-log", version.String())
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// filterFlags registers the filter flags every command accepts.
func filterFlags(fs *flag.FlagSet) *commands.FilterOptions {
	opts := &commands.FilterOptions{}
	fs.StringVar(&opts.ConnID, "conn-id", "", "Filter by connection ID")
	fs.StringVar(&opts.Endpoint, "endpoint", "", "Filter by endpoint name")
	fs.StringVar(&opts.Group, "group", "", "Filter by UMP group (0-15)")
	fs.StringVar(&opts.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	fs.StringVar(&opts.Layer, "layer", "", "Filter by layer (transport, framing, codec, service)")
	fs.StringVar(&opts.Direction, "direction", "", "Filter by direction (in, out)")
	fs.StringVar(&opts.Category, "category", "", "Filter by category (message, state, error)")
	return opts
}

func newFlagSet(name, summary string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "midi2-log %s - %s\n\nUsage:\n  midi2-log %s [flags] <file.ulog>\n\nFlags:\n", name, summary, name)
		fs.PrintDefaults()
	}
	return fs
}

// parse parses args and returns the capture path.
func parse(fs *flag.FlagSet, args []string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func fail(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runView(args []string) {
	fs := newFlagSet("view", "View capture in human-readable format")
	opts := filterFlags(fs)
	path := parse(fs, args)

	fail(commands.RunView(path, *opts, os.Stdout))
}

func runExport(args []string) {
	fs := newFlagSet("export", "Export capture to JSONL or CSV")
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	opts := filterFlags(fs)
	path := parse(fs, args)

	fail(commands.RunExport(path, *format, *output, *opts, os.Stdout))
}

func runFilter(args []string) {
	fs := newFlagSet("filter", "Filter capture and write to new file")
	output := fs.String("o", "", "Output file (required)")
	opts := filterFlags(fs)
	path := parse(fs, args)

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	fail(commands.RunFilter(path, *output, *opts, os.Stdout))
}

func runStats(args []string) {
	fs := newFlagSet("stats", "Show statistics about the capture")
	opts := filterFlags(fs)
	path := parse(fs, args)

	fail(commands.RunStats(path, *opts, os.Stdout))
}
