// Command pipegen expands an experiment template into concrete pipeline
// configurations and inspects the results.
//
//	pipegen generate -config exp.yaml -save ~/experiments -mode grid -out ./configs -manifest runs.db
//	pipegen count -config exp.yaml -save ~/experiments
//	pipegen show -manifest runs.db [-run ID [-pipe N] [-path gjson.path]]
//	pipegen docs -store https://example.org/wiki.db -data-dir ~/data [-id ID]
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	// Normalize cancellation exit code.
	if ctx.Err() != nil && code == 0 {
		code = 130
	}
	stop()
	os.Exit(code)
}

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, args []string, stdout, stderr io.Writer) error
}

var commands = []command{
	{"generate", "expand a template and emit every configuration", cmdGenerate},
	{"count", "print how many configurations a template expands to", cmdCount},
	{"show", "list recorded runs or print a recorded configuration", cmdShow},
	{"docs", "inspect a SQLite document store", cmdDocs},
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		usage(stderr)
		if len(args) == 0 {
			return 2
		}
		return 0
	}
	for _, c := range commands {
		if c.name != args[0] {
			continue
		}
		if err := c.run(ctx, args[1:], stdout, stderr); err != nil {
			switch {
			case errors.Is(err, errHelp):
				return 0
			case errors.Is(err, errUsage):
				return 2
			case errors.Is(err, context.Canceled):
				fmt.Fprintf(stderr, "pipegen %s: canceled\n", c.name)
				return 130
			}
			fmt.Fprintf(stderr, "pipegen %s: %v\n", c.name, err)
			return 1
		}
		return 0
	}
	fmt.Fprintf(stderr, "pipegen: unknown command %q\n", args[0])
	usage(stderr)
	return 2
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: pipegen <command> [flags]")
	fmt.Fprintln(w)
	for _, c := range commands {
		fmt.Fprintf(w, "  %-9s %s\n", c.name, c.usage)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, `run "pipegen <command> -h" for the flags of a command`)
}
