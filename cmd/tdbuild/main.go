// Command tdbuild is a reference entrypoint wiring tdbuild's library surface
// into a runnable CLI, in the spirit of distr1/distri's cmd/distri
// funcmain() pattern. Declaring the actual rule set is the caller's job
// (spec.md §1 scopes it out of the engine); this binary demonstrates the
// wiring with a small example ruleset in rules_example.go.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/distr1/tdbuild"
	"github.com/distr1/tdbuild/internal/oninterrupt"
	"github.com/distr1/tdbuild/internal/traceevents"
	"github.com/distr1/tdbuild/logger"
)

var ctracefile = flag.String("ctracefile", "", "path to store a chrome trace event file at (load in chrome://tracing)")

func funcmain() error {
	flag.Parse()

	var eventSink io.Writer
	if *ctracefile != "" {
		f, err := os.Create(*ctracefile)
		if err != nil {
			return err
		}
		defer f.Close()
		traceevents.Open(f)
		eventSink = f
	}

	log := logger.New(os.Stderr)

	cfg := exampleConfig(log)
	cfg.EventSink = eventSink

	c := tdbuild.NewCoordinator(cfg)
	oninterrupt.Register(func() {
		log.Warn("interrupted, waiting for in-flight builds to settle")
		c.Join()
	})

	code := tdbuild.ProcessCommandLine(context.Background(), c, os.Stdout, os.Stderr, flag.Args())
	if code != 0 {
		return fmt.Errorf("exit code %d", code)
	}
	return nil
}

func main() {
	if err := funcmain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
