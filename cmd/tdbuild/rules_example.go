package main

import (
	"context"
	"os"
	"path/filepath"
	"runtime"

	"github.com/distr1/tdbuild"
	"github.com/distr1/tdbuild/internal/statusline"
	"github.com/distr1/tdbuild/logger"
)

// exampleConfig builds a small reference ruleset: two source files feed a
// generated object file each (via a command rule using the tdb:target/
// tdb:prereq rewriting directives), both objects link into a binary (an
// inline-callable rule), and a phony "all" target groups the default work.
// This demonstrates the wiring an actual caller would do in its own
// rule-declaration script, which spec.md §1 explicitly scopes out of the
// engine itself.
func exampleConfig(log logger.Logger) tdbuild.Config {
	workers := runtime.GOMAXPROCS(0)
	status := statusline.New(workers + 1)

	cfg := tdbuild.Config{
		Logger:         log,
		ScriptName:     "tdbuild",
		Parallel:       true,
		DefaultTargets: []tdbuild.TargetName{"all"},
		Rules: map[tdbuild.TargetName]*tdbuild.Rule{
			"all": {
				Description: "build everything",
				Type:        tdbuild.Phony,
				Prereqs:     tdbuild.StaticPrereqs("app"),
			},
			"app": {
				Description: "link main.o and util.o into app",
				Type:        tdbuild.File,
				Prereqs:     tdbuild.StaticPrereqs("main.o", "util.o"),
				Invoke: func(ctx context.Context, bc *tdbuild.BuildContext) error {
					bc.Logger.Log("linking", bc.Target, "from", bc.Prereqs)
					return linkObjects(bc.Target, bc.Prereqs)
				},
			},
			"main.o": {
				Description: "compile main.c",
				Type:        tdbuild.File,
				Prereqs:     tdbuild.StaticPrereqs("main.c"),
				Cmd:         []string{"cc", "-c", "-o", "tdb:target", "tdb:prereq"},
			},
			"util.o": {
				Description: "compile util.c",
				Type:        tdbuild.File,
				Prereqs:     tdbuild.StaticPrereqs("util.c"),
				Cmd:         []string{"cc", "-c", "-o", "tdb:target", "tdb:prereq"},
			},
		},
		OnProgress: func(ev tdbuild.ProgressEvent) {
			switch ev.Kind {
			case tdbuild.Started:
				status.Update(ev.Worker, "building "+ev.Target)
			case tdbuild.Finished:
				status.Update(ev.Worker, "idle")
				status.Flush()
			}
		},
	}
	return cfg
}

// linkObjects is a placeholder inline build step: real callers replace this
// with whatever their "app" target actually needs to do.
func linkObjects(target tdbuild.TargetName, objs []tdbuild.TargetName) error {
	f, err := os.Create(target)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, o := range objs {
		if _, err := os.Stat(filepath.Clean(o)); err != nil {
			return err
		}
	}
	return nil
}
