package tdbuild

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/distr1/tdbuild/logger"
)

// BuildParameters is the parsed result of a command line, per spec.md §6.
type BuildParameters struct {
	Targets   []TargetName
	Verbosity *logger.Level // nil: unspecified, use the Coordinator's configured logger as-is
	Parallel  *bool         // nil: unspecified, use the Coordinator's configured default
	Help      bool
	List      bool
	Describe  bool
}

// ParseCommandLineArgs parses an order-independent argument vector into
// BuildParameters. Target name arguments have backslashes normalized to
// forward slashes, so a path survives shell tab completion on Windows.
func ParseCommandLineArgs(argv []string) (*BuildParameters, error) {
	p := &BuildParameters{}
	for _, arg := range argv {
		switch {
		case arg == "--help" || arg == "-h":
			p.Help = true
		case arg == "--list-targets":
			p.List = true
		case arg == "--describe-targets":
			p.Describe = true
		case arg == "-v":
			v := logger.Info
			p.Verbosity = &v
		case arg == "-q":
			v := logger.Errors
			p.Verbosity = &v
		case strings.HasPrefix(arg, "--verbosity="):
			n, err := strconv.Atoi(strings.TrimPrefix(arg, "--verbosity="))
			if err != nil {
				return nil, fmt.Errorf("invalid --verbosity value: %v", err)
			}
			v := logger.Level(n)
			p.Verbosity = &v
		case arg == "--serial":
			f := false
			p.Parallel = &f
		case arg == "--parallel":
			t := true
			p.Parallel = &t
		case strings.HasPrefix(arg, "-"):
			return nil, fmt.Errorf("Unrecognized argument: %s", arg)
		default:
			p.Targets = append(p.Targets, strings.ReplaceAll(arg, "\\", "/"))
		}
	}
	return p, nil
}

// usage renders --help text.
func usage(w io.Writer, scriptName string) {
	fmt.Fprintf(w, "Usage: %s [flags] [target ...]\n\n", scriptName)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  --help               show this help and exit")
	fmt.Fprintln(w, "  --list-targets       print one target name per line and exit")
	fmt.Fprintln(w, "  --describe-targets   print each target with its description and exit")
	fmt.Fprintln(w, "  -v                   verbosity: info")
	fmt.Fprintln(w, "  -q                   verbosity: errors only")
	fmt.Fprintln(w, "  --verbosity=N        explicit numeric verbosity (0,50,100,200,300)")
	fmt.Fprintln(w, "  --serial             force serial builds")
	fmt.Fprintln(w, "  --parallel           request parallel builds (ignored if the build is configured as serial)")
}

func sortedTargets(names map[TargetName]*Rule, order []TargetName) []TargetName {
	if len(order) > 0 {
		return order
	}
	out := make([]TargetName, 0, len(names))
	for n := range names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func listTargets(w io.Writer, c *Coordinator) error {
	merged, order, err := c.registry.materialize()
	if err != nil {
		return err
	}
	for _, name := range sortedTargets(merged, order) {
		fmt.Fprintln(w, name)
	}
	return nil
}

func describeTargets(w io.Writer, c *Coordinator) error {
	merged, order, err := c.registry.materialize()
	if err != nil {
		return err
	}
	names := sortedTargets(merged, order)
	width := 0
	for _, n := range names {
		if len(n) > width {
			width = len(n)
		}
	}
	for _, n := range names {
		desc := merged[n].Description
		lines := strings.Split(desc, "\n")
		fmt.Fprintf(w, "%-*s  %s\n", width, n, lines[0])
		for _, extra := range lines[1:] {
			fmt.Fprintf(w, "%s  %s\n", strings.Repeat(" ", width), extra)
		}
	}
	if len(c.cfg.DefaultTargets) > 0 {
		fmt.Fprintf(w, "\ndefault: %s\n", strings.Join(c.cfg.DefaultTargets, " "))
	}
	return nil
}

// Run executes one command line's worth of work against an already
// constructed Coordinator: help/list/describe short-circuit; otherwise the
// requested (or default) targets are built and the Coordinator is joined
// before returning.
func Run(ctx context.Context, c *Coordinator, stdout io.Writer, params *BuildParameters) error {
	if params.Help {
		usage(stdout, c.cfg.ScriptName)
		return nil
	}
	if params.List {
		return listTargets(stdout, c)
	}
	if params.Describe {
		return describeTargets(stdout, c)
	}

	if params.Verbosity != nil {
		c.cfg.Logger = logger.LevelFilter(c.cfg.Logger, *params.Verbosity)
	}

	if params.Parallel != nil {
		if !c.cfg.Parallel && *params.Parallel {
			c.logf(logger.Warnings, "this build is configured as serial; ignoring --parallel")
		} else {
			c.cfg.Parallel = *params.Parallel
		}
	}

	targets := params.Targets
	if len(targets) == 0 {
		targets = c.cfg.DefaultTargets
		if len(targets) == 0 {
			c.logf(logger.Warnings, "no targets given and no default targets configured; nothing to do")
			return c.Join()
		}
	}

	_, err := c.BuildAll(ctx, targets, nil)
	if joinErr := c.Join(); err == nil {
		err = joinErr
	}
	return err
}

// ProcessCommandLine is the top-level command handler: parse, run, and
// translate the outcome into a process exit code (0 success, 1 failure).
// Errors are formatted with their build trace, per spec.md §7.
func ProcessCommandLine(ctx context.Context, c *Coordinator, stdout, stderr io.Writer, argv []string) int {
	params, err := ParseCommandLineArgs(argv)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if err := Run(ctx, c, stdout, params); err != nil {
		if trace, ok := Trace(err); ok {
			fmt.Fprintf(stderr, "error building %s: %v\n", strings.Join(trace, " -> "), err)
		} else {
			fmt.Fprintln(stderr, err)
		}
		return 1
	}
	return 0
}
