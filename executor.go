package tdbuild

import (
	"context"
	"os"
	"os/exec"
	"strings"
)

const (
	cmdLiteralPrefix = "tdb:literal:"
	cmdTarget        = "tdb:target"
	cmdPrereq        = "tdb:prereq"
	cmdPrereqs       = "tdb:prereqs"
	cmdDirectivePfx  = "tdb:"
)

// rewriteArgs expands tdb:* directives in a rule's command vector against
// the concrete target name and materialized prereq list, per spec.md §6.
func rewriteArgs(target TargetName, prereqs []TargetName, args []TargetName) ([]string, error) {
	out := make([]string, 0, len(args))
	for _, a := range args {
		switch {
		case strings.HasPrefix(a, cmdLiteralPrefix):
			out = append(out, strings.TrimPrefix(a, cmdLiteralPrefix))
		case a == cmdTarget:
			out = append(out, target)
		case a == cmdPrereq:
			if len(prereqs) == 0 {
				return nil, &CommandRewriteError{Target: target, Arg: a, Reason: "no prerequisites"}
			}
			out = append(out, prereqs[0])
		case a == cmdPrereqs:
			out = append(out, prereqs...)
		case strings.HasPrefix(a, cmdDirectivePfx):
			return nil, &CommandRewriteError{Target: target, Arg: a, Reason: "unknown directive"}
		default:
			out = append(out, a)
		}
	}
	return out, nil
}

// resolveCallable translates a rule declaration into a concrete build
// callable: an inline function, an external command wrapper, or nil ("no
// build step; just verify what exists").
func resolveCallable(rule *Rule, target TargetName, trace []TargetName) (BuildFunc, error) {
	if rule.Invoke != nil && rule.Cmd != nil {
		return nil, traced(trace, &ConfigError{Target: target, Reason: "both an inline build callable and a command vector are set"})
	}
	if rule.Invoke != nil {
		return rule.Invoke, nil
	}
	if rule.Cmd != nil {
		cmd := rule.Cmd
		return func(ctx context.Context, bc *BuildContext) error {
			args, err := rewriteArgs(bc.Target, bc.Prereqs, cmd)
			if err != nil {
				return traced(bc.Trace, err)
			}
			if len(args) == 0 {
				return traced(bc.Trace, &ConfigError{Target: target, Reason: "empty command vector"})
			}
			c := exec.CommandContext(ctx, args[0], args[1:]...)
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr
			if err := c.Run(); err != nil {
				return traced(bc.Trace, &CommandExecError{Target: target, Args: args, Err: err})
			}
			return nil
		}, nil
	}
	return nil, nil
}

// resolveTransformer returns the rule's wrapper transformer, or identity if
// unset.
func resolveTransformer(rule *Rule) Transformer {
	if rule.Transform != nil {
		return rule.Transform
	}
	return func(inner BuildFunc) BuildFunc { return inner }
}
