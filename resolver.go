package tdbuild

import (
	"context"
	"os"
	"path/filepath"

	"github.com/distr1/tdbuild/logger"
	"golang.org/x/xerrors"
)

// resolveTarget implements the Target Resolver (spec.md §4.3) for a single
// rule + target: gather prereqs, recurse, compare mtimes, decide run-or-skip,
// invoke the rule, verify and post-process the artifact.
func (c *Coordinator) resolveTarget(ctx context.Context, name TargetName, rule *Rule, trace []TargetName) (BuildResult, error) {
	childTrace := appendTrace(trace, name)

	explicit, err := rule.prereqNames(ctx)
	if err != nil {
		return BuildResult{}, traced(childTrace, xerrors.Errorf("resolving prerequisites of %q: %w", name, err))
	}
	prereqs := dedupe(append(append([]TargetName{}, explicit...), c.cfg.GlobalPrereqs...))

	var currentMtime Mtime
	if rule.Type == Phony {
		currentMtime = NegInf
	} else {
		m, err := c.oracle.mtime(name, onNotFoundReturn(NegInf), PosInf)
		if err != nil {
			return BuildResult{}, traced(childTrace, err)
		}
		currentMtime = m
	}

	latestPrereq, err := c.BuildAll(ctx, prereqs, childTrace)
	if err != nil {
		return BuildResult{}, err // already traced by the recursive Build call
	}

	if currentMtime != NegInf && latestPrereq <= currentMtime {
		c.logf(logger.Info, "%s: up to date (mtime %v)", name, currentMtime)
		return BuildResult{Mtime: currentMtime}, nil
	}

	callable, err := resolveCallable(rule, name, childTrace)
	if err != nil {
		return BuildResult{}, err
	}
	transform := resolveTransformer(rule)

	bc := &BuildContext{
		Coordinator: c,
		Logger:      c.cfg.Logger,
		Prereqs:     prereqs,
		Target:      name,
		Trace:       childTrace,
	}

	innerBody := func(ctx context.Context, bc *BuildContext) error {
		if callable != nil {
			if err := callable(ctx, bc); err != nil {
				return err
			}
		} else {
			c.logf(logger.Info, "%s: no rule; assumed up to date", name)
		}
		if err := verifyArtifact(name, rule.Type); err != nil {
			return traced(childTrace, err)
		}
		return postProcess(name, rule.Type)
	}

	if err := transform(innerBody)(ctx, bc); err != nil {
		c.applyFailurePolicy(name, rule)
		return BuildResult{}, traced(childTrace, err)
	}

	var resultMtime Mtime
	if rule.Type == Phony {
		resultMtime = PosInf
	} else {
		m, err := c.oracle.mtime(name, onNotFoundReturn(NegInf), PosInf)
		if err != nil {
			return BuildResult{}, traced(childTrace, err)
		}
		resultMtime = m
	}
	c.logf(logger.Info, "%s: built (mtime %v)", name, resultMtime)
	return BuildResult{Mtime: resultMtime}, nil
}

// verifyArtifact enforces the post-build shape a rule's target type
// promises. Auto and Phony are never verified.
func verifyArtifact(name TargetName, typ TargetType) error {
	switch typ {
	case File:
		fi, err := os.Stat(name)
		if err != nil {
			return &ArtifactShapeError{Target: name, Type: typ, Reason: "does not exist"}
		}
		if !fi.Mode().IsRegular() {
			return &ArtifactShapeError{Target: name, Type: typ, Reason: "not a regular file"}
		}
	case Directory:
		fi, err := os.Stat(name)
		if err != nil {
			return &ArtifactShapeError{Target: name, Type: typ, Reason: "does not exist"}
		}
		if !fi.IsDir() {
			return &ArtifactShapeError{Target: name, Type: typ, Reason: "not a directory"}
		}
	}
	return nil
}

// postProcess runs type-specific work after a successful build and
// verification. Directories get their mtime refreshed via a short-lived
// placeholder file: some filesystems don't bump a directory's own mtime when
// a nested file's content, as opposed to its direct children list, changes.
func postProcess(name TargetName, typ TargetType) error {
	if typ != Directory {
		return nil
	}
	placeholder := filepath.Join(name, ".tdbuild-touch")
	f, err := os.Create(placeholder)
	if err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Remove(placeholder)
}

// applyFailurePolicy deletes a partially-built artifact when the rule's
// failure file policy says to. Deletion always precedes re-raising the
// original error.
func (c *Coordinator) applyFailurePolicy(name TargetName, rule *Rule) {
	if rule.Type == Phony || rule.keepOnFailure() {
		return
	}
	if err := os.RemoveAll(name); err != nil && !os.IsNotExist(err) {
		c.logf(logger.Warnings, "%s: failed to remove partial artifact: %v", name, err)
	}
}
