package tdbuild

import (
	"fmt"
	"strings"

	"golang.org/x/xerrors"
)

// TracedError wraps any error raised by the engine with the chain of target
// names from the root request down to the target that failed. Recognition
// of an already-traced error is structural (an Unwrap chain containing a
// *TracedError), matching spec.md §4.6.
type TracedError struct {
	Trace []TargetName
	Err   error
}

func (e *TracedError) Error() string {
	return fmt.Sprintf("%s: %v", strings.Join(e.Trace, " -> "), e.Err)
}

func (e *TracedError) Unwrap() error { return e.Err }

// traced wraps err with trace unless it is already a *TracedError, in which
// case the existing trace (recorded closer to the failure) wins and only the
// outermost wrapping uses the current trace for errors.As discoverability.
func traced(trace []TargetName, err error) error {
	if err == nil {
		return nil
	}
	var te *TracedError
	if xerrors.As(err, &te) {
		return err
	}
	cp := make([]TargetName, len(trace))
	copy(cp, trace)
	return &TracedError{Trace: cp, Err: err}
}

// Trace extracts the build trace from an error, if it carries one.
func Trace(err error) ([]TargetName, bool) {
	var te *TracedError
	if xerrors.As(err, &te) {
		return te.Trace, true
	}
	return nil, false
}

// MissingTargetError is raised when a target has no rule and no pre-existing
// filesystem artifact.
type MissingTargetError struct {
	Target TargetName
}

func (e *MissingTargetError) Error() string {
	return fmt.Sprintf("no rule to build target %q and no such file or directory", e.Target)
}

// ConfigError is raised when a rule declares mutually exclusive fields, e.g.
// both an inline build callable and a command vector.
type ConfigError struct {
	Target TargetName
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("rule %q misconfigured: %s", e.Target, e.Reason)
}

// CommandRewriteError is raised for an unrecognized tdb:* argument directive,
// or tdb:prereq with no prerequisites to substitute.
type CommandRewriteError struct {
	Target TargetName
	Arg    string
	Reason string
}

func (e *CommandRewriteError) Error() string {
	return fmt.Sprintf("rule %q: cannot rewrite argument %q: %s", e.Target, e.Arg, e.Reason)
}

// CommandExecError is raised when an external command could not be spawned,
// or exited with a non-zero status.
type CommandExecError struct {
	Target TargetName
	Args   []string
	Err    error
}

func (e *CommandExecError) Error() string {
	return fmt.Sprintf("rule %q: %v: %v", e.Target, e.Args, e.Err)
}

func (e *CommandExecError) Unwrap() error { return e.Err }

// ArtifactShapeError is raised when post-build verification finds the
// artifact missing, or not of the declared target type.
type ArtifactShapeError struct {
	Target TargetName
	Type   TargetType
	Reason string
}

func (e *ArtifactShapeError) Error() string {
	return fmt.Sprintf("rule %q: expected %s after build: %s", e.Target, e.Type, e.Reason)
}

// CycleError is raised by the optional static cycle pre-check (§9) or by the
// resolver's runtime re-entrancy guard.
type CycleError struct {
	Cycle []TargetName
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Cycle, " -> "))
}
