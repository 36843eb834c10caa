// Package tdbuild implements a target-driven build engine: given a set of
// named targets and the rules that produce them, it decides which targets
// are stale relative to their prerequisites, invokes the builder for each,
// and does so with whatever parallelism the dependency graph allows.
package tdbuild

import (
	"context"
	"math"
)

// TargetName identifies a target. When the target's type is auto, file, or
// directory, it also doubles as a filesystem path.
type TargetName = string

// Mtime is a modification timestamp in Unix milliseconds. NegInf means the
// target has never been built (or does not exist); PosInf means "always
// newer than anything" (a successful phony build).
type Mtime float64

// NegInf and PosInf are the two non-finite Mtime sentinels spec.md's data
// model calls for.
var (
	NegInf = Mtime(math.Inf(-1))
	PosInf = Mtime(math.Inf(1))
)

func maxMtime(a, b Mtime) Mtime {
	if a > b {
		return a
	}
	return b
}

// TargetType selects the post-build verification and freshness rules that
// apply to a target.
type TargetType int

const (
	// Auto is the default: no post-build verification, mtime read if the
	// path happens to exist.
	Auto TargetType = iota
	// File targets must be a regular file after a successful build.
	File
	// Directory targets must be a directory after a successful build; the
	// engine touches the directory's mtime afterwards.
	Directory
	// Phony targets never correspond to a filesystem artifact. They are
	// always considered stale and report PosInf on success.
	Phony
)

func (t TargetType) String() string {
	switch t {
	case File:
		return "file"
	case Directory:
		return "directory"
	case Phony:
		return "phony"
	default:
		return "auto"
	}
}

// BuildResult is the outcome of any successful build.
type BuildResult struct {
	Mtime Mtime
}

// PrereqSource yields the ordered list of a rule's explicit prerequisites.
// Implementations may resolve the list eagerly (StaticPrereqs) or lazily
// (FuncPrereqs), mirroring spec.md's "eager or lazy sequence" requirement.
type PrereqSource interface {
	Prereqs(ctx context.Context) ([]TargetName, error)
}

type staticPrereqs []TargetName

func (s staticPrereqs) Prereqs(context.Context) ([]TargetName, error) {
	return []TargetName(s), nil
}

// StaticPrereqs wraps a fixed, already-known list of prerequisites.
func StaticPrereqs(names ...TargetName) PrereqSource {
	return staticPrereqs(names)
}

type funcPrereqs func(ctx context.Context) ([]TargetName, error)

func (f funcPrereqs) Prereqs(ctx context.Context) ([]TargetName, error) {
	return f(ctx)
}

// FuncPrereqs wraps a lazily-evaluated prerequisite list, e.g. one computed
// by scanning a directory at build time.
func FuncPrereqs(fn func(ctx context.Context) ([]TargetName, error)) PrereqSource {
	return funcPrereqs(fn)
}

// dedupe removes duplicate names, keeping the first occurrence, as required
// at every buildAll call site by spec.md's Invariant 2.
func dedupe(names []TargetName) []TargetName {
	seen := make(map[TargetName]struct{}, len(names))
	out := make([]TargetName, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
