package tdbuild

import (
	"io"

	"github.com/distr1/tdbuild/logger"
)

// BuildContext is passed to every rule invocation: an inline build callable,
// a command-rewriting pass, and the Resolver's verification/post-processing
// step all see one of these.
type BuildContext struct {
	// Coordinator lets build callables request additional builds
	// dynamically (e.g. a rule that discovers more work at build time).
	Coordinator *Coordinator

	Logger logger.Logger

	// Prereqs is the materialized, ordered, deduplicated prerequisite list:
	// the rule's explicit prereqs followed by the Coordinator's global
	// prereqs.
	Prereqs []TargetName

	Target TargetName

	// Trace is the chain of target names from the root request down to
	// Target, inclusive.
	Trace []TargetName
}

// OracleFunc is a pluggable alternate freshness source, e.g. one that reads
// a sidecar timestamp file instead of stat(2)ing the target path. Returning
// ok=false tells the engine to fall back to the filesystem oracle.
type OracleFunc func(path string) (mtime Mtime, ok bool, err error)

// GeneratedRulesFunc lazily produces additional rules merged into the
// Registry on first Materialize call. See registry.go.
type GeneratedRulesFunc func() (map[TargetName]*Rule, error)

// Config configures a Coordinator. Mirrors the flat, no-framework
// configuration-struct style of the teacher's batch.Ctx.
type Config struct {
	// Rules are the statically declared rules, keyed by target name.
	Rules map[TargetName]*Rule

	// GeneratedRules is the optional lazy hook for dynamically produced
	// rules; resolved once and cached forever after.
	GeneratedRules GeneratedRulesFunc

	Logger logger.Logger

	// GlobalPrereqs are appended to every rule's explicit prereq list.
	GlobalPrereqs []TargetName

	// DefaultTargets are used when the CLI is invoked with no target names.
	DefaultTargets []TargetName

	// Parallel selects the build concurrency mode. A Coordinator constructed
	// with Parallel: false is considered configured as serial and refuses a
	// CLI --parallel override: seriality is presumed to reflect an external
	// constraint (e.g. a non-reentrant build tool), not a user preference.
	Parallel bool

	// ScriptName labels the program in --help/usage output.
	ScriptName string

	// Oracle is an optional alternate freshness source; see OracleFunc.
	Oracle OracleFunc

	// EventSink, if set, receives a Chrome Trace Event Format stream of
	// every build's begin/end events. See internal/traceevents.
	EventSink io.Writer

	// OnProgress, if set, is called around each target's actual (uncached)
	// build with a Started event before and a Finished event after. Worker
	// is a small integer identifying which concurrent build slot is being
	// used; it has no meaning beyond distinguishing concurrent callers, the
	// way the teacher's scheduler status lines are indexed by worker slot.
	OnProgress func(ProgressEvent)
}

// ProgressKind distinguishes the two events OnProgress receives per target.
type ProgressKind int

const (
	Started ProgressKind = iota
	Finished
)

// ProgressEvent reports the start or end of one target's actual build.
type ProgressEvent struct {
	Kind   ProgressKind
	Target TargetName
	Worker int
	Err    error // set on Finished if the build failed
}
