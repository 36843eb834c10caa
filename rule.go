package tdbuild

import "context"

// BuildFunc is an inline build callable. It receives the BuildContext for
// the target it is building and returns an error on failure.
type BuildFunc func(ctx context.Context, bc *BuildContext) error

// Transformer decorates a rule's effective build callable, e.g. to acquire a
// mutex around it, measure its duration, or add tracing. Rules that don't
// need one leave Transform nil, which the Rule Executor treats as identity.
type Transformer func(inner BuildFunc) BuildFunc

// Rule is the declarative recipe for building one target.
type Rule struct {
	// Description is shown by --describe-targets.
	Description string

	// Prereqs lists this rule's explicit prerequisites, in declaration
	// order. May be nil (no explicit prereqs).
	Prereqs PrereqSource

	// Invoke is an inline build callable. Mutually exclusive with Cmd.
	Invoke BuildFunc

	// Cmd is an external command argument vector. Mutually exclusive with
	// Invoke. Arguments are rewritten per the tdb:* directives before the
	// process is spawned; see executor.go.
	Cmd []TargetName

	// Transform wraps the effective build callable chosen from Invoke/Cmd.
	// Nil means identity.
	Transform Transformer

	// Type selects verification/freshness semantics. Zero value is Auto.
	Type TargetType

	// KeepOnFailure overrides the default failure file policy (delete iff
	// Type == File). Nil means "use the default".
	KeepOnFailure *bool
}

func (r *Rule) keepOnFailure() bool {
	if r.KeepOnFailure != nil {
		return *r.KeepOnFailure
	}
	return r.Type != File
}

func (r *Rule) prereqNames(ctx context.Context) ([]TargetName, error) {
	if r.Prereqs == nil {
		return nil, nil
	}
	return r.Prereqs.Prereqs(ctx)
}
