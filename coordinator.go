package tdbuild

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/distr1/tdbuild/internal/traceevents"
	"github.com/distr1/tdbuild/logger"
	"golang.org/x/sync/errgroup"
)

// rootTrace is the pseudo build-trace entry every public entrypoint seeds,
// standing in for "whoever issued this top-level request".
const rootTrace = "root"

func appendTrace(trace []TargetName, name TargetName) []TargetName {
	cp := make([]TargetName, 0, len(trace)+1)
	cp = append(cp, trace...)
	cp = append(cp, name)
	return cp
}

// future is a memoized, at-most-once build in flight (or settled) for one
// target name.
type future struct {
	done   chan struct{}
	result BuildResult
	err    error
}

// Coordinator is the memoized public entrypoint into the engine: for any
// target name it produces at most one in-flight build future and composes
// results, per spec.md §4.2.
type Coordinator struct {
	cfg      Config
	registry *registry
	oracle   *freshnessOracle

	mu         sync.Mutex
	futures    map[TargetName]*future
	generation int64 // bumped each time a new future is created; join() polls this

	workerSeq int32 // for trace-event worker ids
}

// NewCoordinator constructs a Coordinator from cfg. It also runs the
// best-effort static cycle pre-check described in SPEC_FULL.md §3, logging a
// warning (never a hard error) if the statically declared rules contain a
// cycle.
func NewCoordinator(cfg Config) *Coordinator {
	if cfg.Logger == nil {
		cfg.Logger = logger.Null()
	}
	c := &Coordinator{
		cfg:      cfg,
		registry: newRegistry(cfg.Rules, cfg.GeneratedRules),
		oracle:   newFreshnessOracle(cfg.Oracle),
		futures:  make(map[TargetName]*future),
	}
	if cycle := DetectCycles(cfg.Rules); len(cycle) > 0 {
		c.logf(logger.Warnings, "static rule graph contains a cycle: %v (dynamically generated rules are not covered by this check)", cycle)
	}
	return c
}

func (c *Coordinator) logf(level logger.Level, format string, args ...interface{}) {
	msg := sprintf(format, args...)
	switch level {
	case logger.Warnings:
		c.cfg.Logger.Warn(msg)
	case logger.Errors:
		c.cfg.Logger.Error(msg)
	default:
		c.cfg.Logger.Log(msg)
	}
}

// Build returns the memoized build future for name, creating it if this is
// the first request for name on this Coordinator. trace is the chain of
// target names from the root request down to (but not including) name; pass
// nil at the true top level.
func (c *Coordinator) Build(ctx context.Context, name TargetName, trace []TargetName) (BuildResult, error) {
	if trace == nil {
		trace = []TargetName{rootTrace}
	}

	c.mu.Lock()
	if f, ok := c.futures[name]; ok {
		c.mu.Unlock()
		<-f.done
		return f.result, f.err
	}
	f := &future{done: make(chan struct{})}
	c.futures[name] = f
	atomic.AddInt64(&c.generation, 1)
	c.mu.Unlock()

	result, err := c.resolve(ctx, name, trace)
	f.result, f.err = result, err
	close(f.done)
	return result, err
}

// resolve performs the actual, uncached build of name: looks up its rule
// (if any), and either treats it as a pre-existing artifact or delegates to
// the Target Resolver.
func (c *Coordinator) resolve(ctx context.Context, name TargetName, trace []TargetName) (BuildResult, error) {
	worker := int(atomic.AddInt32(&c.workerSeq, 1))
	if c.cfg.EventSink != nil {
		done := traceevents.Begin(c.cfg.EventSink, name, worker)
		defer done()
	}
	if c.cfg.OnProgress != nil {
		c.cfg.OnProgress(ProgressEvent{Kind: Started, Target: name, Worker: worker})
	}
	var result BuildResult
	var err error
	defer func() {
		if c.cfg.OnProgress != nil {
			c.cfg.OnProgress(ProgressEvent{Kind: Finished, Target: name, Worker: worker, Err: err})
		}
	}()

	var rule *Rule
	var ok bool
	rule, ok, err = c.registry.lookup(name)
	if err != nil {
		err = traced(appendTrace(trace, name), err)
		return BuildResult{}, err
	}
	if !ok {
		var m Mtime
		m, err = c.oracle.mtime(name, onNotFoundError(), PosInf)
		if err != nil {
			if os.IsNotExist(err) {
				err = traced(appendTrace(trace, name), &MissingTargetError{Target: name})
			} else {
				err = traced(appendTrace(trace, name), err)
			}
			return BuildResult{}, err
		}
		result = BuildResult{Mtime: m}
		return result, nil
	}
	result, err = c.resolveTarget(ctx, name, rule, trace)
	return result, err
}

// BuildAll aggregates multiple build requests, deduplicating names
// preserving first-occurrence order. In parallel mode it launches every
// sub-build concurrently; in serial mode it builds strictly one at a time in
// order. Either way it returns the element-wise max of the resulting
// mtimes, seeded at NegInf.
func (c *Coordinator) BuildAll(ctx context.Context, names []TargetName, trace []TargetName) (Mtime, error) {
	names = dedupe(names)
	if len(names) == 0 {
		return NegInf, nil
	}

	if !c.cfg.Parallel {
		max := NegInf
		for _, n := range names {
			res, err := c.Build(ctx, n, trace)
			if err != nil {
				return 0, err
			}
			max = maxMtime(max, res.Mtime)
		}
		return max, nil
	}

	var mu sync.Mutex
	max := NegInf
	eg, egCtx := errgroup.WithContext(ctx)
	for _, n := range names {
		n := n
		eg.Go(func() error {
			res, err := c.Build(egCtx, n, trace)
			if err != nil {
				return err
			}
			mu.Lock()
			max = maxMtime(max, res.Mtime)
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, err
	}
	return max, nil
}

func sprintf(format string, args ...interface{}) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
