// Package traceevents writes a Chrome Trace Event Format stream describing
// the begin/end of each target build, loadable into chrome://tracing.
// Adapted from distr1/distri's internal/trace package, generalized from
// per-package-build events to per-target-build events and stripped of the
// /proc-based CPU/memory samplers that package had no use for here.
package traceevents

import (
	"encoding/json"
	"io"
	"log"
	"sync"
	"time"
)

var start = time.Now()

type sink struct {
	mu      sync.Mutex
	w       io.Writer
	opened  bool
}

var s sink

// Open starts the JSON Array Format by writing the opening bracket to w. The
// trailing ']' is optional in Chrome's loader, so callers don't need to
// close it. Calling Open more than once is a no-op after the first.
func Open(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened {
		return
	}
	s.w = w
	s.opened = true
	w.Write([]byte{'['})
}

type event struct {
	Name           string      `json:"name"`
	Categories     string      `json:"cat"`
	Type           string      `json:"ph"`
	ClockTimestamp uint64      `json:"ts"`
	Duration       uint64      `json:"dur"`
	Pid            uint64      `json:"pid"`
	Tid            uint64      `json:"tid"`
	Args           interface{} `json:"args,omitempty"`
}

func write(w io.Writer, e *event) {
	b, err := json.Marshal(e)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := w.Write(append(b, ',')); err != nil {
		log.Printf("[traceevents] %v", err)
	}
}

// Begin opens the given sink (if not already open), emits a begin event for
// name on the given worker/tid, and returns a function that emits the
// matching end event. Callers defer the returned function.
func Begin(w io.Writer, name string, worker int) func() {
	Open(w)
	ts := uint64(time.Since(start) / time.Microsecond)
	write(w, &event{
		Name:           name,
		Type:           "B",
		ClockTimestamp: ts,
		Tid:            uint64(worker),
	})
	return func() {
		write(w, &event{
			Name:           name,
			Type:           "E",
			ClockTimestamp: uint64(time.Since(start) / time.Microsecond),
			Tid:            uint64(worker),
		})
	}
}
