// Package statusline renders an in-place, one-line-per-worker progress
// display for parallel builds, adapted from distr1/distri's
// internal/batch scheduler.refreshStatus/updateStatus methods: same
// ANSI cursor-restore trick, same isTerminal probe via
// golang.org/x/sys/unix so piping to a file produces plain, append-only
// output instead of cursor-control garbage.
package statusline

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

var isTerminal = func() bool {
	_, err := unix.IoctlGetTermios(int(os.Stdout.Fd()), unix.TCGETS)
	return err == nil
}()

// Reporter draws one status line per worker slot, redrawing in place on a
// terminal and doing nothing on a non-terminal (e.g. when stdout is
// redirected to a log file).
type Reporter struct {
	mu         sync.Mutex
	status     []string
	lastRedraw time.Time
}

// New returns a Reporter with workers status lines, indexed 0..workers-1.
func New(workers int) *Reporter {
	return &Reporter{status: make([]string, workers)}
}

// Update sets the status line for worker idx and redraws, throttled to once
// per 100ms to avoid slowing the build down with excessive output.
func (r *Reporter) Update(idx int, text string) {
	if !isTerminal || idx < 0 || idx >= len(r.status) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if diff := len(r.status[idx]) - len(text); diff > 0 {
		text += strings.Repeat(" ", diff) // overwrite stale characters
	}
	r.status[idx] = text
	if time.Since(r.lastRedraw) < 100*time.Millisecond {
		return
	}
	r.redrawLocked()
}

// Flush forces a redraw regardless of the throttle, e.g. on completion.
func (r *Reporter) Flush() {
	if !isTerminal {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.redrawLocked()
}

func (r *Reporter) redrawLocked() {
	r.lastRedraw = time.Now()
	maxLen := 0
	for _, line := range r.status {
		if len(line) > maxLen {
			maxLen = len(line)
		}
	}
	for _, line := range r.status {
		if len(line) < maxLen {
			line += strings.Repeat(" ", maxLen-len(line))
		}
		fmt.Println(line)
	}
	fmt.Printf("\033[%dA", len(r.status)) // restore cursor position
}
