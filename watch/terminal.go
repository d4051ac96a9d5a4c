// Package watch provides concrete buildset.Watcher implementations: a
// terminal status redraw, a GitHub commit status updater, and an in-memory
// recorder for tests.
package watch

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"

	"github.com/distr1/buildset"
)

// Terminal redraws a fixed block of status lines in place, the way distri's
// batch.scheduler.refreshStatus repaints progress for each worker slot: each
// named line is overwritten with trailing whitespace to erase stale
// characters, then the cursor is moved back up to the top of the block.
//
// The in-place redraw is skipped when Out is not a TTY (isatty.IsTerminal),
// since overwrite escape sequences are meaningless when redirected to a file
// or pipe; the milestone lines written by HopeLost, Success and Finished are
// written to Out either way.
type Terminal struct {
	Out io.Writer

	mu          sync.Mutex
	names       []string
	lines       map[string]string
	isATerminal bool
}

// NewTerminal returns a Terminal writing to out, with one status line per
// name in names, in that display order.
func NewTerminal(out *os.File, names []string) *Terminal {
	lines := make(map[string]string, len(names))
	for _, n := range names {
		lines[n] = n + ": queued"
	}
	return &Terminal{
		Out:         out,
		names:       append([]string(nil), names...),
		lines:       lines,
		isATerminal: isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd()),
	}
}

// RequestStatus implements buildset.RequestWatcher: it drives the live
// per-request redraw loop, repainting name's line with status ("running",
// or a finished request's result) as the build set progresses, rather than
// leaving every line showing the "queued" text NewTerminal seeded it with.
func (t *Terminal) RequestStatus(name, status string) {
	t.SetLine(name, status)
}

// SetLine updates name's status line and repaints the block.
func (t *Terminal) SetLine(name, status string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	old := t.lines[name]
	newLine := name + ": " + status
	if diff := len(old) - len(newLine); diff > 0 {
		newLine += strings.Repeat(" ", diff)
	}
	t.lines[name] = newLine
	t.redrawLocked()
}

func (t *Terminal) redrawLocked() {
	if !t.isATerminal {
		return
	}
	for _, n := range t.names {
		fmt.Fprintln(t.Out, t.lines[n])
	}
	fmt.Fprintf(t.Out, "\033[%dA", len(t.names)) // restore cursor position
}

// HopeLost implements buildset.Watcher.
func (t *Terminal) HopeLost() {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.Out, "\n--- a builder failed; overall success is no longer possible ---")
	t.redrawLocked()
}

// Success implements buildset.Watcher.
func (t *Terminal) Success(result buildset.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.Out, "\n--- success milestone: %s ---\n", result)
	t.redrawLocked()
}

// Finished implements buildset.Watcher.
func (t *Terminal) Finished(result buildset.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.Out, "\n--- all finished: %s ---\n", result)
}
