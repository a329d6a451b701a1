// Package report renders color-tagged, console_lock-serialized output lines
// (spec §5, §7). It is stdlib-only: no logging library appears in the
// corpus for this kind of plain progress reporting, and the teacher itself
// hand-rolls console output through its IO type rather than a logger.
package report

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/kestrelsec/munge/internal/errs"
)

// Reporter serializes multi-line progress emissions to a writer, avoiding
// interleaving between concurrent workers (spec §5's console_lock).
type Reporter struct {
	mu    sync.Mutex
	out   io.Writer
	errOut io.Writer
	quiet bool
}

// New creates a Reporter writing to out/errOut. If quiet is true,
// informational lines are suppressed but Yellow/Red lines still print.
func New(out, errOut io.Writer, quiet bool) *Reporter {
	return &Reporter{out: out, errOut: errOut, quiet: quiet}
}

// Line emits a single color-tagged line under console_lock.
func (r *Reporter) Line(color errs.Color, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := r.out
	if color == errs.Red {
		w = r.errOut
	}

	if r.quiet && color == errs.Green {
		return
	}

	fmt.Fprintf(w, "[%s] %s\n", color, fmt.Sprintf(format, args...))
}

// Progress emits a length-sweep progress line (spec §4.6 step 6e): processed
// count, skipped count, elapsed time, and an ETA computed from the average
// per-sequence cost.
func (r *Reporter) Progress(processed, skipped, total uint64, elapsed time.Duration, avgPerSeqMS float64) {
	if r.quiet {
		return
	}

	remaining := float64(0)
	if total > processed {
		remaining = float64(total - processed)
	}

	eta := time.Duration(remaining*avgPerSeqMS) * time.Millisecond

	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(r.out, "processed=%d skipped=%d total=%d elapsed=%s eta=%s\n",
		processed, skipped, total, elapsed.Round(time.Second), eta.Round(time.Second))
}
