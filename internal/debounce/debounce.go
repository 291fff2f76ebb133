// Package debounce delays user input until typing pauses.
package debounce

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/j-veylop/llmlog-dashboard-tui/internal/paging"
)

// ErrInvalidCursor is returned by ResolveCursor for text that is not a
// non-negative integer.
var ErrInvalidCursor = errors.New("cursor must be a non-negative integer")

// Debouncer delivers the last value pushed within a quiet period on C.
type Debouncer struct {
	timer   *time.Timer
	out     chan string
	pending string
	delay   time.Duration
	gen     uint64
	mu      sync.Mutex
	hasPend bool
	closed  bool
}

// New returns a debouncer with the given quiet period.
func New(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay: delay,
		out:   make(chan string, 1),
	}
}

// C returns the channel debounced values are delivered on. It is closed by
// Close.
func (d *Debouncer) C() <-chan string {
	return d.out
}

// Push records text and restarts the quiet period.
func (d *Debouncer) Push(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.pending = text
	d.hasPend = true

	if d.delay <= 0 {
		d.deliverLocked()
		return
	}

	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// a later Push or Flush already took over
	if d.closed || gen != d.gen {
		return
	}
	d.timer = nil
	d.deliverLocked()
}

// Flush delivers the pending value immediately and reports whether there was
// one.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed || !d.hasPend {
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.deliverLocked()
	return true
}

// deliverLocked sends the pending value, replacing any value the consumer has
// not read yet.
func (d *Debouncer) deliverLocked() {
	value := d.pending
	d.pending = ""
	d.hasPend = false

	select {
	case d.out <- value:
	default:
		select {
		case <-d.out:
		default:
		}
		d.out <- value
	}
}

// Pending reports whether a value is waiting for the quiet period to end.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hasPend
}

// SetDelay changes the quiet period for subsequent pushes.
func (d *Debouncer) SetDelay(delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delay = delay
}

// Close cancels any pending value and closes C.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.hasPend = false
	close(d.out)
}

// ResolveCursor converts cursor input text to a cursor value. Empty text
// means the newest record; values above paging.MaxCursor are clamped to it.
func ResolveCursor(text string) (int64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return paging.MaxCursor, nil
	}

	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) && !strings.HasPrefix(text, "-") {
			return paging.MaxCursor, nil
		}
		return 0, fmt.Errorf("%w: %q", ErrInvalidCursor, text)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCursor, text)
	}
	if n > paging.MaxCursor {
		return paging.MaxCursor, nil
	}
	return n, nil
}
