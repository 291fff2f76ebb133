// Package paging holds the pagination state machines behind the record views.
package paging

import "math"

// MaxCursor is the largest cursor the backend accepts (GraphQL Int is 32-bit)
// and means "newest record, no upper bound".
const MaxCursor int64 = math.MaxInt32

// Record is anything with a descending numeric identifier.
type Record interface {
	CursorID() int64
}

// Mode says how a completed page is merged into the accumulated list.
type Mode int

const (
	// Append adds the page after the existing items.
	Append Mode = iota
	// Replace discards the existing items.
	Replace
)

func (m Mode) String() string {
	if m == Replace {
		return "replace"
	}
	return "append"
}

// Request describes one page fetch issued by a Controller.
type Request struct {
	Seq    uint64
	Cursor int64
	Limit  int
	Mode   Mode
}

// Outcome reports what Complete did with a response.
type Outcome int

const (
	// Applied means the page was merged.
	Applied Outcome = iota
	// Stale means the response belonged to a superseded request.
	Stale
	// Failed means the request errored and the list was left untouched.
	Failed
)

// Controller accumulates cursor-paginated records, newest first. It is not
// safe for concurrent use; callers own it from a single event loop.
type Controller[T Record] struct {
	err       error
	items     []T
	cursor    int64
	next      int64
	pageSize  int
	seq       uint64
	mode      Mode
	fetching  bool
	exhausted bool
}

// NewController returns a controller with the given page size.
func NewController[T Record](pageSize int) *Controller[T] {
	if pageSize <= 0 {
		pageSize = 1
	}
	return &Controller[T]{
		cursor:   MaxCursor,
		next:     MaxCursor,
		pageSize: pageSize,
	}
}

// RequestPage issues a fetch for cursor. An append request is refused while
// another request is in flight; a replace request supersedes it.
func (c *Controller[T]) RequestPage(cursor int64, mode Mode) (Request, bool) {
	if c.fetching && mode == Append {
		return Request{}, false
	}

	c.seq++
	c.mode = mode
	c.fetching = true
	c.err = nil
	if mode == Replace {
		c.cursor = cursor
		c.exhausted = false
	}

	return Request{Seq: c.seq, Cursor: cursor, Limit: c.pageSize, Mode: mode}, true
}

// Start requests the newest page.
func (c *Controller[T]) Start() Request {
	req, _ := c.RequestPage(MaxCursor, Replace)
	return req
}

// LoadMore requests the page after the last accumulated record. It refuses
// while fetching, after the end of data, or before anything has loaded.
func (c *Controller[T]) LoadMore() (Request, bool) {
	if c.fetching || c.exhausted || len(c.items) == 0 {
		return Request{}, false
	}
	return c.RequestPage(c.next, Append)
}

// Reset clears the list and requests the page at cursor.
func (c *Controller[T]) Reset(cursor int64) Request {
	c.items = nil
	c.next = cursor
	req, _ := c.RequestPage(cursor, Replace)
	return req
}

// Refresh reloads from the current cursor.
func (c *Controller[T]) Refresh() Request {
	return c.Reset(c.cursor)
}

// Complete merges the response for the request with sequence seq.
func (c *Controller[T]) Complete(seq uint64, page []T, err error) Outcome {
	if seq != c.seq {
		return Stale
	}
	c.fetching = false

	if err != nil {
		c.err = err
		return Failed
	}

	if len(page) == 0 {
		c.exhausted = true
		return Applied
	}

	if c.mode == Replace {
		c.items = append([]T(nil), page...)
	} else {
		c.items = append(c.items, page...)
	}

	minID := page[0].CursorID()
	for _, item := range page[1:] {
		if id := item.CursorID(); id < minID {
			minID = id
		}
	}
	c.next = minID - 1

	if len(page) < c.pageSize {
		c.exhausted = true
	}
	return Applied
}

// SetPageSize changes the limit used by subsequent requests.
func (c *Controller[T]) SetPageSize(n int) {
	if n > 0 {
		c.pageSize = n
	}
}

// Items returns the accumulated records. The slice must not be modified.
func (c *Controller[T]) Items() []T { return c.items }

// Len returns the number of accumulated records.
func (c *Controller[T]) Len() int { return len(c.items) }

// Cursor returns the cursor of the last reset.
func (c *Controller[T]) Cursor() int64 { return c.cursor }

// NextCursor returns the cursor the next LoadMore will use.
func (c *Controller[T]) NextCursor() int64 { return c.next }

// PageSize returns the current page size.
func (c *Controller[T]) PageSize() int { return c.pageSize }

// Fetching reports whether a request is in flight.
func (c *Controller[T]) Fetching() bool { return c.fetching }

// Exhausted reports whether the end of data has been reached.
func (c *Controller[T]) Exhausted() bool { return c.exhausted }

// LastMode returns the mode of the latest request.
func (c *Controller[T]) LastMode() Mode { return c.mode }

// Err returns the error of the last failed request, cleared by the next request.
func (c *Controller[T]) Err() error { return c.err }

// Seq returns the sequence number of the latest request.
func (c *Controller[T]) Seq() uint64 { return c.seq }
