package paging

// OffsetPager tracks a 1-based page over offset pagination.
type OffsetPager struct {
	Page  int
	Limit int
}

// NewOffsetPager returns a pager on page 1.
func NewOffsetPager(limit int) OffsetPager {
	if limit <= 0 {
		limit = 1
	}
	return OffsetPager{Page: 1, Limit: limit}
}

// Offset returns the row offset of the current page.
func (p OffsetPager) Offset() int {
	return (p.Page - 1) * p.Limit
}

// HasNext reports whether a page that returned n rows may have a successor.
func (p OffsetPager) HasNext(n int) bool {
	return n == p.Limit
}

// HasPrev reports whether there is a page before the current one.
func (p OffsetPager) HasPrev() bool {
	return p.Page > 1
}

// Next returns the pager advanced by one page.
func (p OffsetPager) Next() OffsetPager {
	p.Page++
	return p
}

// Prev returns the pager moved back one page, never before page 1.
func (p OffsetPager) Prev() OffsetPager {
	if p.Page > 1 {
		p.Page--
	}
	return p
}

// First returns the pager on page 1.
func (p OffsetPager) First() OffsetPager {
	p.Page = 1
	return p
}
