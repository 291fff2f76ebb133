// Package scroll detects when a scrolled view approaches its end.
package scroll

// Sentinel fires once each time the visible window enters the zone within
// threshold rows of the bottom of the content.
type Sentinel struct {
	threshold int
	inZone    bool
	detached  bool
}

// NewSentinel returns a sentinel with the given threshold in rows.
func NewSentinel(threshold int) *Sentinel {
	if threshold < 0 {
		threshold = 0
	}
	return &Sentinel{threshold: threshold}
}

// Observe records the current scroll position and reports whether it just
// crossed into the near-bottom zone. offset is the first visible row, visible
// the number of rows shown, and total the content height.
func (s *Sentinel) Observe(offset, visible, total int) bool {
	if s.detached {
		return false
	}

	near := offset+visible >= total-s.threshold
	fire := near && !s.inZone
	s.inZone = near
	return fire
}

// Rearm forgets the last position so the next Observe in the zone fires.
// Views call it after replacing their content.
func (s *Sentinel) Rearm() {
	s.inZone = false
}

// SetThreshold changes the distance from the bottom that counts as near.
func (s *Sentinel) SetThreshold(rows int) {
	if rows >= 0 {
		s.threshold = rows
	}
}

// Detach permanently disables the sentinel.
func (s *Sentinel) Detach() {
	s.detached = true
}

// Detached reports whether Detach has been called.
func (s *Sentinel) Detached() bool {
	return s.detached
}
