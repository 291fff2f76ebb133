package scroll

import "testing"

func TestSentinel_EdgeTriggered(t *testing.T) {
	s := NewSentinel(3)

	steps := []struct {
		offset int
		want   bool
	}{
		{0, false},  // 0+20 < 100-3
		{70, false}, // 90 < 97
		{77, true},  // 97 >= 97, entering
		{78, false}, // still inside
		{80, false},
		{50, false}, // left the zone
		{79, true},  // entered again
	}

	for i, step := range steps {
		if got := s.Observe(step.offset, 20, 100); got != step.want {
			t.Errorf("step %d: Observe(%d) = %v, want %v", i, step.offset, got, step.want)
		}
	}
}

func TestSentinel_ShortContentFiresImmediately(t *testing.T) {
	s := NewSentinel(3)
	if !s.Observe(0, 20, 5) {
		t.Error("content shorter than the viewport should count as near bottom")
	}
}

func TestSentinel_Rearm(t *testing.T) {
	s := NewSentinel(0)
	if !s.Observe(80, 20, 100) {
		t.Fatal("expected first crossing to fire")
	}
	if s.Observe(80, 20, 100) {
		t.Fatal("second observation in zone fired")
	}

	s.Rearm()
	if !s.Observe(80, 20, 100) {
		t.Error("Observe() after Rearm should fire")
	}
}

func TestSentinel_Detach(t *testing.T) {
	s := NewSentinel(3)
	s.Detach()

	if s.Observe(100, 20, 100) {
		t.Error("detached sentinel fired")
	}
	if !s.Detached() {
		t.Error("Detached() = false")
	}
	s.Rearm()
	if s.Observe(100, 20, 100) {
		t.Error("detached sentinel fired after Rearm")
	}
}

func TestSentinel_SetThreshold(t *testing.T) {
	s := NewSentinel(0)
	if s.Observe(70, 20, 100) {
		t.Fatal("fired outside zone")
	}
	s.SetThreshold(10)
	if !s.Observe(70, 20, 100) {
		t.Error("wider threshold should put offset 70 in zone")
	}
	s.SetThreshold(-1)
	if s.threshold != 10 {
		t.Errorf("negative threshold accepted: %d", s.threshold)
	}
}
