package clock

import (
	"testing"
	"time"
)

func TestFakeAdvance(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	f := NewFake(start)
	c := f.Clock()
	if !c().Equal(start) {
		t.Fatalf("now=%v want %v", c(), start)
	}
	f.Advance(90 * time.Second)
	if got := c().Sub(start); got != 90*time.Second {
		t.Fatalf("advanced %v, want 90s", got)
	}
	later := start.Add(time.Hour)
	f.Set(later)
	if !c().Equal(later) {
		t.Fatalf("set: now=%v want %v", c(), later)
	}
}

func TestRealIsUTC(t *testing.T) {
	if loc := Real().Location(); loc != time.UTC {
		t.Fatalf("location=%v want UTC", loc)
	}
}
