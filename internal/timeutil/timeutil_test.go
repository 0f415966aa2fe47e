package timeutil

import (
	"testing"
	"time"
)

func TestParse_Valid(t *testing.T) {
	got, err := Parse("2008-10-23 17:58:06")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := time.Date(2008, 10, 23, 17, 58, 6, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Parse = %v, want %v", got, want)
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := []string{
		"2008/10/23 17:58:06",
		"2008-10-23T17:58:06",
		"2008-10-23",
		"17:58:06",
		"",
		"not a timestamp",
	}
	for _, c := range cases {
		if _, err := Parse(c); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", c)
		}
	}
}

func TestFormat_RoundTrip(t *testing.T) {
	const in = "2009-01-02 03:04:05"
	ts, err := Parse(in)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if out := Format(ts); out != in {
		t.Errorf("Format = %q, want %q", out, in)
	}
}

func TestMockClock(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	if !c.Now().Equal(start) {
		t.Errorf("Now = %v, want %v", c.Now(), start)
	}

	c.Advance(90 * time.Second)
	if got := c.Since(start); got != 90*time.Second {
		t.Errorf("Since = %v, want 90s", got)
	}
}
