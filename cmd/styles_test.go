package cmd

import (
	"testing"
	"time"
)

func TestFormatWhen(t *testing.T) {
	now := time.Date(2026, 3, 12, 18, 0, 0, 0, time.Local)
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"today", now.Add(-2 * time.Hour), "Today 16:00"},
		{"this week", now.AddDate(0, 0, -3), "Mon 18:00"},
		{"this year", now.AddDate(0, -2, 0), "Jan 12 18:00"},
		{"older", now.AddDate(-2, 0, 0), "2024-03-12"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatWhen(tt.t, now); got != tt.want {
				t.Errorf("formatWhen() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestShortIDAndTitle(t *testing.T) {
	if got := shortID("0123456789"); got != "01234567" {
		t.Errorf("shortID() = %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID() = %q", got)
	}
	if got := displayTitle("", 10); got != "Untitled" {
		t.Errorf("displayTitle(\"\") = %q", got)
	}
	if got := displayTitle("a long session title", 10); got != "a long se…" {
		t.Errorf("displayTitle() = %q", got)
	}
}
