package main

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0m00s"},
		{59 * time.Second, "0m59s"},
		{90*time.Second + 400*time.Millisecond, "1m30s"},
		{2*time.Hour + 5*time.Minute + 7*time.Second, "2h05m07s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
