package forward

import (
	"testing"
	"time"
)

func TestParseCooldown(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want time.Duration
	}{
		{"10 minutes", 10 * time.Minute},
		{"1 minute", time.Minute},
		{"2 hours", 2 * time.Hour},
		{"3 days", 72 * time.Hour},
		{"1 month", 30 * 24 * time.Hour},
		{"2 months", 60 * 24 * time.Hour},
		{"  10 Minutes  ", 10 * time.Minute},
		// Anything unrecognized degrades to "no cooldown".
		{"", 0},
		{"soon", 0},
		{"10", 0},
		{"ten minutes", 0},
		{"-5 minutes", 0},
		{"5 fortnights", 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.raw, func(t *testing.T) {
			if got := ParseCooldown(tt.raw); got != tt.want {
				t.Fatalf("ParseCooldown(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}
