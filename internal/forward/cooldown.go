package forward

import (
	"strconv"
	"strings"
	"time"
)

// ParseCooldown parses operator timer text like "10 minutes", "2 hours",
// "3 days" or "1 month" into a cooldown duration. A month counts as 30
// days. Empty or unrecognized text yields zero (no cooldown) rather
// than an error: a bad timer degrades to "always forward", it never
// blocks a job from starting.
func ParseCooldown(raw string) time.Duration {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(raw)))
	if len(fields) < 2 {
		return 0
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 0 {
		return 0
	}
	switch unit := fields[1]; {
	case strings.HasPrefix(unit, "month"):
		return time.Duration(n) * 30 * 24 * time.Hour
	case strings.HasPrefix(unit, "day"):
		return time.Duration(n) * 24 * time.Hour
	case strings.HasPrefix(unit, "hour"):
		return time.Duration(n) * time.Hour
	case strings.HasPrefix(unit, "minute"):
		return time.Duration(n) * time.Minute
	}
	return 0
}
