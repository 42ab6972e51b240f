package relay

import (
	"strings"
	"time"
)

// NormalizeTimestamp repairs the two malformations the event store is known
// to emit: SQL-style "YYYY-MM-DD HH:mm:ss" (space instead of 'T') and
// timestamps with no trailing zone marker, which must be read as UTC.
// The result parses with time.RFC3339. Applying it twice is a no-op.
func NormalizeTimestamp(ts string) string {
	if ts == "" {
		return ts
	}
	if !strings.Contains(ts, "T") && strings.Contains(ts, " ") {
		ts = strings.Replace(ts, " ", "T", 1)
	}
	if !hasZoneMarker(ts) {
		ts += "Z"
	}
	return ts
}

func hasZoneMarker(ts string) bool {
	if strings.HasSuffix(ts, "Z") {
		return true
	}
	// A +HH:mm or -HH:mm suffix after the time portion. The date dashes sit
	// before the 'T', so only look at the tail.
	tail := ts
	if i := strings.IndexByte(ts, 'T'); i >= 0 {
		tail = ts[i+1:]
	} else {
		return false
	}
	return strings.ContainsAny(tail, "+-")
}

// ParseTimestamp normalizes and parses in one step. The zero time is
// returned for garbage so callers can sort without a second error path.
func ParseTimestamp(ts string) time.Time {
	t, err := time.Parse(time.RFC3339, NormalizeTimestamp(ts))
	if err != nil {
		return time.Time{}
	}
	return t
}
