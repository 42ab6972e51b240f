package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTimestamp(t *testing.T) {
	// SQL-style separator and missing zone
	assert.Equal(t, "2024-01-01T10:00:00Z", NormalizeTimestamp("2024-01-01 10:00:00"))
	// missing zone only
	assert.Equal(t, "2024-01-01T10:00:00Z", NormalizeTimestamp("2024-01-01T10:00:00"))
	// already well formed
	assert.Equal(t, "2024-01-01T10:00:00Z", NormalizeTimestamp("2024-01-01T10:00:00Z"))
	assert.Equal(t, "2024-01-01T10:00:00+08:00", NormalizeTimestamp("2024-01-01T10:00:00+08:00"))
	assert.Equal(t, "", NormalizeTimestamp(""))
}

func TestNormalizeTimestampIdempotent(t *testing.T) {
	inputs := []string{
		"2024-01-01 10:00:00",
		"2024-01-01T10:00:00",
		"2024-01-01T10:00:00Z",
		"2024-01-01T10:00:00-05:00",
	}
	for _, ts := range inputs {
		once := NormalizeTimestamp(ts)
		assert.Equal(t, once, NormalizeTimestamp(once), ts)
	}
}

func TestParseTimestamp(t *testing.T) {
	a := ParseTimestamp("2024-01-01 10:00:00")
	b := ParseTimestamp("2024-01-01T10:00:00Z")
	if !a.Equal(b) {
		t.Fatalf("expected %v == %v", a, b)
	}
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), a)

	assert.True(t, ParseTimestamp("not a time").IsZero())
	assert.True(t, ParseTimestamp("").IsZero())
}
