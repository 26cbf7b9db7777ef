package helper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected time.Time
		ok       bool
	}{
		{"ISO date", "2024-03-15", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"ISO datetime", "2024-03-15 08:30:00", time.Date(2024, 3, 15, 8, 30, 0, 0, time.UTC), true},
		{"RFC3339", "2024-03-15T08:30:00Z", time.Date(2024, 3, 15, 8, 30, 0, 0, time.UTC), true},
		{"US slashes", "03/15/2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"European dots", "15.03.2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"spelled month", "Mar 15, 2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"whitespace only", "   ", time.Time{}, false},
		{"empty", "", time.Time{}, false},
		{"free text", "commissioned last spring", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, ok := ParseDate(tt.value)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, parsed.Equal(tt.expected), "got %v", parsed)
			}
		})
	}
}
