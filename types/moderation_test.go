package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimitWindowRestricts(t *testing.T) {
	start := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	tests := []struct {
		name   string
		window LimitWindow
		now    time.Time
		want   bool
	}{
		{"inactive", LimitWindow{IsActive: false, StartDate: &start, EndDate: &end}, start.Add(time.Hour), false},
		{"no bounds", LimitWindow{IsActive: true}, start, false},
		{"missing end", LimitWindow{IsActive: true, StartDate: &start}, start.Add(time.Hour), false},
		{"before start", LimitWindow{IsActive: true, StartDate: &start, EndDate: &end}, start.Add(-time.Second), false},
		{"at start", LimitWindow{IsActive: true, StartDate: &start, EndDate: &end}, start, true},
		{"inside", LimitWindow{IsActive: true, StartDate: &start, EndDate: &end}, start.Add(time.Hour), true},
		{"at end", LimitWindow{IsActive: true, StartDate: &start, EndDate: &end}, end, true},
		{"after end", LimitWindow{IsActive: true, StartDate: &start, EndDate: &end}, end.Add(time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.window.Restricts(tt.now))
		})
	}
}
