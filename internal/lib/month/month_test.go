package month

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResetDue(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		lastReset time.Time
		want      bool
	}{
		{
			name:      "same month",
			lastReset: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			want:      false,
		},
		{
			name:      "same moment",
			lastReset: now,
			want:      false,
		},
		{
			name:      "previous month",
			lastReset: time.Date(2025, 2, 28, 23, 59, 59, 0, time.UTC),
			want:      true,
		},
		{
			name:      "same month previous year",
			lastReset: time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
			want:      true,
		},
		{
			name:      "zero time",
			lastReset: time.Time{},
			want:      true,
		},
		{
			name:      "future month",
			lastReset: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResetDue(now, tt.lastReset))
		})
	}
}

func TestResetDue_ComparesInNowLocation(t *testing.T) {
	bucharest := time.FixedZone("EET", 2*60*60)
	now := time.Date(2025, 3, 1, 0, 30, 0, 0, bucharest)
	// 28 февраля 23:00 UTC это уже 1 марта по Бухаресту.
	lastReset := time.Date(2025, 2, 28, 23, 0, 0, 0, time.UTC)

	assert.False(t, ResetDue(now, lastReset))
}

func TestStart(t *testing.T) {
	got := Start(time.Date(2025, 7, 19, 10, 11, 12, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), got)
}
