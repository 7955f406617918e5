package game

import (
	"testing"
	"time"
)

func TestGameDayOffset(t *testing.T) {
	tests := []struct {
		name      string
		instant   time.Time
		wantDay   int
		wantMonth string
	}{
		{
			name:      "midday stays on the same date",
			instant:   time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
			wantDay:   15,
			wantMonth: "2026-03",
		},
		{
			name:      "early UTC morning belongs to the previous game day",
			instant:   time.Date(2026, 3, 15, 3, 0, 0, 0, time.UTC),
			wantDay:   14,
			wantMonth: "2026-03",
		},
		{
			name:      "month boundary rolls back",
			instant:   time.Date(2026, 4, 1, 2, 0, 0, 0, time.UTC),
			wantDay:   31,
			wantMonth: "2026-03",
		},
		{
			name:      "exactly at the boundary starts the new day",
			instant:   time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC),
			wantDay:   15,
			wantMonth: "2026-03",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			day, month := GameDay(tt.instant)
			if day != tt.wantDay || month != tt.wantMonth {
				t.Errorf("GameDay(%v) = (%d, %s), want (%d, %s)",
					tt.instant, day, month, tt.wantDay, tt.wantMonth)
			}
		})
	}
}
