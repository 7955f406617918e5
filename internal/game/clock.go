package game

import (
	"time"
)

// The game day rolls over 8 hours behind UTC so "today's riddle" aligns with
// a late-US-evening boundary instead of midnight UTC.
const gameDayOffset = 8 * time.Hour

// GameTime shifts a wall-clock instant into game time.
func GameTime(now time.Time) time.Time {
	return now.UTC().Add(-gameDayOffset)
}

// GameDay returns the (day, month) identity fields for a wall-clock instant:
// day of month 1..31 and month formatted "YYYY-MM".
func GameDay(now time.Time) (day int, month string) {
	gt := GameTime(now)
	return gt.Day(), gt.Format("2006-01")
}
