// Package market resolves stock prices for the trading API: it clamps a
// requested timestamp onto the trading calendar, then asks the upstream bar
// feed for the matching minute bar.
package market

import "time"

// DefaultChunkMinutes is the bar granularity prices snap to.
const DefaultChunkMinutes = 5

// Session bounds in UTC: US equities regular hours.
const (
	openHour    = 14
	openMinute  = 30
	closeHour   = 21
	closeMinute = 0
)

// adjustForWeekend rolls Saturday and Sunday back to Friday's close.
func adjustForWeekend(t time.Time) time.Time {
	switch t.Weekday() {
	case time.Saturday:
		return endOfDay(t.AddDate(0, 0, -1))
	case time.Sunday:
		return endOfDay(t.AddDate(0, 0, -2))
	}
	return t
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 0, 0, t.Location())
}

// clipToTradingHours clamps a weekday timestamp inside the session: before
// the open falls back to the previous session's 21:00 close (Monday reaches
// back to Friday), after the close snaps to the close.
func clipToTradingHours(t time.Time) time.Time {
	t = adjustForWeekend(t)

	open := time.Date(t.Year(), t.Month(), t.Day(), openHour, openMinute, 0, 0, t.Location())
	if t.Before(open) {
		prev := t.AddDate(0, 0, -1)
		if t.Weekday() == time.Monday {
			prev = t.AddDate(0, 0, -3)
		}
		return time.Date(prev.Year(), prev.Month(), prev.Day(), closeHour, closeMinute, 0, 0, t.Location())
	}

	close := time.Date(t.Year(), t.Month(), t.Day(), closeHour, closeMinute, 0, 0, t.Location())
	if t.After(close) {
		return close
	}
	return t
}

// roundToChunk floors the minute onto a chunk boundary.
func roundToChunk(t time.Time, chunkMinutes int) time.Time {
	minute := t.Minute() - t.Minute()%chunkMinutes
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), minute, 0, 0, t.Location())
}

// ClampToSession turns an arbitrary timestamp into the most recent valid
// trading time point at the given bar granularity.
func ClampToSession(t time.Time, chunkMinutes int) time.Time {
	if chunkMinutes <= 0 {
		chunkMinutes = DefaultChunkMinutes
	}
	t = t.UTC().Truncate(time.Minute)
	t = clipToTradingHours(t)
	return roundToChunk(t, chunkMinutes)
}
