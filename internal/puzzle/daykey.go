package puzzle

import "time"

// DayKey encodes the UTC calendar date of t as year*10000 + month*100 + day,
// with a zero-based month. Deployed clients key their stored guesses and
// cached pages with this exact encoding, so it must not change.
func DayKey(t time.Time) int {
	t = t.UTC()
	return t.Year()*10000 + (int(t.Month())-1)*100 + t.Day()
}

// Today returns the day key for now.
func Today(now time.Time) int {
	return DayKey(now)
}

// Yesterday returns the day key for the UTC calendar day before now.
func Yesterday(now time.Time) int {
	return DayKey(now.UTC().AddDate(0, 0, -1))
}

// Retained reports whether key is today's or yesterday's key relative to now.
func Retained(key int, now time.Time) bool {
	return key == Today(now) || key == Yesterday(now)
}
