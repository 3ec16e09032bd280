package dates

import (
	"strconv"
	"time"
)

// Humanize renders t relative to now the way the mobile API does:
// "just now", "5 minutes ago", "1 day ago", and RFC 3339 past a week.
func Humanize(t, now time.Time) string {
	d := now.Sub(t)
	unit := func(n int, name string) string {
		if n == 1 {
			return "1 " + name + " ago"
		}
		return strconv.Itoa(n) + " " + name + "s ago"
	}

	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return unit(int(d/time.Minute), "minute")
	case d < day:
		return unit(int(d/time.Hour), "hour")
	case d < week:
		return unit(int(d/day), "day")
	default:
		return t.UTC().Format(time.RFC3339)
	}
}
