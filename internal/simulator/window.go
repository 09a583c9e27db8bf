package simulator

import "time"

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// Window lists the midnight of every calendar day from now-days through now,
// both inclusive, oldest first. Days are counted on loc's calendar whatever
// zone now carries.
func Window(now time.Time, days int, loc *time.Location) []time.Time {
	if loc == nil {
		loc = now.Location()
	}
	if days < 0 {
		days = 0
	}
	last := StartOfDay(now, loc)
	first := time.Date(last.Year(), last.Month(), last.Day()-days, 0, 0, 0, 0, loc)

	out := make([]time.Time, 0, days+1)
	for day := first; !day.After(last); day = nextDay(day) {
		out = append(out, day)
	}
	return out
}

// AtHour places hour on day's calendar date. Building the wall-clock time
// keeps the result on the same date across DST changes, where adding a
// duration to midnight would not.
func AtHour(day time.Time, hour int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
}

func nextDay(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day()+1, 0, 0, 0, 0, day.Location())
}
