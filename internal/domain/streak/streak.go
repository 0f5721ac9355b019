// Package streak implements the daily login streak rule.
//
// The rule is a pure function of the current day, the last recorded login day
// and the current streak. It performs no I/O; persisting the result is the
// caller's concern.
package streak

import "time"

// Result is the outcome of evaluating a login against the stored streak.
type Result struct {
	// Streak is the streak value after this login.
	Streak int

	// LastLogin is the calendar day (midnight in today's location) to record.
	LastLogin time.Time

	// Changed is false when the login falls on an already-recorded day and
	// nothing needs to be persisted.
	Changed bool
}

// Evaluate applies the streak rule for a login happening at today.
//
// Days are compared as calendar days in today's location:
//   - no previous login starts a streak of 1
//   - a login on the day after the last one extends the streak by 1
//   - a gap of more than one day resets the streak to 1
//   - a second login on the same day changes nothing
//
// A lastLogin later than today (the device clock moved backwards) is treated
// like a same-day login and changes nothing.
func Evaluate(today time.Time, lastLogin *time.Time, current int) Result {
	day := StartOfDay(today)

	if lastLogin == nil || lastLogin.IsZero() {
		return Result{Streak: 1, LastLogin: day, Changed: true}
	}

	last := StartOfDay(lastLogin.In(today.Location()))

	switch diff := DayDiff(last, day); {
	case diff == 1:
		return Result{Streak: current + 1, LastLogin: day, Changed: true}
	case diff > 1:
		return Result{Streak: 1, LastLogin: day, Changed: true}
	default:
		return Result{Streak: current, LastLogin: last, Changed: false}
	}
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayDiff returns the number of whole calendar days from a to b.
// Both values are expected to be midnights in the same location. Counting via
// the calendar date rather than dividing durations keeps DST days (23h or 25h)
// from being miscounted.
func DayDiff(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
