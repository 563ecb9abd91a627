// Package queue ranks waiting clients and decides which services accept them.
// Everything here is pure: callers pass in the clock and the rows.
package queue

import "time"

// ArrivalWeight discounts time since the latest arrival relative to total
// time since the first check-in.
const ArrivalWeight = 0.5

// Breakdown is a queue score together with the minute deltas it came from.
type Breakdown struct {
	WaitMinutes    int64
	ArrivalMinutes int64
	Score          float64
}

// Score computes W + 0.5*T where W is whole minutes since firstCheckedIn and
// T is whole minutes since enteredWaitingRoom, both measured at now.
// Deltas in the future clamp to zero.
//
// The score only moves at minute boundaries: gaps that fall in the same
// whole minute score the same, and Materialize orders such ties by queued-at.
func Score(firstCheckedIn, enteredWaitingRoom, now time.Time) Breakdown {
	w := minutesSince(firstCheckedIn, now)
	t := minutesSince(enteredWaitingRoom, now)
	return Breakdown{
		WaitMinutes:    w,
		ArrivalMinutes: t,
		Score:          float64(w) + ArrivalWeight*float64(t),
	}
}

func minutesSince(ts, now time.Time) int64 {
	d := now.Sub(ts)
	if d < 0 {
		return 0
	}
	return int64(d / time.Minute)
}
