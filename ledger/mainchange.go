package ledger

import (
	"fmt"
	"time"
)

// mainChangeAttendanceDays bounds the attendance re-attribution scan to the
// same trailing window every other attendance consumer uses.
const mainChangeAttendanceDays = 30

// MainChangePlan is the set of events that transfer a player's points from an
// old main character to a new one. The plan only appends events; applying it
// together with the registry status flips must be a single transaction.
type MainChangePlan struct {
	OldMain   string
	NewMain   string
	Awards    []SpecialAward
	Purchases []Purchase
}

// PlanMainChange computes the ledger side of a main change. After the plan is
// applied the old main's main balance is zero and the new main holds exactly
// the old main's pre-change main and alt balances: the credit to the new main
// is the difference against its pre-existing balance, and a reconciling
// alt-pool purchase aligns the alt balance, cancelling the transfer's bleed
// into that pool.
//
// Attendance earned by the old main at snapshots the new main missed is
// re-attributed as attendance-only awards; event membership itself does not
// move.
func PlanMainChange(l *Log, oldMain, newMain string, now time.Time) MainChangePlan {
	oldBalance := l.Balance(oldMain)
	oldAlt := l.AltBalance(oldMain)
	newBalance := l.Balance(newMain)
	newAlt := l.AltBalance(newMain)

	transfer := oldBalance - newBalance

	plan := MainChangePlan{OldMain: oldMain, NewMain: newMain}
	plan.Awards = append(plan.Awards, SpecialAward{
		ID:     NewEventID(),
		Member: oldMain,
		Value:  -oldBalance,
		Time:   now,
		Notes:  fmt.Sprintf("Main change to %s", newMain),
	})
	plan.Awards = append(plan.Awards, SpecialAward{
		ID:     NewEventID(),
		Member: newMain,
		Value:  transfer,
		Time:   now,
		Notes:  fmt.Sprintf("Main change from %s", oldMain),
	})
	plan.Purchases = append(plan.Purchases, Purchase{
		ID:     NewEventID(),
		Member: newMain,
		Item:   "Main change alt balance reconciliation",
		Value:  (newAlt + transfer) - oldAlt,
		Time:   now,
		IsAlt:  true,
		Notes:  fmt.Sprintf("Main change from %s", oldMain),
	})

	cutoff := now.AddDate(0, 0, -mainChangeAttendanceDays)
	for i := range l.Attendance {
		e := &l.Attendance[i]
		if e.Time.Before(cutoff) || e.Time.After(now) {
			continue
		}
		if e.AttendanceWeight == 0 {
			continue
		}
		if e.HasMember(oldMain) && !e.HasMember(newMain) {
			plan.Awards = append(plan.Awards, SpecialAward{
				ID:              NewEventID(),
				Member:          newMain,
				AttendanceValue: e.AttendanceWeight,
				Time:            e.Time,
				Notes:           fmt.Sprintf("Main change attendance from %s", oldMain),
			})
		}
	}
	return plan
}
