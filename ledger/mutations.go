package ledger

import (
	"math"
	"time"
)

// Decay computes the award that removes a fraction of the member's current
// main balance, rounding the removed amount down.
func Decay(l *Log, member string, factor float64, notes string, now time.Time) SpecialAward {
	cut := int(math.Floor(factor * float64(l.Balance(member))))
	return SpecialAward{
		ID:     NewEventID(),
		Member: member,
		Value:  -cut,
		Time:   now,
		Notes:  notes,
	}
}

// Bonus computes a crediting award for the member.
func Bonus(member string, amount int, notes string, now time.Time) SpecialAward {
	return SpecialAward{
		ID:     NewEventID(),
		Member: member,
		Value:  amount,
		Time:   now,
		Notes:  notes,
	}
}

// CapMain computes the purchase that brings the member's main balance down to
// cap. The debit is a main-pool purchase so the alt pool is untouched.
// Returns false when the balance is already at or below the cap.
func CapMain(l *Log, member string, cap int, notes string, now time.Time) (Purchase, bool) {
	excess := l.Balance(member) - cap
	if excess <= 0 {
		return Purchase{}, false
	}
	return Purchase{
		ID:     NewEventID(),
		Member: member,
		Item:   "Balance cap adjustment",
		Value:  excess,
		Time:   now,
		Notes:  notes,
	}, true
}

// CapAlt is CapMain for the alt pool: the debiting purchase is alt-flagged so
// the main balance is untouched.
func CapAlt(l *Log, member string, cap int, now time.Time) (Purchase, bool) {
	excess := l.AltBalance(member) - cap
	if excess <= 0 {
		return Purchase{}, false
	}
	return Purchase{
		ID:     NewEventID(),
		Member: member,
		Item:   "Alt balance cap adjustment",
		Value:  excess,
		Time:   now,
		IsAlt:  true,
	}, true
}
