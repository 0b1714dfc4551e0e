package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance returns the member's spendable main-pool points: attendance awards
// plus special awards minus main-pool purchases.
func (l *Log) Balance(member string) int {
	total := 0
	for i := range l.Attendance {
		if l.Attendance[i].HasMember(member) {
			total += l.Attendance[i].Value
		}
	}
	for i := range l.Awards {
		if l.Awards[i].Member == member {
			total += l.Awards[i].Value
		}
	}
	for i := range l.Purchases {
		if p := &l.Purchases[i]; p.Member == member && !p.IsAlt {
			total -= p.Value
		}
	}
	return total
}

// AltBalance returns the member's alt-pool points. Only events at or after
// AltEpoch contribute, and only alt-flagged purchases debit it.
func (l *Log) AltBalance(member string) int {
	total := 0
	for i := range l.Attendance {
		e := &l.Attendance[i]
		if e.Time.Before(AltEpoch) {
			continue
		}
		if e.HasMember(member) {
			total += e.Value
		}
	}
	for i := range l.Awards {
		a := &l.Awards[i]
		if a.Time.Before(AltEpoch) {
			continue
		}
		if a.Member == member {
			total += a.Value
		}
	}
	for i := range l.Purchases {
		if p := &l.Purchases[i]; p.Member == member && p.IsAlt {
			total -= p.Value
		}
	}
	return total
}

// AttendancePct returns the member's participation percentage over the trailing
// window of days ending at asOf. The numerator is the member's
// attendance-weighted presences plus special attendance awards in the window;
// the denominator is the total attendance weight of all events in the window.
// A window with no attendance-weighted events yields 0.
func (l *Log) AttendancePct(member string, days int, asOf time.Time) float64 {
	cutoff := asOf.AddDate(0, 0, -days)
	earned := 0
	possible := 0
	for i := range l.Attendance {
		e := &l.Attendance[i]
		if e.Time.Before(cutoff) || e.Time.After(asOf) {
			continue
		}
		possible += e.AttendanceWeight
		if e.HasMember(member) {
			earned += e.AttendanceWeight
		}
	}
	for i := range l.Awards {
		a := &l.Awards[i]
		if a.Time.Before(cutoff) || a.Time.After(asOf) {
			continue
		}
		if a.Member == member {
			earned += a.AttendanceValue
		}
	}
	if possible == 0 {
		return 0
	}
	return 100 * float64(earned) / float64(possible)
}

// FormatAttendance renders an attendance percentage with exactly two decimal
// places, e.g. "100.00".
func FormatAttendance(pct float64) string {
	return decimal.NewFromFloat(pct).StringFixed(2)
}
