package ledger

import (
	"time"

	"github.com/google/uuid"
)

// AltEpoch is the start of the alt point program. Events before this date
// never contribute to alt balances.
var AltEpoch = time.Date(2020, time.July, 22, 0, 0, 0, 0, time.UTC)

// AttendanceEvent awards points to every member present at one time-bucketed
// participation snapshot. AttendanceWeight is 0 or 1 and controls whether the
// event counts toward attendance percentages.
type AttendanceEvent struct {
	ID               string    `json:"id" cbor:"id"`
	Value            int       `json:"value" cbor:"value"`
	AttendanceWeight int       `json:"attendance_weight" cbor:"attendance_weight"`
	Time             time.Time `json:"time" cbor:"time"`
	Present          []string  `json:"present" cbor:"present"`
	Notes            string    `json:"notes,omitempty" cbor:"notes,omitempty"`
}

// HasMember reports whether the named member was present at the event.
func (e *AttendanceEvent) HasMember(name string) bool {
	for _, p := range e.Present {
		if p == name {
			return true
		}
	}
	return false
}

// SpecialAward is a point or attendance delta for a single member that is not
// attached to a participation snapshot: bonuses, decays, corrections. Awards
// only ever append; prior events are never edited.
type SpecialAward struct {
	ID              string    `json:"id" cbor:"id"`
	Member          string    `json:"member" cbor:"member"`
	Value           int       `json:"value" cbor:"value"`
	AttendanceValue int       `json:"attendance_value" cbor:"attendance_value"`
	Time            time.Time `json:"time" cbor:"time"`
	Notes           string    `json:"notes,omitempty" cbor:"notes,omitempty"`
}

// Purchase records a member spending points on an item. IsAlt selects which
// balance pool is debited. AuctionID back-references the auction that produced
// the purchase, when there is one.
type Purchase struct {
	ID        string    `json:"id" cbor:"id"`
	Member    string    `json:"member" cbor:"member"`
	Item      string    `json:"item" cbor:"item"`
	Value     int       `json:"value" cbor:"value"`
	Time      time.Time `json:"time" cbor:"time"`
	IsAlt     bool      `json:"is_alt,omitempty" cbor:"is_alt,omitempty"`
	AuctionID string    `json:"auction_id,omitempty" cbor:"auction_id,omitempty"`
	Notes     string    `json:"notes,omitempty" cbor:"notes,omitempty"`
}

// Log is the full append-only event history. All balance and attendance
// figures are derived from it; nothing here is mutated in place.
type Log struct {
	Attendance []AttendanceEvent
	Awards     []SpecialAward
	Purchases  []Purchase
}

// NewEventID returns a fresh unique id for a ledger event.
func NewEventID() string {
	return uuid.NewString()
}
