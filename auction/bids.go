package auction

import (
	"fmt"
	"time"

	"github.com/guildtools/dkpledger/ledger"
	"github.com/guildtools/dkpledger/registry"
)

// attendanceWindowDays is the trailing window used for the attendance
// snapshot stored with each bid.
const attendanceWindowDays = 30

// selfDeclaredTags are the tags a non-Main member may use to declare their own
// standing without triggering a mismatch warning.
var selfDeclaredTags = map[string]bool{
	TagINA:     true,
	TagFNF:     true,
	TagRecruit: true,
}

// IntakeResult is the outcome of validating one submitted batch of bids:
// the recorded bids plus advisory warnings in submission order.
type IntakeResult struct {
	Bids     []Bid
	Warnings []string
}

// ProcessBids validates a batch of submissions against the registry and the
// ledger. Zero-amount bids are skipped. Unresolvable names are dropped with a
// warning; every other issue (tag/status mismatch, bidding over the checked
// balance) is advisory only and the bid is recorded as submitted. Each
// recorded bid carries a snapshot of the checked pool balance and 30-day
// attendance.
func ProcessBids(dir registry.Directory, log *ledger.Log, subs []Submission, now time.Time) IntakeResult {
	var result IntakeResult
	for _, sub := range subs {
		if sub.Amount == 0 {
			continue
		}

		res, ok := registry.Resolve(dir, sub.Name)
		if !ok {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Received bid for unknown character: %s", sub.Name))
			continue
		}
		member := res.Member
		alt := res.Alt
		if sub.Tag == TagMain {
			// Explicit override: the bidder wants the main pool even
			// when the name resolved through an alt link.
			alt = false
		}

		tag := sub.Tag
		var balance int
		if alt || tag == TagAlt {
			tag = TagAlt
			balance = log.AltBalance(member.Name)
		} else {
			balance = log.Balance(member.Name)
		}

		if member.Status != registry.StatusMain && !selfDeclaredTags[tag] {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s bid with tag %q but is registered as %q", member.Name, tag, member.Status))
		}
		if sub.Amount > balance {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s bid %d dkp but only has %d on the site", member.Name, sub.Amount, balance))
		}

		result.Bids = append(result.Bids, Bid{
			Member:     member.Name,
			Amount:     sub.Amount,
			Tag:        tag,
			Balance:    balance,
			Attendance: log.AttendancePct(member.Name, attendanceWindowDays, now),
		})
	}
	return result
}
