package auction

import "sort"

// Bid caps by tag: alt bids never count for more than 5, self-declared
// non-main statuses for more than 10. The raw amount is still what a winner
// pays under first-price rules.
const (
	altBidCap    = 5
	statusBidCap = 10
)

// EffectiveAmount returns the bid amount after applying the tag cap.
func (b *Bid) EffectiveAmount() int {
	switch b.Tag {
	case TagAlt:
		if b.Amount > altBidCap {
			return altBidCap
		}
	case TagINA, TagRecruit, TagFNF:
		if b.Amount > statusBidCap {
			return statusBidCap
		}
	}
	return b.Amount
}

// rankBids orders bids for winner determination: a random shuffle first, so
// bids that compare equal on every key end up in fair random order, then a
// stable descending sort by capped amount, raw amount, balance snapshot, and
// attendance snapshot.
func rankBids(bids []Bid, randSource RandSource) []Bid {
	if randSource == nil {
		randSource = defaultRandSource
	}
	ranked := make([]Bid, len(bids))
	copy(ranked, bids)
	if len(ranked) > 1 {
		shuffle(ranked, randSource)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := &ranked[i], &ranked[j]
		if ae, be := a.EffectiveAmount(), b.EffectiveAmount(); ae != be {
			return ae > be
		}
		if a.Amount != b.Amount {
			return a.Amount > b.Amount
		}
		if a.Balance != b.Balance {
			return a.Balance > b.Balance
		}
		return a.Attendance > b.Attendance
	})
	return ranked
}
