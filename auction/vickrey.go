package auction

import (
	"math"
	"sort"
)

// vickreyFloorPrice is what the lowest-ranked winner pays when no qualifying
// next bid exists to price against.
const vickreyFloorPrice = 5

// VickreyResolver implements uniform second-price multi-unit resolution with
// pool-aware pricing: each winner pays a price derived from the next
// comparable bid below them rather than their own bid.
type VickreyResolver struct{}

// Resolve ranks the bids, takes the top itemCount as provisional winners, and
// prices each winner off the bids ranked after it.
//
// Winners are reordered so main-pool winners precede alt-pool winners, keeping
// the two pools' pricing separate. The pricing walk for a winner skips bids by
// the same member, then applies: an alt bid under a main winner prices at the
// alt's capped amount plus one; a raw-bid tie prices at the lower of the
// previous winner's price and the winner's own bid; anything else prices at
// the next raw bid plus one, never above the previous winner's price. A winner
// with no qualifying next bid pays the floor price.
func (VickreyResolver) Resolve(bids []Bid, itemCount int, randSource RandSource) Outcome {
	ranked := rankBids(bids, randSource)

	n := itemCount
	if n > len(ranked) {
		n = len(ranked)
	}
	if n == 0 {
		return Outcome{}
	}

	// Main winners first, alt winners after, each group in ranked order.
	winners := make([]Bid, 0, n)
	for i := 0; i < n; i++ {
		if ranked[i].Tag != TagAlt {
			winners = append(winners, ranked[i])
		}
	}
	for i := 0; i < n; i++ {
		if ranked[i].Tag == TagAlt {
			winners = append(winners, ranked[i])
		}
	}
	ordered := append(winners, ranked[n:]...)

	var out Outcome
	previous := math.MaxInt
	for i, w := range winners {
		price := vickreyFloorPrice
		for j := i + 1; j < len(ordered); j++ {
			next := &ordered[j]
			if next.Member == w.Member {
				// Skip the member's own lower bids to avoid
				// self-referential pricing.
				continue
			}
			switch {
			case next.Tag == TagAlt && w.Tag != TagAlt:
				price = next.EffectiveAmount() + 1
			case next.Amount == w.Amount:
				price = min(previous, w.Amount)
			default:
				price = min(next.Amount+1, previous)
			}
			if price > w.Amount {
				price = w.Amount
			}
			break
		}
		out.Winners = append(out.Winners, Winner{
			Member: w.Member,
			Price:  price,
			Tag:    w.Tag,
		})
		previous = price
	}

	// Report bids that tied the cutoff bid but were left out.
	boundary := ranked[n-1].Amount
	for i := n; i < len(ranked); i++ {
		if ranked[i].Amount == boundary {
			out.TieLosers = append(out.TieLosers, ranked[i].Member)
		}
	}
	sort.Strings(out.TieLosers)
	return out
}
