package auction

import "sort"

// EnglishResolver implements first-price multi-unit resolution: the top
// itemCount bids by capped amount win and each winner pays their own raw bid.
type EnglishResolver struct{}

// Resolve ranks the bids and awards the top itemCount at their raw amounts.
// Bidders directly below the cutoff whose raw bid equals the last winner's are
// reported as tie losers, sorted by name.
func (EnglishResolver) Resolve(bids []Bid, itemCount int, randSource RandSource) Outcome {
	ranked := rankBids(bids, randSource)

	n := itemCount
	if n > len(ranked) {
		n = len(ranked)
	}
	var out Outcome
	for i := 0; i < n; i++ {
		out.Winners = append(out.Winners, Winner{
			Member: ranked[i].Member,
			Price:  ranked[i].Amount,
			Tag:    ranked[i].Tag,
		})
	}
	if n > 0 && n < len(ranked) {
		boundary := ranked[n-1].Amount
		for i := n; i < len(ranked) && ranked[i].Amount == boundary; i++ {
			out.TieLosers = append(out.TieLosers, ranked[i].Member)
		}
		sort.Strings(out.TieLosers)
	}
	return out
}
