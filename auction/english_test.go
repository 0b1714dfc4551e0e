package auction

import (
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestEnglish_MultiUnitWithCappedAltBid(t *testing.T) {
	// Three units: the ALT bid of 20 caps to 5 and loses to the raw 14.
	bids := []Bid{
		{Member: "A", Amount: 15},
		{Member: "B", Amount: 15},
		{Member: "C", Amount: 14},
		{Member: "D", Amount: 20, Tag: TagAlt},
	}

	out := EnglishResolver{}.Resolve(bids, 3, zeroRand())

	assert.Equal(t, 3, len(out.Winners))
	prices := map[string]int{}
	for _, w := range out.Winners {
		prices[w.Member] = w.Price
	}
	check.Equal(t, map[string]int{"A": 15, "B": 15, "C": 14}, prices)
	check.Equal(t, 0, len(out.TieLosers))
}

func TestEnglish_WinnersPayOwnBid(t *testing.T) {
	bids := []Bid{
		{Member: "High", Amount: 30},
		{Member: "Low", Amount: 10},
	}

	out := EnglishResolver{}.Resolve(bids, 1, zeroRand())

	assert.Equal(t, 1, len(out.Winners))
	check.Equal(t, "High", out.Winners[0].Member)
	check.Equal(t, 30, out.Winners[0].Price)
}

func TestEnglish_FewerBidsThanItems(t *testing.T) {
	bids := []Bid{{Member: "Only", Amount: 8}}

	out := EnglishResolver{}.Resolve(bids, 3, zeroRand())

	assert.Equal(t, 1, len(out.Winners))
	check.Equal(t, "Only", out.Winners[0].Member)
}

func TestEnglish_NoBids(t *testing.T) {
	out := EnglishResolver{}.Resolve(nil, 2, zeroRand())

	check.Equal(t, 0, len(out.Winners))
	check.Equal(t, 0, len(out.TieLosers))
}

func TestEnglish_TrailingTieLosersReported(t *testing.T) {
	bids := []Bid{
		{Member: "A", Amount: 20},
		{Member: "B", Amount: 10},
		{Member: "C", Amount: 10},
		{Member: "D", Amount: 10},
		{Member: "E", Amount: 4},
	}

	out := EnglishResolver{}.Resolve(bids, 2, zeroRand())

	assert.Equal(t, 2, len(out.Winners))
	check.Equal(t, "A", out.Winners[0].Member)
	check.Equal(t, 10, out.Winners[1].Price)

	// The two 10-bidders below the cutoff lost the tie; E did not tie.
	assert.Equal(t, 2, len(out.TieLosers))
	winner := out.Winners[1].Member
	for _, loser := range out.TieLosers {
		check.NotEqual(t, winner, loser)
		check.NotEqual(t, "E", loser)
		check.NotEqual(t, "A", loser)
	}
}

func TestEnglish_NoTieLosersWhenAllBidsWin(t *testing.T) {
	bids := []Bid{
		{Member: "A", Amount: 10},
		{Member: "B", Amount: 10},
	}

	out := EnglishResolver{}.Resolve(bids, 2, zeroRand())

	check.Equal(t, 2, len(out.Winners))
	check.Equal(t, 0, len(out.TieLosers))
}
