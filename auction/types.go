package auction

import "time"

// Tag values with special meaning during bid intake and pricing.
const (
	TagAlt     = "ALT"
	TagMain    = "Main"
	TagRecruit = "Recruit"
	TagINA     = "INA"
	TagFNF     = "FNF"
)

// Auction is one sealed batch of bids for one or more identical items. The
// fingerprint is a caller-supplied idempotency key; resubmitting it must not
// create a second auction.
type Auction struct {
	ID            string    `json:"id"`
	Fingerprint   string    `json:"fingerprint"`
	Item          string    `json:"item"`
	Count         int       `json:"count"`
	Time          time.Time `json:"time"`
	Corrected     bool      `json:"corrected,omitempty"`
	ResultMessage string    `json:"result_message,omitempty"`
}

// Submission is a raw incoming bid as handed over by the auction manager
// client: a display name, an amount, and a free-form tag.
type Submission struct {
	Name   string `json:"name"`
	Amount int    `json:"bid"`
	Tag    string `json:"tag,omitempty"`
}

// Bid is a validated, member-resolved bid. Balance and Attendance are
// snapshots of the checked pool taken at processing time; they are stored for
// audit and never recomputed.
type Bid struct {
	AuctionID  string  `json:"auction_id,omitempty"`
	Member     string  `json:"member"`
	Amount     int     `json:"bid"`
	Tag        string  `json:"tag,omitempty"`
	Balance    int     `json:"balance"`
	Attendance float64 `json:"attendance"`
}

// Winner is one awarded item unit: the member, the clearing price they pay,
// and the tag that selects which pool the price debits.
type Winner struct {
	Member string `json:"member"`
	Price  int    `json:"price"`
	Tag    string `json:"tag,omitempty"`
}

// Outcome is what a resolver produces: the winners in award order and the
// names of bidders who tied the cutoff bid but lost the random tie-break.
type Outcome struct {
	Winners   []Winner
	TieLosers []string
}

// Resolver determines winners and clearing prices for one auction's bids.
// Implementations must be deterministic given a deterministic RandSource.
type Resolver interface {
	Resolve(bids []Bid, itemCount int, randSource RandSource) Outcome
}
