// Package store defines the persistence surface for the registry, the event
// ledger, and auctions, along with an in-memory implementation. Every service
// operation runs as one transaction: partial writes are never visible and a
// failed auction resolution leaves no trace, freeing its fingerprint.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/guildtools/dkpledger/auction"
	"github.com/guildtools/dkpledger/ledger"
	"github.com/guildtools/dkpledger/registry"
)

var (
	// ErrNotFound is returned when a looked-up record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a unique constraint would be violated,
	// e.g. creating an auction with an existing fingerprint.
	ErrConflict = errors.New("record already exists")
)

// Store opens transactions over the persisted state.
type Store interface {
	// WithTx runs fn inside a transaction. If fn returns an error every
	// write made through the Tx is rolled back.
	WithTx(ctx context.Context, fn func(Tx) error) error
}

// Tx is one read-then-write transaction over the full data set.
type Tx interface {
	// Members.
	Member(name string) (*registry.Member, error)
	Members() ([]registry.Member, error)
	PutMember(m registry.Member) error
	DeleteMember(name string) error

	// Alt links.
	AltOwner(name string) (*registry.Member, error)
	AltLinks() ([]registry.AltLink, error)
	PutAltLink(link registry.AltLink) error
	DeleteAltLink(name string) error

	// Event ledger. EventLog returns the complete history; aggregation is
	// pure computation in the ledger package.
	EventLog() (*ledger.Log, error)
	AppendAttendance(e ledger.AttendanceEvent) error
	AttendanceAt(t time.Time) (*ledger.AttendanceEvent, error)
	UpdateAttendance(e ledger.AttendanceEvent) error
	AppendAward(a ledger.SpecialAward) error
	AppendPurchase(p ledger.Purchase) error
	DeletePurchasesByAuction(auctionID string) error

	// Auctions.
	AuctionByFingerprint(fingerprint string) (*auction.Auction, error)
	CreateAuction(a auction.Auction) error
	UpdateAuction(a auction.Auction) error
	DeleteAuction(id string) error
	SaveBid(b auction.Bid) error
	BidsForAuction(auctionID string) ([]auction.Bid, error)
}
