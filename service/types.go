package service

import (
	"time"

	"github.com/guildtools/dkpledger/auction"
)

// Auction type names accepted by ResolveAuction.
const (
	AuctionTypeEnglish = "english"
	AuctionTypeVickrey = "vickrey"
)

// FingerprintPolicy decides what happens when a fingerprint that already
// resolved is submitted again.
type FingerprintPolicy string

const (
	// FingerprintReject returns a ConflictError on resubmission.
	FingerprintReject FingerprintPolicy = "reject"
	// FingerprintReplay returns the stored result of the prior resolution
	// without touching the ledger.
	FingerprintReplay FingerprintPolicy = "replay"
)

// ResolveAuctionRequest is one sealed batch of bids for an item.
type ResolveAuctionRequest struct {
	Fingerprint string               `json:"fingerprint"`
	Item        string               `json:"item_name"`
	Count       int                  `json:"item_count"`
	Time        time.Time            `json:"time"`
	AuctionType string               `json:"auction_type"`
	Bids        []auction.Submission `json:"bids"`
}

// AuctionResult is the announcement message plus any intake warnings.
type AuctionResult struct {
	Message  string   `json:"message"`
	Warnings []string `json:"warnings,omitempty"`
}

// CorrectedWinner is one explicit winner of an auction correction, at a
// caller-specified price.
type CorrectedWinner struct {
	Name  string `json:"name"`
	Price int    `json:"bid"`
}

// ChargeRequest debits a member for an item outside an auction.
type ChargeRequest struct {
	Character string    `json:"character"`
	Item      string    `json:"item_name"`
	Value     int       `json:"value"`
	Time      time.Time `json:"time"`
	Notes     string    `json:"notes,omitempty"`
	IsAlt     bool      `json:"is_alt,omitempty"`
}

// RosterMember is one present character as parsed from a roster dump by the
// ingestion collaborator.
type RosterMember struct {
	Name  string `json:"name"`
	Class string `json:"class_tag,omitempty"`
}
