package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/guildtools/dkpledger/auction"
	"github.com/guildtools/dkpledger/ledger"
	"github.com/guildtools/dkpledger/registry"
)

// Memory is an in-process Store. Transactions run against a deep copy of the
// state and swap it in on success, so a failed transaction leaves the prior
// state untouched. Suitable for tests and single-process deployments.
type Memory struct {
	mu    sync.Mutex
	state memoryState
}

type memoryState struct {
	members    map[string]registry.Member
	altLinks   map[string]registry.AltLink
	attendance []ledger.AttendanceEvent
	awards     []ledger.SpecialAward
	purchases  []ledger.Purchase
	auctions   map[string]auction.Auction // keyed by fingerprint
	bids       []auction.Bid
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{state: memoryState{
		members:  make(map[string]registry.Member),
		altLinks: make(map[string]registry.AltLink),
		auctions: make(map[string]auction.Auction),
	}}
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		members:    make(map[string]registry.Member, len(s.members)),
		altLinks:   make(map[string]registry.AltLink, len(s.altLinks)),
		attendance: make([]ledger.AttendanceEvent, len(s.attendance)),
		awards:     append([]ledger.SpecialAward(nil), s.awards...),
		purchases:  append([]ledger.Purchase(nil), s.purchases...),
		auctions:   make(map[string]auction.Auction, len(s.auctions)),
		bids:       append([]auction.Bid(nil), s.bids...),
	}
	for k, v := range s.members {
		out.members[k] = v
	}
	for k, v := range s.altLinks {
		out.altLinks[k] = v
	}
	for k, v := range s.auctions {
		out.auctions[k] = v
	}
	for i, e := range s.attendance {
		e.Present = append([]string(nil), e.Present...)
		out.attendance[i] = e
	}
	return out
}

// WithTx implements Store.
func (s *Memory) WithTx(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	if err := fn(&memoryTx{state: &working}); err != nil {
		return err
	}
	s.state = working
	return nil
}

type memoryTx struct {
	state *memoryState
}

func (tx *memoryTx) Member(name string) (*registry.Member, error) {
	m, ok := tx.state.members[name]
	if !ok {
		return nil, fmt.Errorf("member %s: %w", name, ErrNotFound)
	}
	return &m, nil
}

func (tx *memoryTx) Members() ([]registry.Member, error) {
	out := make([]registry.Member, 0, len(tx.state.members))
	for _, m := range tx.state.members {
		out = append(out, m)
	}
	return out, nil
}

func (tx *memoryTx) PutMember(m registry.Member) error {
	tx.state.members[m.Name] = m
	return nil
}

func (tx *memoryTx) DeleteMember(name string) error {
	delete(tx.state.members, name)
	for link, l := range tx.state.altLinks {
		if l.Main == name {
			delete(tx.state.altLinks, link)
		}
	}
	return nil
}

func (tx *memoryTx) AltOwner(name string) (*registry.Member, error) {
	link, ok := tx.state.altLinks[name]
	if !ok {
		return nil, fmt.Errorf("alt %s: %w", name, ErrNotFound)
	}
	return tx.Member(link.Main)
}

func (tx *memoryTx) AltLinks() ([]registry.AltLink, error) {
	out := make([]registry.AltLink, 0, len(tx.state.altLinks))
	for _, l := range tx.state.altLinks {
		out = append(out, l)
	}
	return out, nil
}

func (tx *memoryTx) PutAltLink(link registry.AltLink) error {
	tx.state.altLinks[link.Name] = link
	return nil
}

func (tx *memoryTx) DeleteAltLink(name string) error {
	delete(tx.state.altLinks, name)
	return nil
}

func (tx *memoryTx) EventLog() (*ledger.Log, error) {
	return &ledger.Log{
		Attendance: tx.state.attendance,
		Awards:     tx.state.awards,
		Purchases:  tx.state.purchases,
	}, nil
}

func (tx *memoryTx) AppendAttendance(e ledger.AttendanceEvent) error {
	tx.state.attendance = append(tx.state.attendance, e)
	return nil
}

func (tx *memoryTx) AttendanceAt(t time.Time) (*ledger.AttendanceEvent, error) {
	for i := range tx.state.attendance {
		if tx.state.attendance[i].Time.Equal(t) {
			e := tx.state.attendance[i]
			return &e, nil
		}
	}
	return nil, fmt.Errorf("attendance event at %s: %w", t, ErrNotFound)
}

func (tx *memoryTx) UpdateAttendance(e ledger.AttendanceEvent) error {
	for i := range tx.state.attendance {
		if tx.state.attendance[i].ID == e.ID {
			tx.state.attendance[i] = e
			return nil
		}
	}
	return fmt.Errorf("attendance event %s: %w", e.ID, ErrNotFound)
}

func (tx *memoryTx) AppendAward(a ledger.SpecialAward) error {
	tx.state.awards = append(tx.state.awards, a)
	return nil
}

func (tx *memoryTx) AppendPurchase(p ledger.Purchase) error {
	tx.state.purchases = append(tx.state.purchases, p)
	return nil
}

func (tx *memoryTx) DeletePurchasesByAuction(auctionID string) error {
	kept := tx.state.purchases[:0]
	for _, p := range tx.state.purchases {
		if p.AuctionID != auctionID {
			kept = append(kept, p)
		}
	}
	tx.state.purchases = kept
	return nil
}

func (tx *memoryTx) AuctionByFingerprint(fingerprint string) (*auction.Auction, error) {
	a, ok := tx.state.auctions[fingerprint]
	if !ok {
		return nil, fmt.Errorf("auction %s: %w", fingerprint, ErrNotFound)
	}
	return &a, nil
}

func (tx *memoryTx) CreateAuction(a auction.Auction) error {
	if _, ok := tx.state.auctions[a.Fingerprint]; ok {
		return fmt.Errorf("auction %s: %w", a.Fingerprint, ErrConflict)
	}
	tx.state.auctions[a.Fingerprint] = a
	return nil
}

func (tx *memoryTx) UpdateAuction(a auction.Auction) error {
	if _, ok := tx.state.auctions[a.Fingerprint]; !ok {
		return fmt.Errorf("auction %s: %w", a.Fingerprint, ErrNotFound)
	}
	tx.state.auctions[a.Fingerprint] = a
	return nil
}

func (tx *memoryTx) DeleteAuction(id string) error {
	for fp, a := range tx.state.auctions {
		if a.ID == id {
			delete(tx.state.auctions, fp)
		}
	}
	kept := tx.state.bids[:0]
	for _, b := range tx.state.bids {
		if b.AuctionID != id {
			kept = append(kept, b)
		}
	}
	tx.state.bids = kept
	return nil
}

func (tx *memoryTx) SaveBid(b auction.Bid) error {
	tx.state.bids = append(tx.state.bids, b)
	return nil
}

func (tx *memoryTx) BidsForAuction(auctionID string) ([]auction.Bid, error) {
	var out []auction.Bid
	for _, b := range tx.state.bids {
		if b.AuctionID == auctionID {
			out = append(out, b)
		}
	}
	return out, nil
}
