package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/guildtools/dkpledger/auction"
	"github.com/guildtools/dkpledger/ledger"
	"github.com/guildtools/dkpledger/registry"
	"github.com/guildtools/dkpledger/store"
)

// ResolveAuction creates the auction, validates the bids, determines winners
// with the requested strategy, and writes one purchase per winner - all in a
// single transaction. Any failure rolls the whole thing back, so the
// fingerprint stays free for resubmission.
func (s *Service) ResolveAuction(ctx context.Context, req ResolveAuctionRequest) (*AuctionResult, error) {
	if req.Fingerprint == "" {
		return nil, &ValidationError{Reason: "fingerprint is required"}
	}
	if req.Count < 1 {
		return nil, &ValidationError{Reason: "item count must be at least 1"}
	}
	resolver, ok := auction.ResolverFor(req.AuctionType)
	if !ok {
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown auction type %q", req.AuctionType)}
	}
	for _, sub := range req.Bids {
		if sub.Amount < 0 {
			return nil, &ValidationError{Reason: fmt.Sprintf("negative bid from %s", sub.Name)}
		}
	}

	var result AuctionResult
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		if prior, err := tx.AuctionByFingerprint(req.Fingerprint); err == nil {
			if s.cfg.FingerprintPolicy == FingerprintReplay {
				result = AuctionResult{Message: prior.ResultMessage}
				return nil
			}
			return &ConflictError{Fingerprint: req.Fingerprint}
		} else if !isNotFound(err) {
			return err
		}

		a := auction.Auction{
			ID:          uuid.NewString(),
			Fingerprint: req.Fingerprint,
			Item:        req.Item,
			Count:       req.Count,
			Time:        req.Time,
		}
		if err := tx.CreateAuction(a); err != nil {
			return err
		}

		log, err := tx.EventLog()
		if err != nil {
			return err
		}
		intake := auction.ProcessBids(txDirectory{tx}, log, req.Bids, req.Time)
		for _, b := range intake.Bids {
			b.AuctionID = a.ID
			if err := tx.SaveBid(b); err != nil {
				return err
			}
		}

		outcome := resolver.Resolve(intake.Bids, req.Count, s.rand)
		for _, w := range outcome.Winners {
			err := tx.AppendPurchase(ledger.Purchase{
				ID:        ledger.NewEventID(),
				Member:    w.Member,
				Item:      req.Item,
				Value:     w.Price,
				Time:      req.Time,
				IsAlt:     w.Tag == auction.TagAlt,
				AuctionID: a.ID,
			})
			if err != nil {
				return err
			}
		}

		a.ResultMessage = auction.ResultMessage(req.Item, req.Count, outcome, len(intake.Warnings) > 0)
		if err := tx.UpdateAuction(a); err != nil {
			return err
		}
		result = AuctionResult{Message: a.ResultMessage, Warnings: intake.Warnings}
		return nil
	})
	if err != nil {
		s.logger.Warn("auction resolution failed",
			zap.String("fingerprint", req.Fingerprint),
			zap.Error(err))
		return nil, err
	}
	s.logger.Info("auction resolved",
		zap.String("fingerprint", req.Fingerprint),
		zap.String("item", req.Item),
		zap.String("message", result.Message))
	return &result, nil
}

// CorrectAuction atomically replaces the purchases of a resolved auction with
// the explicit winner set and marks the auction corrected. Winner names go
// through the usual resolver, so alt-suffix and alt-link names land in the
// alt pool.
func (s *Service) CorrectAuction(ctx context.Context, fingerprint string, winners []CorrectedWinner) (string, error) {
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		a, err := tx.AuctionByFingerprint(fingerprint)
		if err != nil {
			if isNotFound(err) {
				return &NotFoundError{What: "auction " + fingerprint}
			}
			return err
		}
		if err := tx.DeletePurchasesByAuction(a.ID); err != nil {
			return err
		}
		for _, w := range winners {
			res, ok := registry.Resolve(txDirectory{tx}, w.Name)
			if !ok {
				return &NotFoundError{What: "character " + w.Name}
			}
			err := tx.AppendPurchase(ledger.Purchase{
				ID:        ledger.NewEventID(),
				Member:    res.Member.Name,
				Item:      a.Item,
				Value:     w.Price,
				Time:      a.Time,
				IsAlt:     res.Alt,
				AuctionID: a.ID,
				Notes:     "Corrected",
			})
			if err != nil {
				return err
			}
		}
		a.Corrected = true
		return tx.UpdateAuction(*a)
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("auction corrected", zap.String("fingerprint", fingerprint))
	return "Auction corrected", nil
}

// CancelAuction removes an auction and every purchase linked to it, restoring
// prior balances. Cancellation is only allowed inside the grace window after
// the auction's creation time.
func (s *Service) CancelAuction(ctx context.Context, fingerprint string) (string, error) {
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		a, err := tx.AuctionByFingerprint(fingerprint)
		if err != nil {
			if isNotFound(err) {
				return &NotFoundError{What: "auction " + fingerprint}
			}
			return err
		}
		if s.now().After(a.Time.Add(s.cfg.CancelGrace)) {
			return &PolicyError{Reason: fmt.Sprintf(
				"auction %s is older than %s and can no longer be canceled", fingerprint, s.cfg.CancelGrace)}
		}
		if err := tx.DeletePurchasesByAuction(a.ID); err != nil {
			return err
		}
		return tx.DeleteAuction(a.ID)
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("auction canceled", zap.String("fingerprint", fingerprint))
	return "Auction canceled", nil
}
