package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/guildtools/dkpledger/ledger"
	"github.com/guildtools/dkpledger/registry"
	"github.com/guildtools/dkpledger/store"
)

// Decay removes floor(factor × balance) from the member's main balance.
// Running it twice decays twice; scheduling is the caller's problem.
func (s *Service) Decay(ctx context.Context, member string, factor float64, notes string) error {
	return s.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Member(member); err != nil {
			if isNotFound(err) {
				return &NotFoundError{What: "character " + member}
			}
			return err
		}
		log, err := tx.EventLog()
		if err != nil {
			return err
		}
		return tx.AppendAward(ledger.Decay(log, member, factor, notes, s.now()))
	})
}

// GiveBonus credits the member with a flat award.
func (s *Service) GiveBonus(ctx context.Context, member string, amount int, notes string) error {
	return s.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Member(member); err != nil {
			if isNotFound(err) {
				return &NotFoundError{What: "character " + member}
			}
			return err
		}
		return tx.AppendAward(ledger.Bonus(member, amount, notes, s.now()))
	})
}

// CapMainBalance clamps the member's main balance to cap. Reports whether a
// cap purchase was written.
func (s *Service) CapMainBalance(ctx context.Context, member string, cap int, notes string) (bool, error) {
	applied := false
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		log, err := tx.EventLog()
		if err != nil {
			return err
		}
		p, ok := ledger.CapMain(log, member, cap, notes, s.now())
		if !ok {
			return nil
		}
		applied = true
		return tx.AppendPurchase(p)
	})
	return applied, err
}

// CapAltBalance clamps the member's alt balance to cap.
func (s *Service) CapAltBalance(ctx context.Context, member string, cap int) (bool, error) {
	applied := false
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		log, err := tx.EventLog()
		if err != nil {
			return err
		}
		p, ok := ledger.CapAlt(log, member, cap, s.now())
		if !ok {
			return nil
		}
		applied = true
		return tx.AppendPurchase(p)
	})
	return applied, err
}

// MainChange migrates a player's main from oldMain to newMain: status flips,
// alt links rewired to the new main (with the old main becoming one of its
// alts), balances transferred per the ledger plan, and recent attendance
// re-attributed. Runs as one transaction; a failure leaves nothing half done.
func (s *Service) MainChange(ctx context.Context, oldMain, newMain string) error {
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		oldM, err := tx.Member(oldMain)
		if err != nil {
			if isNotFound(err) {
				return &NotFoundError{What: "character " + oldMain}
			}
			return err
		}
		newM, err := tx.Member(newMain)
		if err != nil {
			if isNotFound(err) {
				return &NotFoundError{What: "character " + newMain}
			}
			return err
		}

		log, err := tx.EventLog()
		if err != nil {
			return err
		}
		plan := ledger.PlanMainChange(log, oldM.Name, newM.Name, s.now())
		for _, a := range plan.Awards {
			if err := tx.AppendAward(a); err != nil {
				return err
			}
		}
		for _, p := range plan.Purchases {
			if err := tx.AppendPurchase(p); err != nil {
				return err
			}
		}

		// Status flips; the inactivity flags follow the player to the
		// new main.
		newM.Status = registry.StatusMain
		newM.Inactive = oldM.Inactive
		newM.LeaveOfAbsence = oldM.LeaveOfAbsence
		oldM.Status = registry.StatusAlt
		oldM.Inactive = false
		oldM.LeaveOfAbsence = false
		if err := tx.PutMember(*newM); err != nil {
			return err
		}
		if err := tx.PutMember(*oldM); err != nil {
			return err
		}

		links, err := tx.AltLinks()
		if err != nil {
			return err
		}
		for _, link := range links {
			if link.Main == oldM.Name {
				link.Main = newM.Name
				if err := tx.PutAltLink(link); err != nil {
					return err
				}
			}
		}
		// The new main stops being anyone's alt and the old main
		// becomes one of its alts.
		if err := tx.DeleteAltLink(newM.Name); err != nil {
			return err
		}
		return tx.PutAltLink(registry.AltLink{Name: oldM.Name, Main: newM.Name})
	})
	if err != nil {
		return err
	}
	s.logger.Info("main change applied",
		zap.String("from", oldMain),
		zap.String("to", newMain))
	return nil
}

// ExportSnapshot serializes the full event log as a CBOR audit snapshot.
func (s *Service) ExportSnapshot(ctx context.Context) ([]byte, error) {
	var data []byte
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		log, err := tx.EventLog()
		if err != nil {
			return err
		}
		data, err = ledger.ExportSnapshot(log, s.now())
		return err
	})
	return data, err
}
