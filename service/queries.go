package service

import (
	"context"
	"sort"

	"github.com/guildtools/dkpledger/store"
)

// MemberNames returns every registered member name, sorted.
func (s *Service) MemberNames(ctx context.Context) ([]string, error) {
	var names []string
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		members, err := tx.Members()
		if err != nil {
			return err
		}
		names = names[:0]
		for _, m := range members {
			names = append(names, m.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// MemberBalances returns the member's current main and alt balances.
func (s *Service) MemberBalances(ctx context.Context, member string) (main, alt int, err error) {
	err = s.store.WithTx(ctx, func(tx store.Tx) error {
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
		main = log.Balance(member)
		alt = log.AltBalance(member)
		return nil
	})
	return main, alt, err
}

// MemberAttendance returns the member's attendance percentage over the
// trailing window of days.
func (s *Service) MemberAttendance(ctx context.Context, member string, days int) (float64, error) {
	var att float64
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
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
		att = log.AttendancePct(member, days, s.now())
		return nil
	})
	return att, err
}
