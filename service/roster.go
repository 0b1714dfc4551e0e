package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/guildtools/dkpledger/allocation"
	"github.com/guildtools/dkpledger/ledger"
	"github.com/guildtools/dkpledger/registry"
	"github.com/guildtools/dkpledger/store"
)

// GetOrCreateMembers resolves each roster name to a member, creating unknown
// names as Recruits, and returns the members in input order.
func (s *Service) GetOrCreateMembers(ctx context.Context, chars []RosterMember) ([]registry.Member, error) {
	var out []registry.Member
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		out = out[:0]
		for _, c := range chars {
			name := registry.Canonical(c.Name)
			m, err := tx.Member(name)
			if err == nil {
				out = append(out, *m)
				continue
			}
			if !isNotFound(err) {
				return err
			}
			fresh := registry.Member{
				Name:   name,
				Class:  c.Class,
				Status: registry.StatusRecruit,
			}
			if err := tx.PutMember(fresh); err != nil {
				return err
			}
			out = append(out, fresh)
		}
		return nil
	})
	return out, err
}

// RecordAttendanceEvent appends a participation snapshot awarding value
// points to every present member. If an event already exists at the same
// timestamp the present sets are merged instead of creating a duplicate.
func (s *Service) RecordAttendanceEvent(ctx context.Context, value, attendanceWeight int, t time.Time, present []string, notes string) error {
	return s.store.WithTx(ctx, func(tx store.Tx) error {
		existing, err := tx.AttendanceAt(t)
		if err == nil {
			merged := existing.Present
			have := make(map[string]bool, len(merged))
			for _, name := range merged {
				have[name] = true
			}
			for _, name := range present {
				if !have[name] {
					merged = append(merged, name)
				}
			}
			existing.Present = merged
			return tx.UpdateAttendance(*existing)
		}
		if !isNotFound(err) {
			return err
		}
		return tx.AppendAttendance(ledger.AttendanceEvent{
			ID:               ledger.NewEventID(),
			Value:            value,
			AttendanceWeight: attendanceWeight,
			Time:             t,
			Present:          present,
			Notes:            notes,
		})
	})
}

// UpdateRoster reconciles the member registry against a full guild roster
// dump: statuses and alt links are refreshed from the rank and note columns,
// and members missing from the dump are removed (their alt links cascade).
func (s *Service) UpdateRoster(ctx context.Context, entries []registry.RosterEntry) error {
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		onRoster := make(map[string]bool, len(entries))
		for _, entry := range entries {
			name := registry.Canonical(entry.Name)
			onRoster[name] = true

			m, err := tx.Member(name)
			if err != nil {
				if isNotFound(err) {
					continue
				}
				return err
			}
			standing := registry.Classify(entry)
			m.Status = standing.Status
			m.Inactive = standing.Inactive
			if err := tx.PutMember(*m); err != nil {
				return err
			}
			if standing.AltOf != "" {
				err := tx.PutAltLink(registry.AltLink{Name: name, Main: standing.AltOf})
				if err != nil {
					return err
				}
			}
		}

		members, err := tx.Members()
		if err != nil {
			return err
		}
		for _, m := range members {
			if !onRoster[m.Name] {
				if err := tx.DeleteMember(m.Name); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("roster updated", zap.Int("entries", len(entries)))
	return nil
}

// Tiebreak ranks the given display names by pool balance and 30-day
// attendance for a non-monetary award.
func (s *Service) Tiebreak(ctx context.Context, names []string) ([]allocation.Ranking, error) {
	var out []allocation.Ranking
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		log, err := tx.EventLog()
		if err != nil {
			return err
		}
		rankings, err := allocation.Tiebreak(txDirectory{tx}, log, names, s.now(), s.rand)
		if err != nil {
			var unknown *allocation.UnknownCharacterError
			if errors.As(err, &unknown) {
				return &NotFoundError{What: "character " + unknown.Name}
			}
			return err
		}
		out = rankings
		return nil
	})
	return out, err
}

// ResolveFlags awards flag slots by 30-day attendance.
func (s *Service) ResolveFlags(ctx context.Context, players []string, itemName string, itemCount int) (*allocation.FlagsResult, error) {
	var out allocation.FlagsResult
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		log, err := tx.EventLog()
		if err != nil {
			return err
		}
		out = allocation.ResolveFlags(txDirectory{tx}, log, players, itemName, itemCount, s.now(), s.rand)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
