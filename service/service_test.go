package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/guildtools/dkpledger/auction"
	"github.com/guildtools/dkpledger/ledger"
	"github.com/guildtools/dkpledger/registry"
	"github.com/guildtools/dkpledger/store"
)

var baseTime = time.Date(2024, time.May, 1, 20, 0, 0, 0, time.UTC)

// mockRandSource returns predetermined values for deterministic testing.
type mockRandSource struct {
	values []int
	index  int
}

func (m *mockRandSource) Intn(n int) int {
	if m.index >= len(m.values) {
		return 0
	}
	v := m.values[m.index] % n
	m.index++
	return v
}

func zeroRand() *mockRandSource {
	return &mockRandSource{values: []int{0, 0, 0, 0, 0, 0, 0, 0}}
}

// raiderStore seeds four members with 20 points each from a single raid
// snapshot, plus an alt link Quaff2 -> Quaff.
func raiderStore(t *testing.T) *store.Memory {
	t.Helper()
	st := store.NewMemory()
	err := st.WithTx(context.Background(), func(tx store.Tx) error {
		members := []registry.Member{
			{Name: "Quaff", Status: registry.StatusMain},
			{Name: "Lancegar", Status: registry.StatusMain},
			{Name: "Seped", Status: registry.StatusMain},
			{Name: "Recruitguy", Status: registry.StatusRecruit},
		}
		for _, m := range members {
			if err := tx.PutMember(m); err != nil {
				return err
			}
		}
		if err := tx.PutAltLink(registry.AltLink{Name: "Quaff2", Main: "Quaff"}); err != nil {
			return err
		}
		return tx.AppendAttendance(ledger.AttendanceEvent{
			ID:               "raid-1",
			Value:            20,
			AttendanceWeight: 1,
			Time:             baseTime,
			Present:          []string{"Quaff", "Lancegar", "Seped", "Recruitguy"},
		})
	})
	assert.Nil(t, err)
	return st
}

func newTestService(t *testing.T, st store.Store, cfg Config, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{
		WithRandSource(zeroRand()),
		WithClock(func() time.Time { return baseTime }),
	}, opts...)
	return New(st, nil, cfg, opts...)
}

func mainBalance(t *testing.T, st store.Store, member string) int {
	t.Helper()
	var balance int
	err := st.WithTx(context.Background(), func(tx store.Tx) error {
		log, err := tx.EventLog()
		if err != nil {
			return err
		}
		balance = log.Balance(member)
		return nil
	})
	assert.Nil(t, err)
	return balance
}

func altBalance(t *testing.T, st store.Store, member string) int {
	t.Helper()
	var balance int
	err := st.WithTx(context.Background(), func(tx store.Tx) error {
		log, err := tx.EventLog()
		if err != nil {
			return err
		}
		balance = log.AltBalance(member)
		return nil
	})
	assert.Nil(t, err)
	return balance
}

func TestResolveAuction_VickreyChargesSecondPricePlusOne(t *testing.T) {
	ctx := context.Background()
	st := raiderStore(t)
	svc := newTestService(t, st, Config{})

	result, err := svc.ResolveAuction(ctx, ResolveAuctionRequest{
		Fingerprint: "fp-1",
		Item:        "Test Item",
		Count:       1,
		Time:        baseTime,
		AuctionType: AuctionTypeVickrey,
		Bids: []auction.Submission{
			{Name: "Quaff", Amount: 10},
			{Name: "Lancegar", Amount: 6},
		},
	})

	assert.Nil(t, err)
	check.Equal(t, "Test Item awarded to - Quaff for 7", result.Message)
	check.Equal(t, 0, len(result.Warnings))
	check.Equal(t, 13, mainBalance(t, st, "Quaff"))
	check.Equal(t, 20, mainBalance(t, st, "Lancegar"))
}

func TestResolveAuction_EnglishAltBeatsRecruitAndDebitsAltPool(t *testing.T) {
	ctx := context.Background()
	st := raiderStore(t)
	svc := newTestService(t, st, Config{})

	result, err := svc.ResolveAuction(ctx, ResolveAuctionRequest{
		Fingerprint: "fp-1",
		Item:        "Test Item",
		Count:       1,
		Time:        baseTime,
		AuctionType: AuctionTypeEnglish,
		Bids: []auction.Submission{
			{Name: "Quaff2", Amount: 11},
			{Name: "Recruitguy", Amount: 5, Tag: auction.TagRecruit},
		},
	})

	assert.Nil(t, err)
	check.Equal(t, "Test Item awarded to - Quaff's alt for 11", result.Message)
	check.Equal(t, 0, len(result.Warnings))
	// Only the alt pool pays.
	check.Equal(t, 20, mainBalance(t, st, "Quaff"))
	check.Equal(t, 9, altBalance(t, st, "Quaff"))
}

func TestResolveAuction_NoBidsRots(t *testing.T) {
	ctx := context.Background()
	st := raiderStore(t)
	svc := newTestService(t, st, Config{})

	result, err := svc.ResolveAuction(ctx, ResolveAuctionRequest{
		Fingerprint: "fp-1",
		Item:        "Test Item",
		Count:       1,
		Time:        baseTime,
		AuctionType: AuctionTypeEnglish,
	})

	assert.Nil(t, err)
	check.Equal(t, "Test Item awarded to - Rot", result.Message)

	err = st.WithTx(ctx, func(tx store.Tx) error {
		log, err := tx.EventLog()
		if err != nil {
			return err
		}
		check.Equal(t, 0, len(log.Purchases))
		return nil
	})
	assert.Nil(t, err)
}

func TestResolveAuction_UnknownBidderWarns(t *testing.T) {
	ctx := context.Background()
	st := raiderStore(t)
	svc := newTestService(t, st, Config{})

	result, err := svc.ResolveAuction(ctx, ResolveAuctionRequest{
		Fingerprint: "fp-1",
		Item:        "Test Item",
		Count:       1,
		Time:        baseTime,
		AuctionType: AuctionTypeEnglish,
		Bids: []auction.Submission{
			{Name: "Nobody", Amount: 8},
			{Name: "Quaff", Amount: 5},
		},
	})

	assert.Nil(t, err)
	check.Equal(t, "Test Item awarded to - Quaff for 5 *", result.Message)
	assert.Equal(t, 1, len(result.Warnings))
	check.Equal(t, "Received bid for unknown character: Nobody", result.Warnings[0])
}

func TestResolveAuction_ValidationErrors(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, raiderStore(t), Config{})

	var verr *ValidationError

	_, err := svc.ResolveAuction(ctx, ResolveAuctionRequest{
		Item: "Test Item", Count: 1, AuctionType: AuctionTypeEnglish,
	})
	check.True(t, errors.As(err, &verr))

	_, err = svc.ResolveAuction(ctx, ResolveAuctionRequest{
		Fingerprint: "fp-1", Item: "Test Item", Count: 0, AuctionType: AuctionTypeEnglish,
	})
	check.True(t, errors.As(err, &verr))

	_, err = svc.ResolveAuction(ctx, ResolveAuctionRequest{
		Fingerprint: "fp-1", Item: "Test Item", Count: 1, AuctionType: "dutch",
	})
	check.True(t, errors.As(err, &verr))

	_, err = svc.ResolveAuction(ctx, ResolveAuctionRequest{
		Fingerprint: "fp-1", Item: "Test Item", Count: 1, AuctionType: AuctionTypeEnglish,
		Bids: []auction.Submission{{Name: "Quaff", Amount: -3}},
	})
	check.True(t, errors.As(err, &verr))
}

func TestResolveAuction_FingerprintReject(t *testing.T) {
	ctx := context.Background()
	st := raiderStore(t)
	svc := newTestService(t, st, Config{FingerprintPolicy: FingerprintReject})

	req := ResolveAuctionRequest{
		Fingerprint: "fp-1",
		Item:        "Test Item",
		Count:       1,
		Time:        baseTime,
		AuctionType: AuctionTypeEnglish,
		Bids:        []auction.Submission{{Name: "Quaff", Amount: 5}},
	}
	_, err := svc.ResolveAuction(ctx, req)
	assert.Nil(t, err)

	_, err = svc.ResolveAuction(ctx, req)
	var conflict *ConflictError
	assert.True(t, errors.As(err, &conflict))
	check.Equal(t, "fp-1", conflict.Fingerprint)
	check.Equal(t, 15, mainBalance(t, st, "Quaff"))
}

func TestResolveAuction_FingerprintReplay(t *testing.T) {
	ctx := context.Background()
	st := raiderStore(t)
	svc := newTestService(t, st, Config{FingerprintPolicy: FingerprintReplay})

	req := ResolveAuctionRequest{
		Fingerprint: "fp-1",
		Item:        "Test Item",
		Count:       1,
		Time:        baseTime,
		AuctionType: AuctionTypeEnglish,
		Bids:        []auction.Submission{{Name: "Quaff", Amount: 5}},
	}
	first, err := svc.ResolveAuction(ctx, req)
	assert.Nil(t, err)

	second, err := svc.ResolveAuction(ctx, req)
	assert.Nil(t, err)
	check.Equal(t, first.Message, second.Message)
	// The replay must not charge again.
	check.Equal(t, 15, mainBalance(t, st, "Quaff"))
}

func TestCorrectAuction_ReplacesPurchases(t *testing.T) {
	ctx := context.Background()
	st := raiderStore(t)
	svc := newTestService(t, st, Config{})

	_, err := svc.ResolveAuction(ctx, ResolveAuctionRequest{
		Fingerprint: "fp-1",
		Item:        "Test Item",
		Count:       1,
		Time:        baseTime,
		AuctionType: AuctionTypeEnglish,
		Bids:        []auction.Submission{{Name: "Quaff", Amount: 5}},
	})
	assert.Nil(t, err)
	check.Equal(t, 15, mainBalance(t, st, "Quaff"))

	msg, err := svc.CorrectAuction(ctx, "fp-1", []CorrectedWinner{{Name: "Lancegar", Price: 3}})
	assert.Nil(t, err)
	check.Equal(t, "Auction corrected", msg)
	check.Equal(t, 20, mainBalance(t, st, "Quaff"))
	check.Equal(t, 17, mainBalance(t, st, "Lancegar"))

	err = st.WithTx(ctx, func(tx store.Tx) error {
		a, err := tx.AuctionByFingerprint("fp-1")
		if err != nil {
			return err
		}
		check.True(t, a.Corrected)
		return nil
	})
	assert.Nil(t, err)
}

func TestCorrectAuction_AltSuffixLandsInAltPool(t *testing.T) {
	ctx := context.Background()
	st := raiderStore(t)
	svc := newTestService(t, st, Config{})

	_, err := svc.ResolveAuction(ctx, ResolveAuctionRequest{
		Fingerprint: "fp-1",
		Item:        "Test Item",
		Count:       1,
		Time:        baseTime,
		AuctionType: AuctionTypeEnglish,
		Bids:        []auction.Submission{{Name: "Quaff", Amount: 5}},
	})
	assert.Nil(t, err)

	_, err = svc.CorrectAuction(ctx, "fp-1", []CorrectedWinner{{Name: "Quaff's alt", Price: 4}})
	assert.Nil(t, err)
	check.Equal(t, 20, mainBalance(t, st, "Quaff"))
	check.Equal(t, 16, altBalance(t, st, "Quaff"))
}

func TestCorrectAuction_UnknownAuction(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, raiderStore(t), Config{})

	_, err := svc.CorrectAuction(ctx, "fp-missing", nil)
	var notFound *NotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestCancelAuction_WithinGrace(t *testing.T) {
	ctx := context.Background()
	st := raiderStore(t)
	clock := baseTime
	svc := newTestService(t, st, Config{}, WithClock(func() time.Time { return clock }))

	_, err := svc.ResolveAuction(ctx, ResolveAuctionRequest{
		Fingerprint: "fp-1",
		Item:        "Test Item",
		Count:       1,
		Time:        baseTime,
		AuctionType: AuctionTypeEnglish,
		Bids:        []auction.Submission{{Name: "Quaff", Amount: 5}},
	})
	assert.Nil(t, err)
	check.Equal(t, 15, mainBalance(t, st, "Quaff"))

	clock = baseTime.Add(time.Hour)
	msg, err := svc.CancelAuction(ctx, "fp-1")
	assert.Nil(t, err)
	check.Equal(t, "Auction canceled", msg)
	check.Equal(t, 20, mainBalance(t, st, "Quaff"))

	// The fingerprint is free again.
	_, err = svc.ResolveAuction(ctx, ResolveAuctionRequest{
		Fingerprint: "fp-1",
		Item:        "Test Item",
		Count:       1,
		Time:        baseTime,
		AuctionType: AuctionTypeEnglish,
	})
	check.Nil(t, err)
}

func TestCancelAuction_PastGrace(t *testing.T) {
	ctx := context.Background()
	st := raiderStore(t)
	clock := baseTime
	svc := newTestService(t, st, Config{}, WithClock(func() time.Time { return clock }))

	_, err := svc.ResolveAuction(ctx, ResolveAuctionRequest{
		Fingerprint: "fp-1",
		Item:        "Test Item",
		Count:       1,
		Time:        baseTime,
		AuctionType: AuctionTypeEnglish,
		Bids:        []auction.Submission{{Name: "Quaff", Amount: 5}},
	})
	assert.Nil(t, err)

	clock = baseTime.Add(3 * time.Hour)
	_, err = svc.CancelAuction(ctx, "fp-1")
	var policy *PolicyError
	assert.True(t, errors.As(err, &policy))
	check.Equal(t, 15, mainBalance(t, st, "Quaff"))
}

func TestChargeDKP(t *testing.T) {
	ctx := context.Background()
	st := raiderStore(t)
	svc := newTestService(t, st, Config{})

	msg, err := svc.ChargeDKP(ctx, ChargeRequest{
		Character: "Quaff", Item: "Test Item", Value: 8, Time: baseTime,
	})
	assert.Nil(t, err)
	check.Equal(t, "DKP charge successful", msg)
	check.Equal(t, 12, mainBalance(t, st, "Quaff"))
}

func TestChargeDKP_AltLinkDebitsAltPool(t *testing.T) {
	ctx := context.Background()
	st := raiderStore(t)
	svc := newTestService(t, st, Config{})

	_, err := svc.ChargeDKP(ctx, ChargeRequest{
		Character: "Quaff2", Item: "Test Item", Value: 8, Time: baseTime,
	})
	assert.Nil(t, err)
	check.Equal(t, 20, mainBalance(t, st, "Quaff"))
	check.Equal(t, 12, altBalance(t, st, "Quaff"))
}

func TestChargeDKP_Errors(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, raiderStore(t), Config{})

	_, err := svc.ChargeDKP(ctx, ChargeRequest{Character: "Quaff", Value: -1})
	var verr *ValidationError
	check.True(t, errors.As(err, &verr))

	_, err = svc.ChargeDKP(ctx, ChargeRequest{Character: "Nobody", Value: 3})
	var notFound *NotFoundError
	assert.True(t, errors.As(err, &notFound))
	check.Equal(t, "character Nobody not found", notFound.Error())
}

func TestMainChange_TransfersBothPools(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	preEpoch := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

	err := st.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.PutMember(registry.Member{Name: "Lancegar", Status: registry.StatusMain, Inactive: true}); err != nil {
			return err
		}
		if err := tx.PutMember(registry.Member{Name: "Seped", Status: registry.StatusAlt}); err != nil {
			return err
		}
		if err := tx.PutAltLink(registry.AltLink{Name: "Seped", Main: "Lancegar"}); err != nil {
			return err
		}
		// Lancegar: main 7, alt 8. Seped: main 4, alt 1.
		awards := []ledger.SpecialAward{
			{ID: "w1", Member: "Lancegar", Value: 7, Time: baseTime},
			{ID: "w2", Member: "Seped", Value: 1, Time: baseTime},
			{ID: "w3", Member: "Seped", Value: 3, Time: preEpoch},
		}
		for _, a := range awards {
			if err := tx.AppendAward(a); err != nil {
				return err
			}
		}
		return tx.AppendPurchase(ledger.Purchase{
			ID: "p1", Member: "Lancegar", Value: -1, Time: baseTime, IsAlt: true,
		})
	})
	assert.Nil(t, err)

	svc := newTestService(t, st, Config{})
	assert.Equal(t, 7, mainBalance(t, st, "Lancegar"))
	assert.Equal(t, 8, altBalance(t, st, "Lancegar"))
	assert.Equal(t, 4, mainBalance(t, st, "Seped"))
	assert.Equal(t, 1, altBalance(t, st, "Seped"))

	err = svc.MainChange(ctx, "Lancegar", "Seped")
	assert.Nil(t, err)

	check.Equal(t, 0, mainBalance(t, st, "Lancegar"))
	check.Equal(t, 7, mainBalance(t, st, "Seped"))
	check.Equal(t, 8, altBalance(t, st, "Seped"))

	err = st.WithTx(ctx, func(tx store.Tx) error {
		newMain, err := tx.Member("Seped")
		if err != nil {
			return err
		}
		check.Equal(t, registry.StatusMain, newMain.Status)
		check.True(t, newMain.Inactive)

		oldMain, err := tx.Member("Lancegar")
		if err != nil {
			return err
		}
		check.Equal(t, registry.StatusAlt, oldMain.Status)
		check.False(t, oldMain.Inactive)

		owner, err := tx.AltOwner("Lancegar")
		if err != nil {
			return err
		}
		check.Equal(t, "Seped", owner.Name)

		_, err = tx.AltOwner("Seped")
		check.True(t, errors.Is(err, store.ErrNotFound))
		return nil
	})
	assert.Nil(t, err)
}

func TestDecayAndBonus(t *testing.T) {
	ctx := context.Background()
	st := raiderStore(t)
	svc := newTestService(t, st, Config{})

	err := svc.Decay(ctx, "Quaff", 0.25, "monthly decay")
	assert.Nil(t, err)
	check.Equal(t, 15, mainBalance(t, st, "Quaff"))

	err = svc.GiveBonus(ctx, "Quaff", 3, "recruitment bonus")
	assert.Nil(t, err)
	check.Equal(t, 18, mainBalance(t, st, "Quaff"))

	err = svc.Decay(ctx, "Nobody", 0.25, "")
	var notFound *NotFoundError
	check.True(t, errors.As(err, &notFound))
}

func TestCapBalances(t *testing.T) {
	ctx := context.Background()
	st := raiderStore(t)
	svc := newTestService(t, st, Config{})

	applied, err := svc.CapMainBalance(ctx, "Quaff", 12, "seasonal cap")
	assert.Nil(t, err)
	check.True(t, applied)
	check.Equal(t, 12, mainBalance(t, st, "Quaff"))
	// Alt pool untouched by the main cap.
	check.Equal(t, 20, altBalance(t, st, "Quaff"))

	applied, err = svc.CapMainBalance(ctx, "Quaff", 12, "seasonal cap")
	assert.Nil(t, err)
	check.False(t, applied)

	applied, err = svc.CapAltBalance(ctx, "Quaff", 15)
	assert.Nil(t, err)
	check.True(t, applied)
	check.Equal(t, 15, altBalance(t, st, "Quaff"))
}

func TestGetOrCreateMembers(t *testing.T) {
	ctx := context.Background()
	st := raiderStore(t)
	svc := newTestService(t, st, Config{})

	members, err := svc.GetOrCreateMembers(ctx, []RosterMember{
		{Name: "Quaff"},
		{Name: "newguy", Class: "Cleric"},
	})
	assert.Nil(t, err)
	assert.Equal(t, 2, len(members))
	check.Equal(t, registry.StatusMain, members[0].Status)
	check.Equal(t, "Newguy", members[1].Name)
	check.Equal(t, registry.StatusRecruit, members[1].Status)
	check.Equal(t, "Cleric", members[1].Class)
}

func TestRecordAttendanceEvent_MergesSameTimestamp(t *testing.T) {
	ctx := context.Background()
	st := raiderStore(t)
	svc := newTestService(t, st, Config{})
	at := baseTime.Add(time.Hour)

	err := svc.RecordAttendanceEvent(ctx, 2, 1, at, []string{"Quaff", "Lancegar"}, "")
	assert.Nil(t, err)
	err = svc.RecordAttendanceEvent(ctx, 2, 1, at, []string{"Lancegar", "Seped"}, "")
	assert.Nil(t, err)

	err = st.WithTx(ctx, func(tx store.Tx) error {
		e, err := tx.AttendanceAt(at)
		if err != nil {
			return err
		}
		check.Equal(t, []string{"Quaff", "Lancegar", "Seped"}, e.Present)

		log, err := tx.EventLog()
		if err != nil {
			return err
		}
		check.Equal(t, 2, len(log.Attendance))
		return nil
	})
	assert.Nil(t, err)
}

func TestUpdateRoster(t *testing.T) {
	ctx := context.Background()
	st := raiderStore(t)
	svc := newTestService(t, st, Config{})

	err := svc.UpdateRoster(ctx, []registry.RosterEntry{
		{Name: "Quaff", Rank: "Raider"},
		{Name: "Lancegar", Rank: "Inactive"},
		{Name: "Recruitguy", Rank: "Raider", Note: "alt Quaff"},
	})
	assert.Nil(t, err)

	err = st.WithTx(ctx, func(tx store.Tx) error {
		m, err := tx.Member("Lancegar")
		if err != nil {
			return err
		}
		check.Equal(t, registry.StatusInactive, m.Status)
		check.True(t, m.Inactive)

		owner, err := tx.AltOwner("Recruitguy")
		if err != nil {
			return err
		}
		check.Equal(t, "Quaff", owner.Name)

		// Seped was missing from the dump.
		_, err = tx.Member("Seped")
		check.True(t, errors.Is(err, store.ErrNotFound))
		return nil
	})
	assert.Nil(t, err)
}

func TestTiebreak_MapsUnknownToNotFound(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, raiderStore(t), Config{})

	rankings, err := svc.Tiebreak(ctx, []string{"Quaff", "Lancegar"})
	assert.Nil(t, err)
	check.Equal(t, 2, len(rankings))

	_, err = svc.Tiebreak(ctx, []string{"Quaff", "Nobody"})
	var notFound *NotFoundError
	assert.True(t, errors.As(err, &notFound))
	check.Equal(t, "character Nobody not found", notFound.Error())
}

func TestResolveFlags_Service(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, raiderStore(t), Config{})

	result, err := svc.ResolveFlags(ctx, []string{"Quaff", "Nobody"}, "Flag", 1)
	assert.Nil(t, err)
	check.Equal(t, "Flag: Quaff *", result.Message)
	assert.Equal(t, 1, len(result.Warnings))
	check.Equal(t, "Nobody not found in system.", result.Warnings[0])
}

func TestExportSnapshot_Service(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, raiderStore(t), Config{})

	data, err := svc.ExportSnapshot(ctx)
	assert.Nil(t, err)

	snap, err := ledger.VerifySnapshot(data)
	assert.Nil(t, err)
	check.Equal(t, 1, len(snap.Attendance))
}
