// Package sqlite is the SQLite-backed Store implementation, built on gorm and
// the pure-Go glebarez driver. An empty data directory selects a shared
// in-memory database, which is what the tests use.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/guildtools/dkpledger/auction"
	"github.com/guildtools/dkpledger/ledger"
	"github.com/guildtools/dkpledger/registry"
	"github.com/guildtools/dkpledger/store"
)

// Store is a SQLite-backed store.Store.
type Store struct {
	db *gorm.DB
}

// New opens (and migrates) the database under dataDir. Uses an in-memory
// database if dataDir is empty.
func New(dataDir string) (*Store, error) {
	var db *gorm.DB
	var err error
	if dataDir == "" {
		// cache=shared allows multiple connections to share the same in-memory database
		db, err = gorm.Open(
			sqlite.Open("file::memory:?cache=shared"),
			&gorm.Config{Logger: gormlogger.Discard},
		)
		if err != nil {
			return nil, err
		}
	} else {
		if _, err := os.Stat(dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(dataDir, fs.ModePerm); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		dbPath := filepath.Join(dataDir, "dkp.sqlite")
		// WAL journal mode so readers don't block the resolution writes
		connOpts := "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		db, err = gorm.Open(
			sqlite.Open(fmt.Sprintf("file:%s?%s", dbPath, connOpts)),
			&gorm.Config{Logger: gormlogger.Discard},
		)
		if err != nil {
			return nil, err
		}
	}
	if err := db.AutoMigrate(allModels()...); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

// WithTx implements store.Store on a single gorm transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&sqliteTx{db: tx})
	})
}

type sqliteTx struct {
	db *gorm.DB
}

func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func (tx *sqliteTx) Member(name string) (*registry.Member, error) {
	var row memberRow
	if err := tx.db.First(&row, "name = ?", name).Error; err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("member %s: %w", name, store.ErrNotFound)
		}
		return nil, err
	}
	m := memberFromRow(row)
	return &m, nil
}

func (tx *sqliteTx) Members() ([]registry.Member, error) {
	var rows []memberRow
	if err := tx.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]registry.Member, 0, len(rows))
	for _, row := range rows {
		out = append(out, memberFromRow(row))
	}
	return out, nil
}

func (tx *sqliteTx) PutMember(m registry.Member) error {
	row := memberRow{
		Name:           m.Name,
		Class:          m.Class,
		Status:         string(m.Status),
		Inactive:       m.Inactive,
		LeaveOfAbsence: m.LeaveOfAbsence,
	}
	return tx.db.Save(&row).Error
}

func (tx *sqliteTx) DeleteMember(name string) error {
	if err := tx.db.Delete(&memberRow{}, "name = ?", name).Error; err != nil {
		return err
	}
	return tx.db.Delete(&altLinkRow{}, "main = ?", name).Error
}

func (tx *sqliteTx) AltOwner(name string) (*registry.Member, error) {
	var link altLinkRow
	if err := tx.db.First(&link, "name = ?", name).Error; err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("alt %s: %w", name, store.ErrNotFound)
		}
		return nil, err
	}
	return tx.Member(link.Main)
}

func (tx *sqliteTx) AltLinks() ([]registry.AltLink, error) {
	var rows []altLinkRow
	if err := tx.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]registry.AltLink, 0, len(rows))
	for _, row := range rows {
		out = append(out, registry.AltLink{Name: row.Name, Main: row.Main})
	}
	return out, nil
}

func (tx *sqliteTx) PutAltLink(link registry.AltLink) error {
	return tx.db.Save(&altLinkRow{Name: link.Name, Main: link.Main}).Error
}

func (tx *sqliteTx) DeleteAltLink(name string) error {
	return tx.db.Delete(&altLinkRow{}, "name = ?", name).Error
}

func (tx *sqliteTx) EventLog() (*ledger.Log, error) {
	var attRows []attendanceRow
	if err := tx.db.Order("time").Find(&attRows).Error; err != nil {
		return nil, err
	}
	var presRows []attendancePresenceRow
	if err := tx.db.Find(&presRows).Error; err != nil {
		return nil, err
	}
	present := make(map[string][]string)
	for _, p := range presRows {
		present[p.EventID] = append(present[p.EventID], p.Member)
	}

	log := &ledger.Log{}
	for _, row := range attRows {
		log.Attendance = append(log.Attendance, ledger.AttendanceEvent{
			ID:               row.ID,
			Value:            row.Value,
			AttendanceWeight: row.AttendanceWeight,
			Time:             row.Time,
			Present:          present[row.ID],
			Notes:            row.Notes,
		})
	}

	var awdRows []awardRow
	if err := tx.db.Order("time").Find(&awdRows).Error; err != nil {
		return nil, err
	}
	for _, row := range awdRows {
		log.Awards = append(log.Awards, ledger.SpecialAward{
			ID:              row.ID,
			Member:          row.Member,
			Value:           row.Value,
			AttendanceValue: row.AttendanceValue,
			Time:            row.Time,
			Notes:           row.Notes,
		})
	}

	var purRows []purchaseRow
	if err := tx.db.Order("time").Find(&purRows).Error; err != nil {
		return nil, err
	}
	for _, row := range purRows {
		log.Purchases = append(log.Purchases, ledger.Purchase{
			ID:        row.ID,
			Member:    row.Member,
			Item:      row.Item,
			Value:     row.Value,
			Time:      row.Time,
			IsAlt:     row.IsAlt,
			AuctionID: row.AuctionID,
			Notes:     row.Notes,
		})
	}
	return log, nil
}

func (tx *sqliteTx) AppendAttendance(e ledger.AttendanceEvent) error {
	row := attendanceRow{
		ID:               e.ID,
		Value:            e.Value,
		AttendanceWeight: e.AttendanceWeight,
		Time:             e.Time,
		Notes:            e.Notes,
	}
	if err := tx.db.Create(&row).Error; err != nil {
		return err
	}
	return tx.savePresence(e.ID, e.Present)
}

func (tx *sqliteTx) savePresence(eventID string, present []string) error {
	for _, name := range present {
		p := attendancePresenceRow{EventID: eventID, Member: name}
		if err := tx.db.Save(&p).Error; err != nil {
			return err
		}
	}
	return nil
}

func (tx *sqliteTx) AttendanceAt(t time.Time) (*ledger.AttendanceEvent, error) {
	var row attendanceRow
	if err := tx.db.First(&row, "time = ?", t).Error; err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("attendance event at %s: %w", t, store.ErrNotFound)
		}
		return nil, err
	}
	var presRows []attendancePresenceRow
	if err := tx.db.Find(&presRows, "event_id = ?", row.ID).Error; err != nil {
		return nil, err
	}
	e := ledger.AttendanceEvent{
		ID:               row.ID,
		Value:            row.Value,
		AttendanceWeight: row.AttendanceWeight,
		Time:             row.Time,
		Notes:            row.Notes,
	}
	for _, p := range presRows {
		e.Present = append(e.Present, p.Member)
	}
	return &e, nil
}

func (tx *sqliteTx) UpdateAttendance(e ledger.AttendanceEvent) error {
	row := attendanceRow{
		ID:               e.ID,
		Value:            e.Value,
		AttendanceWeight: e.AttendanceWeight,
		Time:             e.Time,
		Notes:            e.Notes,
	}
	if err := tx.db.Save(&row).Error; err != nil {
		return err
	}
	if err := tx.db.Delete(&attendancePresenceRow{}, "event_id = ?", e.ID).Error; err != nil {
		return err
	}
	return tx.savePresence(e.ID, e.Present)
}

func (tx *sqliteTx) AppendAward(a ledger.SpecialAward) error {
	return tx.db.Create(&awardRow{
		ID:              a.ID,
		Member:          a.Member,
		Value:           a.Value,
		AttendanceValue: a.AttendanceValue,
		Time:            a.Time,
		Notes:           a.Notes,
	}).Error
}

func (tx *sqliteTx) AppendPurchase(p ledger.Purchase) error {
	return tx.db.Create(&purchaseRow{
		ID:        p.ID,
		Member:    p.Member,
		Item:      p.Item,
		Value:     p.Value,
		Time:      p.Time,
		IsAlt:     p.IsAlt,
		AuctionID: p.AuctionID,
		Notes:     p.Notes,
	}).Error
}

func (tx *sqliteTx) DeletePurchasesByAuction(auctionID string) error {
	return tx.db.Delete(&purchaseRow{}, "auction_id = ?", auctionID).Error
}

func (tx *sqliteTx) AuctionByFingerprint(fingerprint string) (*auction.Auction, error) {
	var row auctionRow
	if err := tx.db.First(&row, "fingerprint = ?", fingerprint).Error; err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("auction %s: %w", fingerprint, store.ErrNotFound)
		}
		return nil, err
	}
	a := auctionFromRow(row)
	return &a, nil
}

func (tx *sqliteTx) CreateAuction(a auction.Auction) error {
	var count int64
	if err := tx.db.Model(&auctionRow{}).Where("fingerprint = ?", a.Fingerprint).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("auction %s: %w", a.Fingerprint, store.ErrConflict)
	}
	return tx.db.Create(&auctionRow{
		ID:            a.ID,
		Fingerprint:   a.Fingerprint,
		Item:          a.Item,
		Count:         a.Count,
		Time:          a.Time,
		Corrected:     a.Corrected,
		ResultMessage: a.ResultMessage,
	}).Error
}

func (tx *sqliteTx) UpdateAuction(a auction.Auction) error {
	return tx.db.Save(&auctionRow{
		ID:            a.ID,
		Fingerprint:   a.Fingerprint,
		Item:          a.Item,
		Count:         a.Count,
		Time:          a.Time,
		Corrected:     a.Corrected,
		ResultMessage: a.ResultMessage,
	}).Error
}

func (tx *sqliteTx) DeleteAuction(id string) error {
	if err := tx.db.Delete(&auctionRow{}, "id = ?", id).Error; err != nil {
		return err
	}
	return tx.db.Delete(&bidRow{}, "auction_id = ?", id).Error
}

func (tx *sqliteTx) SaveBid(b auction.Bid) error {
	return tx.db.Create(&bidRow{
		AuctionID:  b.AuctionID,
		Member:     b.Member,
		Amount:     b.Amount,
		Tag:        b.Tag,
		Balance:    b.Balance,
		Attendance: b.Attendance,
	}).Error
}

func (tx *sqliteTx) BidsForAuction(auctionID string) ([]auction.Bid, error) {
	var rows []bidRow
	if err := tx.db.Order("id").Find(&rows, "auction_id = ?", auctionID).Error; err != nil {
		return nil, err
	}
	out := make([]auction.Bid, 0, len(rows))
	for _, row := range rows {
		out = append(out, auction.Bid{
			AuctionID:  row.AuctionID,
			Member:     row.Member,
			Amount:     row.Amount,
			Tag:        row.Tag,
			Balance:    row.Balance,
			Attendance: row.Attendance,
		})
	}
	return out, nil
}

func memberFromRow(row memberRow) registry.Member {
	return registry.Member{
		Name:           row.Name,
		Class:          row.Class,
		Status:         registry.Status(row.Status),
		Inactive:       row.Inactive,
		LeaveOfAbsence: row.LeaveOfAbsence,
	}
}

func auctionFromRow(row auctionRow) auction.Auction {
	return auction.Auction{
		ID:            row.ID,
		Fingerprint:   row.Fingerprint,
		Item:          row.Item,
		Count:         row.Count,
		Time:          row.Time,
		Corrected:     row.Corrected,
		ResultMessage: row.ResultMessage,
	}
}
