package sqlite

import "time"

type memberRow struct {
	Name           string `gorm:"primaryKey"`
	Class          string
	Status         string
	Inactive       bool
	LeaveOfAbsence bool
}

func (memberRow) TableName() string { return "members" }

type altLinkRow struct {
	Name string `gorm:"primaryKey"`
	Main string `gorm:"index"`
}

func (altLinkRow) TableName() string { return "alt_links" }

type attendanceRow struct {
	ID               string `gorm:"primaryKey"`
	Value            int
	AttendanceWeight int
	Time             time.Time `gorm:"index"`
	Notes            string
}

func (attendanceRow) TableName() string { return "attendance_events" }

// attendancePresenceRow is the membership join table for attendance events.
type attendancePresenceRow struct {
	EventID string `gorm:"primaryKey;index"`
	Member  string `gorm:"primaryKey;index"`
}

func (attendancePresenceRow) TableName() string { return "attendance_presence" }

type awardRow struct {
	ID              string `gorm:"primaryKey"`
	Member          string `gorm:"index"`
	Value           int
	AttendanceValue int
	Time            time.Time `gorm:"index"`
	Notes           string
}

func (awardRow) TableName() string { return "special_awards" }

type purchaseRow struct {
	ID        string `gorm:"primaryKey"`
	Member    string `gorm:"index"`
	Item      string
	Value     int
	Time      time.Time
	IsAlt     bool
	AuctionID string `gorm:"index"`
	Notes     string
}

func (purchaseRow) TableName() string { return "purchases" }

type auctionRow struct {
	ID            string `gorm:"primaryKey"`
	Fingerprint   string `gorm:"uniqueIndex"`
	Item          string
	Count         int
	Time          time.Time
	Corrected     bool
	ResultMessage string
}

func (auctionRow) TableName() string { return "auctions" }

type bidRow struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	AuctionID  string `gorm:"index"`
	Member     string
	Amount     int
	Tag        string
	Balance    int
	Attendance float64
}

func (bidRow) TableName() string { return "auction_bids" }

func allModels() []any {
	return []any{
		&memberRow{},
		&altLinkRow{},
		&attendanceRow{},
		&attendancePresenceRow{},
		&awardRow{},
		&purchaseRow{},
		&auctionRow{},
		&bidRow{},
	}
}
