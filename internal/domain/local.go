package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Subscription tiers of the Toggl workspace. The free tier has no native
// task resource, so tasks are mirrored as name-encoded projects.
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// Partner is a local client/partner record. TogglClientID links it to the
// remote client; nil means not yet synced.
//
// Active has no column default on purpose: gorm skips zero-valued fields
// carrying a default tag on insert, which would make an inactive record
// unrepresentable at creation. Writers set it explicitly.
type Partner struct {
	ID            uint   `gorm:"primaryKey"`
	Name          string `gorm:"not null"`
	Active        bool
	TogglClientID *int64 `gorm:"index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Project is a local project record.
type Project struct {
	ID                uint   `gorm:"primaryKey"`
	Name              string `gorm:"not null"`
	Active            bool
	PartnerID         *uint
	Partner           *Partner
	AnalyticAccountID uint
	TogglProjectID    *int64 `gorm:"index"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Task is a local task record. Tasks in a folded kanban stage are treated
// as completed and excluded from sync.
type Task struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"not null"`
	Active      bool
	ProjectID   uint `gorm:"index;not null"`
	StageFolded bool
	TogglTaskID *int64 `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TimesheetLine is a local timesheet entry. TogglEntryID is unique and
// immutable once set; lines are created by the importer and never deleted
// by the connector.
type TimesheetLine struct {
	ID                uint   `gorm:"primaryKey"`
	Description       string `gorm:"not null"`
	Date              string `gorm:"size:10;not null"` // YYYY-MM-DD
	Hours             float64
	ProjectID         uint
	TaskID            *uint
	AnalyticAccountID uint
	EmployeeID        uint  `gorm:"index"`
	TogglEntryID      int64 `gorm:"uniqueIndex"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Employee links a local user to a Toggl account by email. LastFetch is
// the date of the latest completed time-entry pull, used to pre-fill the
// next manual run.
type Employee struct {
	ID            uint   `gorm:"primaryKey"`
	Name          string `gorm:"not null"`
	UserID        uint   `gorm:"index"`
	TogglUsername string // Toggl login email
	LastFetch     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Connector is the per-tenant configuration record. One per company; the
// orchestrator advances LastRun after each successful incremental push.
type Connector struct {
	ID               uint   `gorm:"primaryKey"`
	Name             string `gorm:"not null"`
	APIToken         string `gorm:"not null"`
	WorkspaceID      int64  `gorm:"not null"`
	DefaultProjectID uint
	SkipProjectIDs   IDList `gorm:"type:text"`
	Tier             Tier   `gorm:"size:16;default:premium"`
	LastRun          *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IDList is a list of local record ids stored as a JSON text column.
type IDList []uint

// Value implements driver.Valuer.
func (l IDList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *IDList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported type for IDList: %T", value)
	}
	if len(b) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(b, l)
}

// Contains reports whether id is in the list.
func (l IDList) Contains(id uint) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}
