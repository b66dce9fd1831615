package models

import "time"

// AdminEvent is one entry of the security audit log.
type AdminEvent struct {
	// ID is the unique identifier for the event.
	ID uint64 `gorm:"primaryKey"`
	// Kind is the event kind (e.g., "state_bypass", "login_failed").
	Kind string `gorm:"size:32;not null;index"`
	// Username is the affected user, empty when unknown.
	Username string `gorm:"size:191;index"`
	// BrowserID is the browser context the event happened in.
	BrowserID string `gorm:"size:36"`
	// Detail is a human readable description. It never holds secrets.
	Detail string `gorm:"type:text"`
	// CreatedAt is the timestamp of the event.
	CreatedAt time.Time `gorm:"index"`
}

// TableName specifies the database table name for the AdminEvent model.
func (AdminEvent) TableName() string {
	return "admin_events"
}
