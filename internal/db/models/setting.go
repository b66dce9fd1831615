// Package models contains database model definitions.
package models

// Setting is a named value persisted across restarts, for example the
// client authentication method the identity provider accepted last.
type Setting struct {
	// ID is the unique identifier for the setting.
	ID uint64 `gorm:"primaryKey"`
	// Name is the unique key of the setting (e.g., "oidc.client_auth_method").
	Name string `gorm:"unique;size:191;not null"`
	// Value is the raw setting value.
	Value []byte
}

// TableName specifies the database table name for the Setting model.
func (Setting) TableName() string {
	return "settings"
}

// All lists every model for auto migration.
func All() []interface{} {
	return []interface{}{
		&Setting{},
		&ModeratorPermission{},
		&AdminEvent{},
	}
}
