package models

import "time"

// ModeratorScopeGlobal grants moderation everywhere.
const ModeratorScopeGlobal = "global"

// ModeratorPermission grants a user moderation rights on a scope.
// Any row for a username makes that user a moderator.
type ModeratorPermission struct {
	// ID is the unique identifier for the permission.
	ID uint64 `gorm:"primaryKey"`
	// Username is the identity provider preferred_username, stored lower case.
	Username string `gorm:"size:191;not null;uniqueIndex:idx_moderator_scope"`
	// ScopeType is the kind of scope moderated (e.g., "global", "room").
	ScopeType string `gorm:"size:32;not null;uniqueIndex:idx_moderator_scope"`
	// ScopeID identifies the moderated scope, empty for the global scope.
	ScopeID string `gorm:"size:191;uniqueIndex:idx_moderator_scope"`
	// CreatedAt is the timestamp when the permission was granted (managed by GORM).
	CreatedAt time.Time
}

// TableName specifies the database table name for the ModeratorPermission model.
func (ModeratorPermission) TableName() string {
	return "moderator_permissions"
}
