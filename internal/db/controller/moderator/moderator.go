// Package moderator manages moderator permissions and answers the moderator
// lookup of the login flow.
package moderator

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/community-dashboard/community-dashboard/internal/auth"
	"github.com/community-dashboard/community-dashboard/internal/db/models"
)

var (
	// ErrUsernameEmpty is returned when a username is empty.
	ErrUsernameEmpty = errors.New("username cannot be empty")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Store is an auth.RoleLookup on the moderator_permissions table.
type Store struct {
	db *gorm.DB
}

var _ auth.RoleLookup = (*Store)(nil)

// New returns a Store on db.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func normalize(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// IsModerator implements auth.RoleLookup.
func (s *Store) IsModerator(ctx context.Context, username string) (bool, error) {
	if s.db == nil {
		return false, ErrDBNil
	}

	username = normalize(username)
	if username == "" {
		return false, nil
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&models.ModeratorPermission{}).
		Where("username = ?", username).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// Grant gives username moderation on the scope. Granting twice is a no-op.
// An empty scopeType grants the global scope.
func (s *Store) Grant(ctx context.Context, username, scopeType, scopeID string) error {
	if s.db == nil {
		return ErrDBNil
	}

	username = normalize(username)
	if username == "" {
		return ErrUsernameEmpty
	}

	if scopeType == "" {
		scopeType = models.ModeratorScopeGlobal
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&models.ModeratorPermission{
		Username:  username,
		ScopeType: scopeType,
		ScopeID:   scopeID,
	}).Error
}

// Revoke removes every permission of username.
func (s *Store) Revoke(ctx context.Context, username string) error {
	if s.db == nil {
		return ErrDBNil
	}

	username = normalize(username)
	if username == "" {
		return ErrUsernameEmpty
	}

	return s.db.WithContext(ctx).Where("username = ?", username).Delete(&models.ModeratorPermission{}).Error
}

// List returns all permissions ordered by username.
func (s *Store) List(ctx context.Context) ([]models.ModeratorPermission, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	var perms []models.ModeratorPermission
	if err := s.db.WithContext(ctx).Order("username, scope_type, scope_id").Find(&perms).Error; err != nil {
		return nil, err
	}

	return perms, nil
}
