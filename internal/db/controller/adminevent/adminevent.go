// Package adminevent persists security audit events for the admin pages.
package adminevent

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/community-dashboard/community-dashboard/internal/auth"
	"github.com/community-dashboard/community-dashboard/internal/db/models"
)

// DefaultListLimit bounds List when no limit is given.
const DefaultListLimit = 50

// ErrDBNil is returned when the database connection is nil.
var ErrDBNil = errors.New("database connection is nil")

// Sink is an auth.AuditSink on the admin_events table.
type Sink struct {
	db  *gorm.DB
	now func() time.Time
}

var _ auth.AuditSink = (*Sink)(nil)

// New returns a Sink on db.
func New(db *gorm.DB) *Sink {
	return &Sink{db: db, now: time.Now}
}

// Record implements auth.AuditSink.
func (s *Sink) Record(ctx context.Context, ev auth.Event) error {
	if s.db == nil {
		return ErrDBNil
	}

	at := ev.At
	if at.IsZero() {
		at = s.now()
	}

	return s.db.WithContext(ctx).Create(&models.AdminEvent{
		Kind:      string(ev.Kind),
		Username:  ev.Username,
		BrowserID: ev.BrowserID,
		Detail:    ev.Detail,
		CreatedAt: at.UTC(),
	}).Error
}

// List returns the newest events first. A limit <= 0 uses DefaultListLimit.
func (s *Sink) List(ctx context.Context, limit int) ([]models.AdminEvent, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	if limit <= 0 {
		limit = DefaultListLimit
	}

	var events []models.AdminEvent
	err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&events).Error
	if err != nil {
		return nil, err
	}

	return events, nil
}
