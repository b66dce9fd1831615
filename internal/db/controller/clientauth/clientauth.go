// Package clientauth remembers the accepted OIDC client authentication method
// in the settings table, so the negotiation survives restarts.
package clientauth

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/community-dashboard/community-dashboard/internal/auth"
	"github.com/community-dashboard/community-dashboard/internal/db/controller/setting"
)

// SettingName is the settings key holding the method.
const SettingName = "oidc.client_auth_method"

// Memory is an auth.MethodMemory on the settings table.
type Memory struct {
	db *gorm.DB
}

var _ auth.MethodMemory = (*Memory)(nil)

// New returns a Memory on db.
func New(db *gorm.DB) *Memory {
	return &Memory{db: db}
}

// Preferred implements auth.MethodMemory. A missing row means nothing is remembered.
func (m *Memory) Preferred(ctx context.Context) (auth.ClientAuthMethod, error) {
	value, err := setting.Get(ctx, m.db, SettingName)
	if errors.Is(err, setting.ErrSettingNotFound) {
		return auth.ClientAuthAuto, nil
	}
	if err != nil {
		return auth.ClientAuthAuto, err
	}

	return auth.ParseClientAuthMethod(string(value)), nil
}

// Remember implements auth.MethodMemory. Remembering auto forgets the method.
func (m *Memory) Remember(ctx context.Context, method auth.ClientAuthMethod) error {
	if method == auth.ClientAuthAuto {
		err := setting.Delete(ctx, m.db, SettingName)
		if errors.Is(err, setting.ErrSettingNotFound) {
			return nil
		}

		return err
	}

	return setting.Set(ctx, m.db, SettingName, []byte(method))
}
