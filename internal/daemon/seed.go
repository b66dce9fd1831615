package daemon

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/community-dashboard/community-dashboard/internal/config"
	"github.com/community-dashboard/community-dashboard/internal/db/controller/moderator"
	"github.com/community-dashboard/community-dashboard/internal/db/models"
)

// seed grants the global moderator scope to every configured moderator.
// Existing grants are kept.
func seed(ctx context.Context, cfg *config.Config, store *moderator.Store) error {
	for _, username := range cfg.Auth.Moderators {
		if err := store.Grant(ctx, username, models.ModeratorScopeGlobal, ""); err != nil {
			return err
		}

		log.Debug().Str("username", username).Msg("moderator seeded")
	}

	return nil
}
