package migrate

import (
	"context"
	"fmt"

	"github.com/JhnOkall/avenuefashion-backend/pkg/config"
	"github.com/JhnOkall/avenuefashion-backend/pkg/db"
	"github.com/JhnOkall/avenuefashion-backend/pkg/logger"
)

// MaybeRunDev applies pending migrations on boot when AVENUE_AUTO_MIGRATE is
// set. Restricted to non-production; production runs cmd/migrate explicitly.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if cfg == nil || !cfg.Flags.AutoMigrate {
		return nil
	}
	if cfg.App.IsProd() {
		return fmt.Errorf("auto-migrate is disabled in production")
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("getting sql db handle: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "running dev auto-migrations")
	}
	return Up(ctx, sqlDB, DefaultDir)
}
