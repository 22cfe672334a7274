package migrate

import (
	"context"
	"fmt"

	"github.com/ramikart/ramikart-backend/pkg/config"
	"github.com/ramikart/ramikart-backend/pkg/db"
	"github.com/ramikart/ramikart-backend/pkg/db/models"
	"github.com/ramikart/ramikart-backend/pkg/logger"
)

// MaybeRunDev applies the schema automatically when the app runs in dev mode
// with the auto-migrate flag enabled. Production schemas are managed out of
// band.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	logg.Info(logg.WithField(ctx, "env", cfg.App.Env), "running schema auto-migration (dev)")

	if err := client.DB().WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.Conversation{},
		&models.Message{},
	); err != nil {
		return fmt.Errorf("auto-migrating schema: %w", err)
	}

	logg.Info(ctx, "schema auto-migration completed")
	return nil
}
