package repository

import (
	"context"

	"github.com/servo98/express-invoices/internal/domain/entity"
)

// SettingsRepository define el puerto de persistencia para UserSettings.
type SettingsRepository interface {
	FindByUserID(ctx context.Context, userID string) (*entity.UserSettings, error)
	Upsert(ctx context.Context, settings *entity.UserSettings) error
}
