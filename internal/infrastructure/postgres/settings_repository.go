package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/servo98/express-invoices/internal/domain/entity"
	"github.com/servo98/express-invoices/internal/domain/repository"
)

var _ repository.SettingsRepository = (*SettingsRepo)(nil)

// SettingsRepo preferencias por usuario (una fila por usuario).
type SettingsRepo struct {
	q Querier
}

// NewSettingsRepository construye el adaptador. Pasar pool o tx.
func NewSettingsRepository(q Querier) *SettingsRepo {
	return &SettingsRepo{q: q}
}

// FindByUserID devuelve (nil, nil) si el usuario no tiene preferencias guardadas.
func (r *SettingsRepo) FindByUserID(ctx context.Context, userID string) (*entity.UserSettings, error) {
	var s entity.UserSettings
	err := r.q.QueryRow(ctx, `
		SELECT id, user_id, discord_webhook_url, reminder_enabled, reminder_day, created_at, updated_at
		FROM user_settings WHERE user_id = $1`, userID).Scan(
		&s.ID, &s.UserID, &s.DiscordWebhookURL, &s.ReminderEnabled, &s.ReminderDay, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &s, nil
}

// Upsert crea o reemplaza las preferencias del usuario.
func (r *SettingsRepo) Upsert(ctx context.Context, s *entity.UserSettings) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.ReminderDay == 0 {
		s.ReminderDay = entity.DefaultReminderDay
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	err := r.q.QueryRow(ctx, `
		INSERT INTO user_settings (id, user_id, discord_webhook_url, reminder_enabled, reminder_day, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			discord_webhook_url = EXCLUDED.discord_webhook_url,
			reminder_enabled    = EXCLUDED.reminder_enabled,
			reminder_day        = EXCLUDED.reminder_day,
			updated_at          = EXCLUDED.updated_at
		RETURNING id, created_at`,
		s.ID, s.UserID, s.DiscordWebhookURL, s.ReminderEnabled, s.ReminderDay, s.CreatedAt, s.UpdatedAt,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}
