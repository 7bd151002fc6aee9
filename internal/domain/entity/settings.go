package entity

import "time"

// UserSettings preferencias del usuario relevantes para el recordatorio mensual.
type UserSettings struct {
	ID                string
	UserID            string
	DiscordWebhookURL string
	ReminderEnabled   bool
	ReminderDay       int // día del mes (1-28) en que se envía el recordatorio
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// DefaultReminderDay día de recordatorio para usuarios nuevos.
const DefaultReminderDay = 1

// MaxReminderDay último día permitido; existe en todos los meses.
const MaxReminderDay = 28

// CanRemind indica si hay webhook configurado y el recordatorio está activo.
func (s *UserSettings) CanRemind() bool {
	return s != nil && s.ReminderEnabled && s.DiscordWebhookURL != ""
}
