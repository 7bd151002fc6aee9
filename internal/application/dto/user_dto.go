package dto

import "time"

// RegisterRequest entrada para registro (auth): credenciales e identidad fiscal opcional.
type RegisterRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	Name          string `json:"name"`
	RFC           string `json:"rfc"`
	RazonSocial   string `json:"razon_social"`
	RegimenFiscal string `json:"regimen_fiscal"`
	CodigoPostal  string `json:"codigo_postal"`
}

// UserResponse salida de un usuario (sin password ni credenciales SMTP).
type UserResponse struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	RFC           string    `json:"rfc"`
	RazonSocial   string    `json:"razon_social"`
	RegimenFiscal string    `json:"regimen_fiscal"`
	CodigoPostal  string    `json:"codigo_postal"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// LoginRequest entrada para login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse salida con token JWT.
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// ── Perfil ────────────────────────────────────────────────────────────────────

// UpdateProfileRequest actualización parcial del perfil: los campos nil no se modifican.
type UpdateProfileRequest struct {
	Name          *string `json:"name"`
	RFC           *string `json:"rfc"`
	RazonSocial   *string `json:"razon_social"`
	RegimenFiscal *string `json:"regimen_fiscal"`
	CodigoPostal  *string `json:"codigo_postal"`

	BankName      *string `json:"bank_name"`
	AccountNumber *string `json:"account_number"`
	RoutingNumber *string `json:"routing_number"`
	AccountType   *string `json:"account_type"`
	BankCurrency  *string `json:"bank_currency"`
	Beneficiary   *string `json:"beneficiary"`

	SMTPHost *string `json:"smtp_host"`
	SMTPPort *int    `json:"smtp_port"`
	SMTPUser *string `json:"smtp_user"`
	SMTPPass *string `json:"smtp_pass"`
}

// ProfileResponse perfil completo del emisor. La contraseña SMTP nunca se devuelve.
type ProfileResponse struct {
	UserResponse

	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	RoutingNumber string `json:"routing_number"`
	AccountType   string `json:"account_type"`
	BankCurrency  string `json:"bank_currency"`
	Beneficiary   string `json:"beneficiary"`

	SMTPHost       string `json:"smtp_host"`
	SMTPPort       int    `json:"smtp_port"`
	SMTPUser       string `json:"smtp_user"`
	SMTPConfigured bool   `json:"smtp_configured"`
}

// ── Ajustes ───────────────────────────────────────────────────────────────────

// UpdateSettingsRequest actualización parcial de los ajustes del recordatorio.
// discord_webhook_url vacío elimina el webhook.
type UpdateSettingsRequest struct {
	DiscordWebhookURL *string `json:"discord_webhook_url"`
	ReminderEnabled   *bool   `json:"reminder_enabled"`
	ReminderDay       *int    `json:"reminder_day"`
}

// SettingsResponse ajustes del recordatorio mensual.
type SettingsResponse struct {
	DiscordWebhookURL string    `json:"discord_webhook_url"`
	ReminderEnabled   bool      `json:"reminder_enabled"`
	ReminderDay       int       `json:"reminder_day"`
	UpdatedAt         time.Time `json:"updated_at"`
}
