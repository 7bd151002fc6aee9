// Package usecase contiene los casos de uso del perfil del emisor y sus ajustes.
package usecase

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/servo98/express-invoices/internal/application/auth"
	"github.com/servo98/express-invoices/internal/application/dto"
	"github.com/servo98/express-invoices/internal/domain"
	"github.com/servo98/express-invoices/internal/domain/entity"
	"github.com/servo98/express-invoices/internal/domain/repository"
	"github.com/servo98/express-invoices/pkg/sat"
)

// UserUseCase aplica reglas de negocio para el perfil y los ajustes del usuario.
type UserUseCase struct {
	users    repository.UserRepository
	settings repository.SettingsRepository
}

// NewUserUseCase construye el caso de uso con los puertos de persistencia.
func NewUserUseCase(users repository.UserRepository, settings repository.SettingsRepository) *UserUseCase {
	return &UserUseCase{users: users, settings: settings}
}

// ── Perfil ────────────────────────────────────────────────────────────────────

// GetProfile devuelve el perfil completo del usuario.
func (uc *UserUseCase) GetProfile(ctx context.Context, userID string) (*dto.ProfileResponse, error) {
	user, err := uc.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toProfileResponse(user), nil
}

// UpdateProfile aplica los campos presentes en la petición. El RFC se normaliza
// y valida; una cadena vacía lo elimina.
func (uc *UserUseCase) UpdateProfile(ctx context.Context, userID string, in dto.UpdateProfileRequest) (*dto.ProfileResponse, error) {
	user, err := uc.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.RFC != nil {
		rfc := sat.NormalizeRFC(*in.RFC)
		if rfc != "" {
			if err := sat.ValidateRFC(rfc); err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
			}
		}
		user.RFC = rfc
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name no puede estar vacío", domain.ErrInvalidInput)
		}
		user.Name = name
	}
	if in.SMTPPort != nil {
		if *in.SMTPPort < 0 || *in.SMTPPort > 65535 {
			return nil, fmt.Errorf("%w: smtp_port fuera de rango", domain.ErrInvalidInput)
		}
		user.SMTPPort = *in.SMTPPort
	}

	setTrimmed(&user.RazonSocial, in.RazonSocial)
	setTrimmed(&user.RegimenFiscal, in.RegimenFiscal)
	setTrimmed(&user.CodigoPostal, in.CodigoPostal)
	setTrimmed(&user.BankName, in.BankName)
	setTrimmed(&user.AccountNumber, in.AccountNumber)
	setTrimmed(&user.RoutingNumber, in.RoutingNumber)
	setTrimmed(&user.AccountType, in.AccountType)
	setTrimmed(&user.BankCurrency, in.BankCurrency)
	setTrimmed(&user.Beneficiary, in.Beneficiary)
	setTrimmed(&user.SMTPHost, in.SMTPHost)
	setTrimmed(&user.SMTPUser, in.SMTPUser)
	if in.SMTPPass != nil {
		user.SMTPPass = *in.SMTPPass
	}

	if err := uc.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return toProfileResponse(user), nil
}

// ── Ajustes ───────────────────────────────────────────────────────────────────

// GetSettings devuelve los ajustes; si el usuario no tiene fila se devuelven los
// valores por defecto del registro.
func (uc *UserUseCase) GetSettings(ctx context.Context, userID string) (*dto.SettingsResponse, error) {
	s, err := uc.loadSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toSettingsResponse(s), nil
}

// UpdateSettings aplica los campos presentes. reminder_day debe estar entre 1 y 28
// y el webhook, si se envía, debe ser una URL https.
func (uc *UserUseCase) UpdateSettings(ctx context.Context, userID string, in dto.UpdateSettingsRequest) (*dto.SettingsResponse, error) {
	s, err := uc.loadSettings(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.DiscordWebhookURL != nil {
		hook := strings.TrimSpace(*in.DiscordWebhookURL)
		if hook != "" {
			if err := validateWebhook(hook); err != nil {
				return nil, err
			}
		}
		s.DiscordWebhookURL = hook
	}
	if in.ReminderDay != nil {
		if *in.ReminderDay < 1 || *in.ReminderDay > entity.MaxReminderDay {
			return nil, fmt.Errorf("%w: reminder_day debe estar entre 1 y %d", domain.ErrInvalidInput, entity.MaxReminderDay)
		}
		s.ReminderDay = *in.ReminderDay
	}
	if in.ReminderEnabled != nil {
		s.ReminderEnabled = *in.ReminderEnabled
	}

	if err := uc.settings.Upsert(ctx, s); err != nil {
		return nil, err
	}
	return toSettingsResponse(s), nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (uc *UserUseCase) loadUser(ctx context.Context, userID string) (*entity.User, error) {
	user, err := uc.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (uc *UserUseCase) loadSettings(ctx context.Context, userID string) (*entity.UserSettings, error) {
	if _, err := uc.loadUser(ctx, userID); err != nil {
		return nil, err
	}
	s, err := uc.settings.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		s = &entity.UserSettings{UserID: userID, ReminderEnabled: true, ReminderDay: entity.DefaultReminderDay}
	}
	return s, nil
}

func validateWebhook(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("%w: discord_webhook_url debe ser una URL https", domain.ErrInvalidInput)
	}
	return nil
}

func setTrimmed(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func toProfileResponse(u *entity.User) *dto.ProfileResponse {
	return &dto.ProfileResponse{
		UserResponse:   *auth.ToUserResponse(u),
		BankName:       u.BankName,
		AccountNumber:  u.AccountNumber,
		RoutingNumber:  u.RoutingNumber,
		AccountType:    u.AccountType,
		BankCurrency:   u.BankCurrency,
		Beneficiary:    u.Beneficiary,
		SMTPHost:       u.SMTPHost,
		SMTPPort:       u.SMTPPort,
		SMTPUser:       u.SMTPUser,
		SMTPConfigured: u.SMTPConfigured(),
	}
}

func toSettingsResponse(s *entity.UserSettings) *dto.SettingsResponse {
	return &dto.SettingsResponse{
		DiscordWebhookURL: s.DiscordWebhookURL,
		ReminderEnabled:   s.ReminderEnabled,
		ReminderDay:       s.ReminderDay,
		UpdatedAt:         s.UpdatedAt,
	}
}
