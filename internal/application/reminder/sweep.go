// Package reminder implementa el barrido mensual que avisa por Discord a los usuarios
// que aún no crean la factura del periodo en curso.
package reminder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/servo98/express-invoices/internal/domain/entity"
	"github.com/servo98/express-invoices/internal/domain/repository"
	"github.com/servo98/express-invoices/pkg/period"
)

// DefaultAppURL base de los enlaces cuando APP_URL no está definido.
const DefaultAppURL = "http://localhost:3000"

// Notifier puerto de salida hacia el webhook del usuario.
type Notifier interface {
	SendReminder(ctx context.Context, webhookURL, message string) error
}

// Result resumen de un barrido. Errors conserva un mensaje por cada envío fallido.
type Result struct {
	Sent    int
	Skipped int
	Failed  int
	Errors  []string
}

// UseCase barrido de recordatorios.
type UseCase struct {
	users    repository.UserRepository
	settings repository.SettingsRepository
	invoices repository.InvoiceRepository
	notifier Notifier
	art      func() string
	appURL   string
	log      zerolog.Logger
}

// Option ajusta el caso de uso.
type Option func(*UseCase)

// WithArt reemplaza el selector de arte ASCII.
func WithArt(pick func() string) Option {
	return func(uc *UseCase) { uc.art = pick }
}

// WithLogger asigna el logger estructurado.
func WithLogger(log zerolog.Logger) Option {
	return func(uc *UseCase) { uc.log = log }
}

// NewUseCase construye el barrido. appURL vacío usa DefaultAppURL.
func NewUseCase(
	users repository.UserRepository,
	settings repository.SettingsRepository,
	invoices repository.InvoiceRepository,
	notifier Notifier,
	appURL string,
	opts ...Option,
) *UseCase {
	appURL = strings.TrimRight(appURL, "/")
	if appURL == "" {
		appURL = DefaultAppURL
	}
	uc := &UseCase{
		users:    users,
		settings: settings,
		invoices: invoices,
		notifier: notifier,
		art:      RandomArt,
		appURL:   appURL,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// ExecuteForAllUsers recorre secuencialmente a los usuarios con recordatorio activo y
// envía como máximo un mensaje por usuario para el periodo de now. Un fallo de envío
// se registra y el barrido continúa; solo los errores al listar usuarios lo abortan.
func (uc *UseCase) ExecuteForAllUsers(ctx context.Context, now time.Time) (*Result, error) {
	users, err := uc.users.FindAllWithRemindersEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("reminder: listar usuarios: %w", err)
	}
	current := period.Current(now)
	res := &Result{Errors: []string{}}

	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		sent, err := uc.remindUser(ctx, u, current)
		switch {
		case err != nil:
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", u.ID, err))
			uc.log.Error().Err(err).Str("user_id", u.ID).Str("period", current.String()).Msg("recordatorio no enviado")
		case sent:
			res.Sent++
		default:
			res.Skipped++
		}
	}

	uc.log.Info().
		Int("sent", res.Sent).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Str("period", current.String()).
		Msg("barrido de recordatorios terminado")
	return res, nil
}

func (uc *UseCase) remindUser(ctx context.Context, u *entity.User, current period.MonthYear) (bool, error) {
	settings, err := uc.settings.FindByUserID(ctx, u.ID)
	if err != nil {
		return false, fmt.Errorf("leer configuración: %w", err)
	}
	if !settings.CanRemind() {
		return false, nil
	}

	existing, err := uc.invoices.FindByMonthYear(ctx, u.ID, current)
	if err != nil {
		return false, fmt.Errorf("buscar factura del periodo: %w", err)
	}
	if existing != nil {
		return false, nil
	}

	if err := uc.notifier.SendReminder(ctx, settings.DiscordWebhookURL, uc.Message(u, current)); err != nil {
		return false, err
	}
	return true, nil
}

// Message arma el texto del recordatorio para el usuario y periodo.
func (uc *UseCase) Message(u *entity.User, p period.MonthYear) string {
	name := u.Name
	if name == "" {
		name = "there"
	}
	return strings.Join([]string{
		"```",
		uc.art(),
		"```",
		fmt.Sprintf("**Hey %s! Time to create your invoice for %s**", name, p.Label()),
		"",
		fmt.Sprintf("Click here to create it: %s/invoices/new?month=%d&year=%d", uc.appURL, p.Month, p.Year),
	}, "\n")
}
