package auth

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/servo98/express-invoices/internal/application/dto"
	"github.com/servo98/express-invoices/internal/domain"
	"github.com/servo98/express-invoices/internal/domain/entity"
	"github.com/servo98/express-invoices/internal/domain/repository"
	"github.com/servo98/express-invoices/pkg/jwt"
	"github.com/servo98/express-invoices/pkg/sat"
)

// MinPasswordLength longitud mínima de la contraseña al registrarse.
const MinPasswordLength = 8

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// TxRunner ejecuta el alta de usuario y ajustes en una sola transacción.
type TxRunner interface {
	RunRegistration(ctx context.Context, fn func(users repository.UserRepository, settings repository.SettingsRepository) error) error
}

// AuthUseCase casos de uso de autenticación: registro y login.
type AuthUseCase struct {
	userRepo repository.UserRepository
	tx       TxRunner
	jwtCfg   JWTConfig
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(userRepo repository.UserRepository, tx TxRunner, jwtCfg JWTConfig) *AuthUseCase {
	return &AuthUseCase{userRepo: userRepo, tx: tx, jwtCfg: jwtCfg}
}

// RegisterUser crea el usuario con bcrypt y sus ajustes por defecto (recordatorio activo el día 1).
// Devuelve ErrEmailAlreadyExists si el email ya está registrado.
func (uc *AuthUseCase) RegisterUser(ctx context.Context, in dto.RegisterRequest) (*dto.UserResponse, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email inválido", domain.ErrInvalidInput)
	}
	if len(in.Password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password debe tener al menos %d caracteres", domain.ErrInvalidInput, MinPasswordLength)
	}
	rfc := sat.NormalizeRFC(in.RFC)
	if rfc != "" {
		if err := sat.ValidateRFC(rfc); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
	}

	existing, err := uc.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrEmailAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = email
	}
	user := &entity.User{
		Email:         email,
		PasswordHash:  string(hash),
		Name:          name,
		RFC:           rfc,
		RazonSocial:   strings.TrimSpace(in.RazonSocial),
		RegimenFiscal: strings.TrimSpace(in.RegimenFiscal),
		CodigoPostal:  strings.TrimSpace(in.CodigoPostal),
	}
	err = uc.tx.RunRegistration(ctx, func(users repository.UserRepository, settings repository.SettingsRepository) error {
		if err := users.Create(ctx, user); err != nil {
			return err
		}
		return settings.Upsert(ctx, &entity.UserSettings{
			UserID:          user.ID,
			ReminderEnabled: true,
			ReminderDay:     entity.DefaultReminderDay,
		})
	})
	if err != nil {
		return nil, err
	}
	return ToUserResponse(user), nil
}

// Login verifica email/password, genera JWT y retorna token + usuario.
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := uc.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, domain.ErrUnauthorized
	}
	token, err := jwt.Generate(uc.jwtCfg.Secret, user.ID, user.Email, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		Token: token,
		User:  *ToUserResponse(user),
	}, nil
}

// Me devuelve el usuario autenticado.
func (uc *AuthUseCase) Me(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := uc.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return ToUserResponse(user), nil
}

// ToUserResponse convierte la entidad sin exponer hash ni credenciales SMTP.
func ToUserResponse(u *entity.User) *dto.UserResponse {
	if u == nil {
		return nil
	}
	return &dto.UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		RFC:           u.RFC,
		RazonSocial:   u.RazonSocial,
		RegimenFiscal: u.RegimenFiscal,
		CodigoPostal:  u.CodigoPostal,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}
