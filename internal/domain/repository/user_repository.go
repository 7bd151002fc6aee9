package repository

import (
	"context"

	"github.com/servo98/express-invoices/internal/domain/entity"
)

// UserRepository define el puerto de persistencia para User (DIP).
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	// Update reemplaza perfil, datos bancarios y SMTP. No toca email ni password.
	Update(ctx context.Context, user *entity.User) error
	// FindAllWithRemindersEnabled usuarios con recordatorio activo (con o sin webhook).
	FindAllWithRemindersEnabled(ctx context.Context) ([]*entity.User, error)
}
