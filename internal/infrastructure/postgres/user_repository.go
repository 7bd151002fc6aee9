package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/servo98/express-invoices/internal/domain"
	"github.com/servo98/express-invoices/internal/domain/entity"
	"github.com/servo98/express-invoices/internal/domain/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

const userColumns = `
	u.id, u.email, u.password_hash, u.name, u.rfc, u.razon_social, u.regimen_fiscal, u.codigo_postal,
	u.bank_name, u.account_number, u.routing_number, u.account_type, u.bank_currency, u.beneficiary,
	u.smtp_host, u.smtp_port, u.smtp_user, u.smtp_pass, u.created_at, u.updated_at`

// UserRepo implementación del puerto UserRepository sobre PostgreSQL.
type UserRepo struct {
	q Querier
}

// NewUserRepository construye el adaptador de persistencia para usuarios. Pasar pool o tx.
func NewUserRepository(q Querier) *UserRepo {
	return &UserRepo{q: q}
}

// Create persiste un nuevo usuario.
func (r *UserRepo) Create(ctx context.Context, user *entity.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	query := `
		INSERT INTO users (id, email, password_hash, name, rfc, razon_social, regimen_fiscal, codigo_postal,
			bank_name, account_number, routing_number, account_type, bank_currency, beneficiary,
			smtp_host, smtp_port, smtp_user, smtp_pass, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`
	_, err := r.q.Exec(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Name, user.RFC, user.RazonSocial, user.RegimenFiscal,
		user.CodigoPostal, user.BankName, user.AccountNumber, user.RoutingNumber, user.AccountType,
		user.BankCurrency, user.Beneficiary, user.SMTPHost, user.SMTPPort, user.SMTPUser, user.SMTPPass,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Update persiste los datos de perfil del usuario.
func (r *UserRepo) Update(ctx context.Context, user *entity.User) error {
	user.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE users SET name = $2, rfc = $3, razon_social = $4, regimen_fiscal = $5, codigo_postal = $6,
			bank_name = $7, account_number = $8, routing_number = $9, account_type = $10, bank_currency = $11,
			beneficiary = $12, smtp_host = $13, smtp_port = $14, smtp_user = $15, smtp_pass = $16, updated_at = $17
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		user.ID, user.Name, user.RFC, user.RazonSocial, user.RegimenFiscal, user.CodigoPostal,
		user.BankName, user.AccountNumber, user.RoutingNumber, user.AccountType, user.BankCurrency,
		user.Beneficiary, user.SMTPHost, user.SMTPPort, user.SMTPUser, user.SMTPPass, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// FindByID obtiene un usuario por ID.
func (r *UserRepo) FindByID(ctx context.Context, id string) (*entity.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id)
}

// FindByEmail obtiene un usuario por email (sin distinguir mayúsculas).
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users u WHERE u.email = $1 LIMIT 1`,
		strings.ToLower(strings.TrimSpace(email)))
}

// FindAllWithRemindersEnabled usuarios con recordatorio activo, en orden de alta.
func (r *UserRepo) FindAllWithRemindersEnabled(ctx context.Context) ([]*entity.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users u JOIN user_settings s ON s.user_id = u.id
		WHERE s.reminder_enabled
		ORDER BY u.created_at`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users with reminders: %w", err)
	}
	defer rows.Close()
	list := []*entity.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

func (r *UserRepo) findOne(ctx context.Context, query string, args ...any) (*entity.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (*entity.User, error) {
	var u entity.User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.RFC, &u.RazonSocial, &u.RegimenFiscal, &u.CodigoPostal,
		&u.BankName, &u.AccountNumber, &u.RoutingNumber, &u.AccountType, &u.BankCurrency, &u.Beneficiary,
		&u.SMTPHost, &u.SMTPPort, &u.SMTPUser, &u.SMTPPass, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
