// Package memory implementa los repositorios en memoria con las mismas reglas de
// unicidad y bloqueo que la base de datos. Se usa en pruebas y con --memory en la CLI.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/servo98/express-invoices/internal/application/auth"
	"github.com/servo98/express-invoices/internal/domain"
	"github.com/servo98/express-invoices/internal/domain/entity"
	"github.com/servo98/express-invoices/internal/domain/repository"
	"github.com/servo98/express-invoices/pkg/period"
)

var (
	_ repository.InvoiceRepository  = (*InvoiceRepository)(nil)
	_ repository.UserRepository     = (*UserRepository)(nil)
	_ repository.SettingsRepository = (*SettingsRepository)(nil)
	_ auth.TxRunner                 = TxRunner{}
)

// ── Facturas ──────────────────────────────────────────────────────────────────

// InvoiceRepository guarda copias profundas; nada de lo devuelto comparte memoria con el almacén.
type InvoiceRepository struct {
	mu   sync.Mutex
	rows map[string]*entity.Invoice
	now  func() time.Time
}

// NewInvoiceRepository crea el repositorio vacío.
func NewInvoiceRepository() *InvoiceRepository {
	return &InvoiceRepository{rows: map[string]*entity.Invoice{}, now: time.Now}
}

func (r *InvoiceRepository) FindByID(_ context.Context, id, userID string) (*entity.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.rows[id]
	if !ok || inv.UserID != userID {
		return nil, nil
	}
	return cloneInvoice(inv), nil
}

func (r *InvoiceRepository) FindByMonthYear(_ context.Context, userID string, p period.MonthYear) (*entity.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.rows {
		if inv.UserID == userID && inv.Month == p.Month && inv.Year == p.Year {
			return cloneInvoice(inv), nil
		}
	}
	return nil, nil
}

func (r *InvoiceRepository) FindAllByUser(_ context.Context, userID string) ([]*entity.Invoice, error) {
	return r.filter(func(inv *entity.Invoice) bool { return inv.UserID == userID }), nil
}

func (r *InvoiceRepository) FindAllByYear(_ context.Context, userID string, year int) ([]*entity.Invoice, error) {
	return r.filter(func(inv *entity.Invoice) bool { return inv.UserID == userID && inv.Year == year }), nil
}

func (r *InvoiceRepository) GetLatestByUser(ctx context.Context, userID string) (*entity.Invoice, error) {
	all, _ := r.FindAllByUser(ctx, userID)
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

func (r *InvoiceRepository) Create(_ context.Context, inv *entity.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.UserID == inv.UserID && row.Month == inv.Month && row.Year == inv.Year {
			return domain.ErrDuplicatePeriod
		}
	}
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	for k := range inv.Items {
		if inv.Items[k].ID == "" {
			inv.Items[k].ID = uuid.NewString()
		}
		inv.Items[k].InvoiceID = inv.ID
	}
	now := r.now()
	inv.CreatedAt, inv.UpdatedAt = now, now
	r.rows[inv.ID] = cloneInvoice(inv)
	return nil
}

func (r *InvoiceRepository) Update(_ context.Context, inv *entity.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, err := r.editable(inv.ID, inv.UserID)
	if err != nil {
		return err
	}
	for id, other := range r.rows {
		if id != inv.ID && other.UserID == inv.UserID && other.Month == inv.Month && other.Year == inv.Year {
			return domain.ErrDuplicatePeriod
		}
	}
	for k := range inv.Items {
		if inv.Items[k].ID == "" {
			inv.Items[k].ID = uuid.NewString()
		}
		inv.Items[k].InvoiceID = inv.ID
	}
	inv.CreatedAt = row.CreatedAt
	inv.UpdatedAt = r.now()
	r.rows[inv.ID] = cloneInvoice(inv)
	return nil
}

func (r *InvoiceRepository) MarkStamped(_ context.Context, inv *entity.Invoice) error {
	stamp := inv.StampResult()
	if stamp == nil {
		return fmt.Errorf("%w: factura sin artefactos de timbrado", domain.ErrInvalidInput)
	}
	if missing := stamp.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: timbre incompleto, falta: %s", domain.ErrInvalidInput, strings.Join(missing, ", "))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[inv.ID]
	if !ok || row.UserID != inv.UserID {
		return domain.ErrInvoiceNotFound
	}
	if row.IsStamped() {
		return domain.ErrAlreadyStamped
	}
	stampCopy := *inv.Stamp
	row.Stamp = &stampCopy
	row.UUID = inv.UUID
	row.Status = entity.InvoiceStatusTimbrado
	row.UpdatedAt = r.now()
	inv.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *InvoiceRepository) MarkCancelled(_ context.Context, inv *entity.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[inv.ID]
	if !ok || row.UserID != inv.UserID {
		return domain.ErrInvoiceNotFound
	}
	if !row.IsStamped() {
		return domain.ErrNotStamped
	}
	at := r.now()
	if inv.CancelledAt != nil {
		at = *inv.CancelledAt
	}
	row.CancelledAt = &at
	row.UpdatedAt = r.now()
	return nil
}

func (r *InvoiceRepository) Delete(_ context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.editable(id, userID); err != nil {
		return err
	}
	delete(r.rows, id)
	return nil
}

func (r *InvoiceRepository) editable(id, userID string) (*entity.Invoice, error) {
	row, ok := r.rows[id]
	if !ok || row.UserID != userID {
		return nil, domain.ErrInvoiceNotFound
	}
	if row.IsStamped() {
		return nil, domain.ErrInvoiceStamped
	}
	return row, nil
}

func (r *InvoiceRepository) filter(keep func(*entity.Invoice) bool) []*entity.Invoice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*entity.Invoice{}
	for _, inv := range r.rows {
		if keep(inv) {
			out = append(out, cloneInvoice(inv))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out
}

func cloneInvoice(src *entity.Invoice) *entity.Invoice {
	dst := *src
	dst.Items = append([]entity.InvoiceItem(nil), src.Items...)
	dst.Taxes = append([]entity.InvoiceTax(nil), src.Taxes...)
	if src.Stamp != nil {
		stamp := *src.Stamp
		dst.Stamp = &stamp
	}
	if src.CancelledAt != nil {
		at := *src.CancelledAt
		dst.CancelledAt = &at
	}
	return &dst
}

// ── Usuarios ──────────────────────────────────────────────────────────────────

// UserRepository usuarios en memoria; consulta los ajustes para el filtro de recordatorios.
type UserRepository struct {
	mu       sync.Mutex
	rows     []*entity.User
	settings *SettingsRepository
}

// NewUserRepository crea el repositorio; settings puede ser nil si no se consultan recordatorios.
func NewUserRepository(settings *SettingsRepository) *UserRepository {
	return &UserRepository{settings: settings}
}

func (r *UserRepository) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, row := range r.rows {
		if row.Email == u.Email {
			return domain.ErrEmailAlreadyExists
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	cp := *u
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.ID == id }), nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.find(func(u *entity.User) bool { return u.Email == email }), nil
}

func (r *UserRepository) Update(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, row := range r.rows {
		if row.ID != u.ID {
			continue
		}
		u.Email, u.PasswordHash, u.CreatedAt = row.Email, row.PasswordHash, row.CreatedAt
		u.UpdatedAt = time.Now()
		cp := *u
		r.rows[i] = &cp
		return nil
	}
	return domain.ErrUserNotFound
}

func (r *UserRepository) FindAllWithRemindersEnabled(ctx context.Context) ([]*entity.User, error) {
	r.mu.Lock()
	rows := append([]*entity.User(nil), r.rows...)
	r.mu.Unlock()

	out := []*entity.User{}
	for _, u := range rows {
		if r.settings == nil {
			break
		}
		s, _ := r.settings.FindByUserID(ctx, u.ID)
		if s != nil && s.ReminderEnabled {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *UserRepository) find(match func(*entity.User) bool) *entity.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.rows {
		if match(u) {
			cp := *u
			return &cp
		}
	}
	return nil
}

// ── Ajustes ───────────────────────────────────────────────────────────────────

// SettingsRepository un registro de ajustes por usuario.
type SettingsRepository struct {
	mu   sync.Mutex
	rows map[string]*entity.UserSettings
}

func NewSettingsRepository() *SettingsRepository {
	return &SettingsRepository{rows: map[string]*entity.UserSettings{}}
}

func (r *SettingsRepository) FindByUserID(_ context.Context, userID string) (*entity.UserSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[userID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *SettingsRepository) Upsert(_ context.Context, s *entity.UserSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if prev, ok := r.rows[s.UserID]; ok {
		s.ID, s.CreatedAt = prev.ID, prev.CreatedAt
	} else {
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	cp := *s
	r.rows[s.UserID] = &cp
	return nil
}

// ── Transacciones ─────────────────────────────────────────────────────────────

// TxRunner ejecuta el registro sobre los mismos repositorios; si el callback falla
// se descarta el usuario creado.
type TxRunner struct {
	Users    *UserRepository
	Settings *SettingsRepository
}

func (t TxRunner) RunRegistration(_ context.Context, fn func(
	users repository.UserRepository,
	settings repository.SettingsRepository,
) error) error {
	t.Users.mu.Lock()
	before := len(t.Users.rows)
	t.Users.mu.Unlock()

	if err := fn(t.Users, t.Settings); err != nil {
		t.Users.mu.Lock()
		if len(t.Users.rows) > before {
			t.Users.rows = t.Users.rows[:before]
		}
		t.Users.mu.Unlock()
		return err
	}
	return nil
}
