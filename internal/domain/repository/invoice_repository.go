package repository

import (
	"context"

	"github.com/servo98/express-invoices/internal/domain/entity"
	"github.com/servo98/express-invoices/pkg/period"
)

// InvoiceRepository define el puerto de persistencia para Invoice con sus conceptos e impuestos.
// Las búsquedas devuelven (nil, nil) cuando no hay registro.
type InvoiceRepository interface {
	FindByID(ctx context.Context, id, userID string) (*entity.Invoice, error)
	FindByMonthYear(ctx context.Context, userID string, p period.MonthYear) (*entity.Invoice, error)
	// FindAllByUser ordena por año y mes descendentes.
	FindAllByUser(ctx context.Context, userID string) ([]*entity.Invoice, error)
	FindAllByYear(ctx context.Context, userID string, year int) ([]*entity.Invoice, error)
	// Create devuelve domain.ErrDuplicatePeriod si ya existe una factura para (userID, mes, año).
	Create(ctx context.Context, invoice *entity.Invoice) error
	// Update reemplaza encabezado, conceptos e impuestos. Devuelve domain.ErrInvoiceStamped si la
	// fila almacenada ya está timbrada.
	Update(ctx context.Context, invoice *entity.Invoice) error
	// MarkStamped persiste estado timbrado, UUID y artefactos solo si la fila no estaba timbrada;
	// en caso contrario devuelve domain.ErrAlreadyStamped.
	MarkStamped(ctx context.Context, invoice *entity.Invoice) error
	// MarkCancelled registra la fecha de cancelación ante el SAT.
	MarkCancelled(ctx context.Context, invoice *entity.Invoice) error
	// Delete devuelve domain.ErrInvoiceStamped si la fila almacenada ya está timbrada.
	Delete(ctx context.Context, id, userID string) error
	GetLatestByUser(ctx context.Context, userID string) (*entity.Invoice, error)
}
