package billing

import (
	"context"

	"github.com/servo98/express-invoices/internal/domain/entity"
	"github.com/servo98/express-invoices/internal/infrastructure/bundle"
	"github.com/servo98/express-invoices/internal/infrastructure/mail"
	"github.com/servo98/express-invoices/internal/infrastructure/pac"
)

// CFDIGenerator serializa la factura como CFDI 4.0 sin sellar. Función pura.
type CFDIGenerator interface {
	Generate(inv *entity.Invoice, user *entity.User) ([]byte, error)
}

// PACService timbra y cancela ante el proveedor configurado.
type PACService interface {
	IsConfigured() bool
	Provider() string
	Timbrar(ctx context.Context, xmlBase []byte) (*entity.StampResult, error)
	Cancelar(ctx context.Context, req pac.CancelRequest) (*pac.CancelResult, error)
}

// StampJournal bitácora de intentos de timbrado. Begin devuelve domain.ErrStampPending
// si el último intento de la factura quedó sin resultado confirmado.
type StampJournal interface {
	Begin(ctx context.Context, invoiceID, provider string, xmlBase []byte) error
	Finish(ctx context.Context, invoiceID, status, uuid string, cause error) error
}

// PDFGenerator genera la factura comercial.
type PDFGenerator interface {
	Generate(ctx context.Context, inv *entity.Invoice, user *entity.User) ([]byte, error)
}

// BundleBuilder empaqueta archivos en un ZIP.
type BundleBuilder interface {
	Build(files ...bundle.File) ([]byte, error)
}

// Mailer envía correo con el SMTP del usuario.
type Mailer interface {
	Send(ctx context.Context, cfg mail.SMTPConfig, msg mail.Message) error
}
