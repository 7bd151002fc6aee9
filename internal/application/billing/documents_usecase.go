package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/servo98/express-invoices/internal/domain"
	"github.com/servo98/express-invoices/internal/domain/entity"
	"github.com/servo98/express-invoices/internal/domain/repository"
	"github.com/servo98/express-invoices/internal/infrastructure/bundle"
	"github.com/servo98/express-invoices/internal/infrastructure/mail"
)

// DefaultEmailBody cuerpo del correo cuando el usuario no escribe uno.
const DefaultEmailBody = "Please find attached the invoice for your records."

// Tipos de contenido de los documentos descargables.
const (
	ContentTypeXML = "application/xml"
	ContentTypePDF = "application/pdf"
	ContentTypeZIP = "application/zip"
)

// Document archivo generado listo para descargar o adjuntar.
type Document struct {
	Name        string
	ContentType string
	Data        []byte
}

// DocumentsUseCase genera XML, PDF y paquete ZIP de una factura, y los envía por correo.
type DocumentsUseCase struct {
	invoices  repository.InvoiceRepository
	users     repository.UserRepository
	generator CFDIGenerator
	pdf       PDFGenerator
	bundler   BundleBuilder
	mailer    Mailer
	log       zerolog.Logger
}

// NewDocumentsUseCase construye el caso de uso. mailer puede ser nil si no se envía correo.
func NewDocumentsUseCase(
	invoices repository.InvoiceRepository,
	users repository.UserRepository,
	generator CFDIGenerator,
	pdf PDFGenerator,
	bundler BundleBuilder,
	mailer Mailer,
	log zerolog.Logger,
) *DocumentsUseCase {
	return &DocumentsUseCase{
		invoices:  invoices,
		users:     users,
		generator: generator,
		pdf:       pdf,
		bundler:   bundler,
		mailer:    mailer,
		log:       log,
	}
}

// GenerateXML devuelve el XML timbrado si la factura ya está timbrada; si no, el XML base recién generado.
func (uc *DocumentsUseCase) GenerateXML(ctx context.Context, userID, invoiceID string) (*Document, error) {
	inv, user, err := uc.load(ctx, userID, invoiceID)
	if err != nil {
		return nil, err
	}
	return uc.xmlDocument(inv, user)
}

// GeneratePDF genera la factura comercial.
func (uc *DocumentsUseCase) GeneratePDF(ctx context.Context, userID, invoiceID string) (*Document, error) {
	inv, user, err := uc.load(ctx, userID, invoiceID)
	if err != nil {
		return nil, err
	}
	return uc.pdfDocument(ctx, inv, user)
}

// DownloadBundle empaqueta PDF y XML en invoice-{id}.zip.
func (uc *DocumentsUseCase) DownloadBundle(ctx context.Context, userID, invoiceID string) (*Document, error) {
	inv, user, err := uc.load(ctx, userID, invoiceID)
	if err != nil {
		return nil, err
	}
	return uc.bundleDocument(ctx, inv, user)
}

// SendEmail envía el paquete ZIP con el SMTP del usuario.
func (uc *DocumentsUseCase) SendEmail(ctx context.Context, userID, invoiceID, to, subject, body string) error {
	to = strings.TrimSpace(to)
	if to == "" || !strings.Contains(to, "@") {
		return fmt.Errorf("%w: destinatario inválido", domain.ErrInvalidInput)
	}
	inv, user, err := uc.load(ctx, userID, invoiceID)
	if err != nil {
		return err
	}
	if !user.SMTPConfigured() || uc.mailer == nil {
		return domain.ErrSMTPNotConfigured
	}

	zip, err := uc.bundleDocument(ctx, inv, user)
	if err != nil {
		return err
	}
	if strings.TrimSpace(subject) == "" {
		subject = "Invoice " + inv.Period().Label()
	}
	if strings.TrimSpace(body) == "" {
		body = DefaultEmailBody
	}

	err = uc.mailer.Send(ctx, mail.SMTPConfig{
		Host:     user.SMTPHost,
		Port:     user.SMTPPort,
		Username: user.SMTPUser,
		Password: user.SMTPPass,
	}, mail.Message{
		To:          to,
		Subject:     subject,
		Body:        body,
		Attachments: []mail.Attachment{{Name: zip.Name, Data: zip.Data}},
	})
	if err != nil {
		uc.log.Error().Err(err).Str("invoice_id", inv.ID).Str("smtp_host", user.SMTPHost).Msg("correo no enviado")
		return err
	}
	uc.log.Info().Str("invoice_id", inv.ID).Str("smtp_host", user.SMTPHost).Msg("factura enviada por correo")
	return nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (uc *DocumentsUseCase) load(ctx context.Context, userID, invoiceID string) (*entity.Invoice, *entity.User, error) {
	inv, err := uc.invoices.FindByID(ctx, invoiceID, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("billing: obtener factura: %w", err)
	}
	if inv == nil {
		return nil, nil, domain.ErrInvoiceNotFound
	}
	user, err := uc.users.FindByID(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("billing: obtener usuario: %w", err)
	}
	if user == nil {
		return nil, nil, domain.ErrUserNotFound
	}
	return inv, user, nil
}

func (uc *DocumentsUseCase) xmlDocument(inv *entity.Invoice, user *entity.User) (*Document, error) {
	name := "cfdi-" + fileBase(inv) + ".xml"
	if inv.IsStamped() && inv.Stamp != nil && inv.Stamp.XML != "" {
		return &Document{Name: name, ContentType: ContentTypeXML, Data: []byte(inv.Stamp.XML)}, nil
	}
	data, err := uc.generator.Generate(inv, user)
	if err != nil {
		return nil, fmt.Errorf("billing: generar CFDI: %w", err)
	}
	return &Document{Name: name, ContentType: ContentTypeXML, Data: data}, nil
}

func (uc *DocumentsUseCase) pdfDocument(ctx context.Context, inv *entity.Invoice, user *entity.User) (*Document, error) {
	data, err := uc.pdf.Generate(ctx, inv, user)
	if err != nil {
		return nil, fmt.Errorf("billing: generar PDF: %w", err)
	}
	return &Document{Name: "invoice-" + fileBase(inv) + ".pdf", ContentType: ContentTypePDF, Data: data}, nil
}

func (uc *DocumentsUseCase) bundleDocument(ctx context.Context, inv *entity.Invoice, user *entity.User) (*Document, error) {
	pdf, err := uc.pdfDocument(ctx, inv, user)
	if err != nil {
		return nil, err
	}
	xml, err := uc.xmlDocument(inv, user)
	if err != nil {
		return nil, err
	}
	data, err := uc.bundler.Build(
		bundle.File{Name: pdf.Name, Data: pdf.Data},
		bundle.File{Name: xml.Name, Data: xml.Data},
	)
	if err != nil {
		return nil, fmt.Errorf("billing: empaquetar: %w", err)
	}
	return &Document{Name: "invoice-" + inv.ID + ".zip", ContentType: ContentTypeZIP, Data: data}, nil
}

// fileBase nombre base de los archivos: el UUID fiscal si existe, si no el id interno.
func fileBase(inv *entity.Invoice) string {
	if inv.UUID != "" {
		return inv.UUID
	}
	return inv.ID
}
