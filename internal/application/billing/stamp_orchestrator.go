package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/servo98/express-invoices/internal/application/dto"
	"github.com/servo98/express-invoices/internal/domain"
	"github.com/servo98/express-invoices/internal/domain/entity"
	"github.com/servo98/express-invoices/internal/domain/repository"
	"github.com/servo98/express-invoices/internal/infrastructure/journal"
	"github.com/servo98/express-invoices/internal/infrastructure/pac"
	"github.com/servo98/express-invoices/pkg/sat"
)

// StampOrchestrator orquesta el timbrado y la cancelación ante el PAC:
//
//	validaciones → XML base → bitácora → PAC → persistencia condicional
//
// Ningún paso reintenta: timbrar no es idempotente del lado del SAT.
type StampOrchestrator struct {
	invoices  repository.InvoiceRepository
	users     repository.UserRepository
	generator CFDIGenerator
	pac       PACService
	journal   StampJournal // opcional
	log       zerolog.Logger
}

// StampOption ajusta el orquestador.
type StampOption func(*StampOrchestrator)

// WithJournal activa la bitácora de intentos.
func WithJournal(j StampJournal) StampOption {
	return func(o *StampOrchestrator) { o.journal = j }
}

// WithStampLogger asigna el logger estructurado.
func WithStampLogger(log zerolog.Logger) StampOption {
	return func(o *StampOrchestrator) { o.log = log }
}

// NewStampOrchestrator construye el orquestador.
func NewStampOrchestrator(
	invoices repository.InvoiceRepository,
	users repository.UserRepository,
	generator CFDIGenerator,
	pacService PACService,
	opts ...StampOption,
) *StampOrchestrator {
	o := &StampOrchestrator{
		invoices:  invoices,
		users:     users,
		generator: generator,
		pac:       pacService,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ── Timbrado ──────────────────────────────────────────────────────────────────

// Timbrar timbra la factura y la persiste como timbrada. Cualquier falla antes de
// la respuesta del PAC deja la factura intacta; los errores del PAC se devuelven tal cual.
func (o *StampOrchestrator) Timbrar(ctx context.Context, userID, invoiceID string) (*dto.InvoiceResponse, error) {
	// ── 1. PAC configurado (antes de cualquier lectura o red) ─────────────────
	if o.pac == nil || !o.pac.IsConfigured() {
		return nil, domain.ErrPACNotConfigured
	}

	// ── 2. Factura ────────────────────────────────────────────────────────────
	inv, err := o.invoices.FindByID(ctx, invoiceID, userID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrInvoiceNotFound
	}
	if inv.IsStamped() {
		return nil, domain.ErrAlreadyStamped
	}

	// ── 3. Emisor ─────────────────────────────────────────────────────────────
	user, err := o.issuer(ctx, userID)
	if err != nil {
		return nil, err
	}

	// ── 4. XML base ───────────────────────────────────────────────────────────
	xmlBase, err := o.generator.Generate(inv, user)
	if err != nil {
		return nil, fmt.Errorf("billing: generar CFDI: %w", err)
	}

	log := o.log.With().Str("invoice_id", inv.ID).Str("provider", o.pac.Provider()).Logger()

	// ── 5. Bitácora + PAC ─────────────────────────────────────────────────────
	if o.journal != nil {
		if err := o.journal.Begin(ctx, inv.ID, o.pac.Provider(), xmlBase); err != nil {
			log.Warn().Err(err).Msg("timbrado bloqueado por intento previo")
			return nil, err
		}
	}

	start := time.Now()
	res, err := o.pac.Timbrar(ctx, xmlBase)
	elapsed := time.Since(start)
	if err != nil {
		status := journal.StatusFailed
		if errors.Is(err, pac.ErrTimeout) {
			status = journal.StatusTimeout
		}
		o.finish(ctx, inv.ID, status, "", err)
		log.Error().Err(err).Dur("elapsed", elapsed).Str("outcome", status).Msg("timbrado rechazado")
		return nil, err
	}

	// ── 6. Persistencia condicional ───────────────────────────────────────────
	inv.ApplyStamp(res)
	if err := o.invoices.MarkStamped(ctx, inv); err != nil {
		o.finish(ctx, inv.ID, journal.StatusUnpersisted, res.UUID, err)
		log.Error().Err(err).Str("uuid", res.UUID).Msg("CFDI timbrado pero no persistido; requiere conciliación")
		return nil, err
	}
	o.finish(ctx, inv.ID, journal.StatusStamped, res.UUID, nil)
	log.Info().Str("uuid", res.UUID).Dur("elapsed", elapsed).Msg("factura timbrada")

	return ToInvoiceResponse(inv), nil
}

// ── Cancelación ───────────────────────────────────────────────────────────────

// Cancel solicita al PAC la cancelación de un CFDI timbrado y registra la fecha.
// El documento timbrado no se modifica.
func (o *StampOrchestrator) Cancel(ctx context.Context, userID, invoiceID string, in dto.CancelInvoiceRequest) (*dto.CancelInvoiceResponse, error) {
	if o.pac == nil || !o.pac.IsConfigured() {
		return nil, domain.ErrPACNotConfigured
	}
	if !sat.ValidCancellationMotives[in.Motivo] {
		return nil, fmt.Errorf("%w: motivo de cancelación %q", domain.ErrInvalidInput, in.Motivo)
	}
	if in.Motivo == sat.MotivoErroresConRelacion && in.FolioSustitucion == "" {
		return nil, fmt.Errorf("%w: el motivo 01 requiere folio de sustitución", domain.ErrInvalidInput)
	}

	inv, err := o.invoices.FindByID(ctx, invoiceID, userID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrInvoiceNotFound
	}
	if !inv.IsStamped() || inv.UUID == "" {
		return nil, domain.ErrNotStamped
	}
	if inv.CancelledAt != nil {
		return nil, domain.ErrInvoiceCancelled
	}

	user, err := o.issuer(ctx, userID)
	if err != nil {
		return nil, err
	}

	res, err := o.pac.Cancelar(ctx, pac.CancelRequest{
		UUID:             inv.UUID,
		RFCEmisor:        sat.NormalizeRFC(user.RFC),
		Motivo:           in.Motivo,
		FolioSustitucion: in.FolioSustitucion,
	})
	if err != nil {
		o.log.Error().Err(err).Str("invoice_id", inv.ID).Str("uuid", inv.UUID).Msg("cancelación rechazada")
		return nil, err
	}

	now := time.Now().UTC()
	inv.CancelledAt = &now
	if err := o.invoices.MarkCancelled(ctx, inv); err != nil {
		o.log.Error().Err(err).Str("invoice_id", inv.ID).Str("uuid", inv.UUID).Msg("CFDI cancelado pero no persistido")
		return nil, err
	}
	o.log.Info().Str("invoice_id", inv.ID).Str("uuid", inv.UUID).Str("motivo", in.Motivo).Msg("CFDI cancelado")

	return &dto.CancelInvoiceResponse{
		Invoice: *ToInvoiceResponse(inv),
		Status:  res.Status,
		Message: res.Message,
	}, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

// issuer carga al emisor y exige un RFC presente y bien formado.
func (o *StampOrchestrator) issuer(ctx context.Context, userID string) (*entity.User, error) {
	user, err := o.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	if user.RFC == "" {
		return nil, domain.ErrMissingIssuerRFC
	}
	if err := sat.ValidateRFC(user.RFC); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMissingIssuerRFC, err)
	}
	return user, nil
}

// finish registra el resultado en la bitácora; un fallo aquí solo se registra en el log.
func (o *StampOrchestrator) finish(ctx context.Context, invoiceID, status, uuid string, cause error) {
	if o.journal == nil {
		return
	}
	if err := o.journal.Finish(ctx, invoiceID, status, uuid, cause); err != nil {
		o.log.Error().Err(err).Str("invoice_id", invoiceID).Str("status", status).Msg("no se pudo cerrar el intento en la bitácora")
	}
}
