package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/servo98/express-invoices/internal/application/dto"
	"github.com/servo98/express-invoices/internal/domain"
	"github.com/servo98/express-invoices/internal/domain/entity"
	"github.com/servo98/express-invoices/internal/domain/repository"
	"github.com/servo98/express-invoices/pkg/period"
)

// Rango de años aceptado para el periodo de una factura.
const (
	minYear = 2020
	maxYear = 2100
)

var minCantidad = decimal.RequireFromString("0.01")

// InvoiceUseCase altas, cambios, bajas, consultas y clonado de facturas.
// Todas las operaciones están acotadas al usuario dueño.
type InvoiceUseCase struct {
	invoices repository.InvoiceRepository
	now      func() time.Time
}

// NewInvoiceUseCase construye el caso de uso.
func NewInvoiceUseCase(invoices repository.InvoiceRepository) *InvoiceUseCase {
	return &InvoiceUseCase{invoices: invoices, now: time.Now}
}

// WithClock fija el reloj usado para Fecha por defecto. Devuelve el mismo caso de uso.
func (uc *InvoiceUseCase) WithClock(now func() time.Time) *InvoiceUseCase {
	uc.now = now
	return uc
}

// ── Alta ──────────────────────────────────────────────────────────────────────

// Create valida, completa valores por defecto, recalcula importes y totales, y persiste en draft.
// La verificación previa del periodo es solo un aviso temprano: la unicidad la garantiza el repositorio.
func (uc *InvoiceUseCase) Create(ctx context.Context, userID string, in dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	p, err := validPeriod(in.Month, in.Year)
	if err != nil {
		return nil, err
	}
	items := itemsFromRequest(in.Items)
	if err := validateItems(items); err != nil {
		return nil, err
	}

	existing, err := uc.invoices.FindByMonthYear(ctx, userID, p)
	if err != nil {
		return nil, fmt.Errorf("billing: buscar periodo: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrDuplicatePeriod, p.Label())
	}

	fecha := uc.now()
	if in.Fecha != nil {
		fecha = *in.Fecha
	}
	inv := &entity.Invoice{
		UserID:                userID,
		Month:                 p.Month,
		Year:                  p.Year,
		Fecha:                 fecha,
		FormaPago:             in.FormaPago,
		MetodoPago:            in.MetodoPago,
		Moneda:                strings.ToUpper(in.Moneda),
		TipoCambio:            nullDecimal(in.TipoCambio),
		LugarExpedicion:       in.LugarExpedicion,
		Exportacion:           in.Exportacion,
		ReceptorRfc:           strings.ToUpper(strings.TrimSpace(in.ReceptorRfc)),
		ReceptorNombre:        in.ReceptorNombre,
		ReceptorCp:            in.ReceptorCp,
		ResidenciaFiscal:      in.ResidenciaFiscal,
		NumRegIdTrib:          in.NumRegIdTrib,
		RegimenFiscalReceptor: in.RegimenFiscalReceptor,
		UsoCfdi:               in.UsoCfdi,
		BilledToName:          in.BilledToName,
		BilledToAddress:       in.BilledToAddress,
		BilledToPhone:         in.BilledToPhone,
		PaymentReference:      in.PaymentReference,
		Items:                 items,
		Status:                entity.InvoiceStatusDraft,
	}
	return uc.persistNew(ctx, inv)
}

func (uc *InvoiceUseCase) persistNew(ctx context.Context, inv *entity.Invoice) (*dto.InvoiceResponse, error) {
	inv.ApplyDefaults()
	inv.RecalculateTotals()
	if err := uc.invoices.Create(ctx, inv); err != nil {
		if errors.Is(err, domain.ErrDuplicatePeriod) {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicatePeriod, inv.Period().Label())
		}
		return nil, fmt.Errorf("billing: crear factura: %w", err)
	}
	return ToInvoiceResponse(inv), nil
}

// ── Cambios ───────────────────────────────────────────────────────────────────

// Update aplica solo los campos presentes. Una factura timbrada no se modifica.
func (uc *InvoiceUseCase) Update(ctx context.Context, userID, id string, in dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error) {
	inv, err := uc.load(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if inv.IsStamped() {
		return nil, domain.ErrInvoiceStamped
	}

	if in.Month != nil || in.Year != nil {
		month, year := inv.Month, inv.Year
		if in.Month != nil {
			month = *in.Month
		}
		if in.Year != nil {
			year = *in.Year
		}
		p, err := validPeriod(month, year)
		if err != nil {
			return nil, err
		}
		if p != inv.Period() {
			other, err := uc.invoices.FindByMonthYear(ctx, userID, p)
			if err != nil {
				return nil, fmt.Errorf("billing: buscar periodo: %w", err)
			}
			if other != nil {
				return nil, fmt.Errorf("%w: %s", domain.ErrDuplicatePeriod, p.Label())
			}
		}
		inv.Month, inv.Year = p.Month, p.Year
	}
	if in.Status != nil {
		status := strings.ToLower(*in.Status)
		if !entity.ValidInvoiceStatus(status) || status == entity.InvoiceStatusTimbrado {
			return nil, fmt.Errorf("%w: estado %q no asignable", domain.ErrInvalidInput, *in.Status)
		}
		inv.Status = status
	}
	if in.Fecha != nil {
		inv.Fecha = *in.Fecha
	}
	if in.TipoCambio.Set {
		inv.TipoCambio = in.TipoCambio.Value
	}
	if in.Moneda != nil {
		inv.Moneda = strings.ToUpper(*in.Moneda)
	}
	if in.ReceptorRfc != nil {
		inv.ReceptorRfc = strings.ToUpper(strings.TrimSpace(*in.ReceptorRfc))
	}
	assign(&inv.FormaPago, in.FormaPago)
	assign(&inv.MetodoPago, in.MetodoPago)
	assign(&inv.LugarExpedicion, in.LugarExpedicion)
	assign(&inv.Exportacion, in.Exportacion)
	assign(&inv.ReceptorNombre, in.ReceptorNombre)
	assign(&inv.ReceptorCp, in.ReceptorCp)
	assign(&inv.ResidenciaFiscal, in.ResidenciaFiscal)
	assign(&inv.NumRegIdTrib, in.NumRegIdTrib)
	assign(&inv.RegimenFiscalReceptor, in.RegimenFiscalReceptor)
	assign(&inv.UsoCfdi, in.UsoCfdi)
	assign(&inv.BilledToName, in.BilledToName)
	assign(&inv.BilledToAddress, in.BilledToAddress)
	assign(&inv.BilledToPhone, in.BilledToPhone)
	assign(&inv.PaymentReference, in.PaymentReference)

	if in.Items != nil {
		items := itemsFromRequest(*in.Items)
		if err := validateItems(items); err != nil {
			return nil, err
		}
		inv.Items = items
	}
	inv.ApplyDefaults()
	inv.RecalculateTotals()

	if err := uc.invoices.Update(ctx, inv); err != nil {
		if errors.Is(err, domain.ErrInvoiceStamped) || errors.Is(err, domain.ErrDuplicatePeriod) || errors.Is(err, domain.ErrInvoiceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("billing: actualizar factura: %w", err)
	}
	return ToInvoiceResponse(inv), nil
}

// ── Bajas ─────────────────────────────────────────────────────────────────────

// Delete elimina una factura no timbrada.
func (uc *InvoiceUseCase) Delete(ctx context.Context, userID, id string) error {
	inv, err := uc.load(ctx, id, userID)
	if err != nil {
		return err
	}
	if inv.IsStamped() {
		return domain.ErrInvoiceStamped
	}
	if err := uc.invoices.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, domain.ErrInvoiceStamped) || errors.Is(err, domain.ErrInvoiceNotFound) {
			return err
		}
		return fmt.Errorf("billing: eliminar factura: %w", err)
	}
	return nil
}

// ── Consultas ─────────────────────────────────────────────────────────────────

// Get devuelve la factura del usuario.
func (uc *InvoiceUseCase) Get(ctx context.Context, userID, id string) (*dto.InvoiceResponse, error) {
	inv, err := uc.load(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return ToInvoiceResponse(inv), nil
}

// List devuelve las facturas del usuario, de la más reciente a la más antigua.
// year > 0 filtra por año.
func (uc *InvoiceUseCase) List(ctx context.Context, userID string, year int) ([]dto.InvoiceResponse, error) {
	var (
		invs []*entity.Invoice
		err  error
	)
	if year > 0 {
		invs, err = uc.invoices.FindAllByYear(ctx, userID, year)
	} else {
		invs, err = uc.invoices.FindAllByUser(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("billing: listar facturas: %w", err)
	}
	return ToInvoiceResponses(invs), nil
}

// GetByPeriod devuelve la factura del periodo o domain.ErrInvoiceNotFound.
func (uc *InvoiceUseCase) GetByPeriod(ctx context.Context, userID string, p period.MonthYear) (*dto.InvoiceResponse, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: periodo %d/%d", domain.ErrInvalidInput, p.Month, p.Year)
	}
	inv, err := uc.invoices.FindByMonthYear(ctx, userID, p)
	if err != nil {
		return nil, fmt.Errorf("billing: buscar periodo: %w", err)
	}
	if inv == nil {
		return nil, domain.ErrInvoiceNotFound
	}
	return ToInvoiceResponse(inv), nil
}

// ── Clonado ───────────────────────────────────────────────────────────────────

// Clone crea la factura del mes siguiente a partir de id. Copia los datos fiscales y
// comerciales, reemplaza la etiqueta del periodo ("October 2025" → "November 2025") en la
// referencia de pago y en cada descripción, y deja el tipo de cambio vacío para capturarlo de nuevo.
func (uc *InvoiceUseCase) Clone(ctx context.Context, userID, id string) (*dto.InvoiceResponse, error) {
	src, err := uc.load(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return uc.cloneFrom(ctx, src)
}

// CloneLatest clona la factura más reciente del usuario.
func (uc *InvoiceUseCase) CloneLatest(ctx context.Context, userID string) (*dto.InvoiceResponse, error) {
	latest, err := uc.invoices.GetLatestByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("billing: última factura: %w", err)
	}
	if latest == nil {
		return nil, domain.ErrNoPreviousInvoice
	}
	return uc.cloneFrom(ctx, latest)
}

func (uc *InvoiceUseCase) cloneFrom(ctx context.Context, src *entity.Invoice) (*dto.InvoiceResponse, error) {
	next := src.Period().Next()
	oldLabel, newLabel := src.Period().Label(), next.Label()
	relabel := func(s string) string { return strings.Replace(s, oldLabel, newLabel, 1) }

	existing, err := uc.invoices.FindByMonthYear(ctx, src.UserID, next)
	if err != nil {
		return nil, fmt.Errorf("billing: buscar periodo: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrDuplicatePeriod, newLabel)
	}

	items := make([]entity.InvoiceItem, len(src.Items))
	for i, it := range src.Items {
		items[i] = entity.InvoiceItem{
			Position:      i,
			ClaveProdServ: it.ClaveProdServ,
			ClaveUnidad:   it.ClaveUnidad,
			Unidad:        it.Unidad,
			Cantidad:      it.Cantidad,
			Descripcion:   relabel(it.Descripcion),
			ValorUnitario: it.ValorUnitario,
			ObjetoImp:     it.ObjetoImp,
		}
	}

	clone := &entity.Invoice{
		UserID:                src.UserID,
		Month:                 next.Month,
		Year:                  next.Year,
		Fecha:                 uc.now(),
		FormaPago:             src.FormaPago,
		MetodoPago:            src.MetodoPago,
		Moneda:                src.Moneda,
		LugarExpedicion:       src.LugarExpedicion,
		Exportacion:           src.Exportacion,
		TipoComprobante:       src.TipoComprobante,
		ReceptorRfc:           src.ReceptorRfc,
		ReceptorNombre:        src.ReceptorNombre,
		ReceptorCp:            src.ReceptorCp,
		ResidenciaFiscal:      src.ResidenciaFiscal,
		NumRegIdTrib:          src.NumRegIdTrib,
		RegimenFiscalReceptor: src.RegimenFiscalReceptor,
		UsoCfdi:               src.UsoCfdi,
		BilledToName:          src.BilledToName,
		BilledToAddress:       src.BilledToAddress,
		BilledToPhone:         src.BilledToPhone,
		PaymentReference:      relabel(src.PaymentReference),
		Items:                 items,
		Status:                entity.InvoiceStatusDraft,
	}
	return uc.persistNew(ctx, clone)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (uc *InvoiceUseCase) load(ctx context.Context, id, userID string) (*entity.Invoice, error) {
	inv, err := uc.invoices.FindByID(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("billing: obtener factura: %w", err)
	}
	if inv == nil {
		return nil, domain.ErrInvoiceNotFound
	}
	return inv, nil
}

func validPeriod(month, year int) (period.MonthYear, error) {
	if year < minYear || year > maxYear {
		return period.MonthYear{}, fmt.Errorf("%w: año %d fuera de rango", domain.ErrInvalidInput, year)
	}
	p, err := period.New(month, year)
	if err != nil {
		return period.MonthYear{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return p, nil
}

func validateItems(items []entity.InvoiceItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: se requiere al menos un concepto", domain.ErrInvalidInput)
	}
	for i, it := range items {
		switch {
		case strings.TrimSpace(it.Descripcion) == "":
			return fmt.Errorf("%w: concepto %d sin descripción", domain.ErrInvalidInput, i+1)
		case it.Cantidad.LessThan(minCantidad):
			return fmt.Errorf("%w: concepto %d con cantidad menor a 0.01", domain.ErrInvalidInput, i+1)
		case it.ValorUnitario.IsNegative():
			return fmt.Errorf("%w: concepto %d con valor unitario negativo", domain.ErrInvalidInput, i+1)
		}
	}
	return nil
}

func assign(field *string, v *string) {
	if v != nil {
		*field = *v
	}
}
