package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/servo98/express-invoices/pkg/period"
	"github.com/servo98/express-invoices/pkg/sat"
)

// Estados del ciclo de vida de una factura. Solo draft -> timbrado tiene reglas propias;
// issued, sent y paid son etiquetas informativas.
const (
	InvoiceStatusDraft    = "draft"
	InvoiceStatusIssued   = "issued"
	InvoiceStatusTimbrado = "timbrado"
	InvoiceStatusSent     = "sent"
	InvoiceStatusPaid     = "paid"
)

// ValidInvoiceStatus indica si el estado es uno de los conocidos.
func ValidInvoiceStatus(s string) bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusIssued, InvoiceStatusTimbrado, InvoiceStatusSent, InvoiceStatusPaid:
		return true
	}
	return false
}

// Invoice representa el comprobante fiscal del periodo (un mes de servicios facturados).
type Invoice struct {
	ID     string
	UserID string
	UUID   string // folio fiscal asignado por el PAC al timbrar (mayúsculas, 36 caracteres)

	Month int
	Year  int
	Fecha time.Time

	// Encabezado fiscal
	FormaPago       string
	MetodoPago      string
	Moneda          string
	TipoCambio      decimal.NullDecimal // obligatorio en el CFDI solo si Moneda != MXN
	LugarExpedicion string
	Exportacion     string
	TipoComprobante string

	// Receptor
	ReceptorRfc           string
	ReceptorNombre        string
	ReceptorCp            string
	ResidenciaFiscal      string
	NumRegIdTrib          string
	RegimenFiscalReceptor string
	UsoCfdi               string

	// Solo factura comercial (no forman parte del CFDI)
	BilledToName     string
	BilledToAddress  string
	BilledToPhone    string
	PaymentReference string

	Items []InvoiceItem
	Taxes []InvoiceTax

	Subtotal                  decimal.Decimal
	TotalImpuestosTrasladados decimal.Decimal
	TotalImpuestosRetenidos   decimal.Decimal
	Total                     decimal.Decimal

	Status string
	// Stamp es nil antes del timbrado y completo después; nunca parcial.
	Stamp       *CFDIStamp
	CancelledAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CFDIStamp artefactos del timbrado devueltos por el PAC.
type CFDIStamp struct {
	XML              string
	SelloCFD         string
	SelloSAT         string
	FechaTimbrado    string
	NoCertificadoSAT string
	CadenaOriginal   string
}

// StampResult resultado normalizado del PAC, independiente del proveedor.
type StampResult struct {
	UUID string
	CFDIStamp
}

// Missing nombra los artefactos vacíos. Un timbre se guarda completo o no se guarda.
func (r StampResult) Missing() []string {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"UUID", r.UUID},
		{"xml", r.XML},
		{"CadenaOriginal", r.CadenaOriginal},
		{"SelloCFD", r.SelloCFD},
		{"SelloSAT", r.SelloSAT},
		{"NoCertificadoSAT", r.NoCertificadoSAT},
		{"FechaTimbrado", r.FechaTimbrado},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// StampResult reúne UUID y artefactos persistidos; nil si no hay timbre.
func (i *Invoice) StampResult() *StampResult {
	if i.Stamp == nil {
		return nil
	}
	return &StampResult{UUID: i.UUID, CFDIStamp: *i.Stamp}
}

// Period devuelve el periodo (mes/año) de la factura.
func (i *Invoice) Period() period.MonthYear {
	return period.MonthYear{Month: i.Month, Year: i.Year}
}

// IsStamped indica si la factura ya fue timbrada (documento legal inmutable).
func (i *Invoice) IsStamped() bool {
	return i.Status == InvoiceStatusTimbrado
}

// ApplyStamp marca la factura como timbrada y copia los artefactos del PAC.
func (i *Invoice) ApplyStamp(res *StampResult) {
	stamp := res.CFDIStamp
	i.UUID = res.UUID
	i.Stamp = &stamp
	i.Status = InvoiceStatusTimbrado
}

// RecalculateTotals recalcula importe = valorUnitario × cantidad en cada concepto
// (redondeado a ImporteScale decimales, la precisión con que se guarda),
// subtotal = total = Σ importe, y regenera el par de impuestos al 0% (traslado IVA,
// retención ISR) del tratamiento de exportación de servicios.
func (i *Invoice) RecalculateTotals() {
	subtotal := decimal.Zero
	for k := range i.Items {
		i.Items[k].Importe = i.Items[k].ValorUnitario.Mul(i.Items[k].Cantidad).Round(ImporteScale)
		subtotal = subtotal.Add(i.Items[k].Importe)
	}
	i.Subtotal = subtotal
	i.TotalImpuestosTrasladados = decimal.Zero
	i.TotalImpuestosRetenidos = decimal.Zero
	i.Total = subtotal
	i.Taxes = DefaultTaxes(subtotal)
}

// ImporteScale decimales con que se persisten importes y totales (NUMERIC(18,6)).
const ImporteScale = 6

// ApplyDefaults completa con los valores del flujo de exportación los campos vacíos.
// En moneda nacional el comprobante no lleva TipoCambio.
func (i *Invoice) ApplyDefaults() {
	setDefault(&i.FormaPago, sat.DefaultFormaPago)
	setDefault(&i.MetodoPago, sat.DefaultMetodoPago)
	setDefault(&i.Moneda, sat.DefaultMoneda)
	if i.Moneda == sat.MonedaNacional {
		i.TipoCambio = decimal.NullDecimal{}
	}
	setDefault(&i.Exportacion, sat.DefaultExportacion)
	setDefault(&i.TipoComprobante, sat.TipoComprobanteIngreso)
	setDefault(&i.ReceptorRfc, sat.RFCGenericoExtranjero)
	setDefault(&i.RegimenFiscalReceptor, sat.DefaultRegimenFiscalReceptor)
	setDefault(&i.UsoCfdi, sat.DefaultUsoCFDI)
	if i.ReceptorRfc == sat.RFCGenericoExtranjero {
		setDefault(&i.ResidenciaFiscal, sat.DefaultResidenciaFiscal)
	}
	for k := range i.Items {
		i.Items[k].ApplyDefaults()
	}
}

// DefaultTaxes par de impuestos agregados al 0% sobre la base indicada.
func DefaultTaxes(base decimal.Decimal) []InvoiceTax {
	return []InvoiceTax{
		{
			Tipo:       TaxTipoTraslado,
			Impuesto:   sat.ImpuestoIVA,
			Base:       base,
			TipoFactor: sat.TipoFactorTasa,
			TasaOCuota: decimal.Zero,
			Importe:    decimal.Zero,
		},
		{
			Tipo:       TaxTipoRetencion,
			Impuesto:   sat.ImpuestoISR,
			Base:       base,
			TipoFactor: sat.TipoFactorTasa,
			TasaOCuota: decimal.Zero,
			Importe:    decimal.Zero,
		},
	}
}

func setDefault(field *string, def string) {
	if *field == "" {
		*field = def
	}
}
