package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateInvoiceRequest body para POST /api/invoices. Los campos fiscales vacíos toman
// los valores del flujo de exportación de servicios.
type CreateInvoiceRequest struct {
	Month int        `json:"month"`
	Year  int        `json:"year"`
	Fecha *time.Time `json:"fecha,omitempty"` // por defecto, el momento del alta

	FormaPago       string           `json:"forma_pago,omitempty"`
	MetodoPago      string           `json:"metodo_pago,omitempty"`
	Moneda          string           `json:"moneda,omitempty"`
	TipoCambio      *decimal.Decimal `json:"tipo_cambio,omitempty"`
	LugarExpedicion string           `json:"lugar_expedicion,omitempty"`
	Exportacion     string           `json:"exportacion,omitempty"`

	ReceptorRfc           string `json:"receptor_rfc,omitempty"`
	ReceptorNombre        string `json:"receptor_nombre,omitempty"`
	ReceptorCp            string `json:"receptor_cp,omitempty"`
	ResidenciaFiscal      string `json:"residencia_fiscal,omitempty"`
	NumRegIdTrib          string `json:"num_reg_id_trib,omitempty"`
	RegimenFiscalReceptor string `json:"regimen_fiscal_receptor,omitempty"`
	UsoCfdi               string `json:"uso_cfdi,omitempty"`

	BilledToName     string `json:"billed_to_name,omitempty"`
	BilledToAddress  string `json:"billed_to_address,omitempty"`
	BilledToPhone    string `json:"billed_to_phone,omitempty"`
	PaymentReference string `json:"payment_reference,omitempty"`

	Items []InvoiceItemRequest `json:"items"`
}

// InvoiceItemRequest concepto capturado. El importe nunca se recibe: se calcula.
type InvoiceItemRequest struct {
	ClaveProdServ string          `json:"clave_prod_serv,omitempty"`
	ClaveUnidad   string          `json:"clave_unidad,omitempty"`
	Unidad        string          `json:"unidad,omitempty"`
	Cantidad      decimal.Decimal `json:"cantidad"`
	Descripcion   string          `json:"descripcion"`
	ValorUnitario decimal.Decimal `json:"valor_unitario"`
	ObjetoImp     string          `json:"objeto_imp,omitempty"`
}

// UpdateInvoiceRequest body para PUT /api/invoices/:id. Solo se aplican los campos presentes;
// si llegan conceptos se reemplazan todos y se recalculan los totales.
type UpdateInvoiceRequest struct {
	Month *int       `json:"month,omitempty"`
	Year  *int       `json:"year,omitempty"`
	Fecha *time.Time `json:"fecha,omitempty"`

	FormaPago       *string          `json:"forma_pago,omitempty"`
	MetodoPago      *string          `json:"metodo_pago,omitempty"`
	Moneda          *string          `json:"moneda,omitempty"`
	TipoCambio      OptionalDecimal  `json:"tipo_cambio,omitzero"` // null lo elimina
	LugarExpedicion *string          `json:"lugar_expedicion,omitempty"`
	Exportacion     *string          `json:"exportacion,omitempty"`

	ReceptorRfc           *string `json:"receptor_rfc,omitempty"`
	ReceptorNombre        *string `json:"receptor_nombre,omitempty"`
	ReceptorCp            *string `json:"receptor_cp,omitempty"`
	ResidenciaFiscal      *string `json:"residencia_fiscal,omitempty"`
	NumRegIdTrib          *string `json:"num_reg_id_trib,omitempty"`
	RegimenFiscalReceptor *string `json:"regimen_fiscal_receptor,omitempty"`
	UsoCfdi               *string `json:"uso_cfdi,omitempty"`

	BilledToName     *string `json:"billed_to_name,omitempty"`
	BilledToAddress  *string `json:"billed_to_address,omitempty"`
	BilledToPhone    *string `json:"billed_to_phone,omitempty"`
	PaymentReference *string `json:"payment_reference,omitempty"`

	// Status etiquetas auxiliares: draft, issued, sent, paid. Nunca timbrado.
	Status *string `json:"status,omitempty"`

	Items *[]InvoiceItemRequest `json:"items,omitempty"`
}

// OptionalDecimal campo decimal de una actualización parcial que distingue
// "ausente" (Set=false) de null explícito (Set=true, Value.Valid=false).
type OptionalDecimal struct {
	Set   bool
	Value decimal.NullDecimal
}

// SetDecimal valor presente.
func SetDecimal(d decimal.Decimal) OptionalDecimal {
	return OptionalDecimal{Set: true, Value: decimal.NewNullDecimal(d)}
}

// NullDecimal null explícito.
func NullDecimal() OptionalDecimal {
	return OptionalDecimal{Set: true}
}

// IsZero permite omitzero: un campo ausente no se serializa.
func (o OptionalDecimal) IsZero() bool { return !o.Set }

func (o OptionalDecimal) MarshalJSON() ([]byte, error) { return o.Value.MarshalJSON() }

func (o *OptionalDecimal) UnmarshalJSON(b []byte) error {
	o.Set = true
	return o.Value.UnmarshalJSON(b)
}

// InvoiceResponse factura con conceptos, impuestos y datos de timbrado.
type InvoiceResponse struct {
	ID     string    `json:"id"`
	UUID   string    `json:"uuid,omitempty"`
	Month  int       `json:"month"`
	Year   int       `json:"year"`
	Period string    `json:"period"` // "October 2025"
	Fecha  time.Time `json:"fecha"`

	FormaPago       string           `json:"forma_pago"`
	MetodoPago      string           `json:"metodo_pago"`
	Moneda          string           `json:"moneda"`
	TipoCambio      *decimal.Decimal `json:"tipo_cambio,omitempty"`
	LugarExpedicion string           `json:"lugar_expedicion"`
	Exportacion     string           `json:"exportacion"`
	TipoComprobante string           `json:"tipo_comprobante"`

	ReceptorRfc           string `json:"receptor_rfc"`
	ReceptorNombre        string `json:"receptor_nombre"`
	ReceptorCp            string `json:"receptor_cp"`
	ResidenciaFiscal      string `json:"residencia_fiscal,omitempty"`
	NumRegIdTrib          string `json:"num_reg_id_trib,omitempty"`
	RegimenFiscalReceptor string `json:"regimen_fiscal_receptor"`
	UsoCfdi               string `json:"uso_cfdi"`

	BilledToName     string `json:"billed_to_name,omitempty"`
	BilledToAddress  string `json:"billed_to_address,omitempty"`
	BilledToPhone    string `json:"billed_to_phone,omitempty"`
	PaymentReference string `json:"payment_reference,omitempty"`

	Items []InvoiceItemResponse `json:"items"`
	Taxes []InvoiceTaxResponse  `json:"taxes"`

	Subtotal                  decimal.Decimal `json:"subtotal"`
	TotalImpuestosTrasladados decimal.Decimal `json:"total_impuestos_trasladados"`
	TotalImpuestosRetenidos   decimal.Decimal `json:"total_impuestos_retenidos"`
	Total                     decimal.Decimal `json:"total"`
	TotalFormatted            string          `json:"total_formatted"`

	Status      string        `json:"status"`
	Stamp       *CFDIStampDTO `json:"cfdi,omitempty"`
	CancelledAt *time.Time    `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// InvoiceItemResponse concepto en respuestas.
type InvoiceItemResponse struct {
	ID            string          `json:"id"`
	ClaveProdServ string          `json:"clave_prod_serv"`
	ClaveUnidad   string          `json:"clave_unidad"`
	Unidad        string          `json:"unidad"`
	Cantidad      decimal.Decimal `json:"cantidad"`
	Descripcion   string          `json:"descripcion"`
	ValorUnitario decimal.Decimal `json:"valor_unitario"`
	Importe       decimal.Decimal `json:"importe"`
	ObjetoImp     string          `json:"objeto_imp"`
}

// InvoiceTaxResponse impuesto agregado en respuestas.
type InvoiceTaxResponse struct {
	Tipo       string          `json:"tipo"`
	Impuesto   string          `json:"impuesto"`
	Base       decimal.Decimal `json:"base"`
	TipoFactor string          `json:"tipo_factor"`
	TasaOCuota decimal.Decimal `json:"tasa_o_cuota"`
	Importe    decimal.Decimal `json:"importe"`
}

// CFDIStampDTO artefactos del timbrado (sin el XML completo; ver /xml).
type CFDIStampDTO struct {
	FechaTimbrado    string `json:"fecha_timbrado"`
	SelloCFD         string `json:"sello_cfd"`
	SelloSAT         string `json:"sello_sat"`
	NoCertificadoSAT string `json:"no_certificado_sat"`
	CadenaOriginal   string `json:"cadena_original"`
}

// CancelInvoiceRequest body para POST /api/invoices/:id/cancel.
type CancelInvoiceRequest struct {
	Motivo           string `json:"motivo"`
	FolioSustitucion string `json:"folio_sustitucion,omitempty"`
}

// CancelInvoiceResponse resultado de la cancelación ante el PAC.
type CancelInvoiceResponse struct {
	Invoice InvoiceResponse `json:"invoice"`
	Status  string          `json:"status"`
	Message string          `json:"message"`
}

// SendInvoiceEmailRequest body para POST /api/invoices/:id/email.
type SendInvoiceEmailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body,omitempty"`
}

// ExchangeRateResponse tipo de cambio USD/MXN.
type ExchangeRateResponse struct {
	Rate   decimal.Decimal `json:"rate"`
	Date   string          `json:"date"`
	Source string          `json:"source"`
}

// ReminderSweepResponse resultado del barrido de recordatorios.
type ReminderSweepResponse struct {
	Sent    int      `json:"sent"`
	Skipped int      `json:"skipped"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}
