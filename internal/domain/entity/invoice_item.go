package entity

import (
	"github.com/shopspring/decimal"

	"github.com/servo98/express-invoices/pkg/sat"
)

// Tipos de impuesto agregado de la factura.
const (
	TaxTipoTraslado  = "traslado"
	TaxTipoRetencion = "retencion"
)

// InvoiceItem representa un concepto de la factura, en el orden en que se captura.
type InvoiceItem struct {
	ID            string
	InvoiceID     string
	Position      int
	ClaveProdServ string
	ClaveUnidad   string
	Unidad        string
	Cantidad      decimal.Decimal
	Descripcion   string
	ValorUnitario decimal.Decimal
	Importe       decimal.Decimal // siempre valorUnitario × cantidad
	ObjetoImp     string
}

// ApplyDefaults completa las claves SAT vacías del concepto.
func (it *InvoiceItem) ApplyDefaults() {
	setDefault(&it.ClaveProdServ, sat.DefaultClaveProdServ)
	setDefault(&it.ClaveUnidad, sat.DefaultClaveUnidad)
	setDefault(&it.Unidad, sat.DefaultUnidad)
	setDefault(&it.ObjetoImp, sat.DefaultObjetoImp)
}

// InvoiceTax impuesto agregado (traslado o retención) de la factura.
type InvoiceTax struct {
	ID         string
	InvoiceID  string
	Tipo       string // traslado | retencion
	Impuesto   string // 002 IVA | 001 ISR
	Base       decimal.Decimal
	TipoFactor string
	TasaOCuota decimal.Decimal
	Importe    decimal.Decimal
}
