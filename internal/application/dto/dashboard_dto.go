package dto

import "github.com/shopspring/decimal"

// DashboardSummaryDTO respuesta de GET /api/dashboard/summary.
// Estado del periodo en curso, acumulado del año y las últimas facturas.
type DashboardSummaryDTO struct {
	// Periodo en curso
	CurrentPeriod  string           `json:"current_period"` // ej: "October 2025"
	CurrentStatus  string           `json:"current_status"` // estado de la factura o "pending" si no existe
	CurrentInvoice *InvoiceResponse `json:"current_invoice,omitempty"`

	// Acumulado del año en curso
	Year         int                `json:"year"`
	YearCount    int                `json:"year_count"`
	YearTotals   []CurrencyTotalDTO `json:"year_totals"` // una entrada por moneda
	StampedCount int                `json:"stamped_count"`

	// Últimas 5 facturas (año y mes descendentes)
	Recent []InvoiceResponse `json:"recent"`
}

// CurrencyTotalDTO suma de totales en una moneda.
type CurrencyTotalDTO struct {
	Moneda    string          `json:"moneda"`
	Total     decimal.Decimal `json:"total"`
	Formatted string          `json:"formatted"` // ej: "$60,000.00"
}
