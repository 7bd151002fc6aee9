// Package analytics contiene el resumen del tablero: factura del mes en curso,
// acumulado del año y facturas recientes.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/servo98/express-invoices/internal/application/billing"
	"github.com/servo98/express-invoices/internal/application/dto"
	"github.com/servo98/express-invoices/internal/domain/entity"
	"github.com/servo98/express-invoices/internal/domain/repository"
	"github.com/servo98/express-invoices/pkg/money"
	"github.com/servo98/express-invoices/pkg/period"
)

const dashboardRecent = 5 // facturas recientes en el widget del tablero

// StatusPending estado mostrado cuando el periodo en curso aún no tiene factura.
const StatusPending = "pending"

// DashboardUseCase genera el resumen del tablero.
//
// Fuente de datos: InvoiceRepository (consultas read-only).
type DashboardUseCase struct {
	invoices repository.InvoiceRepository
	now      func() time.Time
}

// NewDashboardUseCase construye el caso de uso.
func NewDashboardUseCase(invoices repository.InvoiceRepository) *DashboardUseCase {
	return &DashboardUseCase{invoices: invoices, now: time.Now}
}

// WithClock reemplaza el reloj (pruebas).
func (uc *DashboardUseCase) WithClock(now func() time.Time) *DashboardUseCase {
	uc.now = now
	return uc
}

// GetSummary construye el DashboardSummaryDTO del usuario.
//
// Tres consultas en paralelo:
//  1. FindByMonthYear(periodo en curso) → CurrentInvoice + CurrentStatus
//  2. FindAllByYear(año en curso)       → YearCount + YearTotals + StampedCount
//  3. FindAllByUser                     → Recent (top 5)
func (uc *DashboardUseCase) GetSummary(ctx context.Context, userID string) (*dto.DashboardSummaryDTO, error) {
	current := period.Current(uc.now())

	type oneResult struct {
		inv *entity.Invoice
		err error
	}
	type listResult struct {
		invs []*entity.Invoice
		err  error
	}

	currentCh := make(chan oneResult, 1)
	yearCh := make(chan listResult, 1)
	recentCh := make(chan listResult, 1)

	go func() {
		inv, err := uc.invoices.FindByMonthYear(ctx, userID, current)
		currentCh <- oneResult{inv, err}
	}()
	go func() {
		invs, err := uc.invoices.FindAllByYear(ctx, userID, current.Year)
		yearCh <- listResult{invs, err}
	}()
	go func() {
		invs, err := uc.invoices.FindAllByUser(ctx, userID)
		recentCh <- listResult{invs, err}
	}()

	cur := <-currentCh
	year := <-yearCh
	recent := <-recentCh

	if cur.err != nil {
		return nil, fmt.Errorf("dashboard: factura del periodo: %w", cur.err)
	}
	if year.err != nil {
		return nil, fmt.Errorf("dashboard: facturas del año: %w", year.err)
	}
	if recent.err != nil {
		return nil, fmt.Errorf("dashboard: facturas recientes: %w", recent.err)
	}

	out := &dto.DashboardSummaryDTO{
		CurrentPeriod: current.Label(),
		CurrentStatus: StatusPending,
		Year:          current.Year,
		YearCount:     len(year.invs),
		YearTotals:    totalsByCurrency(year.invs),
		Recent:        billing.ToInvoiceResponses(firstN(recent.invs, dashboardRecent)),
	}
	if cur.inv != nil {
		out.CurrentInvoice = billing.ToInvoiceResponse(cur.inv)
		out.CurrentStatus = cur.inv.Status
	}
	for _, inv := range year.invs {
		if inv.IsStamped() {
			out.StampedCount++
		}
	}
	return out, nil
}

// totalsByCurrency suma totales por moneda, ordenado por código.
func totalsByCurrency(invs []*entity.Invoice) []dto.CurrencyTotalDTO {
	sums := map[string]decimal.Decimal{}
	for _, inv := range invs {
		sums[inv.Moneda] = sums[inv.Moneda].Add(inv.Total)
	}
	out := make([]dto.CurrencyTotalDTO, 0, len(sums))
	for moneda, total := range sums {
		out = append(out, dto.CurrencyTotalDTO{
			Moneda:    moneda,
			Total:     total.Round(2),
			Formatted: money.FormatCurrency(total, moneda),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Moneda < out[j].Moneda })
	return out
}

func firstN(invs []*entity.Invoice, n int) []*entity.Invoice {
	if len(invs) > n {
		return invs[:n]
	}
	return invs
}
