package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servo98/express-invoices/internal/application/analytics"
	"github.com/servo98/express-invoices/internal/domain/entity"
	"github.com/servo98/express-invoices/internal/infrastructure/memory"
)

const userID = "user-1"

func seed(t *testing.T, repo *memory.InvoiceRepository, month, year int, moneda, total, status string) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &entity.Invoice{
		UserID: userID, Month: month, Year: year, Moneda: moneda,
		Total: decimal.RequireFromString(total), Status: status,
	}))
}

func TestGetSummary_PeriodoPendienteYTotalesPorMoneda(t *testing.T) {
	repo := memory.NewInvoiceRepository()
	seed(t, repo, 1, 2025, "USD", "1000", entity.InvoiceStatusTimbrado)
	seed(t, repo, 2, 2025, "USD", "1500.50", entity.InvoiceStatusDraft)
	seed(t, repo, 3, 2025, "MXN", "20000", entity.InvoiceStatusDraft)
	seed(t, repo, 12, 2024, "USD", "999", entity.InvoiceStatusTimbrado)

	uc := analytics.NewDashboardUseCase(repo).WithClock(func() time.Time {
		return time.Date(2025, time.April, 10, 12, 0, 0, 0, time.UTC)
	})
	out, err := uc.GetSummary(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, "April 2025", out.CurrentPeriod)
	assert.Equal(t, analytics.StatusPending, out.CurrentStatus)
	assert.Nil(t, out.CurrentInvoice)
	assert.Equal(t, 2025, out.Year)
	assert.Equal(t, 3, out.YearCount)
	assert.Equal(t, 1, out.StampedCount)

	require.Len(t, out.YearTotals, 2)
	assert.Equal(t, "MXN", out.YearTotals[0].Moneda)
	assert.Equal(t, "USD", out.YearTotals[1].Moneda)
	assert.True(t, out.YearTotals[1].Total.Equal(decimal.RequireFromString("2500.5")))

	require.Len(t, out.Recent, 4)
	assert.Equal(t, 3, out.Recent[0].Month)
}

func TestGetSummary_FacturaDelPeriodoYRecientesLimitadas(t *testing.T) {
	repo := memory.NewInvoiceRepository()
	for m := 1; m <= 7; m++ {
		seed(t, repo, m, 2025, "USD", "100", entity.InvoiceStatusTimbrado)
	}
	uc := analytics.NewDashboardUseCase(repo).WithClock(func() time.Time {
		return time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	})
	out, err := uc.GetSummary(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, entity.InvoiceStatusTimbrado, out.CurrentStatus)
	require.NotNil(t, out.CurrentInvoice)
	assert.Equal(t, 7, out.CurrentInvoice.Month)
	assert.Len(t, out.Recent, 5)
	assert.Equal(t, 7, out.StampedCount)
}
