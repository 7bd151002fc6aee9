package http

import (
	"github.com/gofiber/fiber/v2"

	appanalytics "github.com/servo98/express-invoices/internal/application/analytics"
)

// DashboardHandler maneja los endpoints del tablero.
type DashboardHandler struct {
	uc *appanalytics.DashboardUseCase
}

// NewDashboardHandler construye el handler.
func NewDashboardHandler(uc *appanalytics.DashboardUseCase) *DashboardHandler {
	return &DashboardHandler{uc: uc}
}

// GetSummary devuelve el estado del periodo en curso y el acumulado del año.
// GET /api/dashboard/summary
//
// Respuesta: DashboardSummaryDTO (current_period, current_status, current_invoice,
// year_count, year_totals, stamped_count, recent[5]).
// No requiere parámetros; el periodo se calcula en el servidor.
func (h *DashboardHandler) GetSummary(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	summary, err := h.uc.GetSummary(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(summary)
}
