package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/servo98/express-invoices/internal/application/dto"
	"github.com/servo98/express-invoices/internal/infrastructure/exchange"
)

// RateSource fuente del tipo de cambio USD/MXN.
type RateSource interface {
	GetUsdToMxn(ctx context.Context) exchange.Rate
}

// ExchangeHandler expone el tipo de cambio del día.
type ExchangeHandler struct {
	rates RateSource
}

// NewExchangeHandler construye el handler.
func NewExchangeHandler(rates RateSource) *ExchangeHandler {
	return &ExchangeHandler{rates: rates}
}

// UsdToMxn GET /api/exchange-rate
func (h *ExchangeHandler) UsdToMxn(c *fiber.Ctx) error {
	r := h.rates.GetUsdToMxn(c.UserContext())
	return c.JSON(dto.ExchangeRateResponse{Rate: r.Value, Date: r.Date, Source: r.Source})
}
