package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/servo98/express-invoices/internal/application/dto"
	"github.com/servo98/express-invoices/internal/domain"
	"github.com/servo98/express-invoices/internal/infrastructure/pac"
)

// errorMapping traduce un error de dominio a status HTTP y código estable.
type errorMapping struct {
	target error
	status int
	code   string
}

var domainErrors = []errorMapping{
	{domain.ErrInvoiceNotFound, fiber.StatusNotFound, "INVOICE_NOT_FOUND"},
	{domain.ErrUserNotFound, fiber.StatusNotFound, "USER_NOT_FOUND"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrDuplicatePeriod, fiber.StatusConflict, "DUPLICATE_PERIOD"},
	{domain.ErrInvoiceStamped, fiber.StatusConflict, "INVOICE_STAMPED"},
	{domain.ErrAlreadyStamped, fiber.StatusConflict, "ALREADY_STAMPED"},
	{domain.ErrNotStamped, fiber.StatusConflict, "NOT_STAMPED"},
	{domain.ErrInvoiceCancelled, fiber.StatusConflict, "INVOICE_CANCELLED"},
	{domain.ErrNoPreviousInvoice, fiber.StatusConflict, "NO_PREVIOUS_INVOICE"},
	{domain.ErrStampPending, fiber.StatusConflict, "STAMP_PENDING"},
	{domain.ErrEmailAlreadyExists, fiber.StatusConflict, "EMAIL_EXISTS"},
	{domain.ErrMissingIssuerRFC, fiber.StatusUnprocessableEntity, "MISSING_ISSUER_RFC"},
	{domain.ErrSMTPNotConfigured, fiber.StatusUnprocessableEntity, "SMTP_NOT_CONFIGURED"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
	{domain.ErrPACNotConfigured, fiber.StatusServiceUnavailable, "PAC_NOT_CONFIGURED"},
}

// writeError responde con el status que corresponde al error; lo no reconocido es 500.
func writeError(c *fiber.Ctx, err error) error {
	if errors.Is(err, pac.ErrTimeout) {
		return c.Status(fiber.StatusGatewayTimeout).JSON(dto.ErrorResponse{Code: "PAC_TIMEOUT", Message: err.Error()})
	}
	var pacErr *pac.Error
	if errors.As(err, &pacErr) {
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "PAC_ERROR", Message: pacErr.Error()})
	}
	for _, m := range domainErrors {
		if errors.Is(err, m.target) {
			return c.Status(m.status).JSON(dto.ErrorResponse{Code: m.code, Message: err.Error()})
		}
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
