package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/servo98/express-invoices/internal/application/billing"
	"github.com/servo98/express-invoices/internal/application/dto"
)

// DocumentHandler descargas (XML, PDF, ZIP) y envío por correo.
type DocumentHandler struct {
	uc *billing.DocumentsUseCase
}

// NewDocumentHandler construye el handler.
func NewDocumentHandler(uc *billing.DocumentsUseCase) *DocumentHandler {
	return &DocumentHandler{uc: uc}
}

// XML GET /api/invoices/:id/xml
func (h *DocumentHandler) XML(c *fiber.Ctx) error {
	return h.download(c, h.uc.GenerateXML)
}

// PDF GET /api/invoices/:id/pdf
func (h *DocumentHandler) PDF(c *fiber.Ctx) error {
	return h.download(c, h.uc.GeneratePDF)
}

// Bundle GET /api/invoices/:id/bundle
func (h *DocumentHandler) Bundle(c *fiber.Ctx) error {
	return h.download(c, h.uc.DownloadBundle)
}

// Email godoc
// @Summary      Enviar factura por correo (ZIP con PDF y XML)
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id    path  string                       true  "ID de la factura"
// @Param        body  body  dto.SendInvoiceEmailRequest  true  "destinatario, asunto y cuerpo"
// @Success      200   {object}  map[string]bool
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/email [post]
func (h *DocumentHandler) Email(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var in dto.SendInvoiceEmailRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if err := h.uc.SendEmail(c.UserContext(), userID, c.Params("id"), in.To, in.Subject, in.Body); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

type documentFunc func(ctx context.Context, userID, invoiceID string) (*billing.Document, error)

func (h *DocumentHandler) download(c *fiber.Ctx, build documentFunc) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	doc, err := build(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	c.Attachment(doc.Name)
	c.Set(fiber.HeaderContentType, doc.ContentType)
	return c.Send(doc.Data)
}
