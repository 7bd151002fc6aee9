package billing

import (
	"github.com/shopspring/decimal"

	"github.com/servo98/express-invoices/internal/application/dto"
	"github.com/servo98/express-invoices/internal/domain/entity"
	"github.com/servo98/express-invoices/pkg/money"
)

// ToInvoiceResponse convierte la entidad en la respuesta de la API.
func ToInvoiceResponse(inv *entity.Invoice) *dto.InvoiceResponse {
	out := &dto.InvoiceResponse{
		ID:                        inv.ID,
		UUID:                      inv.UUID,
		Month:                     inv.Month,
		Year:                      inv.Year,
		Period:                    inv.Period().Label(),
		Fecha:                     inv.Fecha,
		FormaPago:                 inv.FormaPago,
		MetodoPago:                inv.MetodoPago,
		Moneda:                    inv.Moneda,
		LugarExpedicion:           inv.LugarExpedicion,
		Exportacion:               inv.Exportacion,
		TipoComprobante:           inv.TipoComprobante,
		ReceptorRfc:               inv.ReceptorRfc,
		ReceptorNombre:            inv.ReceptorNombre,
		ReceptorCp:                inv.ReceptorCp,
		ResidenciaFiscal:          inv.ResidenciaFiscal,
		NumRegIdTrib:              inv.NumRegIdTrib,
		RegimenFiscalReceptor:     inv.RegimenFiscalReceptor,
		UsoCfdi:                   inv.UsoCfdi,
		BilledToName:              inv.BilledToName,
		BilledToAddress:           inv.BilledToAddress,
		BilledToPhone:             inv.BilledToPhone,
		PaymentReference:          inv.PaymentReference,
		Items:                     make([]dto.InvoiceItemResponse, 0, len(inv.Items)),
		Taxes:                     make([]dto.InvoiceTaxResponse, 0, len(inv.Taxes)),
		Subtotal:                  inv.Subtotal,
		TotalImpuestosTrasladados: inv.TotalImpuestosTrasladados,
		TotalImpuestosRetenidos:   inv.TotalImpuestosRetenidos,
		Total:                     inv.Total,
		TotalFormatted:            money.FormatCurrency(inv.Total, inv.Moneda),
		Status:                    inv.Status,
		CancelledAt:               inv.CancelledAt,
		CreatedAt:                 inv.CreatedAt,
		UpdatedAt:                 inv.UpdatedAt,
	}
	if inv.TipoCambio.Valid {
		tc := inv.TipoCambio.Decimal
		out.TipoCambio = &tc
	}
	for _, it := range inv.Items {
		out.Items = append(out.Items, dto.InvoiceItemResponse{
			ID:            it.ID,
			ClaveProdServ: it.ClaveProdServ,
			ClaveUnidad:   it.ClaveUnidad,
			Unidad:        it.Unidad,
			Cantidad:      it.Cantidad,
			Descripcion:   it.Descripcion,
			ValorUnitario: it.ValorUnitario,
			Importe:       it.Importe,
			ObjetoImp:     it.ObjetoImp,
		})
	}
	for _, tx := range inv.Taxes {
		out.Taxes = append(out.Taxes, dto.InvoiceTaxResponse{
			Tipo:       tx.Tipo,
			Impuesto:   tx.Impuesto,
			Base:       tx.Base,
			TipoFactor: tx.TipoFactor,
			TasaOCuota: tx.TasaOCuota,
			Importe:    tx.Importe,
		})
	}
	if inv.Stamp != nil {
		out.Stamp = &dto.CFDIStampDTO{
			FechaTimbrado:    inv.Stamp.FechaTimbrado,
			SelloCFD:         inv.Stamp.SelloCFD,
			SelloSAT:         inv.Stamp.SelloSAT,
			NoCertificadoSAT: inv.Stamp.NoCertificadoSAT,
			CadenaOriginal:   inv.Stamp.CadenaOriginal,
		}
	}
	return out
}

// ToInvoiceResponses convierte una lista conservando el orden.
func ToInvoiceResponses(invs []*entity.Invoice) []dto.InvoiceResponse {
	out := make([]dto.InvoiceResponse, 0, len(invs))
	for _, inv := range invs {
		out = append(out, *ToInvoiceResponse(inv))
	}
	return out
}

func itemsFromRequest(in []dto.InvoiceItemRequest) []entity.InvoiceItem {
	items := make([]entity.InvoiceItem, 0, len(in))
	for i, it := range in {
		items = append(items, entity.InvoiceItem{
			Position:      i,
			ClaveProdServ: it.ClaveProdServ,
			ClaveUnidad:   it.ClaveUnidad,
			Unidad:        it.Unidad,
			Cantidad:      it.Cantidad,
			Descripcion:   it.Descripcion,
			ValorUnitario: it.ValorUnitario,
			ObjetoImp:     it.ObjetoImp,
		})
	}
	return items
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
