// Package cfdi serializa facturas al formato CFDI 4.0 del SAT.
package cfdi

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/servo98/express-invoices/internal/domain/entity"
	"github.com/servo98/express-invoices/pkg/money"
	"github.com/servo98/express-invoices/pkg/sat"
)

const (
	// fechaLayout hora civil local sin zona horaria, como exige el atributo Fecha.
	fechaLayout = "2006-01-02T15:04:05"
	xmlDecl     = `<?xml version="1.0" encoding="utf-8"?>` + "\n"
	prefix      = "cfdi:"
)

// tasaCero TasaOCuota e Importe fijos del tratamiento de exportación de servicios.
var tasaCero = money.CfdiRate(decimal.Zero)

// XMLBuilderService construye el XML CFDI 4.0 sin sello a partir de la factura y el emisor.
// Es una transformación pura: no valida reglas de negocio ni hace I/O.
type XMLBuilderService struct {
	loc *time.Location
}

// Option configura el XMLBuilderService.
type Option func(*XMLBuilderService)

// WithLocation zona horaria en la que se expresa Fecha (por defecto time.Local).
func WithLocation(loc *time.Location) Option {
	return func(s *XMLBuilderService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// NewXMLBuilderService crea el servicio.
func NewXMLBuilderService(opts ...Option) *XMLBuilderService {
	s := &XMLBuilderService{loc: time.Local}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate devuelve el documento CFDI 4.0 con declaración UTF-8 e indentación de dos espacios.
// Con la misma entrada produce siempre los mismos bytes.
func (s *XMLBuilderService) Generate(inv *entity.Invoice, user *entity.User) ([]byte, error) {
	if inv == nil || user == nil {
		return nil, fmt.Errorf("cfdi: faltan factura o emisor")
	}
	var buf bytes.Buffer
	buf.WriteString(xmlDecl)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	root := element("Comprobante", s.comprobanteAttrs(inv, user)...)
	if err := enc.EncodeToken(root); err != nil {
		return nil, fmt.Errorf("cfdi: abrir Comprobante: %w", err)
	}

	// ---- Emisor y Receptor
	if err := writeEmpty(enc, "Emisor", emisorAttrs(user)...); err != nil {
		return nil, err
	}
	if err := writeEmpty(enc, "Receptor", receptorAttrs(inv, user)...); err != nil {
		return nil, err
	}

	// ---- Conceptos (cada uno con su traslado IVA y retención ISR al 0%)
	if err := s.writeConceptos(enc, inv.Items); err != nil {
		return nil, err
	}

	// ---- Impuestos globales
	if err := s.writeImpuestos(enc, inv); err != nil {
		return nil, err
	}

	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, fmt.Errorf("cfdi: cerrar Comprobante: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("cfdi: flush: %w", err)
	}
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

func (s *XMLBuilderService) comprobanteAttrs(inv *entity.Invoice, user *entity.User) []xml.Attr {
	attrs := []xml.Attr{
		attr("xsi:schemaLocation", sat.SchemaLocationCFDI),
		attr("Version", sat.CFDIVersion),
		attr("Fecha", inv.Fecha.In(s.loc).Format(fechaLayout)),
		attr("FormaPago", inv.FormaPago),
		attr("SubTotal", money.CfdiTotal(inv.Subtotal)),
		attr("Moneda", inv.Moneda),
	}
	if inv.TipoCambio.Valid {
		attrs = append(attrs, attr("TipoCambio", money.CfdiRate(inv.TipoCambio.Decimal)))
	}
	tipo := inv.TipoComprobante
	if tipo == "" {
		tipo = sat.TipoComprobanteIngreso
	}
	lugar := inv.LugarExpedicion
	if lugar == "" {
		lugar = user.CodigoPostal
	}
	return append(attrs,
		attr("Total", money.CfdiTotal(inv.Total)),
		attr("TipoDeComprobante", tipo),
		attr("Exportacion", inv.Exportacion),
		attr("MetodoPago", inv.MetodoPago),
		attr("LugarExpedicion", lugar),
		attr("xmlns:cfdi", sat.NamespaceCFDI),
		attr("xmlns:xsi", sat.NamespaceXSI),
	)
}

func emisorAttrs(user *entity.User) []xml.Attr {
	regimen := user.RegimenFiscal
	if regimen == "" {
		regimen = sat.DefaultRegimenFiscalEmisor
	}
	// Caser no es seguro entre goroutines; se crea por llamada.
	upper := cases.Upper(language.LatinAmericanSpanish)
	return []xml.Attr{
		attr("Rfc", user.RFC),
		attr("Nombre", upper.String(user.LegalName())),
		attr("RegimenFiscal", regimen),
	}
}

func receptorAttrs(inv *entity.Invoice, user *entity.User) []xml.Attr {
	rfc := inv.ReceptorRfc
	if rfc == "" {
		rfc = sat.RFCGenericoExtranjero
	}
	nombre := inv.ReceptorNombre
	if nombre == "" {
		nombre = sat.NombreGenericoExtranjero
	}
	domicilio := inv.ReceptorCp
	if domicilio == "" {
		domicilio = user.CodigoPostal
	}
	regimen := inv.RegimenFiscalReceptor
	if regimen == "" {
		regimen = sat.DefaultRegimenFiscalReceptor
	}
	attrs := []xml.Attr{
		attr("Rfc", rfc),
		attr("Nombre", nombre),
		attr("DomicilioFiscalReceptor", domicilio),
		attr("RegimenFiscalReceptor", regimen),
		attr("UsoCFDI", inv.UsoCfdi),
	}
	// Receptores extranjeros requieren residencia e identificación fiscal; los nacionales las omiten.
	if inv.ResidenciaFiscal != "" {
		attrs = append(attrs, attr("ResidenciaFiscal", inv.ResidenciaFiscal))
	}
	if inv.NumRegIdTrib != "" {
		attrs = append(attrs, attr("NumRegIdTrib", inv.NumRegIdTrib))
	}
	return attrs
}

func (s *XMLBuilderService) writeConceptos(enc *xml.Encoder, items []entity.InvoiceItem) error {
	conceptos := element("Conceptos")
	if err := enc.EncodeToken(conceptos); err != nil {
		return err
	}
	for _, it := range items {
		concepto := element("Concepto",
			attr("ClaveProdServ", it.ClaveProdServ),
			attr("Cantidad", money.Plain(it.Cantidad)),
			attr("ClaveUnidad", it.ClaveUnidad),
			attr("Unidad", it.Unidad),
			attr("Descripcion", it.Descripcion),
			attr("ValorUnitario", money.Plain(it.ValorUnitario)),
			attr("Importe", money.CfdiAmount(it.Importe)),
			attr("ObjetoImp", it.ObjetoImp),
		)
		base := money.CfdiAmount(it.Importe)
		err := writeNested(enc, concepto, func() error {
			return writeNested(enc, element("Impuestos"), func() error {
				if err := writeNested(enc, element("Traslados"), func() error {
					return writeEmpty(enc, "Traslado", taxAttrs(base, sat.ImpuestoIVA)...)
				}); err != nil {
					return err
				}
				return writeNested(enc, element("Retenciones"), func() error {
					return writeEmpty(enc, "Retencion", taxAttrs(base, sat.ImpuestoISR)...)
				})
			})
		})
		if err != nil {
			return fmt.Errorf("cfdi: concepto %q: %w", it.Descripcion, err)
		}
	}
	return enc.EncodeToken(conceptos.End())
}

func (s *XMLBuilderService) writeImpuestos(enc *xml.Encoder, inv *entity.Invoice) error {
	totalTras := money.CfdiTotal(inv.TotalImpuestosTrasladados)
	totalRet := money.CfdiTotal(inv.TotalImpuestosRetenidos)
	impuestos := element("Impuestos",
		attr("TotalImpuestosTrasladados", totalTras),
		attr("TotalImpuestosRetenidos", totalRet),
	)
	err := writeNested(enc, impuestos, func() error {
		if err := writeNested(enc, element("Retenciones"), func() error {
			return writeEmpty(enc, "Retencion",
				attr("Impuesto", sat.ImpuestoISR),
				attr("Importe", totalRet),
			)
		}); err != nil {
			return err
		}
		return writeNested(enc, element("Traslados"), func() error {
			return writeEmpty(enc, "Traslado",
				attr("Base", money.CfdiTotal(inv.Subtotal)),
				attr("Impuesto", sat.ImpuestoIVA),
				attr("TipoFactor", sat.TipoFactorTasa),
				attr("TasaOCuota", tasaCero),
				attr("Importe", totalTras),
			)
		})
	})
	if err != nil {
		return fmt.Errorf("cfdi: impuestos globales: %w", err)
	}
	return nil
}

// taxAttrs atributos de traslado/retención de concepto: base = importe, tasa e importe en cero.
func taxAttrs(base, impuesto string) []xml.Attr {
	return []xml.Attr{
		attr("Base", base),
		attr("Impuesto", impuesto),
		attr("TipoFactor", sat.TipoFactorTasa),
		attr("TasaOCuota", tasaCero),
		attr("Importe", tasaCero),
	}
}

// ── helpers ───────────────────────────────────────────────────────────────────

func element(local string, attrs ...xml.Attr) xml.StartElement {
	return xml.StartElement{Name: xml.Name{Local: prefix + local}, Attr: attrs}
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

func writeEmpty(enc *xml.Encoder, local string, attrs ...xml.Attr) error {
	start := element(local, attrs...)
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	return enc.EncodeToken(start.End())
}

func writeNested(enc *xml.Encoder, start xml.StartElement, body func() error) error {
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if err := body(); err != nil {
		return err
	}
	return enc.EncodeToken(start.End())
}
