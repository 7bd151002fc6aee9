package cfdi_test

import (
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servo98/express-invoices/internal/domain/entity"
	"github.com/servo98/express-invoices/internal/infrastructure/cfdi"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixtures
// ──────────────────────────────────────────────────────────────────────────────

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testUser() *entity.User {
	return &entity.User{
		ID:            "user-1",
		Name:          "Ana Gómez",
		RFC:           "GOMA850101AB1",
		RazonSocial:   "Ana Gómez Martínez",
		RegimenFiscal: "626",
		CodigoPostal:  "06600",
	}
}

func testInvoice() *entity.Invoice {
	inv := &entity.Invoice{
		ID:                    "inv-1",
		UserID:                "user-1",
		Month:                 10,
		Year:                  2025,
		Fecha:                 time.Date(2025, time.October, 31, 9, 5, 7, 0, time.UTC),
		FormaPago:             "99",
		MetodoPago:            "PPD",
		Moneda:                "USD",
		TipoCambio:            decimal.NewNullDecimal(dec("17.25")),
		Exportacion:           "01",
		ReceptorRfc:           "XEXX010101000",
		ReceptorNombre:        "ACME CORP",
		ReceptorCp:            "06600",
		ResidenciaFiscal:      "USA",
		NumRegIdTrib:          "123456789",
		RegimenFiscalReceptor: "616",
		UsoCfdi:               "S01",
		Items: []entity.InvoiceItem{{
			ClaveProdServ: "81111810",
			ClaveUnidad:   "E48",
			Unidad:        "Unidad de servicio",
			Cantidad:      dec("1"),
			Descripcion:   "Software development services - October 2025",
			ValorUnitario: dec("5000"),
			ObjetoImp:     "02",
		}},
		Status: entity.InvoiceStatusDraft,
	}
	inv.RecalculateTotals()
	return inv
}

func generate(t *testing.T, inv *entity.Invoice, user *entity.User) (string, *etree.Element) {
	t.Helper()
	svc := cfdi.NewXMLBuilderService(cfdi.WithLocation(time.UTC))
	out, err := svc.Generate(inv, user)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out), "el XML generado debe ser bien formado")
	require.NotNil(t, doc.Root())
	return string(out), doc.Root()
}

// ──────────────────────────────────────────────────────────────────────────────
// Comprobante
// ──────────────────────────────────────────────────────────────────────────────

func TestGenerate_ComprobanteAtributosEnOrden(t *testing.T) {
	out, root := generate(t, testInvoice(), testUser())

	assert.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="utf-8"?>`+"\n<cfdi:Comprobante"))
	assert.Equal(t, "cfdi", root.Space)
	assert.Equal(t, "Comprobante", root.Tag)

	var keys []string
	for _, a := range root.Attr {
		keys = append(keys, a.FullKey())
	}
	assert.Equal(t, []string{
		"xsi:schemaLocation", "Version", "Fecha", "FormaPago", "SubTotal", "Moneda", "TipoCambio",
		"Total", "TipoDeComprobante", "Exportacion", "MetodoPago", "LugarExpedicion",
		"xmlns:cfdi", "xmlns:xsi",
	}, keys)

	assert.Equal(t, "http://www.sat.gob.mx/cfd/4 http://www.sat.gob.mx/sitio_internet/cfd/4/cfdv40.xsd",
		root.SelectAttrValue("xsi:schemaLocation", ""))
	assert.Equal(t, "http://www.sat.gob.mx/cfd/4", root.SelectAttrValue("xmlns:cfdi", ""))
	assert.Equal(t, "4.0", root.SelectAttrValue("Version", ""))
	assert.Equal(t, "2025-10-31T09:05:07", root.SelectAttrValue("Fecha", ""))
	assert.Equal(t, "5000.00", root.SelectAttrValue("SubTotal", ""))
	assert.Equal(t, "5000.00", root.SelectAttrValue("Total", ""))
	assert.Equal(t, "17.250000", root.SelectAttrValue("TipoCambio", ""))
	assert.Equal(t, "I", root.SelectAttrValue("TipoDeComprobante", ""))
}

func TestGenerate_SinTipoCambioNoEmiteAtributo(t *testing.T) {
	inv := testInvoice()
	inv.Moneda = "MXN"
	inv.TipoCambio = decimal.NullDecimal{}

	_, root := generate(t, inv, testUser())
	assert.Nil(t, root.SelectAttr("TipoCambio"))
}

func TestGenerate_LugarExpedicionCaeAlCPDelEmisor(t *testing.T) {
	inv := testInvoice()
	inv.LugarExpedicion = ""
	_, root := generate(t, inv, testUser())
	assert.Equal(t, "06600", root.SelectAttrValue("LugarExpedicion", ""))

	inv.LugarExpedicion = "44100"
	_, root = generate(t, inv, testUser())
	assert.Equal(t, "44100", root.SelectAttrValue("LugarExpedicion", ""))
}

func TestGenerate_EsDeterminista(t *testing.T) {
	svc := cfdi.NewXMLBuilderService(cfdi.WithLocation(time.UTC))
	a, err := svc.Generate(testInvoice(), testUser())
	require.NoError(t, err)
	b, err := svc.Generate(testInvoice(), testUser())
	require.NoError(t, err)
	assert.Equal(t, a, b, "misma entrada debe producir bytes idénticos")
}

// ──────────────────────────────────────────────────────────────────────────────
// Emisor / Receptor
// ──────────────────────────────────────────────────────────────────────────────

func TestGenerate_EmisorNombreEnMayusculasYRegimenPorDefecto(t *testing.T) {
	user := testUser()
	user.RegimenFiscal = ""
	_, root := generate(t, testInvoice(), user)

	emisor := root.FindElement("./cfdi:Emisor")
	require.NotNil(t, emisor)
	assert.Equal(t, "GOMA850101AB1", emisor.SelectAttrValue("Rfc", ""))
	assert.Equal(t, "ANA GÓMEZ MARTÍNEZ", emisor.SelectAttrValue("Nombre", ""))
	assert.Equal(t, "626", emisor.SelectAttrValue("RegimenFiscal", ""))

	user.RazonSocial = ""
	_, root = generate(t, testInvoice(), user)
	assert.Equal(t, "ANA GÓMEZ", root.FindElement("./cfdi:Emisor").SelectAttrValue("Nombre", ""))
}

func TestGenerate_ReceptorExtranjeroIncluyeResidencia(t *testing.T) {
	_, root := generate(t, testInvoice(), testUser())
	receptor := root.FindElement("./cfdi:Receptor")
	require.NotNil(t, receptor)

	assert.Equal(t, "XEXX010101000", receptor.SelectAttrValue("Rfc", ""))
	assert.Equal(t, "ACME CORP", receptor.SelectAttrValue("Nombre", ""))
	assert.Equal(t, "USA", receptor.SelectAttrValue("ResidenciaFiscal", ""))
	assert.Equal(t, "123456789", receptor.SelectAttrValue("NumRegIdTrib", ""))
	assert.Equal(t, "S01", receptor.SelectAttrValue("UsoCFDI", ""))
}

func TestGenerate_ReceptorNacionalOmiteResidencia(t *testing.T) {
	inv := testInvoice()
	inv.ReceptorRfc = "ABC850101AB1"
	inv.ResidenciaFiscal = ""
	inv.NumRegIdTrib = ""
	inv.ReceptorCp = ""
	inv.ReceptorNombre = ""
	inv.RegimenFiscalReceptor = ""

	_, root := generate(t, inv, testUser())
	receptor := root.FindElement("./cfdi:Receptor")
	require.NotNil(t, receptor)
	assert.Nil(t, receptor.SelectAttr("ResidenciaFiscal"))
	assert.Nil(t, receptor.SelectAttr("NumRegIdTrib"))
	assert.Equal(t, "06600", receptor.SelectAttrValue("DomicilioFiscalReceptor", ""), "cae al CP del emisor")
	assert.Equal(t, "Rfc generico extranjero", receptor.SelectAttrValue("Nombre", ""))
	assert.Equal(t, "616", receptor.SelectAttrValue("RegimenFiscalReceptor", ""))
}

func TestGenerate_ReceptorSinRfcSeSerializaConGenerico(t *testing.T) {
	inv := testInvoice()
	inv.ReceptorRfc = ""
	_, root := generate(t, inv, testUser())
	assert.Equal(t, "XEXX010101000", root.FindElement("./cfdi:Receptor").SelectAttrValue("Rfc", ""))
}

// ──────────────────────────────────────────────────────────────────────────────
// Conceptos e impuestos
// ──────────────────────────────────────────────────────────────────────────────

func TestGenerate_ConceptoConImpuestosEnCero(t *testing.T) {
	inv := testInvoice()
	inv.Items = append(inv.Items, entity.InvoiceItem{
		ClaveProdServ: "81111810", ClaveUnidad: "E48", Unidad: "Unidad de servicio",
		Cantidad: dec("2.5"), Descripcion: "Consulting & support", ValorUnitario: dec("100.10"), ObjetoImp: "02",
	})
	inv.RecalculateTotals()

	_, root := generate(t, inv, testUser())
	conceptos := root.FindElements("./cfdi:Conceptos/cfdi:Concepto")
	require.Len(t, conceptos, 2)

	c := conceptos[1]
	assert.Equal(t, "2.5", c.SelectAttrValue("Cantidad", ""))
	assert.Equal(t, "100.1", c.SelectAttrValue("ValorUnitario", ""))
	assert.Equal(t, "250.250000", c.SelectAttrValue("Importe", ""))
	assert.Equal(t, "Consulting & support", c.SelectAttrValue("Descripcion", ""))

	traslado := c.FindElement("./cfdi:Impuestos/cfdi:Traslados/cfdi:Traslado")
	require.NotNil(t, traslado)
	assert.Equal(t, "250.250000", traslado.SelectAttrValue("Base", ""))
	assert.Equal(t, "002", traslado.SelectAttrValue("Impuesto", ""))
	assert.Equal(t, "Tasa", traslado.SelectAttrValue("TipoFactor", ""))
	assert.Equal(t, "0.000000", traslado.SelectAttrValue("TasaOCuota", ""))
	assert.Equal(t, "0.000000", traslado.SelectAttrValue("Importe", ""))

	retencion := c.FindElement("./cfdi:Impuestos/cfdi:Retenciones/cfdi:Retencion")
	require.NotNil(t, retencion)
	assert.Equal(t, "001", retencion.SelectAttrValue("Impuesto", ""))
	assert.Equal(t, "0.000000", retencion.SelectAttrValue("Importe", ""))
}

func TestGenerate_ImpuestosGlobales(t *testing.T) {
	_, root := generate(t, testInvoice(), testUser())

	impuestos := root.FindElement("./cfdi:Impuestos")
	require.NotNil(t, impuestos)
	assert.Equal(t, "0.00", impuestos.SelectAttrValue("TotalImpuestosTrasladados", ""))
	assert.Equal(t, "0.00", impuestos.SelectAttrValue("TotalImpuestosRetenidos", ""))

	children := impuestos.ChildElements()
	require.Len(t, children, 2)
	assert.Equal(t, "Retenciones", children[0].Tag)
	assert.Equal(t, "Traslados", children[1].Tag)

	ret := impuestos.FindElement("./cfdi:Retenciones/cfdi:Retencion")
	require.NotNil(t, ret)
	assert.Equal(t, "001", ret.SelectAttrValue("Impuesto", ""))
	assert.Equal(t, "0.00", ret.SelectAttrValue("Importe", ""))

	tras := impuestos.FindElement("./cfdi:Traslados/cfdi:Traslado")
	require.NotNil(t, tras)
	assert.Equal(t, "5000.00", tras.SelectAttrValue("Base", ""))
	assert.Equal(t, "002", tras.SelectAttrValue("Impuesto", ""))
	assert.Equal(t, "0.000000", tras.SelectAttrValue("TasaOCuota", ""))
}

func TestGenerate_EntradaNulaDevuelveError(t *testing.T) {
	svc := cfdi.NewXMLBuilderService()
	_, err := svc.Generate(nil, testUser())
	assert.Error(t, err)
}

func TestGenerate_FechaEnZonaConfigurada(t *testing.T) {
	loc, err := time.LoadLocation("America/Mexico_City")
	require.NoError(t, err)
	inv := testInvoice()
	inv.Fecha = time.Date(2025, 10, 31, 2, 30, 0, 0, time.UTC)

	svc := cfdi.NewXMLBuilderService(cfdi.WithLocation(loc))
	out, err := svc.Generate(inv, testUser())
	require.NoError(t, err)
	assert.Contains(t, string(out), `Fecha="2025-10-30T20:30:00"`)
}
