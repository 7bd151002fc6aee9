// Package pdf genera la factura comercial (en inglés) que acompaña al CFDI.
// No es la representación impresa del CFDI: el documento fiscal es el XML timbrado.
//
// Layout de la página carta:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  INVOICE                                                     │
//	│  UUID (si está timbrada)                 OCTOBER 01, 2025    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  BILLED TO: nombre / dirección / teléfono                    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Task | Rate | Hours | Total                          │
//	│  TOTAL DUE                                                   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  PAYMENT INFORMATION: datos bancarios + referencia           │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: emisor + email + leyenda                            │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/servo98/express-invoices/internal/domain/entity"
	"github.com/servo98/express-invoices/pkg/money"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 17, Green: 24, Blue: 39}
	colorGray    = &props.Color{Red: 107, Green: 114, Blue: 128}
	colorLine    = &props.Color{Red: 209, Green: 213, Blue: 219}
)

var decimalOne = decimal.NewFromInt(1)

const disclaimer = `"This is a commercial invoice for client records. Official Mexican CFDI has been issued separately."`

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator genera la factura comercial con Maroto v2.
type MarotoPDFGenerator struct{}

// NewMarotoPDFGenerator construye el generador.
func NewMarotoPDFGenerator() *MarotoPDFGenerator { return &MarotoPDFGenerator{} }

// Generate genera el PDF y devuelve sus bytes.
func (g *MarotoPDFGenerator) Generate(_ context.Context, inv *entity.Invoice, user *entity.User) ([]byte, error) {
	if inv == nil || user == nil {
		return nil, fmt.Errorf("pdf: factura y usuario son obligatorios")
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.Letter).
		WithLeftMargin(18).WithRightMargin(18).
		WithTopMargin(18).WithBottomMargin(14).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 10}).
		WithTitle("Invoice "+inv.Period().Label(), true).
		WithAuthor(user.LegalName(), true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRows(inv)...)
	m.AddRows(line.NewRow(4, props.Line{Color: colorLine, Thickness: 0.3}))
	m.AddRows(billedToRows(inv)...)
	m.AddRows(row.New(4))

	m.AddRows(tableHeaderRow())
	m.AddRows(line.NewRow(2, props.Line{Color: colorPrimary, Thickness: 0.4}))
	m.AddRows(itemRows(inv)...)
	m.AddRows(line.NewRow(2, props.Line{Color: colorLine, Thickness: 0.3}))
	m.AddRows(totalRow(inv))

	m.AddRows(row.New(6))
	m.AddRows(paymentRows(inv, user)...)

	m.AddRows(row.New(10))
	m.AddRows(line.NewRow(3, props.Line{Color: colorLine, Thickness: 0.3}))
	m.AddRows(footerRows(user)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRows(inv *entity.Invoice) []core.Row {
	fecha := strings.ToUpper(inv.Fecha.Format("January 02, 2006"))
	return []core.Row{
		row.New(14).Add(col.New(12).Add(
			text.New("INVOICE", props.Text{Style: fontstyle.Bold, Size: 24, Color: colorPrimary}),
		)),
		row.New(6).Add(
			col.New(8).Add(text.New(inv.UUID, props.Text{Size: 8, Color: colorGray})),
			col.New(4).Add(text.New(fecha, props.Text{Size: 9, Align: align.Right, Color: colorGray})),
		),
	}
}

// billedToRows omite las líneas vacías.
func billedToRows(inv *entity.Invoice) []core.Row {
	rows := []core.Row{
		sectionTitle("BILLED TO:"),
	}
	if inv.BilledToName != "" {
		rows = append(rows, row.New(6).Add(col.New(12).Add(
			text.New(inv.BilledToName, props.Text{Style: fontstyle.Bold, Size: 11}),
		)))
	}
	for _, detail := range []string{inv.BilledToAddress, inv.BilledToPhone} {
		if detail != "" {
			rows = append(rows, plainRow(detail))
		}
	}
	return rows
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 9, Align: a, Top: 1,
		}))
	}
	return row.New(7).Add(
		h("TASK", 6, align.Left),
		h("RATE", 2, align.Center),
		h("HOURS", 2, align.Center),
		h("TOTAL", 2, align.Right),
	)
}

func itemRows(inv *entity.Invoice) []core.Row {
	result := make([]core.Row, 0, len(inv.Items))
	for _, it := range inv.Items {
		result = append(result, row.New(8).Add(
			col.New(6).Add(text.New(it.Descripcion, props.Text{Style: fontstyle.Bold, Size: 9, Top: 1})),
			col.New(2).Add(text.New(rateLabel(it, inv.Moneda), props.Text{Size: 9, Align: align.Center, Top: 1})),
			col.New(2).Add(text.New(money.Plain(it.Cantidad), props.Text{Size: 9, Align: align.Center, Top: 1})),
			col.New(2).Add(text.New(money.FormatCurrency(it.Importe, inv.Moneda), props.Text{Size: 9, Align: align.Right, Top: 1})),
		))
	}
	return result
}

// rateLabel: un concepto de cantidad 1 cuyo importe es igual al valor unitario se muestra como tarifa fija.
func rateLabel(it entity.InvoiceItem, currency string) string {
	if it.Cantidad.Equal(decimalOne) && it.ValorUnitario.Equal(it.Importe) {
		return "Fixed Fee"
	}
	return money.FormatCurrency(it.ValorUnitario, currency)
}

func totalRow(inv *entity.Invoice) core.Row {
	return row.New(10).Add(
		col.New(8),
		col.New(2).Add(text.New("TOTAL DUE:", props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Top: 2})),
		col.New(2).Add(text.New(money.FormatCurrency(inv.Total, inv.Moneda), props.Text{
			Style: fontstyle.Bold, Size: 11, Align: align.Right, Top: 2, Color: colorPrimary,
		})),
	)
}

func paymentRows(inv *entity.Invoice, user *entity.User) []core.Row {
	rows := []core.Row{
		sectionTitle("PAYMENT INFORMATION:"),
		plainRow("Bank Transfer (ACH or Wire)"),
	}
	for _, l := range []struct{ label, value string }{
		{"Beneficiary", user.Beneficiary},
		{"Bank", user.BankName},
		{"Account Number", user.AccountNumber},
		{"Routing (ABA)", user.RoutingNumber},
		{"Account Type", user.AccountType},
		{"Currency", user.BankCurrency},
	} {
		if l.value != "" {
			rows = append(rows, plainRow(l.label+": "+l.value))
		}
	}
	if inv.PaymentReference != "" {
		rows = append(rows,
			row.New(6).Add(col.New(12).Add(text.New("Payment reference:", props.Text{Style: fontstyle.Bold, Size: 9, Top: 1}))),
			plainRow(inv.PaymentReference),
		)
	}
	note := props.Text{Style: fontstyle.Italic, Size: 8, Color: colorGray}
	rows = append(rows,
		row.New(5).Add(col.New(12).Add(text.New("Domestic USD transfer (ACH or Wire).", note))),
		row.New(5).Add(col.New(12).Add(text.New("Do not send as international wire.", note))),
	)
	return rows
}

func footerRows(user *entity.User) []core.Row {
	return []core.Row{
		row.New(6).Add(
			col.New(6).Add(text.New(user.LegalName(), props.Text{Style: fontstyle.Bold, Size: 9})),
			col.New(6).Add(text.New(user.Email, props.Text{Size: 9, Align: align.Right, Color: colorGray})),
		),
		row.New(8).Add(col.New(12).Add(
			text.New(disclaimer, props.Text{Size: 7, Color: colorGray, Align: align.Center, Top: 2}),
		)),
	}
}

// ── helpers ───────────────────────────────────────────────────────────────────

func sectionTitle(s string) core.Row {
	return row.New(7).Add(col.New(12).Add(
		text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Color: colorGray, Top: 1}),
	))
}

func plainRow(s string) core.Row {
	return row.New(5).Add(col.New(12).Add(text.New(s, props.Text{Size: 9})))
}
