// Package money agrupa el formateo de montos usado en el CFDI y en la factura comercial.
package money

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.AmericanEnglish)

var currencySymbols = map[string]string{
	"USD": "$",
	"MXN": "MX$",
	"EUR": "€",
	"CAD": "CA$",
}

// FormatCurrency formatea un monto con separador de miles en-US y dos decimales: "$1,234.50".
// Monedas sin símbolo conocido usan el código ISO como prefijo.
func FormatCurrency(amount decimal.Decimal, currency string) string {
	if currency == "" {
		currency = "USD"
	}
	symbol, ok := currencySymbols[currency]
	if !ok {
		symbol = currency + " "
	}
	rounded := amount.Round(2)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}
	return sign + symbol + printer.Sprint(number.Decimal(rounded.InexactFloat64(), number.Scale(2)))
}

// CfdiAmount formatea importes de concepto y bases de impuesto con 6 decimales.
func CfdiAmount(amount decimal.Decimal) string {
	return amount.StringFixed(6)
}

// CfdiTotal formatea SubTotal, Total y totales de impuestos con 2 decimales.
func CfdiTotal(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// CfdiRate formatea TipoCambio y TasaOCuota con 6 decimales.
func CfdiRate(rate decimal.Decimal) string {
	return rate.StringFixed(6)
}

// Plain devuelve la representación numérica mínima, sin ceros de relleno ("1", "1500.5").
func Plain(amount decimal.Decimal) string {
	return amount.String()
}
