// Package period modela el periodo mensual (mes/año) al que pertenece cada factura.
package period

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var monthNames = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

var monthNamesEs = [12]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// MonthYear identifica un periodo de facturación. Month va de 1 a 12.
type MonthYear struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// New valida y construye un periodo.
func New(month, year int) (MonthYear, error) {
	p := MonthYear{Month: month, Year: year}
	if !p.Valid() {
		return MonthYear{}, fmt.Errorf("period: periodo inválido %d/%d", month, year)
	}
	return p, nil
}

// Current devuelve el periodo de la fecha indicada.
func Current(t time.Time) MonthYear {
	return MonthYear{Month: int(t.Month()), Year: t.Year()}
}

// Valid indica si el mes está en rango y el año es positivo.
func (p MonthYear) Valid() bool {
	return p.Month >= 1 && p.Month <= 12 && p.Year > 0
}

// Next devuelve el periodo siguiente; diciembre pasa a enero del año siguiente.
func (p MonthYear) Next() MonthYear {
	if p.Month == 12 {
		return MonthYear{Month: 1, Year: p.Year + 1}
	}
	return MonthYear{Month: p.Month + 1, Year: p.Year}
}

// Previous devuelve el periodo anterior.
func (p MonthYear) Previous() MonthYear {
	if p.Month == 1 {
		return MonthYear{Month: 12, Year: p.Year - 1}
	}
	return MonthYear{Month: p.Month - 1, Year: p.Year}
}

// Before indica si p es cronológicamente anterior a o.
func (p MonthYear) Before(o MonthYear) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

// Label devuelve la etiqueta en inglés usada en referencias de pago, p. ej. "October 2025".
func (p MonthYear) Label() string {
	if !p.Valid() {
		return ""
	}
	return monthNames[p.Month-1] + " " + strconv.Itoa(p.Year)
}

// LabelEs devuelve la etiqueta en español, p. ej. "Octubre 2025".
func (p MonthYear) LabelEs() string {
	if !p.Valid() {
		return ""
	}
	return monthNamesEs[p.Month-1] + " " + strconv.Itoa(p.Year)
}

// String devuelve la forma "YYYY-MM".
func (p MonthYear) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Parse interpreta la forma "YYYY-MM".
func Parse(s string) (MonthYear, error) {
	parts := strings.SplitN(strings.TrimSpace(s), "-", 2)
	if len(parts) != 2 {
		return MonthYear{}, fmt.Errorf("period: formato esperado YYYY-MM, recibido %q", s)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return MonthYear{}, fmt.Errorf("period: año inválido %q: %w", parts[0], err)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return MonthYear{}, fmt.Errorf("period: mes inválido %q: %w", parts[1], err)
	}
	return New(month, year)
}
