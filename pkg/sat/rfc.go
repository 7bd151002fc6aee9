package sat

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	rfcPersonaFisica = regexp.MustCompile(`^[A-ZÑ&]{4}\d{6}[A-Z0-9]{3}$`)
	rfcPersonaMoral  = regexp.MustCompile(`^[A-ZÑ&]{3}\d{6}[A-Z0-9]{3}$`)
)

// NormalizeRFC elimina espacios y pasa a mayúsculas.
func NormalizeRFC(rfc string) string {
	return strings.ToUpper(strings.TrimSpace(rfc))
}

// IsGenericRFC indica si el RFC es uno de los genéricos del SAT.
func IsGenericRFC(rfc string) bool {
	r := NormalizeRFC(rfc)
	return r == RFCGenericoExtranjero || r == RFCGenericoNacional
}

// IsPersonaFisica indica si el RFC tiene la forma de persona física (13 caracteres).
func IsPersonaFisica(rfc string) bool {
	return rfcPersonaFisica.MatchString(NormalizeRFC(rfc))
}

// IsPersonaMoral indica si el RFC tiene la forma de persona moral (12 caracteres).
func IsPersonaMoral(rfc string) bool {
	return rfcPersonaMoral.MatchString(NormalizeRFC(rfc))
}

// ValidateRFC valida la estructura del RFC (física, moral o genérico).
func ValidateRFC(rfc string) error {
	r := NormalizeRFC(rfc)
	if r == "" {
		return fmt.Errorf("sat: RFC vacío")
	}
	if IsGenericRFC(r) || IsPersonaFisica(r) || IsPersonaMoral(r) {
		return nil
	}
	return fmt.Errorf("sat: RFC con formato inválido %q", r)
}
