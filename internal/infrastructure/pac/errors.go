package pac

import (
	"errors"
	"fmt"
)

// ErrTimeout se cumple (errors.Is) cuando la llamada al PAC agotó su plazo.
// El resultado es ambiguo: el PAC pudo haber timbrado del lado del servidor.
var ErrTimeout = errors.New("pac: tiempo de espera agotado")

// Operaciones reportadas en Error.Op.
const (
	OpStamp  = "stamp"
	OpCancel = "cancel"
)

// Error es el único tipo de fallo que expone el cliente, sin importar el proveedor.
// Autenticación, HTTP no 2xx y errores de negocio del PAC colapsan aquí.
// El proveedor no forma parte del mensaje; quien registra el error lo agrega como campo.
type Error struct {
	Provider string
	Op       string
	Detail   string
	Timeout  bool
	Err      error
}

func (e *Error) Error() string {
	verb := "stamping"
	if e.Op == OpCancel {
		verb = "cancellation"
	}
	return fmt.Sprintf("PAC %s failed: %s", verb, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// Is permite errors.Is(err, ErrTimeout).
func (e *Error) Is(target error) bool {
	return target == ErrTimeout && e.Timeout
}

// providerError error de negocio devuelto por el PAC (respuesta válida con estatus de rechazo).
type providerError struct {
	msg string
}

func (e *providerError) Error() string { return e.msg }

func rejected(format string, args ...any) error {
	return &providerError{msg: fmt.Sprintf(format, args...)}
}
