package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrInvoiceNotFound    = errors.New("factura no encontrada")
	ErrUserNotFound       = errors.New("usuario no encontrado")
	ErrEmailAlreadyExists = errors.New("el email ya está registrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")

	// Ciclo de vida fiscal.
	ErrDuplicatePeriod   = errors.New("ya existe una factura para ese mes y año")
	ErrInvoiceStamped    = errors.New("no se puede modificar una factura timbrada")
	ErrAlreadyStamped    = errors.New("la factura ya está timbrada")
	ErrNotStamped        = errors.New("la factura no está timbrada")
	ErrInvoiceCancelled  = errors.New("la factura ya fue cancelada")
	ErrMissingIssuerRFC  = errors.New("el emisor no tiene un RFC válido configurado")
	ErrNoPreviousInvoice = errors.New("no hay una factura previa para clonar")
	ErrPACNotConfigured  = errors.New("PAC no configurado: defina PAC_PROVIDER, PAC_USERNAME y PAC_PASSWORD")
	ErrStampPending      = errors.New("existe un intento de timbrado sin resultado confirmado; revise con el PAC antes de reintentar")

	ErrSMTPNotConfigured = errors.New("SMTP no configurado para el usuario")
)
