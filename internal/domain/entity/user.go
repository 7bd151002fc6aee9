package entity

import "time"

// User representa al emisor de las facturas: identidad fiscal, datos bancarios para la
// factura comercial y configuración SMTP propia para el envío por correo.
type User struct {
	ID           string
	Email        string
	PasswordHash string // bcrypt hash, nunca plano en dominio después de persistir
	Name         string

	// Identidad fiscal (Emisor del CFDI)
	RFC           string
	RazonSocial   string
	RegimenFiscal string
	CodigoPostal  string

	// Transferencia bancaria (solo PDF comercial)
	BankName      string
	AccountNumber string
	RoutingNumber string
	AccountType   string
	BankCurrency  string
	Beneficiary   string

	// SMTP
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SMTPConfigured indica si el usuario tiene host, usuario y contraseña SMTP.
func (u *User) SMTPConfigured() bool {
	return u.SMTPHost != "" && u.SMTPUser != "" && u.SMTPPass != ""
}

// LegalName nombre fiscal del emisor: razón social o, en su defecto, el nombre.
func (u *User) LegalName() string {
	if u.RazonSocial != "" {
		return u.RazonSocial
	}
	return u.Name
}
