package billing_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/servo98/express-invoices/internal/application/dto"
	"github.com/servo98/express-invoices/internal/domain/entity"
	"github.com/servo98/express-invoices/internal/infrastructure/journal"
	"github.com/servo98/express-invoices/internal/infrastructure/mail"
	"github.com/servo98/express-invoices/internal/infrastructure/memory"
	"github.com/servo98/express-invoices/internal/infrastructure/pac"
)

var fixedNow = time.Date(2025, time.October, 31, 10, 0, 0, 0, time.UTC)

// ── PAC falso ─────────────────────────────────────────────────────────────────

type fakePAC struct {
	configured bool
	result     *entity.StampResult
	err        error
	cancelErr  error
	stamps     int
	cancels    []pac.CancelRequest
	lastXML    []byte
}

func (f *fakePAC) IsConfigured() bool { return f.configured }

func (f *fakePAC) Provider() string { return pac.ProviderFinkok }

func (f *fakePAC) Timbrar(_ context.Context, xmlBase []byte) (*entity.StampResult, error) {
	f.stamps++
	f.lastXML = xmlBase
	if f.err != nil {
		return nil, f.err
	}
	res := *f.result
	return &res, nil
}

func (f *fakePAC) Cancelar(_ context.Context, req pac.CancelRequest) (*pac.CancelResult, error) {
	f.cancels = append(f.cancels, req)
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	return &pac.CancelResult{Status: "201", Message: "Solicitud recibida"}, nil
}

func okStamp() *entity.StampResult {
	return &entity.StampResult{
		UUID: "6F9619FF-8B86-D011-B42D-00C04FC964FF",
		CFDIStamp: entity.CFDIStamp{
			XML:              `<?xml version="1.0" encoding="UTF-8"?><cfdi:Comprobante Sello="x"/>`,
			SelloCFD:         "c2VsbG9DRkQ=",
			SelloSAT:         "c2VsbG9TQVQ=",
			FechaTimbrado:    "2025-10-31T10:00:05",
			NoCertificadoSAT: "30001000000500003456",
			CadenaOriginal:   "||1.1|6F9619FF-8B86-D011-B42D-00C04FC964FF|2025-10-31T10:00:05|SPR190613I52|c2VsbG9DRkQ=|30001000000500003456||",
		},
	}
}

// ── Correo falso ──────────────────────────────────────────────────────────────

type fakeMailer struct {
	cfg  mail.SMTPConfig
	msgs []mail.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, cfg mail.SMTPConfig, msg mail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.cfg = cfg
	f.msgs = append(f.msgs, msg)
	return nil
}

// ── PDF falso ─────────────────────────────────────────────────────────────────

type fakePDF struct{}

func (fakePDF) Generate(_ context.Context, inv *entity.Invoice, _ *entity.User) ([]byte, error) {
	return []byte("%PDF-1.3 " + inv.ID), nil
}

// ── Fixtures ──────────────────────────────────────────────────────────────────

type stores struct {
	invoices *memory.InvoiceRepository
	users    *memory.UserRepository
	settings *memory.SettingsRepository
}

func newStores() *stores {
	settings := memory.NewSettingsRepository()
	return &stores{
		invoices: memory.NewInvoiceRepository(),
		users:    memory.NewUserRepository(settings),
		settings: settings,
	}
}

func (s *stores) addUser(t *testing.T, rfc string) *entity.User {
	t.Helper()
	u := &entity.User{
		Email:         "ana@example.com",
		Name:          "Ana Gómez",
		RFC:           rfc,
		RazonSocial:   "Ana Gómez Martínez",
		RegimenFiscal: "626",
		CodigoPostal:  "06600",
	}
	require.NoError(t, s.users.Create(context.Background(), u))
	return u
}

func openJournal(t *testing.T) *journal.Store {
	t.Helper()
	j, err := journal.Open(filepath.Join(t.TempDir(), "stamp-journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func createRequest(month, year int, items ...dto.InvoiceItemRequest) dto.CreateInvoiceRequest {
	if len(items) == 0 {
		items = []dto.InvoiceItemRequest{serviceItem("Desarrollo de software October 2025", "1", "5000")}
	}
	return dto.CreateInvoiceRequest{
		Month:            month,
		Year:             year,
		ReceptorNombre:   "ACME CORP",
		NumRegIdTrib:     "123456789",
		BilledToName:     "Acme Corp",
		PaymentReference: "Services October 2025",
		Items:            items,
	}
}

func serviceItem(desc, cantidad, valor string) dto.InvoiceItemRequest {
	return dto.InvoiceItemRequest{
		Descripcion:   desc,
		Cantidad:      decimal.RequireFromString(cantidad),
		ValorUnitario: decimal.RequireFromString(valor),
	}
}
