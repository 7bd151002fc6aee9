package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servo98/express-invoices/internal/application/billing"
	"github.com/servo98/express-invoices/internal/application/dto"
	"github.com/servo98/express-invoices/internal/domain"
	"github.com/servo98/express-invoices/internal/domain/entity"
	"github.com/servo98/express-invoices/internal/infrastructure/cfdi"
	"github.com/servo98/express-invoices/internal/infrastructure/journal"
	"github.com/servo98/express-invoices/internal/infrastructure/pac"
)

type stampFixture struct {
	s       *stores
	pac     *fakePAC
	journal *journal.Store
	orch    *billing.StampOrchestrator
	user    *entity.User
	draft   *dto.InvoiceResponse
}

func newStampFixture(t *testing.T, rfc string) *stampFixture {
	t.Helper()
	s := newStores()
	f := &stampFixture{
		s:       s,
		pac:     &fakePAC{configured: true, result: okStamp()},
		journal: openJournal(t),
		user:    s.addUser(t, rfc),
	}
	f.orch = billing.NewStampOrchestrator(s.invoices, s.users, cfdi.NewXMLBuilderService(cfdi.WithLocation(time.UTC)), f.pac,
		billing.WithJournal(f.journal))

	draft, err := newInvoiceUC(s).Create(context.Background(), f.user.ID, createRequest(10, 2025))
	require.NoError(t, err)
	f.draft = draft
	return f
}

func (f *stampFixture) stored(t *testing.T) *entity.Invoice {
	t.Helper()
	inv, err := f.s.invoices.FindByID(context.Background(), f.draft.ID, f.user.ID)
	require.NoError(t, err)
	require.NotNil(t, inv)
	return inv
}

func TestTimbrar_SinPACNoTocaRepositorioNiRed(t *testing.T) {
	p := &fakePAC{configured: false}
	orch := billing.NewStampOrchestrator(nil, nil, cfdi.NewXMLBuilderService(), p)

	_, err := orch.Timbrar(context.Background(), "u1", "inv1")
	assert.ErrorIs(t, err, domain.ErrPACNotConfigured)
	assert.Zero(t, p.stamps)
}

func TestTimbrar_ExitoPersisteLosSeisArtefactos(t *testing.T) {
	f := newStampFixture(t, "GOMA800101AB1")

	out, err := f.orch.Timbrar(context.Background(), f.user.ID, f.draft.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusTimbrado, out.Status)
	assert.Equal(t, okStamp().UUID, out.UUID)
	assert.Contains(t, string(f.pac.lastXML), `Rfc="GOMA800101AB1"`)

	inv := f.stored(t)
	require.NotNil(t, inv.Stamp)
	assert.Equal(t, entity.InvoiceStatusTimbrado, inv.Status)
	assert.NotEmpty(t, inv.Stamp.XML)
	assert.NotEmpty(t, inv.Stamp.SelloCFD)
	assert.NotEmpty(t, inv.Stamp.SelloSAT)
	assert.NotEmpty(t, inv.Stamp.FechaTimbrado)
	assert.NotEmpty(t, inv.Stamp.NoCertificadoSAT)
	assert.NotEmpty(t, inv.Stamp.CadenaOriginal)

	a, err := f.journal.Get(f.draft.ID)
	require.NoError(t, err)
	assert.Equal(t, journal.StatusStamped, a.Status)
	assert.Equal(t, okStamp().UUID, a.UUID)

	_, err = f.orch.Timbrar(context.Background(), f.user.ID, f.draft.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyStamped)
	assert.Equal(t, 1, f.pac.stamps)
}

func TestTimbrar_RespuestaSinUUIDDejaBorrador(t *testing.T) {
	f := newStampFixture(t, "GOMA800101AB1")
	f.pac.err = &pac.Error{Provider: pac.ProviderFinkok, Op: pac.OpStamp, Detail: "respuesta sin UUID"}

	_, err := f.orch.Timbrar(context.Background(), f.user.ID, f.draft.ID)
	var pacErr *pac.Error
	require.ErrorAs(t, err, &pacErr)
	assert.Contains(t, err.Error(), "PAC stamping failed")

	inv := f.stored(t)
	assert.Equal(t, entity.InvoiceStatusDraft, inv.Status)
	assert.Nil(t, inv.Stamp)

	a, err := f.journal.Get(f.draft.ID)
	require.NoError(t, err)
	assert.Equal(t, journal.StatusFailed, a.Status)

	// un rechazo explícito permite reintentar
	f.pac.err = nil
	_, err = f.orch.Timbrar(context.Background(), f.user.ID, f.draft.ID)
	require.NoError(t, err)
}

func TestTimbrar_TimeoutBloqueaHastaResolver(t *testing.T) {
	f := newStampFixture(t, "GOMA800101AB1")
	f.pac.err = &pac.Error{Provider: pac.ProviderFinkok, Op: pac.OpStamp, Detail: "sin respuesta", Timeout: true}

	_, err := f.orch.Timbrar(context.Background(), f.user.ID, f.draft.ID)
	assert.ErrorIs(t, err, pac.ErrTimeout)

	f.pac.err = nil
	_, err = f.orch.Timbrar(context.Background(), f.user.ID, f.draft.ID)
	assert.ErrorIs(t, err, domain.ErrStampPending)
	assert.Equal(t, 1, f.pac.stamps, "un timeout nunca se reenvía sin revisión")

	_, err = f.journal.Resolve(f.draft.ID)
	require.NoError(t, err)
	_, err = f.orch.Timbrar(context.Background(), f.user.ID, f.draft.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, f.pac.stamps)
}

func TestTimbrar_RFCEmisorFaltanteOInvalido(t *testing.T) {
	for _, rfc := range []string{"", "NO-ES-RFC"} {
		f := newStampFixture(t, rfc)
		_, err := f.orch.Timbrar(context.Background(), f.user.ID, f.draft.ID)
		assert.ErrorIs(t, err, domain.ErrMissingIssuerRFC, "rfc=%q", rfc)
		assert.Zero(t, f.pac.stamps)
	}
}

func TestTimbrar_FacturaInexistente(t *testing.T) {
	f := newStampFixture(t, "GOMA800101AB1")
	_, err := f.orch.Timbrar(context.Background(), f.user.ID, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)
	_, err = f.orch.Timbrar(context.Background(), "otro-usuario", f.draft.ID)
	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)
}

func TestCancel_ValidacionesYExito(t *testing.T) {
	f := newStampFixture(t, "goma800101ab1")
	ctx := context.Background()

	_, err := f.orch.Cancel(ctx, f.user.ID, f.draft.ID, dto.CancelInvoiceRequest{Motivo: "02"})
	assert.ErrorIs(t, err, domain.ErrNotStamped)

	_, err = f.orch.Timbrar(ctx, f.user.ID, f.draft.ID)
	require.NoError(t, err)

	_, err = f.orch.Cancel(ctx, f.user.ID, f.draft.ID, dto.CancelInvoiceRequest{Motivo: "09"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.orch.Cancel(ctx, f.user.ID, f.draft.ID, dto.CancelInvoiceRequest{Motivo: "01"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "el motivo 01 exige folio de sustitución")

	out, err := f.orch.Cancel(ctx, f.user.ID, f.draft.ID, dto.CancelInvoiceRequest{Motivo: "02"})
	require.NoError(t, err)
	assert.Equal(t, "201", out.Status)
	assert.NotNil(t, out.Invoice.CancelledAt)
	assert.Equal(t, entity.InvoiceStatusTimbrado, out.Invoice.Status)

	require.Len(t, f.pac.cancels, 1)
	assert.Equal(t, pac.CancelRequest{UUID: okStamp().UUID, RFCEmisor: "GOMA800101AB1", Motivo: "02"}, f.pac.cancels[0])

	inv := f.stored(t)
	assert.NotNil(t, inv.CancelledAt)
	assert.Equal(t, okStamp().CFDIStamp.XML, inv.Stamp.XML)

	_, err = f.orch.Cancel(ctx, f.user.ID, f.draft.ID, dto.CancelInvoiceRequest{Motivo: "02"})
	assert.ErrorIs(t, err, domain.ErrInvoiceCancelled)
}
