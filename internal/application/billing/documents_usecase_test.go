package billing_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servo98/express-invoices/internal/application/billing"
	"github.com/servo98/express-invoices/internal/domain"
	"github.com/servo98/express-invoices/internal/domain/entity"
	"github.com/servo98/express-invoices/internal/infrastructure/bundle"
	"github.com/servo98/express-invoices/internal/infrastructure/cfdi"
)

func newDocumentsUC(s *stores, mailer billing.Mailer) *billing.DocumentsUseCase {
	return billing.NewDocumentsUseCase(s.invoices, s.users,
		cfdi.NewXMLBuilderService(cfdi.WithLocation(time.UTC)), fakePDF{},
		bundle.NewZipBuilder(time.Time{}), mailer, zerolog.Nop())
}

func zipEntries(t *testing.T, data []byte) map[string]string {
	t.Helper()
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	out := map[string]string{}
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		_ = rc.Close()
		out[f.Name] = string(b)
	}
	return out
}

func TestGenerateXML_BorradorGeneraYTimbradaDevuelveLaAlmacenada(t *testing.T) {
	s := newStores()
	u := s.addUser(t, "GOMA800101AB1")
	created, err := newInvoiceUC(s).Create(context.Background(), u.ID, createRequest(10, 2025))
	require.NoError(t, err)
	uc := newDocumentsUC(s, nil)

	doc, err := uc.GenerateXML(context.Background(), u.ID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "cfdi-"+created.ID+".xml", doc.Name)
	assert.Equal(t, billing.ContentTypeXML, doc.ContentType)
	assert.Contains(t, string(doc.Data), `Version="4.0"`)

	inv, _ := s.invoices.FindByID(context.Background(), created.ID, u.ID)
	inv.ApplyStamp(okStamp())
	require.NoError(t, s.invoices.MarkStamped(context.Background(), inv))

	doc, err = uc.GenerateXML(context.Background(), u.ID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "cfdi-"+okStamp().UUID+".xml", doc.Name)
	assert.Equal(t, okStamp().CFDIStamp.XML, string(doc.Data))
}

func TestDownloadBundle_ContienePDFyXML(t *testing.T) {
	s := newStores()
	u := s.addUser(t, "GOMA800101AB1")
	created, err := newInvoiceUC(s).Create(context.Background(), u.ID, createRequest(10, 2025))
	require.NoError(t, err)

	doc, err := newDocumentsUC(s, nil).DownloadBundle(context.Background(), u.ID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "invoice-"+created.ID+".zip", doc.Name)

	entries := zipEntries(t, doc.Data)
	require.Len(t, entries, 2)
	assert.Equal(t, "%PDF-1.3 "+created.ID, entries["invoice-"+created.ID+".pdf"])
	assert.Contains(t, entries["cfdi-"+created.ID+".xml"], "cfdi:Comprobante")
}

func TestDocumentos_FacturaAjena(t *testing.T) {
	s := newStores()
	u := s.addUser(t, "GOMA800101AB1")
	created, err := newInvoiceUC(s).Create(context.Background(), u.ID, createRequest(10, 2025))
	require.NoError(t, err)

	_, err = newDocumentsUC(s, nil).GeneratePDF(context.Background(), "otro", created.ID)
	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)
}

func TestSendEmail_RequiereSMTP(t *testing.T) {
	s := newStores()
	u := s.addUser(t, "GOMA800101AB1")
	created, err := newInvoiceUC(s).Create(context.Background(), u.ID, createRequest(10, 2025))
	require.NoError(t, err)
	mailer := &fakeMailer{}

	err = newDocumentsUC(s, mailer).SendEmail(context.Background(), u.ID, created.ID, "cliente@example.com", "", "")
	assert.ErrorIs(t, err, domain.ErrSMTPNotConfigured)
	assert.Empty(t, mailer.msgs)

	err = newDocumentsUC(s, mailer).SendEmail(context.Background(), u.ID, created.ID, "sin-arroba", "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSendEmail_AdjuntaZipYUsaCuerpoPorDefecto(t *testing.T) {
	s := newStores()
	u := &entity.User{
		Email:    "bob@example.com",
		RFC:      "GOMA800101AB1",
		SMTPHost: "smtp.example.com",
		SMTPPort: 465,
		SMTPUser: "bob@example.com",
		SMTPPass: "secreto",
	}
	require.NoError(t, s.users.Create(context.Background(), u))
	created, err := newInvoiceUC(s).Create(context.Background(), u.ID, createRequest(10, 2025))
	require.NoError(t, err)
	mailer := &fakeMailer{}

	err = newDocumentsUC(s, mailer).SendEmail(context.Background(), u.ID, created.ID, "cliente@example.com", "", "")
	require.NoError(t, err)

	require.Len(t, mailer.msgs, 1)
	msg := mailer.msgs[0]
	assert.Equal(t, "Invoice October 2025", msg.Subject)
	assert.Equal(t, billing.DefaultEmailBody, msg.Body)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "invoice-"+created.ID+".zip", msg.Attachments[0].Name)
	assert.Len(t, zipEntries(t, msg.Attachments[0].Data), 2)
	assert.Equal(t, 465, mailer.cfg.Port)
	assert.Equal(t, "smtp.example.com", mailer.cfg.Host)

	mailer.err = errors.New("535 auth failed")
	err = newDocumentsUC(s, mailer).SendEmail(context.Background(), u.ID, created.ID, "cliente@example.com", "Factura", "Hola")
	assert.Error(t, err)
}
