package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servo98/express-invoices/internal/application/analytics"
	"github.com/servo98/express-invoices/internal/application/auth"
	"github.com/servo98/express-invoices/internal/application/billing"
	"github.com/servo98/express-invoices/internal/application/dto"
	"github.com/servo98/express-invoices/internal/application/reminder"
	"github.com/servo98/express-invoices/internal/application/usecase"
	"github.com/servo98/express-invoices/internal/domain/entity"
	"github.com/servo98/express-invoices/internal/infrastructure/bundle"
	"github.com/servo98/express-invoices/internal/infrastructure/cfdi"
	"github.com/servo98/express-invoices/internal/infrastructure/exchange"
	"github.com/servo98/express-invoices/internal/infrastructure/memory"
	"github.com/servo98/express-invoices/internal/infrastructure/pac"
	apphttp "github.com/servo98/express-invoices/internal/interfaces/http"
)

// ── Dobles ────────────────────────────────────────────────────────────────────

type stubPAC struct {
	configured bool
	err        error
}

func (s *stubPAC) IsConfigured() bool { return s.configured }

func (s *stubPAC) Provider() string { return pac.ProviderSWSapien }

func (s *stubPAC) Timbrar(context.Context, []byte) (*entity.StampResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &entity.StampResult{
		UUID: "6F9619FF-8B86-D011-B42D-00C04FC964FF",
		CFDIStamp: entity.CFDIStamp{
			XML:              `<cfdi:Comprobante/>`,
			SelloCFD:         "cfd",
			SelloSAT:         "sat",
			FechaTimbrado:    "2025-10-31T10:00:05",
			NoCertificadoSAT: "30001000000500003456",
			CadenaOriginal:   "||1.1||",
		},
	}, nil
}

func (s *stubPAC) Cancelar(context.Context, pac.CancelRequest) (*pac.CancelResult, error) {
	return &pac.CancelResult{Status: "201"}, nil
}

type stubPDF struct{}

func (stubPDF) Generate(_ context.Context, inv *entity.Invoice, _ *entity.User) ([]byte, error) {
	return []byte("%PDF-1.3 " + inv.ID), nil
}

type stubRates struct{}

func (stubRates) GetUsdToMxn(context.Context) exchange.Rate {
	return exchange.Rate{Value: decimal.RequireFromString("18.2345"), Date: "30/10/2025 (DOF vigente)", Source: exchange.SourceBanxico}
}

type stubNotifier struct{ sent []string }

func (n *stubNotifier) SendReminder(_ context.Context, _, message string) error {
	n.sent = append(n.sent, message)
	return nil
}

// ── Fixture ───────────────────────────────────────────────────────────────────

type apiFixture struct {
	app      *fiber.App
	pac      *stubPAC
	notifier *stubNotifier
	users    *memory.UserRepository
	settings *memory.SettingsRepository
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	settings := memory.NewSettingsRepository()
	users := memory.NewUserRepository(settings)
	invoices := memory.NewInvoiceRepository()
	generator := cfdi.NewXMLBuilderService(cfdi.WithLocation(time.UTC))
	f := &apiFixture{pac: &stubPAC{configured: true}, notifier: &stubNotifier{}, users: users, settings: settings}

	authUC := auth.NewAuthUseCase(users, memory.TxRunner{Users: users, Settings: settings}, auth.JWTConfig{
		Secret: testJWTSecret, ExpMinutes: testExpMin, Issuer: testIssuer,
	})
	f.app = apphttp.NewApp(apphttp.AppConfig{Name: "express-invoices-test"}, apphttp.RouterDeps{
		AuthUC:     authUC,
		InvoiceUC:  billing.NewInvoiceUseCase(invoices),
		Stamps:     billing.NewStampOrchestrator(invoices, users, generator, f.pac),
		Documents:  billing.NewDocumentsUseCase(invoices, users, generator, stubPDF{}, bundle.NewZipBuilder(time.Time{}), nil, zerolog.Nop()),
		Reminders:  reminder.NewUseCase(users, settings, invoices, f.notifier, "https://app.example.com", reminder.WithArt(func() string { return "art" })),
		UserUC:     usecase.NewUserUseCase(users, settings),
		Dashboard:  analytics.NewDashboardUseCase(invoices),
		Rates:      stubRates{},
		JWTSecret:  testJWTSecret,
		CronSecret: "cron-secret",
	})
	return f
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// register crea un usuario por la API y devuelve el header Authorization.
func (f *apiFixture) register(t *testing.T, rfc string) string {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/api/auth/register", "", dto.RegisterRequest{
		Email: testEmail, Password: "contraseña-larga", Name: "Ana", RFC: rfc,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: testEmail, Password: "contraseña-larga"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out dto.LoginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return "Bearer " + out.Token
}

func invoiceBody(month, year int) dto.CreateInvoiceRequest {
	return dto.CreateInvoiceRequest{
		Month:          month,
		Year:           year,
		ReceptorNombre: "ACME CORP",
		Items: []dto.InvoiceItemRequest{{
			Descripcion:   "Desarrollo de software",
			Cantidad:      decimal.NewFromInt(1),
			ValorUnitario: decimal.NewFromInt(5000),
		}},
	}
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	resp := newAPI(t).do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuth_LoginInvalidoYMe(t *testing.T) {
	f := newAPI(t)
	token := f.register(t, "GOMA800101AB1")

	resp := f.do(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: testEmail, Password: "incorrecta"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/auth/register", "", dto.RegisterRequest{Email: testEmail, Password: "contraseña-larga"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decode[dto.UserResponse](t, resp)
	assert.Equal(t, "GOMA800101AB1", me.RFC)
}

func TestInvoices_RequiereToken(t *testing.T) {
	resp := newAPI(t).do(t, http.MethodGet, "/api/invoices", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestInvoices_CicloCompleto(t *testing.T) {
	f := newAPI(t)
	token := f.register(t, "GOMA800101AB1")

	resp := f.do(t, http.MethodPost, "/api/invoices", token, invoiceBody(12, 2025))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[dto.InvoiceResponse](t, resp)
	assert.Equal(t, "December 2025", created.Period)
	assert.Equal(t, "draft", created.Status)

	resp = f.do(t, http.MethodPost, "/api/invoices", token, invoiceBody(12, 2025))
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "periodo duplicado")

	resp = f.do(t, http.MethodGet, "/api/invoices/period/2025-12", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/invoices/clone-latest", token, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	cloned := decode[dto.InvoiceResponse](t, resp)
	assert.Equal(t, 1, cloned.Month)
	assert.Equal(t, 2026, cloned.Year)

	resp = f.do(t, http.MethodPost, "/api/invoices/"+created.ID+"/timbrar", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stamped := decode[dto.InvoiceResponse](t, resp)
	assert.Equal(t, "timbrado", stamped.Status)
	assert.Equal(t, "6F9619FF-8B86-D011-B42D-00C04FC964FF", stamped.UUID)

	resp = f.do(t, http.MethodPost, "/api/invoices/"+created.ID+"/timbrar", token, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "segundo timbrado")

	resp = f.do(t, http.MethodDelete, "/api/invoices/"+created.ID, token, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "una factura timbrada no se borra")

	resp = f.do(t, http.MethodGet, "/api/invoices?year=2026", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]dto.InvoiceResponse](t, resp), 1)

	resp = f.do(t, http.MethodDelete, "/api/invoices/"+cloned.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/invoices/"+cloned.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTimbrar_MapeoDeErroresPAC(t *testing.T) {
	cases := map[string]struct {
		pac    *stubPAC
		status int
		code   string
	}{
		"no configurado": {&stubPAC{}, http.StatusServiceUnavailable, "PAC_NOT_CONFIGURED"},
		"rechazo":        {&stubPAC{configured: true, err: &pac.Error{Provider: pac.ProviderSWSapien, Op: pac.OpStamp, Detail: "CFDI40102"}}, http.StatusBadGateway, "PAC_ERROR"},
		"timeout":        {&stubPAC{configured: true, err: &pac.Error{Provider: pac.ProviderSWSapien, Op: pac.OpStamp, Detail: "deadline", Timeout: true}}, http.StatusGatewayTimeout, "PAC_TIMEOUT"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newAPI(t)
			*f.pac = *tc.pac
			token := f.register(t, "GOMA800101AB1")
			resp := f.do(t, http.MethodPost, "/api/invoices", token, invoiceBody(10, 2025))
			created := decode[dto.InvoiceResponse](t, resp)

			resp = f.do(t, http.MethodPost, "/api/invoices/"+created.ID+"/timbrar", token, nil)
			assert.Equal(t, tc.status, resp.StatusCode)
			body, _ := io.ReadAll(resp.Body)
			assert.Contains(t, string(body), tc.code)
		})
	}
}

func TestTimbrar_SinRFCEmisor(t *testing.T) {
	f := newAPI(t)
	token := f.register(t, "")
	resp := f.do(t, http.MethodPost, "/api/invoices", token, invoiceBody(10, 2025))
	created := decode[dto.InvoiceResponse](t, resp)

	resp = f.do(t, http.MethodPost, "/api/invoices/"+created.ID+"/timbrar", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestDocumentos_DescargasYCorreo(t *testing.T) {
	f := newAPI(t)
	token := f.register(t, "GOMA800101AB1")
	resp := f.do(t, http.MethodPost, "/api/invoices", token, invoiceBody(10, 2025))
	created := decode[dto.InvoiceResponse](t, resp)

	resp = f.do(t, http.MethodGet, "/api/invoices/"+created.ID+"/xml", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, billing.ContentTypeXML, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "cfdi-"+created.ID+".xml")

	resp = f.do(t, http.MethodGet, "/api/invoices/"+created.ID+"/bundle", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, billing.ContentTypeZIP, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "invoice-"+created.ID+".zip")

	resp = f.do(t, http.MethodPost, "/api/invoices/"+created.ID+"/email", token, dto.SendInvoiceEmailRequest{To: "cliente@example.com"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, "usuario sin SMTP")
}

func TestExchangeRate(t *testing.T) {
	f := newAPI(t)
	token := f.register(t, "")
	resp := f.do(t, http.MethodGet, "/api/exchange-rate", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[dto.ExchangeRateResponse](t, resp)
	assert.True(t, out.Rate.Equal(decimal.RequireFromString("18.2345")))
	assert.Equal(t, exchange.SourceBanxico, out.Source)
}

func TestCron_SendReminders(t *testing.T) {
	f := newAPI(t)
	f.register(t, "")
	u, err := f.users.FindByEmail(context.Background(), testEmail)
	require.NoError(t, err)
	require.NoError(t, f.settings.Upsert(context.Background(), &entity.UserSettings{
		UserID: u.ID, ReminderEnabled: true, ReminderDay: 1, DiscordWebhookURL: "https://discord.example/hook",
	}))

	resp := f.do(t, http.MethodGet, "/api/cron/send-reminders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/cron/send-reminders", "Bearer cron-secret", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[dto.ReminderSweepResponse](t, resp)
	assert.Equal(t, 1, out.Sent)
	require.Len(t, f.notifier.sent, 1)
	assert.True(t, strings.Contains(f.notifier.sent[0], "https://app.example.com/invoices/new?month="))
}

func TestPerfilYAjustes(t *testing.T) {
	f := newAPI(t)
	token := f.register(t, "")

	rfc, pass := "goma800101ab1", "secreto"
	resp := f.do(t, http.MethodPut, "/api/profile", token, dto.UpdateProfileRequest{
		RFC: &rfc, SMTPPass: &pass, SMTPHost: strPtr("smtp.example.com"), SMTPUser: strPtr("ana"),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	profile := decode[dto.ProfileResponse](t, resp)
	assert.Equal(t, "GOMA800101AB1", profile.RFC)
	assert.True(t, profile.SMTPConfigured)

	resp = f.do(t, http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secreto")

	day := 29
	resp = f.do(t, http.MethodPut, "/api/settings", token, dto.UpdateSettingsRequest{ReminderDay: &day})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	day = 15
	resp = f.do(t, http.MethodPut, "/api/settings", token, dto.UpdateSettingsRequest{
		ReminderDay: &day, DiscordWebhookURL: strPtr("https://discord.com/api/webhooks/1/abc"),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/settings", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	settings := decode[dto.SettingsResponse](t, resp)
	assert.Equal(t, 15, settings.ReminderDay)
	assert.True(t, settings.ReminderEnabled)
	assert.Equal(t, "https://discord.com/api/webhooks/1/abc", settings.DiscordWebhookURL)
}

func TestDashboard_Resumen(t *testing.T) {
	f := newAPI(t)
	token := f.register(t, "")
	now := time.Now()

	resp := f.do(t, http.MethodGet, "/api/dashboard/summary", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	empty := decode[dto.DashboardSummaryDTO](t, resp)
	assert.Equal(t, analytics.StatusPending, empty.CurrentStatus)
	assert.Empty(t, empty.Recent)

	resp = f.do(t, http.MethodPost, "/api/invoices", token, invoiceBody(int(now.Month()), now.Year()))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/dashboard/summary", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[dto.DashboardSummaryDTO](t, resp)
	assert.Equal(t, entity.InvoiceStatusDraft, out.CurrentStatus)
	require.NotNil(t, out.CurrentInvoice)
	assert.Equal(t, 1, out.YearCount)
	assert.Len(t, out.Recent, 1)
}

func strPtr(s string) *string { return &s }
