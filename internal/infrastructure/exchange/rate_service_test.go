package exchange_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/servo98/express-invoices/internal/infrastructure/exchange"
)

// 15/10/2025 12:00 en Ciudad de México.
var hoy = time.Date(2025, time.October, 15, 18, 0, 0, 0, time.UTC)

const banxicoBody = `{"bmx":{"series":[{"idSerie":"SF43718","datos":[
  {"fecha":"13/10/2025","dato":"18.4012"},
  {"fecha":"14/10/2025","dato":"18.3815"},
  {"fecha":"15/10/2025","dato":"18.3500"}]}]}}`

const erBody = `{"result":"success","time_last_update_utc":"Tue, 14 Oct 2025 00:02:31 +0000","rates":{"MXN":18.412345}}`

func newServers(t *testing.T, banxico, er http.HandlerFunc) (string, string) {
	t.Helper()
	b := httptest.NewServer(banxico)
	e := httptest.NewServer(er)
	t.Cleanup(b.Close)
	t.Cleanup(e.Close)
	return b.URL, e.URL
}

func failing(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) }

func TestGetUsdToMxn_BanxicoOmiteElDatoDeHoy(t *testing.T) {
	var gotToken, gotPath string
	bURL, eURL := newServers(t, func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("Bmx-Token")
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(banxicoBody))
	}, failing)

	svc := exchange.NewService("tok", exchange.WithEndpoints(bURL, eURL), exchange.WithClock(func() time.Time { return hoy }))
	rate := svc.GetUsdToMxn(context.Background())

	assert.Equal(t, "tok", gotToken)
	assert.Equal(t, "/series/SF43718/datos/2025-10-10/2025-10-15", gotPath)
	assert.Equal(t, exchange.SourceBanxico, rate.Source)
	assert.Equal(t, "18.3815", rate.Value.String())
	assert.Equal(t, "14/10/2025 (DOF vigente)", rate.Date)
}

func TestGetUsdToMxn_SinTokenUsaExchangeRateAPI(t *testing.T) {
	bURL, eURL := newServers(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("sin token no se consulta Banxico")
	}, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(erBody))
	})

	svc := exchange.NewService("", exchange.WithEndpoints(bURL, eURL), exchange.WithClock(func() time.Time { return hoy }))
	rate := svc.GetUsdToMxn(context.Background())

	assert.Equal(t, exchange.SourceExchangeAPI, rate.Source)
	assert.Equal(t, "18.4123", rate.Value.String())
	assert.Equal(t, "2025-10-14 (ExchangeRate-API)", rate.Date)
}

func TestGetUsdToMxn_BanxicoFallaCaeAExchangeRateAPI(t *testing.T) {
	bURL, eURL := newServers(t, failing, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(erBody))
	})
	svc := exchange.NewService("tok", exchange.WithEndpoints(bURL, eURL), exchange.WithClock(func() time.Time { return hoy }))
	assert.Equal(t, exchange.SourceExchangeAPI, svc.GetUsdToMxn(context.Background()).Source)
}

func TestGetUsdToMxn_TodoFallaDevuelveValorFijo(t *testing.T) {
	bURL, eURL := newServers(t, failing, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"result":"error"}`))
	})
	svc := exchange.NewService("tok", exchange.WithEndpoints(bURL, eURL), exchange.WithClock(func() time.Time { return hoy }))
	rate := svc.GetUsdToMxn(context.Background())

	assert.Equal(t, exchange.SourceFallback, rate.Source)
	assert.True(t, rate.Value.Equal(exchange.FallbackRate))
	assert.True(t, strings.HasPrefix(rate.Date, "2025-10-15 (fallback"))
}
