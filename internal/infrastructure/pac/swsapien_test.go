package pac_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servo98/express-invoices/internal/infrastructure/pac"
)

func swConfig() pac.Config {
	return pac.Config{Provider: pac.ProviderSWSapien, Username: "user", Password: "pass", Environment: pac.EnvSandbox}
}

// swServer simula autenticación y delega el resto de rutas a next.
func swServer(t *testing.T, next http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/security/authenticate", func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds["user"] != "user" || creds["password"] != "pass" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"status":"error","message":"Credenciales inválidas"}`)
			return
		}
		fmt.Fprint(w, `{"status":"success","data":{"token":"T0K3N"}}`)
	})
	mux.HandleFunc("/", next)
	return httptest.NewServer(mux)
}

func TestSWSapienTimbrar_Exitoso(t *testing.T) {
	srv := swServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cfdi33/stamp/v4", r.URL.Path)
		assert.Equal(t, "Bearer T0K3N", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		sent, err := base64.StdEncoding.DecodeString(body["xml"])
		require.NoError(t, err)
		assert.Equal(t, baseXML, string(sent))

		resp := map[string]any{
			"status": "success",
			"data": map[string]string{
				"cfdi":              stampedCFDI,
				"uuid":              "6f1c0a9e-2b7d-4e4f-9a51-3c2d8e7f6a10",
				"fechaTimbrado":     "2025-10-31T12:00:05",
				"selloCFDI":         "CFD",
				"selloSAT":          "SAT",
				"noCertificadoSAT":  "30001000000500003456",
				"cadenaOriginalSAT": "||1.1|cadena||",
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	})
	defer srv.Close()

	res, err := pac.New(swConfig(), pac.WithBaseURL(srv.URL)).Timbrar(context.Background(), []byte(baseXML))
	require.NoError(t, err)
	assert.Equal(t, "6F1C0A9E-2B7D-4E4F-9A51-3C2D8E7F6A10", res.UUID)
	assert.Equal(t, stampedCFDI, res.XML)
	assert.Equal(t, "CFD", res.SelloCFD, "los valores del proveedor tienen prioridad sobre el timbre")
	assert.Equal(t, "SAT", res.SelloSAT)
	assert.Equal(t, "||1.1|cadena||", res.CadenaOriginal)
}

func TestSWSapienTimbrar_StatusErrorUsaMensaje(t *testing.T) {
	srv := swServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"error","messageDetail":"CFDI40147 - RFC del receptor inválido"}`)
	})
	defer srv.Close()

	_, err := pac.New(swConfig(), pac.WithBaseURL(srv.URL)).Timbrar(context.Background(), []byte(baseXML))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PAC stamping failed: ")
	assert.Contains(t, err.Error(), "CFDI40147")
	assert.NotContains(t, err.Error(), pac.ProviderSWSapien, "el proveedor va como campo del log")
}

func TestSWSapienTimbrar_FalloDeAutenticacion(t *testing.T) {
	var stampCalled bool
	srv := swServer(t, func(w http.ResponseWriter, r *http.Request) { stampCalled = true })
	defer srv.Close()

	cfg := swConfig()
	cfg.Password = "otra"
	_, err := pac.New(cfg, pac.WithBaseURL(srv.URL)).Timbrar(context.Background(), []byte(baseXML))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "autenticación")
	assert.Contains(t, err.Error(), "Credenciales inválidas")
	assert.False(t, stampCalled, "sin token no se intenta timbrar")
}

func TestSWSapienCancelar(t *testing.T) {
	srv := swServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cfdi33/cancel/GOMA850101AB1/UUID-1/01/UUID-2", r.URL.Path)
		assert.Equal(t, "Bearer T0K3N", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"status":"success","data":{"acuse":"<Acuse/>"}}`)
	})
	defer srv.Close()

	res, err := pac.New(swConfig(), pac.WithBaseURL(srv.URL)).Cancelar(context.Background(), pac.CancelRequest{
		UUID: "UUID-1", RFCEmisor: "GOMA850101AB1", Motivo: "01", FolioSustitucion: "UUID-2",
	})
	require.NoError(t, err)
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, "<Acuse/>", res.Acuse)
}

func TestSWSapienTimbrar_ExitoSinUUIDEsError(t *testing.T) {
	srv := swServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"success","data":{}}`)
	})
	defer srv.Close()

	res, err := pac.New(swConfig(), pac.WithBaseURL(srv.URL)).Timbrar(context.Background(), []byte(baseXML))
	require.Error(t, err)
	assert.Nil(t, res)

	var pacErr *pac.Error
	require.ErrorAs(t, err, &pacErr)
	assert.False(t, pacErr.Timeout)
	assert.Contains(t, err.Error(), "respuesta incompleta")
	assert.Contains(t, err.Error(), "UUID")
}
