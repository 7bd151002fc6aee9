package pac

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/servo98/express-invoices/internal/domain/entity"
)

const (
	swHostSandbox    = "https://services.test.sw.com.mx"
	swHostProduction = "https://services.sw.com.mx"
	swStatusSuccess  = "success"
)

// swSapienAdapter proveedor REST con token: autentica y luego opera con Bearer.
type swSapienAdapter struct {
	cfg     Config
	client  *http.Client
	baseURL string
}

func newSWSapien(cfg Config, client *http.Client, baseURL string) *swSapienAdapter {
	if baseURL == "" {
		baseURL = swHostSandbox
		if cfg.production() {
			baseURL = swHostProduction
		}
	}
	return &swSapienAdapter{cfg: cfg, client: client, baseURL: baseURL}
}

func (a *swSapienAdapter) stamp(ctx context.Context, xmlBase []byte) (*entity.StampResult, error) {
	token, err := a.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]string{"xml": base64.StdEncoding.EncodeToString(xmlBase)})
	if err != nil {
		return nil, fmt.Errorf("sw: serializar petición: %w", err)
	}
	raw, err := a.post(ctx, "/cfdi33/stamp/v4", token, body)
	if err != nil {
		return nil, err
	}

	res := gjson.ParseBytes(raw)
	if res.Get("status").String() != swStatusSuccess {
		return nil, rejected("%s", swMessage(res, "error desconocido"))
	}
	data := res.Get("data")
	return &entity.StampResult{
		UUID: data.Get("uuid").String(),
		CFDIStamp: entity.CFDIStamp{
			XML:              decodeMaybeBase64(data.Get("cfdi").String()),
			SelloCFD:         data.Get("selloCFDI").String(),
			SelloSAT:         data.Get("selloSAT").String(),
			FechaTimbrado:    data.Get("fechaTimbrado").String(),
			NoCertificadoSAT: data.Get("noCertificadoSAT").String(),
			CadenaOriginal:   data.Get("cadenaOriginalSAT").String(),
		},
	}, nil
}

func (a *swSapienAdapter) cancel(ctx context.Context, req CancelRequest) (*CancelResult, error) {
	token, err := a.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/cfdi33/cancel/%s/%s/%s",
		url.PathEscape(req.RFCEmisor), url.PathEscape(req.UUID), url.PathEscape(req.Motivo))
	if req.FolioSustitucion != "" {
		path += "/" + url.PathEscape(req.FolioSustitucion)
	}
	raw, err := a.post(ctx, path, token, nil)
	if err != nil {
		return nil, err
	}

	res := gjson.ParseBytes(raw)
	status := res.Get("status").String()
	if status != swStatusSuccess {
		return nil, rejected("%s", swMessage(res, "cancelación rechazada"))
	}
	return &CancelResult{
		Status:  status,
		Message: firstNonEmpty(res.Get("message").String(), "Cancelación solicitada"),
		Acuse:   res.Get("data.acuse").String(),
	}, nil
}

// authenticate obtiene el token de sesión en data.token.
func (a *swSapienAdapter) authenticate(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{"user": a.cfg.Username, "password": a.cfg.Password})
	if err != nil {
		return "", fmt.Errorf("sw: serializar credenciales: %w", err)
	}
	raw, err := a.post(ctx, "/security/authenticate", "", body)
	if err != nil {
		return "", fmt.Errorf("autenticación: %w", err)
	}
	token := gjson.GetBytes(raw, "data.token").String()
	if token == "" {
		return "", rejected("autenticación: %s", swMessage(gjson.ParseBytes(raw), "sin token en la respuesta"))
	}
	return token, nil
}

// post envía JSON (o cuerpo vacío) y devuelve la respuesta. Un HTTP no 2xx con
// mensaje del proveedor se reporta con ese mensaje.
func (a *swSapienAdapter) post(ctx context.Context, path, token string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sw: crear request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	code, raw, err := do(a.client, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("sw: timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("sw: llamada HTTP fallida: %w", err)
	}
	if !is2xx(code) {
		if gjson.ValidBytes(raw) {
			if msg := swMessage(gjson.ParseBytes(raw), ""); msg != "" {
				return nil, rejected("HTTP %d: %s", code, msg)
			}
		}
		return nil, fmt.Errorf("sw: HTTP %d", code)
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("sw: respuesta no es JSON válido")
	}
	return raw, nil
}

func swMessage(res gjson.Result, fallback string) string {
	return firstNonEmpty(res.Get("message").String(), res.Get("messageDetail").String(), fallback)
}
