package pac

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"

	"github.com/beevik/etree"

	"github.com/servo98/express-invoices/internal/domain/entity"
)

// ── Constantes Finkok ─────────────────────────────────────────────────────────

const (
	finkokHostSandbox    = "https://demo-facturacion.finkok.com"
	finkokHostProduction = "https://facturacion.finkok.com"
	finkokStampPath      = "/servicios/soap/stamp.wsdl"
	finkokCancelPath     = "/servicios/soap/cancel.wsdl"

	soapEnvNS = "http://schemas.xmlsoap.org/soap/envelope/"
	finkokNS  = "apps.services.soap.core.views"

	finkokStampedMarker = "Comprobante timbrado"
)

// finkokAdapter proveedor SOAP: credenciales en claro dentro del cuerpo.
type finkokAdapter struct {
	cfg       Config
	client    *http.Client
	stampURL  string
	cancelURL string
}

func newFinkok(cfg Config, client *http.Client, baseURL string) *finkokAdapter {
	host := baseURL
	if host == "" {
		host = finkokHostSandbox
		if cfg.production() {
			host = finkokHostProduction
		}
	}
	return &finkokAdapter{
		cfg:       cfg,
		client:    client,
		stampURL:  host + finkokStampPath,
		cancelURL: host + finkokCancelPath,
	}
}

// ── Estructuras SOAP ──────────────────────────────────────────────────────────

type finkokEnvelope struct {
	XMLName      xml.Name   `xml:"soapenv:Envelope"`
	XmlnsSoapenv string     `xml:"xmlns:soapenv,attr"`
	XmlnsStam    string     `xml:"xmlns:stam,attr,omitempty"`
	XmlnsCan     string     `xml:"xmlns:can,attr,omitempty"`
	Body         finkokBody `xml:"soapenv:Body"`
}

type finkokBody struct {
	Stamp  *finkokStamp  `xml:"stam:stamp,omitempty"`
	Cancel *finkokCancel `xml:"can:cancel,omitempty"`
}

type finkokStamp struct {
	XML      string `xml:"stam:xml"` // CFDI en Base64
	Username string `xml:"stam:username"`
	Password string `xml:"stam:password"`
}

type finkokCancel struct {
	UUIDs      finkokUUIDs `xml:"can:UUIDS"`
	Username   string      `xml:"can:username"`
	Password   string      `xml:"can:password"`
	TaxpayerID string      `xml:"can:taxpayer_id"`
}

type finkokUUIDs struct {
	Items []finkokUUID `xml:"can:uuids"`
}

type finkokUUID struct {
	UUID             string `xml:"can:UUID"`
	Motivo           string `xml:"can:Motivo"`
	FolioSustitucion string `xml:"can:FolioSustitucion,omitempty"`
}

// ── Timbrado ──────────────────────────────────────────────────────────────────

func (a *finkokAdapter) stamp(ctx context.Context, xmlBase []byte) (*entity.StampResult, error) {
	env := finkokEnvelope{
		XmlnsSoapenv: soapEnvNS,
		XmlnsStam:    finkokNS,
		Body: finkokBody{Stamp: &finkokStamp{
			XML:      base64.StdEncoding.EncodeToString(xmlBase),
			Username: a.cfg.Username,
			Password: a.cfg.Password,
		}},
	}
	raw, err := a.call(ctx, a.stampURL, "stamp", env)
	if err != nil {
		return nil, err
	}

	f, err := findTags(raw,
		"xml", "UUID", "FechaTimbrado", "Fecha", "SelloCFD", "SelloSAT", "SatSeal",
		"NoCertificadoSAT", "CadenaOriginalSAT", "CodEstatus", "CodigoError", "MensajeIncidencia",
	)
	if err != nil {
		return nil, err
	}

	if st := f["CodEstatus"]; st != "" && !strings.Contains(st, finkokStampedMarker) {
		return nil, rejected("%s", incidencia(f))
	}
	if f["UUID"] == "" {
		return nil, rejected("respuesta sin UUID: %s", incidencia(f))
	}

	return &entity.StampResult{
		UUID: f["UUID"],
		CFDIStamp: entity.CFDIStamp{
			XML:              decodeMaybeBase64(f["xml"]),
			SelloCFD:         f["SelloCFD"],
			SelloSAT:         firstNonEmpty(f["SelloSAT"], f["SatSeal"]),
			FechaTimbrado:    firstNonEmpty(f["FechaTimbrado"], f["Fecha"]),
			NoCertificadoSAT: f["NoCertificadoSAT"],
			CadenaOriginal:   f["CadenaOriginalSAT"],
		},
	}, nil
}

// ── Cancelación ───────────────────────────────────────────────────────────────

func (a *finkokAdapter) cancel(ctx context.Context, req CancelRequest) (*CancelResult, error) {
	env := finkokEnvelope{
		XmlnsSoapenv: soapEnvNS,
		XmlnsCan:     finkokNS,
		Body: finkokBody{Cancel: &finkokCancel{
			UUIDs: finkokUUIDs{Items: []finkokUUID{{
				UUID:             req.UUID,
				Motivo:           req.Motivo,
				FolioSustitucion: req.FolioSustitucion,
			}}},
			Username:   a.cfg.Username,
			Password:   a.cfg.Password,
			TaxpayerID: req.RFCEmisor,
		}},
	}
	raw, err := a.call(ctx, a.cancelURL, "cancel", env)
	if err != nil {
		return nil, err
	}

	f, err := findTags(raw, "EstatusUUID", "CodEstatus", "Acuse", "CodigoError", "MensajeIncidencia")
	if err != nil {
		return nil, err
	}
	status := f["EstatusUUID"]
	if !strings.Contains(status, "201") && !strings.Contains(status, "202") {
		if status == "" {
			return nil, rejected("%s", incidencia(f))
		}
		return nil, rejected("estatus de cancelación %s", status)
	}
	return &CancelResult{
		Status:  status,
		Message: firstNonEmpty(f["CodEstatus"], "Cancelación solicitada"),
		Acuse:   f["Acuse"],
	}, nil
}

// ── Transporte ────────────────────────────────────────────────────────────────

func (a *finkokAdapter) call(ctx context.Context, url, action string, env finkokEnvelope) ([]byte, error) {
	payload, err := xml.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("soap: serializar envelope: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url,
		bytes.NewReader(append([]byte(xml.Header), payload...)))
	if err != nil {
		return nil, fmt.Errorf("soap: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", action)

	code, raw, err := do(a.client, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("soap: timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("soap: llamada HTTP fallida: %w", err)
	}
	if !is2xx(code) {
		if f, perr := findTags(raw, "faultstring"); perr == nil && f["faultstring"] != "" {
			return nil, fmt.Errorf("soap: HTTP %d: %s", code, f["faultstring"])
		}
		return nil, fmt.Errorf("soap: HTTP %d", code)
	}
	return raw, nil
}

// ── Parseo ────────────────────────────────────────────────────────────────────

// findTags recorre la respuesta y devuelve el texto de la primera aparición de
// cada etiqueta buscada, sin importar el prefijo de namespace.
func findTags(raw []byte, tags ...string) (map[string]string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("soap: respuesta no es XML válido: %w", err)
	}
	want := make(map[string]bool, len(tags))
	for _, t := range tags {
		want[t] = true
	}
	out := make(map[string]string, len(tags))

	var walk func(e *etree.Element)
	walk = func(e *etree.Element) {
		if want[e.Tag] {
			if _, seen := out[e.Tag]; !seen {
				out[e.Tag] = strings.TrimSpace(e.Text())
			}
		}
		for _, c := range e.ChildElements() {
			walk(c)
		}
	}
	if root := doc.Root(); root != nil {
		walk(root)
	}
	return out, nil
}

// incidencia compone el detalle de rechazo: "[CodigoError]: mensaje".
func incidencia(f map[string]string) string {
	msg := firstNonEmpty(f["MensajeIncidencia"], f["CodEstatus"], "sin detalle del proveedor")
	if code := f["CodigoError"]; code != "" {
		return fmt.Sprintf("[%s]: %s", code, msg)
	}
	return msg
}

// decodeMaybeBase64 el CFDI timbrado puede venir escapado o en Base64.
func decodeMaybeBase64(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "<?xml") || strings.HasPrefix(s, "<cfdi:") {
		return s
	}
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return s
	}
	return string(decoded)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
