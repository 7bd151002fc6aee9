// Package exchange obtiene el tipo de cambio USD/MXN para el campo TipoCambio del CFDI.
package exchange

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

const (
	banxicoBaseURL = "https://www.banxico.org.mx/SieAPIRest/service/v1"
	// SF43718: tipo de cambio FIX.
	banxicoSeries = "SF43718"
	erAPIURL      = "https://open.er-api.com/v6/latest/USD"

	SourceBanxico     = "banxico"
	SourceExchangeAPI = "exchangerate-api"
	SourceFallback    = "fallback"
)

// FallbackRate último recurso cuando ninguna fuente responde.
var FallbackRate = decimal.NewFromInt(17)

// Rate tipo de cambio con la fecha de publicación como etiqueta legible.
type Rate struct {
	Value  decimal.Decimal
	Date   string
	Source string
}

// Service consulta Banxico (si hay token), luego ExchangeRate-API y por último FallbackRate.
type Service struct {
	httpClient   *http.Client
	banxicoToken string
	banxicoURL   string
	erURL        string
	loc          *time.Location
	now          func() time.Time
	log          zerolog.Logger
}

// Option ajusta el servicio.
type Option func(*Service)

// WithHTTPClient reemplaza el cliente HTTP.
func WithHTTPClient(c *http.Client) Option { return func(s *Service) { s.httpClient = c } }

// WithEndpoints reemplaza las URLs base de Banxico y ExchangeRate-API.
func WithEndpoints(banxico, erAPI string) Option {
	return func(s *Service) {
		s.banxicoURL = banxico
		s.erURL = erAPI
	}
}

// WithClock fija el reloj.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithLogger asigna el logger estructurado.
func WithLogger(log zerolog.Logger) Option { return func(s *Service) { s.log = log } }

// NewService construye el servicio. banxicoToken vacío omite Banxico.
func NewService(banxicoToken string, opts ...Option) *Service {
	loc, err := time.LoadLocation("America/Mexico_City")
	if err != nil {
		loc = time.FixedZone("CST", -6*60*60)
	}
	s := &Service{
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		banxicoToken: banxicoToken,
		banxicoURL:   banxicoBaseURL,
		erURL:        erAPIURL,
		loc:          loc,
		now:          time.Now,
		log:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetUsdToMxn nunca falla: cada fuente que no responde cede a la siguiente.
func (s *Service) GetUsdToMxn(ctx context.Context) Rate {
	if s.banxicoToken != "" {
		rate, err := s.fetchBanxico(ctx)
		if err == nil {
			return rate
		}
		s.log.Warn().Err(err).Msg("banxico sin tipo de cambio, se usa ExchangeRate-API")
	}
	rate, err := s.fetchExchangeRateAPI(ctx)
	if err == nil {
		return rate
	}
	s.log.Warn().Err(err).Msg("ExchangeRate-API sin tipo de cambio, se usa valor fijo")

	return Rate{
		Value:  FallbackRate,
		Date:   s.now().In(s.loc).Format("2006-01-02") + " (fallback - configure BANXICO_TOKEN for official rate)",
		Source: SourceFallback,
	}
}

// fetchBanxico pide los últimos 5 días para cubrir fines de semana. El FIX de hoy se
// publica en el DOF de mañana, así que si el último dato es de hoy se usa el anterior.
func (s *Service) fetchBanxico(ctx context.Context) (Rate, error) {
	today := s.now().In(s.loc)
	from := today.AddDate(0, 0, -5)
	url := fmt.Sprintf("%s/series/%s/datos/%s/%s", s.banxicoURL, banxicoSeries,
		from.Format("2006-01-02"), today.Format("2006-01-02"))

	body, err := s.get(ctx, url, map[string]string{"Bmx-Token": s.banxicoToken, "Accept": "application/json"})
	if err != nil {
		return Rate{}, err
	}

	type datum struct {
		fecha string
		dato  decimal.Decimal
	}
	var datos []datum
	gjson.GetBytes(body, "bmx.series.0.datos").ForEach(func(_, v gjson.Result) bool {
		d, err := decimal.NewFromString(v.Get("dato").String())
		if err == nil {
			datos = append(datos, datum{fecha: v.Get("fecha").String(), dato: d})
		}
		return true
	})
	if len(datos) == 0 {
		return Rate{}, fmt.Errorf("exchange: banxico sin datos")
	}

	use := datos[len(datos)-1]
	if use.fecha == today.Format("02/01/2006") && len(datos) > 1 {
		use = datos[len(datos)-2]
	}
	return Rate{Value: use.dato, Date: use.fecha + " (DOF vigente)", Source: SourceBanxico}, nil
}

func (s *Service) fetchExchangeRateAPI(ctx context.Context) (Rate, error) {
	body, err := s.get(ctx, s.erURL, nil)
	if err != nil {
		return Rate{}, err
	}
	doc := gjson.ParseBytes(body)
	if doc.Get("result").String() != "success" {
		return Rate{}, fmt.Errorf("exchange: ExchangeRate-API result=%q", doc.Get("result").String())
	}
	mxn := doc.Get("rates.MXN")
	if !mxn.Exists() {
		return Rate{}, fmt.Errorf("exchange: ExchangeRate-API sin MXN")
	}
	value, err := decimal.NewFromString(mxn.Raw)
	if err != nil {
		return Rate{}, fmt.Errorf("exchange: MXN inválido %q: %w", mxn.Raw, err)
	}

	date := s.now().UTC().Format("2006-01-02")
	if updated := doc.Get("time_last_update_utc").String(); updated != "" {
		if t, err := time.Parse(time.RFC1123Z, updated); err == nil {
			date = t.UTC().Format("2006-01-02")
		}
	}
	return Rate{Value: value.Round(4), Date: date + " (ExchangeRate-API)", Source: SourceExchangeAPI}, nil
}

func (s *Service) get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("exchange: crear request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exchange: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("exchange: leer respuesta: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("exchange: %s respondió %s", req.URL.Host, resp.Status)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("exchange: respuesta no es JSON")
	}
	return body, nil
}
