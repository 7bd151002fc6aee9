// Package pac integra los Proveedores Autorizados de Certificación que timbran
// y cancelan CFDI ante el SAT.
package pac

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/servo98/express-invoices/internal/domain"
	"github.com/servo98/express-invoices/internal/domain/entity"
)

// ── Configuración ─────────────────────────────────────────────────────────────

const (
	ProviderFinkok   = "finkok"
	ProviderSWSapien = "swsapien"

	EnvSandbox    = "sandbox"
	EnvProduction = "production"

	DefaultTimeout = 30 * time.Second

	maxResponseBytes = 8 << 20
)

// Config credenciales y selección de proveedor.
type Config struct {
	Provider    string
	Username    string
	Password    string
	Environment string
	Timeout     time.Duration
}

// IsConfigured indica si hay un proveedor conocido con usuario y contraseña.
func (c Config) IsConfigured() bool {
	switch c.Provider {
	case ProviderFinkok, ProviderSWSapien:
	default:
		return false
	}
	return c.Username != "" && c.Password != ""
}

func (c Config) production() bool { return c.Environment == EnvProduction }

// CancelRequest datos para cancelar un CFDI timbrado.
type CancelRequest struct {
	UUID             string
	RFCEmisor        string
	Motivo           string
	FolioSustitucion string
}

// CancelResult respuesta normalizada de la cancelación.
type CancelResult struct {
	Status  string // EstatusUUID (Finkok) o status (SW)
	Message string
	Acuse   string
}

// adapter contrato interno que implementa cada proveedor.
type adapter interface {
	stamp(ctx context.Context, xmlBase []byte) (*entity.StampResult, error)
	cancel(ctx context.Context, req CancelRequest) (*CancelResult, error)
}

// ── Servicio ──────────────────────────────────────────────────────────────────

// Service cliente PAC independiente del proveedor activo.
type Service struct {
	cfg        Config
	httpClient *http.Client
	baseURL    string
	adapter    adapter
}

// Option configura el Service.
type Option func(*Service)

// WithHTTPClient reemplaza el cliente HTTP (pruebas, proxies).
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithBaseURL fuerza el host del proveedor en lugar del de su ambiente.
func WithBaseURL(u string) Option {
	return func(s *Service) { s.baseURL = strings.TrimRight(u, "/") }
}

// New construye el cliente. Un Config incompleto es válido: las operaciones
// fallan con domain.ErrPACNotConfigured antes de tocar la red.
func New(cfg Config, opts ...Option) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Environment == "" {
		cfg.Environment = EnvSandbox
	}
	s := &Service{cfg: cfg, httpClient: &http.Client{}}
	for _, opt := range opts {
		opt(s)
	}
	switch cfg.Provider {
	case ProviderFinkok:
		s.adapter = newFinkok(cfg, s.httpClient, s.baseURL)
	case ProviderSWSapien:
		s.adapter = newSWSapien(cfg, s.httpClient, s.baseURL)
	}
	return s
}

// IsConfigured indica si el timbrado está disponible.
func (s *Service) IsConfigured() bool { return s.cfg.IsConfigured() && s.adapter != nil }

// Provider nombre del proveedor configurado.
func (s *Service) Provider() string { return s.cfg.Provider }

// Timbrar envía el XML base y devuelve el CFDI sellado con su folio fiscal.
// La llamada no se reintenta: cada timbrado altera el estado del lado del SAT.
func (s *Service) Timbrar(ctx context.Context, xmlBase []byte) (*entity.StampResult, error) {
	if !s.IsConfigured() {
		return nil, domain.ErrPACNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	res, err := s.adapter.stamp(ctx, xmlBase)
	if err != nil {
		return nil, s.wrap(ctx, OpStamp, err)
	}
	completeFromTimbre(res)
	res.UUID = normalizeUUID(res.UUID)
	if missing := res.Missing(); len(missing) > 0 {
		return nil, s.wrap(ctx, OpStamp, rejected("respuesta incompleta, falta: %s", strings.Join(missing, ", ")))
	}
	return res, nil
}

// Cancelar solicita la cancelación de un CFDI timbrado.
func (s *Service) Cancelar(ctx context.Context, req CancelRequest) (*CancelResult, error) {
	if !s.IsConfigured() {
		return nil, domain.ErrPACNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	res, err := s.adapter.cancel(ctx, req)
	if err != nil {
		return nil, s.wrap(ctx, OpCancel, err)
	}
	return res, nil
}

func (s *Service) wrap(ctx context.Context, op string, err error) error {
	return &Error{
		Provider: s.cfg.Provider,
		Op:       op,
		Detail:   err.Error(),
		Timeout:  isTimeout(ctx, err),
		Err:      err,
	}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// normalizeUUID devuelve el folio en mayúsculas con guiones.
func normalizeUUID(raw string) string {
	raw = strings.TrimSpace(raw)
	if id, err := uuid.Parse(raw); err == nil {
		return strings.ToUpper(id.String())
	}
	return strings.ToUpper(raw)
}

// ── HTTP ──────────────────────────────────────────────────────────────────────

// do ejecuta la petición y lee el cuerpo completo (acotado).
func do(client *http.Client, req *http.Request) (int, []byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func is2xx(code int) bool { return code >= 200 && code < 300 }
