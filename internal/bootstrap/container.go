// Package bootstrap arma el grafo de dependencias a partir de la configuración.
// Lo comparten el servidor HTTP y la CLI.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/servo98/express-invoices/internal/application/analytics"
	"github.com/servo98/express-invoices/internal/application/auth"
	"github.com/servo98/express-invoices/internal/application/billing"
	"github.com/servo98/express-invoices/internal/application/reminder"
	"github.com/servo98/express-invoices/internal/application/usecase"
	"github.com/servo98/express-invoices/internal/domain/repository"
	"github.com/servo98/express-invoices/internal/infrastructure/bundle"
	"github.com/servo98/express-invoices/internal/infrastructure/cfdi"
	"github.com/servo98/express-invoices/internal/infrastructure/exchange"
	"github.com/servo98/express-invoices/internal/infrastructure/journal"
	"github.com/servo98/express-invoices/internal/infrastructure/mail"
	"github.com/servo98/express-invoices/internal/infrastructure/memory"
	"github.com/servo98/express-invoices/internal/infrastructure/notify"
	"github.com/servo98/express-invoices/internal/infrastructure/pac"
	"github.com/servo98/express-invoices/internal/infrastructure/pdf"
	"github.com/servo98/express-invoices/internal/infrastructure/postgres"
	httpRouter "github.com/servo98/express-invoices/internal/interfaces/http"
	"github.com/servo98/express-invoices/pkg/config"
	"github.com/servo98/express-invoices/pkg/logger"
)

// Options ajustes de arranque que no vienen de la configuración.
type Options struct {
	// InMemory usa repositorios en memoria en lugar de PostgreSQL (demo local).
	InMemory bool
	// WithoutJournal no abre la bitácora de timbrado (el archivo queda bloqueado por el
	// proceso que la abre). Sin bitácora no se construye el orquestador de timbrado.
	WithoutJournal bool
}

// Container casos de uso listos para usar.
type Container struct {
	Config *config.Config
	Log    *logger.Logger

	Users     repository.UserRepository
	Auth      *auth.AuthUseCase
	Invoices  *billing.InvoiceUseCase
	Stamps    *billing.StampOrchestrator
	Documents *billing.DocumentsUseCase
	Reminders *reminder.UseCase
	Profile   *usecase.UserUseCase
	Dashboard *analytics.DashboardUseCase
	Rates     *exchange.Service
	Journal   *journal.Store // nil con WithoutJournal

	closers []func()
}

// New construye el contenedor. Close libera pool y bitácora.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, opts Options) (*Container, error) {
	c := &Container{Config: cfg, Log: log}

	var (
		invoices repository.InvoiceRepository
		users    repository.UserRepository
		settings repository.SettingsRepository
		tx       auth.TxRunner
	)
	if opts.InMemory {
		mSettings := memory.NewSettingsRepository()
		mUsers := memory.NewUserRepository(mSettings)
		invoices, users, settings = memory.NewInvoiceRepository(), mUsers, mSettings
		tx = memory.TxRunner{Users: mUsers, Settings: mSettings}
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al salir")
	} else {
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		c.closers = append(c.closers, pool.Close)
		invoices, users, settings, tx = postgresRepos(pool)
	}
	c.Users = users

	generator := cfdi.NewXMLBuilderService(cfdi.WithLocation(cfg.CFDI.Location))
	pacService := pac.New(pac.Config{
		Provider:    cfg.PAC.Provider,
		Username:    cfg.PAC.Username,
		Password:    cfg.PAC.Password,
		Environment: cfg.PAC.Environment,
		Timeout:     cfg.PAC.Timeout(),
	})
	if !pacService.IsConfigured() {
		log.Warn().Str("provider", cfg.PAC.Provider).Msg("PAC no configurado: el timbrado responderá 503")
	}

	c.Auth = auth.NewAuthUseCase(users, tx, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	c.Invoices = billing.NewInvoiceUseCase(invoices)
	c.Profile = usecase.NewUserUseCase(users, settings)
	c.Dashboard = analytics.NewDashboardUseCase(invoices)
	if !opts.WithoutJournal {
		j, err := journal.Open(cfg.PAC.JournalPath)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("bitácora de timbrado: %w", err)
		}
		c.Journal = j
		c.closers = append(c.closers, func() { _ = j.Close() })
		c.Stamps = billing.NewStampOrchestrator(invoices, users, generator, pacService,
			billing.WithJournal(j),
			billing.WithStampLogger(log.Component("timbrado")),
		)
	}
	c.Documents = billing.NewDocumentsUseCase(invoices, users, generator,
		pdf.NewMarotoPDFGenerator(), bundle.NewZipBuilder(time.Time{}), mail.NewSender(),
		log.Component("documentos"),
	)

	httpClient := &http.Client{Timeout: 15 * time.Second}
	c.Reminders = reminder.NewUseCase(users, settings, invoices,
		notify.NewDiscordNotifier(httpClient), cfg.App.URL,
		reminder.WithLogger(log.Component("recordatorios")),
	)
	c.Rates = exchange.NewService(cfg.Exchange.BanxicoToken,
		exchange.WithHTTPClient(httpClient),
		exchange.WithLogger(log.Component("tipo-cambio")),
	)
	return c, nil
}

// RouterDeps dependencias del router HTTP.
func (c *Container) RouterDeps() httpRouter.RouterDeps {
	return httpRouter.RouterDeps{
		AuthUC:     c.Auth,
		InvoiceUC:  c.Invoices,
		Stamps:     c.Stamps,
		Documents:  c.Documents,
		Reminders:  c.Reminders,
		UserUC:     c.Profile,
		Dashboard:  c.Dashboard,
		Rates:      c.Rates,
		JWTSecret:  c.Config.JWT.Secret,
		CronSecret: c.Config.Reminder.CronSecret,
	}
}

// Close libera los recursos en orden inverso.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

func postgresRepos(pool *pgxpool.Pool) (repository.InvoiceRepository, repository.UserRepository, repository.SettingsRepository, auth.TxRunner) {
	return postgres.NewInvoiceRepository(pool),
		postgres.NewUserRepository(pool),
		postgres.NewSettingsRepository(pool),
		postgres.NewTxRunner(pool)
}

