package http

import (
	"os"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	appanalytics "github.com/servo98/express-invoices/internal/application/analytics"
	"github.com/servo98/express-invoices/internal/application/auth"
	"github.com/servo98/express-invoices/internal/application/billing"
	"github.com/servo98/express-invoices/internal/application/reminder"
	"github.com/servo98/express-invoices/internal/application/usecase"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC     *auth.AuthUseCase
	InvoiceUC  *billing.InvoiceUseCase
	Stamps     *billing.StampOrchestrator
	Documents  *billing.DocumentsUseCase
	Reminders  *reminder.UseCase
	UserUC     *usecase.UserUseCase
	Dashboard  *appanalytics.DashboardUseCase
	Rates      RateSource
	JWTSecret  string
	CronSecret string
}

// AppConfig parámetros del servidor Fiber.
type AppConfig struct {
	Name        string
	SwaggerFile string // vacío o inexistente: sin /docs
	CORSOrigins string
}

// NewApp crea la aplicación Fiber con middlewares, /health, /docs y las rutas de la API.
func NewApp(cfg AppConfig, deps RouterDeps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      cfg.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 60, // el timbrado puede tardar hasta PAC_TIMEOUT_SECONDS
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	origins := cfg.CORSOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{AllowOrigins: origins}))

	// Swagger UI en local: http://localhost:<port>/docs
	if cfg.SwaggerFile != "" {
		if _, err := os.Stat(cfg.SwaggerFile); err == nil {
			app.Use(swagger.New(swagger.Config{
				BasePath: "/",
				FilePath: cfg.SwaggerFile,
				Path:     "docs",
				Title:    "Express Invoices API",
			}))
		}
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.Name})
	})

	Router(app, deps)
	return app
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Get("/me", AuthMiddleware(deps.JWTSecret), authHandler.Me)

	// Cron (Bearer CRON_SECRET, no JWT)
	if deps.Reminders != nil {
		cron := api.Group("/cron", RequireCronSecret(deps.CronSecret))
		cron.Get("/send-reminders", NewCronHandler(deps.Reminders).SendReminders)
	}

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	if deps.Rates != nil {
		protected.Get("/exchange-rate", NewExchangeHandler(deps.Rates).UsdToMxn)
	}

	// Perfil y ajustes
	if deps.UserUC != nil {
		profileHandler := NewProfileHandler(deps.UserUC)
		protected.Get("/profile", profileHandler.GetProfile)
		protected.Put("/profile", profileHandler.UpdateProfile)
		protected.Get("/settings", profileHandler.GetSettings)
		protected.Put("/settings", profileHandler.UpdateSettings)
	}

	// Dashboard
	if deps.Dashboard != nil {
		protected.Get("/dashboard/summary", NewDashboardHandler(deps.Dashboard).GetSummary)
	}

	// Invoices
	invoices := protected.Group("/invoices")
	invoiceHandler := NewInvoiceHandler(deps.InvoiceUC, deps.Stamps)
	invoices.Get("/", invoiceHandler.List)
	invoices.Post("/", invoiceHandler.Create)
	invoices.Post("/clone-latest", invoiceHandler.CloneLatest)
	invoices.Get("/period/:period", invoiceHandler.GetByPeriod)
	invoices.Get("/:id", invoiceHandler.GetByID)
	invoices.Put("/:id", invoiceHandler.Update)
	invoices.Delete("/:id", invoiceHandler.Delete)
	invoices.Post("/:id/clone", invoiceHandler.Clone)
	invoices.Post("/:id/timbrar", invoiceHandler.Timbrar)
	invoices.Post("/:id/cancel", invoiceHandler.Cancel)

	// Documentos
	documentHandler := NewDocumentHandler(deps.Documents)
	invoices.Get("/:id/xml", documentHandler.XML)
	invoices.Get("/:id/pdf", documentHandler.PDF)
	invoices.Get("/:id/bundle", documentHandler.Bundle)
	invoices.Post("/:id/email", documentHandler.Email)
}
