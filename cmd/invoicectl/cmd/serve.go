package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpRouter "github.com/servo98/express-invoices/internal/interfaces/http"
)

var (
	swaggerFile string
	corsOrigins string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP API server.

Routes:
  - POST /api/auth/register, /api/auth/login
  - /api/invoices (CRUD, timbrar, cancel, clone, clone-latest)
  - GET  /api/invoices/:id/xml|pdf|bundle, POST /api/invoices/:id/email
  - GET  /api/exchange-rate
  - GET  /api/cron/send-reminders (Bearer CRON_SECRET)
  - GET  /health, /docs`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&swaggerFile, "swagger", "./docs/swagger.json", "OpenAPI document served at /docs")
	serveCmd.Flags().StringVar(&corsOrigins, "cors-origins", "*", "Allowed CORS origins")
}

func runServe(cmd *cobra.Command, _ []string) error {
	c, err := loadContainer(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer c.Close()

	app := httpRouter.NewApp(httpRouter.AppConfig{
		Name:        c.Config.App.Name,
		SwaggerFile: swaggerFile,
		CORSOrigins: corsOrigins,
	}, c.RouterDeps())

	errCh := make(chan error, 1)
	go func() {
		c.Log.Info().Str("addr", c.Config.HTTP.Addr()).Msg("servidor HTTP escuchando")
		errCh <- app.Listen(c.Config.HTTP.Addr())
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	c.Log.Info().Msg("señal de apagado recibida, cerrando servidor...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}
