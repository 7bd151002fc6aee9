package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/servo98/express-invoices/internal/bootstrap"
	"github.com/servo98/express-invoices/pkg/config"
	"github.com/servo98/express-invoices/pkg/logger"
)

var (
	version = "1.0.0"

	// Global flags
	verbose  bool
	inMemory bool
)

var rootCmd = &cobra.Command{
	Use:   "invoicectl",
	Short: "Operate the express-invoices CFDI service",
	Long: `invoicectl runs the API server and the operational tasks of express-invoices.

Configuration is read from .env / config.env and the environment
(DATABASE_URL, JWT_SECRET, PAC_PROVIDER, PAC_USERNAME, PAC_PASSWORD, ...).

Examples:
  # Start the HTTP API
  invoicectl serve

  # Send this month's Discord reminders
  invoicectl remind

  # Print the base CFDI XML of an invoice
  invoicectl xml <invoice-id> --user ana@example.com

  # Release an invoice blocked by an ambiguous stamp attempt
  invoicectl journal resolve <invoice-id>`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute ejecuta el comando raíz.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&inMemory, "memory", false, "Use in-memory storage instead of PostgreSQL")
}

// loadContainer carga configuración, logger y dependencias. withJournal abre la bitácora
// de timbrado, que queda bloqueada mientras el proceso viva. El llamador debe cerrar el contenedor.
func loadContainer(ctx context.Context, withJournal bool) (*bootstrap.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("cargar configuración: %w", err)
	}
	level := cfg.App.LogLevel
	if verbose {
		level = "debug"
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: level, Out: os.Stderr})
	return bootstrap.New(ctx, cfg, log, bootstrap.Options{InMemory: inMemory, WithoutJournal: !withJournal})
}

// resolveUser acepta un id de usuario o un email.
func resolveUser(ctx context.Context, c *bootstrap.Container, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("--user es obligatorio")
	}
	if !strings.Contains(ref, "@") {
		return ref, nil
	}
	u, err := c.Users.FindByEmail(ctx, ref)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", fmt.Errorf("usuario %q no encontrado", ref)
	}
	return u.ID, nil
}
