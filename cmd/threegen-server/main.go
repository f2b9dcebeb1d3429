package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"threegen/internal/app"
	"threegen/internal/config"
	"threegen/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:           "threegen-server",
	Short:         "Serve member documents to threegen devices",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.NewFromEnv()
		cfg, err := loadConfig(log)
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg, log)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.NewFromEnv()
		cfg, err := loadConfig(log)
		if err != nil {
			return err
		}
		if err := app.Migrate(cfg, log); err != nil {
			return err
		}
		log.Info("app: migrations applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.NewFromEnv().Critical("app: failed", "err", err)
		os.Exit(1)
	}
}

func loadConfig(log logger.Logger) (config.Config, error) {
	cfg, err := config.Load(log)
	if err != nil {
		return config.Config{}, err
	}
	log.Info("app: config loaded",
		"env", cfg.Env,
		"port", cfg.HTTPPort,
		"auth_mode", cfg.Supabase.AuthMode(),
		"cors_origins", cfg.CORSOrigins,
	)
	return cfg, nil
}

// serve runs the document service until ctx is cancelled, then drains open
// requests for up to cfg.ShutdownTimeout.
func serve(ctx context.Context, cfg config.Config, log logger.Logger) error {
	application, err := app.New(cfg, log)
	if err != nil {
		return err
	}

	srv := application.HTTPServer()
	log.Info("http: listening", "addr", srv.Addr)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
		close(serverErrCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("app: shutdown signal received")
	case err := <-serverErrCh:
		if err != nil {
			log.Critical("http: server failed", "addr", srv.Addr, "err", err)
			runErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("http: graceful shutdown failed", "err", err)
		runErr = errors.Join(runErr, err)
	}
	if err := application.Close(); err != nil {
		log.Error("app: close failed", "err", err)
		runErr = errors.Join(runErr, err)
	}

	if runErr == nil {
		log.Info("app: stopped")
	}
	return runErr
}
