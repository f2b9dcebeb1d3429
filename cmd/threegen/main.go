package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"threegen/internal/app"
	"threegen/internal/config"
	"threegen/pkg/logger"
)

// errReported means the command already printed its failure.
var errReported = errors.New("reported")

var (
	dbPathFlag    string
	remoteURLFlag string
)

var rootCmd = &cobra.Command{
	Use:           "threegen",
	Short:         "Family tree member records with offline sync",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "", "local database path (default THREEGEN_DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&remoteURLFlag, "remote", "", "remote service URL (default THREEGEN_REMOTE_URL)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

// withDevice opens the device for the duration of fn.
func withDevice(fn func(device *app.Device, log logger.Logger) error) error {
	log := logger.NewFromEnv()

	cfg, err := config.Load(log)
	if err != nil {
		return err
	}
	if dbPathFlag != "" {
		cfg.Device.LocalDBPath = dbPathFlag
	}
	if remoteURLFlag != "" {
		cfg.Device.RemoteURL = remoteURLFlag
	}

	device, err := app.NewDevice(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := device.Close(); err != nil {
			log.Error("device: close failed", "err", err)
		}
	}()

	return fn(device, log)
}
