package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"threegen/internal/app"
	syncdomain "threegen/internal/domain/sync"
	"threegen/pkg/logger"
)

var watermarkCmd = &cobra.Command{
	Use:   "watermark",
	Short: "Inspect or reset the pull watermark",
}

var watermarkShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current watermark",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(func(device *app.Device, log logger.Logger) error {
			watermark, err := device.Sync.Watermark(cmd.Context())
			if err != nil {
				return err
			}
			printWatermark(cmd.OutOrStdout(), watermark)
			return nil
		})
	},
}

var watermarkResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the watermark so the next pull fetches everything",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(func(device *app.Device, log logger.Logger) error {
			if err := device.Sync.ResetWatermark(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "watermark reset")
			return nil
		})
	},
}

func init() {
	watermarkCmd.AddCommand(watermarkShowCmd, watermarkResetCmd)
	rootCmd.AddCommand(watermarkCmd)
}

func printWatermark(w io.Writer, watermark syncdomain.Watermark) {
	if watermark.Timestamp == 0 {
		fmt.Fprintln(w, "watermark: none (next pull is full)")
		return
	}
	at := time.UnixMilli(watermark.Timestamp).UTC().Format(time.RFC3339)
	fmt.Fprintf(w, "watermark: %d (%s) owner %s\n", watermark.Timestamp, at, watermark.OwnerID)
}
