package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"threegen/internal/app"
	syncdomain "threegen/internal/domain/sync"
	"threegen/internal/scheduler"
	"threegen/pkg/logger"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Exchange member records with the remote service",
}

var syncPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Upload local changes and pending deletes",
	Long:  "Upload local changes and pending deletes. --all sends every record again, for a remote that lost documents.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		return withDevice(func(device *app.Device, log logger.Logger) error {
			if all {
				requeued, err := device.Sync.RequeueAll(cmd.Context())
				if err != nil {
					return err
				}
				log.Info("sync.push: requeued synced records", "count", requeued)
			}
			result, err := device.Sync.Push(cmd.Context())
			printPush(cmd.OutOrStdout(), result)
			return reportSync(cmd.OutOrStdout(), "push", err)
		})
	},
}

var syncPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Merge remote changes into the local store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		full, _ := cmd.Flags().GetBool("full")
		return withDevice(func(device *app.Device, log logger.Logger) error {
			result, err := device.Sync.Pull(cmd.Context(), syncdomain.PullInput{IsFirstRun: full})
			printPull(cmd.OutOrStdout(), result)
			return reportSync(cmd.OutOrStdout(), "pull", err)
		})
	},
}

var syncNowCmd = &cobra.Command{
	Use:   "now",
	Short: "Push, then pull",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		full, _ := cmd.Flags().GetBool("full")
		return withDevice(func(device *app.Device, log logger.Logger) error {
			result, err := device.Sync.Sync(cmd.Context(), full)
			if result != nil {
				printPush(cmd.OutOrStdout(), result.Push)
				printPull(cmd.OutOrStdout(), result.Pull)
			}
			return reportSync(cmd.OutOrStdout(), "sync", err)
		})
	},
}

var syncRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Keep syncing in the background until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		full, _ := cmd.Flags().GetBool("full")
		return withDevice(func(device *app.Device, log logger.Logger) error {
			sched := device.NewScheduler(scheduler.NewLogNotifier(log))
			return device.RunSync(cmd.Context(), sched, full)
		})
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pending local changes and the pull watermark",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(func(device *app.Device, log logger.Logger) error {
			ctx := cmd.Context()
			dirty, deletes, err := device.Sync.PendingCounts(ctx)
			if err != nil {
				return err
			}
			watermark, err := device.Sync.Watermark(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pending records: %d\n", dirty)
			fmt.Fprintf(out, "pending deletes: %d\n", deletes)
			printWatermark(out, watermark)
			return nil
		})
	},
}

func init() {
	syncPushCmd.Flags().Bool("all", false, "send every record, not only local changes")
	syncPullCmd.Flags().Bool("full", false, "ignore the watermark and fetch everything")
	syncNowCmd.Flags().Bool("full", false, "ignore the watermark and fetch everything")
	syncRunCmd.Flags().Bool("full", false, "start with a full pull")

	syncCmd.AddCommand(syncPushCmd, syncPullCmd, syncNowCmd, syncRunCmd, syncStatusCmd)
	rootCmd.AddCommand(syncCmd)
}

// reportSync prints a failed run as a status line instead of an error dump.
func reportSync(w io.Writer, op string, err error) error {
	if err == nil {
		fmt.Fprintf(w, "%s: ok\n", op)
		return nil
	}
	switch {
	case syncdomain.IsTransient(err):
		fmt.Fprintf(w, "%s: incomplete, will retry later: %v\n", op, err)
	default:
		fmt.Fprintf(w, "%s: failed: %v\n", op, err)
	}
	return errReported
}

func printPush(w io.Writer, result *syncdomain.PushResult) {
	if result == nil {
		return
	}
	if message := result.Message(); message != "" {
		fmt.Fprintln(w, message)
	}
	fmt.Fprintf(w, "push: %d pushed, %d deleted, %d failed\n", result.Pushed, result.Deleted, result.Failed)
}

func printPull(w io.Writer, result *syncdomain.PullResult) {
	if result == nil {
		return
	}
	if message := result.Message(); message != "" {
		fmt.Fprintln(w, message)
	}
	mode := "incremental"
	if result.FullPull {
		mode = "full"
	}
	fmt.Fprintf(w, "pull (%s): %d fetched, %d inserted, %d updated, %d deleted, %d conflicts, %d failed\n",
		mode, result.Fetched, result.Inserted, result.Updated, result.Deleted, result.Conflicts, result.Failed)
}
