package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"threegen/internal/app"
	memberdomain "threegen/internal/domain/member"
	"threegen/pkg/logger"
)

var memberCmd = &cobra.Command{
	Use:   "member",
	Short: "Create, edit and browse member records",
}

var memberAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a member record",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(func(device *app.Device, log logger.Logger) error {
			ctx := cmd.Context()
			input := memberdomain.CreateInput{
				FirstName:  flagString(cmd, "first"),
				MiddleName: flagString(cmd, "middle"),
				LastName:   flagString(cmd, "last"),
				Town:       flagString(cmd, "town"),
				ImageURL:   optionalString(cmd, "image"),
				Comment:    optionalString(cmd, "comment"),
			}
			if cmd.Flags().Changed("child-number") {
				value, _ := cmd.Flags().GetInt("child-number")
				input.ChildNumber = &value
			}

			var err error
			if input.ParentID, err = resolveOptionalRef(ctx, device, flagString(cmd, "parent")); err != nil {
				return err
			}
			if input.SpouseID, err = resolveOptionalRef(ctx, device, flagString(cmd, "spouse")); err != nil {
				return err
			}

			record, err := device.Members.Create(ctx, input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "CREATED %s %s\n", record.ShortName, record.ID)
			return nil
		})
	},
}

var memberEditCmd = &cobra.Command{
	Use:   "edit <short-name|id>",
	Short: "Change fields of a member record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(func(device *app.Device, log logger.Logger) error {
			ctx := cmd.Context()
			record, err := resolveRef(ctx, device, args[0])
			if err != nil {
				return err
			}

			input := memberdomain.UpdateInput{ID: record.ID}
			input.FirstName = optionalString(cmd, "first")
			input.MiddleName = optionalString(cmd, "middle")
			input.LastName = optionalString(cmd, "last")
			input.Town = optionalString(cmd, "town")
			input.ImageURL = optionalString(cmd, "image")
			input.Comment = optionalString(cmd, "comment")
			if cmd.Flags().Changed("child-number") {
				value, _ := cmd.Flags().GetInt("child-number")
				input.ChildNumber = &value
			}
			if input.ParentID, err = resolveOptionalRef(ctx, device, flagString(cmd, "parent")); err != nil {
				return err
			}
			if input.SpouseID, err = resolveOptionalRef(ctx, device, flagString(cmd, "spouse")); err != nil {
				return err
			}
			input.ClearParent, _ = cmd.Flags().GetBool("clear-parent")
			input.ClearSpouse, _ = cmd.Flags().GetBool("clear-spouse")

			updated, err := device.Members.Update(ctx, input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "UPDATED %s %s\n", updated.ShortName, updated.SyncStatus)
			return nil
		})
	},
}

var memberDeleteCmd = &cobra.Command{
	Use:   "delete <short-name|id>...",
	Short: "Delete member records and clear links to them",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(func(device *app.Device, log logger.Logger) error {
			ctx := cmd.Context()
			failed := false
			for _, ref := range args {
				record, err := resolveRef(ctx, device, ref)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "failed to delete %s: %v\n", ref, err)
					failed = true
					continue
				}
				if err := device.Members.Delete(ctx, record.ID); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "failed to delete %s: %v\n", ref, err)
					failed = true
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "DELETED %s\n", record.ShortName)
			}
			if failed {
				return errReported
			}
			return nil
		})
	},
}

var memberListCmd = &cobra.Command{
	Use:   "list",
	Short: "List member records with their sync status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(func(device *app.Device, log logger.Logger) error {
			records, err := device.Members.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, record := range records {
				printSummary(cmd.OutOrStdout(), record)
			}
			return nil
		})
	},
}

var memberShowCmd = &cobra.Command{
	Use:   "show <short-name|id>",
	Short: "Show one member record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(func(device *app.Device, log logger.Logger) error {
			record, err := resolveRef(cmd.Context(), device, args[0])
			if err != nil {
				return err
			}
			printDetail(cmd.OutOrStdout(), *record)
			return nil
		})
	},
}

var memberTreeCmd = &cobra.Command{
	Use:   "tree <short-name|id>",
	Short: "List descendants of a member, or ancestors with --up",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(func(device *app.Device, log logger.Logger) error {
			ctx := cmd.Context()
			record, err := resolveRef(ctx, device, args[0])
			if err != nil {
				return err
			}

			var related []memberdomain.Record
			if up, _ := cmd.Flags().GetBool("up"); up {
				related, err = device.Members.Ancestors(ctx, record.ID)
			} else {
				related, err = device.Members.Descendants(ctx, record.ID)
			}
			if err != nil {
				return err
			}

			printSummary(cmd.OutOrStdout(), *record)
			for _, relative := range related {
				fmt.Fprint(cmd.OutOrStdout(), "  ")
				printSummary(cmd.OutOrStdout(), relative)
			}
			return nil
		})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{memberAddCmd, memberEditCmd} {
		cmd.Flags().String("first", "", "first name")
		cmd.Flags().String("middle", "", "middle name")
		cmd.Flags().String("last", "", "last name")
		cmd.Flags().String("town", "", "town")
		cmd.Flags().String("image", "", "image URL")
		cmd.Flags().String("comment", "", "free text comment")
		cmd.Flags().Int("child-number", 0, "birth order among siblings")
		cmd.Flags().String("parent", "", "parent short name or id")
		cmd.Flags().String("spouse", "", "spouse short name or id")
	}
	memberEditCmd.Flags().Bool("clear-parent", false, "remove the parent link")
	memberEditCmd.Flags().Bool("clear-spouse", false, "remove the spouse link")
	memberTreeCmd.Flags().Bool("up", false, "walk ancestors instead of descendants")

	memberCmd.AddCommand(memberAddCmd, memberEditCmd, memberDeleteCmd, memberListCmd, memberShowCmd, memberTreeCmd)
	rootCmd.AddCommand(memberCmd)
}

// resolveRef accepts a short name first and falls back to a record id.
func resolveRef(ctx context.Context, device *app.Device, ref string) (*memberdomain.Record, error) {
	ref = strings.TrimSpace(ref)
	record, err := device.Members.GetByShortName(ctx, ref)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, memberdomain.ErrMemberNotFound) {
		return nil, err
	}
	return device.Members.Get(ctx, ref)
}

func resolveOptionalRef(ctx context.Context, device *app.Device, ref string) (*string, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, nil
	}
	record, err := resolveRef(ctx, device, ref)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", ref, err)
	}
	return &record.ID, nil
}

func flagString(cmd *cobra.Command, name string) string {
	value, _ := cmd.Flags().GetString(name)
	return value
}

func optionalString(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	value := flagString(cmd, name)
	return &value
}

func printSummary(w io.Writer, record memberdomain.Record) {
	name := strings.Join(nonEmpty(record.FirstName, record.MiddleName, record.LastName), " ")
	fmt.Fprintf(w, "%-10s %-11s %s", record.ShortName, record.SyncStatus, name)
	if record.Town != "" {
		fmt.Fprintf(w, " (%s)", record.Town)
	}
	fmt.Fprintln(w)
}

func printDetail(w io.Writer, record memberdomain.Record) {
	fmt.Fprintf(w, "id:          %s\n", record.ID)
	fmt.Fprintf(w, "short name:  %s\n", record.ShortName)
	fmt.Fprintf(w, "name:        %s\n", strings.Join(nonEmpty(record.FirstName, record.MiddleName, record.LastName), " "))
	fmt.Fprintf(w, "town:        %s\n", record.Town)
	if record.ChildNumber != nil {
		fmt.Fprintf(w, "child no.:   %d\n", *record.ChildNumber)
	}
	if record.ParentID != nil {
		fmt.Fprintf(w, "parent:      %s\n", *record.ParentID)
	}
	if record.SpouseID != nil {
		fmt.Fprintf(w, "spouse:      %s\n", *record.SpouseID)
	}
	if record.ImageURL != nil {
		fmt.Fprintf(w, "image:       %s\n", *record.ImageURL)
	}
	if record.Comment != nil {
		fmt.Fprintf(w, "comment:     %s\n", *record.Comment)
	}
	fmt.Fprintf(w, "sync status: %s (version %d)\n", record.SyncStatus, record.Version)
}

func nonEmpty(values ...string) []string {
	result := make([]string, 0, len(values))
	for _, value := range values {
		if value != "" {
			result = append(result, value)
		}
	}
	return result
}
