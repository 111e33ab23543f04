package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"inkwell/internal/api"
	"inkwell/internal/recordaccess"
)

func newRecycleCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recycle",
		Short: "Manage deleted documents",
	}
	cmd.AddCommand(newRecycleListCommand(ctx))
	cmd.AddCommand(newRecycleDeleteCommand(ctx))
	cmd.AddCommand(newRecycleRestoreCommand(ctx))
	cmd.AddCommand(newRecyclePurgeCommand(ctx))
	return cmd
}

func newRecycleListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recycled documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(cmd.Context(), func(access recordaccess.Access) error {
				entries, err := access.Recycled(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, api.RecycleListResponse{Entries: entries})
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Recycle bin is empty")
					return nil
				}

				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					rows = append(rows, []string{
						entry.DocumentID,
						entry.Title,
						entry.DeletedAt,
						entry.ExpiresAt,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Deleted", "Expires"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output entries as JSON")
	return cmd
}

func newRecycleDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <document-id>",
		Short: "Move a document to the recycle bin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(cmd.Context(), func(access recordaccess.Access) error {
				entry, err := access.Delete(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recycled %s (expires %s)\n", entry.DocumentID, entry.ExpiresAt)
				return nil
			})
		},
	}
}

func newRecycleRestoreCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <document-id>",
		Short: "Restore a recycled document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(cmd.Context(), func(access recordaccess.Access) error {
				doc, err := access.Restore(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Restored %s (status %s)\n", doc.DocumentID, doc.Status)
				return nil
			})
		},
	}
}

func newRecyclePurgeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Permanently remove expired recycled documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(cmd.Context(), func(access recordaccess.Access) error {
				purged, err := access.PurgeRecycled(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Purged %d documents\n", purged)
				return nil
			})
		},
	}
}
