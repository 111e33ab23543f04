package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"inkwell/internal/api"
	"inkwell/internal/recordaccess"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the work queue",
	}
	cmd.AddCommand(newQueueStatsCommand(ctx))
	cmd.AddCommand(newQueueDeadLettersCommand(ctx))
	cmd.AddCommand(newQueueReplayCommand(ctx))
	return cmd
}

func newQueueStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show queue depth",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(cmd.Context(), func(access recordaccess.Access) error {
				stats, err := access.QueueStats(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, stats)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Ready", "Leased", "Dead Letters"},
					[][]string{{
						strconv.Itoa(stats.Ready),
						strconv.Itoa(stats.Leased),
						strconv.Itoa(stats.DeadLetters),
					}},
					[]columnAlignment{alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output stats as JSON")
	return cmd
}

func newQueueDeadLettersCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "deadletters",
		Short: "List dead-lettered work items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(cmd.Context(), func(access recordaccess.Access) error {
				items, err := access.DeadLetters(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, api.DeadLetterListResponse{Items: items})
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No dead-lettered items")
					return nil
				}

				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						strconv.FormatInt(item.ID, 10),
						item.DocumentID,
						item.Tier,
						fmt.Sprintf("%d/%d", item.Attempts, item.MaxAttempts),
						item.LastError,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Item", "Document", "Tier", "Attempts", "Last Error"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output items as JSON")
	return cmd
}

func newQueueReplayCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <item-id>",
		Short: "Requeue a dead-lettered work item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("item id must be numeric: %q", args[0])
			}
			return ctx.withAccess(cmd.Context(), func(access recordaccess.Access) error {
				item, err := access.ReplayDeadLetter(cmd.Context(), itemID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Replayed item %d for document %s\n", item.ID, item.DocumentID)
				return nil
			})
		},
	}
}
