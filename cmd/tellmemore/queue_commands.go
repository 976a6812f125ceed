package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tellmemore/internal/config"
	"tellmemore/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and maintain the processing queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newQueueListCommand(ctx))
	cmd.AddCommand(newQueueDLQCommand(ctx))
	cmd.AddCommand(newQueueFailuresCommand(ctx))
	cmd.AddCommand(newQueueRetryCommand(ctx))
	cmd.AddCommand(newQueueReinstateCommand(ctx))
	cmd.AddCommand(newQueueClearCommand(ctx))
	return cmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List queued episodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueueStore(func(cfg *config.Config, store *queue.Store) error {
				items, err := store.Items(cmd.Context())
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty.")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					next := ""
					if !item.NextAttemptAt.IsZero() {
						next = item.NextAttemptAt.Format("2006-01-02 15:04:05")
					}
					rows = append(rows, []string{
						item.SimplifiedID,
						item.Episode.Title,
						string(item.Status),
						strconv.Itoa(item.RetryCount),
						next,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Episode", "Title", "Status", "Retries", "Next Attempt"}, rows, 4))
				return nil
			})
		},
	}
}

func newQueueDLQCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "dlq",
		Short: "List episodes waiting on a retry after failures",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueueStore(func(cfg *config.Config, store *queue.Store) error {
				items, err := store.DLQ(cmd.Context())
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Dead-letter queue is empty.")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						item.SimplifiedID,
						item.Episode.Title,
						strconv.Itoa(item.RetryCount),
						item.LastError,
						item.FailedAt.Format("2006-01-02 15:04:05"),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Episode", "Title", "Retries", "Last Error", "Failed At"}, rows, 3))
				return nil
			})
		},
	}
}

func newQueueFailuresCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "failures",
		Short: "List permanently failed episodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueueStore(func(cfg *config.Config, store *queue.Store) error {
				failures, err := store.PermanentFailures(cmd.Context())
				if err != nil {
					return err
				}
				if len(failures) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No permanent failures.")
					return nil
				}
				rows := make([][]string, 0, len(failures))
				for _, failure := range failures {
					rows = append(rows, []string{
						failure.SimplifiedID,
						failure.Episode.Title,
						strconv.Itoa(failure.RetryCount),
						failure.FinalError,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Episode", "Title", "Attempts", "Final Error"}, rows, 3))
				return nil
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Make all dead-letter episodes immediately eligible again",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueueStore(func(cfg *config.Config, store *queue.Store) error {
				cleared, err := store.RetryFailed(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared backoff on %d episode(s)\n", cleared)
				return nil
			})
		},
	}
}

func newQueueReinstateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reinstate EPISODE_ID",
		Short: "Move a permanently failed episode back into the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueueStore(func(cfg *config.Config, store *queue.Store) error {
				if err := store.ReinstatePermanentFailure(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reinstated %s with a fresh retry budget\n", args[0])
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var processedFlag bool
	var failuresFlag bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear processed markers or permanent failure records",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !processedFlag && !failuresFlag {
				return fmt.Errorf("queue clear: pass --processed and/or --failures")
			}
			return ctx.withQueueStore(func(cfg *config.Config, store *queue.Store) error {
				out := cmd.OutOrStdout()
				if processedFlag {
					cleared, err := store.ClearProcessed(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Removed %d processed marker(s)\n", cleared)
				}
				if failuresFlag {
					cleared, err := store.ClearPermanentFailures(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Removed %d permanent failure(s)\n", cleared)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&processedFlag, "processed", false, "Remove processed markers")
	cmd.Flags().BoolVar(&failuresFlag, "failures", false, "Remove permanent failure records")
	return cmd
}
