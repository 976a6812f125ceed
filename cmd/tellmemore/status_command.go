package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tellmemore/internal/config"
	"tellmemore/internal/embeddings"
	"tellmemore/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report queue and embedding store statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueueStore(func(cfg *config.Config, store *queue.Store) error {
				health, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}

				embedded := 0
				embStore, err := embeddings.Open(cfg)
				if err == nil {
					if count, countErr := embStore.Count(cmd.Context()); countErr == nil {
						embedded = count
					}
					_ = embStore.Close()
				}

				stats := health.Stats
				rows := [][]string{
					{"pending", strconv.Itoa(stats.Pending)},
					{"processing", strconv.Itoa(stats.Processing)},
					{"retrying", strconv.Itoa(stats.Retrying)},
					{"permanently failed", strconv.Itoa(stats.PermanentlyFailed)},
					{"processed", strconv.Itoa(stats.Processed)},
					{"embeddings stored", strconv.Itoa(embedded)},
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable([]string{"State", "Count"}, rows, 2))

				if health.Healthy {
					fmt.Fprintln(out, "Queue healthy.")
					return nil
				}
				fmt.Fprintf(out, "Queue needs attention: last error %q", health.LastError)
				if !health.LastFailure.IsZero() {
					fmt.Fprintf(out, " at %s", health.LastFailure.Format("2006-01-02 15:04:05"))
				}
				fmt.Fprintln(out)
				return nil
			})
		},
	}
}
