package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tellmemore/internal/config"
	"tellmemore/internal/download"
	"tellmemore/internal/embeddings"
	"tellmemore/internal/pipeline"
	"tellmemore/internal/queue"
	"tellmemore/internal/runner"
	"tellmemore/internal/services/embedder"
	"tellmemore/internal/services/whisper"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var limitFlag int
	var keepArtifactsFlag bool

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Claim and process queued episodes until the limit or the queue is drained",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueueStore(func(cfg *config.Config, store *queue.Store) error {
				if err := cfg.RequireEmbeddingCredentials(); err != nil {
					return err
				}
				if keepArtifactsFlag {
					cfg.Processing.KeepArtifacts = true
				}
				logger, err := ctx.ensureLogger()
				if err != nil {
					return err
				}

				embStore, err := embeddings.Open(cfg)
				if err != nil {
					return err
				}
				defer embStore.Close()

				executor := pipeline.NewExecutor(
					cfg,
					download.NewFetcher(cfg),
					whisper.NewService(cfg),
					embedder.NewClient(cfg),
					embStore,
					logger,
				)
				summary, err := runner.New(cfg, store, executor, logger).Run(cmd.Context(), limitFlag)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run %s finished\n", summary.RunID)
				fmt.Fprintf(out, "  claimed:            %d\n", summary.Claimed)
				fmt.Fprintf(out, "  embedded:           %d\n", summary.Embedded)
				fmt.Fprintf(out, "  skipped:            %d\n", summary.Skipped)
				fmt.Fprintf(out, "  requeued:           %d\n", summary.Requeued)
				fmt.Fprintf(out, "  permanently failed: %d\n", summary.PermanentlyFailed)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limitFlag, "limit", 0, "Maximum episodes to process (0 drains the queue)")
	cmd.Flags().BoolVar(&keepArtifactsFlag, "keep-artifacts", false, "Retain scratch audio and transcripts after processing")
	return cmd
}
