package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tellmemore/internal/config"
	"tellmemore/internal/embeddings"
	"tellmemore/internal/search"
	"tellmemore/internal/services/embedder"
)

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var topFlag int

	cmd := &cobra.Command{
		Use:   "play QUERY",
		Short: "Rank-search and print time-sliced playable URLs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return ctx.withEmbeddingStore(func(cfg *config.Config, store *embeddings.Store) error {
				if err := cfg.RequireEmbeddingCredentials(); err != nil {
					return err
				}
				logger, err := ctx.ensureLogger()
				if err != nil {
					return err
				}
				svc := search.New(cfg, store, embedder.NewClient(cfg), logger)
				results, err := svc.Play(cmd.Context(), query, topFlag)
				if err != nil {
					return err
				}
				if len(results) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No playable matches.")
					return nil
				}

				out := cmd.OutOrStdout()
				for _, result := range results {
					record := result.Match.Record
					fmt.Fprintf(out, "%s  %s (%s)\n", record.SimplifiedID, record.Title, record.ShowName)
					fmt.Fprintf(out, "  similarity %.3f, window %s-%s (%s)\n",
						result.Match.Similarity,
						formatClock(result.Window.StartSeconds),
						formatClock(result.Window.EndSeconds),
						result.Window.Source)
					fmt.Fprintf(out, "  %s\n", result.PlayableURL)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&topFlag, "top", 0, "Number of results to consider (0 uses the configured default)")
	return cmd
}

func formatClock(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
