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

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var topFlag int

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Rank stored episodes against a text query",
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
				matches, err := svc.Search(cmd.Context(), query, topFlag)
				if err != nil {
					return err
				}
				if len(matches) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No matches.")
					return nil
				}

				rows := make([][]string, 0, len(matches))
				for _, match := range matches {
					rows = append(rows, []string{
						match.Record.SimplifiedID,
						match.Record.Title,
						match.Record.ShowName,
						fmt.Sprintf("%.3f", match.Similarity),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Episode", "Title", "Show", "Similarity"}, rows, 4))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&topFlag, "top", 0, "Number of results to return (0 uses the configured default)")
	return cmd
}
