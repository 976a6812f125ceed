package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tellmemore/internal/catalog"
	"tellmemore/internal/config"
	"tellmemore/internal/queue"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var catalogFlag string
	var feedFlag string
	var topicFlag string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Enqueue newly discovered episodes from a catalog file or RSS feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			if feedFlag != "" && topicFlag == "" {
				return errors.New("ingest: --feed requires --topic")
			}
			return ctx.withQueueStore(func(cfg *config.Config, store *queue.Store) error {
				episodes, err := discoverEpisodes(cmd, cfg, catalogFlag, feedFlag, topicFlag)
				if err != nil {
					return err
				}

				queued, err := store.Items(cmd.Context())
				if err != nil {
					return err
				}
				known := make(map[string]bool, len(queued))
				for _, item := range queued {
					known[item.ExternalID] = true
				}

				enqueued := 0
				skipped := 0
				for _, ep := range episodes {
					item, err := store.Enqueue(cmd.Context(), ep)
					if err != nil {
						return err
					}
					if item == nil || known[ep.ExternalID] {
						skipped++
						continue
					}
					enqueued++
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Enqueued %d episode(s), skipped %d already-known\n", enqueued, skipped)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&catalogFlag, "catalog", "", "Path to a catalog JSON file (defaults to the configured catalog)")
	cmd.Flags().StringVar(&feedFlag, "feed", "", "RSS feed URL to read episodes from")
	cmd.Flags().StringVar(&topicFlag, "topic", "", "Topic to assign to discovered episodes")
	return cmd
}

func discoverEpisodes(cmd *cobra.Command, cfg *config.Config, catalogPath, feedURL, topic string) ([]catalog.Episode, error) {
	if feedURL != "" {
		source := catalog.NewFeedSource()
		episodes, err := source.Fetch(cmd.Context(), feedURL, topic)
		if err != nil {
			return nil, fmt.Errorf("fetch feed: %w", err)
		}
		return episodes, nil
	}

	if catalogPath == "" {
		catalogPath = cfg.Catalog.File
	}
	cat, err := catalog.LoadFile(catalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if topic != "" {
		return cat.ByTopic(topic), nil
	}
	return cat.Episodes(), nil
}
