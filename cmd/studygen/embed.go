package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/studygen/studygen/config"
	"github.com/studygen/studygen/internal/embedding"
)

func embedCMD(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "embed",
		Short: "Backfill vector embeddings for ingested content",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*cfgPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.DB.Close()

			provider := embedding.NewOllamaProvider(cfg.Ollama.BaseURL, cfg.Embedding.Model, cfg.Ollama.Timeout)
			backfiller := embedding.NewBackfiller(st, provider, cfg.Embedding.Model,
				cfg.Embedding.BatchSize, cfg.Embedding.Pause, newLogger("[EMBED] "))

			n, err := backfiller.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Embedded %d content chunks with %s\n", n, cfg.Embedding.Model)
			return nil
		},
	}
}
