package main

import (
	"github.com/spf13/cobra"

	"github.com/studygen/studygen/config"
	srv "github.com/studygen/studygen/internal/server"

	"github.com/studygen/studygen/internal/batch"
	"github.com/studygen/studygen/internal/budget"
	"github.com/studygen/studygen/internal/embedding"
	"github.com/studygen/studygen/internal/search"
	"github.com/studygen/studygen/internal/telemetry"
)

const searchIndexSize = 5000

func serveCMD(cfgPath *string) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin API server",
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

			logger := newLogger("[HTTP] ")
			metrics := telemetry.New()

			gen := newGenerator(cfg, newLogger("[GEN] "))
			rdb := newRedis(cfg)
			tracker := budget.New(cfg.Batch.MaxDailyQuestions, rdb, newLogger("[BUDGET] "))
			if rdb != nil {
				tracker.Restore(ctx)
			}
			proc := batch.NewProcessor(cfg.Batch, gen, st, tracker, metrics, newLogger("[BATCH] "))

			provider := embedding.NewOllamaProvider(cfg.Ollama.BaseURL, cfg.Embedding.Model, cfg.Ollama.Timeout)
			engine, err := search.NewEngine(st, provider, newLogger("[SEARCH] "))
			if err != nil {
				return err
			}
			records, err := st.ListContent(ctx, searchIndexSize)
			if err != nil {
				return err
			}
			if err := engine.IndexContent(records); err != nil {
				return err
			}
			logger.Printf("indexed %d content chunks for search", len(records))

			var auth *srv.AuthHandler
			if cfg.Server.JWTSecret != "" {
				auth = &srv.AuthHandler{Store: st, Secret: []byte(cfg.Server.JWTSecret)}
			} else {
				logger.Printf("server.jwt_secret not set: API is unauthenticated")
			}

			server := srv.New(st, auth, proc, engine, tracker, metrics, cfg.Batch, logger)
			if addr == "" {
				addr = cfg.Server.Address
			}
			return server.Start(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.address)")
	return cmd
}
