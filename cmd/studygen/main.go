package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/studygen/studygen/config"
	"github.com/studygen/studygen/internal/generator"
	"github.com/studygen/studygen/internal/store"
)

func main() {
	var cfgPath string
	root := &cobra.Command{
		Use:   "studygen",
		Short: "IGCSE question generation toolkit",
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config/config.json)")

	root.AddCommand(
		generateCMD(&cfgPath),
		batchCMD(&cfgPath),
		schedulerCMD(&cfgPath),
		statusCMD(&cfgPath),
		ingestCMD(&cfgPath),
		embedCMD(&cfgPath),
		serveCMD(&cfgPath),
		migrateCMD(&cfgPath),
	)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	if err := cfg.Storage.Postgres.Validate(); err != nil {
		return nil, err
	}
	st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return st, nil
}

// newRedis returns nil when redis is not configured; budget persistence and
// the scheduler lock degrade to in-process state.
func newRedis(cfg *config.Config) *redis.Client {
	addr := cfg.Storage.Redis.Addr()
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
	})
}

func newGenerator(cfg *config.Config, logger *log.Logger) *generator.Generator {
	client := generator.NewOllamaClient(cfg.Ollama.BaseURL, cfg.Ollama.Timeout)
	return generator.New(client, cfg.Generation, cfg.Exams.Distributions, logger)
}

func newLogger(prefix string) *log.Logger {
	return log.New(log.Writer(), prefix, log.LstdFlags)
}
