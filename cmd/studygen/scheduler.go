package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/studygen/studygen/config"
	"github.com/studygen/studygen/internal/batch"
	"github.com/studygen/studygen/internal/budget"
	"github.com/studygen/studygen/internal/models"
	"github.com/studygen/studygen/internal/store"
	"github.com/studygen/studygen/internal/telemetry"
)

// trackedRunner wraps the batch processor with generation_runs bookkeeping so
// scheduled passes show up in run history alongside manual ones.
type trackedRunner struct {
	st     *store.Store
	proc   *batch.Processor
	logger *log.Logger
}

func (r *trackedRunner) Run(ctx context.Context, subject string, maxTopics int) (models.BatchGenerationResult, error) {
	runID, err := r.st.StartRun(ctx, "scheduled", subject)
	if err != nil {
		return models.BatchGenerationResult{}, fmt.Errorf("recording run: %w", err)
	}
	result, runErr := r.proc.Run(ctx, subject, maxTopics)

	status := store.RunStatusSucceeded
	var errMsg *string
	if runErr != nil {
		status = store.RunStatusFailed
		msg := runErr.Error()
		errMsg = &msg
	} else if len(result.Errors) > 0 {
		msg := strings.Join(result.Errors, "; ")
		errMsg = &msg
	}
	if err := r.st.FinishRun(ctx, runID, status, result.QuestionsGenerated, errMsg); err != nil {
		r.logger.Printf("finishing run %s: %v", runID, err)
	}
	return result, runErr
}

func schedulerCMD(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Run the recurring generation scheduler until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*cfgPath)
			if err != nil {
				return err
			}
			if !cfg.Scheduler.Enabled {
				return fmt.Errorf("scheduler disabled (scheduler.enabled)")
			}
			ctx := cmd.Context()
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.DB.Close()

			gen := newGenerator(cfg, newLogger("[GEN] "))
			if err := gen.VerifyConnection(ctx); err != nil {
				return err
			}

			rdb := newRedis(cfg)
			tracker := budget.New(cfg.Batch.MaxDailyQuestions, rdb, newLogger("[BUDGET] "))
			if rdb != nil {
				tracker.Restore(ctx)
			}

			logger := newLogger("[SCHED] ")
			proc := batch.NewProcessor(cfg.Batch, gen, st, tracker, telemetry.New(), newLogger("[BATCH] "))
			runner := &trackedRunner{st: st, proc: proc, logger: logger}

			sched := batch.NewScheduler(cfg.Scheduler, runner, rdb, logger)
			sched.Start()

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			<-sig
			logger.Printf("shutting down")
			sched.Stop()
			return nil
		},
	}
}
