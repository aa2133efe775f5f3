package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/studygen/studygen/config"
	"github.com/studygen/studygen/internal/batch"
	"github.com/studygen/studygen/internal/budget"
	"github.com/studygen/studygen/internal/store"
	"github.com/studygen/studygen/internal/telemetry"
)

func batchCMD(cfgPath *string) *cobra.Command {
	var (
		subject   string
		maxTopics int
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run one batch generation pass over topics that need questions",
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

			logger := newLogger("[BATCH] ")
			gen := newGenerator(cfg, newLogger("[GEN] "))
			if err := gen.VerifyConnection(ctx); err != nil {
				return err
			}

			rdb := newRedis(cfg)
			tracker := budget.New(cfg.Batch.MaxDailyQuestions, rdb, newLogger("[BUDGET] "))
			if rdb != nil {
				tracker.Restore(ctx)
			}

			proc := batch.NewProcessor(cfg.Batch, gen, st, tracker, telemetry.New(), logger)

			runID, err := st.StartRun(ctx, "manual", subject)
			if err != nil {
				return fmt.Errorf("recording run: %w", err)
			}
			result, runErr := proc.Run(ctx, subject, maxTopics)

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
			if err := st.FinishRun(ctx, runID, status, result.QuestionsGenerated, errMsg); err != nil {
				logger.Printf("finishing run %s: %v", runID, err)
			}
			if runErr != nil {
				return runErr
			}

			fmt.Printf("Batch complete: %d/%d topics succeeded, %d questions, avg quality %.2f in %s\n",
				result.SuccessfulTopics, result.TopicsProcessed, result.QuestionsGenerated,
				result.AverageQualityScore, result.ProcessingTime.Round(0))
			for _, e := range result.Errors {
				fmt.Printf("  warning: %s\n", e)
			}
			fmt.Printf("Daily budget: %d/%d used\n", tracker.Used(), tracker.Limit())
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "restrict the pass to one subject")
	cmd.Flags().IntVar(&maxTopics, "max-topics", 0, "process at most this many topics (0 for no limit)")
	return cmd
}
