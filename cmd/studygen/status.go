package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/studygen/studygen/config"
)

func statusCMD(cfgPath *string) *cobra.Command {
	var runs int
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show question bank coverage and recent generation runs",
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

			sum, err := st.GenerationSummary(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Subjects:        %d\n", sum.Subjects)
			fmt.Printf("Active topics:   %d\n", sum.ActiveTopics)
			fmt.Printf("Total questions: %d\n", sum.TotalQuestions)
			fmt.Printf("Generated today: %d\n", sum.QuestionsToday)
			fmt.Printf("Exam papers:     %d\n", sum.ExamPapers)
			fmt.Printf("Avg quality:     %.2f\n", sum.AvgQuality)

			recent, err := st.ListRecentRuns(ctx, runs)
			if err != nil {
				return err
			}
			if len(recent) == 0 {
				return nil
			}
			fmt.Println("\nRecent runs:")
			for _, r := range recent {
				line := fmt.Sprintf("  %s  %-9s %-9s %4d questions  %s",
					r.StartedAt.Format("2006-01-02 15:04"), r.Trigger, r.Status, r.Questions, r.Subject)
				if r.Error != nil {
					line += "  (" + *r.Error + ")"
				}
				fmt.Println(line)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&runs, "runs", 10, "number of recent runs to show")
	return cmd
}
