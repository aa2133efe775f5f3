package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/studygen/studygen/config"
)

func generateCMD(cfgPath *string) *cobra.Command {
	var model string
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Generate questions for a single topic",
	}
	generate.PersistentFlags().StringVar(&model, "model", "", "override the configured generation model")

	var count int
	quiz := &cobra.Command{
		Use:   "quiz <topic-id>",
		Short: "Generate quiz questions for a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*cfgPath)
			if err != nil {
				return err
			}
			if model != "" {
				cfg.Generation.Model = model
			}
			ctx := cmd.Context()
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.DB.Close()

			topic, err := st.GetTopicInfo(ctx, args[0])
			if err != nil {
				return fmt.Errorf("loading topic %s: %w", args[0], err)
			}
			gen := newGenerator(cfg, newLogger("[GEN] "))
			if err := gen.VerifyConnection(ctx); err != nil {
				return err
			}

			questions, err := gen.GenerateQuizQuestions(ctx, topic, count)
			if err != nil {
				return err
			}
			quizID, err := st.SaveGeneratedQuestions(ctx, topic, questions)
			if err != nil {
				return fmt.Errorf("saving questions: %w", err)
			}
			fmt.Printf("Generated %d questions for %q (quiz %s, avg quality %.2f)\n",
				len(questions), topic.Title, quizID, gen.ScoreQuestions(questions))
			return nil
		},
	}
	quiz.Flags().IntVar(&count, "count", 10, "number of questions to generate")

	var marks int
	exam := &cobra.Command{
		Use:   "exam <topic-id>",
		Short: "Generate an exam paper for a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*cfgPath)
			if err != nil {
				return err
			}
			if model != "" {
				cfg.Generation.Model = model
			}
			ctx := cmd.Context()
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.DB.Close()

			topic, err := st.GetTopicInfo(ctx, args[0])
			if err != nil {
				return fmt.Errorf("loading topic %s: %w", args[0], err)
			}
			gen := newGenerator(cfg, newLogger("[GEN] "))
			if err := gen.VerifyConnection(ctx); err != nil {
				return err
			}

			paper, err := gen.GenerateExamPaper(ctx, topic, marks)
			if err != nil {
				return err
			}
			paperID, err := st.SaveExamPaper(ctx, paper)
			if err != nil {
				return fmt.Errorf("saving exam paper: %w", err)
			}
			fmt.Printf("Generated exam %q (%s): %d questions, %d marks, %d minutes\n",
				paper.Title, paperID, len(paper.Questions), paper.TotalMarks, paper.DurationMinutes)
			return nil
		},
	}
	exam.Flags().IntVar(&marks, "marks", 20, "total marks for the paper")

	generate.AddCommand(quiz, exam)
	return generate
}
