package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/studygen/studygen/config"
	"github.com/studygen/studygen/internal/ingest"
)

func ingestCMD(cfgPath *string) *cobra.Command {
	var topicID, subject, source string
	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Ingest study material files for a topic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if topicID == "" {
				return fmt.Errorf("--topic is required")
			}
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

			if subject == "" {
				topic, err := st.GetTopicInfo(ctx, topicID)
				if err != nil {
					return fmt.Errorf("loading topic %s: %w", topicID, err)
				}
				subject = topic.SubjectName
			}

			var chunks []ingest.Chunk
			for _, path := range args {
				body, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("reading %s: %w", path, err)
				}
				src := source
				if src == "" {
					src = filepath.Base(path)
				}
				title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
				chunks = append(chunks, ingest.Chunk{
					TopicID: topicID,
					Subject: subject,
					Source:  src,
					Title:   title,
					Body:    string(body),
				})
			}

			validator := ingest.NewContentValidator(cfg.Content, nil)
			ing := ingest.New(st, validator, newLogger("[INGEST] "))
			res, err := ing.Ingest(ctx, chunks)
			if err != nil {
				return err
			}
			fmt.Printf("Ingested %d chunks (%d duplicates, %d rejected)\n",
				res.Accepted, res.Duplicates, res.Rejected)
			return nil
		},
	}
	cmd.Flags().StringVar(&topicID, "topic", "", "topic id the material belongs to")
	cmd.Flags().StringVar(&subject, "subject", "", "subject name (defaults to the topic's subject)")
	cmd.Flags().StringVar(&source, "source", "", "source label (defaults to the file name)")
	return cmd
}
