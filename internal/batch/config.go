// Package batch coordinates question generation across many topics: it
// analyzes which topics are short of questions, runs the generator over them
// under a concurrency bound and a daily budget, and hosts the recurring
// scheduler.
package batch

import (
	"fmt"
	"time"
)

// maxNeedPerRun caps how many questions a single run may generate for one
// topic, so a badly depleted topic cannot starve the rest of the batch.
const maxNeedPerRun = 20

// Config holds the batch-processing knobs.
type Config struct {
	MaxConcurrent           int           `mapstructure:"max_concurrent" json:"max_concurrent"`
	DelayBetweenTopics      time.Duration `mapstructure:"delay_between_topics" json:"delay_between_topics"`
	MaxDailyQuestions       int           `mapstructure:"max_daily_questions" json:"max_daily_questions"`
	MinQuestionsPerTopic    int           `mapstructure:"min_questions_per_topic" json:"min_questions_per_topic"`
	TargetQuestionsPerTopic int           `mapstructure:"target_questions_per_topic" json:"target_questions_per_topic"`
	QualityThreshold        float64       `mapstructure:"quality_threshold" json:"quality_threshold"`
}

// DefaultConfig returns the code defaults a persisted config is merged over.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent:           3,
		DelayBetweenTopics:      2 * time.Second,
		MaxDailyQuestions:       100,
		MinQuestionsPerTopic:    20,
		TargetQuestionsPerTopic: 50,
		QualityThreshold:        0.7,
	}
}

// Validate checks the config for values that would wedge or stampede a run.
func (c Config) Validate() error {
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", c.MaxConcurrent)
	}
	if c.MaxDailyQuestions < 1 {
		return fmt.Errorf("max_daily_questions must be at least 1, got %d", c.MaxDailyQuestions)
	}
	if c.MinQuestionsPerTopic < 0 {
		return fmt.Errorf("min_questions_per_topic cannot be negative")
	}
	if c.TargetQuestionsPerTopic < c.MinQuestionsPerTopic {
		return fmt.Errorf("target_questions_per_topic (%d) cannot be below min_questions_per_topic (%d)",
			c.TargetQuestionsPerTopic, c.MinQuestionsPerTopic)
	}
	if c.QualityThreshold < 0 || c.QualityThreshold > 1 {
		return fmt.Errorf("quality_threshold must be between 0 and 1, got %.2f", c.QualityThreshold)
	}
	if c.DelayBetweenTopics < 0 {
		return fmt.Errorf("delay_between_topics cannot be negative")
	}
	return nil
}
