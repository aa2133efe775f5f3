package batch

import (
	"context"
	"sort"

	"github.com/studygen/studygen/internal/models"
)

// CountStore captures the store surface the needs analyzer requires.
type CountStore interface {
	// TopicQuestionCounts returns every active topic with its current
	// question count, optionally filtered to one subject ("" for all).
	TopicQuestionCounts(ctx context.Context, subject string) ([]models.TopicGenerationNeed, error)
}

// AnalyzeNeeds classifies topics by how short of questions they are. Topics
// below the minimum are high priority, below the target medium; topics at or
// above target are excluded. The per-topic need is the gap to target, capped
// so one topic cannot monopolize a run. The result is ordered most-urgent
// first.
func AnalyzeNeeds(ctx context.Context, store CountStore, cfg Config, subject string) ([]models.TopicGenerationNeed, error) {
	counts, err := store.TopicQuestionCounts(ctx, subject)
	if err != nil {
		return nil, err
	}

	var needs []models.TopicGenerationNeed
	for _, c := range counts {
		need := classify(c, cfg)
		if need == nil {
			continue
		}
		needs = append(needs, *need)
	}

	sort.SliceStable(needs, func(i, j int) bool {
		wi := models.PriorityWeight(needs[i].Priority)
		wj := models.PriorityWeight(needs[j].Priority)
		if wi != wj {
			return wi > wj
		}
		return needs[i].NeededQuestions > needs[j].NeededQuestions
	})
	return needs, nil
}

// classify returns nil for topics that need nothing.
func classify(c models.TopicGenerationNeed, cfg Config) *models.TopicGenerationNeed {
	if c.CurrentCount >= cfg.TargetQuestionsPerTopic {
		return nil
	}

	priority := models.PriorityMedium
	if c.CurrentCount < cfg.MinQuestionsPerTopic {
		priority = models.PriorityHigh
	}

	needed := cfg.TargetQuestionsPerTopic - c.CurrentCount
	if needed > maxNeedPerRun {
		needed = maxNeedPerRun
	}

	return &models.TopicGenerationNeed{
		Topic:              c.Topic,
		CurrentCount:       c.CurrentCount,
		NeededQuestions:    needed,
		Priority:           priority,
		LastGenerationDate: c.LastGenerationDate,
	}
}
