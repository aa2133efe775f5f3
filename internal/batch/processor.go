package batch

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/studygen/studygen/internal/budget"
	"github.com/studygen/studygen/internal/models"
	"github.com/studygen/studygen/internal/telemetry"
)

// GeneratorAPI captures the generator surface the processor drives.
type GeneratorAPI interface {
	GenerateQuizQuestions(ctx context.Context, topic models.TopicInfo, count int) ([]models.QuizQuestion, error)
}

// Store captures the persistence surface the processor requires.
type Store interface {
	CountStore
	// SaveGeneratedQuestions persists a batch of accepted questions as a new
	// quiz for the topic and returns the quiz id.
	SaveGeneratedQuestions(ctx context.Context, topic models.TopicInfo, questions []models.QuizQuestion) (string, error)
}

// Processor runs the generator across every topic that needs questions,
// bounded by a concurrency limit and the daily budget.
type Processor struct {
	cfg     Config
	gen     GeneratorAPI
	store   Store
	tracker *budget.Tracker
	metrics *telemetry.Metrics
	logger  *log.Logger
}

// NewProcessor wires a batch processor. metrics may be nil.
func NewProcessor(cfg Config, gen GeneratorAPI, store Store, tracker *budget.Tracker, metrics *telemetry.Metrics, logger *log.Logger) *Processor {
	if logger == nil {
		logger = log.New(log.Writer(), "[BATCH] ", log.LstdFlags)
	}
	return &Processor{
		cfg:     cfg,
		gen:     gen,
		store:   store,
		tracker: tracker,
		metrics: metrics,
		logger:  logger,
	}
}

// Run analyzes needs for a subject ("" for all) and generates questions for
// every needy topic, up to maxTopics of them (0 for no bound). The run fails
// fast when today's budget is already exhausted; mid-run exhaustion stops
// dispatching further topics but lets in-flight ones finish.
func (p *Processor) Run(ctx context.Context, subject string, maxTopics int) (models.BatchGenerationResult, error) {
	start := time.Now()
	var result models.BatchGenerationResult

	if p.tracker.Remaining() <= 0 {
		p.logger.Printf("daily question limit reached (%d/%d), skipping run", p.tracker.Used(), p.tracker.Limit())
		p.metrics.RecordBatchRun("budget_exhausted", time.Since(start).Seconds())
		return result, budget.ErrExceeded{Used: p.tracker.Used(), Limit: p.tracker.Limit()}
	}

	needs, err := AnalyzeNeeds(ctx, p.store, p.cfg, subject)
	if err != nil {
		p.metrics.RecordBatchRun("failed", time.Since(start).Seconds())
		return result, fmt.Errorf("analyzing topic needs: %w", err)
	}
	if len(needs) == 0 {
		p.logger.Printf("all topics at target, nothing to generate")
		p.metrics.RecordBatchRun("idle", time.Since(start).Seconds())
		return result, nil
	}
	if maxTopics > 0 && len(needs) > maxTopics {
		p.logger.Printf("limiting run to %d of %d needy topics", maxTopics, len(needs))
		needs = needs[:maxTopics]
	}
	p.logger.Printf("processing %d topics (budget %d/%d used)", len(needs), p.tracker.Used(), p.tracker.Limit())

	sem := semaphore.NewWeighted(int64(p.cfg.MaxConcurrent))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	qualitySum := 0.0
	qualityCount := 0

	for i, need := range needs {
		if err := p.tracker.Reserve(ctx, need.NeededQuestions); err != nil {
			p.logger.Printf("budget exhausted after %d topics: %v", i, err)
			mu.Lock()
			result.Errors = append(result.Errors, err.Error())
			mu.Unlock()
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			p.tracker.Release(ctx, need.NeededQuestions)
			break
		}

		wg.Add(1)
		go func(need models.TopicGenerationNeed) {
			defer wg.Done()
			defer sem.Release(1)

			saved, avgQuality, err := p.processTopic(ctx, need)

			mu.Lock()
			defer mu.Unlock()
			result.TopicsProcessed++
			if err != nil {
				result.FailedTopics++
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", need.Topic.Title, err))
				p.metrics.RecordTopic("failed")
				return
			}
			result.SuccessfulTopics++
			result.QuestionsGenerated += saved
			qualitySum += avgQuality * float64(saved)
			qualityCount += saved
			p.metrics.RecordTopic("succeeded")
			p.metrics.AddQuestions(saved)
		}(need)

		// Pace topic dispatch so a burst of topics does not slam the
		// model backend all at once.
		if i < len(needs)-1 && p.cfg.DelayBetweenTopics > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(p.cfg.DelayBetweenTopics):
			}
		}
	}

	wg.Wait()

	if qualityCount > 0 {
		result.AverageQualityScore = qualitySum / float64(qualityCount)
	}
	result.ProcessingTime = time.Since(start)
	p.metrics.SetBudgetUsed(p.tracker.Used())

	status := "succeeded"
	if result.FailedTopics > 0 {
		status = "partial"
	}
	p.metrics.RecordBatchRun(status, result.ProcessingTime.Seconds())
	p.logger.Printf("batch finished: %d/%d topics succeeded, %d questions, avg quality %.2f, took %s",
		result.SuccessfulTopics, result.TopicsProcessed, result.QuestionsGenerated,
		result.AverageQualityScore, result.ProcessingTime.Round(time.Millisecond))
	return result, nil
}

// processTopic generates, filters, and saves questions for one topic. It
// returns the number saved and their mean quality score. Budget reserved but
// not used is released back.
func (p *Processor) processTopic(ctx context.Context, need models.TopicGenerationNeed) (int, float64, error) {
	reserved := need.NeededQuestions
	p.logger.Printf("topic %q: generating %d questions (priority %s, has %d)",
		need.Topic.Title, reserved, need.Priority, need.CurrentCount)

	questions, err := p.gen.GenerateQuizQuestions(ctx, need.Topic, reserved)
	if err != nil {
		p.tracker.Release(ctx, reserved)
		return 0, 0, err
	}

	accepted := make([]models.QuizQuestion, 0, len(questions))
	qualitySum := 0.0
	for _, q := range questions {
		score := 0.0
		if q.QualityScore != nil {
			score = *q.QualityScore
		}
		if score < p.cfg.QualityThreshold {
			p.logger.Printf("topic %q: dropping question below quality threshold (%.2f < %.2f)",
				need.Topic.Title, score, p.cfg.QualityThreshold)
			continue
		}
		p.metrics.ObserveQuality(score)
		qualitySum += score
		accepted = append(accepted, q)
	}

	if unused := reserved - len(accepted); unused > 0 {
		p.tracker.Release(ctx, unused)
	}
	if len(accepted) == 0 {
		return 0, 0, fmt.Errorf("no questions met quality threshold %.2f", p.cfg.QualityThreshold)
	}

	if _, err := p.store.SaveGeneratedQuestions(ctx, need.Topic, accepted); err != nil {
		p.tracker.Release(ctx, len(accepted))
		return 0, 0, fmt.Errorf("saving questions: %w", err)
	}
	return len(accepted), qualitySum / float64(len(accepted)), nil
}
