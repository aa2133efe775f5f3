package generator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/studygen/studygen/internal/models"
	"github.com/studygen/studygen/internal/quality"
)

// maxQuestionsPerCall bounds how many quiz questions a single model call is
// asked for. Larger requests degrade sharply on small local models.
const maxQuestionsPerCall = 5

// examAttempts is how many times an exam paper is regenerated before the
// topic is given up on.
const examAttempts = 3

// markTolerance is the accepted relative deviation between the marks a paper
// actually carries and the requested total.
const markTolerance = 0.20

// Generator produces validated quiz questions and exam papers for one topic
// at a time. It is safe for concurrent use.
type Generator struct {
	cfg           models.GenerationConfig
	caller        *caller
	client        ChatClient
	validator     *quality.Validator
	logger        *log.Logger
	distributions map[string][]MarkBand
	batchDelay    time.Duration

	mu    sync.Mutex
	stats models.GenerationStats
}

// New builds a Generator around a chat backend. A nil distributions map
// selects the built-in exam mark tables.
func New(client ChatClient, cfg models.GenerationConfig, distributions map[string][]MarkBand, logger *log.Logger) *Generator {
	if logger == nil {
		logger = log.New(log.Writer(), "[GEN] ", log.LstdFlags)
	}
	if distributions == nil {
		distributions = DefaultExamDistributions()
	}
	return &Generator{
		cfg:           cfg,
		caller:        newCaller(client, cfg, logger),
		client:        client,
		validator:     quality.NewValidator(),
		logger:        logger,
		distributions: distributions,
		batchDelay:    time.Second,
		stats:         models.GenerationStats{StartTime: time.Now()},
	}
}

// VerifyConnection checks the backend is reachable and the configured model
// is installed.
func (g *Generator) VerifyConnection(ctx context.Context) error {
	names, err := g.client.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("model backend unreachable: %w", err)
	}
	for _, name := range names {
		if name == g.cfg.Model {
			return nil
		}
	}
	return fmt.Errorf("model %q not available (installed: %v)", g.cfg.Model, names)
}

type rawQuizQuestion struct {
	QuestionText    string            `json:"question_text"`
	QuestionType    string            `json:"question_type"`
	Options         map[string]string `json:"options"`
	CorrectAnswer   string            `json:"correct_answer"`
	Explanation     string            `json:"explanation"`
	DifficultyLevel int               `json:"difficulty_level"`
	Points          int               `json:"points"`
	Tags            []string          `json:"tags"`
}

type quizResponse struct {
	Questions []rawQuizQuestion `json:"questions"`
}

// GenerateQuizQuestions asks the model for count questions on a topic, in
// batches. A failed, unparseable, or empty batch stops the run early and the
// questions accumulated so far are returned; individually malformed questions
// are skipped without being re-requested. An error is returned only when
// nothing at all was produced.
func (g *Generator) GenerateQuizQuestions(ctx context.Context, topic models.TopicInfo, count int) ([]models.QuizQuestion, error) {
	if count < 1 {
		return nil, fmt.Errorf("question count must be positive, got %d", count)
	}

	var accepted []models.QuizQuestion
	remaining := count
	batch := 0
	for remaining > 0 {
		batch++
		ask := remaining
		if ask > maxQuestionsPerCall {
			ask = maxQuestionsPerCall
		}

		g.logger.Printf("[GEN] topic %q: batch %d requesting %d questions", topic.Title, batch, ask)
		reply, ok := g.caller.call(ctx, BuildQuizPrompt(topic, ask))
		if !ok {
			g.logger.Printf("[GEN] topic %q: batch %d failed, keeping %d questions", topic.Title, batch, len(accepted))
			break
		}

		var parsed quizResponse
		if !DecodeJSON(reply, &parsed) {
			g.logger.Printf("[GEN] topic %q: batch %d returned unparseable output", topic.Title, batch)
			break
		}

		got := 0
		for _, raw := range parsed.Questions {
			q, err := g.buildQuizQuestion(raw, topic)
			if err != nil {
				g.logger.Printf("[GEN] topic %q: skipping question: %v", topic.Title, err)
				continue
			}
			accepted = append(accepted, q)
			got++
		}
		if got == 0 {
			g.logger.Printf("[GEN] topic %q: batch %d yielded no usable questions, keeping %d", topic.Title, batch, len(accepted))
			break
		}

		// A short batch's shortfall is not re-requested: the same prompt
		// comes back with near-duplicates of questions already accepted.
		remaining -= ask
		if remaining > 0 && g.batchDelay > 0 {
			select {
			case <-ctx.Done():
				remaining = 0
			case <-time.After(g.batchDelay):
			}
		}
	}

	g.recordQuiz(len(accepted))
	if len(accepted) == 0 {
		return nil, fmt.Errorf("no usable questions generated for topic %q", topic.Title)
	}
	if len(accepted) > count {
		accepted = accepted[:count]
	}
	return accepted, nil
}

func (g *Generator) buildQuizQuestion(raw rawQuizQuestion, topic models.TopicInfo) (models.QuizQuestion, error) {
	qt := models.QuestionType(raw.QuestionType)
	if qt == "" {
		qt = models.QuestionMultipleChoice
	}
	difficulty := raw.DifficultyLevel
	if difficulty == 0 {
		difficulty = topic.DifficultyLevel
	}
	points := raw.Points
	if points == 0 {
		points = 1
	}

	q, err := models.NewQuizQuestion(models.QuizQuestion{
		QuestionText:    raw.QuestionText,
		QuestionType:    qt,
		Options:         raw.Options,
		CorrectAnswer:   raw.CorrectAnswer,
		Explanation:     raw.Explanation,
		Points:          points,
		DifficultyLevel: difficulty,
		Tags:            raw.Tags,
		Provenance: models.Provenance{
			Method:    models.MethodOllama,
			Model:     g.cfg.Model,
			Timestamp: time.Now().UTC(),
		},
	})
	if err != nil {
		return models.QuizQuestion{}, err
	}

	res := g.validator.ValidateQuizQuestion(q)
	q.QualityScore = &res.QualityScore
	return q, nil
}

type rawExamQuestion struct {
	QuestionText  string `json:"question_text"`
	Marks         int    `json:"marks"`
	AnswerText    string `json:"answer_text"`
	Explanation   string `json:"explanation"`
	QuestionOrder int    `json:"question_order"`
	QuestionType  string `json:"question_type"`
}

type examResponse struct {
	Title           string            `json:"title"`
	Instructions    string            `json:"instructions"`
	DurationMinutes int               `json:"duration_minutes"`
	TotalMarks      int               `json:"total_marks"`
	Questions       []rawExamQuestion `json:"questions"`
}

// GenerateExamPaper produces a full paper for a topic. The model gets up to
// three attempts;eligible output must land within the mark tolerance of the
// requested total. The paper's recorded total is recomputed from the accepted
// questions, never trusted from the response.
func (g *Generator) GenerateExamPaper(ctx context.Context, topic models.TopicInfo, totalMarks int) (models.ExamPaper, error) {
	if totalMarks < 1 {
		return models.ExamPaper{}, fmt.Errorf("total marks must be positive, got %d", totalMarks)
	}
	prompt := BuildExamPrompt(topic, totalMarks, g.distributions)

	var lastErr error
	for attempt := 1; attempt <= examAttempts; attempt++ {
		reply, ok := g.caller.call(ctx, prompt)
		if !ok {
			lastErr = fmt.Errorf("model call failed")
			continue
		}

		paper, err := g.buildExamPaper(reply, topic, totalMarks)
		if err != nil {
			g.logger.Printf("[GEN] topic %q: exam attempt %d/%d rejected: %v", topic.Title, attempt, examAttempts, err)
			lastErr = err
			continue
		}

		g.recordExam(true)
		return paper, nil
	}

	g.recordExam(false)
	return models.ExamPaper{}, fmt.Errorf("exam generation failed for topic %q after %d attempts: %w", topic.Title, examAttempts, lastErr)
}

func (g *Generator) buildExamPaper(reply string, topic models.TopicInfo, totalMarks int) (models.ExamPaper, error) {
	var parsed examResponse
	if !DecodeJSON(reply, &parsed) {
		return models.ExamPaper{}, fmt.Errorf("unparseable output")
	}
	if len(parsed.Questions) == 0 {
		return models.ExamPaper{}, fmt.Errorf("paper has no questions")
	}

	prov := models.Provenance{
		Method:    models.MethodOllama,
		Model:     g.cfg.Model,
		Timestamp: time.Now().UTC(),
	}

	questions := make([]models.ExamQuestion, 0, len(parsed.Questions))
	sum := 0
	for i, raw := range parsed.Questions {
		order := raw.QuestionOrder
		if order == 0 {
			order = i + 1
		}
		q, err := models.NewExamQuestion(models.ExamQuestion{
			QuestionText:  raw.QuestionText,
			Marks:         raw.Marks,
			AnswerText:    raw.AnswerText,
			Explanation:   raw.Explanation,
			QuestionOrder: order,
			QuestionType:  raw.QuestionType,
			Provenance:    prov,
		})
		if err != nil {
			return models.ExamPaper{}, fmt.Errorf("question %d: %w", i+1, err)
		}
		questions = append(questions, q)
		sum += q.Marks
	}

	deviation := float64(sum-totalMarks) / float64(totalMarks)
	if deviation < 0 {
		deviation = -deviation
	}
	if deviation > markTolerance {
		return models.ExamPaper{}, fmt.Errorf("paper carries %d marks, requested %d (outside %.0f%% tolerance)", sum, totalMarks, markTolerance*100)
	}

	title := parsed.Title
	if title == "" {
		title = fmt.Sprintf("IGCSE %s: %s", topic.SubjectName, topic.Title)
	}
	instructions := parsed.Instructions
	if instructions == "" {
		instructions = "Answer ALL questions. Show all working clearly."
	}
	duration := parsed.DurationMinutes
	if duration < 10 {
		duration = 90
		if sum <= 20 {
			duration = 60
		}
	}

	paper, err := models.NewExamPaper(models.ExamPaper{
		Title:           title,
		Instructions:    instructions,
		DurationMinutes: duration,
		TotalMarks:      sum,
		Questions:       questions,
		TopicID:         topic.ID,
		SubjectName:     topic.SubjectName,
		DifficultyLevel: topic.DifficultyLevel,
		Provenance:      prov,
	})
	if err != nil {
		return models.ExamPaper{}, err
	}

	res := g.validator.ValidateExamPaper(paper)
	if !res.IsValid {
		return models.ExamPaper{}, fmt.Errorf("paper failed validation: %s", res.Issues[0].Message)
	}
	return paper, nil
}

// ScoreQuestions runs the validator over a batch and returns the mean quality
// score, zero for an empty slice.
func (g *Generator) ScoreQuestions(questions []models.QuizQuestion) float64 {
	if len(questions) == 0 {
		return 0
	}
	total := 0.0
	for _, q := range questions {
		total += g.validator.ValidateQuizQuestion(q).QualityScore
	}
	return total / float64(len(questions))
}

// Stats returns a snapshot of the generator's counters.
func (g *Generator) Stats() models.GenerationStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.stats
	s.EndTime = time.Now()
	return s
}

func (g *Generator) recordQuiz(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stats.TopicsProcessed++
	g.stats.QuestionsGenerated += n
	if n > 0 {
		g.stats.SuccessfulGenerations++
	} else {
		g.stats.FailedGenerations++
	}
}

func (g *Generator) recordExam(ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stats.TopicsProcessed++
	if ok {
		g.stats.ExamsGenerated++
		g.stats.SuccessfulGenerations++
	} else {
		g.stats.FailedGenerations++
	}
}
