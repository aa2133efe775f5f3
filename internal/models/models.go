package models

import (
	"fmt"
	"strings"
	"time"
)

// QuestionType enumerates the supported question formats.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionShortAnswer    QuestionType = "short_answer"
	QuestionEssay          QuestionType = "essay"
)

// GenerationMethod records how a piece of content was produced.
type GenerationMethod string

const (
	MethodManual GenerationMethod = "manual"
	MethodOllama GenerationMethod = "ollama"
	MethodOpenAI GenerationMethod = "openai"
)

// Priority classes assigned by the needs analyzer.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// PriorityWeight returns the sort weight for a priority class.
func PriorityWeight(p string) int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	default:
		return 1
	}
}

// TopicInfo describes a curriculum topic questions are generated for.
// It is fetched from the store once per generation task and never mutated.
type TopicInfo struct {
	ID                 string
	Title              string
	SubjectName        string
	DifficultyLevel    int
	SyllabusCode       string
	Description        string
	LearningObjectives []string
}

// NewTopicInfo validates and returns a topic descriptor.
func NewTopicInfo(id, title, subject string, difficulty int, syllabusCode, description string, objectives []string) (TopicInfo, error) {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(title) == "" || strings.TrimSpace(subject) == "" {
		return TopicInfo{}, fmt.Errorf("topic id, title, and subject name are required")
	}
	if difficulty < 1 || difficulty > 5 {
		return TopicInfo{}, fmt.Errorf("difficulty level must be between 1 and 5, got %d", difficulty)
	}
	return TopicInfo{
		ID:                 id,
		Title:              title,
		SubjectName:        subject,
		DifficultyLevel:    difficulty,
		SyllabusCode:       syllabusCode,
		Description:        description,
		LearningObjectives: objectives,
	}, nil
}

// GenerationConfig holds tunable parameters for one generator instance.
// Validated at construction and immutable for the generator's lifetime.
type GenerationConfig struct {
	Model       string        `mapstructure:"model" json:"model"`
	Temperature float64       `mapstructure:"temperature" json:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" json:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries" json:"max_retries"`
	BatchSize   int           `mapstructure:"batch_size" json:"batch_size"`

	// Quality thresholds shared with the validator.
	MinQuestionLength    int `mapstructure:"min_question_length" json:"min_question_length"`
	MaxQuestionLength    int `mapstructure:"max_question_length" json:"max_question_length"`
	MinExplanationLength int `mapstructure:"min_explanation_length" json:"min_explanation_length"`
	RequiredOptionsCount int `mapstructure:"required_options_count" json:"required_options_count"`
}

// DefaultGenerationConfig returns the code defaults a persisted config is
// merged over.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Model:                "gemma3:4b",
		Temperature:          0.7,
		MaxTokens:            2000,
		Timeout:              120 * time.Second,
		MaxRetries:           3,
		BatchSize:            10,
		MinQuestionLength:    20,
		MaxQuestionLength:    500,
		MinExplanationLength: 30,
		RequiredOptionsCount: 4,
	}
}

// Validate checks the configuration invariants.
func (c GenerationConfig) Validate() error {
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("generation.model is required")
	}
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("generation.temperature must be between 0.0 and 2.0")
	}
	if c.MaxTokens < 100 {
		return fmt.Errorf("generation.max_tokens must be at least 100")
	}
	if c.Timeout < 10*time.Second {
		return fmt.Errorf("generation.timeout must be at least 10s")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("generation.max_retries must be at least 1")
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("generation.batch_size must be at least 1")
	}
	return nil
}

// Provenance records how and when a generated item was produced.
type Provenance struct {
	Method    GenerationMethod
	Model     string
	Timestamp time.Time
}

// QuizQuestion is a single generated quiz question. Created from parsed LLM
// output, scored once by the quality validator, persisted once.
type QuizQuestion struct {
	QuestionText    string
	QuestionType    QuestionType
	Options         map[string]string
	CorrectAnswer   string
	Explanation     string
	Points          int
	DifficultyLevel int
	Hint            string
	Tags            []string
	Provenance      Provenance
	QualityScore    *float64
}

// NewQuizQuestion validates and returns a quiz question. Construction is the
// last line of defense against propagating malformed model output.
func NewQuizQuestion(q QuizQuestion) (QuizQuestion, error) {
	if len(strings.TrimSpace(q.QuestionText)) < 10 {
		return QuizQuestion{}, fmt.Errorf("question text must be at least 10 characters")
	}
	if strings.TrimSpace(q.CorrectAnswer) == "" {
		return QuizQuestion{}, fmt.Errorf("correct answer is required")
	}
	if len(strings.TrimSpace(q.Explanation)) < 10 {
		return QuizQuestion{}, fmt.Errorf("explanation must be at least 10 characters")
	}
	if q.QuestionType == QuestionMultipleChoice && len(q.Options) < 2 {
		return QuizQuestion{}, fmt.Errorf("multiple choice questions must have at least 2 options")
	}
	if q.Points < 1 || q.Points > 10 {
		return QuizQuestion{}, fmt.Errorf("points must be between 1 and 10, got %d", q.Points)
	}
	if q.DifficultyLevel < 1 || q.DifficultyLevel > 5 {
		return QuizQuestion{}, fmt.Errorf("difficulty level must be between 1 and 5, got %d", q.DifficultyLevel)
	}
	if q.Provenance.Timestamp.IsZero() {
		q.Provenance.Timestamp = time.Now()
	}
	if q.Provenance.Method == "" {
		q.Provenance.Method = MethodOllama
	}
	return q, nil
}

// ExamQuestion is a single exam-paper item.
type ExamQuestion struct {
	QuestionText  string
	Marks         int
	AnswerText    string
	Explanation   string
	QuestionOrder int
	QuestionType  string
	Provenance    Provenance
}

// NewExamQuestion validates and returns an exam question.
func NewExamQuestion(q ExamQuestion) (ExamQuestion, error) {
	if len(strings.TrimSpace(q.QuestionText)) < 20 {
		return ExamQuestion{}, fmt.Errorf("exam question text must be at least 20 characters")
	}
	if len(strings.TrimSpace(q.AnswerText)) < 10 {
		return ExamQuestion{}, fmt.Errorf("answer text must be at least 10 characters")
	}
	if q.Marks < 1 || q.Marks > 20 {
		return ExamQuestion{}, fmt.Errorf("marks must be between 1 and 20, got %d", q.Marks)
	}
	if q.QuestionOrder < 1 {
		return ExamQuestion{}, fmt.Errorf("question order must be positive")
	}
	if q.QuestionType == "" {
		q.QuestionType = "structured"
	}
	if q.Provenance.Timestamp.IsZero() {
		q.Provenance.Timestamp = time.Now()
	}
	if q.Provenance.Method == "" {
		q.Provenance.Method = MethodOllama
	}
	return q, nil
}

// ExamPaper aggregates exam questions under a declared total.
type ExamPaper struct {
	Title           string
	Instructions    string
	DurationMinutes int
	TotalMarks      int
	Questions       []ExamQuestion
	TopicID         string
	SubjectName     string
	DifficultyLevel int
	Provenance      Provenance
}

// NewExamPaper validates and returns an exam paper. The declared total must
// equal the sum of the child question marks; callers recompute the total from
// accepted questions rather than trusting the requested figure.
func NewExamPaper(p ExamPaper) (ExamPaper, error) {
	if strings.TrimSpace(p.Title) == "" || strings.TrimSpace(p.Instructions) == "" {
		return ExamPaper{}, fmt.Errorf("title and instructions are required")
	}
	if len(p.Questions) == 0 {
		return ExamPaper{}, fmt.Errorf("exam paper must have at least one question")
	}
	if p.DurationMinutes < 10 {
		return ExamPaper{}, fmt.Errorf("duration must be at least 10 minutes")
	}
	if p.TotalMarks < 1 {
		return ExamPaper{}, fmt.Errorf("total marks must be positive")
	}
	sum := 0
	for _, q := range p.Questions {
		sum += q.Marks
	}
	if sum != p.TotalMarks {
		return ExamPaper{}, fmt.Errorf("question marks (%d) don't match total marks (%d)", sum, p.TotalMarks)
	}
	if p.DifficultyLevel == 0 {
		p.DifficultyLevel = 3
	}
	if p.Provenance.Timestamp.IsZero() {
		p.Provenance.Timestamp = time.Now()
	}
	if p.Provenance.Method == "" {
		p.Provenance.Method = MethodOllama
	}
	return p, nil
}

// TopicGenerationNeed is an ephemeral record produced by the needs analyzer
// and consumed within one scheduling pass.
type TopicGenerationNeed struct {
	Topic              TopicInfo
	CurrentCount       int
	NeededQuestions    int
	Priority           string
	LastGenerationDate *time.Time
}

// GenerationStats accumulates counters across one generator's lifetime.
type GenerationStats struct {
	StartTime             time.Time
	EndTime               time.Time
	TopicsProcessed       int
	QuestionsGenerated    int
	ExamsGenerated        int
	SuccessfulGenerations int
	FailedGenerations     int
	Errors                []string
}

// Duration returns elapsed wall-clock time, zero until finalized.
func (s GenerationStats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// SuccessRate returns the percentage of successful generations.
func (s GenerationStats) SuccessRate() float64 {
	total := s.SuccessfulGenerations + s.FailedGenerations
	if total == 0 {
		return 0
	}
	return float64(s.SuccessfulGenerations) / float64(total) * 100
}

// BatchGenerationResult summarizes one batch run.
type BatchGenerationResult struct {
	TopicsProcessed     int
	SuccessfulTopics    int
	FailedTopics        int
	QuestionsGenerated  int
	AverageQualityScore float64
	ProcessingTime      time.Duration
	Errors              []string
}
