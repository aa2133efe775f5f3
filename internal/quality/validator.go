package quality

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/studygen/studygen/internal/models"
)

// Severity grades a validation issue.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Issue is a single diagnostic produced by a validation check.
type Issue struct {
	Severity   Severity
	Message    string
	Field      string
	Suggestion string
}

// Result aggregates the outcome of one validation call.
type Result struct {
	IsValid      bool
	QualityScore float64
	Issues       []Issue
}

// HasCritical reports whether any issue is critical.
func (r Result) HasCritical() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// HasErrors reports whether any issue is an error.
func (r Result) HasErrors() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validator inspects generated questions and papers against quality rules.
// Stateless and safe for concurrent use.
type Validator struct {
	MinQuestionLength    int
	MaxQuestionLength    int
	MinExplanationLength int
	MaxExplanationLength int
	RequiredOptionsCount int

	poorQualityIndicators []string
	academicIndicators    []string
	instructionVerbs      []string
}

// NewValidator returns a validator with the standard thresholds.
func NewValidator() *Validator {
	return &Validator{
		MinQuestionLength:    20,
		MaxQuestionLength:    500,
		MinExplanationLength: 30,
		MaxExplanationLength: 1000,
		RequiredOptionsCount: 4,
		poorQualityIndicators: []string{
			"i don't know", "not sure", "maybe", "probably", "i think",
			"lorem ipsum", "placeholder", "example", "test question",
		},
		academicIndicators: []string{
			"analyze", "evaluate", "compare", "contrast", "explain", "describe",
			"calculate", "determine", "identify", "classify", "interpret",
		},
		instructionVerbs: []string{"calculate", "determine", "find", "show"},
	}
}

// ValidateQuizQuestion runs all quiz checks and produces a scored result.
func (v *Validator) ValidateQuizQuestion(q models.QuizQuestion) Result {
	var issues []Issue

	issues = append(issues, v.checkQuestionText(q.QuestionText)...)
	if q.QuestionType == models.QuestionMultipleChoice {
		issues = append(issues, v.checkMultipleChoiceOptions(q.Options, q.CorrectAnswer)...)
	}
	issues = append(issues, v.checkExplanation(q.Explanation)...)
	issues = append(issues, v.checkCorrectAnswer(q.CorrectAnswer, q.QuestionType, q.Options)...)
	issues = append(issues, v.checkAcademicQuality(q.QuestionText, q.Explanation)...)

	return v.result(issues)
}

// ValidateExamQuestion runs exam-item checks and produces a scored result.
func (v *Validator) ValidateExamQuestion(q models.ExamQuestion) Result {
	var issues []Issue

	if len(strings.TrimSpace(q.QuestionText)) < 30 {
		issues = append(issues, Issue{
			Severity:   SeverityError,
			Message:    "exam question text is too short",
			Field:      "question_text",
			Suggestion: "exam questions should be at least 30 characters long",
		})
	}
	if q.Marks < 1 || q.Marks > 20 {
		issues = append(issues, Issue{
			Severity:   SeverityError,
			Message:    fmt.Sprintf("invalid marks allocation: %d", q.Marks),
			Field:      "marks",
			Suggestion: "marks should be between 1 and 20",
		})
	}
	if len(strings.TrimSpace(q.AnswerText)) < 20 {
		issues = append(issues, Issue{
			Severity:   SeverityError,
			Message:    "answer text is too short",
			Field:      "answer_text",
			Suggestion: "provide a detailed marking scheme or model answer",
		})
	}
	issues = append(issues, v.checkAcademicQuality(q.QuestionText, q.AnswerText)...)

	return v.result(issues)
}

// ValidateExamPaper validates the whole paper: structure, mark sum, and each
// question, folding per-question scores into an average with a flat penalty
// per structural error.
func (v *Validator) ValidateExamPaper(p models.ExamPaper) Result {
	var issues []Issue

	if len(p.Questions) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityCritical,
			Message:  "exam paper has no questions",
			Field:    "questions",
		})
		return Result{IsValid: false, QualityScore: 0.0, Issues: issues}
	}

	sum := 0
	for _, q := range p.Questions {
		sum += q.Marks
	}
	if sum != p.TotalMarks {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Message:  fmt.Sprintf("marks mismatch: calculated %d, expected %d", sum, p.TotalMarks),
			Field:    "total_marks",
		})
	}

	var questionScores []float64
	for i, q := range p.Questions {
		res := v.ValidateExamQuestion(q)
		questionScores = append(questionScores, res.QualityScore)
		for _, issue := range res.Issues {
			issues = append(issues, Issue{
				Severity:   issue.Severity,
				Message:    fmt.Sprintf("question %d: %s", i+1, issue.Message),
				Field:      fmt.Sprintf("questions[%d].%s", i, issue.Field),
				Suggestion: issue.Suggestion,
			})
		}
	}

	avg := 0.0
	for _, s := range questionScores {
		avg += s
	}
	avg /= float64(len(questionScores))

	penalty := 0.0
	for _, issue := range issues {
		if issue.Severity == SeverityError || issue.Severity == SeverityCritical {
			penalty += 0.1
		}
	}
	score := avg - penalty
	if score < 0 {
		score = 0
	}

	valid := true
	for _, issue := range issues {
		if issue.Severity == SeverityError || issue.Severity == SeverityCritical {
			valid = false
			break
		}
	}
	return Result{IsValid: valid, QualityScore: score, Issues: issues}
}

func (v *Validator) checkQuestionText(text string) []Issue {
	var issues []Issue

	clean := strings.TrimSpace(text)
	if clean == "" {
		return append(issues, Issue{
			Severity: SeverityCritical,
			Message:  "question text is empty",
			Field:    "question_text",
		})
	}

	if len(clean) < v.MinQuestionLength {
		issues = append(issues, Issue{
			Severity:   SeverityError,
			Message:    fmt.Sprintf("question text too short (%d chars, minimum %d)", len(clean), v.MinQuestionLength),
			Field:      "question_text",
			Suggestion: "provide more detailed question text",
		})
	}
	if len(clean) > v.MaxQuestionLength {
		issues = append(issues, Issue{
			Severity:   SeverityWarning,
			Message:    fmt.Sprintf("question text very long (%d chars, maximum %d)", len(clean), v.MaxQuestionLength),
			Field:      "question_text",
			Suggestion: "consider breaking into multiple questions",
		})
	}

	lower := strings.ToLower(clean)
	if !strings.HasSuffix(clean, "?") && !containsAny(lower, v.instructionVerbs) {
		issues = append(issues, Issue{
			Severity:   SeverityWarning,
			Message:    "question text should end with a question mark or be a clear instruction",
			Field:      "question_text",
			Suggestion: "add '?' or use clear instructional language",
		})
	}

	for _, indicator := range v.poorQualityIndicators {
		if strings.Contains(lower, indicator) {
			issues = append(issues, Issue{
				Severity:   SeverityError,
				Message:    fmt.Sprintf("contains poor quality indicator: %q", indicator),
				Field:      "question_text",
				Suggestion: "remove placeholder or uncertain language",
			})
		}
	}
	return issues
}

func (v *Validator) checkMultipleChoiceOptions(options map[string]string, correctAnswer string) []Issue {
	var issues []Issue

	if len(options) == 0 {
		return append(issues, Issue{
			Severity: SeverityCritical,
			Message:  "multiple choice question missing options",
			Field:    "options",
		})
	}

	if len(options) < v.RequiredOptionsCount {
		issues = append(issues, Issue{
			Severity:   SeverityError,
			Message:    fmt.Sprintf("insufficient options (%d, required %d)", len(options), v.RequiredOptionsCount),
			Field:      "options",
			Suggestion: "provide 4 distinct options (A, B, C, D)",
		})
	}

	expected := []string{"A", "B", "C", "D"}
	if len(options) < len(expected) {
		expected = expected[:len(options)]
	}
	for _, label := range expected {
		if _, ok := options[label]; !ok {
			issues = append(issues, Issue{
				Severity:   SeverityError,
				Message:    fmt.Sprintf("missing option label %q", label),
				Field:      "options",
				Suggestion: "use standard labels A, B, C, D",
			})
		}
	}

	if _, ok := options[correctAnswer]; !ok {
		issues = append(issues, Issue{
			Severity:   SeverityCritical,
			Message:    fmt.Sprintf("correct answer %q not found in options", correctAnswer),
			Field:      "correct_answer",
			Suggestion: "ensure correct answer matches one of the option labels",
		})
	}

	seen := make(map[string]struct{}, len(options))
	duplicate := false
	for _, text := range options {
		if _, ok := seen[text]; ok {
			duplicate = true
			break
		}
		seen[text] = struct{}{}
	}
	if duplicate {
		issues = append(issues, Issue{
			Severity:   SeverityError,
			Message:    "duplicate option texts found",
			Field:      "options",
			Suggestion: "ensure all options are distinct",
		})
	}

	for label, text := range options {
		if len(strings.TrimSpace(text)) < 3 {
			issues = append(issues, Issue{
				Severity:   SeverityError,
				Message:    fmt.Sprintf("option %s is too short", label),
				Field:      "options",
				Suggestion: "provide meaningful option text",
			})
		}
	}
	return issues
}

func (v *Validator) checkExplanation(explanation string) []Issue {
	var issues []Issue

	clean := strings.TrimSpace(explanation)
	if clean == "" {
		return append(issues, Issue{
			Severity:   SeverityError,
			Message:    "explanation is missing",
			Field:      "explanation",
			Suggestion: "provide detailed explanation of the correct answer",
		})
	}
	if len(clean) < v.MinExplanationLength {
		issues = append(issues, Issue{
			Severity:   SeverityWarning,
			Message:    fmt.Sprintf("explanation too short (%d chars, minimum %d)", len(clean), v.MinExplanationLength),
			Field:      "explanation",
			Suggestion: "provide more detailed explanation",
		})
	}
	if len(clean) > v.MaxExplanationLength {
		issues = append(issues, Issue{
			Severity:   SeverityWarning,
			Message:    fmt.Sprintf("explanation very long (%d chars, maximum %d)", len(clean), v.MaxExplanationLength),
			Field:      "explanation",
			Suggestion: "consider condensing the explanation",
		})
	}
	return issues
}

// checkCorrectAnswer re-checks answer membership; intentionally redundant
// with the options check as a second gate.
func (v *Validator) checkCorrectAnswer(correctAnswer string, questionType models.QuestionType, options map[string]string) []Issue {
	var issues []Issue

	if strings.TrimSpace(correctAnswer) == "" {
		return append(issues, Issue{
			Severity: SeverityCritical,
			Message:  "correct answer is missing",
			Field:    "correct_answer",
		})
	}
	if questionType == models.QuestionMultipleChoice && len(options) > 0 {
		if _, ok := options[correctAnswer]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityCritical,
				Message:  fmt.Sprintf("correct answer %q not in options", correctAnswer),
				Field:    "correct_answer",
			})
		}
	}
	return issues
}

func (v *Validator) checkAcademicQuality(questionText, explanationText string) []Issue {
	var issues []Issue

	combined := strings.ToLower(questionText + " " + explanationText)
	count := 0
	for _, indicator := range v.academicIndicators {
		if strings.Contains(combined, indicator) {
			count++
		}
	}
	if count == 0 {
		issues = append(issues, Issue{
			Severity:   SeverityInfo,
			Message:    "consider using more academic vocabulary",
			Field:      "academic_quality",
			Suggestion: "include words like 'analyze', 'evaluate', 'explain'",
		})
	}

	if questionText != "" {
		first := []rune(questionText)[0]
		if unicode.IsLetter(first) && !unicode.IsUpper(first) {
			issues = append(issues, Issue{
				Severity:   SeverityWarning,
				Message:    "question should start with capital letter",
				Field:      "question_text",
				Suggestion: "capitalize the first letter",
			})
		}
	}
	return issues
}

func (v *Validator) result(issues []Issue) Result {
	valid := true
	for _, issue := range issues {
		if issue.Severity == SeverityError || issue.Severity == SeverityCritical {
			valid = false
			break
		}
	}
	return Result{IsValid: valid, QualityScore: Score(issues), Issues: issues}
}

// Score computes the 0-1 quality score from an issue list: 1.0 minus 0.30
// per critical, 0.20 per error, 0.10 per warning, 0.05 per info, clamped.
func Score(issues []Issue) float64 {
	score := 1.0
	for _, issue := range issues {
		switch issue.Severity {
		case SeverityCritical:
			score -= 0.30
		case SeverityError:
			score -= 0.20
		case SeverityWarning:
			score -= 0.10
		case SeverityInfo:
			score -= 0.05
		}
	}
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
