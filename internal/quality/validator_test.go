package quality

import (
	"math"
	"testing"

	"github.com/studygen/studygen/internal/models"
)

func goodQuestion() models.QuizQuestion {
	return models.QuizQuestion{
		QuestionText: "Explain which process plants use to convert light energy into glucose?",
		QuestionType: models.QuestionMultipleChoice,
		Options: map[string]string{
			"A": "Photosynthesis",
			"B": "Respiration",
			"C": "Transpiration",
			"D": "Fermentation",
		},
		CorrectAnswer:   "A",
		Explanation:     "Photosynthesis uses chlorophyll to absorb light energy and convert carbon dioxide and water into glucose.",
		Points:          1,
		DifficultyLevel: 3,
	}
}

func TestValidateQuizQuestion_Accepts(t *testing.T) {
	v := NewValidator()
	res := v.ValidateQuizQuestion(goodQuestion())
	if !res.IsValid {
		t.Fatalf("expected valid question, issues: %+v", res.Issues)
	}
	if res.QualityScore < 0.7 {
		t.Errorf("expected score >= 0.7, got %v", res.QualityScore)
	}
}

func TestValidateQuizQuestion_EmptyText(t *testing.T) {
	v := NewValidator()
	q := goodQuestion()
	q.QuestionText = "   "
	res := v.ValidateQuizQuestion(q)
	if res.IsValid {
		t.Fatal("expected invalid result for empty question text")
	}
	if !res.HasCritical() {
		t.Error("expected a critical issue for empty question text")
	}
}

func TestValidateQuizQuestion_CorrectAnswerNotInOptions(t *testing.T) {
	v := NewValidator()
	q := goodQuestion()
	q.CorrectAnswer = "E"
	res := v.ValidateQuizQuestion(q)
	if res.IsValid {
		t.Fatal("expected invalid result when correct answer is not an option label")
	}
	// Both the options check and the answer check flag this; the redundancy
	// is the second gate.
	criticals := 0
	for _, issue := range res.Issues {
		if issue.Severity == SeverityCritical {
			criticals++
		}
	}
	if criticals < 2 {
		t.Errorf("expected at least 2 critical issues, got %d", criticals)
	}
}

func TestValidateQuizQuestion_PoorQualityIndicator(t *testing.T) {
	v := NewValidator()
	q := goodQuestion()
	q.QuestionText = "I think this is maybe a placeholder question about photosynthesis?"
	res := v.ValidateQuizQuestion(q)
	if res.IsValid {
		t.Fatal("expected invalid result for placeholder language")
	}
	if !res.HasErrors() {
		t.Error("expected error issues for poor quality indicators")
	}
}

func TestValidateQuizQuestion_DuplicateOptions(t *testing.T) {
	v := NewValidator()
	q := goodQuestion()
	q.Options["B"] = "Photosynthesis"
	res := v.ValidateQuizQuestion(q)
	if res.IsValid {
		t.Fatal("expected invalid result for duplicate option texts")
	}
}

func TestValidateQuizQuestion_InsufficientOptions(t *testing.T) {
	v := NewValidator()
	q := goodQuestion()
	q.Options = map[string]string{"A": "Photosynthesis", "B": "Respiration"}
	res := v.ValidateQuizQuestion(q)
	if res.IsValid {
		t.Fatal("expected invalid result for fewer than 4 options")
	}
}

func TestScore_MonotoneAndClamped(t *testing.T) {
	issues := []Issue{}
	prev := Score(issues)
	if prev != 1.0 {
		t.Fatalf("expected 1.0 for no issues, got %v", prev)
	}
	for i := 0; i < 10; i++ {
		issues = append(issues, Issue{Severity: SeverityError})
		s := Score(issues)
		if s > prev {
			t.Fatalf("score increased after adding issue: %v -> %v", prev, s)
		}
		if s < 0 || s > 1 {
			t.Fatalf("score out of range: %v", s)
		}
		prev = s
	}
	if prev != 0 {
		t.Errorf("expected clamp at 0, got %v", prev)
	}
}

func TestScore_Weights(t *testing.T) {
	got := Score([]Issue{
		{Severity: SeverityCritical},
		{Severity: SeverityError},
		{Severity: SeverityWarning},
		{Severity: SeverityInfo},
	})
	want := 1.0 - 0.30 - 0.20 - 0.10 - 0.05
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestWarningsDoNotBlockAcceptance(t *testing.T) {
	v := NewValidator()
	q := goodQuestion()
	q.Explanation = "Light energy becomes glucose."
	res := v.ValidateQuizQuestion(q)
	if !res.IsValid {
		t.Fatalf("warnings should not invalidate, issues: %+v", res.Issues)
	}
	if res.QualityScore >= 1.0 {
		t.Error("expected score below 1.0 with a warning present")
	}
}

func examQuestion(marks int) models.ExamQuestion {
	return models.ExamQuestion{
		QuestionText:  "Describe and explain how the rate of photosynthesis changes with light intensity.",
		Marks:         marks,
		AnswerText:    "Rate increases with light intensity until another factor becomes limiting; award marks for naming limiting factors.",
		QuestionOrder: 1,
		QuestionType:  "structured",
	}
}

func TestValidateExamPaper_EmptyShortCircuits(t *testing.T) {
	v := NewValidator()
	res := v.ValidateExamPaper(models.ExamPaper{Title: "x", Instructions: "y", TotalMarks: 20})
	if res.IsValid {
		t.Fatal("expected invalid result for empty paper")
	}
	if res.QualityScore != 0 {
		t.Errorf("expected score 0, got %v", res.QualityScore)
	}
	if len(res.Issues) != 1 || res.Issues[0].Severity != SeverityCritical {
		t.Errorf("expected a single critical issue, got %+v", res.Issues)
	}
}

func TestValidateExamPaper_MarksMismatch(t *testing.T) {
	v := NewValidator()
	paper := models.ExamPaper{
		Title:        "Biology: Photosynthesis",
		Instructions: "Answer ALL questions.",
		TotalMarks:   20,
		Questions:    []models.ExamQuestion{examQuestion(5), examQuestion(5)},
	}
	res := v.ValidateExamPaper(paper)
	if res.IsValid {
		t.Fatal("expected invalid result for marks mismatch")
	}
	found := false
	for _, issue := range res.Issues {
		if issue.Field == "total_marks" {
			found = true
		}
	}
	if !found {
		t.Error("expected a total_marks issue")
	}
}

func TestValidateExamPaper_FoldsQuestionScores(t *testing.T) {
	v := NewValidator()
	paper := models.ExamPaper{
		Title:        "Biology: Photosynthesis",
		Instructions: "Answer ALL questions.",
		TotalMarks:   10,
		Questions:    []models.ExamQuestion{examQuestion(5), examQuestion(5)},
	}
	res := v.ValidateExamPaper(paper)
	if !res.IsValid {
		t.Fatalf("expected valid paper, issues: %+v", res.Issues)
	}
	if res.QualityScore <= 0 || res.QualityScore > 1 {
		t.Errorf("score out of range: %v", res.QualityScore)
	}
}
