package generator

import (
	"fmt"
	"strings"

	"github.com/studygen/studygen/internal/models"
)

// MarkBand describes one slice of an exam paper's mark distribution.
type MarkBand struct {
	Marks int    `mapstructure:"marks" json:"marks"`
	Count int    `mapstructure:"count" json:"count"`
	Type  string `mapstructure:"type" json:"type"`
}

// DefaultExamDistributions returns the fixed distribution tables keyed by
// declared total: the 20-mark split and the split used for larger papers.
// These are business rules carried as data, keyed "20" and "default".
func DefaultExamDistributions() map[string][]MarkBand {
	return map[string][]MarkBand{
		"20": {
			{Marks: 2, Count: 5, Type: "short_answer"},
			{Marks: 5, Count: 2, Type: "structured"},
		},
		"default": {
			{Marks: 2, Count: 5, Type: "short_answer"},
			{Marks: 5, Count: 4, Type: "structured"},
			{Marks: 10, Count: 2, Type: "extended"},
		},
	}
}

// distributionFor picks the mark bands for a requested total.
func distributionFor(tables map[string][]MarkBand, totalMarks int) []MarkBand {
	if bands, ok := tables[fmt.Sprintf("%d", totalMarks)]; ok {
		return bands
	}
	return tables["default"]
}

// BuildQuizPrompt renders the quiz-generation instruction for a topic. The
// embedded JSON example is the wire contract the parser expects; keep the
// field names in lock-step with parseQuizResponse.
func BuildQuizPrompt(topic models.TopicInfo, questionCount int) string {
	var objectives string
	if len(topic.LearningObjectives) > 0 {
		var b strings.Builder
		b.WriteString("\nLearning Objectives:\n")
		for _, obj := range topic.LearningObjectives {
			b.WriteString("- ")
			b.WriteString(obj)
			b.WriteString("\n")
		}
		objectives = strings.TrimRight(b.String(), "\n")
	}

	return fmt.Sprintf(`You are an expert IGCSE %s educator creating quiz questions for Grade 9-10 students.

Topic: %s
Subject: %s
Difficulty Level: %d/5
Syllabus Code: %s
Description: %s%s

Create %d high-quality multiple choice questions that:
1. Test understanding of key concepts in %s
2. Are appropriate for IGCSE Grade 9-10 level
3. Have 4 clear, distinct options (A, B, C, D)
4. Include detailed explanations for the correct answer
5. Vary in difficulty within the specified level
6. Use proper academic language and terminology

Respond with valid JSON only:
{
    "questions": [
        {
            "question_text": "Clear, specific question text that tests understanding",
            "question_type": "multiple_choice",
            "options": {
                "A": "First option",
                "B": "Second option",
                "C": "Third option",
                "D": "Fourth option"
            },
            "correct_answer": "A",
            "explanation": "Detailed explanation of why this answer is correct and why others are wrong",
            "difficulty_level": %d,
            "points": 1,
            "tags": ["relevant", "topic", "tags"]
        }
    ]
}

Ensure all questions are factually accurate, educationally valuable, and aligned with IGCSE curriculum standards.`,
		topic.SubjectName, topic.Title, topic.SubjectName, topic.DifficultyLevel,
		topic.SyllabusCode, topic.Description, objectives,
		questionCount, topic.Title, topic.DifficultyLevel)
}

// BuildExamPrompt renders the exam-paper instruction for a topic. The
// question-count/mark split is a deterministic function of the requested
// total, taken from the distribution tables.
func BuildExamPrompt(topic models.TopicInfo, totalMarks int, tables map[string][]MarkBand) string {
	if tables == nil {
		tables = DefaultExamDistributions()
	}
	bands := distributionFor(tables, totalMarks)

	var dist strings.Builder
	for _, b := range bands {
		fmt.Fprintf(&dist, "- %d questions of %d marks (%s)\n", b.Count, b.Marks, b.Type)
	}

	duration := 90
	if totalMarks <= 20 {
		duration = 60
	}

	return fmt.Sprintf(`You are an expert IGCSE %s examiner creating a formal exam paper.

Topic: %s
Subject: %s
Total Marks: %d
Difficulty Level: %d/5
Syllabus Code: %s

Create exam questions with this distribution:
%s
Requirements:
1. Questions must be appropriate for IGCSE Grade 9-10 level
2. Include clear mark allocations and instructions
3. Provide detailed marking schemes/model answers
4. Cover different aspects of %s
5. Use proper exam paper formatting and language
6. Ensure questions test different cognitive levels (knowledge, understanding, application, analysis)

Respond with valid JSON only:
{
    "title": "IGCSE %s: %s",
    "instructions": "Answer ALL questions. Show all working clearly. Write your answers in the spaces provided.",
    "duration_minutes": %d,
    "total_marks": %d,
    "questions": [
        {
            "question_text": "Question text with clear instructions and any diagrams described",
            "marks": 5,
            "answer_text": "Detailed marking scheme with acceptable answers and mark allocation",
            "explanation": "Additional guidance for marking and common student errors to watch for",
            "question_order": 1,
            "question_type": "structured"
        }
    ]
}

Ensure all questions are academically rigorous and align with IGCSE assessment objectives.`,
		topic.SubjectName, topic.Title, topic.SubjectName, totalMarks,
		topic.DifficultyLevel, topic.SyllabusCode, dist.String(), topic.Title,
		topic.SubjectName, topic.Title, duration, totalMarks)
}
