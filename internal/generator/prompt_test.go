package generator

import (
	"strings"
	"testing"
)

func TestBuildQuizPrompt(t *testing.T) {
	topic := testTopic(t)
	prompt := BuildQuizPrompt(topic, 5)

	for _, want := range []string{
		"Photosynthesis",
		"Biology",
		"Difficulty Level: 3/5",
		"Create 5 high-quality multiple choice questions",
		`"question_text"`,
		"Describe the process of photosynthesis",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildExamPromptDistributions(t *testing.T) {
	topic := testTopic(t)

	prompt := BuildExamPrompt(topic, 20, nil)
	for _, want := range []string{
		"- 5 questions of 2 marks (short_answer)",
		"- 2 questions of 5 marks (structured)",
		`"duration_minutes": 60`,
		"Total Marks: 20",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("20-mark prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "extended") {
		t.Error("20-mark prompt should not use the extended band")
	}

	prompt = BuildExamPrompt(topic, 50, nil)
	for _, want := range []string{
		"- 5 questions of 2 marks (short_answer)",
		"- 4 questions of 5 marks (structured)",
		"- 2 questions of 10 marks (extended)",
		`"duration_minutes": 90`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("default prompt missing %q", want)
		}
	}
}
