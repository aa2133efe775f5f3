package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/studygen/studygen/internal/models"
)

type fakeCountStore struct {
	counts []models.TopicGenerationNeed
	err    error
}

func (f *fakeCountStore) TopicQuestionCounts(_ context.Context, _ string) ([]models.TopicGenerationNeed, error) {
	return f.counts, f.err
}

func topic(t *testing.T, id, title string) models.TopicInfo {
	t.Helper()
	info, err := models.NewTopicInfo(id, title, "Biology", 3, "", "", nil)
	if err != nil {
		t.Fatalf("NewTopicInfo: %v", err)
	}
	return info
}

func TestAnalyzeNeedsClassification(t *testing.T) {
	cfg := DefaultConfig() // min 20, target 50

	store := &fakeCountStore{counts: []models.TopicGenerationNeed{
		{Topic: topic(t, "t1", "Photosynthesis"), CurrentCount: 5},
		{Topic: topic(t, "t2", "Respiration"), CurrentCount: 35},
		{Topic: topic(t, "t3", "Osmosis"), CurrentCount: 50},
		{Topic: topic(t, "t4", "Enzymes"), CurrentCount: 60},
	}}

	needs, err := AnalyzeNeeds(context.Background(), store, cfg, "")
	if err != nil {
		t.Fatalf("AnalyzeNeeds: %v", err)
	}
	if len(needs) != 2 {
		t.Fatalf("expected 2 needy topics, got %d", len(needs))
	}

	// 5 of 20 minimum: high priority, gap of 45 capped at 20 per run.
	first := needs[0]
	if first.Topic.ID != "t1" || first.Priority != models.PriorityHigh {
		t.Errorf("first need = %s/%s, want t1/high", first.Topic.ID, first.Priority)
	}
	if first.NeededQuestions != maxNeedPerRun {
		t.Errorf("needed = %d, want capped %d", first.NeededQuestions, maxNeedPerRun)
	}

	// 35 of 50 target: medium priority, uncapped gap of 15.
	second := needs[1]
	if second.Topic.ID != "t2" || second.Priority != models.PriorityMedium {
		t.Errorf("second need = %s/%s, want t2/medium", second.Topic.ID, second.Priority)
	}
	if second.NeededQuestions != 15 {
		t.Errorf("needed = %d, want 15", second.NeededQuestions)
	}
}

func TestAnalyzeNeedsOrdering(t *testing.T) {
	cfg := DefaultConfig()

	store := &fakeCountStore{counts: []models.TopicGenerationNeed{
		{Topic: topic(t, "m1", "Waves"), CurrentCount: 40},
		{Topic: topic(t, "h1", "Forces"), CurrentCount: 10},
		{Topic: topic(t, "m2", "Circuits"), CurrentCount: 30},
		{Topic: topic(t, "h2", "Energy"), CurrentCount: 0},
	}}

	needs, err := AnalyzeNeeds(context.Background(), store, cfg, "")
	if err != nil {
		t.Fatalf("AnalyzeNeeds: %v", err)
	}

	var got []string
	for _, n := range needs {
		got = append(got, n.Topic.ID)
	}
	// High priority first. Both highs hit the per-run cap, so the stable
	// sort keeps their input order; the mediums order by gap.
	want := []string{"h1", "h2", "m2", "m1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestAnalyzeNeedsStoreError(t *testing.T) {
	store := &fakeCountStore{err: errors.New("connection refused")}
	if _, err := AnalyzeNeeds(context.Background(), store, DefaultConfig(), ""); err == nil {
		t.Fatal("expected store error to propagate")
	}
}
