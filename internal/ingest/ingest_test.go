package ingest

import (
	"context"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/studygen/studygen/internal/store"
)

const bioText = `Photosynthesis is the process by which plants convert light energy
into chemical energy. In this chapter we describe the structure of the
chloroplast and explain how chlorophyll absorbs light. For example, the cell
uses the resulting glucose during respiration. A key learning objective is to
understand the word equation for photosynthesis and the function of each
reactant. The enzyme systems involved are sensitive to temperature, and an
experiment can show the effect of light intensity on the rate of the process
in an aquatic organism such as pondweed.`

func TestValidateAcceptsEducationalContent(t *testing.T) {
	v := NewContentValidator(DefaultValidatorConfig(), nil)
	if err := v.Validate(bioText, "Biology"); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	v := NewContentValidator(DefaultValidatorConfig(), nil)

	tests := []struct {
		name    string
		text    string
		subject string
	}{
		{"too short", "Photosynthesis is a process.", "Biology"},
		{"boilerplate", bioText + " All rights reserved.", "Biology"},
		{"wrong subject", bioText, "Chemistry"},
		{
			"no educational markers",
			strings.Repeat("the quick brown fox jumps over the lazy dog ", 10),
			"Biology",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := v.Validate(tt.text, tt.subject); err == nil {
				t.Errorf("expected %s to be rejected", tt.name)
			}
		})
	}
}

func TestValidateUnknownSubjectSkipsKeywordCheck(t *testing.T) {
	v := NewContentValidator(DefaultValidatorConfig(), nil)
	if err := v.Validate(bioText, "History"); err != nil {
		t.Fatalf("unknown subject should skip keyword check: %v", err)
	}
}

func TestHashContentNormalizes(t *testing.T) {
	a := HashContent("Photosynthesis  converts\nlight energy.")
	b := HashContent("photosynthesis converts light ENERGY.")
	if a != b {
		t.Error("hash should ignore whitespace and case")
	}
	c := HashContent("Respiration releases energy.")
	if a == c {
		t.Error("different content must hash differently")
	}
}

type fakeContentStore struct {
	seen map[string]bool
	ids  int
}

func (f *fakeContentStore) InsertContent(_ context.Context, rec store.ContentRecord) (string, bool, error) {
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[rec.ContentHash] {
		return "", false, nil
	}
	f.seen[rec.ContentHash] = true
	f.ids++
	return "c1", true, nil
}

func TestIngestDeduplicatesAndCounts(t *testing.T) {
	st := &fakeContentStore{}
	ing := New(st, nil, log.New(io.Discard, "", 0))

	chunks := []Chunk{
		{TopicID: "t1", Subject: "Biology", Source: "a.pdf", Body: bioText},
		{TopicID: "t1", Subject: "Biology", Source: "b.pdf", Body: bioText},
		{TopicID: "t1", Subject: "Biology", Source: "c.pdf", Body: "too short"},
	}

	res, err := ing.Ingest(context.Background(), chunks)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Accepted != 1 || res.Duplicates != 1 || res.Rejected != 1 {
		t.Errorf("result = %+v", res)
	}
}
