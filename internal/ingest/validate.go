// Package ingest brings curriculum material into the store: it validates
// raw text for educational value and deduplicates chunks by content hash.
package ingest

import (
	"fmt"
	"strings"
)

// ValidatorConfig holds the acceptance thresholds for ingested content.
type ValidatorConfig struct {
	MinWords              int `mapstructure:"min_words" json:"min_words"`
	MaxWords              int `mapstructure:"max_words" json:"max_words"`
	MinEducationalMatches int `mapstructure:"min_educational_matches" json:"min_educational_matches"`
	MinSubjectKeywordHits int `mapstructure:"min_subject_keyword_hits" json:"min_subject_keyword_hits"`
}

// DefaultValidatorConfig returns the thresholds content must clear.
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		MinWords:              50,
		MaxWords:              5000,
		MinEducationalMatches: 2,
		MinSubjectKeywordHits: 1,
	}
}

// educationalIndicators mark text that reads like teaching material rather
// than navigation chrome or boilerplate.
var educationalIndicators = []string{
	"definition", "example", "explain", "describe", "process",
	"structure", "function", "equation", "formula", "experiment",
	"diagram", "syllabus", "objective", "understand", "learn",
	"chapter", "topic", "concept", "theory", "principle",
}

// boilerplateIndicators mark text that is clearly not content.
var boilerplateIndicators = []string{
	"cookie policy", "all rights reserved", "subscribe to our newsletter",
	"terms of service", "privacy policy", "click here", "sign up now",
}

// ContentValidator decides whether a chunk of text is worth storing for a
// subject.
type ContentValidator struct {
	cfg             ValidatorConfig
	subjectKeywords map[string][]string
}

// NewContentValidator builds a validator. subjectKeywords maps a subject
// name to the terms expected in its material; unknown subjects skip the
// keyword check.
func NewContentValidator(cfg ValidatorConfig, subjectKeywords map[string][]string) *ContentValidator {
	if subjectKeywords == nil {
		subjectKeywords = DefaultSubjectKeywords()
	}
	return &ContentValidator{cfg: cfg, subjectKeywords: subjectKeywords}
}

// DefaultSubjectKeywords covers the IGCSE science and maths subjects.
func DefaultSubjectKeywords() map[string][]string {
	return map[string][]string{
		"Biology":     {"cell", "organism", "enzyme", "photosynthesis", "respiration", "dna", "gene", "ecosystem", "protein", "membrane"},
		"Chemistry":   {"atom", "molecule", "reaction", "element", "compound", "acid", "alkali", "bond", "electron", "periodic"},
		"Physics":     {"force", "energy", "wave", "current", "voltage", "velocity", "momentum", "magnetic", "radiation", "pressure"},
		"Mathematics": {"equation", "function", "graph", "angle", "probability", "fraction", "algebra", "geometry", "ratio", "theorem"},
	}
}

// Validate checks one chunk of text against the thresholds. A nil error
// means the chunk should be stored.
func (v *ContentValidator) Validate(text, subject string) error {
	words := len(strings.Fields(text))
	if words < v.cfg.MinWords {
		return fmt.Errorf("content too short: %d words, need %d", words, v.cfg.MinWords)
	}
	if v.cfg.MaxWords > 0 && words > v.cfg.MaxWords {
		return fmt.Errorf("content too long: %d words, max %d", words, v.cfg.MaxWords)
	}

	lower := strings.ToLower(text)
	for _, phrase := range boilerplateIndicators {
		if strings.Contains(lower, phrase) {
			return fmt.Errorf("content looks like boilerplate: contains %q", phrase)
		}
	}

	matches := 0
	for _, indicator := range educationalIndicators {
		if strings.Contains(lower, indicator) {
			matches++
		}
	}
	if matches < v.cfg.MinEducationalMatches {
		return fmt.Errorf("content lacks educational markers: %d of %d required", matches, v.cfg.MinEducationalMatches)
	}

	keywords, known := v.subjectKeywords[subject]
	if !known {
		return nil
	}
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	if hits < v.cfg.MinSubjectKeywordHits {
		return fmt.Errorf("content does not mention %s terminology: %d of %d required", subject, hits, v.cfg.MinSubjectKeywordHits)
	}
	return nil
}
