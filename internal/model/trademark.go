// Package model defines the core data types for the trademark service.
// Everything here is a value object: built once per comparison, never mutated
// afterwards, and safe to share between goroutines.
package model

import (
	"fmt"
	"strings"
)

// Mark is a wordmark under comparison.
type Mark struct {
	Wordmark string `json:"wordmark" yaml:"wordmark" binding:"required"`
}

// GoodService is a single goods/services line item with its Nice class.
type GoodService struct {
	Term      string `json:"term" yaml:"term" binding:"required"`
	NiceClass int    `json:"nice_class" yaml:"nice_class" binding:"required,min=1,max=45"`
}

// SimilarityCategory is the ordered categorical projection of a similarity score.
// Go doesn't have enums, so we use typed string constants plus a rank table.
type SimilarityCategory string

const (
	CategoryDissimilar SimilarityCategory = "dissimilar"
	CategoryLow        SimilarityCategory = "low"
	CategoryModerate   SimilarityCategory = "moderate"
	CategoryHigh       SimilarityCategory = "high"
	CategoryIdentical  SimilarityCategory = "identical"
)

// AllCategories is the ordered list of categories, lowest first.
var AllCategories = []SimilarityCategory{
	CategoryDissimilar,
	CategoryLow,
	CategoryModerate,
	CategoryHigh,
	CategoryIdentical,
}

// CategoryFromScore maps a score onto a category. The comparators are strict:
// exactly 0.9 is high, exactly 0.3 is dissimilar.
func CategoryFromScore(score float64) SimilarityCategory {
	switch {
	case score > 0.9:
		return CategoryIdentical
	case score > 0.7:
		return CategoryHigh
	case score > 0.5:
		return CategoryModerate
	case score > 0.3:
		return CategoryLow
	default:
		return CategoryDissimilar
	}
}

// Rank returns the position of the category in the total order, or -1 if the
// category is not one of the known values.
func (c SimilarityCategory) Rank() int {
	for i, known := range AllCategories {
		if c == known {
			return i
		}
	}
	return -1
}

// Valid reports whether c is one of the five known categories.
func (c SimilarityCategory) Valid() bool {
	return c.Rank() >= 0
}

// ParseCategory normalizes and validates a category string coming from a model
// or a client request.
func ParseCategory(s string) (SimilarityCategory, error) {
	c := SimilarityCategory(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("invalid similarity category %q", s)
	}
	return c, nil
}

// MarkScores carries the numeric scores behind a MarkSimilarityAssessment.
// Only the deterministic path fills it in.
type MarkScores struct {
	Visual     float64 `json:"visual"`
	Aural      float64 `json:"aural"`
	Conceptual float64 `json:"conceptual"`
	Overall    float64 `json:"overall"`
}

// MarkSimilarityAssessment is the result of comparing two wordmarks.
type MarkSimilarityAssessment struct {
	Visual     SimilarityCategory `json:"visual" yaml:"visual" binding:"required"`
	Aural      SimilarityCategory `json:"aural" yaml:"aural" binding:"required"`
	Conceptual SimilarityCategory `json:"conceptual" yaml:"conceptual" binding:"required"`
	Overall    SimilarityCategory `json:"overall" yaml:"overall" binding:"required"`
	Reasoning  string             `json:"reasoning" yaml:"reasoning"`
	Scores     *MarkScores        `json:"scores,omitempty" yaml:"-"`
}

// Validate checks that all four categories are known values. Used for
// assessments supplied by callers and by the model.
func (a *MarkSimilarityAssessment) Validate() error {
	fields := map[string]SimilarityCategory{
		"visual":     a.Visual,
		"aural":      a.Aural,
		"conceptual": a.Conceptual,
		"overall":    a.Overall,
	}
	for name, c := range fields {
		if !c.Valid() {
			return fmt.Errorf("%s: invalid similarity category %q", name, c)
		}
	}
	return nil
}

// ConfusionType distinguishes direct confusion (consumers mistake one mark
// for the other) from indirect confusion (they assume an economic link).
type ConfusionType string

const (
	ConfusionDirect   ConfusionType = "direct"
	ConfusionIndirect ConfusionType = "indirect"
)

// GoodServiceLikelihoodAssessment is the verdict for one applicant/opponent
// goods pair, computed in the context of one MarkSimilarityAssessment.
type GoodServiceLikelihoodAssessment struct {
	ApplicantGood         GoodService    `json:"applicant_good"`
	OpponentGood          GoodService    `json:"opponent_good"`
	AreCompetitive        bool           `json:"are_competitive"`
	AreComplementary      bool           `json:"are_complementary"`
	SimilarityScore       float64        `json:"similarity_score"`
	LikelihoodOfConfusion bool           `json:"likelihood_of_confusion"`
	ConfusionType         *ConfusionType `json:"confusion_type,omitempty"`
	Reasoning             string         `json:"reasoning"`
}
