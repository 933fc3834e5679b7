package assessment

import (
	"fmt"

	"github.com/fleveque/trademark-service/internal/llm"
	"github.com/fleveque/trademark-service/internal/model"
)

func categoryEnum() []string {
	out := make([]string, len(model.AllCategories))
	for i, c := range model.AllCategories {
		out[i] = string(c)
	}
	return out
}

func categoryProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"enum":        categoryEnum(),
		"description": description,
	}
}

var conceptualSchema = llm.Schema{
	Name:        "submit_conceptual_similarity",
	Description: "Submit the conceptual similarity score of the two marks.",
	Properties: map[string]interface{}{
		"score": map[string]interface{}{
			"type":        "number",
			"minimum":     0,
			"maximum":     1,
			"description": "Conceptual similarity from 0.0 (none) to 1.0 (identical).",
		},
	},
	Required: []string{"score"},
}

var markSimilaritySchema = llm.Schema{
	Name:        "submit_mark_similarity",
	Description: "Submit the categorical similarity assessment of the two marks.",
	Properties: map[string]interface{}{
		"visual":     categoryProperty("Degree of visual similarity."),
		"aural":      categoryProperty("Degree of aural similarity."),
		"conceptual": categoryProperty("Degree of conceptual similarity."),
		"overall":    categoryProperty("Overall similarity of the marks."),
		"reasoning": map[string]interface{}{
			"type":        "string",
			"description": "Concise legal reasoning for the assessment.",
		},
	},
	Required: []string{"visual", "aural", "conceptual", "overall", "reasoning"},
}

var goodServiceSchema = llm.Schema{
	Name:        "submit_goods_services_likelihood",
	Description: "Submit the relationship and likelihood-of-confusion verdict for the goods/services pair.",
	Properties: map[string]interface{}{
		"are_competitive": map[string]interface{}{
			"type":        "boolean",
			"description": "Whether the goods/services are in competition.",
		},
		"are_complementary": map[string]interface{}{
			"type":        "boolean",
			"description": "Whether the goods/services are complementary.",
		},
		"similarity_score": map[string]interface{}{
			"type":        "number",
			"minimum":     0,
			"maximum":     1,
			"description": "Similarity of the goods/services from 0.0 to 1.0.",
		},
		"likelihood_of_confusion": map[string]interface{}{
			"type":        "boolean",
			"description": "Whether there is a likelihood of confusion for this pair.",
		},
		"confusion_type": map[string]interface{}{
			"type":        "string",
			"enum":        []string{string(model.ConfusionDirect), string(model.ConfusionIndirect)},
			"description": "Type of confusion, only when likelihood_of_confusion is true.",
		},
		"reasoning": map[string]interface{}{
			"type":        "string",
			"description": "Concise legal reasoning for the verdict.",
		},
	},
	Required: []string{"are_competitive", "are_complementary", "similarity_score", "likelihood_of_confusion", "reasoning"},
}

// conceptualOutput is the model's answer to the conceptual prompt.
type conceptualOutput struct {
	Score float64 `json:"score"`
}

func (o *conceptualOutput) Validate() error {
	return checkUnitRange("score", o.Score)
}

// markSimilarityOutput is the model's holistic mark assessment.
type markSimilarityOutput struct {
	Visual     string `json:"visual"`
	Aural      string `json:"aural"`
	Conceptual string `json:"conceptual"`
	Overall    string `json:"overall"`
	Reasoning  string `json:"reasoning"`
}

func (o *markSimilarityOutput) Validate() error {
	_, err := o.toAssessment()
	return err
}

func (o *markSimilarityOutput) toAssessment() (*model.MarkSimilarityAssessment, error) {
	out := &model.MarkSimilarityAssessment{Reasoning: o.Reasoning}
	fields := []struct {
		name string
		raw  string
		dst  *model.SimilarityCategory
	}{
		{"visual", o.Visual, &out.Visual},
		{"aural", o.Aural, &out.Aural},
		{"conceptual", o.Conceptual, &out.Conceptual},
		{"overall", o.Overall, &out.Overall},
	}
	for _, f := range fields {
		c, err := model.ParseCategory(f.raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = c
	}
	return out, nil
}

// goodServiceOutput is the model's verdict for one goods/services pair.
type goodServiceOutput struct {
	AreCompetitive        bool    `json:"are_competitive"`
	AreComplementary      bool    `json:"are_complementary"`
	SimilarityScore       float64 `json:"similarity_score"`
	LikelihoodOfConfusion bool    `json:"likelihood_of_confusion"`
	ConfusionType         *string `json:"confusion_type"`
	Reasoning             string  `json:"reasoning"`
}

func (o *goodServiceOutput) Validate() error {
	if err := checkUnitRange("similarity_score", o.SimilarityScore); err != nil {
		return err
	}
	if !o.LikelihoodOfConfusion {
		return nil
	}
	if o.ConfusionType == nil {
		return fmt.Errorf("confusion_type is required when likelihood_of_confusion is true")
	}
	switch model.ConfusionType(*o.ConfusionType) {
	case model.ConfusionDirect, model.ConfusionIndirect:
		return nil
	default:
		return fmt.Errorf("invalid confusion_type %q", *o.ConfusionType)
	}
}

func (o *goodServiceOutput) toAssessment(applicant, opponent model.GoodService) *model.GoodServiceLikelihoodAssessment {
	out := &model.GoodServiceLikelihoodAssessment{
		ApplicantGood:         applicant,
		OpponentGood:          opponent,
		AreCompetitive:        o.AreCompetitive,
		AreComplementary:      o.AreComplementary,
		SimilarityScore:       o.SimilarityScore,
		LikelihoodOfConfusion: o.LikelihoodOfConfusion,
		Reasoning:             o.Reasoning,
	}
	// A confusion type without a likelihood of confusion is meaningless and dropped.
	if o.LikelihoodOfConfusion && o.ConfusionType != nil {
		ct := model.ConfusionType(*o.ConfusionType)
		out.ConfusionType = &ct
	}
	return out
}

func checkUnitRange(name string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%s %v is outside [0, 1]", name, v)
	}
	return nil
}
