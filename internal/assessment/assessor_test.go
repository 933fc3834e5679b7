package assessment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/fleveque/trademark-service/internal/lexicon"
	"github.com/fleveque/trademark-service/internal/llm"
	"github.com/fleveque/trademark-service/internal/llm/llmtest"
	"github.com/fleveque/trademark-service/internal/metrics"
	"github.com/fleveque/trademark-service/internal/model"
	"github.com/fleveque/trademark-service/internal/similarity"
)

func newTestAssessor(gen llm.Generator, policy model.FailurePolicy) *Assessor {
	client := llm.NewStructuredClient(gen, 0, nil, zap.NewNop())
	return NewAssessor(client, lexicon.Default(), policy, nil, zap.NewNop())
}

func TestCompareMarks_CoinedSkipsModel(t *testing.T) {
	gen := llmtest.NewGenerator(llmtest.JSON(`{"score": 1.0}`))
	a := newTestAssessor(gen, model.Strict)

	got, err := a.CompareMarks(context.Background(), model.Mark{Wordmark: "xqzpvy"}, model.Mark{Wordmark: "royal"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.Calls() != 0 {
		t.Errorf("expected no model calls for a coined mark, got %d", gen.Calls())
	}
	if got.Conceptual != model.CategoryDissimilar {
		t.Errorf("Conceptual = %q, want dissimilar", got.Conceptual)
	}
	if got.Scores.Conceptual != 0.0 {
		t.Errorf("conceptual score = %v, want 0.0", got.Scores.Conceptual)
	}
}

func TestCompareMarks_Aggregation(t *testing.T) {
	gen := llmtest.NewGenerator(llmtest.JSON(`{"score": 0.8}`))
	a := newTestAssessor(gen, model.Strict)

	applicant, opponent := model.Mark{Wordmark: "royal"}, model.Mark{Wordmark: "regal"}
	got, err := a.CompareMarks(context.Background(), applicant, opponent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.Calls() != 1 {
		t.Errorf("Calls() = %d, want 1", gen.Calls())
	}

	visual := similarity.Visual("royal", "regal")
	aural := similarity.Aural("royal", "regal")
	overall := 0.40*visual + 0.35*aural + 0.25*0.8

	if math.Abs(got.Scores.Overall-overall) > 1e-9 {
		t.Errorf("overall = %v, want %v", got.Scores.Overall, overall)
	}
	if got.Overall != model.CategoryFromScore(overall) {
		t.Errorf("Overall = %q, want %q", got.Overall, model.CategoryFromScore(overall))
	}
	if got.Conceptual != model.CategoryHigh {
		t.Errorf("Conceptual = %q, want high", got.Conceptual)
	}

	wantReasoning := fmt.Sprintf("Calculated from visual (%.2f), aural (%.2f), and conceptual (0.80) similarities", visual, aural)
	if got.Reasoning != wantReasoning {
		t.Errorf("Reasoning = %q, want %q", got.Reasoning, wantReasoning)
	}

	req := gen.Requests()[0]
	if req.Sampling.Temperature != 0.1 || req.Sampling.MaxTokens != 4000 {
		t.Errorf("unexpected conceptual sampling %+v", req.Sampling)
	}
	if !strings.HasPrefix(req.Context, "[Conceptual Score ") {
		t.Errorf("unexpected request context %q", req.Context)
	}
}

func TestConceptualScore_LenientFallsBackToNeutral(t *testing.T) {
	gen := llmtest.NewGenerator(llmtest.Fail(llm.NewServiceError("fake", 500, errors.New("internal"))))
	m := metrics.New()
	client := llm.NewStructuredClient(gen, 0, nil, zap.NewNop())
	a := NewAssessor(client, lexicon.Default(), model.Lenient, m, zap.NewNop())

	got, err := a.BuildMarkSimilarityAssessment(context.Background(),
		model.Mark{Wordmark: "royal"}, model.Mark{Wordmark: "regal"}, 0.6, 0.6)
	if err != nil {
		t.Fatalf("lenient policy should not propagate, got %v", err)
	}
	if got.Scores.Conceptual != NeutralConceptualScore {
		t.Errorf("conceptual score = %v, want %v", got.Scores.Conceptual, NeutralConceptualScore)
	}
	if got.Conceptual != model.CategoryLow {
		t.Errorf("Conceptual = %q, want low", got.Conceptual)
	}
	if !strings.Contains(got.Reasoning, "conceptual score unavailable") {
		t.Errorf("expected fallback note in reasoning, got %q", got.Reasoning)
	}
}

func TestConceptualScore_StrictPropagates(t *testing.T) {
	permanent := llm.NewServiceError("fake", 400, errors.New("bad request"))
	gen := llmtest.NewGenerator(llmtest.Fail(permanent))
	a := newTestAssessor(gen, model.Strict)

	_, err := a.CompareMarks(context.Background(), model.Mark{Wordmark: "royal"}, model.Mark{Wordmark: "regal"})
	if err == nil {
		t.Fatal("expected error under strict policy")
	}
	if !llm.IsPermanent(err) {
		t.Errorf("expected the service error to be wrapped, got %v", err)
	}
}

func TestConceptualScore_OutOfRangeIsValidationError(t *testing.T) {
	gen := llmtest.NewGenerator(llmtest.JSON(`{"score": 1.5}`))
	a := newTestAssessor(gen, model.Strict)

	_, err := a.ConceptualScore(context.Background(), "cool", "kool")
	var valErr *llm.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestReasonMarks(t *testing.T) {
	gen := llmtest.NewGenerator(llmtest.JSON(`{
		"visual": "High",
		"aural": "identical",
		"conceptual": "moderate",
		"overall": "high",
		"reasoning": "The marks differ by one letter."
	}`))
	a := newTestAssessor(gen, model.Strict)

	got, err := a.ReasonMarks(context.Background(), model.Mark{Wordmark: "cool"}, model.Mark{Wordmark: "kool"}, 0.75, 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Visual != model.CategoryHigh || got.Aural != model.CategoryIdentical || got.Overall != model.CategoryHigh {
		t.Errorf("unexpected categories: %+v", got)
	}
	if got.Reasoning != "The marks differ by one letter." {
		t.Errorf("Reasoning = %q", got.Reasoning)
	}

	req := gen.Requests()[0]
	if !strings.Contains(req.Prompt, `"cool"`) || !strings.Contains(req.Prompt, "0.75") {
		t.Errorf("prompt is missing the marks or scores: %s", req.Prompt)
	}
	if req.Sampling != llm.DefaultSampling() {
		t.Errorf("Sampling = %+v, want defaults", req.Sampling)
	}
}

func TestReasonMarks_InvalidCategory(t *testing.T) {
	gen := llmtest.NewGenerator(llmtest.JSON(`{
		"visual": "very high", "aural": "high", "conceptual": "low", "overall": "high", "reasoning": "x"
	}`))
	a := newTestAssessor(gen, model.Strict)

	_, err := a.ReasonMarks(context.Background(), model.Mark{Wordmark: "a"}, model.Mark{Wordmark: "b"}, 0, 0)
	var valErr *llm.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if gen.Calls() != 1 {
		t.Errorf("Calls() = %d, want 1", gen.Calls())
	}
}

func markContext() *model.MarkSimilarityAssessment {
	return &model.MarkSimilarityAssessment{
		Visual:     model.CategoryHigh,
		Aural:      model.CategoryIdentical,
		Conceptual: model.CategoryDissimilar,
		Overall:    model.CategoryHigh,
	}
}

func TestBuildGoodServiceLikelihoodAssessment(t *testing.T) {
	gen := llmtest.NewGenerator(llmtest.JSON(`{
		"are_competitive": true,
		"are_complementary": false,
		"similarity_score": 0.9,
		"likelihood_of_confusion": true,
		"confusion_type": "direct",
		"reasoning": "Same goods."
	}`))
	a := newTestAssessor(gen, model.Strict)

	applicant := model.GoodService{Term: "coffee", NiceClass: 30}
	opponent := model.GoodService{Term: "tea", NiceClass: 30}

	got, err := a.BuildGoodServiceLikelihoodAssessment(context.Background(), applicant, opponent, markContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ApplicantGood != applicant || got.OpponentGood != opponent {
		t.Errorf("goods not carried through: %+v", got)
	}
	if !got.LikelihoodOfConfusion || got.ConfusionType == nil || *got.ConfusionType != model.ConfusionDirect {
		t.Errorf("unexpected verdict: %+v", got)
	}

	prompt := gen.Requests()[0].Prompt
	for _, want := range []string{"coffee", "tea", "Nice class 30", "Aural similarity: identical"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildGoodServiceLikelihoodAssessment_DropsStrayConfusionType(t *testing.T) {
	gen := llmtest.NewGenerator(llmtest.JSON(`{
		"are_competitive": false, "are_complementary": false, "similarity_score": 0.1,
		"likelihood_of_confusion": false, "confusion_type": "indirect", "reasoning": "Unrelated."
	}`))
	a := newTestAssessor(gen, model.Strict)

	got, err := a.BuildGoodServiceLikelihoodAssessment(context.Background(),
		model.GoodService{Term: "cars", NiceClass: 12}, model.GoodService{Term: "cheese", NiceClass: 29}, markContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ConfusionType != nil {
		t.Errorf("expected no confusion type without likelihood of confusion, got %v", *got.ConfusionType)
	}
}

func TestBuildGoodServiceLikelihoodAssessment_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing confusion type", `{"are_competitive": true, "are_complementary": false, "similarity_score": 0.9, "likelihood_of_confusion": true, "reasoning": "x"}`},
		{"unknown confusion type", `{"are_competitive": true, "are_complementary": false, "similarity_score": 0.9, "likelihood_of_confusion": true, "confusion_type": "partial", "reasoning": "x"}`},
		{"score out of range", `{"are_competitive": true, "are_complementary": false, "similarity_score": 2, "likelihood_of_confusion": false, "reasoning": "x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := llmtest.NewGenerator(llmtest.JSON(tt.body))
			a := newTestAssessor(gen, model.Strict)

			_, err := a.BuildGoodServiceLikelihoodAssessment(context.Background(),
				model.GoodService{Term: "a", NiceClass: 1}, model.GoodService{Term: "b", NiceClass: 1}, markContext())
			var valErr *llm.ValidationError
			if !errors.As(err, &valErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}
