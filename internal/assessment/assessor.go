// Package assessment builds mark similarity and goods/services likelihood
// assessments from the deterministic similarity signals, the coined-term gate
// and structured model calls.
package assessment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fleveque/trademark-service/internal/lexicon"
	"github.com/fleveque/trademark-service/internal/llm"
	"github.com/fleveque/trademark-service/internal/metrics"
	"github.com/fleveque/trademark-service/internal/model"
	"github.com/fleveque/trademark-service/internal/similarity"
)

// Weights of the component scores in the overall mark similarity.
const (
	VisualWeight     = 0.40
	AuralWeight      = 0.35
	ConceptualWeight = 0.25
)

// NeutralConceptualScore replaces a failed conceptual score under the lenient policy.
const NeutralConceptualScore = 0.5

const (
	conceptualTemperature = 0.1
	conceptualMaxTokens   = 4000
)

// Assessor composes prompts and schemas for each assessment kind and
// normalizes the model's answers. It holds no per-call state.
type Assessor struct {
	client  *llm.StructuredClient
	lexicon *lexicon.Lexicon
	policy  model.FailurePolicy
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewAssessor creates an Assessor. m may be nil.
func NewAssessor(
	client *llm.StructuredClient,
	lex *lexicon.Lexicon,
	policy model.FailurePolicy,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Assessor {
	return &Assessor{
		client:  client,
		lexicon: lex,
		policy:  policy,
		metrics: m,
		logger:  logger,
	}
}

// Policy returns the failure policy the Assessor was built with.
func (a *Assessor) Policy() model.FailurePolicy { return a.policy }

// IsCoined exposes the coined-term gate.
func (a *Assessor) IsCoined(mark string) bool { return a.lexicon.IsCoined(mark) }

// CompareMarks computes the visual and aural scores of two marks and builds
// the full assessment from them.
func (a *Assessor) CompareMarks(ctx context.Context, applicant, opponent model.Mark) (*model.MarkSimilarityAssessment, error) {
	visual := similarity.Visual(applicant.Wordmark, opponent.Wordmark)
	aural := similarity.Aural(applicant.Wordmark, opponent.Wordmark)
	return a.BuildMarkSimilarityAssessment(ctx, applicant, opponent, visual, aural)
}

// BuildMarkSimilarityAssessment adds the conceptual score to the given visual
// and aural scores, weights them into an overall score and maps all four to
// categories.
func (a *Assessor) BuildMarkSimilarityAssessment(
	ctx context.Context,
	applicant, opponent model.Mark,
	visual, aural float64,
) (*model.MarkSimilarityAssessment, error) {
	conceptual, fellBack, err := a.conceptualScore(ctx, applicant.Wordmark, opponent.Wordmark)
	if err != nil {
		return nil, err
	}

	overall := VisualWeight*visual + AuralWeight*aural + ConceptualWeight*conceptual

	reasoning := fmt.Sprintf(
		"Calculated from visual (%.2f), aural (%.2f), and conceptual (%.2f) similarities",
		visual, aural, conceptual,
	)
	if fellBack {
		reasoning += fmt.Sprintf("; conceptual score unavailable, neutral %.2f used", NeutralConceptualScore)
	}

	return &model.MarkSimilarityAssessment{
		Visual:     model.CategoryFromScore(visual),
		Aural:      model.CategoryFromScore(aural),
		Conceptual: model.CategoryFromScore(conceptual),
		Overall:    model.CategoryFromScore(overall),
		Reasoning:  reasoning,
		Scores: &model.MarkScores{
			Visual:     visual,
			Aural:      aural,
			Conceptual: conceptual,
			Overall:    overall,
		},
	}, nil
}

// ConceptualScore returns the conceptual similarity of two marks: 0.0 without
// a model call when either is coined, otherwise the model's score. Model
// failures follow the failure policy.
func (a *Assessor) ConceptualScore(ctx context.Context, mark1, mark2 string) (float64, error) {
	score, _, err := a.conceptualScore(ctx, mark1, mark2)
	return score, err
}

func (a *Assessor) conceptualScore(ctx context.Context, mark1, mark2 string) (score float64, fellBack bool, err error) {
	if a.lexicon.IsCoined(mark1) || a.lexicon.IsCoined(mark2) {
		a.metrics.CoinedShortCircuit()
		a.logger.Debug("coined term, skipping conceptual comparison",
			zap.String("mark1", mark1), zap.String("mark2", mark2))
		return 0.0, false, nil
	}

	req := llm.Request{
		Prompt: conceptualPrompt(mark1, mark2),
		Schema: conceptualSchema,
		Sampling: llm.Sampling{
			Temperature: conceptualTemperature,
			TopP:        llm.DefaultTopP,
			TopK:        llm.DefaultTopK,
			MaxTokens:   conceptualMaxTokens,
		},
		Context: llm.RequestLabel("Conceptual Score"),
	}

	out, err := llm.GenerateStructured[conceptualOutput](ctx, a.client, req)
	if err == nil {
		a.logger.Info("conceptual similarity score",
			zap.String("request_context", req.Context),
			zap.String("mark1", mark1), zap.String("mark2", mark2),
			zap.Float64("score", out.Score))
		return out.Score, false, nil
	}

	if a.policy == model.Strict || ctx.Err() != nil {
		return 0, false, fmt.Errorf("conceptual similarity of %q and %q: %w", mark1, mark2, err)
	}

	a.metrics.ConceptualFallback()
	a.logger.Warn("conceptual similarity unavailable, using neutral score",
		zap.String("request_context", req.Context),
		zap.String("mark1", mark1), zap.String("mark2", mark2),
		zap.Float64("score", NeutralConceptualScore),
		zap.Error(err))
	return NeutralConceptualScore, true, nil
}

// ReasonMarks asks the model for a holistic categorical assessment of two
// marks, guided by the pre-computed visual and aural scores.
func (a *Assessor) ReasonMarks(
	ctx context.Context,
	applicant, opponent model.Mark,
	visual, aural float64,
) (*model.MarkSimilarityAssessment, error) {
	req := llm.Request{
		Prompt:   markSimilarityPrompt(applicant, opponent, visual, aural),
		Schema:   markSimilaritySchema,
		Sampling: llm.DefaultSampling(),
		Context:  llm.RequestLabel("Mark Assessment"),
	}

	a.logger.Info("starting mark similarity assessment",
		zap.String("request_context", req.Context),
		zap.String("applicant", applicant.Wordmark),
		zap.String("opponent", opponent.Wordmark))

	out, err := llm.GenerateStructured[markSimilarityOutput](ctx, a.client, req)
	if err != nil {
		return nil, fmt.Errorf("mark similarity assessment: %w", err)
	}

	// Validate already ran in GenerateStructured, so the conversion cannot fail here.
	assessment, err := out.toAssessment()
	if err != nil {
		return nil, &llm.ValidationError{Schema: markSimilaritySchema.Name, Err: err}
	}
	assessment.Scores = &model.MarkScores{Visual: visual, Aural: aural}

	a.logger.Info("mark similarity assessment complete",
		zap.String("request_context", req.Context),
		zap.String("overall", string(assessment.Overall)))
	return assessment, nil
}

// BuildGoodServiceLikelihoodAssessment asks the model for the relationship
// and likelihood-of-confusion verdict of one goods/services pair, in the
// context of the mark assessment. Every pair costs one model call.
func (a *Assessor) BuildGoodServiceLikelihoodAssessment(
	ctx context.Context,
	applicantGood, opponentGood model.GoodService,
	marks *model.MarkSimilarityAssessment,
) (*model.GoodServiceLikelihoodAssessment, error) {
	req := llm.Request{
		Prompt:   goodServicePrompt(applicantGood, opponentGood, marks),
		Schema:   goodServiceSchema,
		Sampling: llm.DefaultSampling(),
		Context:  llm.RequestLabel("G/S Assessment"),
	}

	a.logger.Info("starting G/S likelihood assessment",
		zap.String("request_context", req.Context),
		zap.String("applicant_term", applicantGood.Term),
		zap.String("opponent_term", opponentGood.Term))

	out, err := llm.GenerateStructured[goodServiceOutput](ctx, a.client, req)
	if err != nil {
		return nil, fmt.Errorf("G/S assessment %q vs %q: %w", applicantGood.Term, opponentGood.Term, err)
	}

	assessment := out.toAssessment(applicantGood, opponentGood)
	a.logger.Info("G/S likelihood assessment complete",
		zap.String("request_context", req.Context),
		zap.Bool("likelihood_of_confusion", assessment.LikelihoodOfConfusion))
	return assessment, nil
}
