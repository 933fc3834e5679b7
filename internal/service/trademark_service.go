// Package service exposes the trademark comparison operations to the HTTP
// layer and the CLI. TrademarkService is a thin facade: the scoring lives in
// the assessment package and the fan-out in the batch package.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fleveque/trademark-service/internal/assessment"
	"github.com/fleveque/trademark-service/internal/batch"
	"github.com/fleveque/trademark-service/internal/model"
	"github.com/fleveque/trademark-service/internal/similarity"
)

// ErrInvalidInput marks caller mistakes (blank marks, empty goods lists).
var ErrInvalidInput = errors.New("invalid input")

// GoodsServicesResult is the response of CompareGoodsServices. Results only
// holds successful assessments; failed pairs are counted in Failed.
type GoodsServicesResult struct {
	Results   []*model.GoodServiceLikelihoodAssessment `json:"results"`
	Total     int                                      `json:"total"`
	Succeeded int                                      `json:"succeeded"`
	Failed    int                                      `json:"failed"`
}

// TrademarkService is the main entry point for trademark comparisons.
type TrademarkService struct {
	assessor  *assessment.Assessor
	processor *batch.Processor
	logger    *zap.Logger
}

// NewTrademarkService creates a service over an assessor and a batch processor
// built with the same failure policy.
func NewTrademarkService(assessor *assessment.Assessor, processor *batch.Processor, logger *zap.Logger) *TrademarkService {
	return &TrademarkService{
		assessor:  assessor,
		processor: processor,
		logger:    logger,
	}
}

// IsCoined reports whether the gate treats mark as an invented term.
func (s *TrademarkService) IsCoined(mark string) bool {
	return s.assessor.IsCoined(mark)
}

// CompareMarks scores two wordmarks: deterministic visual and aural
// similarity plus a conceptual score, weighted into an overall category.
func (s *TrademarkService) CompareMarks(ctx context.Context, applicant, opponent model.Mark) (*model.MarkSimilarityAssessment, error) {
	if err := validateMarks(applicant, opponent); err != nil {
		return nil, err
	}
	return s.assessor.CompareMarks(ctx, applicant, opponent)
}

// AssessMarks asks the model for a holistic categorical assessment, guided by
// the deterministic visual and aural scores.
func (s *TrademarkService) AssessMarks(ctx context.Context, applicant, opponent model.Mark) (*model.MarkSimilarityAssessment, error) {
	if err := validateMarks(applicant, opponent); err != nil {
		return nil, err
	}
	visual := similarity.Visual(applicant.Wordmark, opponent.Wordmark)
	aural := similarity.Aural(applicant.Wordmark, opponent.Wordmark)
	return s.assessor.ReasonMarks(ctx, applicant, opponent, visual, aural)
}

// CompareGoodsServices assesses every applicant x opponent goods pair against
// an existing mark assessment.
func (s *TrademarkService) CompareGoodsServices(
	ctx context.Context,
	applicantGoods, opponentGoods []model.GoodService,
	marks *model.MarkSimilarityAssessment,
) (*GoodsServicesResult, error) {
	if len(applicantGoods) == 0 || len(opponentGoods) == 0 {
		return nil, fmt.Errorf("%w: both goods/services lists must be non-empty", ErrInvalidInput)
	}
	if marks == nil {
		return nil, fmt.Errorf("%w: mark similarity is required", ErrInvalidInput)
	}
	if err := marks.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	res, err := s.processor.Process(ctx, applicantGoods, opponentGoods, marks)
	if err != nil {
		return nil, err
	}
	return &GoodsServicesResult{
		Results:   res.Assessments(),
		Total:     res.Total,
		Succeeded: res.Succeeded,
		Failed:    res.Failed,
	}, nil
}

// PredictCase runs CompareMarks and then CompareGoodsServices with its result.
func (s *TrademarkService) PredictCase(ctx context.Context, in model.CaseInput) (*model.CasePrediction, error) {
	marks, err := s.CompareMarks(ctx, in.Applicant, in.Opponent)
	if err != nil {
		return nil, fmt.Errorf("comparing marks: %w", err)
	}

	gs, err := s.CompareGoodsServices(ctx, in.ApplicantGoods, in.OpponentGoods, marks)
	if err != nil {
		return nil, fmt.Errorf("comparing goods/services: %w", err)
	}

	prediction := &model.CasePrediction{
		MarkSimilarity: marks,
		GoodsServices:  gs.Results,
		Total:          gs.Total,
		Succeeded:      gs.Succeeded,
		Failed:         gs.Failed,
	}
	for _, a := range gs.Results {
		if a.LikelihoodOfConfusion {
			prediction.AnyLikelihoodOfConfusion = true
			break
		}
	}

	s.logger.Info("case predicted",
		zap.String("applicant", in.Applicant.Wordmark),
		zap.String("opponent", in.Opponent.Wordmark),
		zap.String("overall", string(marks.Overall)),
		zap.Bool("any_likelihood_of_confusion", prediction.AnyLikelihoodOfConfusion),
	)
	return prediction, nil
}

func validateMarks(marks ...model.Mark) error {
	for _, m := range marks {
		if strings.TrimSpace(m.Wordmark) == "" {
			return fmt.Errorf("%w: wordmark must not be blank", ErrInvalidInput)
		}
	}
	return nil
}
