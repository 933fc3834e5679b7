package model

// CaseInput is a full opposition case: both marks and both goods/services lists.
type CaseInput struct {
	Applicant      Mark          `json:"applicant" yaml:"applicant" binding:"required"`
	Opponent       Mark          `json:"opponent" yaml:"opponent" binding:"required"`
	ApplicantGoods []GoodService `json:"applicant_goods" yaml:"applicant_goods" binding:"required,min=1,dive"`
	OpponentGoods  []GoodService `json:"opponent_goods" yaml:"opponent_goods" binding:"required,min=1,dive"`
}

// CasePrediction is the outcome of a case: the mark comparison and the
// goods/services verdicts computed against it.
type CasePrediction struct {
	MarkSimilarity *MarkSimilarityAssessment          `json:"mark_similarity"`
	GoodsServices  []*GoodServiceLikelihoodAssessment `json:"goods_services"`
	// AnyLikelihoodOfConfusion is true when at least one assessed pair shows
	// a likelihood of confusion.
	AnyLikelihoodOfConfusion bool `json:"any_likelihood_of_confusion"`
	Total                    int  `json:"total"`
	Succeeded                int  `json:"succeeded"`
	Failed                   int  `json:"failed"`
}
