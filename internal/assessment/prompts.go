package assessment

import (
	"fmt"

	"github.com/fleveque/trademark-service/internal/model"
)

const conceptualPromptTemplate = `You are an expert in trademark law assessing the conceptual similarity of two wordmarks.

Mark 1: "%s"
Mark 2: "%s"

Conceptual similarity concerns the meaning or idea a mark conveys to the relevant public:
- Marks sharing the same meaning (including translations and synonyms) are conceptually identical or highly similar.
- Marks evoking related ideas are moderately or lowly similar.
- Marks with unrelated meanings are dissimilar. A mark with no meaning cannot be conceptually similar to anything.

Return a single score between 0.0 (no conceptual similarity) and 1.0 (conceptually identical).`

const markSimilarityPromptTemplate = `You are an expert in trademark opposition proceedings. Assess the similarity of the following wordmarks.

Applicant's mark: "%s"
Opponent's mark: "%s"

Pre-calculated signals:
- Visual similarity score (normalized edit distance): %.2f
- Aural similarity score (phonetic encoding): %.2f

Using the pre-calculated scores as guidance, give your categorical assessment of the visual, aural and
conceptual similarity and of the overall similarity of the marks, taking account of the distinctive and
dominant elements and the overall impression on the average consumer.

Each category must be one of: dissimilar, low, moderate, high, identical.
Explain your reasoning concisely, as a trademark examiner would.`

const goodServicePromptTemplate = `You are an expert in trademark opposition proceedings. Assess whether the use of the applicant's mark
on the applicant's goods/services is likely to cause confusion with the opponent's mark on the opponent's goods/services.

Applicant's goods/services: "%s" (Nice class %d)
Opponent's goods/services: "%s" (Nice class %d)

The marks have already been compared:
- Visual similarity: %s
- Aural similarity: %s
- Conceptual similarity: %s
- Overall similarity: %s

Consider the nature and purpose of the goods/services, their method of use, whether they are in competition
or complementary, their distribution channels and the relevant public. Apply the interdependence principle:
a lower degree of similarity between the goods/services may be offset by a higher degree of similarity
between the marks, and vice versa.

Return:
- are_competitive: whether the goods/services are in competition with each other
- are_complementary: whether the goods/services are complementary
- similarity_score: the degree of similarity of the goods/services, from 0.0 to 1.0
- likelihood_of_confusion: your overall verdict for this pair
- confusion_type: "direct" or "indirect" when there is a likelihood of confusion, omitted otherwise
- reasoning: a concise explanation`

func conceptualPrompt(mark1, mark2 string) string {
	return fmt.Sprintf(conceptualPromptTemplate, mark1, mark2)
}

func markSimilarityPrompt(applicant, opponent model.Mark, visual, aural float64) string {
	return fmt.Sprintf(markSimilarityPromptTemplate, applicant.Wordmark, opponent.Wordmark, visual, aural)
}

func goodServicePrompt(applicant, opponent model.GoodService, marks *model.MarkSimilarityAssessment) string {
	return fmt.Sprintf(goodServicePromptTemplate,
		applicant.Term, applicant.NiceClass,
		opponent.Term, opponent.NiceClass,
		marks.Visual, marks.Aural, marks.Conceptual, marks.Overall,
	)
}
