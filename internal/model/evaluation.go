package model

import "time"

const (
	CriterionClarity              = "clarity"
	CriterionDomainRelevance      = "aigp_relevance"
	CriterionDifficulty           = "difficulty_level"
	CriterionOptionQuality        = "option_quality"
	CriterionEducationalValue     = "educational_value"
	CriterionTechnicalAccuracy    = "technical_accuracy"
	CriterionRealWorldApplication = "real_world_application"

	NeutralScore = 75
)

// Criteria lists the rubric in prompt order.
var Criteria = []string{
	CriterionClarity,
	CriterionDomainRelevance,
	CriterionDifficulty,
	CriterionOptionQuality,
	CriterionEducationalValue,
	CriterionTechnicalAccuracy,
	CriterionRealWorldApplication,
}

// QualityEvaluation is a model-produced rubric score for one question. Sub-scores
// are not reconciled with OverallScore.
type QualityEvaluation struct {
	OverallScore           int            `json:"overall_score"`
	CriteriaScores         map[string]int `json:"criteria_scores"`
	Strengths              []string       `json:"strengths"`
	Weaknesses             []string       `json:"weaknesses"`
	ImprovementSuggestions []string       `json:"improvement_suggestions"`
	Alignment              string         `json:"aigp_alignment"`
	RecommendedAction      string         `json:"recommended_action"`
	ConfidenceLevel        int            `json:"confidence_level"`
	Degraded               bool           `json:"degraded,omitempty"`
	EvaluatedAt            time.Time      `json:"evaluated_at"`
}

// NeutralEvaluation is substituted when the evaluator's output cannot be parsed.
func NeutralEvaluation() *QualityEvaluation {
	scores := make(map[string]int, len(Criteria))
	for _, c := range Criteria {
		scores[c] = NeutralScore
	}
	return &QualityEvaluation{
		OverallScore:           NeutralScore,
		CriteriaScores:         scores,
		Strengths:              []string{"Question generated successfully"},
		Weaknesses:             []string{"AI evaluation parsing failed"},
		ImprovementSuggestions: []string{"Manual review recommended"},
		Alignment:              "Requires manual verification",
		RecommendedAction:      "Manual review needed",
		ConfidenceLevel:        50,
		Degraded:               true,
	}
}

// HumanFeedback is an optional reviewer rating (1-5) and comment passed to the evaluator.
type HumanFeedback struct {
	Rating   int
	Comments string
}
