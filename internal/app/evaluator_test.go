package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"examgen/internal/ai"
	"examgen/internal/model"
)

var evalClock = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleQuestion() *model.Question {
	return &model.Question{
		Question:             "Which body oversees high-risk AI systems?",
		Options:              []string{"National authority", "Vendor", "End user", "Nobody"},
		CorrectAnswer:        "National authority",
		Explanation:          "Supervision sits with a national authority.",
		DetailedExplanations: map[string]string{"Vendor": "Incorrect."},
	}
}

func newTestEvaluator(completer ai.Completer) *Evaluator {
	policy, _ := instantPolicy(ai.RateLimitPolicy())
	return NewEvaluator(completer,
		WithEvaluationRetry(policy),
		WithEvaluatorClock(func() time.Time { return evalClock }),
	)
}

func TestEvaluate_FullResponse(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{`{
		"overall_score": 88,
		"criteria_scores": {"clarity": 90, "aigp_relevance": 85, "difficulty_level": 80,
			"option_quality": 85, "educational_value": 90, "technical_accuracy": 95, "real_world_application": 75},
		"strengths": ["Clear"],
		"weaknesses": ["Easy"],
		"improvement_suggestions": ["Harder distractors"],
		"aigp_alignment": "High",
		"recommended_action": "Approve",
		"confidence_level": 92
	}`}}
	e := newTestEvaluator(completer)

	eval, err := e.Evaluate(context.Background(), sampleQuestion(), nil)

	require.NoError(t, err)
	assert.Equal(t, 88, eval.OverallScore)
	assert.Equal(t, 95, eval.CriteriaScores[model.CriterionTechnicalAccuracy])
	assert.Len(t, eval.CriteriaScores, 7)
	assert.Equal(t, []string{"Clear"}, eval.Strengths)
	assert.Equal(t, "High", eval.Alignment)
	assert.Equal(t, "Approve", eval.RecommendedAction)
	assert.Equal(t, 92, eval.ConfidenceLevel)
	assert.False(t, eval.Degraded)
	assert.Equal(t, evalClock, eval.EvaluatedAt)

	req := completer.requests[0]
	assert.Equal(t, evalSystemPrompt, req.System)
	assert.InDelta(t, 0.3, req.Temperature, 1e-6)
	assert.Contains(t, req.Prompt, "A) National authority\nB) Vendor\nC) End user\nD) Nobody")
	assert.Contains(t, req.Prompt, "Detailed Explanations:")
	assert.NotContains(t, req.Prompt, "Admin Rating")
}

func TestEvaluate_PartialResponseFilled(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{
		"Here you go: " + `{"criteria_scores": {"clarity": "140", "domain_relevance": 60, "difficulty": -5,
			"bogus": 10}, "strengths": "Concise", "confidence_level": "80%"}`,
	}}
	e := newTestEvaluator(completer)

	eval, err := e.Evaluate(context.Background(), sampleQuestion(), nil)

	require.NoError(t, err)
	assert.Equal(t, model.NeutralScore, eval.OverallScore)
	assert.Equal(t, 100, eval.CriteriaScores[model.CriterionClarity])
	assert.Equal(t, 60, eval.CriteriaScores[model.CriterionDomainRelevance])
	assert.Equal(t, 0, eval.CriteriaScores[model.CriterionDifficulty])
	assert.Equal(t, model.NeutralScore, eval.CriteriaScores[model.CriterionOptionQuality])
	assert.NotContains(t, eval.CriteriaScores, "bogus")
	assert.Len(t, eval.CriteriaScores, 7)
	assert.Equal(t, []string{"Concise"}, eval.Strengths)
	assert.Equal(t, []string{}, eval.Weaknesses)
	assert.Equal(t, 80, eval.ConfidenceLevel)
	assert.Equal(t, "Manual review needed", eval.RecommendedAction)
	assert.Equal(t, "Requires manual verification", eval.Alignment)
	assert.False(t, eval.Degraded)
}

func TestEvaluate_NullScoresFilled(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{
		`{"overall_score": null, "criteria_scores": {"clarity": null, "option_quality": 90}, "confidence_level": null}`,
	}}
	e := newTestEvaluator(completer)

	eval, err := e.Evaluate(context.Background(), sampleQuestion(), nil)

	require.NoError(t, err)
	assert.Equal(t, model.NeutralScore, eval.OverallScore)
	assert.Equal(t, model.NeutralScore, eval.CriteriaScores[model.CriterionClarity])
	assert.Equal(t, 90, eval.CriteriaScores[model.CriterionOptionQuality])
	assert.Equal(t, 50, eval.ConfidenceLevel)
}

func TestEvaluate_UnparseableIsNeutral(t *testing.T) {
	e := newTestEvaluator(&scriptedCompleter{responses: []string{"The question looks fine to me."}})

	eval, err := e.Evaluate(context.Background(), sampleQuestion(), nil)

	require.NoError(t, err)
	want := model.NeutralEvaluation()
	want.EvaluatedAt = evalClock
	assert.Equal(t, want, eval)
}

func TestEvaluate_FeedbackInPrompt(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{`{"overall_score": 70}`}}
	e := newTestEvaluator(completer)

	_, err := e.Evaluate(context.Background(), sampleQuestion(), &model.HumanFeedback{Rating: 2, Comments: "too vague"})

	require.NoError(t, err)
	assert.Contains(t, completer.requests[0].Prompt, "Admin Rating: 2/5 stars")
	assert.Contains(t, completer.requests[0].Prompt, "Admin Comments: too vague")
}

func TestEvaluate_InvalidInput(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{`{}`}}
	e := newTestEvaluator(completer)
	ctx := context.Background()

	_, err := e.Evaluate(ctx, sampleQuestion(), &model.HumanFeedback{Rating: 6})
	assert.ErrorIs(t, err, ErrInvalidInput)

	short := sampleQuestion()
	short.Options = short.Options[:3]
	_, err = e.Evaluate(ctx, short, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.Evaluate(ctx, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, completer.requests)
}

func TestEvaluate_ProviderFailure(t *testing.T) {
	e := newTestEvaluator(&scriptedCompleter{errs: []error{&ai.StatusError{Op: "llm", StatusCode: 401}}})

	_, err := e.Evaluate(context.Background(), sampleQuestion(), nil)

	assert.ErrorIs(t, err, ai.ErrGenerationFailure)
}
