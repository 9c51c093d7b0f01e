package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestionRecordRoundTrip(t *testing.T) {
	rating := 4
	evaluatedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	q := &Question{
		RootID:               7,
		Version:              2,
		Question:             "Which principle?",
		Options:              []string{"A", "B", "C", "D"},
		CorrectAnswer:        "B",
		Explanation:          "because",
		DetailedExplanations: map[string]string{"B": "right"},
		Sources:              []Source{{Source: "doc.pdf", Page: 3}},
		DocumentUsed:         "doc.pdf",
		Review:               Review{Rating: &rating, AdminComments: "ok", Approved: true, ReviewedBy: 3, ReviewedAt: &evaluatedAt},
		Evaluation:           &QualityEvaluation{OverallScore: 88, EvaluatedAt: evaluatedAt},
	}

	rec, err := NewQuestionRecord(q)
	require.NoError(t, err)
	require.NotNil(t, rec.AIOverallScore)
	assert.Equal(t, 88, *rec.AIOverallScore)
	assert.Equal(t, evaluatedAt, *rec.AIEvaluatedAt)

	got := rec.ToQuestion()
	assert.Equal(t, q.Options, got.Options)
	assert.Equal(t, q.Sources, got.Sources)
	assert.Equal(t, q.DetailedExplanations, got.DetailedExplanations)
	assert.Equal(t, q.Review, got.Review)
	require.NotNil(t, rec.ReviewedBy)
	assert.Equal(t, uint(3), *rec.ReviewedBy)
	require.NotNil(t, got.Evaluation)
	assert.Equal(t, 88, got.Evaluation.OverallScore)
}

func TestQuestionRecord_ClearEvaluation(t *testing.T) {
	rec, err := NewQuestionRecord(&Question{Options: []string{"a"}})
	require.NoError(t, err)

	assert.Nil(t, rec.AIEvaluation)
	assert.Nil(t, rec.AIOverallScore)
	assert.Nil(t, rec.ReviewedBy)
	assert.Nil(t, rec.ToQuestion().Evaluation)
	assert.Zero(t, rec.ToQuestion().Review.ReviewedBy)
}

func TestNeutralEvaluationCoversRubric(t *testing.T) {
	eval := NeutralEvaluation()

	assert.Len(t, eval.CriteriaScores, 7)
	for _, c := range Criteria {
		assert.Equal(t, NeutralScore, eval.CriteriaScores[c], c)
	}
	assert.Equal(t, "Manual review needed", eval.RecommendedAction)
	assert.Equal(t, 50, eval.ConfidenceLevel)
	assert.True(t, eval.Degraded)
}

func TestDocumentStateReady(t *testing.T) {
	var missing *DocumentState
	assert.False(t, missing.Ready())
	assert.False(t, (&DocumentState{Processed: true}).Ready())
	assert.True(t, (&DocumentState{Processed: true, Enabled: true}).Ready())
}
