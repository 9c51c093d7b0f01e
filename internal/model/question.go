package model

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Source is the provenance of a retrieved chunk.
type Source struct {
	Source string `json:"source"`
	Page   int    `json:"page"`
}

// Review is the human rating attached to a stored question. ReviewedBy is the
// reviewer account that gave the latest rating.
type Review struct {
	Rating        *int       `json:"rating,omitempty"`
	AdminComments string     `json:"admin_comments,omitempty"`
	Approved      bool       `json:"approved"`
	ReviewedBy    uint       `json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
}

// Question is a generated multiple-choice question. ID and RootID are zero
// until the question is persisted; RootID groups every version of one lineage.
type Question struct {
	ID                   uint               `json:"question_id,omitempty"`
	RootID               uint               `json:"root_id,omitempty"`
	Version              int                `json:"version"`
	Question             string             `json:"question"`
	Options              []string           `json:"options"`
	CorrectAnswer        string             `json:"correct_answer"`
	Explanation          string             `json:"explanation"`
	DetailedExplanations map[string]string  `json:"detailed_explanations,omitempty"`
	Sources              []Source           `json:"sources"`
	DocumentUsed         string             `json:"document_used"`
	Review               Review             `json:"review"`
	Evaluation           *QualityEvaluation `json:"ai_evaluation,omitempty"`
	Degraded             bool               `json:"degraded,omitempty"`
	ImprovementNote      string             `json:"improvement_note,omitempty"`
	CreatedAt            time.Time          `json:"created_at,omitempty"`
	UpdatedAt            time.Time          `json:"updated_at,omitempty"`
}

// QuestionRecord is the stored row of a question and its latest review and evaluation.
type QuestionRecord struct {
	ID                   uint           `gorm:"primaryKey"`
	RootID               uint           `gorm:"index"`
	Version              int            `gorm:"not null;default:1"`
	QuestionText         string         `gorm:"type:text;not null"`
	Options              datatypes.JSON `gorm:"not null"`
	CorrectAnswer        string         `gorm:"type:text;not null"`
	Explanation          string         `gorm:"type:text"`
	DetailedExplanations datatypes.JSON
	Sources              datatypes.JSON
	DocumentUsed         string `gorm:"size:255;index"`
	Degraded             bool   `gorm:"not null;default:false"`
	Rating               *int
	AdminComments        string `gorm:"type:text"`
	Approved             bool   `gorm:"not null;default:false"`
	ReviewedBy           *uint  `gorm:"index"`
	ReviewedAt           *time.Time
	AIEvaluation         datatypes.JSON
	AIOverallScore       *int
	AIEvaluatedAt        *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (QuestionRecord) TableName() string {
	return "question_ratings"
}

// NewQuestionRecord encodes q for storage.
func NewQuestionRecord(q *Question) (*QuestionRecord, error) {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return nil, fmt.Errorf("marshal options failed: %w", err)
	}
	detailed, err := json.Marshal(q.DetailedExplanations)
	if err != nil {
		return nil, fmt.Errorf("marshal detailed explanations failed: %w", err)
	}
	sources, err := json.Marshal(q.Sources)
	if err != nil {
		return nil, fmt.Errorf("marshal sources failed: %w", err)
	}

	rec := &QuestionRecord{
		ID:                   q.ID,
		RootID:               q.RootID,
		Version:              q.Version,
		QuestionText:         q.Question,
		Options:              datatypes.JSON(options),
		CorrectAnswer:        q.CorrectAnswer,
		Explanation:          q.Explanation,
		DetailedExplanations: datatypes.JSON(detailed),
		Sources:              datatypes.JSON(sources),
		DocumentUsed:         q.DocumentUsed,
		Degraded:             q.Degraded,
		Rating:               q.Review.Rating,
		AdminComments:        q.Review.AdminComments,
		Approved:             q.Review.Approved,
		ReviewedAt:           q.Review.ReviewedAt,
	}
	if q.Review.ReviewedBy != 0 {
		by := q.Review.ReviewedBy
		rec.ReviewedBy = &by
	}
	if err := rec.SetEvaluation(q.Evaluation); err != nil {
		return nil, err
	}
	return rec, nil
}

// SetEvaluation replaces the stored evaluation; nil clears it.
func (r *QuestionRecord) SetEvaluation(eval *QualityEvaluation) error {
	if eval == nil {
		r.AIEvaluation = nil
		r.AIOverallScore = nil
		r.AIEvaluatedAt = nil
		return nil
	}
	raw, err := json.Marshal(eval)
	if err != nil {
		return fmt.Errorf("marshal evaluation failed: %w", err)
	}
	score := eval.OverallScore
	at := eval.EvaluatedAt
	r.AIEvaluation = datatypes.JSON(raw)
	r.AIOverallScore = &score
	r.AIEvaluatedAt = &at
	return nil
}

// ToQuestion decodes the stored row. Malformed JSON columns decode as empty values.
func (r *QuestionRecord) ToQuestion() *Question {
	q := &Question{
		ID:            r.ID,
		RootID:        r.RootID,
		Version:       r.Version,
		Question:      r.QuestionText,
		CorrectAnswer: r.CorrectAnswer,
		Explanation:   r.Explanation,
		DocumentUsed:  r.DocumentUsed,
		Degraded:      r.Degraded,
		Review: Review{
			Rating:        r.Rating,
			AdminComments: r.AdminComments,
			Approved:      r.Approved,
			ReviewedAt:    r.ReviewedAt,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.ReviewedBy != nil {
		q.Review.ReviewedBy = *r.ReviewedBy
	}
	decodeJSON(r.Options, &q.Options)
	decodeJSON(r.DetailedExplanations, &q.DetailedExplanations)
	decodeJSON(r.Sources, &q.Sources)

	var eval QualityEvaluation
	if decodeJSON(r.AIEvaluation, &eval) {
		q.Evaluation = &eval
	}
	return q
}

func decodeJSON(raw datatypes.JSON, v any) bool {
	if len(raw) == 0 || string(raw) == "null" {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}
