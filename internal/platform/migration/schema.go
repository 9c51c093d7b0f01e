package migration

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Table snapshots below describe each table as of the migration that touches
// it. They must not change once released; add a new migration instead.

type documentStateV1 struct {
	Name      string `gorm:"primaryKey;size:255"`
	Processed bool   `gorm:"not null;default:false"`
	Enabled   bool   `gorm:"not null;default:false"`
	Error     string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (documentStateV1) TableName() string { return "document_states" }

type questionRatingV1 struct {
	ID                   uint           `gorm:"primaryKey"`
	QuestionText         string         `gorm:"type:text;not null"`
	Options              datatypes.JSON `gorm:"not null"`
	CorrectAnswer        string         `gorm:"type:text;not null"`
	Explanation          string         `gorm:"type:text"`
	DetailedExplanations datatypes.JSON
	Sources              datatypes.JSON
	DocumentUsed         string `gorm:"size:255;index"`
	Rating               *int
	AdminComments        string `gorm:"type:text"`
	Approved             bool   `gorm:"not null;default:false"`
	Version              int    `gorm:"not null;default:1"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (questionRatingV1) TableName() string { return "question_ratings" }

type questionRatingEvaluationV3 struct {
	AIEvaluation   datatypes.JSON
	AIOverallScore *int
	AIEvaluatedAt  *time.Time
}

func (questionRatingEvaluationV3) TableName() string { return "question_ratings" }

type questionRatingLineageV4 struct {
	RootID   uint `gorm:"index"`
	Degraded bool `gorm:"not null;default:false"`
}

func (questionRatingLineageV4) TableName() string { return "question_ratings" }

type documentStateIngestV5 struct {
	ContentHash string `gorm:"size:64"`
	ChunkCount  int    `gorm:"not null;default:0"`
}

func (documentStateIngestV5) TableName() string { return "document_states" }

type reviewerV6 struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"size:64;not null;uniqueIndex"`
	Email        string `gorm:"size:128;not null;uniqueIndex"`
	PasswordHash string `gorm:"size:255;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (reviewerV6) TableName() string { return "reviewers" }

type questionRatingReviewerV7 struct {
	ReviewedBy *uint `gorm:"index"`
	ReviewedAt *time.Time
}

func (questionRatingReviewerV7) TableName() string { return "question_ratings" }

// All is the ordered schema history of the service.
func All() []Migration {
	return []Migration{
		{Version: 1, Name: "create_document_states", Up: func(tx *gorm.DB) error {
			return tx.Migrator().CreateTable(&documentStateV1{})
		}},
		{Version: 2, Name: "create_question_ratings", Up: func(tx *gorm.DB) error {
			return tx.Migrator().CreateTable(&questionRatingV1{})
		}},
		{Version: 3, Name: "add_question_ai_evaluation", Up: func(tx *gorm.DB) error {
			return addColumns(tx, &questionRatingEvaluationV3{}, "AIEvaluation", "AIOverallScore", "AIEvaluatedAt")
		}},
		{Version: 4, Name: "add_question_lineage", Up: func(tx *gorm.DB) error {
			if err := addColumns(tx, &questionRatingLineageV4{}, "RootID", "Degraded"); err != nil {
				return err
			}
			if err := tx.Exec("UPDATE question_ratings SET root_id = id WHERE root_id IS NULL OR root_id = 0").Error; err != nil {
				return err
			}
			return tx.Migrator().CreateIndex(&questionRatingLineageV4{}, "RootID")
		}},
		{Version: 5, Name: "add_document_ingest_metadata", Up: func(tx *gorm.DB) error {
			return addColumns(tx, &documentStateIngestV5{}, "ContentHash", "ChunkCount")
		}},
		{Version: 6, Name: "create_reviewers", Up: func(tx *gorm.DB) error {
			return tx.Migrator().CreateTable(&reviewerV6{})
		}},
		{Version: 7, Name: "add_question_reviewer", Up: func(tx *gorm.DB) error {
			if err := addColumns(tx, &questionRatingReviewerV7{}, "ReviewedBy", "ReviewedAt"); err != nil {
				return err
			}
			return tx.Migrator().CreateIndex(&questionRatingReviewerV7{}, "ReviewedBy")
		}},
	}
}

func addColumns(tx *gorm.DB, table interface{}, fields ...string) error {
	for _, f := range fields {
		if err := tx.Migrator().AddColumn(table, f); err != nil {
			return err
		}
	}
	return nil
}
