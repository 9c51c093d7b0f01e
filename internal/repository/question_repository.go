package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"examgen/internal/model"
)

type QuestionRepository struct {
	db *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// Create stores q and fills in its ID. A question without a lineage becomes
// the root of a new one.
func (r *QuestionRepository) Create(q *model.Question) error {
	rec, err := model.NewQuestionRecord(q)
	if err != nil {
		return err
	}
	err = r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rec).Error; err != nil {
			return err
		}
		if rec.RootID == 0 {
			rec.RootID = rec.ID
			return tx.Model(rec).Update("root_id", rec.ID).Error
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create question failed: %w", err)
	}
	q.ID = rec.ID
	q.RootID = rec.RootID
	q.CreatedAt = rec.CreatedAt
	q.UpdatedAt = rec.UpdatedAt
	return nil
}

func (r *QuestionRepository) GetByID(id uint) (*model.Question, error) {
	var rec model.QuestionRecord
	if err := r.db.First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get question failed: %w", err)
	}
	return rec.ToQuestion(), nil
}

// List returns questions newest first.
func (r *QuestionRepository) List(offset, limit int) ([]model.Question, int64, error) {
	var total int64
	if err := r.db.Model(&model.QuestionRecord{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count questions failed: %w", err)
	}

	var recs []model.QuestionRecord
	if err := r.db.Order("created_at DESC").Order("id DESC").Offset(offset).Limit(limit).Find(&recs).Error; err != nil {
		return nil, 0, fmt.Errorf("list questions failed: %w", err)
	}
	out := make([]model.Question, len(recs))
	for i := range recs {
		out[i] = *recs[i].ToQuestion()
	}
	return out, total, nil
}

// MaxVersion returns the highest version stored for a lineage.
func (r *QuestionRepository) MaxVersion(rootID uint) (int, error) {
	var version int
	if err := r.db.Model(&model.QuestionRecord{}).Where("root_id = ?", rootID).Select("COALESCE(MAX(version), 0)").Scan(&version).Error; err != nil {
		return 0, fmt.Errorf("query max version failed: %w", err)
	}
	return version, nil
}

// CountReviewedBy returns how many questions carry reviewerID as their latest reviewer.
func (r *QuestionRepository) CountReviewedBy(reviewerID uint) (int64, error) {
	var n int64
	if err := r.db.Model(&model.QuestionRecord{}).Where("reviewed_by = ?", reviewerID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count reviewed questions failed: %w", err)
	}
	return n, nil
}

// UpdateReview overwrites the rating columns. A zero ReviewedBy is stored as NULL.
func (r *QuestionRepository) UpdateReview(id uint, review model.Review) error {
	var reviewedBy *uint
	if review.ReviewedBy != 0 {
		reviewedBy = &review.ReviewedBy
	}
	err := r.db.Model(&model.QuestionRecord{}).Where("id = ?", id).Updates(map[string]interface{}{
		"rating":         review.Rating,
		"admin_comments": review.AdminComments,
		"approved":       review.Approved,
		"reviewed_by":    reviewedBy,
		"reviewed_at":    review.ReviewedAt,
	}).Error
	if err != nil {
		return fmt.Errorf("update question review failed: %w", err)
	}
	return nil
}

// UpdateEvaluation overwrites the stored evaluation of a question.
func (r *QuestionRepository) UpdateEvaluation(id uint, eval *model.QualityEvaluation) error {
	var rec model.QuestionRecord
	if err := rec.SetEvaluation(eval); err != nil {
		return err
	}
	err := r.db.Model(&model.QuestionRecord{}).Where("id = ?", id).Updates(map[string]interface{}{
		"ai_evaluation":    rec.AIEvaluation,
		"ai_overall_score": rec.AIOverallScore,
		"ai_evaluated_at":  rec.AIEvaluatedAt,
	}).Error
	if err != nil {
		return fmt.Errorf("update question evaluation failed: %w", err)
	}
	return nil
}
