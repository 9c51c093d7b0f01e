package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"examgen/internal/model"
)

type ReviewerRepository struct {
	db *gorm.DB
}

func NewReviewerRepository(db *gorm.DB) *ReviewerRepository {
	return &ReviewerRepository{db: db}
}

func (r *ReviewerRepository) Create(reviewer *model.Reviewer) error {
	if err := r.db.Create(reviewer).Error; err != nil {
		return fmt.Errorf("create reviewer failed: %w", err)
	}
	return nil
}

func (r *ReviewerRepository) GetByUsername(username string) (*model.Reviewer, error) {
	return r.first("username = ?", username)
}

func (r *ReviewerRepository) GetByEmail(email string) (*model.Reviewer, error) {
	return r.first("email = ?", email)
}

func (r *ReviewerRepository) GetByID(id uint) (*model.Reviewer, error) {
	return r.first("id = ?", id)
}

func (r *ReviewerRepository) first(query string, arg interface{}) (*model.Reviewer, error) {
	var reviewer model.Reviewer
	if err := r.db.Where(query, arg).First(&reviewer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query reviewer failed: %w", err)
	}
	return &reviewer, nil
}
