package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"examgen/internal/model"
)

type DocumentStateRepository struct {
	db *gorm.DB
}

func NewDocumentStateRepository(db *gorm.DB) *DocumentStateRepository {
	return &DocumentStateRepository{db: db}
}

// Save inserts the state or overwrites every column of an existing one.
func (r *DocumentStateRepository) Save(state *model.DocumentState) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"processed", "enabled", "error", "content_hash", "chunk_count", "updated_at"}),
	}).Create(state).Error
	if err != nil {
		return fmt.Errorf("save document state failed: %w", err)
	}
	return nil
}

func (r *DocumentStateRepository) Get(name string) (*model.DocumentState, error) {
	var state model.DocumentState
	if err := r.db.Where("name = ?", name).First(&state).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document state failed: %w", err)
	}
	return &state, nil
}

func (r *DocumentStateRepository) List() ([]model.DocumentState, error) {
	var list []model.DocumentState
	if err := r.db.Order("name ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list document states failed: %w", err)
	}
	return list, nil
}
