package model

import "time"

// DocumentState tracks ingestion of one uploaded document, keyed by file name.
type DocumentState struct {
	Name        string    `gorm:"primaryKey;size:255" json:"name"`
	Processed   bool      `gorm:"not null;default:false" json:"processed"`
	Enabled     bool      `gorm:"not null;default:false" json:"enabled"`
	Error       string    `gorm:"type:text" json:"error,omitempty"`
	ContentHash string    `gorm:"size:64" json:"content_hash,omitempty"`
	ChunkCount  int       `gorm:"not null;default:0" json:"chunk_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (DocumentState) TableName() string {
	return "document_states"
}

// Ready reports whether the document may serve retrieval and generation.
func (d *DocumentState) Ready() bool {
	return d != nil && d.Processed && d.Enabled
}
