package model

import "time"

// IngestJob asks the worker to (re)ingest one stored document.
type IngestJob struct {
	ID          string    `json:"id"`
	Document    string    `json:"document"`
	RequestedAt time.Time `json:"requested_at"`
}
