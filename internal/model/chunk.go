package model

// ChunkRecord is one embedded chunk as stored in a document's chunk artifact.
// Field order matches the artifact's on-disk JSON layout.
type ChunkRecord struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Page      int       `json:"page"`
	Chunk     string    `json:"chunk"`
	Embedding []float32 `json:"embedding"`
}

// RetrievedChunk is a search hit with its provenance.
type RetrievedChunk struct {
	ID       string  `json:"id"`
	Text     string  `json:"text"`
	Source   string  `json:"source"`
	Page     int     `json:"page"`
	Distance float32 `json:"distance"`
}
