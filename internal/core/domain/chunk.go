package domain

import "time"

// Chunk is a bounded unit of text prepared for embedding.
type Chunk struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	Subject    string    `json:"subject"`
	IsTable    bool      `json:"is_table"`
	SourceFile string    `json:"source_file"`
	CreatedAt  time.Time `json:"created_at"`
}

// ChunkMeta is what the vector index stores next to each embedding row.
// EmbeddingID is the row position inside one index generation and is
// reassigned on every rebuild.
type ChunkMeta struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	Subject        string    `json:"subject"`
	SourceFile     string    `json:"source_file"`
	QuestionNumber string    `json:"question_number,omitempty"`
	IsTable        bool      `json:"is_table,omitempty"`
	Text           string    `json:"text"`
	EmbeddingID    int       `json:"embedding_id"`
	CreatedAt      time.Time `json:"created_at"`
}

const (
	MetaTypeChunk    = "text_chunk"
	MetaTypeQuestion = "extracted_question"
)
