package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// SourceDocument is one uploaded exam paper tracked through extraction.
type SourceDocument struct {
	ID            string         `json:"id"`
	Exam          string         `json:"exam"`
	Filename      string         `json:"filename"`
	MimeType      string         `json:"mime_type"`
	StoragePath   string         `json:"storage_path"`
	Status        DocumentStatus `json:"status"`
	Error         string         `json:"error,omitempty"`
	QuestionCount int            `json:"question_count"`
	ChunkCount    int            `json:"chunk_count"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// ExtractionStats summarizes one completed processing run.
type ExtractionStats struct {
	QuestionCount int `json:"question_count"`
	ChunkCount    int `json:"chunk_count"`
	IndexedCount  int `json:"indexed_count"`
}
