package domain

import (
	"fmt"
	"time"
)

// QuestionRecord is one exam question recovered from a source document.
// Records are immutable once segmented; re-extracting a source replaces
// its whole record set.
type QuestionRecord struct {
	Number         string    `json:"number"`
	Text           string    `json:"text"`
	SourceFile     string    `json:"source_file"`
	ExtractionDate time.Time `json:"extraction_date"`
	StartLine      int       `json:"start_line"`
	EndLine        int       `json:"end_line"`
}

// UniqueID identifies a question across sources for recency tracking.
// Question numbers repeat between papers, so the source file is part of
// the key.
func (q QuestionRecord) UniqueID() string {
	return fmt.Sprintf("%s_%s", q.SourceFile, q.Number)
}
