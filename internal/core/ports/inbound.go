package ports

import (
	"context"
	"io"

	"github.com/changsoo-Shin/ktds-jinseop/internal/core/domain"
)

// DocumentIngestor is the inbound contract for source-document upload.
type DocumentIngestor interface {
	Upload(ctx context.Context, exam, filename, mimeType string, body io.Reader) (*domain.SourceDocument, error)
}

// DocumentProcessor is the inbound contract for asynchronous extraction.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// QuestionPicker serves exact-mode question selection.
type QuestionPicker interface {
	NextExact(ctx context.Context, exam string) (domain.QuestionRecord, error)
}

// ContextComposer serves generated-mode retrieval with the quality gate.
type ContextComposer interface {
	Compose(ctx context.Context, exam string, queries []string, limit int) (*domain.ComposedContext, error)
}

// ExamAdmin covers tenant-level maintenance.
type ExamAdmin interface {
	Purge(ctx context.Context, exam string) (domain.PurgeResult, error)
	Stats(ctx context.Context, exam string) (domain.ExamStats, error)
}
