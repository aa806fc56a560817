package ports

import (
	"context"
	"io"

	"github.com/changsoo-Shin/ktds-jinseop/internal/core/domain"
)

// DocumentRepository persists and reads source-document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.SourceDocument) error
	GetByID(ctx context.Context, id string) (*domain.SourceDocument, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SaveExtractionStats(ctx context.Context, id string, stats domain.ExtractionStats) error
	ListByExam(ctx context.Context, exam string) ([]domain.SourceDocument, error)
}

// ObjectStorage stores uploaded source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes extraction events.
type MessageQueue interface {
	PublishDocumentUploaded(ctx context.Context, documentID string) error
	SubscribeDocumentUploaded(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor pulls markdown-ish plain text out of a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.SourceDocument) (string, error)
}

// Segmenter recovers discrete question records from extracted text.
type Segmenter interface {
	Segment(text string) []domain.QuestionRecord
}

// ChunkBuilder splits extracted text into retrieval units.
type ChunkBuilder interface {
	Build(text, subject string) []domain.Chunk
}

// QuestionStore owns the per-source question containers.
type QuestionStore interface {
	Replace(exam, sourceFile string, questions []domain.QuestionRecord) error
	List(exam string) ([]domain.QuestionRecord, error)
	Search(exam, query string, limit int) ([]domain.QuestionRecord, error)
	RemoveExam(exam string) (int, error)
}

// VectorIndex owns the embedding to nearest-neighbor mapping.
type VectorIndex interface {
	Add(ctx context.Context, text string, meta domain.ChunkMeta) error
	Search(ctx context.Context, query string, k int, filter domain.SearchFilter) ([]domain.RetrievedChunk, error)
	DeleteBySubject(ctx context.Context, subject string) (int, error)
	Snapshot() error
	Count() int
	CountBySubject(subject string) int
}

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Judge asks the judgment backend whether a context chunk is usable.
type Judge interface {
	Judge(ctx context.Context, prompt string) (string, error)
}

// QuestionExporter renders a question set into a downloadable workbook.
type QuestionExporter interface {
	Export(exam string, questions []domain.QuestionRecord) ([]byte, error)
}
