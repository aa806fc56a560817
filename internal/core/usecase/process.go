package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/changsoo-Shin/ktds-jinseop/internal/core/domain"
	"github.com/changsoo-Shin/ktds-jinseop/internal/core/ports"
)

type ProcessDocumentUseCase struct {
	repo      ports.DocumentRepository
	extractor ports.TextExtractor
	segmenter ports.Segmenter
	chunker   ports.ChunkBuilder
	questions ports.QuestionStore
	index     ports.VectorIndex
	logger    *slog.Logger
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	segmenter ports.Segmenter,
	chunker ports.ChunkBuilder,
	questions ports.QuestionStore,
	index ports.VectorIndex,
	logger *slog.Logger,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		repo:      repo,
		extractor: extractor,
		segmenter: segmenter,
		chunker:   chunker,
		questions: questions,
		index:     index,
		logger:    logger,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if err := uc.markStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	stats, err := uc.processPipeline(ctx, documentID)
	if err != nil {
		if failErr := uc.markStatus(ctx, documentID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SaveExtractionStats(ctx, documentID, stats); err != nil {
		if failErr := uc.markStatus(ctx, documentID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return fmt.Errorf("save extraction stats: %w", err)
	}

	if err := uc.markStatus(ctx, documentID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) processPipeline(ctx context.Context, documentID string) (domain.ExtractionStats, error) {
	var stats domain.ExtractionStats

	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return stats, fmt.Errorf("fetch document by id: %w", err)
	}

	text, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return stats, fmt.Errorf("extract text: %w", err)
	}
	if text == "" {
		return stats, domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("empty extracted text"))
	}

	questions := uc.segmentQuestions(doc, text)
	if err := uc.questions.Replace(doc.Exam, doc.Filename, questions); err != nil {
		return stats, fmt.Errorf("persist question containers: %w", err)
	}
	stats.QuestionCount = len(questions)

	chunks := uc.chunker.Build(text, doc.Exam)
	stats.ChunkCount = len(chunks)

	indexed, err := uc.indexAll(ctx, doc, questions, chunks)
	if err != nil {
		return stats, err
	}
	stats.IndexedCount = indexed

	if err := uc.index.Snapshot(); err != nil {
		return stats, fmt.Errorf("snapshot index: %w", err)
	}
	return stats, nil
}

// segmentQuestions runs the segmenter and normalizes its output:
// every record carries the source filename and an extraction date, and
// fallback paragraph units get synthesized ordinals.
func (uc *ProcessDocumentUseCase) segmentQuestions(doc *domain.SourceDocument, text string) []domain.QuestionRecord {
	records := uc.segmenter.Segment(text)
	now := time.Now().UTC()
	for i := range records {
		if records[i].Number == "" {
			records[i].Number = strconv.Itoa(i + 1)
		}
		records[i].SourceFile = doc.Filename
		records[i].ExtractionDate = now
	}
	return records
}

// indexAll adds questions and chunks to the vector index. An
// unavailable embedding backend degrades to a smaller index instead of
// failing the document: the entries are logged and skipped.
func (uc *ProcessDocumentUseCase) indexAll(
	ctx context.Context,
	doc *domain.SourceDocument,
	questions []domain.QuestionRecord,
	chunks []domain.Chunk,
) (int, error) {
	indexed := 0
	now := time.Now().UTC()

	for _, q := range questions {
		meta := domain.ChunkMeta{
			ID:             q.UniqueID(),
			Type:           domain.MetaTypeQuestion,
			Subject:        doc.Exam,
			SourceFile:     q.SourceFile,
			QuestionNumber: q.Number,
			CreatedAt:      now,
		}
		ok, err := uc.addEntry(ctx, q.Text, meta)
		if err != nil {
			return indexed, err
		}
		if !ok {
			return indexed, nil
		}
		indexed++
	}

	for _, c := range chunks {
		meta := domain.ChunkMeta{
			ID:         c.ID,
			Type:       domain.MetaTypeChunk,
			Subject:    c.Subject,
			SourceFile: doc.Filename,
			IsTable:    c.IsTable,
			CreatedAt:  c.CreatedAt,
		}
		ok, err := uc.addEntry(ctx, c.Text, meta)
		if err != nil {
			return indexed, err
		}
		if !ok {
			return indexed, nil
		}
		indexed++
	}
	return indexed, nil
}

func (uc *ProcessDocumentUseCase) addEntry(ctx context.Context, text string, meta domain.ChunkMeta) (bool, error) {
	err := uc.index.Add(ctx, text, meta)
	if err == nil {
		return true, nil
	}
	if domain.IsKind(err, domain.ErrEmbeddingUnavailable) {
		uc.logger.Warn("embedding backend unavailable, indexing stopped for document",
			slog.String("entry", meta.ID),
		)
		return false, nil
	}
	return false, fmt.Errorf("index entry %s: %w", meta.ID, err)
}

func (uc *ProcessDocumentUseCase) markStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, id, status, errMessage)
}
