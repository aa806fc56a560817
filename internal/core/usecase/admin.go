package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/changsoo-Shin/ktds-jinseop/internal/core/domain"
	"github.com/changsoo-Shin/ktds-jinseop/internal/core/ports"
)

type ExamAdminUseCase struct {
	repo      ports.DocumentRepository
	questions ports.QuestionStore
	index     ports.VectorIndex
	logger    *slog.Logger
}

func NewExamAdminUseCase(
	repo ports.DocumentRepository,
	questions ports.QuestionStore,
	index ports.VectorIndex,
	logger *slog.Logger,
) *ExamAdminUseCase {
	return &ExamAdminUseCase{
		repo:      repo,
		questions: questions,
		index:     index,
		logger:    logger,
	}
}

// Purge removes everything one exam holds: its vector entries (with
// the index rebuild that implies) and its question containers. It is
// deliberately expensive and not a hot path.
func (uc *ExamAdminUseCase) Purge(ctx context.Context, exam string) (domain.PurgeResult, error) {
	result := domain.PurgeResult{Exam: exam}

	removedVectors, err := uc.index.DeleteBySubject(ctx, exam)
	if err != nil {
		return result, fmt.Errorf("delete exam vectors: %w", err)
	}
	result.RemovedVectors = removedVectors

	if removedVectors > 0 {
		if err := uc.index.Snapshot(); err != nil {
			return result, fmt.Errorf("snapshot after purge: %w", err)
		}
	}

	removedQuestions, err := uc.questions.RemoveExam(exam)
	if err != nil {
		return result, fmt.Errorf("remove exam questions: %w", err)
	}
	result.RemovedQuestions = removedQuestions

	uc.logger.Info("exam purged",
		slog.String("exam", exam),
		slog.Int("removed_vectors", result.RemovedVectors),
		slog.Int("removed_questions", result.RemovedQuestions),
	)
	return result, nil
}

func (uc *ExamAdminUseCase) Stats(ctx context.Context, exam string) (domain.ExamStats, error) {
	stats := domain.ExamStats{Exam: exam}

	docs, err := uc.repo.ListByExam(ctx, exam)
	if err != nil {
		return stats, fmt.Errorf("list exam documents: %w", err)
	}
	stats.DocumentCount = len(docs)
	for _, doc := range docs {
		stats.Sources = append(stats.Sources, doc.Filename)
	}

	questions, err := uc.questions.List(exam)
	if err != nil {
		return stats, fmt.Errorf("list exam questions: %w", err)
	}
	stats.QuestionCount = len(questions)

	stats.IndexedChunks = uc.index.CountBySubject(exam)
	stats.IndexSize = uc.index.Count()
	return stats, nil
}
