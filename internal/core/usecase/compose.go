package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/changsoo-Shin/ktds-jinseop/internal/core/domain"
	"github.com/changsoo-Shin/ktds-jinseop/internal/core/ports"
)

const (
	defaultComposeLimit = 5
	maxAlternateQueries = 4
)

// ComposeContextUseCase builds a retrieval context for generated-mode
// questions: vector search plus a literal scan over stored questions,
// gated by the context validator. If the primary query's context is
// rejected, a bounded list of alternate queries is tried before falling
// back to the ungated primary context.
type ComposeContextUseCase struct {
	index        ports.VectorIndex
	questions    ports.QuestionStore
	validator    *ContextValidator
	logger       *slog.Logger
	defaultLimit int
}

type ComposeOption func(*ComposeContextUseCase)

// WithComposeLimit sets the chunk budget used when a request does not
// name one.
func WithComposeLimit(n int) ComposeOption {
	return func(uc *ComposeContextUseCase) {
		if n > 0 {
			uc.defaultLimit = n
		}
	}
}

func NewComposeContextUseCase(
	index ports.VectorIndex,
	questions ports.QuestionStore,
	validator *ContextValidator,
	logger *slog.Logger,
	opts ...ComposeOption,
) *ComposeContextUseCase {
	uc := &ComposeContextUseCase{
		index:        index,
		questions:    questions,
		validator:    validator,
		logger:       logger,
		defaultLimit: defaultComposeLimit,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *ComposeContextUseCase) Compose(
	ctx context.Context,
	exam string,
	queries []string,
	limit int,
) (*domain.ComposedContext, error) {
	queries = nonBlank(queries)
	if len(queries) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "compose context", errors.New("no search queries"))
	}
	if limit <= 0 {
		limit = uc.defaultLimit
	}
	if len(queries) > maxAlternateQueries {
		queries = queries[:maxAlternateQueries]
	}

	var primary *candidateContext
	for i, query := range queries {
		cand, err := uc.gather(ctx, exam, query, limit)
		if err != nil {
			return nil, err
		}
		if cand == nil {
			continue
		}
		if primary == nil {
			primary = cand
		}

		report, err := uc.validator.Validate(ctx, query, cand.text, cand.meta)
		if err != nil {
			return nil, fmt.Errorf("validate context: %w", err)
		}
		if report.Accepted() {
			return &domain.ComposedContext{
				Context: report.FilteredContext,
				Meta:    report.FilteredMeta,
				Gated:   true,
				Query:   query,
			}, nil
		}
		uc.logger.Info("context rejected, trying alternate query",
			slog.String("exam", exam),
			slog.Int("attempt", i+1),
			slog.Int("removed_chunks", report.RemovedChunks),
		)
	}

	if primary == nil {
		return nil, domain.WrapError(domain.ErrQuestionNotFound, "compose context",
			errors.New("no candidate material for any query"))
	}

	// every alternate was rejected; serve the primary context ungated
	// rather than failing the request
	return &domain.ComposedContext{
		Context: primary.text,
		Meta:    primary.meta,
		Gated:   false,
		Query:   primary.query,
	}, nil
}

type candidateContext struct {
	query string
	text  string
	meta  []domain.ChunkMeta
}

// gather merges vector hits with literal question matches, deduplicates
// by entry id, and keeps the best-scored entries up to limit.
func (uc *ComposeContextUseCase) gather(ctx context.Context, exam, query string, limit int) (*candidateContext, error) {
	hits, err := uc.index.Search(ctx, query, limit, domain.SearchFilter{Subject: exam})
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	literal, err := uc.questions.Search(exam, query, limit)
	if err != nil {
		return nil, fmt.Errorf("question search: %w", err)
	}

	type scoredEntry struct {
		text  string
		meta  domain.ChunkMeta
		score float64
	}

	seen := make(map[string]bool)
	var entries []scoredEntry
	for _, hit := range hits {
		if seen[hit.Meta.ID] {
			continue
		}
		seen[hit.Meta.ID] = true
		entries = append(entries, scoredEntry{
			text:  hit.Content,
			meta:  hit.Meta,
			score: 1.0 / (1.0 + hit.Distance),
		})
	}
	for _, q := range literal {
		id := q.UniqueID()
		if seen[id] {
			continue
		}
		seen[id] = true
		entries = append(entries, scoredEntry{
			text: q.Text,
			meta: domain.ChunkMeta{
				ID:             id,
				Type:           domain.MetaTypeQuestion,
				Subject:        exam,
				SourceFile:     q.SourceFile,
				QuestionNumber: q.Number,
				Text:           q.Text,
			},
			// literal matches outrank mediocre vector hits but not
			// near-exact ones
			score: 0.9,
		})
	}

	if len(entries) == 0 {
		return nil, nil
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].score > entries[j].score })
	if len(entries) > limit {
		entries = entries[:limit]
	}

	texts := make([]string, 0, len(entries))
	meta := make([]domain.ChunkMeta, 0, len(entries))
	for _, e := range entries {
		texts = append(texts, e.text)
		meta = append(meta, e.meta)
	}
	return &candidateContext{
		query: query,
		text:  strings.Join(texts, "\n\n"),
		meta:  meta,
	}, nil
}

func nonBlank(queries []string) []string {
	out := make([]string, 0, len(queries))
	for _, q := range queries {
		if strings.TrimSpace(q) != "" {
			out = append(out, strings.TrimSpace(q))
		}
	}
	return out
}
