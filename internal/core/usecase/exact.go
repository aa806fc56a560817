package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/changsoo-Shin/ktds-jinseop/internal/core/domain"
	"github.com/changsoo-Shin/ktds-jinseop/internal/core/ports"
)

// defaultFigureKeywords mark questions that reference visuals the text
// pipeline cannot reproduce; they are unanswerable without the source
// image and are skipped in exact mode.
var defaultFigureKeywords = []string{
	"figure", "diagram", "image below", "chart below",
	"그림", "도표", "다음 그림",
}

type ExactPickUseCase struct {
	questions    ports.QuestionStore
	selector     *Selector
	historySize  int
	figureWords  []string
	includeAll   bool
	mu           sync.Mutex
	histories    map[string]*domain.RecencyHistory
}

type ExactPickOption func(*ExactPickUseCase)

func WithHistorySize(n int) ExactPickOption {
	return func(uc *ExactPickUseCase) { uc.historySize = n }
}

func WithFigureKeywords(words []string) ExactPickOption {
	return func(uc *ExactPickUseCase) { uc.figureWords = words }
}

// WithFigureQuestionsIncluded disables the figure filter entirely.
func WithFigureQuestionsIncluded() ExactPickOption {
	return func(uc *ExactPickUseCase) { uc.includeAll = true }
}

func NewExactPickUseCase(questions ports.QuestionStore, selector *Selector, opts ...ExactPickOption) *ExactPickUseCase {
	uc := &ExactPickUseCase{
		questions:   questions,
		selector:    selector,
		historySize: domain.DefaultHistorySize,
		figureWords: defaultFigureKeywords,
		histories:   make(map[string]*domain.RecencyHistory),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// NextExact serves one stored question for an exam, avoiding the last
// few picks of the same tenant. Questions that reference figures are
// excluded unless that leaves nothing to serve.
func (uc *ExactPickUseCase) NextExact(_ context.Context, exam string) (domain.QuestionRecord, error) {
	candidates, err := uc.questions.List(exam)
	if err != nil {
		return domain.QuestionRecord{}, err
	}
	if len(candidates) == 0 {
		return domain.QuestionRecord{}, domain.WrapError(domain.ErrQuestionNotFound, "next exact",
			errors.New("no questions extracted for exam"))
	}

	pool := uc.withoutFigureQuestions(candidates)
	if len(pool) == 0 {
		pool = candidates
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()
	history, ok := uc.histories[exam]
	if !ok {
		history = domain.NewRecencyHistory(uc.historySize)
		uc.histories[exam] = history
	}

	return uc.selector.Select(pool, history)
}

func (uc *ExactPickUseCase) withoutFigureQuestions(candidates []domain.QuestionRecord) []domain.QuestionRecord {
	if uc.includeAll {
		return candidates
	}
	out := make([]domain.QuestionRecord, 0, len(candidates))
	for _, q := range candidates {
		if uc.referencesFigure(q.Text) {
			continue
		}
		out = append(out, q)
	}
	return out
}

func (uc *ExactPickUseCase) referencesFigure(text string) bool {
	lower := strings.ToLower(text)
	for _, word := range uc.figureWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
