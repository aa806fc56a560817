package usecase

import (
	"errors"
	"math/rand"
	"time"

	"github.com/changsoo-Shin/ktds-jinseop/internal/core/domain"
)

// Selector picks one question from a multi-source pool without
// repeating recent picks. Shuffling is re-seeded per call so repeated
// selections in one process do not replay the same order.
type Selector struct {
	newRand func() *rand.Rand
}

func NewSelector() *Selector {
	return &Selector{
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
}

// NewSelectorWithSource fixes the entropy source, for deterministic
// selection in tests.
func NewSelectorWithSource(src rand.Source) *Selector {
	return &Selector{
		newRand: func() *rand.Rand { return rand.New(src) },
	}
}

// Select partitions candidates by source, shuffles each partition and
// the concatenation so no single source dominates contiguous runs,
// drops candidates present in history, and picks one survivor. An
// exhausted pool clears the history outright and retries over the full
// candidate set.
func (s *Selector) Select(
	candidates []domain.QuestionRecord,
	history *domain.RecencyHistory,
) (domain.QuestionRecord, error) {
	if len(candidates) == 0 {
		return domain.QuestionRecord{}, domain.WrapError(domain.ErrQuestionNotFound, "select question",
			errors.New("empty candidate pool"))
	}

	rng := s.newRand()
	pool := fairShuffle(candidates, rng)

	survivors := excludeRecent(pool, history)
	if len(survivors) == 0 {
		history.Clear()
		survivors = pool
	}

	chosen := survivors[rng.Intn(len(survivors))]
	history.Push(chosen.UniqueID())
	return chosen, nil
}

// fairShuffle shuffles per-source partitions independently, then
// shuffles the concatenation.
func fairShuffle(candidates []domain.QuestionRecord, rng *rand.Rand) []domain.QuestionRecord {
	partitions := make(map[string][]domain.QuestionRecord)
	var order []string
	for _, q := range candidates {
		if _, ok := partitions[q.SourceFile]; !ok {
			order = append(order, q.SourceFile)
		}
		partitions[q.SourceFile] = append(partitions[q.SourceFile], q)
	}

	pool := make([]domain.QuestionRecord, 0, len(candidates))
	for _, source := range order {
		part := partitions[source]
		rng.Shuffle(len(part), func(i, j int) { part[i], part[j] = part[j], part[i] })
		pool = append(pool, part...)
	}
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool
}

func excludeRecent(pool []domain.QuestionRecord, history *domain.RecencyHistory) []domain.QuestionRecord {
	out := make([]domain.QuestionRecord, 0, len(pool))
	for _, q := range pool {
		if history.Contains(q.UniqueID()) {
			continue
		}
		out = append(out, q)
	}
	return out
}
