package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/changsoo-Shin/ktds-jinseop/internal/core/domain"
)

func TestPurgeRemovesVectorsAndQuestions(t *testing.T) {
	index := &vectorIndexFake{deleted: 12}
	store := &questionStoreFake{removedCount: 40}
	uc := NewExamAdminUseCase(&processRepoFake{}, store, index, testLogger())

	result, err := uc.Purge(context.Background(), "dbexam")
	if err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	if result.RemovedVectors != 12 || result.RemovedQuestions != 40 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if index.snapshots != 1 {
		t.Fatalf("purge must snapshot the rebuilt index, got %d", index.snapshots)
	}
}

func TestPurgeSkipsSnapshotWhenNothingRemoved(t *testing.T) {
	index := &vectorIndexFake{deleted: 0}
	uc := NewExamAdminUseCase(&processRepoFake{}, &questionStoreFake{}, index, testLogger())

	if _, err := uc.Purge(context.Background(), "dbexam"); err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	if index.snapshots != 0 {
		t.Fatalf("no-op purge must not snapshot, got %d", index.snapshots)
	}
}

func TestPurgePropagatesRebuildFailure(t *testing.T) {
	index := &vectorIndexFake{deleteErr: domain.WrapError(domain.ErrEmbeddingUnavailable, "index rebuild", errors.New("down"))}
	uc := NewExamAdminUseCase(&processRepoFake{}, &questionStoreFake{}, index, testLogger())

	_, err := uc.Purge(context.Background(), "dbexam")
	if !domain.IsKind(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestStatsAggregatesAllStores(t *testing.T) {
	repo := &processRepoFake{listDocs: []domain.SourceDocument{
		{Filename: "a.pdf"},
		{Filename: "b.pdf"},
	}}
	store := &questionStoreFake{listRecords: []domain.QuestionRecord{
		{Number: "1"}, {Number: "2"}, {Number: "3"},
	}}
	index := &vectorIndexFake{total: 100, subjectCount: 30}
	uc := NewExamAdminUseCase(repo, store, index, testLogger())

	stats, err := uc.Stats(context.Background(), "dbexam")
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.DocumentCount != 2 || stats.QuestionCount != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.IndexedChunks != 30 || stats.IndexSize != 100 {
		t.Fatalf("index counts wrong: %+v", stats)
	}
	if len(stats.Sources) != 2 || stats.Sources[0] != "a.pdf" {
		t.Fatalf("sources wrong: %v", stats.Sources)
	}
}
