package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/changsoo-Shin/ktds-jinseop/internal/core/domain"
)

type statusCall struct {
	status domain.DocumentStatus
	errMsg string
}

type processRepoFake struct {
	doc         *domain.SourceDocument
	getErr      error
	statsErr    error
	statusCalls []statusCall
	savedStats  domain.ExtractionStats
	listDocs    []domain.SourceDocument
	listErr     error
}

func (f *processRepoFake) Create(context.Context, *domain.SourceDocument) error { return nil }

func (f *processRepoFake) GetByID(context.Context, string) (*domain.SourceDocument, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	copyDoc := *f.doc
	return &copyDoc, nil
}

func (f *processRepoFake) UpdateStatus(_ context.Context, _ string, status domain.DocumentStatus, errMessage string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	return nil
}

func (f *processRepoFake) SaveExtractionStats(_ context.Context, _ string, stats domain.ExtractionStats) error {
	if f.statsErr != nil {
		return f.statsErr
	}
	f.savedStats = stats
	return nil
}

func (f *processRepoFake) ListByExam(context.Context, string) ([]domain.SourceDocument, error) {
	return f.listDocs, f.listErr
}

type textExtractorFake struct {
	text string
	err  error
}

func (f *textExtractorFake) Extract(context.Context, *domain.SourceDocument) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type segmenterFake struct {
	records []domain.QuestionRecord
}

func (f *segmenterFake) Segment(string) []domain.QuestionRecord {
	out := make([]domain.QuestionRecord, len(f.records))
	copy(out, f.records)
	return out
}

type chunkerFake struct {
	chunks []domain.Chunk
}

func (f *chunkerFake) Build(string, string) []domain.Chunk { return f.chunks }

type questionStoreFake struct {
	replaced     map[string][]domain.QuestionRecord
	replaceErr   error
	listRecords  []domain.QuestionRecord
	listErr      error
	searchHits   []domain.QuestionRecord
	removedCount int
	removeErr    error
}

func (f *questionStoreFake) Replace(exam, sourceFile string, questions []domain.QuestionRecord) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	if f.replaced == nil {
		f.replaced = make(map[string][]domain.QuestionRecord)
	}
	f.replaced[exam+"/"+sourceFile] = questions
	return nil
}

func (f *questionStoreFake) List(string) ([]domain.QuestionRecord, error) {
	return f.listRecords, f.listErr
}

func (f *questionStoreFake) Search(string, string, int) ([]domain.QuestionRecord, error) {
	return f.searchHits, nil
}

func (f *questionStoreFake) RemoveExam(string) (int, error) {
	if f.removeErr != nil {
		return 0, f.removeErr
	}
	return f.removedCount, nil
}

type vectorIndexFake struct {
	added        []domain.ChunkMeta
	failAfter    int
	addErr       error
	searchHits   []domain.RetrievedChunk
	searchErr    error
	deleted      int
	deleteErr    error
	snapshots    int
	snapshotErr  error
	total        int
	subjectCount int
}

func (f *vectorIndexFake) Add(_ context.Context, _ string, meta domain.ChunkMeta) error {
	if f.addErr != nil && len(f.added) >= f.failAfter {
		return f.addErr
	}
	f.added = append(f.added, meta)
	return nil
}

func (f *vectorIndexFake) Search(context.Context, string, int, domain.SearchFilter) ([]domain.RetrievedChunk, error) {
	return f.searchHits, f.searchErr
}

func (f *vectorIndexFake) DeleteBySubject(context.Context, string) (int, error) {
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	return f.deleted, nil
}

func (f *vectorIndexFake) Snapshot() error {
	if f.snapshotErr != nil {
		return f.snapshotErr
	}
	f.snapshots++
	return nil
}

func (f *vectorIndexFake) Count() int { return f.total }

func (f *vectorIndexFake) CountBySubject(string) int { return f.subjectCount }

func newProcessUseCase(
	repo *processRepoFake,
	extractor *textExtractorFake,
	seg *segmenterFake,
	chunker *chunkerFake,
	store *questionStoreFake,
	index *vectorIndexFake,
) *ProcessDocumentUseCase {
	return NewProcessDocumentUseCase(repo, extractor, seg, chunker, store, index, testLogger())
}

func processDoc() *domain.SourceDocument {
	return &domain.SourceDocument{
		ID:       "doc-1",
		Exam:     "dbexam",
		Filename: "2024_spring.pdf",
		Status:   domain.StatusUploaded,
	}
}

func TestProcessHappyPath(t *testing.T) {
	repo := &processRepoFake{doc: processDoc()}
	seg := &segmenterFake{records: []domain.QuestionRecord{
		{Number: "1", Text: "1. first question"},
		{Number: "2", Text: "2. second question"},
	}}
	chunker := &chunkerFake{chunks: []domain.Chunk{
		{ID: "c1", Text: "chunk text", Subject: "dbexam"},
	}}
	store := &questionStoreFake{}
	index := &vectorIndexFake{}
	uc := newProcessUseCase(repo, &textExtractorFake{text: "raw text"}, seg, chunker, store, index)

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}

	if len(repo.statusCalls) != 2 ||
		repo.statusCalls[0].status != domain.StatusProcessing ||
		repo.statusCalls[1].status != domain.StatusReady {
		t.Fatalf("unexpected status transitions: %+v", repo.statusCalls)
	}

	replaced := store.replaced["dbexam/2024_spring.pdf"]
	if len(replaced) != 2 {
		t.Fatalf("expected 2 questions persisted, got %d", len(replaced))
	}
	if replaced[0].SourceFile != "2024_spring.pdf" || replaced[0].ExtractionDate.IsZero() {
		t.Fatalf("question not normalized: %+v", replaced[0])
	}

	if len(index.added) != 3 {
		t.Fatalf("expected 2 questions + 1 chunk indexed, got %d", len(index.added))
	}
	if index.added[0].Type != domain.MetaTypeQuestion || index.added[2].Type != domain.MetaTypeChunk {
		t.Fatalf("unexpected meta types: %+v", index.added)
	}
	if index.snapshots != 1 {
		t.Fatalf("expected 1 snapshot, got %d", index.snapshots)
	}

	want := domain.ExtractionStats{QuestionCount: 2, ChunkCount: 1, IndexedCount: 3}
	if repo.savedStats != want {
		t.Fatalf("stats = %+v, want %+v", repo.savedStats, want)
	}
}

func TestProcessSynthesizesOrdinalsForFallbackUnits(t *testing.T) {
	repo := &processRepoFake{doc: processDoc()}
	seg := &segmenterFake{records: []domain.QuestionRecord{
		{Text: "an unnumbered paragraph unit"},
		{Text: "another unnumbered unit"},
	}}
	store := &questionStoreFake{}
	uc := newProcessUseCase(repo, &textExtractorFake{text: "raw"}, seg, &chunkerFake{}, store, &vectorIndexFake{})

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	replaced := store.replaced["dbexam/2024_spring.pdf"]
	if replaced[0].Number != "1" || replaced[1].Number != "2" {
		t.Fatalf("ordinals not synthesized: %+v", replaced)
	}
}

func TestProcessMarksFailedOnExtractionError(t *testing.T) {
	repo := &processRepoFake{doc: processDoc()}
	extractor := &textExtractorFake{err: domain.WrapError(domain.ErrExtraction, "extract pdf", errors.New("corrupt file"))}
	uc := newProcessUseCase(repo, extractor, &segmenterFake{}, &chunkerFake{}, &questionStoreFake{}, &vectorIndexFake{})

	err := uc.ProcessByID(context.Background(), "doc-1")
	if !domain.IsKind(err, domain.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}

	last := repo.statusCalls[len(repo.statusCalls)-1]
	if last.status != domain.StatusFailed {
		t.Fatalf("expected failed status, got %s", last.status)
	}
	if !strings.Contains(last.errMsg, "corrupt file") {
		t.Fatalf("failure message lost: %q", last.errMsg)
	}
}

func TestProcessRejectsEmptyExtractedText(t *testing.T) {
	repo := &processRepoFake{doc: processDoc()}
	uc := newProcessUseCase(repo, &textExtractorFake{text: ""}, &segmenterFake{}, &chunkerFake{}, &questionStoreFake{}, &vectorIndexFake{})

	err := uc.ProcessByID(context.Background(), "doc-1")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestProcessDegradesWhenEmbeddingUnavailable(t *testing.T) {
	repo := &processRepoFake{doc: processDoc()}
	seg := &segmenterFake{records: []domain.QuestionRecord{
		{Number: "1", Text: "1. first"},
		{Number: "2", Text: "2. second"},
	}}
	index := &vectorIndexFake{
		failAfter: 1,
		addErr:    domain.WrapError(domain.ErrEmbeddingUnavailable, "index add", errors.New("backend down")),
	}
	uc := newProcessUseCase(repo, &textExtractorFake{text: "raw"}, seg, &chunkerFake{}, &questionStoreFake{}, index)

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("embedding outage must not fail the document, got %v", err)
	}

	last := repo.statusCalls[len(repo.statusCalls)-1]
	if last.status != domain.StatusReady {
		t.Fatalf("expected ready status, got %s", last.status)
	}
	if repo.savedStats.IndexedCount != 1 {
		t.Fatalf("expected 1 indexed before outage, got %d", repo.savedStats.IndexedCount)
	}
	if index.snapshots != 1 {
		t.Fatalf("snapshot must still run, got %d", index.snapshots)
	}
}
