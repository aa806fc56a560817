package questionstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/changsoo-Shin/ktds-jinseop/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func sampleQuestions() []domain.QuestionRecord {
	return []domain.QuestionRecord{
		{Number: "1", Text: "1. What is a foreign key constraint?"},
		{Number: "2", Text: "2. Explain TCP slow start.\nInclude the congestion window."},
	}
}

func TestReplaceWritesReadableContainer(t *testing.T) {
	s := newTestStore(t)

	if err := s.Replace("dbexam", "2024_spring.pdf", sampleQuestions()); err != nil {
		t.Fatalf("replace: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(s.baseDir, "dbexam", "2024_spring.pdf.txt"))
	if err != nil {
		t.Fatalf("read container: %v", err)
	}
	content := string(raw)
	for _, want := range []string{
		"# Subject: dbexam",
		"# Source: 2024_spring.pdf",
		"# Total: 2",
		"=== Question 1 ===",
		"=== Question 2 ===",
		"congestion window",
	} {
		if !strings.Contains(content, want) {
			t.Fatalf("container missing %q:\n%s", want, content)
		}
	}
}

func TestListRoundTripsQuestions(t *testing.T) {
	s := newTestStore(t)

	if err := s.Replace("dbexam", "2024_spring.pdf", sampleQuestions()); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := s.List("dbexam")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(got))
	}
	if got[0].Number != "1" || got[1].Number != "2" {
		t.Fatalf("wrong order: %s, %s", got[0].Number, got[1].Number)
	}
	if got[1].Text != "2. Explain TCP slow start.\nInclude the congestion window." {
		t.Fatalf("multi-line body lost: %q", got[1].Text)
	}
	if got[0].SourceFile != "2024_spring.pdf" {
		t.Fatalf("source not recovered: %q", got[0].SourceFile)
	}
	if got[0].ExtractionDate.IsZero() {
		t.Fatal("extraction date not recovered")
	}
}

func TestListSortsNumericallyNotLexically(t *testing.T) {
	s := newTestStore(t)

	questions := []domain.QuestionRecord{
		{Number: "10", Text: "10. tenth question body"},
		{Number: "2", Text: "2. second question body"},
	}
	if err := s.Replace("dbexam", "a.pdf", questions); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := s.List("dbexam")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got[0].Number != "2" || got[1].Number != "10" {
		t.Fatalf("expected numeric order 2, 10; got %s, %s", got[0].Number, got[1].Number)
	}
}

func TestReplaceOverwritesWholeContainer(t *testing.T) {
	s := newTestStore(t)

	if err := s.Replace("dbexam", "a.pdf", sampleQuestions()); err != nil {
		t.Fatalf("first replace: %v", err)
	}
	if err := s.Replace("dbexam", "a.pdf", []domain.QuestionRecord{
		{Number: "7", Text: "7. the only surviving question"},
	}); err != nil {
		t.Fatalf("second replace: %v", err)
	}

	got, err := s.List("dbexam")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Number != "7" {
		t.Fatalf("container not fully replaced: %+v", got)
	}
}

func TestListSpansMultipleSources(t *testing.T) {
	s := newTestStore(t)

	if err := s.Replace("dbexam", "b.pdf", []domain.QuestionRecord{
		{Number: "1", Text: "1. question from source b"},
	}); err != nil {
		t.Fatalf("replace b: %v", err)
	}
	if err := s.Replace("dbexam", "a.pdf", []domain.QuestionRecord{
		{Number: "1", Text: "1. question from source a"},
	}); err != nil {
		t.Fatalf("replace a: %v", err)
	}

	got, err := s.List("dbexam")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(got))
	}
	if got[0].SourceFile != "a.pdf" || got[1].SourceFile != "b.pdf" {
		t.Fatalf("sources not ordered: %s, %s", got[0].SourceFile, got[1].SourceFile)
	}
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	s := newTestStore(t)

	if err := s.Replace("dbexam", "a.pdf", sampleQuestions()); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := s.Search("dbexam", "tcp SLOW", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].Number != "2" {
		t.Fatalf("expected question 2, got %+v", got)
	}

	if got, _ := s.Search("dbexam", "", 10); len(got) != 0 {
		t.Fatalf("blank query must match nothing, got %d", len(got))
	}
}

func TestSearchHonorsLimit(t *testing.T) {
	s := newTestStore(t)

	questions := []domain.QuestionRecord{
		{Number: "1", Text: "1. index question one"},
		{Number: "2", Text: "2. index question two"},
		{Number: "3", Text: "3. index question three"},
	}
	if err := s.Replace("dbexam", "a.pdf", questions); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := s.Search("dbexam", "index question", 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("limit not applied, got %d", len(got))
	}
}

func TestRemoveExamReportsCount(t *testing.T) {
	s := newTestStore(t)

	if err := s.Replace("dbexam", "a.pdf", sampleQuestions()); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := s.Replace("netexam", "n.pdf", sampleQuestions()[:1]); err != nil {
		t.Fatalf("replace other exam: %v", err)
	}

	removed, err := s.RemoveExam("dbexam")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if got, _ := s.List("dbexam"); len(got) != 0 {
		t.Fatalf("exam not removed, %d questions remain", len(got))
	}
	if got, _ := s.List("netexam"); len(got) != 1 {
		t.Fatalf("unrelated exam touched, %d questions remain", len(got))
	}
}

func TestListUnknownExamIsEmpty(t *testing.T) {
	s := newTestStore(t)
	got, err := s.List("missing")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty, got %d", len(got))
	}
}
