package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/changsoo-Shin/ktds-jinseop/internal/core/domain"
)

func acceptAllValidator() *ContextValidator {
	judge := &judgeFake{respond: func(string) (string, error) {
		return "Validity: VALID\nConfidence: 0.9\nReason: fine", nil
	}}
	return NewContextValidator(judge, nil, testLogger())
}

func rejectAllValidator() *ContextValidator {
	judge := &judgeFake{respond: func(string) (string, error) {
		return "Validity: INVALID\nConfidence: 0.9\nReason: junk", nil
	}}
	return NewContextValidator(judge, nil, testLogger())
}

func composeIndexFake() *vectorIndexFake {
	return &vectorIndexFake{searchHits: []domain.RetrievedChunk{
		{
			Content:  "1. material about indexes",
			Meta:     domain.ChunkMeta{ID: "c1", Subject: "dbexam", Type: domain.MetaTypeChunk},
			Distance: 0.1,
		},
	}}
}

func TestComposeReturnsGatedContext(t *testing.T) {
	uc := NewComposeContextUseCase(composeIndexFake(), &questionStoreFake{}, acceptAllValidator(), testLogger())

	out, err := uc.Compose(context.Background(), "dbexam", []string{"indexes"}, 5)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if !out.Gated {
		t.Fatal("accepted context must be gated")
	}
	if !strings.Contains(out.Context, "material about indexes") {
		t.Fatalf("context lost: %q", out.Context)
	}
	if out.Query != "indexes" {
		t.Fatalf("wrong winning query: %q", out.Query)
	}
}

func TestComposeMergesLiteralQuestionMatches(t *testing.T) {
	store := &questionStoreFake{searchHits: []domain.QuestionRecord{
		{Number: "3", Text: "3. Define a clustered index.", SourceFile: "a.pdf"},
	}}
	uc := NewComposeContextUseCase(composeIndexFake(), store, acceptAllValidator(), testLogger())

	out, err := uc.Compose(context.Background(), "dbexam", []string{"clustered index"}, 5)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if !strings.Contains(out.Context, "clustered index") {
		t.Fatalf("literal match not merged: %q", out.Context)
	}
	if len(out.Meta) != 2 {
		t.Fatalf("expected vector + literal entries, got %d", len(out.Meta))
	}
}

func TestComposeFallsBackUngatedAfterAllRejections(t *testing.T) {
	uc := NewComposeContextUseCase(composeIndexFake(), &questionStoreFake{}, rejectAllValidator(), testLogger())

	out, err := uc.Compose(context.Background(), "dbexam", []string{"primary", "alt one", "alt two"}, 5)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if out.Gated {
		t.Fatal("fallback context must be marked ungated")
	}
	if out.Query != "primary" {
		t.Fatalf("fallback must serve the primary query's context, got %q", out.Query)
	}
	if out.Context == "" {
		t.Fatal("fallback context empty")
	}
}

func TestComposeNoCandidatesIsTypedNotFound(t *testing.T) {
	uc := NewComposeContextUseCase(&vectorIndexFake{}, &questionStoreFake{}, acceptAllValidator(), testLogger())

	_, err := uc.Compose(context.Background(), "dbexam", []string{"anything"}, 5)
	if !domain.IsKind(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
}

func TestComposeRejectsBlankQueries(t *testing.T) {
	uc := NewComposeContextUseCase(&vectorIndexFake{}, &questionStoreFake{}, acceptAllValidator(), testLogger())

	_, err := uc.Compose(context.Background(), "dbexam", []string{"  ", ""}, 5)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
