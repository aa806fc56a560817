package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrTemporary        = errors.New("temporary failure")

	// ErrExtraction marks a source document the extractor cannot read;
	// the document is skipped, not retried.
	ErrExtraction = errors.New("extraction failed")

	// ErrEmbeddingUnavailable means the embedding backend never came up.
	// The index degrades: search returns nothing, add becomes a no-op.
	ErrEmbeddingUnavailable = errors.New("embedding backend unavailable")

	// ErrJudgmentUnavailable means the judgment backend failed; the
	// validator fails open instead of blocking.
	ErrJudgmentUnavailable = errors.New("judgment backend unavailable")

	// ErrIndexCorrupted signals a parity violation between the vector
	// rows and the metadata array. The only remedy is a full rebuild
	// from the persisted document texts.
	ErrIndexCorrupted = errors.New("vector index corrupted")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
