package docfile

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/changsoo-Shin/ktds-jinseop/internal/core/domain"
	"github.com/changsoo-Shin/ktds-jinseop/internal/core/ports"
)

// Extractor reads a stored document and returns its plain text. PDF
// sources go through the pdf reader; anything else must already be
// valid UTF-8 text or markdown.
type Extractor struct {
	storage ports.ObjectStorage
}

func New(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.SourceDocument) (string, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}

	if isPDF(doc, raw) {
		text, err := extractPDF(raw)
		if err != nil {
			return "", domain.WrapError(domain.ErrExtraction, "extract pdf", err)
		}
		return text, nil
	}

	if !utf8.Valid(raw) {
		return "", domain.WrapError(domain.ErrExtraction, "extract text",
			fmt.Errorf("unsupported binary format: %s", doc.Filename))
	}
	return strings.TrimSpace(string(raw)), nil
}

func isPDF(doc *domain.SourceDocument, raw []byte) bool {
	if doc.MimeType == "application/pdf" {
		return true
	}
	if strings.EqualFold(filepath.Ext(doc.Filename), ".pdf") {
		return true
	}
	return bytes.HasPrefix(raw, []byte("%PDF-"))
}

func extractPDF(raw []byte) (text string, err error) {
	// the pdf reader panics on some malformed files instead of
	// returning an error
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("malformed pdf: %v", p)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	for page := 1; page <= r.NumPage(); page++ {
		p := r.Page(page)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", page, err)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", fmt.Errorf("no extractable text")
	}
	return out, nil
}
