package chunking

import (
	"crypto/md5"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/changsoo-Shin/ktds-jinseop/internal/core/domain"
)

type Config struct {
	// FlushChars is the accumulated size at which a non-table buffer
	// becomes a chunk. Tables are exempt and emitted whole.
	FlushChars int
	// MinChunkChars drops non-table flushes that are too small to be
	// useful retrieval units.
	MinChunkChars int
	// MinTableChars is the lower drop bound for table chunks. Kept
	// separate because even a tiny table carries structure worth
	// indexing.
	MinTableChars int
}

func (c Config) normalize() Config {
	out := c
	if out.FlushChars <= 0 {
		out.FlushChars = 1000
	}
	if out.MinChunkChars <= 0 {
		out.MinChunkChars = 100
	}
	if out.MinTableChars <= 0 {
		out.MinTableChars = 50
	}
	return out
}

// Builder cuts text into overlap-free chunks, keeping tabular regions
// atomic so a table row is never separated from its header.
type Builder struct {
	cfg Config
	now func() time.Time
}

func NewBuilder(cfg Config) *Builder {
	return &Builder{cfg: cfg.normalize(), now: time.Now}
}

func (b *Builder) Build(text, subject string) []domain.Chunk {
	var (
		chunks      []domain.Chunk
		buf         []string
		bufLen      int
		withinTable bool
	)

	flush := func(isTable bool) {
		if len(buf) == 0 {
			return
		}
		body := strings.TrimSpace(strings.Join(buf, "\n"))
		buf = buf[:0]
		bufLen = 0
		if body == "" {
			return
		}
		min := b.cfg.MinChunkChars
		if isTable {
			min = b.cfg.MinTableChars
		}
		if utf8.RuneCountInString(body) < min {
			return
		}
		chunks = append(chunks, domain.Chunk{
			ID:        chunkID(subject, len(chunks), body),
			Text:      body,
			Subject:   subject,
			IsTable:   isTable,
			CreatedAt: b.now(),
		})
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimRight(raw, "\r")
		tabular := isTableLine(line)

		switch {
		case tabular && !withinTable:
			flush(false)
			withinTable = true
		case !tabular && withinTable:
			flush(true)
			withinTable = false
		}

		buf = append(buf, line)
		bufLen += utf8.RuneCountInString(line) + 1

		if !withinTable && bufLen >= b.cfg.FlushChars {
			flush(false)
		}
	}
	flush(withinTable)

	return chunks
}

// isTableLine treats a line as tabular when it opens with a cell
// delimiter, or carries several delimiters in a line long enough to
// not be prose with a stray pipe.
func isTableLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "|") {
		return true
	}
	return utf8.RuneCountInString(trimmed) > 10 && strings.Count(trimmed, "|") >= 2
}

// chunkID is content-derived identity, not used for deduplication.
func chunkID(subject string, ordinal int, body string) string {
	head := []rune(body)
	if len(head) > 50 {
		head = head[:50]
	}
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%d_%s", subject, ordinal, string(head))))
	return fmt.Sprintf("%x", sum)
}
