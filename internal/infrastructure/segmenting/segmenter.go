package segmenting

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/changsoo-Shin/ktds-jinseop/internal/core/domain"
)

// Boundary patterns, most specific first: keyworded forms win over bare
// numbered forms so "Question 12." is never claimed by the plain "12."
// rule. Group 1 always captures the question number.
var boundaryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\s*(?:Question|QUESTION|Q)\s*(\d{1,3})\s*[.)]?\s+`),
	regexp.MustCompile(`^\s*(?:No|NO)\.\s*(\d{1,3})\s*[.)]?\s*`),
	regexp.MustCompile(`^\s*-\s*(\d{1,3})\.\s+`),
	regexp.MustCompile(`^\s*-\s*(\d{1,3})\)\s+`),
	regexp.MustCompile(`^\s*(\d{1,3})\.\s+`),
	regexp.MustCompile(`^\s*(\d{1,3})\)\s+`),
	regexp.MustCompile(`^\s*-\s*(\d{1,3})\.\s*$`),
	regexp.MustCompile(`^\s*(\d{1,3})\.\s*$`),
	regexp.MustCompile(`^\s*\((\d{1,3})\)\s*`),
	regexp.MustCompile(`^\s*\[(\d{1,3})\]\s*`),
}

type DuplicatePolicy string

const (
	// KeepFirst treats later same-numbered matches as OCR false
	// positives and absorbs them into the earlier span.
	KeepFirst DuplicatePolicy = "first"
	KeepLast  DuplicatePolicy = "last"
)

type Config struct {
	// MaxNumber is the ceiling for a captured question number. Full
	// documents use 999; the simplified single-file mode uses 200.
	MaxNumber int
	// MinSpanChars rejects spans that are too short to be a question.
	MinSpanChars int
	// ParagraphFloor is the minimum size of a fallback paragraph unit.
	ParagraphFloor int
	Duplicates     DuplicatePolicy
}

func (c Config) normalize() Config {
	out := c
	if out.MaxNumber <= 0 {
		out.MaxNumber = 999
	}
	if out.MinSpanChars <= 0 {
		out.MinSpanChars = 30
	}
	if out.ParagraphFloor <= 0 {
		out.ParagraphFloor = 40
	}
	if out.Duplicates == "" {
		out.Duplicates = KeepFirst
	}
	return out
}

type Segmenter struct {
	cfg Config
}

func New(cfg Config) *Segmenter {
	return &Segmenter{cfg: cfg.normalize()}
}

type boundary struct {
	line   int
	number int
}

// Segment turns line-oriented text into ordered, non-overlapping
// question records. Matching is two-phase: every line/number match is
// collected first, then duplicates are resolved and spans are cut
// between surviving boundaries. With zero boundaries the text falls
// back to paragraph units without question numbers.
func (s *Segmenter) Segment(text string) []domain.QuestionRecord {
	lines := strings.Split(text, "\n")

	found := s.collectBoundaries(lines)
	if len(found) == 0 {
		return s.paragraphFallback(lines)
	}

	kept := s.resolveDuplicates(found)

	sort.Slice(kept, func(i, j int) bool { return kept[i].number < kept[j].number })

	starts := make([]int, 0, len(kept))
	for _, b := range kept {
		starts = append(starts, b.line)
	}
	sort.Ints(starts)

	records := make([]domain.QuestionRecord, 0, len(kept))
	for _, b := range kept {
		end := len(lines)
		if pos := sort.SearchInts(starts, b.line+1); pos < len(starts) {
			end = starts[pos]
		}

		body := joinSpan(lines[b.line:end])
		if utf8.RuneCountInString(body) < s.cfg.MinSpanChars {
			continue
		}
		records = append(records, domain.QuestionRecord{
			Number:    strconv.Itoa(b.number),
			Text:      body,
			StartLine: b.line,
			EndLine:   end - 1,
		})
	}
	return records
}

func (s *Segmenter) collectBoundaries(lines []string) []boundary {
	var found []boundary
	for idx, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		for _, pattern := range boundaryPatterns {
			m := pattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			n, err := strconv.Atoi(m[1])
			if err != nil || n < 1 || n > s.cfg.MaxNumber {
				continue
			}
			found = append(found, boundary{line: idx, number: n})
			break
		}
	}
	return found
}

func (s *Segmenter) resolveDuplicates(found []boundary) []boundary {
	seen := make(map[int]int, len(found))
	kept := make([]boundary, 0, len(found))
	for _, b := range found {
		if at, ok := seen[b.number]; ok {
			if s.cfg.Duplicates == KeepLast {
				kept[at] = b
			}
			continue
		}
		seen[b.number] = len(kept)
		kept = append(kept, b)
	}
	return kept
}

func (s *Segmenter) paragraphFallback(lines []string) []domain.QuestionRecord {
	var records []domain.QuestionRecord
	var buf []string
	start := 0

	flush := func(end int) {
		if len(buf) == 0 {
			return
		}
		body := strings.TrimSpace(strings.Join(buf, "\n"))
		buf = buf[:0]
		if utf8.RuneCountInString(body) < s.cfg.ParagraphFloor {
			return
		}
		records = append(records, domain.QuestionRecord{
			Text:      body,
			StartLine: start,
			EndLine:   end,
		})
	}

	for idx, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		if strings.TrimSpace(line) == "" {
			flush(idx - 1)
			continue
		}
		if len(buf) == 0 {
			start = idx
		}
		buf = append(buf, line)
	}
	flush(len(lines) - 1)
	return records
}

func joinSpan(lines []string) string {
	kept := make([]string, 0, len(lines))
	for _, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
