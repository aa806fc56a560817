package questionstore

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/changsoo-Shin/ktds-jinseop/internal/core/domain"
)

const containerExt = ".txt"

var blockMarker = regexp.MustCompile(`^=== Question (\S+) ===$`)

// Store keeps extracted questions in one human-readable container file
// per source document, grouped under a directory per exam. Re-running
// extraction replaces the whole container, never merges into it.
type Store struct {
	baseDir string
	now     func() time.Time

	mu sync.Mutex
}

func New(baseDir string) (*Store, error) {
	if baseDir == "" {
		baseDir = "./data/questions"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create question dir: %w", err)
	}
	return &Store{baseDir: baseDir, now: time.Now}, nil
}

func (s *Store) Replace(exam, sourceFile string, questions []domain.QuestionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.baseDir, sanitize(exam))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create exam dir: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Subject: %s\n", exam)
	fmt.Fprintf(&b, "# Source: %s\n", sourceFile)
	fmt.Fprintf(&b, "# Extracted: %s\n", s.now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "# Total: %d\n\n", len(questions))
	for _, q := range questions {
		fmt.Fprintf(&b, "=== Question %s ===\n%s\n\n", q.Number, strings.TrimSpace(q.Text))
	}

	path := filepath.Join(dir, sanitize(sourceFile)+containerExt)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write container: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace container: %w", err)
	}
	return nil
}

// List returns every question of an exam across all of its source
// containers, ordered by source then numeric question number.
func (s *Store) List(exam string) ([]domain.QuestionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(exam)
}

func (s *Store) list(exam string) ([]domain.QuestionRecord, error) {
	dir := filepath.Join(s.baseDir, sanitize(exam))
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read exam dir: %w", err)
	}

	var out []domain.QuestionRecord
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), containerExt) {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read container %s: %w", entry.Name(), err)
		}
		out = append(out, parseContainer(string(raw))...)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].SourceFile != out[j].SourceFile {
			return out[i].SourceFile < out[j].SourceFile
		}
		return questionOrdinal(out[i].Number) < questionOrdinal(out[j].Number)
	})
	return out, nil
}

// Search is a case-insensitive substring scan over question texts. It
// complements vector search for literal terms the embedding may miss.
func (s *Store) Search(exam, query string, limit int) ([]domain.QuestionRecord, error) {
	questions, err := s.List(exam)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	needle := strings.ToLower(query)
	var out []domain.QuestionRecord
	for _, q := range questions {
		if strings.Contains(strings.ToLower(q.Text), needle) {
			out = append(out, q)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// RemoveExam deletes every container of one exam and reports how many
// questions were removed with them.
func (s *Store) RemoveExam(exam string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	questions, err := s.list(exam)
	if err != nil {
		return 0, err
	}
	if err := os.RemoveAll(filepath.Join(s.baseDir, sanitize(exam))); err != nil {
		return 0, fmt.Errorf("remove exam dir: %w", err)
	}
	return len(questions), nil
}

func parseContainer(raw string) []domain.QuestionRecord {
	var (
		records   []domain.QuestionRecord
		source    string
		extracted time.Time
		buf       []string

		current   string
		startLine int
	)

	flush := func(endLine int) {
		if current == "" {
			return
		}
		body := strings.TrimSpace(strings.Join(buf, "\n"))
		buf = buf[:0]
		if body == "" {
			return
		}
		records = append(records, domain.QuestionRecord{
			Number:         current,
			Text:           body,
			SourceFile:     source,
			ExtractionDate: extracted,
			StartLine:      startLine,
			EndLine:        endLine,
		})
	}

	for idx, line := range strings.Split(raw, "\n") {
		switch {
		case strings.HasPrefix(line, "# Source: "):
			source = strings.TrimPrefix(line, "# Source: ")
		case strings.HasPrefix(line, "# Extracted: "):
			if ts, err := time.Parse(time.RFC3339, strings.TrimPrefix(line, "# Extracted: ")); err == nil {
				extracted = ts
			}
		case strings.HasPrefix(line, "# "):
			// remaining header lines carry no record state
		default:
			if m := blockMarker.FindStringSubmatch(line); m != nil {
				flush(idx - 1)
				current = m[1]
				startLine = idx
				continue
			}
			if current != "" {
				buf = append(buf, line)
			}
		}
	}
	flush(len(strings.Split(raw, "\n")) - 1)
	return records
}

func questionOrdinal(number string) int {
	n, err := strconv.Atoi(number)
	if err != nil {
		return 1 << 30
	}
	return n
}

func sanitize(name string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", "..", "_", " ", "_")
	out := replacer.Replace(strings.TrimSpace(name))
	if out == "" {
		out = "unnamed"
	}
	return out
}
