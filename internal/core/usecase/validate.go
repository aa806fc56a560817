package usecase

import (
	"context"
	"crypto/md5"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/changsoo-Shin/ktds-jinseop/internal/core/domain"
	"github.com/changsoo-Shin/ktds-jinseop/internal/core/ports"
)

// ValidationCache stores judgment results keyed by (query, chunk hash).
type ValidationCache interface {
	Get(key string) (domain.ValidationResult, bool)
	Set(key string, result domain.ValidationResult)
}

// MemoryValidationCache is the default process-lifetime cache. It is
// unbounded and never invalidated: repeat-query latency is worth more
// here than the memory of storing small verdict structs.
type MemoryValidationCache struct {
	mu      sync.RWMutex
	entries map[string]domain.ValidationResult
}

func NewMemoryValidationCache() *MemoryValidationCache {
	return &MemoryValidationCache{entries: make(map[string]domain.ValidationResult)}
}

func (c *MemoryValidationCache) Get(key string) (domain.ValidationResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result, ok := c.entries[key]
	return result, ok
}

func (c *MemoryValidationCache) Set(key string, result domain.ValidationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = result
}

// chunk boundary heuristics for re-splitting a composed context:
// numbered, bulleted and lettered list markers.
var contextChunkMarkers = []*regexp.Regexp{
	regexp.MustCompile(`^\s*\d{1,3}[.)]\s`),
	regexp.MustCompile(`^\s*[-*•]\s`),
	regexp.MustCompile(`^\s*[a-zA-Z][.)]\s`),
}

type ContextValidator struct {
	judge  ports.Judge
	cache  ValidationCache
	logger *slog.Logger
}

func NewContextValidator(judge ports.Judge, cache ValidationCache, logger *slog.Logger) *ContextValidator {
	if cache == nil {
		cache = NewMemoryValidationCache()
	}
	return &ContextValidator{judge: judge, cache: cache, logger: logger}
}

// Validate judges every chunk of a candidate context independently and
// keeps the valid ones. A broken judgment backend fails open: the chunk
// passes with confidence 0.5 so retrieval never blocks on the judge.
// Metadata is truncated positionally to the surviving chunk count.
func (v *ContextValidator) Validate(
	ctx context.Context,
	query, contextText string,
	meta []domain.ChunkMeta,
) (*domain.ValidationReport, error) {
	chunks := splitContext(contextText)

	var (
		kept    []string
		reasons []string
	)
	for _, chunk := range chunks {
		result := v.judgeChunk(ctx, query, chunk)
		reasons = append(reasons, result.Reason)
		if result.IsValid {
			kept = append(kept, chunk)
		}
	}

	filteredMeta := meta
	if len(filteredMeta) > len(kept) {
		filteredMeta = filteredMeta[:len(kept)]
	}

	return &domain.ValidationReport{
		FilteredContext: strings.Join(kept, "\n\n"),
		FilteredMeta:    filteredMeta,
		OriginalChunks:  len(chunks),
		FilteredChunks:  len(kept),
		RemovedChunks:   len(chunks) - len(kept),
		Reasons:         reasons,
	}, nil
}

func (v *ContextValidator) judgeChunk(ctx context.Context, query, chunk string) domain.ValidationResult {
	key := cacheKey(query, chunk)
	if result, ok := v.cache.Get(key); ok {
		return result
	}

	raw, err := v.judge.Judge(ctx, buildJudgmentPrompt(query, chunk))
	if err != nil {
		v.logger.Warn("judgment backend unavailable, chunk passes open",
			slog.String("error", err.Error()),
		)
		return domain.ValidationResult{
			IsValid:    true,
			Confidence: 0.5,
			Reason:     fmt.Sprintf("judgment unavailable: %v", err),
		}
	}

	result := parseJudgment(raw)
	v.cache.Set(key, result)
	return result
}

func buildJudgmentPrompt(query, chunk string) string {
	return fmt.Sprintf(`You review retrieved study material for an exam preparation system.
Decide whether the material below is usable to answer the query.
Respond with exactly three lines:
Validity: VALID or INVALID
Confidence: a number from 0 to 1
Reason: one short sentence

Query:
%s

Material:
%s
`, query, chunk)
}

// parseJudgment reads the textual verdict fields. Anything the parser
// cannot understand passes open with middling confidence.
func parseJudgment(raw string) domain.ValidationResult {
	result := domain.ValidationResult{
		IsValid:    true,
		Confidence: 0.5,
		Reason:     "unparseable judgment",
	}

	sawValidity := false
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case hasFieldPrefix(line, "Validity:"):
			value := strings.ToUpper(fieldValue(line, "Validity:"))
			result.IsValid = strings.Contains(value, "VALID") && !strings.Contains(value, "INVALID")
			sawValidity = true
		case hasFieldPrefix(line, "Confidence:"):
			if f, err := strconv.ParseFloat(fieldValue(line, "Confidence:"), 64); err == nil {
				if f < 0 {
					f = 0
				}
				if f > 1 {
					f = 1
				}
				result.Confidence = f
			}
		case hasFieldPrefix(line, "Reason:"):
			result.Reason = fieldValue(line, "Reason:")
		}
	}
	if sawValidity && result.Reason == "unparseable judgment" {
		result.Reason = ""
	}
	return result
}

func hasFieldPrefix(line, prefix string) bool {
	return len(line) >= len(prefix) && strings.EqualFold(line[:len(prefix)], prefix)
}

func fieldValue(line, prefix string) string {
	return strings.TrimSpace(line[len(prefix):])
}

// splitContext cuts a composed context back into judgeable chunks on
// list-marker boundaries, falling back to blank-line paragraphs.
func splitContext(text string) []string {
	lines := strings.Split(text, "\n")

	var starts []int
	for idx, line := range lines {
		for _, marker := range contextChunkMarkers {
			if marker.MatchString(line) {
				starts = append(starts, idx)
				break
			}
		}
	}

	if len(starts) == 0 {
		return splitParagraphs(text)
	}

	var chunks []string
	for i, start := range starts {
		end := len(lines)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		chunk := strings.TrimSpace(strings.Join(lines[start:end], "\n"))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

func splitParagraphs(text string) []string {
	var out []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para != "" {
			out = append(out, para)
		}
	}
	return out
}

func cacheKey(query, chunk string) string {
	sum := md5.Sum([]byte(chunk))
	return fmt.Sprintf("%s|%x", query, sum)
}
