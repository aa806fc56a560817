package flat

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/changsoo-Shin/ktds-jinseop/internal/core/domain"
	"github.com/changsoo-Shin/ktds-jinseop/internal/core/ports"
)

// overFetchFactor widens the nearest-neighbor request before metadata
// filtering; vector search cannot be pre-filtered by subject or type.
const overFetchFactor = 2

// Index is a brute-force squared-L2 index over parallel arrays.
// vectors[i], documents[i] and metadata[i] always describe the same
// entry; every mutating method either preserves that parity or leaves
// the index untouched.
type Index struct {
	embedder ports.Embedder
	dir      string
	logger   *slog.Logger

	mu         sync.RWMutex
	dim        int
	vectors    [][]float32
	documents  []string
	metadata   []domain.ChunkMeta
	generation uint64
}

func New(dir string, embedder ports.Embedder, logger *slog.Logger) (*Index, error) {
	idx := &Index{
		embedder: embedder,
		dir:      dir,
		logger:   logger,
	}
	if err := idx.load(); err != nil {
		return nil, err
	}
	return idx, nil
}

// Add embeds text and appends it. Embedding ids are assigned in call
// order; an embedding failure mutates nothing.
func (x *Index) Add(ctx context.Context, text string, meta domain.ChunkMeta) error {
	vec, err := x.embedder.Embed(ctx, text)
	if err != nil {
		x.logger.Warn("embedding unavailable, entry skipped",
			slog.String("chunk_id", meta.ID),
			slog.String("error", err.Error()),
		)
		return domain.WrapError(domain.ErrEmbeddingUnavailable, "index add", err)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.dim == 0 {
		x.dim = len(vec)
	}
	if len(vec) != x.dim {
		return domain.WrapError(domain.ErrIndexCorrupted, "index add",
			fmt.Errorf("vector dimension %d, index dimension %d", len(vec), x.dim))
	}

	meta.EmbeddingID = len(x.vectors)
	meta.Text = text
	x.vectors = append(x.vectors, vec)
	x.documents = append(x.documents, text)
	x.metadata = append(x.metadata, meta)
	return nil
}

// Search embeds the query and returns up to k entries by ascending
// squared-L2 distance. An empty index yields an empty result, not an
// error; an unavailable embedder yields the same.
func (x *Index) Search(ctx context.Context, query string, k int, filter domain.SearchFilter) ([]domain.RetrievedChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	x.mu.RLock()
	empty := len(x.vectors) == 0
	x.mu.RUnlock()
	if empty {
		return nil, nil
	}

	vec, err := x.embedder.Embed(ctx, query)
	if err != nil {
		x.logger.Warn("embedding unavailable, search degraded to empty",
			slog.String("error", err.Error()),
		)
		return nil, nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(vec) != x.dim {
		return nil, domain.WrapError(domain.ErrIndexCorrupted, "index search",
			fmt.Errorf("query dimension %d, index dimension %d", len(vec), x.dim))
	}

	type scored struct {
		id       int
		distance float32
	}
	candidates := make([]scored, 0, len(x.vectors))
	for i, v := range x.vectors {
		candidates = append(candidates, scored{id: i, distance: squaredL2(vec, v)})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].distance < candidates[j].distance })

	fetch := k * overFetchFactor
	if fetch > len(candidates) {
		fetch = len(candidates)
	}

	results := make([]domain.RetrievedChunk, 0, k)
	for _, c := range candidates[:fetch] {
		meta := x.metadata[c.id]
		if filter.Subject != "" && meta.Subject != filter.Subject {
			continue
		}
		if filter.Type != "" && meta.Type != filter.Type {
			continue
		}
		results = append(results, domain.RetrievedChunk{
			Content:  x.documents[c.id],
			Meta:     meta,
			Distance: float64(c.distance),
			Rank:     len(results),
		})
		if len(results) == k {
			break
		}
	}
	return results, nil
}

// DeleteBySubject drops every entry of one subject and rebuilds the
// index over the survivors, re-embedding each document text. The swap
// is all-or-nothing: a rebuild failure leaves the old index intact.
func (x *Index) DeleteBySubject(ctx context.Context, subject string) (int, error) {
	x.mu.RLock()
	keepDocs := make([]string, 0, len(x.documents))
	keepMeta := make([]domain.ChunkMeta, 0, len(x.metadata))
	removed := 0
	for i, m := range x.metadata {
		if m.Subject == subject {
			removed++
			continue
		}
		keepDocs = append(keepDocs, x.documents[i])
		keepMeta = append(keepMeta, m)
	}
	x.mu.RUnlock()

	if removed == 0 {
		return 0, nil
	}

	vectors := make([][]float32, 0, len(keepDocs))
	dim := 0
	for i, doc := range keepDocs {
		vec, err := x.embedder.Embed(ctx, doc)
		if err != nil {
			return 0, domain.WrapError(domain.ErrEmbeddingUnavailable, "index rebuild", err)
		}
		if dim == 0 {
			dim = len(vec)
		}
		if len(vec) != dim {
			return 0, domain.WrapError(domain.ErrIndexCorrupted, "index rebuild",
				fmt.Errorf("entry %d: vector dimension %d, expected %d", i, len(vec), dim))
		}
		keepMeta[i].EmbeddingID = i
		vectors = append(vectors, vec)
	}

	x.mu.Lock()
	x.vectors = vectors
	x.documents = keepDocs
	x.metadata = keepMeta
	x.dim = dim
	x.generation++
	gen := x.generation
	x.mu.Unlock()

	x.logger.Info("index rebuilt",
		slog.String("subject", subject),
		slog.Int("removed", removed),
		slog.Int("remaining", len(keepDocs)),
		slog.Uint64("generation", gen),
	)
	return removed, nil
}

func (x *Index) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors)
}

func (x *Index) CountBySubject(subject string) int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	n := 0
	for _, m := range x.metadata {
		if m.Subject == subject {
			n++
		}
	}
	return n
}

// Generation increments on every rebuild or restore; embedding ids
// from an older generation must not be dereferenced.
func (x *Index) Generation() uint64 {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.generation
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
