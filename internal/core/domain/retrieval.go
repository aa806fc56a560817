package domain

// SearchFilter narrows vector search results after the neighbor scan.
// Nearest-neighbor search cannot be pre-filtered by metadata, so the
// index over-fetches and drops rows that fail this filter.
type SearchFilter struct {
	Subject string
	Type    string
}

// RetrievedChunk is one ranked search hit. Distance is squared L2:
// smaller is closer.
type RetrievedChunk struct {
	Content  string    `json:"content"`
	Meta     ChunkMeta `json:"metadata"`
	Distance float64   `json:"distance"`
	Rank     int       `json:"rank"`
}

// ComposedContext is the generated-mode retrieval output handed to the
// external generation step.
type ComposedContext struct {
	Context string      `json:"context"`
	Meta    []ChunkMeta `json:"metadata"`
	Gated   bool        `json:"gated"`
	Query   string      `json:"query"`
}
