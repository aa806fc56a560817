package domain

// ValidationResult is the judgment for a single context chunk.
type ValidationResult struct {
	IsValid    bool    `json:"is_valid"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// ValidationReport describes what the context gate kept and dropped.
type ValidationReport struct {
	FilteredContext string      `json:"filtered_context"`
	FilteredMeta    []ChunkMeta `json:"filtered_metadata"`
	OriginalChunks  int         `json:"original_chunks"`
	FilteredChunks  int         `json:"filtered_chunks"`
	RemovedChunks   int         `json:"removed_chunks"`
	Reasons         []string    `json:"reasons"`
}

func (r ValidationReport) Accepted() bool {
	return r.FilteredChunks > 0
}
