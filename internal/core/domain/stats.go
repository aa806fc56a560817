package domain

// ExamStats aggregates what the system currently holds for one exam.
type ExamStats struct {
	Exam          string   `json:"exam"`
	DocumentCount int      `json:"document_count"`
	QuestionCount int      `json:"question_count"`
	IndexedChunks int      `json:"indexed_chunks"`
	IndexSize     int      `json:"index_size"`
	Sources       []string `json:"sources"`
}

// PurgeResult reports what a tenant delete removed.
type PurgeResult struct {
	Exam             string `json:"exam"`
	RemovedVectors   int    `json:"removed_vectors"`
	RemovedQuestions int    `json:"removed_questions"`
}
