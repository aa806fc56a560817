package domain

// RecencyHistory is a bounded FIFO of question unique ids served to one
// exam tenant. When every candidate is excluded the history is cleared
// outright, trading strict recency for variety after exhaustion.
type RecencyHistory struct {
	ids []string
	cap int
}

const DefaultHistorySize = 10

func NewRecencyHistory(capacity int) *RecencyHistory {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &RecencyHistory{cap: capacity}
}

func (h *RecencyHistory) Contains(id string) bool {
	for _, seen := range h.ids {
		if seen == id {
			return true
		}
	}
	return false
}

// Push appends id and evicts the oldest entry past capacity.
func (h *RecencyHistory) Push(id string) {
	h.ids = append(h.ids, id)
	if len(h.ids) > h.cap {
		h.ids = h.ids[1:]
	}
}

func (h *RecencyHistory) Clear() {
	h.ids = h.ids[:0]
}

func (h *RecencyHistory) Len() int {
	return len(h.ids)
}

// IDs returns a copy of the tracked ids, oldest first.
func (h *RecencyHistory) IDs() []string {
	out := make([]string, len(h.ids))
	copy(out, h.ids)
	return out
}
