package store

// History is a fixed-capacity ring of check results in chronological order.
//
// Once full, each append evicts the oldest entry. History is not safe for
// concurrent use; [Registry] serializes all access to it.
type History struct {
	entries []CheckResult
	start   int // index of the oldest entry once the ring is full
	limit   int
}

// NewHistory creates an empty History holding at most limit entries.
// A limit below 1 is treated as 1.
func NewHistory(limit int) *History {
	if limit < 1 {
		limit = 1
	}
	return &History{limit: limit}
}

// Append records r as the newest entry.
func (h *History) Append(r CheckResult) {
	if len(h.entries) < h.limit {
		h.entries = append(h.entries, r)
		return
	}
	h.entries[h.start] = r
	h.start = (h.start + 1) % h.limit
}

// Len returns the number of retained entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Limit returns the capacity of the ring.
func (h *History) Limit() int {
	return h.limit
}

// Last returns the newest entry, if any.
func (h *History) Last() (CheckResult, bool) {
	if len(h.entries) == 0 {
		return CheckResult{}, false
	}
	if len(h.entries) < h.limit {
		return h.entries[len(h.entries)-1], true
	}
	return h.entries[(h.start+h.limit-1)%h.limit], true
}

// Entries returns a copy of the retained entries, oldest first.
// The result is never nil.
func (h *History) Entries() []CheckResult {
	out := make([]CheckResult, 0, len(h.entries))
	if len(h.entries) < h.limit {
		return append(out, h.entries...)
	}
	out = append(out, h.entries[h.start:]...)
	return append(out, h.entries[:h.start]...)
}
