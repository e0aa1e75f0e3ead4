package logging

import (
	"sync"
	"time"
)

// LogEntry is one buffered log line. Seq is assigned by the buffer and
// increases by one per entry, so readers can tell replayed lines from new ones.
type LogEntry struct {
	Seq        uint64         `json:"seq"`
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// RingBuffer keeps the newest entries in a fixed-size circular slice.
type RingBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	next    int // slot the next Write fills
	full    bool
	seq     uint64
}

// NewRingBuffer creates a buffer holding up to size entries (minimum 1).
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{entries: make([]LogEntry, max(size, 1))}
}

// Write stores entry, evicting the oldest when full, and returns it with
// its sequence number set.
func (rb *RingBuffer) Write(entry LogEntry) LogEntry {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.seq++
	entry.Seq = rb.seq
	rb.entries[rb.next] = entry
	rb.next++
	if rb.next == len(rb.entries) {
		rb.next = 0
		rb.full = true
	}
	return entry
}

// ReadAll returns every buffered entry, oldest first.
func (rb *RingBuffer) ReadAll() []LogEntry {
	return rb.Query("", 0)
}

// Query returns buffered entries from module (all when empty), oldest first.
// A positive limit keeps only the newest limit matches.
func (rb *RingBuffer) Query(module string, limit int) []LogEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	var out []LogEntry
	rb.each(func(e LogEntry) {
		if module == "" || e.Module == module {
			out = append(out, e)
		}
	})
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// LastSeq is the sequence number of the newest entry, 0 when nothing was written.
func (rb *RingBuffer) LastSeq() uint64 {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.seq
}

// Count returns the number of buffered entries.
func (rb *RingBuffer) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	if rb.full {
		return len(rb.entries)
	}
	return rb.next
}

// each walks entries oldest first. Caller holds mu.
func (rb *RingBuffer) each(fn func(LogEntry)) {
	if rb.full {
		for _, e := range rb.entries[rb.next:] {
			fn(e)
		}
	}
	for _, e := range rb.entries[:rb.next] {
		fn(e)
	}
}
