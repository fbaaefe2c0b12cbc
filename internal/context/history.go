package context

import (
	"sync"
	"time"
)

// History is a bounded conversation log. When full, the oldest turn is
// evicted first.
type History struct {
	mu    sync.Mutex
	limit int
	turns []Message
	now   func() time.Time
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 40
	}
	return &History{limit: limit, now: time.Now}
}

// Append records a turn stamped with the current time.
func (h *History) Append(role, content string) Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	m := Message{Role: role, Content: content, At: h.now()}
	h.push(m)
	return m
}

func (h *History) push(m Message) {
	h.turns = append(h.turns, m)
	if over := len(h.turns) - h.limit; over > 0 {
		// Copy so the evicted prefix does not pin the backing array.
		h.turns = append([]Message(nil), h.turns[over:]...)
	}
}

// Restore seeds the history with previously persisted turns, oldest first.
func (h *History) Restore(turns []Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, m := range turns {
		if m.At.IsZero() {
			m.At = h.now()
		}
		h.push(m)
	}
}

// Last returns up to k most recent turns in chronological order.
// k <= 0 returns every stored turn.
func (h *History) Last(k int) []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	start := 0
	if k > 0 && len(h.turns) > k {
		start = len(h.turns) - k
	}
	return append([]Message(nil), h.turns[start:]...)
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}

func (h *History) Limit() int { return h.limit }

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = nil
}
