package history

import (
	"sync"

	contractx "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/contract"
)

// DefaultMax bounds a history when the caller passes a non-positive capacity.
const DefaultMax = 10

// History is a fixed-capacity FIFO conversation log owned by one router node.
// Appending past capacity drops the oldest turns so the most recent turns
// remain. Reads hand out copies; the internal slice never escapes.
type History struct {
	mu    sync.Mutex
	max   int
	turns []contractx.Message
}

func New(max int) *History {
	if max <= 0 {
		max = DefaultMax
	}
	return &History{max: max, turns: make([]contractx.Message, 0, max)}
}

func (h *History) Append(role contractx.Role, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.turns = append(h.turns, contractx.Message{Role: role, Content: text})
	if len(h.turns) > h.max {
		h.turns = h.turns[len(h.turns)-h.max:]
	}
}

// Messages returns the current turns oldest-first.
func (h *History) Messages() []contractx.Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]contractx.Message, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}

func (h *History) Max() int {
	return h.max
}

// Clear drops every turn, keeping the configured capacity.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = h.turns[:0]
}
